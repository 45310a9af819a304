package apperrors

import (
	"fmt"
	"net/http"
)

// --- Участники ---

var ErrInvalidEmail = New(
	CodeValidationFailed,
	"validation",
	"Valid email required",
	http.StatusBadRequest,
)

var ErrInvalidParticipantID = New(
	CodeValidationFailed,
	"validation",
	"Invalid participant id",
	http.StatusBadRequest,
)

// --- Загрузка файлов ---

var ErrNoFiles = New(
	CodeValidationFailed,
	"upload",
	"No files provided",
	http.StatusBadRequest,
)

// ErrNoNewFiles - после дедупликации не осталось ни одного нового файла.
var ErrNoNewFiles = New(
	CodeNoNewFiles,
	"upload",
	"No valid new files uploaded",
	http.StatusBadRequest,
)

// ErrUploadFailed - общее сообщение для неожиданных сбоев при загрузке.
var ErrUploadFailed = New(
	CodeInternalError,
	"upload",
	"Upload failed. Please try again.",
	http.StatusInternalServerError,
)

// ErrInvalidSurvey - surveyData не разбирается как JSON. Участнику
// показывается общее сообщение, подробности только в логе.
var ErrInvalidSurvey = New(
	CodeValidationFailed,
	"upload",
	"Upload failed. Please try again.",
	http.StatusBadRequest,
)

// ErrTooManyFiles - превышено количество файлов в одной отправке
func ErrTooManyFiles(max int) *AppError {
	return New(CodeLimitExceeded, "upload", fmt.Sprintf("Maximum %d files allowed", max), http.StatusBadRequest)
}

// ErrStorageLimitExceeded - отправка превысит квоту участника
func ErrStorageLimitExceeded(maxBytes int64) *AppError {
	return New(
		CodeLimitExceeded,
		"storage",
		fmt.Sprintf("Upload limit exceeded. Maximum %dMB per participant.", maxBytes/(1024*1024)),
		http.StatusBadRequest,
	)
}

// ErrFileTooLarge - тело запроса больше разрешенного
func ErrFileTooLarge(maxBytes int64) *AppError {
	return PayloadTooLarge(fmt.Sprintf("File too large. Maximum %dMB per file.", maxBytes/(1024*1024)))
}

package dto

import (
	"encoding/json"
	"io"
)

// ==============================
// SUBMIT
// ==============================

// IncomingFile - одна часть multipart формы. Size - заявленный размер
// части, он учитывается в квоте до чтения содержимого.
type IncomingFile struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadSeekCloser, error)
}

type SubmitRequest struct {
	Email         string
	ParticipantID string
	Survey        json.RawMessage
	IP            string
	Files         []IncomingFile
}

type SubmitResponse struct {
	Success       bool   `json:"success"`
	ParticipantID string `json:"participantId"`
	FilesCount    int    `json:"filesCount"`
	Skipped       int    `json:"skipped"`
}

// ==============================
// REQUEST HELP / FOLLOW-UP
// ==============================

type HelpRequest struct {
	Email  string
	Survey json.RawMessage
	IP     string
}

type FollowupRequest struct {
	Email         string
	ParticipantID string
	IP            string
}

// SuccessResponse - ответ эндпоинтов без дополнительных полей
type SuccessResponse struct {
	Success bool `json:"success"`
}

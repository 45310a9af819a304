package models

import (
	"encoding/json"
	"errors"
	"time"
)

type SubmissionType string

const (
	SubmissionTypeSelfUpload          SubmissionType = "self-upload"
	SubmissionTypeAssistanceRequested SubmissionType = "assistance-requested"
)

// FileRecord описывает один сохраненный файл участника.
type FileRecord struct {
	Original    string `json:"original"` // Очищенное исходное имя
	Saved       string `json:"saved"`    // Имя в хранилище, уникально в папке участника
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"` // Определено по содержимому
	Hash        string `json:"hash,omitempty"`
}

// ParticipantSubmission - одна запись в хранилище отправок.
// Создается один раз и больше не изменяется.
type ParticipantSubmission struct {
	ID          string          `json:"id"`
	Email       string          `json:"email"`
	SubmittedAt time.Time       `json:"submitted_at"`
	FilesCount  int             `json:"files_count"`
	Files       []FileRecord    `json:"files"`
	Survey      json.RawMessage `json:"survey"`
	Type        SubmissionType  `json:"type"`
	IP          string          `json:"ip"`
}

var (
	ErrSubmissionWithoutFiles = errors.New("self-upload submission must contain at least one file")
	ErrAssistanceWithFiles    = errors.New("assistance request must not contain files")
	ErrUnknownSubmissionType  = errors.New("unknown submission type")
)

// Validate проверяет инвариант: files пуст только для assistance-requested.
func (s *ParticipantSubmission) Validate() error {
	switch s.Type {
	case SubmissionTypeSelfUpload:
		if len(s.Files) == 0 {
			return ErrSubmissionWithoutFiles
		}
	case SubmissionTypeAssistanceRequested:
		if len(s.Files) != 0 {
			return ErrAssistanceWithFiles
		}
	default:
		return ErrUnknownSubmissionType
	}
	return nil
}

// FollowupInterest - участник согласился на дальнейшие контакты.
type FollowupInterest struct {
	Email         string    `json:"email"`
	ParticipantID string    `json:"participant_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	IP            string    `json:"ip"`
}

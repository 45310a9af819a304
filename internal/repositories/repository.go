package repositories

import (
	"context"
	"errors"
	"fmt"

	"energy_study_backend/internal/models"
)

var ErrUnsupportedDatabase = errors.New("unsupported database type")

// SubmissionRepository - хранилище записей об отправках.
// С точки зрения приложения только дописывается.
type SubmissionRepository interface {
	Append(ctx context.Context, submission *models.ParticipantSubmission) error
	Load(ctx context.Context) ([]models.ParticipantSubmission, error)
}

// FollowupRepository - список участников, согласных на дальнейший контакт.
type FollowupRepository interface {
	Append(ctx context.Context, interest *models.FollowupInterest) error
	Load(ctx context.Context) ([]models.FollowupInterest, error)
}

// Config - параметры выбора хранилища
type Config struct {
	Type    string // json, postgres, mysql, sqlite, badger
	DSN     string
	DataDir string
}

// Repositories объединяет оба хранилища и их общий ресурс.
type Repositories struct {
	Submissions SubmissionRepository
	Followups   FollowupRepository
	close       func() error
}

// Close освобождает соединение или файлы хранилища
func (r *Repositories) Close() error {
	if r.close == nil {
		return nil
	}
	return r.close()
}

// Open создает хранилища по типу из конфигурации
func Open(cfg Config) (*Repositories, error) {
	switch cfg.Type {
	case "", "json":
		return openJSON(cfg.DataDir)
	case "postgres", "mysql", "sqlite":
		return openGorm(cfg.Type, cfg.DSN)
	case "badger":
		return openBadger(cfg.DataDir)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, cfg.Type)
	}
}

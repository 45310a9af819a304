package services

import (
	"energy_study_backend/internal/email"
	"energy_study_backend/internal/storage"
)

// ServiceContainer содержит все сервисы приложения.
type ServiceContainer struct {
	SubmissionService SubmissionService
	EmailService      email.Provider
	Storage           storage.Storage
}

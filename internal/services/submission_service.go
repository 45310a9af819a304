package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"energy_study_backend/internal/email"
	"energy_study_backend/internal/intake"
	"energy_study_backend/internal/logger"
	"energy_study_backend/internal/models"
	"energy_study_backend/internal/repositories"
	"energy_study_backend/internal/services/dto"
	"energy_study_backend/internal/storage"
	"energy_study_backend/internal/validator"
	"energy_study_backend/pkg/apperrors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const maxNameAttempts = 5

// ============================================
// SUBMISSION SERVICE
// ============================================

type SubmissionService interface {
	// Submit проводит загрузку через валидацию, дедупликацию и учет квоты
	// и сохраняет новые файлы с одной записью об отправке.
	Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error)

	// RequestHelp записывает просьбу о помощи без файлов
	RequestHelp(ctx context.Context, req *dto.HelpRequest) error

	// RegisterFollowup добавляет участника в список для дальнейшего контакта
	RegisterFollowup(ctx context.Context, req *dto.FollowupRequest) error

	// Wait дожидается отправки запущенных подтверждений
	Wait()
}

// SubmissionConfig - лимиты и разрешенные форматы
type SubmissionConfig struct {
	MaxFiles              int
	MaxParticipantStorage int64
	AllowedExtensions     []string
	AllowedTypes          []string
	SendReceipts          bool
}

type submissionService struct {
	submissions repositories.SubmissionRepository
	followups   repositories.FollowupRepository
	storage     storage.Storage
	indexes     intake.IndexStore
	mailer      email.Provider

	validator  *intake.FileValidator
	accountant intake.Accountant
	namer      *intake.Namer
	locks      *keyedMutex

	sendReceipts bool
	pending      sync.WaitGroup
	now          func() time.Time
}

func NewSubmissionService(
	submissions repositories.SubmissionRepository,
	followups repositories.FollowupRepository,
	st storage.Storage,
	indexes intake.IndexStore,
	mailer email.Provider,
	cfg SubmissionConfig,
) (SubmissionService, error) {
	fv, err := intake.NewFileValidator(cfg.AllowedExtensions, cfg.AllowedTypes)
	if err != nil {
		return nil, err
	}
	if mailer == nil {
		mailer = email.NewNoopProvider()
	}

	return &submissionService{
		submissions: submissions,
		followups:   followups,
		storage:     st,
		indexes:     indexes,
		mailer:      mailer,
		validator:   fv,
		accountant: intake.Accountant{
			MaxFiles:      cfg.MaxFiles,
			MaxTotalBytes: cfg.MaxParticipantStorage,
		},
		namer:        intake.NewNamer(time.Now),
		locks:        newKeyedMutex(),
		sendReceipts: cfg.SendReceipts,
		now:          time.Now,
	}, nil
}

// ============================================
// SUBMIT
// ============================================

func (s *submissionService) Submit(ctx context.Context, req *dto.SubmitRequest) (*dto.SubmitResponse, error) {
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, err
	}
	participantID, err := resolveParticipantID(req.ParticipantID)
	if err != nil {
		return nil, err
	}
	ctx = logger.WithParticipantID(ctx, participantID)

	survey, err := normalizeSurvey(req.Survey)
	if err != nil {
		logger.CtxWarn(ctx, "Malformed survey data", "error", err.Error())
		return nil, apperrors.ErrInvalidSurvey.WithError(err)
	}

	// received -> validated
	if err := s.accountant.CheckCount(len(req.Files)); err != nil {
		return nil, err
	}
	if err := s.validateFiles(ctx, req.Files); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(participantID)
	defer unlock()

	idx, err := intake.LoadIndex(ctx, s.indexes, s.storage, participantID)
	if err != nil {
		logger.CtxWithError(ctx, "Failed to load hash index", err)
		return nil, apperrors.ErrUploadFailed.WithError(err)
	}

	// accounted: заявленные размеры проверяются до чтения содержимого
	var incoming int64
	for _, f := range req.Files {
		incoming += f.Size
	}
	if err := s.accountant.CheckQuota(idx.TotalSize(), incoming); err != nil {
		logger.CtxWarn(ctx, "Participant quota exceeded",
			"existing_bytes", idx.TotalSize(),
			"incoming_bytes", incoming,
		)
		return nil, err
	}

	// validated -> deduplicated
	type keptFile struct {
		name    string
		content []byte
		hash    string
	}
	dedup := intake.NewDeduplicator(idx.Hashes())
	kept := make([]keptFile, 0, len(req.Files))
	for _, f := range req.Files {
		content, err := readAll(f)
		if err != nil {
			logger.CtxWithError(ctx, "Failed to read uploaded file", err, "file", f.Name)
			return nil, apperrors.ErrUploadFailed.WithError(err)
		}
		hash, duplicate := dedup.Check(content)
		if duplicate {
			logger.CtxDebug(ctx, "Skipping duplicate file", "file", f.Name, "hash", hash)
			continue
		}
		kept = append(kept, keptFile{name: f.Name, content: content, hash: hash})
	}

	if len(kept) == 0 {
		return nil, apperrors.ErrNoNewFiles
	}

	// deduplicated -> persisted
	records := make([]models.FileRecord, 0, len(kept))
	for _, f := range kept {
		sanitized := intake.SanitizeFilename(f.name)
		storedName, err := s.saveFile(ctx, participantID, sanitized, f.content)
		if err != nil {
			logger.CtxWithError(ctx, "Failed to store file", err, "file", sanitized)
			return nil, apperrors.ErrUploadFailed.WithError(err)
		}

		size := int64(len(f.content))
		idx.Add(intake.IndexedFile{Hash: f.hash, StoredName: storedName, Size: size})
		records = append(records, models.FileRecord{
			Original:    sanitized,
			Saved:       storedName,
			Size:        size,
			ContentType: mimetype.Detect(f.content).String(),
			Hash:        f.hash,
		})
	}

	submission := &models.ParticipantSubmission{
		ID:          participantID,
		Email:       emailAddr,
		SubmittedAt: s.now().UTC(),
		FilesCount:  len(records),
		Files:       records,
		Survey:      survey,
		Type:        models.SubmissionTypeSelfUpload,
		IP:          req.IP,
	}
	if err := submission.Validate(); err != nil {
		return nil, apperrors.InternalError(err)
	}
	if err := s.submissions.Append(ctx, submission); err != nil {
		// файлы уже записаны, индекс подберет их при следующей сверке
		logger.CtxWithError(ctx, "Failed to append submission record", err)
		return nil, apperrors.ErrUploadFailed.WithError(err)
	}
	if err := s.indexes.Save(ctx, participantID, idx); err != nil {
		logger.CtxWithError(ctx, "Failed to save hash index", err)
	}

	logger.CtxInfo(ctx, "Submission stored",
		"files_count", len(records),
		"skipped", dedup.Skipped(),
	)

	s.notify(ctx, email.Receipt{
		Email:         emailAddr,
		ParticipantID: participantID,
		FilesCount:    len(records),
		Skipped:       dedup.Skipped(),
	})

	return &dto.SubmitResponse{
		Success:       true,
		ParticipantID: participantID,
		FilesCount:    len(records),
		Skipped:       dedup.Skipped(),
	}, nil
}

// validateFiles - все или ничего: первая неверная часть отклоняет отправку
func (s *submissionService) validateFiles(ctx context.Context, files []dto.IncomingFile) error {
	for _, f := range files {
		if err := s.validateFile(f); err != nil {
			var fileErr *intake.FileError
			if errors.As(err, &fileErr) {
				logger.CtxWarn(ctx, "File rejected",
					"stage", string(fileErr.Stage),
					"file", fileErr.Filename,
				)
				return apperrors.ValidationError(fileErr.Reason)
			}
			logger.CtxWithError(ctx, "Failed to open uploaded file", err, "file", f.Name)
			return apperrors.ErrUploadFailed.WithError(err)
		}
	}
	return nil
}

func (s *submissionService) validateFile(f dto.IncomingFile) error {
	if f.Name == "" || f.Open == nil {
		return s.validator.Validate(intake.Candidate{})
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	return s.validator.Validate(intake.Candidate{
		Name:        f.Name,
		ContentType: f.ContentType,
		Content:     rc,
	})
}

// saveFile пишет файл под новым именем. Занятое имя означает гонку
// с другим процессом, тогда берется следующее.
func (s *submissionService) saveFile(ctx context.Context, participantID, sanitized string, content []byte) (string, error) {
	var lastErr error
	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		storedName := s.namer.StoredName(sanitized)
		objectPath := participantID + "/" + storedName

		err := s.storage.Save(ctx, objectPath, bytes.NewReader(content), mimetype.Detect(content).String())
		if err == nil {
			return storedName, nil
		}
		if !errors.Is(err, storage.ErrObjectExists) {
			return "", err
		}
		lastErr = err
	}
	return "", fmt.Errorf("no free stored name for %s: %w", sanitized, lastErr)
}

// ============================================
// REQUEST HELP / FOLLOW-UP
// ============================================

func (s *submissionService) RequestHelp(ctx context.Context, req *dto.HelpRequest) error {
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	survey, err := normalizeSurvey(req.Survey)
	if err != nil {
		logger.CtxWarn(ctx, "Malformed survey data", "error", err.Error())
		return apperrors.ErrInvalidSurvey.WithError(err)
	}

	participantID := uuid.NewString()
	ctx = logger.WithParticipantID(ctx, participantID)

	submission := &models.ParticipantSubmission{
		ID:          participantID,
		Email:       emailAddr,
		SubmittedAt: s.now().UTC(),
		FilesCount:  0,
		Files:       []models.FileRecord{},
		Survey:      survey,
		Type:        models.SubmissionTypeAssistanceRequested,
		IP:          req.IP,
	}
	if err := s.submissions.Append(ctx, submission); err != nil {
		logger.CtxWithError(ctx, "Failed to append help request", err)
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Help request stored")
	s.notify(ctx, email.Receipt{Email: emailAddr, ParticipantID: participantID, Assistance: true})
	return nil
}

func (s *submissionService) RegisterFollowup(ctx context.Context, req *dto.FollowupRequest) error {
	emailAddr, err := normalizeEmail(req.Email)
	if err != nil {
		return err
	}
	if req.ParticipantID != "" && !validator.IsParticipantID(req.ParticipantID) {
		return apperrors.ErrInvalidParticipantID
	}

	interest := &models.FollowupInterest{
		Email:         emailAddr,
		ParticipantID: req.ParticipantID,
		SubmittedAt:   s.now().UTC(),
		IP:            req.IP,
	}
	if err := s.followups.Append(ctx, interest); err != nil {
		logger.CtxWithError(ctx, "Failed to append follow-up interest", err)
		return apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "Follow-up interest stored", "participant_id", req.ParticipantID)
	return nil
}

// ============================================
// RECEIPTS
// ============================================

// notify отправляет подтверждение в фоне. Ошибки только логируются.
func (s *submissionService) notify(ctx context.Context, receipt email.Receipt) {
	if !s.sendReceipts {
		return
	}
	requestID := logger.GetRequestID(ctx)

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		bg := logger.WithParticipantID(logger.WithRequestID(context.Background(), requestID), receipt.ParticipantID)
		if err := s.mailer.SendReceipt(receipt); err != nil {
			logger.CtxWithError(bg, "Failed to send receipt", err)
		}
	}()
}

func (s *submissionService) Wait() {
	s.pending.Wait()
}

// ============================================
// HELPERS
// ============================================

func normalizeEmail(raw string) (string, error) {
	addr := strings.ToLower(strings.TrimSpace(raw))
	if !validator.IsStudyEmail(addr) {
		return "", apperrors.ErrInvalidEmail
	}
	return addr, nil
}

func resolveParticipantID(raw string) (string, error) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return uuid.NewString(), nil
	}
	if !validator.IsParticipantID(id) {
		return "", apperrors.ErrInvalidParticipantID
	}
	return id, nil
}

// normalizeSurvey возвращает {} для пустого ввода и ошибку для невалидного JSON
func normalizeSurvey(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return json.RawMessage(`{}`), nil
	}
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("survey data is not valid JSON")
	}
	return json.RawMessage(trimmed), nil
}

func readAll(f dto.IncomingFile) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

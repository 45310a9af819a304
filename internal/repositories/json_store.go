package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"energy_study_backend/internal/models"
)

const (
	participantsFile = "participants.json"
	followupFile     = "followup_interest.json"
)

type participantsDocument struct {
	Participants []models.ParticipantSubmission `json:"participants"`
}

type followupDocument struct {
	Interested []models.FollowupInterest `json:"interested"`
}

// jsonDocument - один JSON файл, который перезаписывается целиком.
// Мьютекс закрывает гонку read-modify-write внутри процесса.
type jsonDocument struct {
	mu   sync.Mutex
	path string
}

func (d *jsonDocument) read(v any) error {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", filepath.Base(d.path), err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(d.path), err)
	}
	return nil
}

// write пишет во временный файл и переименовывает его,
// чтобы оборванная запись не испортила документ.
func (d *jsonDocument) write(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(d.path), err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(d.path), filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", filepath.Base(d.path), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", filepath.Base(d.path), err)
	}
	if err := os.Rename(tmp.Name(), d.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace %s: %w", filepath.Base(d.path), err)
	}
	return nil
}

type jsonSubmissionRepository struct {
	doc *jsonDocument
}

func NewJSONSubmissionRepository(dataDir string) SubmissionRepository {
	return &jsonSubmissionRepository{doc: &jsonDocument{path: filepath.Join(dataDir, participantsFile)}}
}

func (r *jsonSubmissionRepository) Append(ctx context.Context, submission *models.ParticipantSubmission) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	doc := participantsDocument{Participants: []models.ParticipantSubmission{}}
	if err := r.doc.read(&doc); err != nil {
		return err
	}
	doc.Participants = append(doc.Participants, *submission)
	return r.doc.write(&doc)
}

func (r *jsonSubmissionRepository) Load(ctx context.Context) ([]models.ParticipantSubmission, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	var doc participantsDocument
	if err := r.doc.read(&doc); err != nil {
		return nil, err
	}
	if doc.Participants == nil {
		return []models.ParticipantSubmission{}, nil
	}
	return doc.Participants, nil
}

type jsonFollowupRepository struct {
	doc *jsonDocument
}

func NewJSONFollowupRepository(dataDir string) FollowupRepository {
	return &jsonFollowupRepository{doc: &jsonDocument{path: filepath.Join(dataDir, followupFile)}}
}

func (r *jsonFollowupRepository) Append(ctx context.Context, interest *models.FollowupInterest) error {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	doc := followupDocument{Interested: []models.FollowupInterest{}}
	if err := r.doc.read(&doc); err != nil {
		return err
	}
	doc.Interested = append(doc.Interested, *interest)
	return r.doc.write(&doc)
}

func (r *jsonFollowupRepository) Load(ctx context.Context) ([]models.FollowupInterest, error) {
	r.doc.mu.Lock()
	defer r.doc.mu.Unlock()

	var doc followupDocument
	if err := r.doc.read(&doc); err != nil {
		return nil, err
	}
	if doc.Interested == nil {
		return []models.FollowupInterest{}, nil
	}
	return doc.Interested, nil
}

func openJSON(dataDir string) (*Repositories, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &Repositories{
		Submissions: NewJSONSubmissionRepository(dataDir),
		Followups:   NewJSONFollowupRepository(dataDir),
	}, nil
}

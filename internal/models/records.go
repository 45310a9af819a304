package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

// SubmissionRecord - строка таблицы отправок для SQL хранилищ.
type SubmissionRecord struct {
	Seq         uint           `gorm:"primaryKey;autoIncrement"`
	ID          string         `gorm:"column:participant_id;not null;index"`
	Email       string         `gorm:"not null;index"`
	SubmittedAt time.Time      `gorm:"not null"`
	FilesCount  int            `gorm:"not null;default:0"`
	Files       datatypes.JSON `gorm:"type:json"`
	Survey      datatypes.JSON `gorm:"type:json"`
	Type        string         `gorm:"not null"`
	IP          string         `gorm:"column:ip"`
}

func (SubmissionRecord) TableName() string { return "participant_submissions" }

// FollowupRecord - строка таблицы интереса к дальнейшему участию.
type FollowupRecord struct {
	Seq           uint      `gorm:"primaryKey;autoIncrement"`
	Email         string    `gorm:"not null;index"`
	ParticipantID string    `gorm:"column:participant_id"`
	SubmittedAt   time.Time `gorm:"not null"`
	IP            string    `gorm:"column:ip"`
}

func (FollowupRecord) TableName() string { return "followup_interest" }

// NewSubmissionRecord переводит доменную запись в строку таблицы.
func NewSubmissionRecord(s *ParticipantSubmission) (*SubmissionRecord, error) {
	files := s.Files
	if files == nil {
		files = []FileRecord{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return nil, err
	}
	survey := s.Survey
	if len(survey) == 0 {
		survey = json.RawMessage(`{}`)
	}
	return &SubmissionRecord{
		ID:          s.ID,
		Email:       s.Email,
		SubmittedAt: s.SubmittedAt,
		FilesCount:  s.FilesCount,
		Files:       datatypes.JSON(filesJSON),
		Survey:      datatypes.JSON(survey),
		Type:        string(s.Type),
		IP:          s.IP,
	}, nil
}

// ToSubmission - обратное преобразование.
func (r *SubmissionRecord) ToSubmission() (ParticipantSubmission, error) {
	files := []FileRecord{}
	if len(r.Files) > 0 {
		if err := json.Unmarshal(r.Files, &files); err != nil {
			return ParticipantSubmission{}, err
		}
	}
	return ParticipantSubmission{
		ID:          r.ID,
		Email:       r.Email,
		SubmittedAt: r.SubmittedAt,
		FilesCount:  r.FilesCount,
		Files:       files,
		Survey:      json.RawMessage(r.Survey),
		Type:        SubmissionType(r.Type),
		IP:          r.IP,
	}, nil
}

func NewFollowupRecord(f *FollowupInterest) *FollowupRecord {
	return &FollowupRecord{
		Email:         f.Email,
		ParticipantID: f.ParticipantID,
		SubmittedAt:   f.SubmittedAt,
		IP:            f.IP,
	}
}

func (r *FollowupRecord) ToFollowup() FollowupInterest {
	return FollowupInterest{
		Email:         r.Email,
		ParticipantID: r.ParticipantID,
		SubmittedAt:   r.SubmittedAt,
		IP:            r.IP,
	}
}

package repositories

import (
	"context"
	"fmt"

	"energy_study_backend/internal/models"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type gormSubmissionRepository struct {
	db *gorm.DB
}

func NewGormSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &gormSubmissionRepository{db: db}
}

func (r *gormSubmissionRepository) Append(ctx context.Context, submission *models.ParticipantSubmission) error {
	record, err := models.NewSubmissionRecord(submission)
	if err != nil {
		return fmt.Errorf("failed to encode submission: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("failed to insert submission: %w", err)
	}
	return nil
}

func (r *gormSubmissionRepository) Load(ctx context.Context) ([]models.ParticipantSubmission, error) {
	var records []models.SubmissionRecord
	if err := r.db.WithContext(ctx).Order("seq asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}

	submissions := make([]models.ParticipantSubmission, 0, len(records))
	for i := range records {
		s, err := records[i].ToSubmission()
		if err != nil {
			return nil, fmt.Errorf("failed to decode submission %d: %w", records[i].Seq, err)
		}
		submissions = append(submissions, s)
	}
	return submissions, nil
}

type gormFollowupRepository struct {
	db *gorm.DB
}

func NewGormFollowupRepository(db *gorm.DB) FollowupRepository {
	return &gormFollowupRepository{db: db}
}

func (r *gormFollowupRepository) Append(ctx context.Context, interest *models.FollowupInterest) error {
	if err := r.db.WithContext(ctx).Create(models.NewFollowupRecord(interest)).Error; err != nil {
		return fmt.Errorf("failed to insert followup interest: %w", err)
	}
	return nil
}

func (r *gormFollowupRepository) Load(ctx context.Context) ([]models.FollowupInterest, error) {
	var records []models.FollowupRecord
	if err := r.db.WithContext(ctx).Order("seq asc").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to load followup interest: %w", err)
	}

	result := make([]models.FollowupInterest, 0, len(records))
	for i := range records {
		result = append(result, records[i].ToFollowup())
	}
	return result, nil
}

func dialector(dbType, dsn string) (gorm.Dialector, error) {
	switch dbType {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDatabase, dbType)
	}
}

// OpenGorm подключается к SQL базе и мигрирует таблицы отправок
func OpenGorm(dbType, dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database url is required for %s", dbType)
	}

	d, err := dialector(dbType, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(d, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Warn)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", dbType, err)
	}

	if err := db.AutoMigrate(&models.SubmissionRecord{}, &models.FollowupRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", dbType, err)
	}
	return db, nil
}

func openGorm(dbType, dsn string) (*Repositories, error) {
	db, err := OpenGorm(dbType, dsn)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get *sql.DB from GORM: %w", err)
	}

	return &Repositories{
		Submissions: NewGormSubmissionRepository(db),
		Followups:   NewGormFollowupRepository(db),
		close:       sqlDB.Close,
	}, nil
}

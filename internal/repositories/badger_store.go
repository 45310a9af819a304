package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"energy_study_backend/internal/models"

	"github.com/dgraph-io/badger/v4"
)

const (
	submissionPrefix  = "submission/"
	followupPrefix    = "followup/"
	sequenceBandwidth = 100
)

// badgerLog - общий префиксный журнал поверх badger. Ключи - префикс и
// номер из последовательности, поэтому итерация идет в порядке вставки.
type badgerLog struct {
	db     *badger.DB
	prefix []byte
	seq    *badger.Sequence
}

func newBadgerLog(db *badger.DB, prefix string) (*badgerLog, error) {
	seq, err := db.GetSequence([]byte("seq/"+prefix), sequenceBandwidth)
	if err != nil {
		return nil, fmt.Errorf("failed to open sequence for %s: %w", prefix, err)
	}
	return &badgerLog{db: db, prefix: []byte(prefix), seq: seq}, nil
}

func (l *badgerLog) append(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	n, err := l.seq.Next()
	if err != nil {
		return fmt.Errorf("failed to allocate key: %w", err)
	}
	key := []byte(fmt.Sprintf("%s%020d", l.prefix, n))

	return l.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
}

func (l *badgerLog) each(fn func(value []byte) error) error {
	return l.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(l.prefix); it.ValidForPrefix(l.prefix); it.Next() {
			value, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			if err := fn(value); err != nil {
				return err
			}
		}
		return nil
	})
}

type badgerSubmissionRepository struct {
	log *badgerLog
}

func (r *badgerSubmissionRepository) Append(ctx context.Context, submission *models.ParticipantSubmission) error {
	if err := r.log.append(submission); err != nil {
		return fmt.Errorf("failed to append submission: %w", err)
	}
	return nil
}

func (r *badgerSubmissionRepository) Load(ctx context.Context) ([]models.ParticipantSubmission, error) {
	result := []models.ParticipantSubmission{}
	err := r.log.each(func(value []byte) error {
		var s models.ParticipantSubmission
		if err := json.Unmarshal(value, &s); err != nil {
			return err
		}
		result = append(result, s)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load submissions: %w", err)
	}
	return result, nil
}

type badgerFollowupRepository struct {
	log *badgerLog
}

func (r *badgerFollowupRepository) Append(ctx context.Context, interest *models.FollowupInterest) error {
	if err := r.log.append(interest); err != nil {
		return fmt.Errorf("failed to append followup interest: %w", err)
	}
	return nil
}

func (r *badgerFollowupRepository) Load(ctx context.Context) ([]models.FollowupInterest, error) {
	result := []models.FollowupInterest{}
	err := r.log.each(func(value []byte) error {
		var f models.FollowupInterest
		if err := json.Unmarshal(value, &f); err != nil {
			return err
		}
		result = append(result, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load followup interest: %w", err)
	}
	return result, nil
}

func openBadger(dataDir string) (*Repositories, error) {
	dir := filepath.Join(dataDir, "badger")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create badger directory: %w", err)
	}

	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}

	submissions, err := newBadgerLog(db, submissionPrefix)
	if err != nil {
		db.Close()
		return nil, err
	}
	followups, err := newBadgerLog(db, followupPrefix)
	if err != nil {
		submissions.seq.Release()
		db.Close()
		return nil, err
	}

	return &Repositories{
		Submissions: &badgerSubmissionRepository{log: submissions},
		Followups:   &badgerFollowupRepository{log: followups},
		close: func() error {
			submissions.seq.Release()
			followups.seq.Release()
			return db.Close()
		},
	}, nil
}

package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"energy_study_backend/internal/email"
	"energy_study_backend/internal/intake"
	"energy_study_backend/internal/models"
	"energy_study_backend/internal/repositories"
	"energy_study_backend/internal/services/dto"
	"energy_study_backend/internal/storage"
	"energy_study_backend/pkg/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pdfBody  = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	pngBody  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	jpegBody = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

type nopReadSeekCloser struct {
	*bytes.Reader
}

func (nopReadSeekCloser) Close() error { return nil }

func file(name, contentType string, content []byte) dto.IncomingFile {
	return dto.IncomingFile{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(content)),
		Open: func() (io.ReadSeekCloser, error) {
			return nopReadSeekCloser{bytes.NewReader(content)}, nil
		},
	}
}

type fixture struct {
	svc       SubmissionService
	repos     *repositories.Repositories
	uploadDir string
	mailer    *email.NoopProvider
}

func newFixture(t *testing.T, mutate func(*SubmissionConfig)) *fixture {
	t.Helper()
	root := t.TempDir()
	uploadDir := filepath.Join(root, "uploads")

	st, err := storage.NewStorage(storage.Config{Type: "local", BasePath: uploadDir})
	require.NoError(t, err)
	repos, err := repositories.Open(repositories.Config{Type: "json", DataDir: filepath.Join(root, "data")})
	require.NoError(t, err)
	indexes, err := intake.NewFileIndexStore(filepath.Join(root, "data", "hash_index"))
	require.NoError(t, err)

	cfg := SubmissionConfig{
		MaxFiles:              30,
		MaxParticipantStorage: 100 * 1024 * 1024,
		AllowedExtensions:     []string{"pdf", "png", "jpg", "jpeg"},
		AllowedTypes:          []string{"application/pdf", "image/png", "image/jpeg"},
		SendReceipts:          true,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	mailer := email.NewNoopProvider()
	svc, err := NewSubmissionService(repos.Submissions, repos.Followups, st, indexes, mailer, cfg)
	require.NoError(t, err)

	return &fixture{svc: svc, repos: repos, uploadDir: uploadDir, mailer: mailer}
}

func (f *fixture) participantFiles(t *testing.T, id string) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.uploadDir, id))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func (f *fixture) records(t *testing.T) []models.ParticipantSubmission {
	t.Helper()
	records, err := f.repos.Submissions.Load(context.Background())
	require.NoError(t, err)
	return records
}

func TestSubmitStoresFilesAndRecord(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "  Resident@Example.COM ",
		ParticipantID: "p-1",
		Survey:        json.RawMessage(`{"heating":"gas"}`),
		IP:            "203.0.113.7",
		Files: []dto.IncomingFile{
			file("My Bill.pdf", "application/pdf", pdfBody),
			file("meter.PNG", "image/png", pngBody),
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, 2, resp.FilesCount)
	assert.Equal(t, 0, resp.Skipped)

	assert.Len(t, f.participantFiles(t, "p-1"), 2)

	records := f.records(t)
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, "p-1", rec.ID)
	assert.Equal(t, "resident@example.com", rec.Email)
	assert.Equal(t, models.SubmissionTypeSelfUpload, rec.Type)
	assert.Equal(t, "203.0.113.7", rec.IP)
	require.Len(t, rec.Files, 2)
	assert.Equal(t, "My_Bill.pdf", rec.Files[0].Original)
	assert.Regexp(t, `^\d{8}_\d{6}_\d{6}_My_Bill\.pdf$`, rec.Files[0].Saved)
	assert.Equal(t, "application/pdf", rec.Files[0].ContentType)
	assert.Equal(t, "image/png", rec.Files[1].ContentType)
	assert.Equal(t, intake.Hash(pdfBody), rec.Files[0].Hash)
	assert.JSONEq(t, `{"heating":"gas"}`, string(rec.Survey))

	f.svc.Wait()
	receipts := f.mailer.Receipts()
	require.Len(t, receipts, 1)
	assert.Equal(t, 2, receipts[0].FilesCount)
}

func TestSubmitDeduplicatesWithinBatch(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Files: []dto.IncomingFile{
			file("a.pdf", "application/pdf", pdfBody),
			file("a.pdf", "application/pdf", pdfBody),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, resp.FilesCount)
	assert.Equal(t, 1, resp.Skipped)
	assert.Len(t, f.participantFiles(t, "p-1"), 1)
}

func TestSubmitDeduplicatesAcrossSubmissions(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	req := &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Files:         []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
	}

	_, err := f.svc.Submit(ctx, req)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, req)
	assert.ErrorIs(t, err, apperrors.ErrNoNewFiles)

	assert.Len(t, f.participantFiles(t, "p-1"), 1)
	assert.Len(t, f.records(t), 1, "rejected submission appends nothing")
}

func TestSubmitRejectsInvalidEmail(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "not-an-email",
		ParticipantID: "p-1",
		Files:         []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmail)
	assert.Nil(t, f.participantFiles(t, "p-1"))
	assert.Empty(t, f.records(t))
}

func TestSubmitRejectsUnsafeParticipantID(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "../escape",
		Files:         []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
	})
	assert.ErrorIs(t, err, apperrors.ErrInvalidParticipantID)
}

func TestSubmitGeneratesParticipantID(t *testing.T) {
	f := newFixture(t, nil)

	resp, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email: "resident@example.com",
		Files: []dto.IncomingFile{file("a.jpg", "image/jpeg", jpegBody)},
	})
	require.NoError(t, err)
	assert.Len(t, resp.ParticipantID, 36)
	assert.Len(t, f.participantFiles(t, resp.ParticipantID), 1)
}

func TestSubmitRejectsWholeBatchOnInvalidFile(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Files: []dto.IncomingFile{
			file("a.pdf", "application/pdf", pdfBody),
			file("fake.png", "image/png", []byte("not really a png")),
		},
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Equal(t, "File content doesn't match expected type: fake.png", appErr.Message)
	assert.Nil(t, f.participantFiles(t, "p-1"))
	assert.Empty(t, f.records(t))
}

func TestSubmitRejectsTooManyFiles(t *testing.T) {
	f := newFixture(t, nil)

	opened := 0
	files := make([]dto.IncomingFile, 31)
	for i := range files {
		files[i] = dto.IncomingFile{
			Name:        fmt.Sprintf("bill%d.pdf", i),
			ContentType: "application/pdf",
			Size:        int64(len(pdfBody)),
			Open: func() (io.ReadSeekCloser, error) {
				opened++
				return nopReadSeekCloser{bytes.NewReader(pdfBody)}, nil
			},
		}
	}

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Files:         files,
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Maximum 30 files allowed", appErr.Message)
	assert.Zero(t, opened, "no file is read before the count check")
	assert.Nil(t, f.participantFiles(t, "p-1"))
}

func TestSubmitRejectsNoFiles(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{Email: "resident@example.com"})
	assert.ErrorIs(t, err, apperrors.ErrNoFiles)
}

func TestSubmitRejectsQuotaOverflow(t *testing.T) {
	f := newFixture(t, func(c *SubmissionConfig) {
		c.MaxParticipantStorage = int64(len(pdfBody)) + 4
	})
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Files:         []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
	})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Files:         []dto.IncomingFile{file("b.png", "image/png", pngBody)},
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Upload limit exceeded. Maximum 0MB per participant.", appErr.Message)
	assert.Len(t, f.participantFiles(t, "p-1"), 1, "nothing new saved")
	assert.Len(t, f.records(t), 1)
}

func TestSubmitRejectsMalformedSurvey(t *testing.T) {
	f := newFixture(t, nil)

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
		Survey:        json.RawMessage(`{broken`),
		Files:         []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
	})
	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 400, appErr.HTTPCode)
	assert.Equal(t, "Upload failed. Please try again.", appErr.Message)
	assert.Empty(t, f.records(t))
}

func TestSubmitConcurrentSameParticipant(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Submit(ctx, &dto.SubmitRequest{
				Email:         "resident@example.com",
				ParticipantID: "p-1",
				Files:         []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
			})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, apperrors.ErrNoNewFiles)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Len(t, f.participantFiles(t, "p-1"), 1)
}

func TestRequestHelp(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.RequestHelp(context.Background(), &dto.HelpRequest{
		Email: "HelpMe@Example.com",
		IP:    "198.51.100.2",
	})
	require.NoError(t, err)

	records := f.records(t)
	require.Len(t, records, 1)
	assert.Equal(t, "helpme@example.com", records[0].Email)
	assert.Equal(t, models.SubmissionTypeAssistanceRequested, records[0].Type)
	assert.Zero(t, records[0].FilesCount)
	assert.Empty(t, records[0].Files)
	assert.JSONEq(t, `{}`, string(records[0].Survey))
	assert.Len(t, records[0].ID, 36)

	f.svc.Wait()
	receipts := f.mailer.Receipts()
	require.Len(t, receipts, 1)
	assert.True(t, receipts[0].Assistance)
}

func TestRequestHelpRejectsInvalidEmail(t *testing.T) {
	f := newFixture(t, nil)

	err := f.svc.RequestHelp(context.Background(), &dto.HelpRequest{Email: "nobody"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidEmail)
	assert.Empty(t, f.records(t))
}

func TestRegisterFollowup(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	require.NoError(t, f.svc.RegisterFollowup(ctx, &dto.FollowupRequest{
		Email:         "resident@example.com",
		ParticipantID: "p-1",
	}))
	assert.ErrorIs(t, f.svc.RegisterFollowup(ctx, &dto.FollowupRequest{
		Email:         "resident@example.com",
		ParticipantID: "a/b",
	}), apperrors.ErrInvalidParticipantID)

	followups, err := f.repos.Followups.Load(ctx)
	require.NoError(t, err)
	require.Len(t, followups, 1)
	assert.Equal(t, "p-1", followups[0].ParticipantID)
}

func TestReceiptsDisabled(t *testing.T) {
	f := newFixture(t, func(c *SubmissionConfig) { c.SendReceipts = false })

	_, err := f.svc.Submit(context.Background(), &dto.SubmitRequest{
		Email: "resident@example.com",
		Files: []dto.IncomingFile{file("a.pdf", "application/pdf", pdfBody)},
	})
	require.NoError(t, err)
	f.svc.Wait()
	assert.Empty(t, f.mailer.Receipts())
}

func TestKeyedMutexReleasesEntries(t *testing.T) {
	k := newKeyedMutex()
	unlock := k.Lock("a")
	assert.Equal(t, 1, k.size())
	unlock()
	assert.Zero(t, k.size())
}

package helpers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"energy_study_backend/internal/app"
	"energy_study_backend/internal/config"
	"energy_study_backend/internal/logger"
	"energy_study_backend/internal/models"
	"energy_study_backend/internal/repositories"

	"github.com/gin-gonic/gin"
)

// TestServer - приложение на временных каталогах
type TestServer struct {
	Server    *httptest.Server
	App       *app.Application
	Config    *config.Config
	UploadDir string
	DataDir   string
}

// NewTestServer поднимает сервер с json хранилищем и локальными файлами.
// mutate позволяет поменять лимиты до сборки.
func NewTestServer(t *testing.T, mutate func(*config.Config)) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.InitWithWriter("test", io.Discard)

	root := t.TempDir()
	cfg := config.Default()
	cfg.Server.Env = "test"
	cfg.Server.LandingPage = ""
	cfg.Database.Type = "json"
	cfg.Database.DataDir = filepath.Join(root, "data")
	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = filepath.Join(root, "uploads")
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("invalid test config: %v", err)
	}

	application, err := app.SetupRouter(cfg)
	if err != nil {
		t.Fatalf("failed to set up application: %v", err)
	}

	ts := &TestServer{
		Server:    httptest.NewServer(application.Router),
		App:       application,
		Config:    cfg,
		UploadDir: cfg.Storage.BasePath,
		DataDir:   cfg.Database.DataDir,
	}
	t.Cleanup(ts.Close)
	return ts
}

func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.App.Close()
}

// SendJSON отправляет JSON и возвращает ответ с разобранным телом
func (ts *TestServer) SendJSON(t *testing.T, method, path string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, reqBody)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return ts.do(t, req)
}

// SendMultipart отправляет форму, собранную MultipartBuilder
func (ts *TestServer) SendMultipart(t *testing.T, path string, form *MultipartBuilder) (*http.Response, map[string]interface{}) {
	t.Helper()

	body, contentType := form.Build(t)
	req, err := http.NewRequest(http.MethodPost, ts.Server.URL+path, body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)
	return ts.do(t, req)
}

func (ts *TestServer) do(t *testing.T, req *http.Request) (*http.Response, map[string]interface{}) {
	t.Helper()

	res, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to send request: %v", err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	var parsed map[string]interface{}
	if len(raw) > 0 && json.Valid(raw) {
		_ = json.Unmarshal(raw, &parsed)
	}
	return res, parsed
}

// ParticipantFiles - имена файлов в папке участника, nil если папки нет
func (ts *TestServer) ParticipantFiles(t *testing.T, participantID string) []string {
	t.Helper()

	entries, err := os.ReadDir(filepath.Join(ts.UploadDir, participantID))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		t.Fatalf("failed to read participant directory: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// Submissions перечитывает записи из хранилища
func (ts *TestServer) Submissions(t *testing.T) []models.ParticipantSubmission {
	t.Helper()

	records, err := repositories.NewJSONSubmissionRepository(ts.DataDir).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load submissions: %v", err)
	}
	return records
}

// Followups перечитывает список follow-up
func (ts *TestServer) Followups(t *testing.T) []models.FollowupInterest {
	t.Helper()

	records, err := repositories.NewJSONFollowupRepository(ts.DataDir).Load(context.Background())
	if err != nil {
		t.Fatalf("failed to load follow-up list: %v", err)
	}
	return records
}

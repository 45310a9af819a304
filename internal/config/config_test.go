package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Upload.MaxFiles)
	assert.Equal(t, int64(100*1024*1024), cfg.Upload.MaxParticipantStorage)
	assert.Equal(t, int64(10*1024*1024), cfg.Server.MaxRequestSize)
	assert.Equal(t, "json", cfg.Database.Type)
	assert.Equal(t, "local", cfg.Storage.Type)
	assert.ElementsMatch(t, []string{"pdf", "png", "jpg", "jpeg"}, cfg.Upload.AllowedExtensions)
}

func TestLoadYAMLAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yamlBody := `
server:
  port: 8081
  env: development
database:
  type: badger
  data_dir: /tmp/study-data
upload:
  max_files: 5
`
	require.NoError(t, os.WriteFile(path, []byte(yamlBody), 0o644))

	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("UPLOAD_DIR", "/tmp/study-uploads")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "badger", cfg.Database.Type)
	assert.Equal(t, 5, cfg.Upload.MaxFiles)
	assert.Equal(t, "/tmp/study-uploads", cfg.Storage.BasePath)
	// Не заданное в файле берется из значений по умолчанию
	assert.Equal(t, int64(100*1024*1024), cfg.Upload.MaxParticipantStorage)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	_, err := Load("")
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Upload.MaxFiles = 0
	assert.Error(t, cfg.Validate())
}

func TestLoadHumanReadableSizes(t *testing.T) {
	t.Setenv("MAX_REQUEST_SIZE", "20MB")
	t.Setenv("MAX_PARTICIPANT_STORAGE", "512kb")
	t.Setenv("SMTP_PORT", "2525")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(20*1024*1024), cfg.Server.MaxRequestSize)
	assert.Equal(t, int64(512*1024), cfg.Upload.MaxParticipantStorage)
	assert.Equal(t, 2525, cfg.Email.SMTPPort)

	t.Setenv("MAX_REQUEST_SIZE", "lots")
	_, err = Load("")
	assert.Error(t, err)
}

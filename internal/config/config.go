package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/c2h5oh/datasize"
	"gopkg.in/yaml.v2"
)

const megabyte = 1024 * 1024

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	Env            string   `yaml:"env"`
	LandingPage    string   `yaml:"landing_page"`     // Статическая страница для GET /
	MaxRequestSize int64    `yaml:"max_request_size"` // Лимит тела запроса в байтах
	CORSOrigins    []string `yaml:"cors_origins"`
}

type DatabaseConfig struct {
	Type    string `yaml:"type"`     // json, postgres, mysql, sqlite, badger
	DSN     string `yaml:"url"`      // Для postgres/mysql/sqlite
	DataDir string `yaml:"data_dir"` // JSON документы, badger и индекс хэшей
}

type StorageConfig struct {
	Type      string `yaml:"type"`       // local, s3, cloudflare_r2
	BasePath  string `yaml:"base_path"`  // Для local
	Bucket    string `yaml:"bucket"`     // Для S3/R2
	Region    string `yaml:"region"`     // Для S3
	AccessKey string `yaml:"access_key"` // Для S3/R2
	SecretKey string `yaml:"secret_key"` // Для S3/R2
	Endpoint  string `yaml:"endpoint"`   // Для R2 или своего S3
}

type UploadConfig struct {
	MaxFiles              int      `yaml:"max_files"`               // Файлов в одной отправке
	MaxParticipantStorage int64    `yaml:"max_participant_storage"` // Суммарно на участника
	AllowedExtensions     []string `yaml:"allowed_extensions"`
	AllowedTypes          []string `yaml:"allowed_types"` // Разрешенные MIME-типы
}

type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_user"`
	SMTPPassword string `yaml:"smtp_password"`
	FromEmail    string `yaml:"from_email"`
	FromName     string `yaml:"from_name"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Upload   UploadConfig   `yaml:"upload"`
	Email    EmailConfig    `yaml:"email"`
}

var AppConfig *Config

// Default возвращает конфигурацию по умолчанию (строгий вариант лимитов).
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5000,
			Env:            "production",
			LandingPage:    "templates/index.html",
			MaxRequestSize: 10 * megabyte,
		},
		Database: DatabaseConfig{
			Type:    "json",
			DataDir: "./data",
		},
		Storage: StorageConfig{
			Type:     "local",
			BasePath: "./uploads",
		},
		Upload: UploadConfig{
			MaxFiles:              30,
			MaxParticipantStorage: 100 * megabyte,
			AllowedExtensions:     []string{"pdf", "png", "jpg", "jpeg"},
			AllowedTypes:          []string{"application/pdf", "image/png", "image/jpeg"},
		},
		Email: EmailConfig{
			SMTPPort: 587,
			FromName: "NJ Energy Study",
		},
	}
}

// Load читает YAML файл поверх значений по умолчанию и применяет
// переменные окружения. Отсутствующий файл не является ошибкой.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		switch {
		case err == nil:
			defer f.Close()
			if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file at %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			log.Printf("Config file %s not found, using defaults", path)
		default:
			return nil, fmt.Errorf("failed to open config file at %s: %w", path, err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadConfig загружает конфигурацию в AppConfig.
func LoadConfig() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}

// Validate проверяет значения, без которых сервис не может работать.
func (c *Config) Validate() error {
	if c.Upload.MaxFiles <= 0 {
		return fmt.Errorf("upload.max_files must be positive, got %d", c.Upload.MaxFiles)
	}
	if c.Upload.MaxParticipantStorage <= 0 {
		return fmt.Errorf("upload.max_participant_storage must be positive")
	}
	if c.Server.MaxRequestSize <= 0 {
		return fmt.Errorf("server.max_request_size must be positive")
	}
	if c.Database.DataDir == "" {
		return fmt.Errorf("database.data_dir is required")
	}
	return nil
}

// Address возвращает host:port для запуска сервера
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func applyEnv(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setString("SERVER_HOST", &cfg.Server.Host)
	setString("SERVER_ENV", &cfg.Server.Env)
	setString("LANDING_PAGE", &cfg.Server.LandingPage)
	setString("DATABASE_TYPE", &cfg.Database.Type)
	setString("DATABASE_URL", &cfg.Database.DSN)
	setString("DATA_DIR", &cfg.Database.DataDir)
	setString("STORAGE_TYPE", &cfg.Storage.Type)
	setString("UPLOAD_DIR", &cfg.Storage.BasePath)
	setString("STORAGE_BUCKET", &cfg.Storage.Bucket)
	setString("STORAGE_REGION", &cfg.Storage.Region)
	setString("STORAGE_ACCESS_KEY", &cfg.Storage.AccessKey)
	setString("STORAGE_SECRET_KEY", &cfg.Storage.SecretKey)
	setString("STORAGE_ENDPOINT", &cfg.Storage.Endpoint)
	setString("SMTP_HOST", &cfg.Email.SMTPHost)
	setString("SMTP_USER", &cfg.Email.SMTPUsername)
	setString("SMTP_PASSWORD", &cfg.Email.SMTPPassword)
	setString("EMAIL_FROM", &cfg.Email.FromEmail)

	if v := os.Getenv("SERVER_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SERVER_PORT %q: %w", v, err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid MAX_FILES %q: %w", v, err)
		}
		cfg.Upload.MaxFiles = n
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid SMTP_PORT %q: %w", v, err)
		}
		cfg.Email.SMTPPort = port
	}
	if err := setSize("MAX_REQUEST_SIZE", &cfg.Server.MaxRequestSize); err != nil {
		return err
	}
	if err := setSize("MAX_PARTICIPANT_STORAGE", &cfg.Upload.MaxParticipantStorage); err != nil {
		return err
	}
	if v := os.Getenv("EMAIL_ENABLED"); v != "" {
		cfg.Email.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	return nil
}

// setSize принимает как байты, так и "10MB" / "100mb"
func setSize(key string, dst *int64) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	var size datasize.ByteSize
	if err := size.UnmarshalText([]byte(strings.TrimSpace(v))); err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	*dst = int64(size.Bytes())
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// ErrObjectExists возвращается Save, если по пути уже есть объект.
// Хранилище никогда не перезаписывает файлы участников.
var ErrObjectExists = errors.New("object already exists")

// ObjectInfo - объект, найденный при листинге
type ObjectInfo struct {
	Path string // Путь относительно корня хранилища, через "/"
	Size int64
}

// Storage defines the interface for file storage operations
type Storage interface {
	// Save stores a file at the given path. Fails with ErrObjectExists
	// if the path is taken.
	Save(ctx context.Context, path string, reader io.Reader, contentType string) error

	// Get retrieves a file from the given path
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	// Delete removes a file at the given path
	Delete(ctx context.Context, path string) error

	// Exists checks if a file exists at the given path
	Exists(ctx context.Context, path string) (bool, error)

	// GetSize returns the size of a file in bytes
	GetSize(ctx context.Context, path string) (int64, error)

	// List returns files directly under prefix. A missing prefix is an empty list.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// Config holds storage configuration
type Config struct {
	Type      string // local, s3, cloudflare_r2
	BasePath  string // For local storage
	Bucket    string // For S3/R2
	Region    string // For S3
	AccessKey string // For S3/R2
	SecretKey string // For S3/R2
	Endpoint  string // For R2 or custom S3
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg Config) (Storage, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStorage(cfg)
	case "s3":
		return NewS3Storage(cfg)
	case "cloudflare_r2":
		return NewCloudflareR2Storage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

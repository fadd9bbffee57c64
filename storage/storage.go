package storage

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage interface for assignment file bytes
type Storage interface {
	// Upload stores a file under the assignment's prefix
	Upload(ctx context.Context, assignmentID uint, filename, contentType string, data io.Reader) (*StoredFile, error)

	// Download retrieves a file by storage key
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file by storage key
	Delete(ctx context.Context, key string) error
}

// StoredFile describes a file after upload
type StoredFile struct {
	Key      string
	URL      string
	Size     int64
	MimeType string
}

// StorageError wraps a backend failure with the operation and key involved.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StorageType represents the storage backend type
type StorageType string

const (
	StorageTypeLocal StorageType = "local"
	StorageTypeS3    StorageType = "s3"
)

// StorageConfig holds configuration for storage
type StorageConfig struct {
	Type         StorageType `yaml:"type"`
	LocalPath    string      `yaml:"local_path"`
	BaseURL      string      `yaml:"base_url"`
	S3Bucket     string      `yaml:"s3_bucket"`
	S3Region     string      `yaml:"s3_region"`
	S3Endpoint   string      `yaml:"s3_endpoint"`
	AWSAccessKey string      `yaml:"aws_access_key"`
	AWSSecretKey string      `yaml:"aws_secret_key"`
}

// NewStorage creates a new storage instance based on configuration
func NewStorage(cfg StorageConfig) (Storage, error) {
	switch cfg.Type {
	case StorageTypeLocal, "":
		return NewLocalStorage(cfg.LocalPath, cfg.BaseURL)
	case StorageTypeS3:
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("AWS_S3_BUCKET is required for s3 storage")
		}
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

// ReadAll downloads a file fully into memory.
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, error) {
	rc, err := s.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &StorageError{Op: "read", Key: key, Err: err}
	}
	return data, nil
}

// storageKey builds assignments/{id}/{uuid hex}_{name}
func storageKey(assignmentID uint, filename string) string {
	name := filepath.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "" || name == "." || name == "/" {
		name = "upload"
	}
	hex := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("assignments/%d/%s_%s", assignmentID, hex, name)
}

func publicURL(baseURL, key string) string {
	if baseURL == "" {
		return ""
	}
	return strings.TrimRight(baseURL, "/") + "/" + key
}

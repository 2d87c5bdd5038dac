package backend

import (
	"context"

	"assetinsight/internal/backup"
	"assetinsight/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the store and its cleanup function
type BackendResult struct {
	Store   storage.Store
	Cleanup CleanupFunc
}

// Factory creates stores and backup channels based on configuration
type Factory interface {
	// CreateBackend opens the snapshot store selected by config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
	// CreateBackupChannel returns the configured backup destination, or nil when none is set
	CreateBackupChannel(ctx context.Context, config Config) (backup.Channel, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// Backup destination; at most one of BackupDir and S3.Bucket is set
	BackupDir string
	S3        backup.S3Config
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

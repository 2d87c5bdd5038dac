package backend

import (
	"context"
	"fmt"
	"log/slog"

	"assetinsight/internal/backup"
	"assetinsight/internal/storage"
	"assetinsight/internal/storage/memory"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	case MemoryBackend:
		return f.createMemoryBackend()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend", "db_path", config.SQLiteDBPath)

	return &BackendResult{
		Store:   repo,
		Cleanup: repo.Close,
	}, nil
}

func (f *DefaultFactory) createMemoryBackend() (*BackendResult, error) {
	store := memory.New()

	f.logger.Warn("Initialized memory backend, data is lost on exit")

	return &BackendResult{
		Store:   store,
		Cleanup: store.Close,
	}, nil
}

// CreateBackupChannel implements Factory.CreateBackupChannel
func (f *DefaultFactory) CreateBackupChannel(ctx context.Context, config Config) (backup.Channel, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch {
	case config.S3.Bucket != "":
		ch, err := backup.NewS3Channel(ctx, config.S3)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 backup channel: %w", err)
		}
		f.logger.Info("Initialized S3 backup channel",
			"bucket", config.S3.Bucket,
			"prefix", config.S3.Prefix,
			"endpoint", config.S3.Endpoint)
		return ch, nil
	case config.BackupDir != "":
		ch, err := backup.NewFileChannel(config.BackupDir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize backup directory: %w", err)
		}
		f.logger.Info("Initialized file backup channel", "dir", config.BackupDir)
		return ch, nil
	default:
		return nil, nil
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"assetinsight/internal/backup"
)

// BackupSchedulerConfig holds configuration for periodic backups
type BackupSchedulerConfig struct {
	// Interval is how often a backup is written (default: 24h)
	Interval time.Duration

	// Keep is how many backups survive pruning (default: 7)
	Keep int
}

// DefaultBackupSchedulerConfig returns sensible defaults
func DefaultBackupSchedulerConfig() BackupSchedulerConfig {
	return BackupSchedulerConfig{
		Interval: 24 * time.Hour,
		Keep:     7,
	}
}

// BackupScheduler writes a backup to a channel on a fixed interval and prunes old ones.
type BackupScheduler struct {
	exchange *backup.Exchange
	channel  backup.Channel
	config   BackupSchedulerConfig

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	last    string
}

func NewBackupScheduler(exchange *backup.Exchange, channel backup.Channel, config BackupSchedulerConfig) *BackupScheduler {
	def := DefaultBackupSchedulerConfig()
	if config.Interval <= 0 {
		config.Interval = def.Interval
	}
	if config.Keep <= 0 {
		config.Keep = def.Keep
	}
	return &BackupScheduler{
		exchange: exchange,
		channel:  channel,
		config:   config,
	}
}

// Start begins the backup loop. Returns an error if already running.
func (s *BackupScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("backup scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Backup scheduler started",
		"interval", s.config.Interval,
		"keep", s.config.Keep)
	return nil
}

// Stop signals the loop and waits for the backup in flight, if any.
func (s *BackupScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Backup scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Backup scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *BackupScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Last returns the name of the most recent backup this scheduler wrote.
func (s *BackupScheduler) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *BackupScheduler) runLoop(ctx context.Context) {
	s.mu.Lock()
	stopCh, doneCh := s.stopCh, s.doneCh
	s.mu.Unlock()
	defer close(doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Back up immediately on startup
	s.RunOnce(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce writes one backup and prunes the channel. Failures are logged; the next tick retries.
func (s *BackupScheduler) RunOnce(ctx context.Context) {
	name, err := s.exchange.ExportTo(ctx, s.channel)
	if err != nil {
		slog.ErrorContext(ctx, "Scheduled backup failed", "error", err)
		return
	}
	s.mu.Lock()
	s.last = name
	s.mu.Unlock()

	removed, err := backup.Prune(ctx, s.channel, s.config.Keep)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to prune old backups", "error", err)
		return
	}
	if len(removed) > 0 {
		slog.InfoContext(ctx, "Pruned old backups", "removed", len(removed), "keep", s.config.Keep)
	}
}

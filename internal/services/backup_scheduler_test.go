package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"assetinsight/internal/backup"
	"assetinsight/internal/core"
	"assetinsight/internal/storage/memory"
)

func TestDefaultBackupSchedulerConfig(t *testing.T) {
	config := DefaultBackupSchedulerConfig()

	if config.Interval != 24*time.Hour {
		t.Errorf("expected Interval 24h, got %v", config.Interval)
	}
	if config.Keep != 7 {
		t.Errorf("expected Keep 7, got %d", config.Keep)
	}

	s := NewBackupScheduler(nil, nil, BackupSchedulerConfig{})
	if s.config != config {
		t.Errorf("zero config should fall back to defaults, got %+v", s.config)
	}
}

func TestBackupScheduler_StopNotRunning(t *testing.T) {
	s := NewBackupScheduler(nil, nil, DefaultBackupSchedulerConfig())
	if s.IsRunning() {
		t.Error("scheduler should not be running initially")
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Errorf("Stop should not error when not running: %v", err)
	}
}

func TestBackupScheduler_RunAndPrune(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	if err := store.UpsertCategories(ctx, core.DefaultCategories()); err != nil {
		t.Fatal(err)
	}

	ch, err := backup.NewFileChannel(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, n := range []string{
		"AssetInsight_2020-01-01_000000.json",
		"AssetInsight_2020-01-02_000000.json",
		"AssetInsight_2020-01-03_000000.json",
	} {
		if err := ch.Put(ctx, n, strings.NewReader("{}")); err != nil {
			t.Fatal(err)
		}
	}

	s := NewBackupScheduler(backup.NewExchange(store), ch, BackupSchedulerConfig{Interval: time.Hour, Keep: 2})
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(ctx); err == nil {
		t.Error("expected error when starting a running scheduler")
	}

	deadline := time.Now().Add(5 * time.Second)
	for s.Last() == "" && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Stop(stopCtx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler should not be running after Stop")
	}

	names, err := ch.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("expected 2 backups after pruning, got %v", names)
	}
	latest, _ := backup.Latest(ctx, ch)
	if latest != s.Last() {
		t.Errorf("latest backup = %q, want %q", latest, s.Last())
	}
}

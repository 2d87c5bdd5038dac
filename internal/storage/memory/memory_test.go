package memory

import (
	"context"
	"testing"

	"assetinsight/internal/core"
	"assetinsight/internal/storage"
	"assetinsight/internal/storage/storagetest"
)

func TestMemoryStore(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store { return New() })
}

func TestUpdateHonoursCancelledContext(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := s.Upsert(ctx, core.Snapshot{Date: core.NewDate(2024, 1, 1), CategoryID: "cash", Amount: 1})
	if err == nil {
		t.Fatalf("expected context error")
	}
	if all, _ := s.FindAll(context.Background()); len(all) != 0 {
		t.Fatalf("nothing should be written, got %d rows", len(all))
	}
}

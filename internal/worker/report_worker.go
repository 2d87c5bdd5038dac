// Package worker keeps the spreadsheet report in step with the store.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"assetinsight/internal/amqp"
	"assetinsight/internal/cache"
	"assetinsight/internal/core"
	"assetinsight/internal/series"
	"assetinsight/internal/sheets"
	"assetinsight/internal/storage"
	"assetinsight/internal/valuation"
)

// dedupeCapacity bounds the remembered event ids.
const dedupeCapacity = 1024

// ReportWorker rebuilds the month-end report whenever a change event arrives and writes it
// through a sheets.ReportWriter.
type ReportWorker struct {
	store   storage.Reader
	builder *series.Builder
	writer  sheets.ReportWriter
	months  int
	today   func() core.Date

	seen *cache.LRUCache[struct{}]

	// mu serializes rebuilds so that an older table never overwrites a newer one.
	mu sync.Mutex
}

func NewReportWorker(store storage.Reader, fanout int, writer sheets.ReportWriter, dedupeTTL time.Duration) *ReportWorker {
	if dedupeTTL <= 0 {
		dedupeTTL = 10 * time.Minute
	}
	return &ReportWorker{
		store:   store,
		builder: series.NewBuilder(valuation.NewEngine(store, fanout)),
		writer:  writer,
		months:  series.DefaultMonths,
		today:   core.Today,
		seen:    cache.NewLRUCache[struct{}](dedupeCapacity, dedupeTTL),
	}
}

// DedupeCache exposes the redelivery cache so that a cache.Manager can clean it.
func (w *ReportWorker) DedupeCache() *cache.LRUCache[struct{}] {
	return w.seen
}

// HandleChangeEvent processes a single change event from AMQP. Redelivered events that were
// already applied are acknowledged without work; a failed rebuild is returned so the
// message is requeued.
func (w *ReportWorker) HandleChangeEvent(ctx context.Context, event *amqp.ChangeEvent) error {
	if _, dup := w.seen.Get(event.ID); dup {
		slog.DebugContext(ctx, "Skipping duplicate change event", "id", event.ID, "kind", event.Kind)
		return nil
	}

	slog.InfoContext(ctx, "Processing change event",
		"id", event.ID,
		"kind", event.Kind,
		"date", event.Date,
		"category_id", event.CategoryID)

	if err := w.Rebuild(ctx); err != nil {
		return fmt.Errorf("rebuild report for %s: %w", event.Kind, err)
	}
	w.seen.Set(event.ID, struct{}{})
	return nil
}

// Rebuild recomputes the trailing month-end table of the total and of every category and
// writes it.
func (w *ReportWorker) Rebuild(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	start := time.Now()
	categories, err := w.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	table, err := w.builder.MonthlyTable(ctx, categories, w.today(), w.months)
	if err != nil {
		return err
	}
	if err := w.writer.WriteReport(ctx, table); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	slog.InfoContext(ctx, "Report rebuilt",
		"categories", len(categories),
		"months", len(table.Dates),
		"duration", time.Since(start))
	return nil
}

// StartupRebuild writes the report once so that a worker started after a quiet period
// does not wait for the next change.
func (w *ReportWorker) StartupRebuild(ctx context.Context) error {
	slog.InfoContext(ctx, "Performing startup report rebuild...")
	if err := w.Rebuild(ctx); err != nil {
		return fmt.Errorf("startup rebuild: %w", err)
	}
	return nil
}

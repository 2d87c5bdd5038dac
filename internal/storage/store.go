// Package storage persists snapshots and categories. It is pure CRUD: forward-carry,
// aggregation and every other interpretation of the rows lives in the packages above it.
package storage

import (
	"context"

	"assetinsight/internal/core"
)

// Reader is the read side of the store. Absence is reported with a false flag, never an
// error.
type Reader interface {
	// FindByDate returns every snapshot recorded on exactly that day.
	FindByDate(ctx context.Context, date core.Date) ([]core.Snapshot, error)
	// FindByCategory returns the category's snapshots ordered by date ascending.
	FindByCategory(ctx context.Context, categoryID string) ([]core.Snapshot, error)
	// FindAll returns every snapshot, newest date first, then category id ascending.
	FindAll(ctx context.Context) ([]core.Snapshot, error)
	// FindClosestAtOrBefore returns the category's snapshot with the greatest date <= date.
	FindClosestAtOrBefore(ctx context.Context, categoryID string, date core.Date) (core.Snapshot, bool, error)
	// DistinctCategoryIDsWithData returns, sorted, the ids that have at least one snapshot.
	DistinctCategoryIDsWithData(ctx context.Context) ([]string, error)

	GetCategory(ctx context.Context, id string) (core.Category, bool, error)
	// ListCategories returns the registry ordered by sort order.
	ListCategories(ctx context.Context) ([]core.Category, error)
	DefaultCategories(ctx context.Context) ([]core.Category, error)
	CountCategories(ctx context.Context) (int, error)
	// MaxSortOrder returns -1 for an empty registry.
	MaxSortOrder(ctx context.Context) (int, error)
}

// Writer is the write side of the store. Inside Store.Update every call joins the same
// transaction.
type Writer interface {
	// Upsert inserts or replaces the row for (date, categoryId).
	Upsert(ctx context.Context, s core.Snapshot) error
	UpsertBatch(ctx context.Context, snapshots []core.Snapshot) error
	// Delete removes one row; deleting a missing row is not an error.
	Delete(ctx context.Context, date core.Date, categoryID string) error
	DeleteAll(ctx context.Context) error
	DeleteByCategory(ctx context.Context, categoryID string) error

	// UpsertCategory inserts or replaces the category with the same id.
	UpsertCategory(ctx context.Context, c core.Category) error
	UpsertCategories(ctx context.Context, categories []core.Category) error
	// UpdateCategory changes an existing category; core.ErrNotFound if it does not exist.
	UpdateCategory(ctx context.Context, c core.Category) error
	UpdateSortOrder(ctx context.Context, id string, sortOrder int) error
	// DeleteCategory removes the category together with all of its snapshots.
	DeleteCategory(ctx context.Context, id string) error
	DeleteNonDefaultCategories(ctx context.Context) error
}

// Store is a durable snapshot store. Writes are serialized per instance; reads may run
// concurrently and observe whatever has been committed.
type Store interface {
	Reader
	Writer

	// Update runs fn as one atomic unit. If fn returns an error nothing it wrote is kept.
	Update(ctx context.Context, fn func(w Writer) error) error
	Close() error
}

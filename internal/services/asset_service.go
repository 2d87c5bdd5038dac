package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"assetinsight/internal/amqp"
	"assetinsight/internal/backup"
	"assetinsight/internal/core"
	"assetinsight/internal/storage"
)

// Publisher announces committed changes. *amqp.Client implements it.
type Publisher interface {
	Publish(ctx context.Context, event *amqp.ChangeEvent) error
}

// SnapshotFilter selects snapshots for listing. The zero value lists everything.
type SnapshotFilter struct {
	Date       *core.Date
	CategoryID string
}

// AssetService orchestrates writes across the store and the change-event publisher.
// Events go out after the write committed; a failed publish is logged and never fails
// the write.
type AssetService struct {
	store     storage.Store
	publisher Publisher
	exchange  *backup.Exchange

	// categoryMu serializes the read-check-write of category mutations.
	categoryMu sync.Mutex
	newID      func() string
}

// NewAssetService wires the service. publisher may be nil when no broker is configured.
func NewAssetService(store storage.Store, publisher Publisher) *AssetService {
	return &AssetService{
		store:     store,
		publisher: publisher,
		exchange:  backup.NewExchange(store),
		newID:     uuid.NewString,
	}
}

// Store exposes the underlying store for read-only collaborators.
func (s *AssetService) Store() storage.Store {
	return s.store
}

// Exchange exposes the backup exchange used by restores.
func (s *AssetService) Exchange() *backup.Exchange {
	return s.exchange
}

// EnsureDefaultCategories seeds the registry with the default categories when it is empty.
// It reports whether anything was written.
func (s *AssetService) EnsureDefaultCategories(ctx context.Context) (bool, error) {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	n, err := s.store.CountCategories(ctx)
	if err != nil {
		return false, fmt.Errorf("count categories: %w", err)
	}
	if n > 0 {
		return false, nil
	}

	defaults := core.DefaultCategories()
	if err := s.store.UpsertCategories(ctx, defaults); err != nil {
		return false, fmt.Errorf("seed default categories: %w", err)
	}
	slog.InfoContext(ctx, "Seeded default categories", "count", len(defaults))
	return true, nil
}

// SaveSnapshot validates and upserts one snapshot. The category must exist.
func (s *AssetService) SaveSnapshot(ctx context.Context, snap core.Snapshot) error {
	return s.SaveSnapshots(ctx, []core.Snapshot{snap})
}

// SaveSnapshots upserts a batch atomically. Nothing is written if any entry is invalid.
func (s *AssetService) SaveSnapshots(ctx context.Context, snaps []core.Snapshot) error {
	if len(snaps) == 0 {
		return nil
	}
	snaps = slices.Clone(snaps)
	known := make(map[string]bool)
	for i := range snaps {
		snaps[i].CategoryID = strings.TrimSpace(snaps[i].CategoryID)
		if err := snaps[i].Validate(); err != nil {
			return err
		}
		id := snaps[i].CategoryID
		if _, seen := known[id]; seen {
			continue
		}
		_, ok, err := s.store.GetCategory(ctx, id)
		if err != nil {
			return fmt.Errorf("get category: %w", err)
		}
		if !ok {
			return &core.ValidationError{Field: "categoryId", Reason: fmt.Sprintf("unknown category %q", id)}
		}
		known[id] = true
	}

	if err := s.store.UpsertBatch(ctx, snaps); err != nil {
		return fmt.Errorf("save snapshots: %w", err)
	}

	for _, snap := range snaps {
		s.publish(ctx, amqp.NewSnapshotChanged(snap.Date.String(), snap.CategoryID))
	}
	return nil
}

// DeleteSnapshot removes one snapshot. Deleting a missing snapshot is not an error.
func (s *AssetService) DeleteSnapshot(ctx context.Context, date core.Date, categoryID string) error {
	if err := date.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(categoryID) == "" {
		return &core.ValidationError{Field: "categoryId", Reason: "category is required"}
	}
	if err := s.store.Delete(ctx, date, categoryID); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	s.publish(ctx, amqp.NewSnapshotChanged(date.String(), categoryID))
	return nil
}

// Snapshots lists snapshots matching the filter. A date filter wins over a category filter.
func (s *AssetService) Snapshots(ctx context.Context, f SnapshotFilter) ([]core.Snapshot, error) {
	switch {
	case f.Date != nil:
		return s.store.FindByDate(ctx, *f.Date)
	case f.CategoryID != "":
		return s.store.FindByCategory(ctx, f.CategoryID)
	default:
		return s.store.FindAll(ctx)
	}
}

// Categories lists the registry in display order.
func (s *AssetService) Categories(ctx context.Context) ([]core.Category, error) {
	return s.store.ListCategories(ctx)
}

// Category returns one category or core.ErrNotFound.
func (s *AssetService) Category(ctx context.Context, id string) (core.Category, error) {
	c, ok, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if !ok {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}

// CreateCategory adds a user category at the end of the display order with a fresh id.
// Names are unique.
func (s *AssetService) CreateCategory(ctx context.Context, name string, icon *string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, err
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	if err := s.checkNameFree(ctx, name, ""); err != nil {
		return core.Category{}, err
	}
	maxOrder, err := s.store.MaxSortOrder(ctx)
	if err != nil {
		return core.Category{}, fmt.Errorf("max sort order: %w", err)
	}

	if icon == nil || *icon == "" {
		icon = core.StringPtr(core.DefaultIcon)
	}
	c := core.Category{
		ID:        s.newID(),
		Name:      name,
		Icon:      icon,
		SortOrder: maxOrder + 1,
	}
	if err := s.store.UpsertCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category created", "category_id", c.ID, "name", c.Name)
	s.publish(ctx, amqp.NewCategoryChanged(c.ID))
	return c, nil
}

// UpdateCategory renames a category and, when icon is non-nil, changes its icon.
func (s *AssetService) UpdateCategory(ctx context.Context, id, name string, icon *string) (core.Category, error) {
	name = strings.TrimSpace(name)
	if err := core.ValidateCategoryName(name); err != nil {
		return core.Category{}, err
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	c, err := s.Category(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.checkNameFree(ctx, name, id); err != nil {
		return core.Category{}, err
	}

	c.Name = name
	if icon != nil {
		c.Icon = core.StringPtr(*icon)
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	s.publish(ctx, amqp.NewCategoryChanged(c.ID))
	return c, nil
}

// ReorderCategories assigns sort orders by position in ids. Every id must exist; categories
// not named keep their order.
func (s *AssetService) ReorderCategories(ctx context.Context, ids []string) error {
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if strings.TrimSpace(id) == "" {
			return &core.ValidationError{Field: "ids", Reason: "empty category id"}
		}
		if seen[id] {
			return &core.ValidationError{Field: "ids", Reason: fmt.Sprintf("duplicate category id %q", id)}
		}
		seen[id] = true
	}

	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	err := s.store.Update(ctx, func(w storage.Writer) error {
		for i, id := range ids {
			if err := w.UpdateSortOrder(ctx, id, i); err != nil {
				return fmt.Errorf("reorder %s: %w", id, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	for _, id := range ids {
		s.publish(ctx, amqp.NewCategoryChanged(id))
	}
	return nil
}

// DeleteCategory removes a user category and all of its snapshots. Default categories are
// protected.
func (s *AssetService) DeleteCategory(ctx context.Context, id string) error {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	c, err := s.Category(ctx, id)
	if err != nil {
		return err
	}
	if c.IsDefault {
		return fmt.Errorf("delete category %s: %w", id, core.ErrProtectedCategory)
	}
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	slog.InfoContext(ctx, "Category deleted", "category_id", id, "name", c.Name)
	s.publish(ctx, amqp.NewCategoryChanged(id))
	return nil
}

// ExportBackup returns the whole dataset as a backup document.
func (s *AssetService) ExportBackup(ctx context.Context) (backup.Document, error) {
	return s.exchange.Export(ctx)
}

// RestoreBackup replaces the dataset with doc.
func (s *AssetService) RestoreBackup(ctx context.Context, doc backup.Document) error {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	if err := s.exchange.Import(ctx, doc); err != nil {
		return err
	}
	s.publish(ctx, amqp.NewRestoreCompleted())
	return nil
}

// RestoreFrom restores the named backup from ch; an empty name picks the newest.
func (s *AssetService) RestoreFrom(ctx context.Context, ch backup.Channel, name string) (backup.Document, error) {
	s.categoryMu.Lock()
	defer s.categoryMu.Unlock()

	doc, err := s.exchange.ImportFrom(ctx, ch, name)
	if err != nil {
		return backup.Document{}, err
	}
	s.publish(ctx, amqp.NewRestoreCompleted())
	return doc, nil
}

func (s *AssetService) checkNameFree(ctx context.Context, name, selfID string) error {
	all, err := s.store.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	for _, c := range all {
		if c.Name == name && c.ID != selfID {
			return &core.ValidationError{Field: "name", Reason: fmt.Sprintf("category %q already exists", name)}
		}
	}
	return nil
}

func (s *AssetService) publish(ctx context.Context, event *amqp.ChangeEvent) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping change event", "kind", event.Kind)
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		level := slog.LevelError
		if errors.Is(err, amqp.ErrCircuitOpen) {
			level = slog.LevelWarn
		}
		slog.Log(ctx, level, "Failed to publish change event",
			"id", event.ID,
			"kind", event.Kind,
			"error", err)
	}
}

// Close releases the store.
func (s *AssetService) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

// Package memory is an in-process storage.Store for development and tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"assetinsight/internal/core"
	"assetinsight/internal/storage"
)

// Store keeps committed state in an immutable value. Update works on a copy and swaps it
// in only when the callback succeeds, so readers never see a partial write.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	st      *state
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

func (s *Store) Close() error { return nil }

func (s *Store) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st
}

func (s *Store) Update(ctx context.Context, fn func(w storage.Writer) error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	next := s.current().clone()
	if err := fn(next); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = next
	s.mu.Unlock()
	return nil
}

func (s *Store) FindByDate(ctx context.Context, date core.Date) ([]core.Snapshot, error) {
	var out []core.Snapshot
	for _, snap := range s.current().snapshots {
		if snap.Date == date {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CategoryID < out[j].CategoryID })
	return out, nil
}

func (s *Store) FindByCategory(ctx context.Context, categoryID string) ([]core.Snapshot, error) {
	var out []core.Snapshot
	for _, snap := range s.current().snapshots {
		if snap.CategoryID == categoryID {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date.Time) })
	return out, nil
}

func (s *Store) FindAll(ctx context.Context) ([]core.Snapshot, error) {
	st := s.current()
	out := make([]core.Snapshot, 0, len(st.snapshots))
	for _, snap := range st.snapshots {
		out = append(out, snap)
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Date.Compare(out[j].Date); c != 0 {
			return c > 0
		}
		return out[i].CategoryID < out[j].CategoryID
	})
	return out, nil
}

func (s *Store) FindClosestAtOrBefore(ctx context.Context, categoryID string, date core.Date) (core.Snapshot, bool, error) {
	var (
		best  core.Snapshot
		found bool
	)
	for _, snap := range s.current().snapshots {
		if snap.CategoryID != categoryID || snap.Date.After(date.Time) {
			continue
		}
		if !found || snap.Date.After(best.Date.Time) {
			best, found = snap, true
		}
	}
	return best, found, nil
}

func (s *Store) DistinctCategoryIDsWithData(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	for _, snap := range s.current().snapshots {
		seen[snap.CategoryID] = struct{}{}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, bool, error) {
	c, ok := s.current().categories[id]
	return c, ok, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]core.Category, error) {
	return s.current().sortedCategories(func(core.Category) bool { return true }), nil
}

func (s *Store) DefaultCategories(ctx context.Context) ([]core.Category, error) {
	return s.current().sortedCategories(func(c core.Category) bool { return c.IsDefault }), nil
}

func (s *Store) CountCategories(ctx context.Context) (int, error) {
	return len(s.current().categories), nil
}

func (s *Store) MaxSortOrder(ctx context.Context) (int, error) {
	maxOrder := -1
	for _, c := range s.current().categories {
		if c.SortOrder > maxOrder {
			maxOrder = c.SortOrder
		}
	}
	return maxOrder, nil
}

func (s *Store) Upsert(ctx context.Context, snap core.Snapshot) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.Upsert(ctx, snap) })
}

func (s *Store) UpsertBatch(ctx context.Context, snapshots []core.Snapshot) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.UpsertBatch(ctx, snapshots) })
}

func (s *Store) Delete(ctx context.Context, date core.Date, categoryID string) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.Delete(ctx, date, categoryID) })
}

func (s *Store) DeleteAll(ctx context.Context) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.DeleteAll(ctx) })
}

func (s *Store) DeleteByCategory(ctx context.Context, categoryID string) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.DeleteByCategory(ctx, categoryID) })
}

func (s *Store) UpsertCategory(ctx context.Context, c core.Category) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.UpsertCategory(ctx, c) })
}

func (s *Store) UpsertCategories(ctx context.Context, categories []core.Category) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.UpsertCategories(ctx, categories) })
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.UpdateCategory(ctx, c) })
}

func (s *Store) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.UpdateSortOrder(ctx, id, sortOrder) })
}

func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.DeleteCategory(ctx, id) })
}

func (s *Store) DeleteNonDefaultCategories(ctx context.Context) error {
	return s.Update(ctx, func(w storage.Writer) error { return w.DeleteNonDefaultCategories(ctx) })
}

// state is one version of the data. It is only mutated before it is published.
type state struct {
	snapshots  map[core.SnapshotKey]core.Snapshot
	categories map[string]core.Category
}

func newState() *state {
	return &state{
		snapshots:  make(map[core.SnapshotKey]core.Snapshot),
		categories: make(map[string]core.Category),
	}
}

func (st *state) clone() *state {
	return &state{
		snapshots:  maps.Clone(st.snapshots),
		categories: maps.Clone(st.categories),
	}
}

func (st *state) sortedCategories(keep func(core.Category) bool) []core.Category {
	out := make([]core.Category, 0, len(st.categories))
	for _, c := range st.categories {
		if keep(c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (st *state) Upsert(_ context.Context, snap core.Snapshot) error {
	st.snapshots[snap.Key()] = snap
	return nil
}

func (st *state) UpsertBatch(ctx context.Context, snapshots []core.Snapshot) error {
	for _, snap := range snapshots {
		st.snapshots[snap.Key()] = snap
	}
	return nil
}

func (st *state) Delete(_ context.Context, date core.Date, categoryID string) error {
	delete(st.snapshots, core.SnapshotKey{Date: date, CategoryID: categoryID})
	return nil
}

func (st *state) DeleteAll(context.Context) error {
	clear(st.snapshots)
	return nil
}

func (st *state) DeleteByCategory(_ context.Context, categoryID string) error {
	maps.DeleteFunc(st.snapshots, func(k core.SnapshotKey, _ core.Snapshot) bool {
		return k.CategoryID == categoryID
	})
	return nil
}

func (st *state) UpsertCategory(_ context.Context, c core.Category) error {
	st.categories[c.ID] = c
	return nil
}

func (st *state) UpsertCategories(_ context.Context, categories []core.Category) error {
	for _, c := range categories {
		st.categories[c.ID] = c
	}
	return nil
}

func (st *state) UpdateCategory(_ context.Context, c core.Category) error {
	if _, ok := st.categories[c.ID]; !ok {
		return fmt.Errorf("category %q: %w", c.ID, core.ErrNotFound)
	}
	st.categories[c.ID] = c
	return nil
}

func (st *state) UpdateSortOrder(_ context.Context, id string, sortOrder int) error {
	c, ok := st.categories[id]
	if !ok {
		return fmt.Errorf("category %q: %w", id, core.ErrNotFound)
	}
	c.SortOrder = sortOrder
	st.categories[id] = c
	return nil
}

func (st *state) DeleteCategory(ctx context.Context, id string) error {
	_ = st.DeleteByCategory(ctx, id)
	delete(st.categories, id)
	return nil
}

func (st *state) DeleteNonDefaultCategories(context.Context) error {
	maps.DeleteFunc(st.categories, func(_ string, c core.Category) bool { return !c.IsDefault })
	return nil
}

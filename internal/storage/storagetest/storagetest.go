// Package storagetest holds behaviour checks shared by every storage.Store implementation.
package storagetest

import (
	"context"
	"errors"
	"sync"
	"testing"

	"assetinsight/internal/core"
	"assetinsight/internal/storage"
)

// Run exercises a fresh store returned by open for each subtest.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"UpsertReplacesSameKey", testUpsertReplacesSameKey},
		{"Ordering", testOrdering},
		{"ClosestAtOrBefore", testClosestAtOrBefore},
		{"DistinctCategoryIDs", testDistinctCategoryIDs},
		{"DeleteMissingIsNoop", testDeleteMissingIsNoop},
		{"Categories", testCategories},
		{"DeleteCategoryCascades", testDeleteCategoryCascades},
		{"DeleteNonDefaultCategories", testDeleteNonDefaultCategories},
		{"UpdateRollsBack", testUpdateRollsBack},
		{"ConcurrentWriters", testConcurrentWriters},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

func snap(date, category string, amount int64) core.Snapshot {
	return core.Snapshot{Date: core.MustParseDate(date), CategoryID: category, Amount: amount}
}

func mustUpsert(t *testing.T, s storage.Store, snaps ...core.Snapshot) {
	t.Helper()
	if err := s.UpsertBatch(context.Background(), snaps); err != nil {
		t.Fatalf("upsert: %v", err)
	}
}

func testUpsertReplacesSameKey(t *testing.T, s storage.Store) {
	ctx := context.Background()
	memo := "first"
	first := snap("2024-01-01", "cash", 100)
	first.Memo = &memo
	mustUpsert(t, s, first)
	mustUpsert(t, s, snap("2024-01-01", "cash", 250))

	got, err := s.FindByDate(ctx, core.MustParseDate("2024-01-01"))
	if err != nil {
		t.Fatalf("find by date: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected one row after re-upsert, got %d", len(got))
	}
	if got[0].Amount != 250 || got[0].Memo != nil {
		t.Fatalf("expected replaced row with no memo, got %+v", got[0])
	}
}

func testOrdering(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustUpsert(t, s,
		snap("2024-02-01", "stock", 3),
		snap("2024-01-01", "stock", 1),
		snap("2024-03-01", "stock", 5),
		snap("2024-02-01", "bank", 7),
		snap("2024-02-01", "cash", 9),
	)

	byCat, err := s.FindByCategory(ctx, "stock")
	if err != nil {
		t.Fatalf("find by category: %v", err)
	}
	wantDates := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	if len(byCat) != len(wantDates) {
		t.Fatalf("expected %d rows, got %d", len(wantDates), len(byCat))
	}
	for i, w := range wantDates {
		if byCat[i].Date.String() != w {
			t.Errorf("category order %d: got %s, want %s", i, byCat[i].Date, w)
		}
	}

	all, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("find all: %v", err)
	}
	want := []core.SnapshotKey{
		{Date: core.MustParseDate("2024-03-01"), CategoryID: "stock"},
		{Date: core.MustParseDate("2024-02-01"), CategoryID: "bank"},
		{Date: core.MustParseDate("2024-02-01"), CategoryID: "cash"},
		{Date: core.MustParseDate("2024-02-01"), CategoryID: "stock"},
		{Date: core.MustParseDate("2024-01-01"), CategoryID: "stock"},
	}
	if len(all) != len(want) {
		t.Fatalf("expected %d rows, got %d", len(want), len(all))
	}
	for i, w := range want {
		if all[i].Key() != w {
			t.Errorf("find all order %d: got %v, want %v", i, all[i].Key(), w)
		}
	}
}

func testClosestAtOrBefore(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustUpsert(t, s,
		snap("2024-01-01", "bank", 100),
		snap("2024-02-01", "bank", 200),
		snap("2024-03-01", "bank", 300),
		snap("2024-02-15", "cash", 999),
	)

	cases := []struct {
		date   string
		found  bool
		amount int64
	}{
		{"2023-12-31", false, 0},
		{"2024-01-01", true, 100},
		{"2024-01-31", true, 100},
		{"2024-02-01", true, 200},
		{"2024-02-20", true, 200},
		{"2030-01-01", true, 300},
	}
	for _, tc := range cases {
		got, found, err := s.FindClosestAtOrBefore(ctx, "bank", core.MustParseDate(tc.date))
		if err != nil {
			t.Fatalf("%s: %v", tc.date, err)
		}
		if found != tc.found || (found && got.Amount != tc.amount) {
			t.Errorf("%s: got (%d, %v), want (%d, %v)", tc.date, got.Amount, found, tc.amount, tc.found)
		}
	}

	if _, found, _ := s.FindClosestAtOrBefore(ctx, "crypto", core.MustParseDate("2030-01-01")); found {
		t.Errorf("expected nothing for a category without rows")
	}
}

func testDistinctCategoryIDs(t *testing.T, s storage.Store) {
	ctx := context.Background()
	ids, err := s.DistinctCategoryIDsWithData(ctx)
	if err != nil || len(ids) != 0 {
		t.Fatalf("expected empty ids, got %v err=%v", ids, err)
	}
	mustUpsert(t, s,
		snap("2024-01-01", "stock", 1),
		snap("2024-02-01", "stock", 2),
		snap("2024-01-01", "bank", 3),
	)
	ids, err = s.DistinctCategoryIDsWithData(ctx)
	if err != nil {
		t.Fatalf("distinct ids: %v", err)
	}
	if len(ids) != 2 || ids[0] != "bank" || ids[1] != "stock" {
		t.Fatalf("unexpected ids %v", ids)
	}
}

func testDeleteMissingIsNoop(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.Delete(ctx, core.MustParseDate("2024-01-01"), "cash"); err != nil {
		t.Fatalf("delete of missing row should succeed, got %v", err)
	}
	mustUpsert(t, s, snap("2024-01-01", "cash", 1), snap("2024-01-01", "bank", 2))
	if err := s.Delete(ctx, core.MustParseDate("2024-01-01"), "cash"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	left, _ := s.FindByDate(ctx, core.MustParseDate("2024-01-01"))
	if len(left) != 1 || left[0].CategoryID != "bank" {
		t.Fatalf("unexpected remaining rows %+v", left)
	}
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	maxOrder, err := s.MaxSortOrder(ctx)
	if err != nil || maxOrder != -1 {
		t.Fatalf("expected -1 for empty registry, got %d err=%v", maxOrder, err)
	}
	if err := s.UpsertCategories(ctx, core.DefaultCategories()); err != nil {
		t.Fatalf("seed defaults: %v", err)
	}
	custom := core.Category{ID: "pension", Name: "Pension", SortOrder: 7}
	if err := s.UpsertCategory(ctx, custom); err != nil {
		t.Fatalf("upsert custom: %v", err)
	}

	n, _ := s.CountCategories(ctx)
	if n != 8 {
		t.Fatalf("expected 8 categories, got %d", n)
	}
	maxOrder, _ = s.MaxSortOrder(ctx)
	if maxOrder != 7 {
		t.Fatalf("expected max sort order 7, got %d", maxOrder)
	}
	defs, _ := s.DefaultCategories(ctx)
	if len(defs) != 7 {
		t.Fatalf("expected 7 defaults, got %d", len(defs))
	}

	got, ok, err := s.GetCategory(ctx, "pension")
	if err != nil || !ok {
		t.Fatalf("get pension: ok=%v err=%v", ok, err)
	}
	if got.Icon != nil || got.IsDefault {
		t.Fatalf("unexpected custom category %+v", got)
	}
	if _, ok, _ := s.GetCategory(ctx, "nope"); ok {
		t.Fatalf("expected missing category")
	}

	if err := s.UpdateSortOrder(ctx, "pension", -1); err != nil {
		t.Fatalf("update sort order: %v", err)
	}
	list, _ := s.ListCategories(ctx)
	if list[0].ID != "pension" {
		t.Fatalf("expected pension first after reorder, got %s", list[0].ID)
	}

	err = s.UpdateCategory(ctx, core.Category{ID: "nope", Name: "x"})
	if !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.UpdateSortOrder(ctx, "nope", 1); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound from sort order update, got %v", err)
	}
}

func testDeleteCategoryCascades(t *testing.T, s storage.Store) {
	ctx := context.Background()
	if err := s.UpsertCategory(ctx, core.Category{ID: "pension", Name: "Pension"}); err != nil {
		t.Fatalf("upsert category: %v", err)
	}
	mustUpsert(t, s, snap("2024-01-01", "pension", 5), snap("2024-01-01", "cash", 6))

	if err := s.DeleteCategory(ctx, "pension"); err != nil {
		t.Fatalf("delete category: %v", err)
	}
	if rows, _ := s.FindByCategory(ctx, "pension"); len(rows) != 0 {
		t.Fatalf("expected cascade, %d rows left", len(rows))
	}
	if rows, _ := s.FindByCategory(ctx, "cash"); len(rows) != 1 {
		t.Fatalf("other categories must be untouched")
	}
}

func testDeleteNonDefaultCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	cats := append(core.DefaultCategories(), core.Category{ID: "pension", Name: "Pension", SortOrder: 7})
	if err := s.UpsertCategories(ctx, cats); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.DeleteNonDefaultCategories(ctx); err != nil {
		t.Fatalf("delete non-default: %v", err)
	}
	n, _ := s.CountCategories(ctx)
	if n != 7 {
		t.Fatalf("expected only defaults to remain, got %d", n)
	}
}

func testUpdateRollsBack(t *testing.T, s storage.Store) {
	ctx := context.Background()
	mustUpsert(t, s, snap("2024-01-01", "cash", 1))

	boom := errors.New("boom")
	err := s.Update(ctx, func(w storage.Writer) error {
		if err := w.DeleteAll(ctx); err != nil {
			return err
		}
		if err := w.Upsert(ctx, snap("2024-05-01", "bank", 42)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}

	all, _ := s.FindAll(ctx)
	if len(all) != 1 || all[0].CategoryID != "cash" || all[0].Amount != 1 {
		t.Fatalf("expected prior state after rollback, got %+v", all)
	}
}

func testConcurrentWriters(t *testing.T, s storage.Store) {
	ctx := context.Background()
	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d := core.NewDate(2024, 1, i+1)
			errs <- s.Upsert(ctx, core.Snapshot{Date: d, CategoryID: "cash", Amount: int64(i)})
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent upsert: %v", err)
		}
	}
	rows, _ := s.FindByCategory(ctx, "cash")
	if len(rows) != writers {
		t.Fatalf("expected %d rows, got %d", writers, len(rows))
	}
}

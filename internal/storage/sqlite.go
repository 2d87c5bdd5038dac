package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"assetinsight/internal/core"

	_ "modernc.org/sqlite"
)

// sqlitePragmas keep readers from failing while the writer holds the database.
const sqlitePragmas = "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	writeMu sync.Mutex
}

var _ Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+sqlitePragmas)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Update runs fn inside one transaction. Writers queue on writeMu so that SQLite never
// sees two write transactions from this process at once.
func (r *SQLiteRepository) Update(ctx context.Context, fn func(w Writer) error) error {
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Persistence("begin transaction", err)
	}

	if err := fn(&txWriter{q: r.queries.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.WarnContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return core.Persistence("commit transaction", err)
	}
	return nil
}

// Snapshot reads

func (r *SQLiteRepository) FindByDate(ctx context.Context, date core.Date) ([]core.Snapshot, error) {
	rows, err := r.queries.GetSnapshotsByDate(ctx, date.String())
	if err != nil {
		return nil, core.Persistence("get snapshots by date", err)
	}
	return toSnapshots(rows)
}

func (r *SQLiteRepository) FindByCategory(ctx context.Context, categoryID string) ([]core.Snapshot, error) {
	rows, err := r.queries.GetSnapshotsByCategory(ctx, categoryID)
	if err != nil {
		return nil, core.Persistence("get snapshots by category", err)
	}
	return toSnapshots(rows)
}

func (r *SQLiteRepository) FindAll(ctx context.Context) ([]core.Snapshot, error) {
	rows, err := r.queries.GetAllSnapshots(ctx)
	if err != nil {
		return nil, core.Persistence("get all snapshots", err)
	}
	return toSnapshots(rows)
}

func (r *SQLiteRepository) FindClosestAtOrBefore(ctx context.Context, categoryID string, date core.Date) (core.Snapshot, bool, error) {
	row, err := r.queries.GetClosestSnapshot(ctx, categoryID, date.String())
	if errors.Is(err, sql.ErrNoRows) {
		return core.Snapshot{}, false, nil
	}
	if err != nil {
		return core.Snapshot{}, false, core.Persistence("get closest snapshot", err)
	}
	s, err := toSnapshot(row)
	if err != nil {
		return core.Snapshot{}, false, err
	}
	return s, true, nil
}

func (r *SQLiteRepository) DistinctCategoryIDsWithData(ctx context.Context) ([]string, error) {
	ids, err := r.queries.GetCategoryIDsWithData(ctx)
	if err != nil {
		return nil, core.Persistence("get category ids with data", err)
	}
	return ids, nil
}

// Category reads

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.Category, bool, error) {
	row, err := r.queries.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, false, nil
	}
	if err != nil {
		return core.Category{}, false, core.Persistence("get category", err)
	}
	return toCategory(row), true, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.GetAllCategories(ctx)
	if err != nil {
		return nil, core.Persistence("list categories", err)
	}
	return toCategories(rows), nil
}

func (r *SQLiteRepository) DefaultCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.queries.GetDefaultCategories(ctx)
	if err != nil {
		return nil, core.Persistence("list default categories", err)
	}
	return toCategories(rows), nil
}

func (r *SQLiteRepository) CountCategories(ctx context.Context) (int, error) {
	n, err := r.queries.CountCategories(ctx)
	if err != nil {
		return 0, core.Persistence("count categories", err)
	}
	return int(n), nil
}

func (r *SQLiteRepository) MaxSortOrder(ctx context.Context) (int, error) {
	n, err := r.queries.GetMaxSortOrder(ctx)
	if err != nil {
		return 0, core.Persistence("get max sort order", err)
	}
	return int(n), nil
}

// Single-statement writes run as their own transaction.

func (r *SQLiteRepository) Upsert(ctx context.Context, s core.Snapshot) error {
	return r.Update(ctx, func(w Writer) error { return w.Upsert(ctx, s) })
}

func (r *SQLiteRepository) UpsertBatch(ctx context.Context, snapshots []core.Snapshot) error {
	return r.Update(ctx, func(w Writer) error { return w.UpsertBatch(ctx, snapshots) })
}

func (r *SQLiteRepository) Delete(ctx context.Context, date core.Date, categoryID string) error {
	return r.Update(ctx, func(w Writer) error { return w.Delete(ctx, date, categoryID) })
}

func (r *SQLiteRepository) DeleteAll(ctx context.Context) error {
	return r.Update(ctx, func(w Writer) error { return w.DeleteAll(ctx) })
}

func (r *SQLiteRepository) DeleteByCategory(ctx context.Context, categoryID string) error {
	return r.Update(ctx, func(w Writer) error { return w.DeleteByCategory(ctx, categoryID) })
}

func (r *SQLiteRepository) UpsertCategory(ctx context.Context, c core.Category) error {
	return r.Update(ctx, func(w Writer) error { return w.UpsertCategory(ctx, c) })
}

func (r *SQLiteRepository) UpsertCategories(ctx context.Context, categories []core.Category) error {
	return r.Update(ctx, func(w Writer) error { return w.UpsertCategories(ctx, categories) })
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, c core.Category) error {
	return r.Update(ctx, func(w Writer) error { return w.UpdateCategory(ctx, c) })
}

func (r *SQLiteRepository) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	return r.Update(ctx, func(w Writer) error { return w.UpdateSortOrder(ctx, id, sortOrder) })
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	return r.Update(ctx, func(w Writer) error { return w.DeleteCategory(ctx, id) })
}

func (r *SQLiteRepository) DeleteNonDefaultCategories(ctx context.Context) error {
	return r.Update(ctx, func(w Writer) error { return w.DeleteNonDefaultCategories(ctx) })
}

// txWriter is the Writer handed to Update callbacks.
type txWriter struct {
	q *Queries
}

func (w *txWriter) Upsert(ctx context.Context, s core.Snapshot) error {
	return core.Persistence("upsert snapshot", w.q.UpsertSnapshot(ctx, fromSnapshot(s)))
}

func (w *txWriter) UpsertBatch(ctx context.Context, snapshots []core.Snapshot) error {
	for _, s := range snapshots {
		if err := w.Upsert(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

func (w *txWriter) Delete(ctx context.Context, date core.Date, categoryID string) error {
	return core.Persistence("delete snapshot", w.q.DeleteSnapshot(ctx, date.String(), categoryID))
}

func (w *txWriter) DeleteAll(ctx context.Context) error {
	return core.Persistence("delete all snapshots", w.q.DeleteAllSnapshots(ctx))
}

func (w *txWriter) DeleteByCategory(ctx context.Context, categoryID string) error {
	return core.Persistence("delete snapshots by category", w.q.DeleteSnapshotsByCategory(ctx, categoryID))
}

func (w *txWriter) UpsertCategory(ctx context.Context, c core.Category) error {
	return core.Persistence("upsert category", w.q.UpsertCategory(ctx, fromCategory(c)))
}

func (w *txWriter) UpsertCategories(ctx context.Context, categories []core.Category) error {
	for _, c := range categories {
		if err := w.UpsertCategory(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

func (w *txWriter) UpdateCategory(ctx context.Context, c core.Category) error {
	n, err := w.q.UpdateCategory(ctx, fromCategory(c))
	if err != nil {
		return core.Persistence("update category", err)
	}
	if n == 0 {
		return fmt.Errorf("category %q: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

func (w *txWriter) UpdateSortOrder(ctx context.Context, id string, sortOrder int) error {
	n, err := w.q.UpdateCategorySortOrder(ctx, id, int64(sortOrder))
	if err != nil {
		return core.Persistence("update sort order", err)
	}
	if n == 0 {
		return fmt.Errorf("category %q: %w", id, core.ErrNotFound)
	}
	return nil
}

func (w *txWriter) DeleteCategory(ctx context.Context, id string) error {
	if err := w.DeleteByCategory(ctx, id); err != nil {
		return err
	}
	return core.Persistence("delete category", w.q.DeleteCategory(ctx, id))
}

func (w *txWriter) DeleteNonDefaultCategories(ctx context.Context) error {
	return core.Persistence("delete non-default categories", w.q.DeleteNonDefaultCategories(ctx))
}

// Row mapping

func fromSnapshot(s core.Snapshot) AssetSnapshot {
	return AssetSnapshot{
		Date:       s.Date.String(),
		CategoryID: s.CategoryID,
		Amount:     s.Amount,
		Memo:       nullString(s.Memo),
	}
}

func toSnapshot(row AssetSnapshot) (core.Snapshot, error) {
	d, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Snapshot{}, core.Persistence("decode snapshot date", err)
	}
	return core.Snapshot{
		Date:       d,
		CategoryID: row.CategoryID,
		Amount:     row.Amount,
		Memo:       stringPtr(row.Memo),
	}, nil
}

func toSnapshots(rows []AssetSnapshot) ([]core.Snapshot, error) {
	out := make([]core.Snapshot, 0, len(rows))
	for _, row := range rows {
		s, err := toSnapshot(row)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func fromCategory(c core.Category) CategoryRow {
	return CategoryRow{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      nullString(c.Icon),
		SortOrder: int64(c.SortOrder),
		IsDefault: c.IsDefault,
	}
}

func toCategory(row CategoryRow) core.Category {
	return core.Category{
		ID:        row.ID,
		Name:      row.Name,
		Icon:      stringPtr(row.Icon),
		SortOrder: int(row.SortOrder),
		IsDefault: row.IsDefault,
	}
}

func toCategories(rows []CategoryRow) []core.Category {
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row))
	}
	return out
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL of the store, bound to a connection or a transaction.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// AssetSnapshot is a row of asset_snapshot.
type AssetSnapshot struct {
	Date       string
	CategoryID string
	Amount     int64
	Memo       sql.NullString
}

// CategoryRow is a row of category.
type CategoryRow struct {
	ID        string
	Name      string
	Icon      sql.NullString
	SortOrder int64
	IsDefault bool
}

const upsertSnapshot = `
INSERT INTO asset_snapshot (date, category_id, amount, memo)
VALUES (?, ?, ?, ?)
ON CONFLICT (date, category_id) DO UPDATE SET
    amount = excluded.amount,
    memo   = excluded.memo`

func (q *Queries) UpsertSnapshot(ctx context.Context, arg AssetSnapshot) error {
	_, err := q.db.ExecContext(ctx, upsertSnapshot, arg.Date, arg.CategoryID, arg.Amount, arg.Memo)
	return err
}

const deleteSnapshot = `DELETE FROM asset_snapshot WHERE date = ? AND category_id = ?`

func (q *Queries) DeleteSnapshot(ctx context.Context, date, categoryID string) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshot, date, categoryID)
	return err
}

const deleteAllSnapshots = `DELETE FROM asset_snapshot`

func (q *Queries) DeleteAllSnapshots(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllSnapshots)
	return err
}

const deleteSnapshotsByCategory = `DELETE FROM asset_snapshot WHERE category_id = ?`

func (q *Queries) DeleteSnapshotsByCategory(ctx context.Context, categoryID string) error {
	_, err := q.db.ExecContext(ctx, deleteSnapshotsByCategory, categoryID)
	return err
}

const getSnapshotsByDate = `
SELECT date, category_id, amount, memo FROM asset_snapshot
WHERE date = ?
ORDER BY category_id ASC`

func (q *Queries) GetSnapshotsByDate(ctx context.Context, date string) ([]AssetSnapshot, error) {
	return q.listSnapshots(ctx, getSnapshotsByDate, date)
}

const getSnapshotsByCategory = `
SELECT date, category_id, amount, memo FROM asset_snapshot
WHERE category_id = ?
ORDER BY date ASC`

func (q *Queries) GetSnapshotsByCategory(ctx context.Context, categoryID string) ([]AssetSnapshot, error) {
	return q.listSnapshots(ctx, getSnapshotsByCategory, categoryID)
}

const getAllSnapshots = `
SELECT date, category_id, amount, memo FROM asset_snapshot
ORDER BY date DESC, category_id ASC`

func (q *Queries) GetAllSnapshots(ctx context.Context) ([]AssetSnapshot, error) {
	return q.listSnapshots(ctx, getAllSnapshots)
}

const getClosestSnapshot = `
SELECT date, category_id, amount, memo FROM asset_snapshot
WHERE category_id = ? AND date <= ?
ORDER BY date DESC
LIMIT 1`

func (q *Queries) GetClosestSnapshot(ctx context.Context, categoryID, date string) (AssetSnapshot, error) {
	var s AssetSnapshot
	err := q.db.QueryRowContext(ctx, getClosestSnapshot, categoryID, date).
		Scan(&s.Date, &s.CategoryID, &s.Amount, &s.Memo)
	return s, err
}

const getCategoryIDsWithData = `SELECT DISTINCT category_id FROM asset_snapshot ORDER BY category_id`

func (q *Queries) GetCategoryIDsWithData(ctx context.Context) ([]string, error) {
	rows, err := q.db.QueryContext(ctx, getCategoryIDsWithData)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (q *Queries) listSnapshots(ctx context.Context, query string, args ...any) ([]AssetSnapshot, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []AssetSnapshot
	for rows.Next() {
		var s AssetSnapshot
		if err := rows.Scan(&s.Date, &s.CategoryID, &s.Amount, &s.Memo); err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

const upsertCategory = `
INSERT INTO category (id, name, icon, sort_order, is_default)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET
    name       = excluded.name,
    icon       = excluded.icon,
    sort_order = excluded.sort_order,
    is_default = excluded.is_default`

func (q *Queries) UpsertCategory(ctx context.Context, arg CategoryRow) error {
	_, err := q.db.ExecContext(ctx, upsertCategory, arg.ID, arg.Name, arg.Icon, arg.SortOrder, arg.IsDefault)
	return err
}

const updateCategory = `
UPDATE category SET name = ?, icon = ?, sort_order = ?, is_default = ?
WHERE id = ?`

func (q *Queries) UpdateCategory(ctx context.Context, arg CategoryRow) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategory, arg.Name, arg.Icon, arg.SortOrder, arg.IsDefault, arg.ID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const updateCategorySortOrder = `UPDATE category SET sort_order = ? WHERE id = ?`

func (q *Queries) UpdateCategorySortOrder(ctx context.Context, id string, sortOrder int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCategorySortOrder, sortOrder, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteCategory = `DELETE FROM category WHERE id = ?`

func (q *Queries) DeleteCategory(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteCategory, id)
	return err
}

const deleteNonDefaultCategories = `DELETE FROM category WHERE is_default = 0`

func (q *Queries) DeleteNonDefaultCategories(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteNonDefaultCategories)
	return err
}

const getCategory = `SELECT id, name, icon, sort_order, is_default FROM category WHERE id = ?`

func (q *Queries) GetCategory(ctx context.Context, id string) (CategoryRow, error) {
	var c CategoryRow
	err := q.db.QueryRowContext(ctx, getCategory, id).
		Scan(&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.IsDefault)
	return c, err
}

const getAllCategories = `
SELECT id, name, icon, sort_order, is_default FROM category
ORDER BY sort_order ASC, id ASC`

func (q *Queries) GetAllCategories(ctx context.Context) ([]CategoryRow, error) {
	return q.listCategories(ctx, getAllCategories)
}

const getDefaultCategories = `
SELECT id, name, icon, sort_order, is_default FROM category
WHERE is_default = 1
ORDER BY sort_order ASC, id ASC`

func (q *Queries) GetDefaultCategories(ctx context.Context) ([]CategoryRow, error) {
	return q.listCategories(ctx, getDefaultCategories)
}

const countCategories = `SELECT COUNT(*) FROM category`

func (q *Queries) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countCategories).Scan(&n)
	return n, err
}

const getMaxSortOrder = `SELECT COALESCE(MAX(sort_order), -1) FROM category`

func (q *Queries) GetMaxSortOrder(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, getMaxSortOrder).Scan(&n)
	return n, err
}

func (q *Queries) listCategories(ctx context.Context, query string, args ...any) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Name, &c.Icon, &c.SortOrder, &c.IsDefault); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

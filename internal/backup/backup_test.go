package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"assetinsight/internal/core"
	"assetinsight/internal/series"
	"assetinsight/internal/storage"
	"assetinsight/internal/storage/memory"
	"assetinsight/internal/valuation"
)

func seededStore(t *testing.T) *memory.Store {
	t.Helper()
	ctx := context.Background()
	s := memory.New()
	icon := "ic_pension"
	cats := append(core.DefaultCategories(),
		core.Category{ID: "pension", Name: "Pension", Icon: &icon, SortOrder: 7},
		core.Category{ID: "gold", Name: "Gold", SortOrder: 8},
	)
	require.NoError(t, s.UpsertCategories(ctx, cats))

	memo := "bonus"
	require.NoError(t, s.UpsertBatch(ctx, []core.Snapshot{
		{Date: core.MustParseDate("2024-01-01"), CategoryID: "cash", Amount: 100},
		{Date: core.MustParseDate("2024-01-01"), CategoryID: "bank", Amount: 5000, Memo: &memo},
		{Date: core.MustParseDate("2024-02-01"), CategoryID: "stock", Amount: 700},
		{Date: core.MustParseDate("2024-03-01"), CategoryID: "pension", Amount: 12000},
		{Date: core.MustParseDate("2024-03-15"), CategoryID: "gold", Amount: 40},
		{Date: core.MustParseDate("2024-04-01"), CategoryID: "bank", Amount: 5500},
	}))
	return s
}

func fixedExchange(s storage.Store) *Exchange {
	x := NewExchange(s)
	x.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.Local) }
	return x
}

func sortedCategories(cs []core.Category) []core.Category {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID < cs[j].ID })
	return cs
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := seededStore(t)
	doc, err := fixedExchange(src).Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2024-05-06 07:08:09", doc.BackupDate)
	assert.Equal(t, 1, doc.Version)

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))
	decoded, err := Decode(&buf)
	require.NoError(t, err)

	dst := memory.New()
	require.NoError(t, dst.UpsertCategory(ctx, core.Category{ID: "stale", Name: "Stale"}))
	require.NoError(t, dst.Upsert(ctx, core.Snapshot{Date: core.MustParseDate("2020-01-01"), CategoryID: "stale", Amount: 1}))
	require.NoError(t, NewExchange(dst).Import(ctx, decoded))

	srcCats, _ := src.ListCategories(ctx)
	dstCats, _ := dst.ListCategories(ctx)
	assert.Equal(t, sortedCategories(srcCats), sortedCategories(dstCats))

	srcSnaps, _ := src.FindAll(ctx)
	dstSnaps, _ := dst.FindAll(ctx)
	assert.Equal(t, srcSnaps, dstSnaps)
}

func TestEncodeShape(t *testing.T) {
	doc := NewDocument(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		[]core.Category{{ID: "gold", Name: "Gold", SortOrder: 8}},
		[]core.Snapshot{{Date: core.MustParseDate("2024-01-01"), CategoryID: "gold", Amount: 9007199254740993}},
	)
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, doc))

	var generic map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &generic))
	cat := generic["categories"].([]any)[0].(map[string]any)
	assert.Contains(t, cat, "icon")
	assert.Nil(t, cat["icon"])
	snap := generic["snapshots"].([]any)[0].(map[string]any)
	assert.Equal(t, "2024-01-01", snap["date"])
	assert.Nil(t, snap["memo"])
	assert.Contains(t, buf.String(), `"amount": 9007199254740993`)
	assert.True(t, strings.HasPrefix(buf.String(), "{\n  \"backupDate\""))
}

func TestImportReplaceSemantics(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)

	renamed := core.DefaultCategories()[:2]
	renamed[0].Name = "Wallet"
	doc := NewDocument(time.Now(), renamed, nil)
	require.NoError(t, NewExchange(s).Import(ctx, doc))

	all, _ := s.FindAll(ctx)
	assert.Empty(t, all)

	cats, _ := s.ListCategories(ctx)
	require.Len(t, cats, 7, "every default stays, custom ones go")
	for _, c := range cats {
		assert.True(t, c.IsDefault, c.ID)
	}
	cash, ok, _ := s.GetCategory(ctx, "cash")
	require.True(t, ok)
	assert.Equal(t, "Wallet", cash.Name)
}

// failingStore makes the snapshot phase of a restore fail after the deletes ran.
type failingStore struct {
	storage.Store
}

type failingWriter struct {
	storage.Writer
}

func (failingWriter) UpsertBatch(context.Context, []core.Snapshot) error {
	return core.Persistence("upsert snapshot", errors.New("disk full"))
}

func (f failingStore) Update(ctx context.Context, fn func(storage.Writer) error) error {
	return f.Store.Update(ctx, func(w storage.Writer) error {
		return fn(failingWriter{Writer: w})
	})
}

func TestImportRollsBackOnFailure(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	beforeCats, _ := s.ListCategories(ctx)
	beforeSnaps, _ := s.FindAll(ctx)

	doc := NewDocument(time.Now(), core.DefaultCategories(), []core.Snapshot{
		{Date: core.MustParseDate("2024-06-01"), CategoryID: "cash", Amount: 1},
	})
	err := NewExchange(failingStore{Store: s}).Import(ctx, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrPersistence)

	afterCats, _ := s.ListCategories(ctx)
	afterSnaps, _ := s.FindAll(ctx)
	assert.Equal(t, beforeCats, afterCats)
	assert.Equal(t, beforeSnaps, afterSnaps)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `{"backupDate": `},
		{"unknown version", `{"backupDate":"x","version":2,"categories":[],"snapshots":[]}`},
		{"missing version", `{"backupDate":"x","categories":[],"snapshots":[]}`},
		{"version as string", `{"backupDate":"x","version":"1","categories":[],"snapshots":[]}`},
		{"missing snapshots", `{"backupDate":"x","version":1,"categories":[]}`},
		{"bad date", `{"backupDate":"x","version":1,"categories":[],"snapshots":[{"date":"2024/01/01","categoryId":"cash","amount":1}]}`},
		{"amount not integer", `{"backupDate":"x","version":1,"categories":[],"snapshots":[{"date":"2024-01-01","categoryId":"cash","amount":1.5}]}`},
		{"category without name", `{"backupDate":"x","version":1,"categories":[{"id":"a","sortOrder":0,"isDefault":false}],"snapshots":[]}`},
		{"trailing data", `{"backupDate":"x","version":1,"categories":[],"snapshots":[]} {}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.body))
			require.Error(t, err)
			var fe *FormatError
			assert.ErrorAs(t, err, &fe)
			assert.ErrorIs(t, err, core.ErrFormat)
		})
	}
}

func TestDecodeOptionalFields(t *testing.T) {
	body := "\xef\xbb\xbf" + `{"backupDate":"2024-01-01 10:00:00","version":1,
		"categories":[{"id":"a","name":"A","sortOrder":3,"isDefault":false}],
		"snapshots":[{"date":"2024-01-01","categoryId":"a","amount":-5,"memo":null}],
		"extra":"ignored"}`
	doc, err := Decode(strings.NewReader(body))
	require.NoError(t, err)
	assert.Nil(t, doc.Categories[0].Icon)
	assert.Nil(t, doc.Snapshots[0].Memo)
	assert.Equal(t, int64(-5), doc.Snapshots[0].Amount)
}

func TestFileChannelExportImport(t *testing.T) {
	ctx := context.Background()
	ch, err := NewFileChannel(t.TempDir())
	require.NoError(t, err)

	src := seededStore(t)
	name, err := fixedExchange(src).ExportTo(ctx, ch)
	require.NoError(t, err)
	assert.Equal(t, "AssetInsight_2024-05-06_070809.json", name)

	dst := memory.New()
	doc, err := NewExchange(dst).ImportFrom(ctx, ch, "")
	require.NoError(t, err)
	assert.Len(t, doc.Snapshots, 6)

	n, _ := dst.CountCategories(ctx)
	assert.Equal(t, 9, n)

	_, err = ch.Open(ctx, "../etc/passwd")
	assert.ErrorIs(t, err, core.ErrValidation)
	_, err = ch.Open(ctx, "missing.json")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestLatestOnEmptyChannel(t *testing.T) {
	ch, err := NewFileChannel(t.TempDir())
	require.NoError(t, err)
	_, err = Latest(context.Background(), ch)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestWriteWorkbook(t *testing.T) {
	ctx := context.Background()
	s := seededStore(t)
	builder := series.NewBuilder(valuation.NewEngine(s, 0))

	var buf bytes.Buffer
	require.NoError(t, NewExchange(s).WriteWorkbook(ctx, &buf, builder, core.MustParseDate("2024-04-10")))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetCategories, SheetSnapshots, SheetMonthly}, f.GetSheetList())

	snaps, err := f.GetRows(SheetSnapshots)
	require.NoError(t, err)
	assert.Len(t, snaps, 7)

	monthly, err := f.GetRows(SheetMonthly)
	require.NoError(t, err)
	require.Len(t, monthly, 13)
	last := monthly[12]
	assert.Equal(t, "2024-04-30", last[0])
	assert.Equal(t, "18340", last[1])
}

// Package backup exports the whole dataset to a versioned JSON document and restores it.
package backup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"assetinsight/internal/core"
)

// Version is the only document format this package reads and writes.
const Version = 1

// backupDateLayout is the local wall-clock form written into backupDate.
const backupDateLayout = "2006-01-02 15:04:05"

// Document is the backup file. Field names and null handling are part of the file format.
type Document struct {
	BackupDate string           `json:"backupDate"`
	Version    int              `json:"version"`
	Categories []CategoryRecord `json:"categories"`
	Snapshots  []SnapshotRecord `json:"snapshots"`
}

type CategoryRecord struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Icon      *string `json:"icon"`
	SortOrder int     `json:"sortOrder"`
	IsDefault bool    `json:"isDefault"`
}

type SnapshotRecord struct {
	Date       core.Date `json:"date"`
	CategoryID string    `json:"categoryId"`
	Amount     int64     `json:"amount"`
	Memo       *string   `json:"memo"`
}

// FormatError reports a document that cannot be restored. It matches core.ErrFormat.
type FormatError struct {
	Reason string
	Err    error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backup format: %s: %v", e.Reason, e.Err)
	}
	return "backup format: " + e.Reason
}

func (e *FormatError) Unwrap() []error {
	if e.Err != nil {
		return []error{core.ErrFormat, e.Err}
	}
	return []error{core.ErrFormat}
}

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// NewDocument builds a version 1 document stamped with at in its own location.
func NewDocument(at time.Time, categories []core.Category, snapshots []core.Snapshot) Document {
	doc := Document{
		BackupDate: at.Format(backupDateLayout),
		Version:    Version,
		Categories: make([]CategoryRecord, len(categories)),
		Snapshots:  make([]SnapshotRecord, len(snapshots)),
	}
	for i, c := range categories {
		doc.Categories[i] = CategoryRecord{
			ID:        c.ID,
			Name:      c.Name,
			Icon:      c.Icon,
			SortOrder: c.SortOrder,
			IsDefault: c.IsDefault,
		}
	}
	for i, s := range snapshots {
		doc.Snapshots[i] = SnapshotRecord{
			Date:       s.Date,
			CategoryID: s.CategoryID,
			Amount:     s.Amount,
			Memo:       s.Memo,
		}
	}
	return doc
}

// CategoryList converts the document categories to domain values.
func (d Document) CategoryList() []core.Category {
	out := make([]core.Category, len(d.Categories))
	for i, c := range d.Categories {
		out[i] = core.Category{ID: c.ID, Name: c.Name, Icon: c.Icon, SortOrder: c.SortOrder, IsDefault: c.IsDefault}
	}
	return out
}

// SnapshotList converts the document snapshots to domain values.
func (d Document) SnapshotList() []core.Snapshot {
	out := make([]core.Snapshot, len(d.Snapshots))
	for i, s := range d.Snapshots {
		out[i] = core.Snapshot{Date: s.Date, CategoryID: s.CategoryID, Amount: s.Amount, Memo: s.Memo}
	}
	return out
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode backup: %w", err)
	}
	return nil
}

// wire mirrors Document with pointers so that missing required fields can be told apart
// from zero values.
type wireDocument struct {
	BackupDate *string         `json:"backupDate"`
	Version    *int            `json:"version"`
	Categories *[]wireCategory `json:"categories"`
	Snapshots  *[]wireSnapshot `json:"snapshots"`
}

type wireCategory struct {
	ID        *string `json:"id"`
	Name      *string `json:"name"`
	Icon      *string `json:"icon"`
	SortOrder *int    `json:"sortOrder"`
	IsDefault *bool   `json:"isDefault"`
}

type wireSnapshot struct {
	Date       *string `json:"date"`
	CategoryID *string `json:"categoryId"`
	Amount     *int64  `json:"amount"`
	Memo       *string `json:"memo"`
}

// Decode parses and validates a document. Every problem is a *FormatError; nothing is
// returned partially.
func Decode(r io.Reader) (Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Document{}, &FormatError{Reason: "read document", Err: err}
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))

	var wire wireDocument
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&wire); err != nil {
		return Document{}, &FormatError{Reason: "invalid JSON", Err: err}
	}
	if dec.More() {
		return Document{}, formatErrorf("trailing data after document")
	}

	if wire.Version == nil {
		return Document{}, formatErrorf("missing version")
	}
	if *wire.Version != Version {
		return Document{}, formatErrorf("unsupported version %d", *wire.Version)
	}
	if wire.BackupDate == nil {
		return Document{}, formatErrorf("missing backupDate")
	}
	if wire.Categories == nil {
		return Document{}, formatErrorf("missing categories")
	}
	if wire.Snapshots == nil {
		return Document{}, formatErrorf("missing snapshots")
	}

	doc := Document{
		BackupDate: *wire.BackupDate,
		Version:    *wire.Version,
		Categories: make([]CategoryRecord, 0, len(*wire.Categories)),
		Snapshots:  make([]SnapshotRecord, 0, len(*wire.Snapshots)),
	}
	for i, c := range *wire.Categories {
		rec, err := c.record()
		if err != nil {
			return Document{}, &FormatError{Reason: fmt.Sprintf("categories[%d]", i), Err: err}
		}
		doc.Categories = append(doc.Categories, rec)
	}
	for i, s := range *wire.Snapshots {
		rec, err := s.record()
		if err != nil {
			return Document{}, &FormatError{Reason: fmt.Sprintf("snapshots[%d]", i), Err: err}
		}
		doc.Snapshots = append(doc.Snapshots, rec)
	}
	return doc, nil
}

func (c wireCategory) record() (CategoryRecord, error) {
	switch {
	case c.ID == nil || strings.TrimSpace(*c.ID) == "":
		return CategoryRecord{}, errors.New("missing id")
	case c.Name == nil:
		return CategoryRecord{}, errors.New("missing name")
	case c.SortOrder == nil:
		return CategoryRecord{}, errors.New("missing sortOrder")
	case c.IsDefault == nil:
		return CategoryRecord{}, errors.New("missing isDefault")
	}
	return CategoryRecord{
		ID:        *c.ID,
		Name:      *c.Name,
		Icon:      c.Icon,
		SortOrder: *c.SortOrder,
		IsDefault: *c.IsDefault,
	}, nil
}

func (s wireSnapshot) record() (SnapshotRecord, error) {
	switch {
	case s.Date == nil:
		return SnapshotRecord{}, errors.New("missing date")
	case s.CategoryID == nil || strings.TrimSpace(*s.CategoryID) == "":
		return SnapshotRecord{}, errors.New("missing categoryId")
	case s.Amount == nil:
		return SnapshotRecord{}, errors.New("missing amount")
	}
	date, err := core.ParseDate(*s.Date)
	if err != nil {
		return SnapshotRecord{}, err
	}
	return SnapshotRecord{
		Date:       date,
		CategoryID: *s.CategoryID,
		Amount:     *s.Amount,
		Memo:       s.Memo,
	}, nil
}

// FileName is the conventional name of a backup taken at t.
func FileName(t time.Time) string {
	return "AssetInsight_" + t.Format("2006-01-02_150405") + ".json"
}

package backup

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"time"

	"assetinsight/internal/storage"
)

// Exchange reads the store into a Document and replaces the store with one.
type Exchange struct {
	store storage.Store
	now   func() time.Time
}

func NewExchange(store storage.Store) *Exchange {
	return &Exchange{store: store, now: time.Now}
}

// Export snapshots the whole dataset, categories in display order and snapshots newest first.
func (x *Exchange) Export(ctx context.Context) (Document, error) {
	categories, err := x.store.ListCategories(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export categories: %w", err)
	}
	snapshots, err := x.store.FindAll(ctx)
	if err != nil {
		return Document{}, fmt.Errorf("export snapshots: %w", err)
	}
	return NewDocument(x.now(), categories, snapshots), nil
}

// Import replaces the dataset with doc in one transaction: every snapshot and every
// non-default category is removed, then the document's categories are upserted by id and
// its snapshots inserted. Defaults the document does not mention stay as they are. If any
// step fails the store is left exactly as it was.
func (x *Exchange) Import(ctx context.Context, doc Document) error {
	if doc.Version != Version {
		return formatErrorf("unsupported version %d", doc.Version)
	}
	categories := doc.CategoryList()
	snapshots := doc.SnapshotList()

	err := x.store.Update(ctx, func(w storage.Writer) error {
		if err := w.DeleteAll(ctx); err != nil {
			return fmt.Errorf("clear snapshots: %w", err)
		}
		if err := w.DeleteNonDefaultCategories(ctx); err != nil {
			return fmt.Errorf("clear categories: %w", err)
		}
		if err := w.UpsertCategories(ctx, categories); err != nil {
			return fmt.Errorf("restore categories: %w", err)
		}
		if err := w.UpsertBatch(ctx, snapshots); err != nil {
			return fmt.Errorf("restore snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("restore backup: %w", err)
	}

	slog.InfoContext(ctx, "Backup restored",
		"backup_date", doc.BackupDate,
		"categories", len(categories),
		"snapshots", len(snapshots))
	return nil
}

// ExportTo writes a fresh export to ch under the conventional file name and returns it.
func (x *Exchange) ExportTo(ctx context.Context, ch Channel) (string, error) {
	doc, err := x.Export(ctx)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, doc); err != nil {
		return "", err
	}
	name := FileName(x.now())
	if err := ch.Put(ctx, name, &buf); err != nil {
		return "", fmt.Errorf("write backup %s: %w", name, err)
	}
	slog.InfoContext(ctx, "Backup written",
		"name", name,
		"categories", len(doc.Categories),
		"snapshots", len(doc.Snapshots))
	return name, nil
}

// ImportFrom decodes the named backup from ch and restores it. An empty name picks the
// most recent backup in ch. Decoding finishes before anything is written.
func (x *Exchange) ImportFrom(ctx context.Context, ch Channel, name string) (Document, error) {
	if name == "" {
		latest, err := Latest(ctx, ch)
		if err != nil {
			return Document{}, err
		}
		name = latest
	}

	rc, err := ch.Open(ctx, name)
	if err != nil {
		return Document{}, fmt.Errorf("open backup %s: %w", name, err)
	}
	defer rc.Close()

	doc, err := Decode(rc)
	if err != nil {
		return Document{}, err
	}
	if err := x.Import(ctx, doc); err != nil {
		return Document{}, err
	}
	return doc, nil
}

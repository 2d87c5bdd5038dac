package backup

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"assetinsight/internal/core"
)

// Channel is an opaque place backups are written to and read from.
type Channel interface {
	Put(ctx context.Context, name string, r io.Reader) error
	Open(ctx context.Context, name string) (io.ReadCloser, error)
	// List returns the backup names the channel holds, in no particular order.
	List(ctx context.Context) ([]string, error)
	// Remove deletes a backup; removing a missing one is not an error.
	Remove(ctx context.Context, name string) error
}

// Latest returns the newest backup name in ch. Conventional names sort chronologically.
func Latest(ctx context.Context, ch Channel) (string, error) {
	names, err := ch.List(ctx)
	if err != nil {
		return "", fmt.Errorf("list backups: %w", err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("no backups: %w", core.ErrNotFound)
	}
	sort.Strings(names)
	return names[len(names)-1], nil
}

// Prune removes all but the keep newest backups in ch and returns the removed names.
func Prune(ctx context.Context, ch Channel, keep int) ([]string, error) {
	if keep < 1 {
		return nil, &core.ValidationError{Field: "keep", Reason: "at least one backup must be kept"}
	}
	names, err := ch.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list backups: %w", err)
	}
	if len(names) <= keep {
		return nil, nil
	}
	sort.Strings(names)
	stale := names[:len(names)-keep]
	for _, name := range stale {
		if err := ch.Remove(ctx, name); err != nil {
			return nil, fmt.Errorf("remove backup %s: %w", name, err)
		}
	}
	return stale, nil
}

// FileChannel keeps backups as files in one directory.
type FileChannel struct {
	Dir string
}

func NewFileChannel(dir string) (*FileChannel, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup directory: %w", err)
	}
	return &FileChannel{Dir: dir}, nil
}

func (c *FileChannel) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", &core.ValidationError{Field: "name", Reason: fmt.Sprintf("invalid backup name %q", name)}
	}
	return filepath.Join(c.Dir, name), nil
}

// Put writes through a temporary file so a crash never leaves a truncated backup.
func (c *FileChannel) Put(_ context.Context, name string, r io.Reader) error {
	dst, err := c.path(name)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(c.Dir, ".backup-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return fmt.Errorf("write backup: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close backup: %w", err)
	}
	return os.Rename(tmp.Name(), dst)
}

func (c *FileChannel) Open(_ context.Context, name string) (io.ReadCloser, error) {
	p, err := c.path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("backup %s: %w", name, core.ErrNotFound)
	}
	return f, err
}

func (c *FileChannel) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(c.Dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

func (c *FileChannel) Remove(_ context.Context, name string) error {
	p, err := c.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

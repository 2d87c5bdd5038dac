package memory

import (
	"context"
	"slices"
	"sync"

	"assetinsight/internal/series"
	"assetinsight/internal/sheets"
)

var (
	_ sheets.ReportWriter = (*Store)(nil)
	_ sheets.ReportReader = (*Store)(nil)
)

// Store keeps the last written report in memory.
type Store struct {
	mu     sync.Mutex
	table  series.Table
	writes int
}

func New() *Store {
	return &Store{}
}

func (s *Store) WriteReport(_ context.Context, table series.Table) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table = clone(table)
	s.writes++
	return nil
}

func (s *Store) ReadReport(_ context.Context) (series.Table, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return clone(s.table), nil
}

// Writes returns how many reports were written.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

func clone(t series.Table) series.Table {
	out := series.Table{
		Dates: slices.Clone(t.Dates),
		Total: slices.Clone(t.Total),
	}
	for _, c := range t.Columns {
		c.Amounts = slices.Clone(c.Amounts)
		out.Columns = append(out.Columns, c)
	}
	return out
}

package series

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"assetinsight/internal/core"
)

// Column is one category's amounts in a Table.
type Column struct {
	CategoryID string
	Name       string
	Amounts    []int64
}

// Table holds the month-end values of the total and of each category, aligned on Dates.
type Table struct {
	Dates   []core.Date
	Total   []int64
	Columns []Column
}

// Header labels of a table laid out as cells.
const (
	HeaderMonthEnd = "Month end"
	HeaderTotal    = "Total"
)

// MonthlyTable evaluates the total and every category over the trailing month ends. Columns
// follow the order of categories.
func (b *Builder) MonthlyTable(ctx context.Context, categories []core.Category, today core.Date, months int) (Table, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	dates := core.TrailingMonthEnds(today, months)
	t := Table{Dates: dates, Columns: make([]Column, len(categories))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	g.Go(func() (err error) {
		t.Total, err = b.valuer.TotalsAt(gctx, dates)
		return err
	})
	for i, c := range categories {
		g.Go(func() error {
			amounts, err := b.valuer.ValuationsAt(gctx, c.ID, dates)
			if err != nil {
				return err
			}
			t.Columns[i] = Column{CategoryID: c.ID, Name: c.Name, Amounts: amounts}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Table{}, fmt.Errorf("monthly table: %w", err)
	}
	return t, nil
}

// Rows lays the table out as cells: a header row, then one row per date with the total
// followed by each category's amount.
func (t Table) Rows() [][]any {
	header := []any{HeaderMonthEnd, HeaderTotal}
	for _, c := range t.Columns {
		header = append(header, c.Name)
	}
	rows := make([][]any, 0, len(t.Dates)+1)
	rows = append(rows, header)
	for i, d := range t.Dates {
		row := []any{d.String(), t.Total[i]}
		for _, c := range t.Columns {
			row = append(row, c.Amounts[i])
		}
		rows = append(rows, row)
	}
	return rows
}

package backup

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"assetinsight/internal/core"
	"assetinsight/internal/series"
)

// Sheet names of the spreadsheet report.
const (
	SheetCategories = "Categories"
	SheetSnapshots  = "Snapshots"
	SheetMonthly    = "Monthly"
)

// MonthlyTabler is the part of series.Builder the workbook needs.
type MonthlyTabler interface {
	MonthlyTable(ctx context.Context, categories []core.Category, today core.Date, months int) (series.Table, error)
}

// WriteWorkbook writes a read-only spreadsheet report: the category registry, every
// snapshot and the trailing twelve month-end values of the total and of each category.
// It is not a backup and cannot be imported.
func (x *Exchange) WriteWorkbook(ctx context.Context, w io.Writer, mt MonthlyTabler, today core.Date) error {
	doc, err := x.Export(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetCategories); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	rows := [][]any{{"ID", "Name", "Icon", "Sort order", "Default"}}
	for _, c := range doc.Categories {
		rows = append(rows, []any{c.ID, c.Name, core.Deref(c.Icon), c.SortOrder, c.IsDefault})
	}
	if err := writeRows(f, SheetCategories, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(SheetSnapshots); err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}
	rows = [][]any{{"Date", "Category", "Amount", "Memo"}}
	for _, s := range doc.Snapshots {
		rows = append(rows, []any{s.Date.String(), s.CategoryID, s.Amount, core.Deref(s.Memo)})
	}
	if err := writeRows(f, SheetSnapshots, rows); err != nil {
		return err
	}

	if mt != nil {
		if _, err := f.NewSheet(SheetMonthly); err != nil {
			return fmt.Errorf("create sheet: %w", err)
		}
		table, err := mt.MonthlyTable(ctx, doc.CategoryList(), today, series.DefaultMonths)
		if err != nil {
			return err
		}
		if err := writeRows(f, SheetMonthly, table.Rows()); err != nil {
			return err
		}
	}

	_ = f.SetColWidth(SheetCategories, "B", "B", 20)
	_ = f.SetColWidth(SheetSnapshots, "D", "D", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

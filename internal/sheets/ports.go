// Package sheets mirrors the month-end report to a spreadsheet.
package sheets

import (
	"context"

	"assetinsight/internal/series"
)

// Ports for outbound adapters.
type (
	// ReportWriter replaces the mirrored report with table.
	ReportWriter interface {
		WriteReport(ctx context.Context, table series.Table) error
	}

	// ReportReader returns the report as last written.
	ReportReader interface {
		ReadReport(ctx context.Context) (series.Table, error)
	}
)

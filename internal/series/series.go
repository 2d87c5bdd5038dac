// Package series turns a list of dates into chart points.
package series

import (
	"context"
	"fmt"

	"assetinsight/internal/core"
)

// DefaultMonths is the length of the dashboard chart.
const DefaultMonths = 12

// Valuer is the part of valuation.Engine the builder needs.
type Valuer interface {
	ValuationsAt(ctx context.Context, categoryID string, dates []core.Date) ([]int64, error)
	TotalsAt(ctx context.Context, dates []core.Date) ([]int64, error)
}

// Point is the value on Date; Index is Date's position in the requested list.
type Point struct {
	Index  int       `json:"index"`
	Date   core.Date `json:"date"`
	Amount int64     `json:"amount"`
}

type Builder struct {
	valuer Valuer
}

func NewBuilder(v Valuer) *Builder {
	return &Builder{valuer: v}
}

// Build evaluates categoryID, or the total when it is empty, at every date. The result has
// one point per date in the same order; dates without data yield zero points. Consecutive
// equal amounts are expected when nothing was recorded in between.
func (b *Builder) Build(ctx context.Context, categoryID string, dates []core.Date) ([]Point, error) {
	var (
		amounts []int64
		err     error
	)
	if categoryID == "" {
		amounts, err = b.valuer.TotalsAt(ctx, dates)
	} else {
		amounts, err = b.valuer.ValuationsAt(ctx, categoryID, dates)
	}
	if err != nil {
		return nil, fmt.Errorf("build series: %w", err)
	}

	points := make([]Point, len(dates))
	for i, d := range dates {
		points[i] = Point{Index: i, Date: d, Amount: amounts[i]}
	}
	return points, nil
}

// Monthly builds the series over the month ends of the trailing months up to today's month.
func (b *Builder) Monthly(ctx context.Context, categoryID string, today core.Date, months int) ([]Point, error) {
	if months <= 0 {
		months = DefaultMonths
	}
	return b.Build(ctx, categoryID, core.TrailingMonthEnds(today, months))
}

// Package valuation answers "what was it worth on this day" by forward-carry: a category is
// worth the amount recorded on the latest day at or before the asked date, or zero when
// nothing was recorded yet.
//
// Totals only sum categories that have at least one snapshot. A category that exists in the
// registry but has never been recorded contributes nothing and is never reported as a zero
// row; removing the last snapshot of a category drops it from every later total.
package valuation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"assetinsight/internal/core"
	"assetinsight/internal/storage"
)

// DefaultFanout bounds the number of concurrent store lookups per batched call.
const DefaultFanout = 8

// Engine evaluates valuations against a store. It holds no state between calls.
type Engine struct {
	store  storage.Reader
	fanout int
}

// CategoryValue is one category's forward-carried amount on a date. RecordedOn is the day
// the carried amount was recorded; it is the zero Date when the category's first snapshot
// lies after the asked date.
type CategoryValue struct {
	CategoryID string
	Amount     int64
	RecordedOn core.Date
}

func NewEngine(store storage.Reader, fanout int) *Engine {
	if fanout <= 0 {
		fanout = DefaultFanout
	}
	return &Engine{store: store, fanout: fanout}
}

// ValuationAt returns the category's amount on date, 0 when nothing was recorded at or before it.
func (e *Engine) ValuationAt(ctx context.Context, categoryID string, date core.Date) (int64, error) {
	snap, found, err := e.store.FindClosestAtOrBefore(ctx, categoryID, date)
	if err != nil {
		return 0, fmt.Errorf("valuation of %s at %s: %w", categoryID, date, err)
	}
	if !found {
		return 0, nil
	}
	return snap.Amount, nil
}

// TotalAt sums ValuationAt over the categories that have data at call time.
func (e *Engine) TotalAt(ctx context.Context, date core.Date) (int64, error) {
	ids, err := e.store.DistinctCategoryIDsWithData(ctx)
	if err != nil {
		return 0, fmt.Errorf("total at %s: %w", date, err)
	}
	return e.totalOver(ctx, ids, date)
}

// ValuationsAt evaluates one category at every date. out[i] belongs to dates[i].
func (e *Engine) ValuationsAt(ctx context.Context, categoryID string, dates []core.Date) ([]int64, error) {
	return each(ctx, e.fanout, len(dates), func(ctx context.Context, i int) (int64, error) {
		return e.ValuationAt(ctx, categoryID, dates[i])
	})
}

// TotalsAt evaluates the total at every date. The set of categories with data is read once
// for the whole batch. out[i] belongs to dates[i].
func (e *Engine) TotalsAt(ctx context.Context, dates []core.Date) ([]int64, error) {
	if len(dates) == 0 {
		return []int64{}, nil
	}
	ids, err := e.store.DistinctCategoryIDsWithData(ctx)
	if err != nil {
		return nil, fmt.Errorf("totals: %w", err)
	}
	return each(ctx, e.fanout, len(dates), func(ctx context.Context, i int) (int64, error) {
		return e.totalOver(ctx, ids, dates[i])
	})
}

// CategoryValuations breaks the total on date down per category, ordered by category id.
func (e *Engine) CategoryValuations(ctx context.Context, date core.Date) ([]CategoryValue, error) {
	ids, err := e.store.DistinctCategoryIDsWithData(ctx)
	if err != nil {
		return nil, fmt.Errorf("category valuations at %s: %w", date, err)
	}
	return each(ctx, e.fanout, len(ids), func(ctx context.Context, i int) (CategoryValue, error) {
		snap, found, err := e.store.FindClosestAtOrBefore(ctx, ids[i], date)
		if err != nil {
			return CategoryValue{}, fmt.Errorf("valuation of %s at %s: %w", ids[i], date, err)
		}
		v := CategoryValue{CategoryID: ids[i]}
		if found {
			v.Amount, v.RecordedOn = snap.Amount, snap.Date
		}
		return v, nil
	})
}

func (e *Engine) totalOver(ctx context.Context, ids []string, date core.Date) (int64, error) {
	var total int64
	for _, id := range ids {
		v, err := e.ValuationAt(ctx, id, date)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// each runs fn for 0..n-1 with bounded concurrency; every goroutine writes only its own slot,
// so the result order matches the index order regardless of completion order.
func each[T any](ctx context.Context, limit, n int, fn func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			v, err := fn(gctx, i)
			if err != nil {
				return err
			}
			out[i] = v
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

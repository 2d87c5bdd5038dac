package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"golang.org/x/sync/errgroup"

	"assetinsight/internal/core"
	"assetinsight/internal/insight"
	"assetinsight/internal/series"
	"assetinsight/internal/storage"
	"assetinsight/internal/valuation"
)

// CategoryItem is one category's share of the dashboard total.
type CategoryItem struct {
	CategoryID     string    `json:"categoryId"`
	Name           string    `json:"name"`
	Icon           string    `json:"icon"`
	Amount         int64     `json:"amount"`
	RecordedOn     core.Date `json:"recordedOn"`
	PercentOfTotal float64   `json:"percentOfTotal"`
}

// Dashboard is the overview as of one date.
type Dashboard struct {
	Date       core.Date               `json:"date"`
	Total      int64                   `json:"total"`
	Categories []CategoryItem          `json:"categories"`
	Insights   []insight.PeriodInsight `json:"insights"`
	Trend      []series.Point          `json:"trend"`
}

// CategoryDetail is one category's history, current value and trend.
type CategoryDetail struct {
	Category  core.Category           `json:"category"`
	Current   int64                   `json:"current"`
	Snapshots []core.Snapshot         `json:"snapshots"`
	Insights  []insight.PeriodInsight `json:"insights"`
	Trend     []series.Point          `json:"trend"`
}

// DashboardService composes the read-only reports. Every part is computed concurrently.
type DashboardService struct {
	store      storage.Reader
	engine     *valuation.Engine
	calculator *insight.Calculator
	builder    *series.Builder
}

func NewDashboardService(store storage.Reader, fanout int) *DashboardService {
	engine := valuation.NewEngine(store, fanout)
	return &DashboardService{
		store:      store,
		engine:     engine,
		calculator: insight.NewCalculator(engine),
		builder:    series.NewBuilder(engine),
	}
}

func (s *DashboardService) Engine() *valuation.Engine { return s.engine }

func (s *DashboardService) Builder() *series.Builder { return s.builder }

func (s *DashboardService) Insights() *insight.Calculator { return s.calculator }

// Dashboard reports the total on date, the categories that have a recorded value by then
// (largest first), the four period insights of the total and the trailing 12 month-end totals.
func (s *DashboardService) Dashboard(ctx context.Context, date core.Date) (Dashboard, error) {
	if err := date.Validate(); err != nil {
		return Dashboard{}, err
	}

	var (
		values     []valuation.CategoryValue
		categories []core.Category
		insights   []insight.PeriodInsight
		trend      []series.Point
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		values, err = s.engine.CategoryValuations(gctx, date)
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.store.ListCategories(gctx)
		return err
	})
	g.Go(func() (err error) {
		insights, err = s.calculator.Periods(gctx, "", date)
		return err
	})
	g.Go(func() (err error) {
		trend, err = s.builder.Monthly(gctx, "", date, series.DefaultMonths)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, fmt.Errorf("dashboard at %s: %w", date, err)
	}

	var total int64
	for _, v := range values {
		total += v.Amount
	}

	return Dashboard{
		Date:       date,
		Total:      total,
		Categories: categoryItems(values, categories, total),
		Insights:   insights,
		Trend:      trend,
	}, nil
}

// CategoryDetail reports one category as of date. Unknown categories are core.ErrNotFound.
func (s *DashboardService) CategoryDetail(ctx context.Context, categoryID string, date core.Date) (CategoryDetail, error) {
	if err := date.Validate(); err != nil {
		return CategoryDetail{}, err
	}
	c, ok, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return CategoryDetail{}, err
	}
	if !ok {
		return CategoryDetail{}, fmt.Errorf("category %s: %w", categoryID, core.ErrNotFound)
	}

	d := CategoryDetail{Category: c}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Current, err = s.engine.ValuationAt(gctx, categoryID, date)
		return err
	})
	g.Go(func() (err error) {
		d.Snapshots, err = s.store.FindByCategory(gctx, categoryID)
		return err
	})
	g.Go(func() (err error) {
		d.Insights, err = s.calculator.Periods(gctx, categoryID, date)
		return err
	})
	g.Go(func() (err error) {
		d.Trend, err = s.builder.Monthly(gctx, categoryID, date, series.DefaultMonths)
		return err
	})
	if err := g.Wait(); err != nil {
		return CategoryDetail{}, fmt.Errorf("category %s at %s: %w", categoryID, date, err)
	}

	// newest record first, like the history list of the detail screen
	slices.Reverse(d.Snapshots)
	return d, nil
}

func categoryItems(values []valuation.CategoryValue, categories []core.Category, total int64) []CategoryItem {
	byID := make(map[string]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	items := make([]CategoryItem, 0, len(values))
	for _, v := range values {
		if v.RecordedOn.IsZero() {
			continue
		}
		item := CategoryItem{
			CategoryID: v.CategoryID,
			Name:       v.CategoryID,
			Icon:       core.DefaultIcon,
			Amount:     v.Amount,
			RecordedOn: v.RecordedOn,
		}
		if c, ok := byID[v.CategoryID]; ok {
			item.Name = c.Name
			item.Icon = c.IconOrDefault()
		}
		if total > 0 {
			item.PercentOfTotal = insight.Share(v.Amount, total)
		}
		items = append(items, item)
	}

	slices.SortStableFunc(items, func(a, b CategoryItem) int {
		return cmp.Compare(b.Amount, a.Amount)
	})
	return items
}

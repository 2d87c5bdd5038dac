package insight

import (
	"context"
	"fmt"

	"assetinsight/internal/core"
)

// Valuer is the part of valuation.Engine the calculator needs.
type Valuer interface {
	ValuationsAt(ctx context.Context, categoryID string, dates []core.Date) ([]int64, error)
	TotalsAt(ctx context.Context, dates []core.Date) ([]int64, error)
}

// Period is a look-back window of the dashboard.
type Period string

const (
	PeriodDay      Period = "1d"
	PeriodMonth    Period = "1m"
	PeriodSixMonth Period = "6m"
	PeriodYear     Period = "1y"
)

// AllPeriods lists the dashboard windows in display order.
var AllPeriods = []Period{PeriodDay, PeriodMonth, PeriodSixMonth, PeriodYear}

// ParsePeriod accepts the short names used on the wire.
func ParsePeriod(s string) (Period, error) {
	for _, p := range AllPeriods {
		if string(p) == s {
			return p, nil
		}
	}
	return "", &core.ValidationError{Field: "period", Reason: fmt.Sprintf("unknown period %q", s)}
}

// Since returns the past date the period compares today against. Months and years are
// calendar steps clamped to the end of shorter months.
func (p Period) Since(today core.Date) core.Date {
	switch p {
	case PeriodDay:
		return today.AddDays(-1)
	case PeriodMonth:
		return today.AddMonths(-1)
	case PeriodSixMonth:
		return today.AddMonths(-6)
	case PeriodYear:
		return today.AddYears(-1)
	}
	return today
}

// PeriodInsight is an insight together with the dates it compares.
type PeriodInsight struct {
	Period  Period    `json:"period"`
	Current core.Date `json:"currentDate"`
	Past    core.Date `json:"pastDate"`
	Insight
}

// Calculator pulls both sides of an insight from the valuation engine. An empty category id
// means the total.
type Calculator struct {
	valuer Valuer
}

func NewCalculator(v Valuer) *Calculator {
	return &Calculator{valuer: v}
}

// Compare returns the insight of the value on current against the value on past.
func (c *Calculator) Compare(ctx context.Context, categoryID string, current, past core.Date) (Insight, error) {
	amounts, err := c.amounts(ctx, categoryID, []core.Date{current, past})
	if err != nil {
		return Insight{}, err
	}
	return New(amounts[0], amounts[1]), nil
}

// Periods evaluates every dashboard window against today in one batch.
func (c *Calculator) Periods(ctx context.Context, categoryID string, today core.Date) ([]PeriodInsight, error) {
	dates := make([]core.Date, 0, len(AllPeriods)+1)
	dates = append(dates, today)
	for _, p := range AllPeriods {
		dates = append(dates, p.Since(today))
	}

	amounts, err := c.amounts(ctx, categoryID, dates)
	if err != nil {
		return nil, err
	}

	out := make([]PeriodInsight, len(AllPeriods))
	for i, p := range AllPeriods {
		out[i] = PeriodInsight{
			Period:  p,
			Current: today,
			Past:    dates[i+1],
			Insight: New(amounts[0], amounts[i+1]),
		}
	}
	return out, nil
}

func (c *Calculator) amounts(ctx context.Context, categoryID string, dates []core.Date) ([]int64, error) {
	var (
		amounts []int64
		err     error
	)
	if categoryID == "" {
		amounts, err = c.valuer.TotalsAt(ctx, dates)
	} else {
		amounts, err = c.valuer.ValuationsAt(ctx, categoryID, dates)
	}
	if err != nil {
		return nil, fmt.Errorf("insight amounts: %w", err)
	}
	return amounts, nil
}

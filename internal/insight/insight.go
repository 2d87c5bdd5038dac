// Package insight compares a current valuation with a past one.
package insight

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Insight is the signed change between two amounts.
type Insight struct {
	Current       int64   `json:"current"`
	Past          int64   `json:"past"`
	Change        int64   `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	// HasData is false when both amounts are zero; callers show a neutral state, not 0%.
	HasData bool `json:"hasData"`
}

// New computes the insight for current against past. A past of zero with a non-zero current
// counts as +100%.
func New(current, past int64) Insight {
	in := Insight{Current: current, Past: past, Change: current - past}
	switch {
	case past != 0:
		in.ChangePercent = percent(in.Change, past).InexactFloat64()
		in.HasData = true
	case current != 0:
		in.ChangePercent = 100.0
		in.HasData = true
	}
	return in
}

// NoData is the insight of two zero amounts.
func NoData() Insight {
	return New(0, 0)
}

// IsPositive reports whether the change is non-negative, zero included.
func (in Insight) IsPositive() bool {
	return in.Change >= 0
}

// PercentString renders the change percent with one decimal and an explicit sign for
// non-negative changes, "-" without data.
func (in Insight) PercentString() string {
	if !in.HasData {
		return "-"
	}
	s := decimal.NewFromFloat(in.ChangePercent).StringFixed(1) + "%"
	if in.IsPositive() && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

func percent(change, past int64) decimal.Decimal {
	return decimal.NewFromInt(change).Div(decimal.NewFromInt(past)).Mul(hundred)
}

// Share returns part as a percentage of whole rounded to one decimal, 0 for a non-positive whole.
func Share(part, whole int64) float64 {
	if whole <= 0 {
		return 0
	}
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(whole)).Mul(hundred).Round(1).InexactFloat64()
}

package insight

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"assetinsight/internal/core"
	"assetinsight/internal/storage/memory"
	"assetinsight/internal/valuation"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name     string
		current  int64
		past     int64
		change   int64
		percent  float64
		hasData  bool
		positive bool
	}{
		{"both zero", 0, 0, 0, 0, false, true},
		{"twenty percent up", 1200, 1000, 200, 20.0, true, true},
		{"appeared from nothing", 500, 0, 500, 100.0, true, true},
		{"dropped to zero", 0, 800, -800, -100.0, true, false},
		{"down a quarter", 750, 1000, -250, -25.0, true, false},
		{"unchanged", 1000, 1000, 0, 0, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := New(tt.current, tt.past)
			assert.Equal(t, tt.change, in.Change)
			assert.InDelta(t, tt.percent, in.ChangePercent, 1e-9)
			assert.Equal(t, tt.hasData, in.HasData)
			assert.Equal(t, tt.positive, in.IsPositive())
		})
	}
}

func TestNoData(t *testing.T) {
	in := NoData()
	assert.False(t, in.HasData)
	assert.Equal(t, "-", in.PercentString())
}

func TestPercentString(t *testing.T) {
	assert.Equal(t, "+20.0%", New(1200, 1000).PercentString())
	assert.Equal(t, "-25.0%", New(750, 1000).PercentString())
	assert.Equal(t, "+0.0%", New(1000, 1000).PercentString())
	assert.Equal(t, "+33.3%", New(4, 3).PercentString())
}

func TestShare(t *testing.T) {
	assert.Equal(t, 25.0, Share(250, 1000))
	assert.Equal(t, 33.3, Share(1, 3))
	assert.Equal(t, 66.7, Share(2, 3))
	assert.Equal(t, 0.0, Share(5, 0))
}

func TestPeriodSince(t *testing.T) {
	today := core.MustParseDate("2024-03-31")
	assert.Equal(t, "2024-03-30", PeriodDay.Since(today).String())
	assert.Equal(t, "2024-02-29", PeriodMonth.Since(today).String())
	assert.Equal(t, "2023-09-30", PeriodSixMonth.Since(today).String())
	assert.Equal(t, "2023-03-31", PeriodYear.Since(today).String())
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("6m")
	require.NoError(t, err)
	assert.Equal(t, PeriodSixMonth, p)

	_, err = ParsePeriod("2w")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestCalculator(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.UpsertBatch(ctx, []core.Snapshot{
		{Date: core.MustParseDate("2023-03-01"), CategoryID: "bank", Amount: 1000},
		{Date: core.MustParseDate("2024-03-01"), CategoryID: "bank", Amount: 1200},
		{Date: core.MustParseDate("2024-03-14"), CategoryID: "stock", Amount: 300},
	}))
	calc := NewCalculator(valuation.NewEngine(store, 0))
	today := core.MustParseDate("2024-03-15")

	in, err := calc.Compare(ctx, "bank", today, core.MustParseDate("2023-06-01"))
	require.NoError(t, err)
	assert.Equal(t, int64(200), in.Change)
	assert.InDelta(t, 20.0, in.ChangePercent, 1e-9)

	periods, err := calc.Periods(ctx, "", today)
	require.NoError(t, err)
	require.Len(t, periods, 4)

	// total today is 1500; one day ago stock existed already, a month ago only bank did.
	assert.Equal(t, PeriodDay, periods[0].Period)
	assert.Equal(t, int64(0), periods[0].Change)
	assert.Equal(t, int64(500), periods[1].Change)
	assert.Equal(t, "2024-02-15", periods[1].Past.String())
	assert.Equal(t, "2023-03-15", periods[3].Past.String())
	assert.Equal(t, int64(500), periods[3].Change)
	assert.InDelta(t, 50.0, periods[3].ChangePercent, 1e-9)

	none, err := calc.Periods(ctx, "crypto", today)
	require.NoError(t, err)
	for _, p := range none {
		assert.False(t, p.HasData, "period %s", p.Period)
	}
}

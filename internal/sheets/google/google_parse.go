package google

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"assetinsight/internal/core"
	"assetinsight/internal/series"
)

// parseReport converts a values matrix (as returned by Sheets API) back into a table. It
// expects the header written by WriteReport; blank rows are skipped.
func parseReport(values [][]interface{}) (series.Table, error) {
	if len(values) == 0 {
		return series.Table{}, nil
	}
	headers := toStrings(values[0])
	if len(headers) < 2 || headers[0] != series.HeaderMonthEnd || headers[1] != series.HeaderTotal {
		return series.Table{}, fmt.Errorf("unexpected report header: got headers=%v", headers)
	}

	var t series.Table
	for _, name := range headers[2:] {
		t.Columns = append(t.Columns, series.Column{Name: name})
	}
	for i := 1; i < len(values); i++ {
		row := toStrings(values[i])
		if strings.TrimSpace(safeGet(row, 0)) == "" {
			continue
		}
		date, err := core.ParseDate(strings.TrimSpace(row[0]))
		if err != nil {
			return series.Table{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		t.Dates = append(t.Dates, date)
		t.Total = append(t.Total, parseAmount(values[i], 1))
		for c := range t.Columns {
			t.Columns[c].Amounts = append(t.Columns[c].Amounts, parseAmount(values[i], c+2))
		}
	}
	return t, nil
}

// parseAmount reads a whole amount from a cell; numbers arrive as float64 with
// UNFORMATTED_VALUE, strings when a user typed into the sheet. Anything else is 0.
func parseAmount(row []interface{}, idx int) int64 {
	if idx >= len(row) {
		return 0
	}
	switch v := row[idx].(type) {
	case float64:
		return int64(math.Round(v))
	case int64:
		return v
	case int:
		return int64(v)
	case string:
		s := strings.NewReplacer(",", "", " ", "").Replace(v)
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return int64(math.Round(f))
		}
	}
	return 0
}

func toStrings(in []interface{}) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

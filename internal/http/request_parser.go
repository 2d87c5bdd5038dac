package http

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"assetinsight/internal/core"
	"assetinsight/internal/series"
)

// maxSeriesMonths bounds the months query parameter.
const maxSeriesMonths = 120

// SnapshotRequest is the body of POST /snapshots. Amount is a pointer so a missing amount
// is told apart from zero.
type SnapshotRequest struct {
	Date       string  `json:"date"`
	CategoryID string  `json:"categoryId"`
	Amount     *int64  `json:"amount"`
	Memo       *string `json:"memo"`
}

// CategoryRequest is the body of POST /categories and PUT /categories/:id.
type CategoryRequest struct {
	Name string  `json:"name"`
	Icon *string `json:"icon"`
}

// ReorderRequest is the body of PUT /categories/order.
type ReorderRequest struct {
	IDs []string `json:"ids"`
}

// toSnapshot checks the request shape; domain rules are left to the service.
func (r SnapshotRequest) toSnapshot() (core.Snapshot, error) {
	date, err := parseDate("date", r.Date)
	if err != nil {
		return core.Snapshot{}, err
	}
	if r.Amount == nil {
		return core.Snapshot{}, &core.ValidationError{Field: "amount", Reason: "amount is required"}
	}
	snap := core.Snapshot{
		Date:       date,
		CategoryID: sanitizeInput(r.CategoryID),
		Amount:     *r.Amount,
	}
	if r.Memo != nil {
		memo := sanitizeInput(*r.Memo)
		snap.Memo = &memo
	}
	return snap, nil
}

// bindBody decodes the JSON body into v, reporting malformed input as a validation error.
func bindBody(c echo.Context, v any) error {
	if err := (&echo.DefaultBinder{}).BindBody(c, v); err != nil {
		return &core.ValidationError{Field: "body", Reason: "malformed JSON body"}
	}
	return nil
}

// parseDate parses a yyyy-MM-dd value, naming field in the error.
func parseDate(field, s string) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, &core.ValidationError{Field: field, Reason: "date is required"}
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return core.Date{}, &core.ValidationError{Field: field, Reason: fmt.Sprintf("%q is not a yyyy-MM-dd date", s)}
	}
	return d, nil
}

// queryDate reads the date query parameter, defaulting to today.
func queryDate(c echo.Context, today core.Date) (core.Date, error) {
	v := strings.TrimSpace(c.QueryParam("date"))
	if v == "" {
		return today, nil
	}
	return parseDate("date", v)
}

// queryOptionalDate reads the date query parameter; nil when absent.
func queryOptionalDate(c echo.Context) (*core.Date, error) {
	v := strings.TrimSpace(c.QueryParam("date"))
	if v == "" {
		return nil, nil
	}
	d, err := parseDate("date", v)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// queryMonths reads the months query parameter, defaulting to series.DefaultMonths.
func queryMonths(c echo.Context) (int, error) {
	v := strings.TrimSpace(c.QueryParam("months"))
	if v == "" {
		return series.DefaultMonths, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxSeriesMonths {
		return 0, &core.ValidationError{Field: "months", Reason: fmt.Sprintf("months must be between 1 and %d", maxSeriesMonths)}
	}
	return n, nil
}

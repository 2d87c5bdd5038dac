package http

import (
	"assetinsight/internal/core"
	"assetinsight/internal/insight"
	"assetinsight/internal/series"
	"assetinsight/internal/services"
	"assetinsight/internal/valuation"
)

// SnapshotResponse represents a snapshot in API responses
type SnapshotResponse struct {
	Date       core.Date `json:"date"`
	CategoryID string    `json:"categoryId"`
	Amount     int64     `json:"amount"`
	Memo       *string   `json:"memo"`
}

// CategoryResponse represents a category in API responses
type CategoryResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Icon      string `json:"icon"`
	SortOrder int    `json:"sortOrder"`
	IsDefault bool   `json:"isDefault"`
}

// ValuationResponse is one category's carried amount on a date
type ValuationResponse struct {
	CategoryID string     `json:"categoryId"`
	Date       core.Date  `json:"date"`
	Amount     int64      `json:"amount"`
	RecordedOn *core.Date `json:"recordedOn,omitempty"`
}

// TotalsResponse is the total on a date with its per-category parts
type TotalsResponse struct {
	Date       core.Date           `json:"date"`
	Total      int64               `json:"total"`
	Categories []ValuationResponse `json:"categories"`
}

// CategoryDetailResponse represents services.CategoryDetail
type CategoryDetailResponse struct {
	Category  CategoryResponse        `json:"category"`
	Current   int64                   `json:"current"`
	Snapshots []SnapshotResponse      `json:"snapshots"`
	Insights  []insight.PeriodInsight `json:"insights"`
	Trend     []series.Point          `json:"trend"`
}

// RestoreResponse summarizes a restored backup
type RestoreResponse struct {
	BackupDate string `json:"backupDate"`
	Categories int    `json:"categories"`
	Snapshots  int    `json:"snapshots"`
}

func toSnapshotResponse(s core.Snapshot) SnapshotResponse {
	return SnapshotResponse{
		Date:       s.Date,
		CategoryID: s.CategoryID,
		Amount:     s.Amount,
		Memo:       s.Memo,
	}
}

func toSnapshotResponses(snaps []core.Snapshot) []SnapshotResponse {
	out := make([]SnapshotResponse, len(snaps))
	for i, s := range snaps {
		out[i] = toSnapshotResponse(s)
	}
	return out
}

func toCategoryResponse(c core.Category) CategoryResponse {
	return CategoryResponse{
		ID:        c.ID,
		Name:      c.Name,
		Icon:      c.IconOrDefault(),
		SortOrder: c.SortOrder,
		IsDefault: c.IsDefault,
	}
}

func toCategoryResponses(cats []core.Category) []CategoryResponse {
	out := make([]CategoryResponse, len(cats))
	for i, c := range cats {
		out[i] = toCategoryResponse(c)
	}
	return out
}

func toTotalsResponse(date core.Date, values []valuation.CategoryValue) TotalsResponse {
	resp := TotalsResponse{Date: date, Categories: make([]ValuationResponse, len(values))}
	for i, v := range values {
		resp.Total += v.Amount
		resp.Categories[i] = ValuationResponse{CategoryID: v.CategoryID, Date: date, Amount: v.Amount}
		if !v.RecordedOn.IsZero() {
			recorded := v.RecordedOn
			resp.Categories[i].RecordedOn = &recorded
		}
	}
	return resp
}

func toCategoryDetailResponse(d services.CategoryDetail) CategoryDetailResponse {
	return CategoryDetailResponse{
		Category:  toCategoryResponse(d.Category),
		Current:   d.Current,
		Snapshots: toSnapshotResponses(d.Snapshots),
		Insights:  d.Insights,
		Trend:     d.Trend,
	}
}

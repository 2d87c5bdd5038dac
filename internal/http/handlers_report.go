package http

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"assetinsight/internal/insight"
)

// handleValuation handles GET /api/v1/valuations/:categoryId?date=. Categories without data
// are worth zero.
func (s *Server) handleValuation(c echo.Context) error {
	date, err := queryDate(c, s.today())
	if err != nil {
		return err
	}
	categoryID := c.Param("categoryId")
	amount, err := s.dashboard.Engine().ValuationAt(c.Request().Context(), categoryID, date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, ValuationResponse{CategoryID: categoryID, Date: date, Amount: amount})
}

// handleTotals handles GET /api/v1/totals?date=
func (s *Server) handleTotals(c echo.Context) error {
	date, err := queryDate(c, s.today())
	if err != nil {
		return err
	}
	values, err := s.dashboard.Engine().CategoryValuations(c.Request().Context(), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toTotalsResponse(date, values))
}

// handleInsights handles GET /api/v1/insights?date=&categoryId=&period=. Without a period
// all four windows are returned.
func (s *Server) handleInsights(c echo.Context) error {
	date, err := queryDate(c, s.today())
	if err != nil {
		return err
	}

	var only insight.Period
	if p := strings.TrimSpace(c.QueryParam("period")); p != "" {
		if only, err = insight.ParsePeriod(p); err != nil {
			return err
		}
	}

	all, err := s.dashboard.Insights().Periods(c.Request().Context(), sanitizeInput(c.QueryParam("categoryId")), date)
	if err != nil {
		return err
	}
	if only == "" {
		return c.JSON(http.StatusOK, all)
	}
	for _, in := range all {
		if in.Period == only {
			return c.JSON(http.StatusOK, []insight.PeriodInsight{in})
		}
	}
	return c.JSON(http.StatusOK, []insight.PeriodInsight{})
}

// handleSeries handles GET /api/v1/series?date=&categoryId=&months=
func (s *Server) handleSeries(c echo.Context) error {
	date, err := queryDate(c, s.today())
	if err != nil {
		return err
	}
	months, err := queryMonths(c)
	if err != nil {
		return err
	}
	points, err := s.dashboard.Builder().Monthly(c.Request().Context(), sanitizeInput(c.QueryParam("categoryId")), date, months)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, points)
}

// handleDashboard handles GET /api/v1/dashboard?date=
func (s *Server) handleDashboard(c echo.Context) error {
	date, err := queryDate(c, s.today())
	if err != nil {
		return err
	}
	d, err := s.dashboard.Dashboard(c.Request().Context(), date)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, d)
}

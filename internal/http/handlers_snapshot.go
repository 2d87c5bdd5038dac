package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"assetinsight/internal/core"
	applog "assetinsight/internal/log"
	"assetinsight/internal/services"
)

// handleListSnapshots handles GET /api/v1/snapshots?date=&categoryId=
func (s *Server) handleListSnapshots(c echo.Context) error {
	date, err := queryOptionalDate(c)
	if err != nil {
		return err
	}
	snaps, err := s.assets.Snapshots(c.Request().Context(), services.SnapshotFilter{
		Date:       date,
		CategoryID: sanitizeInput(c.QueryParam("categoryId")),
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toSnapshotResponses(snaps))
}

// handleCreateSnapshot handles POST /api/v1/snapshots. An existing snapshot for the same
// date and category is replaced.
func (s *Server) handleCreateSnapshot(c echo.Context) error {
	var req SnapshotRequest
	if err := bindBody(c, &req); err != nil {
		return err
	}
	snap, err := req.toSnapshot()
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	if err := s.assets.SaveSnapshot(ctx, snap); err != nil {
		return err
	}
	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogSnapshotSaved(ctx, snap.Date.String(), snap.CategoryID, snap.Amount)

	return c.JSON(http.StatusCreated, toSnapshotResponse(snap))
}

// handleCreateSnapshots handles POST /api/v1/snapshots/batch. The batch is all or nothing.
func (s *Server) handleCreateSnapshots(c echo.Context) error {
	var reqs []SnapshotRequest
	if err := bindBody(c, &reqs); err != nil {
		return err
	}
	if len(reqs) == 0 {
		return &core.ValidationError{Field: "body", Reason: "at least one snapshot is required"}
	}

	snaps := make([]core.Snapshot, len(reqs))
	for i, req := range reqs {
		snap, err := req.toSnapshot()
		if err != nil {
			return err
		}
		snaps[i] = snap
	}
	if err := s.assets.SaveSnapshots(c.Request().Context(), snaps); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toSnapshotResponses(snaps))
}

// handleDeleteSnapshot handles DELETE /api/v1/snapshots/:date/:categoryId
func (s *Server) handleDeleteSnapshot(c echo.Context) error {
	date, err := parseDate("date", c.Param("date"))
	if err != nil {
		return err
	}
	if err := s.assets.DeleteSnapshot(c.Request().Context(), date, c.Param("categoryId")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

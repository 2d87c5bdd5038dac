package http

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"assetinsight/internal/backup"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// handleExportBackup handles GET /api/v1/backup and downloads the whole dataset.
func (s *Server) handleExportBackup(c echo.Context) error {
	doc, err := s.assets.ExportBackup(c.Request().Context())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := backup.Encode(&buf, doc); err != nil {
		return err
	}
	setAttachment(c, backup.FileName(time.Now()))
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, buf.Bytes())
}

// handleRestoreBackup handles POST /api/v1/backup. The body replaces the dataset atomically.
func (s *Server) handleRestoreBackup(c echo.Context) error {
	doc, err := backup.Decode(c.Request().Body)
	if err != nil {
		return err
	}
	if err := s.assets.RestoreBackup(c.Request().Context(), doc); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, RestoreResponse{
		BackupDate: doc.BackupDate,
		Categories: len(doc.Categories),
		Snapshots:  len(doc.Snapshots),
	})
}

// handleExportWorkbook handles GET /api/v1/backup/xlsx?date=
func (s *Server) handleExportWorkbook(c echo.Context) error {
	today, err := queryDate(c, s.today())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := s.assets.Exchange().WriteWorkbook(c.Request().Context(), &buf, s.dashboard.Builder(), today); err != nil {
		return err
	}
	setAttachment(c, strings.TrimSuffix(backup.FileName(time.Now()), ".json")+".xlsx")
	return c.Blob(http.StatusOK, mimeXLSX, buf.Bytes())
}

func setAttachment(c echo.Context, name string) {
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
}

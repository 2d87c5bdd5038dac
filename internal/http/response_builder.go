// Package http serves the asset API as JSON over /api/v1.
//
// This file renders every failure as an RFC 7807 problem document.
package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"assetinsight/internal/core"
	applog "assetinsight/internal/log"
)

const mimeProblemJSON = "application/problem+json"

// ProblemDetails represents an RFC 7807 Problem Details response
type ProblemDetails struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError names one rejected input
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error types
const (
	ErrorTypeValidation = "https://assetinsight.app/errors/validation"
	ErrorTypeBackup     = "https://assetinsight.app/errors/invalid-backup"
	ErrorTypeNotFound   = "https://assetinsight.app/errors/not-found"
	ErrorTypeConflict   = "https://assetinsight.app/errors/conflict"
	ErrorTypeRateLimit  = "https://assetinsight.app/errors/rate-limit"
	ErrorTypeInternal   = "https://assetinsight.app/errors/internal"
	ErrorTypeHTTP       = "about:blank"
)

// problemFor maps an error returned by a handler to its problem document.
func problemFor(err error) ProblemDetails {
	var ve *core.ValidationError
	var he *echo.HTTPError

	switch {
	case errors.Is(err, core.ErrFormat):
		return ProblemDetails{
			Type:   ErrorTypeBackup,
			Title:  "Invalid Backup",
			Status: http.StatusBadRequest,
			Detail: err.Error(),
		}
	case errors.As(err, &ve):
		return ProblemDetails{
			Type:   ErrorTypeValidation,
			Title:  "Validation Error",
			Status: http.StatusBadRequest,
			Detail: ve.Error(),
			Errors: []FieldError{{Field: ve.Field, Message: ve.Reason}},
		}
	case errors.Is(err, core.ErrNotFound):
		return ProblemDetails{
			Type:   ErrorTypeNotFound,
			Title:  "Not Found",
			Status: http.StatusNotFound,
			Detail: err.Error(),
		}
	case errors.Is(err, core.ErrProtectedCategory):
		return ProblemDetails{
			Type:   ErrorTypeConflict,
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: err.Error(),
		}
	case errors.As(err, &he):
		p := ProblemDetails{
			Type:   ErrorTypeHTTP,
			Title:  http.StatusText(he.Code),
			Status: he.Code,
		}
		if msg, ok := he.Message.(string); ok && msg != p.Title {
			p.Detail = msg
		}
		return p
	default:
		return ProblemDetails{
			Type:   ErrorTypeInternal,
			Title:  "Internal Server Error",
			Status: http.StatusInternalServerError,
			Detail: "The request could not be completed",
		}
	}
}

// handleError is the echo error handler. Internal errors are logged, never echoed back.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	p := problemFor(err)
	p.Instance = c.Request().URL.Path
	if p.Status >= http.StatusInternalServerError {
		applog.FromContext(c.Request().Context()).ErrorContext(c.Request().Context(), "Request failed",
			applog.FieldError, err,
			applog.FieldPath, p.Instance)
	}
	if werr := writeProblem(c, p); werr != nil {
		applog.FromContext(c.Request().Context()).Warn("Failed to write problem response", applog.FieldError, werr)
	}
}

func writeProblem(c echo.Context, p ProblemDetails) error {
	c.Response().Header().Set(echo.HeaderContentType, mimeProblemJSON)
	if c.Request().Method == http.MethodHead {
		return c.NoContent(p.Status)
	}
	return c.JSON(p.Status, p)
}

package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"assetinsight/internal/backup"
	"assetinsight/internal/core"
)

func TestProblemFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		typ      string
		field    string
		detailed bool
	}{
		{"validation", &core.ValidationError{Field: "amount", Reason: "amount must not be negative"}, http.StatusBadRequest, ErrorTypeValidation, "amount", true},
		{"backup format", &backup.FormatError{Reason: "unsupported version 2"}, http.StatusBadRequest, ErrorTypeBackup, "", true},
		{"not found", fmt.Errorf("category x: %w", core.ErrNotFound), http.StatusNotFound, ErrorTypeNotFound, "", true},
		{"protected", fmt.Errorf("delete category cash: %w", core.ErrProtectedCategory), http.StatusConflict, ErrorTypeConflict, "", true},
		{"echo error", echo.NewHTTPError(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed, ErrorTypeHTTP, "", false},
		{"internal", errors.New("disk on fire"), http.StatusInternalServerError, ErrorTypeInternal, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := problemFor(tt.err)
			assert.Equal(t, tt.status, p.Status)
			assert.Equal(t, tt.typ, p.Type)
			assert.NotEmpty(t, p.Title)
			if tt.field != "" {
				assert.Equal(t, []FieldError{{Field: tt.field, Message: "amount must not be negative"}}, p.Errors)
			} else {
				assert.Empty(t, p.Errors)
			}
			if tt.detailed {
				assert.Equal(t, tt.err.Error(), p.Detail)
			}
		})
	}
}

func TestProblemForHidesInternalErrors(t *testing.T) {
	p := problemFor(errors.New("open /var/lib/assetinsight.db: permission denied"))
	assert.NotContains(t, p.Detail, "/var/lib")
}

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewValidation(t *testing.T) {
	err := apperr.NewValidation("reason is required")

	if err.Error() != "reason is required" {
		t.Errorf("expected 'reason is required', got %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Errorf("expected nil unwrap, got %v", err.Unwrap())
	}
}

func TestNewValidationWrap(t *testing.T) {
	inner := fmt.Errorf("score 11.00 outside [0, 10.00]")
	err := apperr.NewValidationWrap("override rejected", inner)

	if err.Error() != "override rejected: score 11.00 outside [0, 10.00]" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to return inner error")
	}
}

func TestValidationError_SurvivesFmtWrapping(t *testing.T) {
	original := apperr.NewValidation("duplicate rubric id")

	wrapped := fmt.Errorf("put question: %w", original)
	doubleWrapped := fmt.Errorf("storage error: %w", wrapped)

	var ve *apperr.ValidationError
	if !errors.As(doubleWrapped, &ve) {
		t.Fatal("errors.As should find ValidationError through double wrapping")
	}
	if ve.Message != "duplicate rubric id" {
		t.Errorf("expected 'duplicate rubric id', got %q", ve.Message)
	}
}

func TestGlobalErrorHandler_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"validation", apperr.NewValidation("bad"), http.StatusBadRequest},
		{"invalid override", fmt.Errorf("override: %w", apperr.ErrInvalidOverride), http.StatusBadRequest},
		{"finalized", fmt.Errorf("override: %w", apperr.ErrGradeFinalized), http.StatusConflict},
		{"transition", apperr.ErrInvalidTransition, http.StatusConflict},
		{"in progress", fmt.Errorf("submission: %w", apperr.ErrGradingInProgress), http.StatusConflict},
		{"not found", fmt.Errorf("grade: %w", apperr.ErrNotFound), http.StatusNotFound},
		{"echo error", echo.NewHTTPError(http.StatusTeapot, "tea"), http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	handler := apperr.GlobalErrorHandler()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

			handler(tt.err, c)

			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

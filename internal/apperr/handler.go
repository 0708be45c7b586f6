package apperr

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
)

func GlobalErrorHandler() echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var ve *ValidationError
		if errors.As(err, &ve) {
			_ = c.JSON(http.StatusBadRequest, map[string]string{"error": ve.Error(), "title": "validation error"})
			return
		}

		switch {
		case errors.Is(err, ErrInvalidOverride):
			_ = c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error(), "title": "invalid override"})
			return
		case errors.Is(err, ErrNotFound):
			_ = c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
			return
		case errors.Is(err, ErrGradeFinalized):
			_ = c.JSON(http.StatusConflict, map[string]string{"error": err.Error(), "title": "grade finalized"})
			return
		case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrVersionConflict), errors.Is(err, ErrGradingInProgress):
			_ = c.JSON(http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}

		var he *echo.HTTPError
		if errors.As(err, &he) {
			msg := fmt.Sprintf("%v", he.Message)
			_ = c.JSON(he.Code, map[string]string{"error": msg})
			return
		}

		slog.Error("Unhandled error", "error", err)
		_ = c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

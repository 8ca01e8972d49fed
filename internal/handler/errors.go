package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-registration/internal/sentinel"
)

// respondError maps the error taxonomy onto HTTP responses. Anything
// outside the taxonomy is a 500 with a generic message; the detail goes
// to the log, not the client.
func respondError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrApplicantNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "applicant not found"})
	case errors.Is(err, sentinel.ErrDateNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "date not found in event"})
	case errors.Is(err, sentinel.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, sentinel.ErrMissingField):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrMalformedBatch):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrPolicyViolation):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrNotASelectedDate):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrCrossEventEdit):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, sentinel.ErrCapacityExceeded):
		return c.JSON(http.StatusConflict, echo.Map{"error": "capacity exceeded"})
	case errors.Is(err, sentinel.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	default:
		c.Logger().Errorf("internal error: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}

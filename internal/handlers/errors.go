package handlers

import (
	"errors"
	"log"
	"net/http"

	"billhive/internal/billing"

	"github.com/labstack/echo/v4"
)

// httpError maps the billing error taxonomy onto HTTP status codes. Unknown
// errors are logged and surfaced as a generic 500 so store internals never
// leak to callers.
func httpError(operation string, err error) error {
	switch {
	case errors.Is(err, billing.ErrInvalidLineItem),
		errors.Is(err, billing.ErrEmptyInvoice),
		errors.Is(err, billing.ErrAmountMismatch):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, billing.ErrInvalidTransition),
		errors.Is(err, billing.ErrAlreadyPaid),
		errors.Is(err, billing.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, billing.ErrInvoiceNotFound),
		errors.Is(err, billing.ErrTransactionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, billing.ErrOwnerMismatch):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	default:
		log.Printf("Unexpected error in %s: %v", operation, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

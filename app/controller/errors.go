package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/vibast-solutions/ms-go-remittance/app/auth"
	"github.com/vibast-solutions/ms-go-remittance/app/service"
	"github.com/vibast-solutions/ms-go-remittance/app/types"
)

// serviceErrorStatus maps the service sentinels clients may see. ok is false for errors
// that must be logged and hidden behind a 500.
func serviceErrorStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, service.ErrInvalidRequest), errors.Is(err, service.ErrProviderUnsupported):
		return http.StatusBadRequest, err.Error(), true
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "forbidden", true
	case errors.Is(err, service.ErrCancelTokenMismatch):
		return http.StatusForbidden, "cancel token mismatch", true
	case errors.Is(err, service.ErrPaymentNotFound):
		return http.StatusNotFound, "payment not found", true
	case errors.Is(err, service.ErrTransferNotFound):
		return http.StatusNotFound, "transfer not found", true
	case errors.Is(err, service.ErrBeneficiaryNotFound):
		return http.StatusNotFound, "beneficiary not found", true
	case errors.Is(err, service.ErrExchangeRateNotFound):
		return http.StatusNotFound, "exchange rate not found", true
	case errors.Is(err, service.ErrPaymentNotSucceeded),
		errors.Is(err, service.ErrTransferNotWithdrawable),
		errors.Is(err, service.ErrTransferNotCancelable),
		errors.Is(err, service.ErrTransferNotEditable):
		return http.StatusConflict, err.Error(), true
	case errors.Is(err, service.ErrProviderUnavailable):
		return http.StatusBadGateway, "payment provider unavailable", true
	default:
		return 0, "", false
	}
}

func writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}

func callerFrom(ctx echo.Context) *auth.Identity {
	identity, ok := auth.IdentityFromContext(ctx.Request().Context())
	if !ok {
		return nil
	}
	return identity
}

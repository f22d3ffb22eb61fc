package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error string `json:"error"`
}

// conflictResponse carries both sides of a mirror id conflict so an operator
// can resolve it; the engine never picks a winner.
type conflictResponse struct {
	Error    string              `json:"error"`
	Existing domain.MirrorRecord `json:"existing"`
	Incoming domain.MirrorRecord `json:"incoming"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps the domain error taxonomy to deterministic HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var conflict *domain.IDConflictError
		if errors.As(err, &conflict) {
			_ = c.JSON(http.StatusConflict, conflictResponse{
				Error:    conflict.Error(),
				Existing: conflict.Existing,
				Incoming: conflict.Incoming,
			})
			return
		}

		code, msg := resolveError(err, log, c)
		_ = c.JSON(code, errorResponse{Error: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	// Authorization: permanent, the ledger rejected the caller's role.
	case errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotManager),
		errors.Is(err, domain.ErrNotAuthorized):
		return http.StatusForbidden, err.Error()

	// State: permanent, the request contradicts ledger state.
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, domain.ErrUnknownShipment),
		errors.Is(err, domain.ErrIndexOutOfRange),
		errors.Is(err, domain.ErrRecordNotFound):
		return http.StatusNotFound, err.Error()

	// Funds: permanent for this attempt, resubmittable with corrected payment.
	case errors.Is(err, domain.ErrInsufficientFee):
		return http.StatusPaymentRequired, err.Error()
	case errors.Is(err, domain.ErrNothingToWithdraw):
		return http.StatusUnprocessableEntity, err.Error()

	// Reconciliation: transient, the engine exhausted its retries.
	case errors.Is(err, domain.ErrLedgerUnavailable):
		return http.StatusServiceUnavailable, "ledger unavailable, retry later"

	case errors.Is(err, domain.ErrInvalidPrincipal):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, domain.ErrUserExists):
		return http.StatusConflict, "user already exists"
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal server error"
}

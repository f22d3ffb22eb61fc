package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/freightchain/tracking-system/internal/core/domain"
)

// ctxPrincipal extracts the auth claims injected by the Auth middleware and
// performs a fast-fail check before any ledger call:
//   - role must be non-empty (presence proves the middleware ran).
//   - address must parse as a principal; without it the JWT is structurally
//     valid but cannot act on the ledger; reject with 401.
func ctxPrincipal(c echo.Context) (role string, caller domain.Principal, err error) {
	role, _ = c.Get("role").(string)
	if role == "" {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	address, _ := c.Get("address").(string)
	caller, perr := domain.ParsePrincipal(address)
	if perr != nil {
		return "", "", echo.NewHTTPError(http.StatusUnauthorized, "token missing principal address")
	}

	return role, caller, nil
}

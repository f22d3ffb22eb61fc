package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
)

// AdminHandler exposes the owner-only ledger entry points: registry
// mutations, fee policy, escrow withdrawal, and the on-demand duplicate scan.
// Every operation is re-checked on the ledger against the caller principal;
// route-level RBAC only fails fast.
type AdminHandler struct {
	ledger   ports.LedgerClient
	resolver ports.DuplicateResolver
}

func NewAdminHandler(ledgerClient ports.LedgerClient, resolver ports.DuplicateResolver) *AdminHandler {
	return &AdminHandler{ledger: ledgerClient, resolver: resolver}
}

type principalRequest struct {
	Address string `json:"address" validate:"required"`
}

type settingsRequest struct {
	WhitelistRequired *bool `json:"whitelist_required"`
	FeeRequired       *bool `json:"fee_required"`
}

type setFeeRequest struct {
	Amount uint64 `json:"amount"`
}

type withdrawResponse struct {
	Amount uint64 `json:"amount"`
	TxRef  string `json:"tx_ref"`
}

type scanResponse struct {
	Groups []ports.DuplicateReport `json:"groups"`
}

func (h *AdminHandler) bindPrincipal(c echo.Context) (caller, target domain.Principal, err error) {
	var req principalRequest
	if err := c.Bind(&req); err != nil {
		return "", "", echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return "", "", echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	target, perr := domain.ParsePrincipal(req.Address)
	if perr != nil {
		return "", "", perr
	}
	_, caller, err = ctxPrincipal(c)
	return caller, target, err
}

// AddManager handles POST /v1/admin/managers.
//
// @Summary      Register a manager principal
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      principalRequest  true  "Manager address"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /v1/admin/managers [post]
func (h *AdminHandler) AddManager(c echo.Context) error {
	caller, target, err := h.bindPrincipal(c)
	if err != nil {
		return err
	}
	receipt, err := h.ledger.AddManager(c.Request().Context(), caller, target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"tx_ref": receipt.TxRef})
}

// RemoveManager handles DELETE /v1/admin/managers/:address.
//
// @Summary      Revoke a manager principal
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        address  path      string  true  "Manager address"
// @Success      200      {object}  map[string]string
// @Failure      403      {object}  map[string]string
// @Router       /v1/admin/managers/{address} [delete]
func (h *AdminHandler) RemoveManager(c echo.Context) error {
	target, err := domain.ParsePrincipal(c.Param("address"))
	if err != nil {
		return err
	}
	_, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	receipt, err := h.ledger.RemoveManager(c.Request().Context(), caller, target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"tx_ref": receipt.TxRef})
}

// AddToWhitelist handles POST /v1/admin/whitelist.
//
// @Summary      Whitelist a principal for shipment creation
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      principalRequest  true  "Principal address"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /v1/admin/whitelist [post]
func (h *AdminHandler) AddToWhitelist(c echo.Context) error {
	caller, target, err := h.bindPrincipal(c)
	if err != nil {
		return err
	}
	receipt, err := h.ledger.AddToWhitelist(c.Request().Context(), caller, target)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"tx_ref": receipt.TxRef})
}

// UpdateSettings handles PUT /v1/admin/settings. It toggles the whitelist and
// fee policies. Omitted fields are left unchanged.
//
// @Summary      Toggle whitelist/fee policies
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      settingsRequest  true  "Policy toggles"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /v1/admin/settings [put]
func (h *AdminHandler) UpdateSettings(c echo.Context) error {
	var req settingsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	_, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	var txRef string
	if req.WhitelistRequired != nil {
		receipt, err := h.ledger.SetWhitelistRequired(ctx, caller, *req.WhitelistRequired)
		if err != nil {
			return err
		}
		txRef = receipt.TxRef
	}
	if req.FeeRequired != nil {
		receipt, err := h.ledger.SetFeeRequired(ctx, caller, *req.FeeRequired)
		if err != nil {
			return err
		}
		txRef = receipt.TxRef
	}
	return c.JSON(http.StatusOK, map[string]string{"tx_ref": txRef})
}

// SetFee handles PUT /v1/admin/fee.
//
// @Summary      Set the shipment creation fee
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      setFeeRequest  true  "Fee in smallest currency unit"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /v1/admin/fee [put]
func (h *AdminHandler) SetFee(c echo.Context) error {
	var req setFeeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	_, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	receipt, err := h.ledger.SetFee(c.Request().Context(), caller, req.Amount)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"tx_ref": receipt.TxRef})
}

// Withdraw handles POST /v1/admin/withdraw. It pays collected fees to the owner.
//
// @Summary      Withdraw collected fees
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  withdrawResponse
// @Failure      403  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /v1/admin/withdraw [post]
func (h *AdminHandler) Withdraw(c echo.Context) error {
	_, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}
	amount, receipt, err := h.ledger.Withdraw(c.Request().Context(), caller)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, withdrawResponse{Amount: amount, TxRef: receipt.TxRef})
}

// ScanDuplicates handles POST /v1/admin/duplicates/scan. It runs the on-demand
// mirror repair pass and reports what was kept and deleted.
//
// @Summary      Scan and repair duplicate mirror records
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  scanResponse
// @Router       /v1/admin/duplicates/scan [post]
func (h *AdminHandler) ScanDuplicates(c echo.Context) error {
	groups, err := h.resolver.Scan(c.Request().Context())
	if err != nil {
		return err
	}
	if groups == nil {
		groups = []ports.DuplicateReport{}
	}
	return c.JSON(http.StatusOK, scanResponse{Groups: groups})
}

package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
)

// CheckpointHandler handles the append-only per-shipment location log.
// Checkpoints live only on the ledger; there is no mirror projection to keep
// consistent, so the handler talks to the ledger client directly.
type CheckpointHandler struct {
	ledger ports.LedgerClient
}

func NewCheckpointHandler(ledgerClient ports.LedgerClient) *CheckpointHandler {
	return &CheckpointHandler{ledger: ledgerClient}
}

// Coordinates are pointers so a checkpoint on the equator or prime meridian
// (lat or lng exactly 0) still passes the required check.
type addCheckpointRequest struct {
	Label string `json:"label"  validate:"required,max=100"`
	LatE6 *int64 `json:"lat_e6" validate:"required"`
	LngE6 *int64 `json:"lng_e6" validate:"required"`
}

type checkpointListResponse struct {
	ShipmentID  uint64              `json:"shipment_id"`
	Checkpoints []domain.Checkpoint `json:"checkpoints"`
}

// Add handles POST /v1/shipments/:id/checkpoints.
//
// @Summary      Record a checkpoint for a shipment
// @Tags         checkpoints
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                   true  "Ledger-assigned shipment id"
// @Param        body  body      addCheckpointRequest  true  "Checkpoint (microdegree coordinates)"
// @Success      201   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /v1/shipments/{id}/checkpoints [post]
func (h *CheckpointHandler) Add(c echo.Context) error {
	id, err := shipmentIDParam(c)
	if err != nil {
		return err
	}

	var req addCheckpointRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	_, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	receipt, err := h.ledger.AddCheckpoint(c.Request().Context(), caller, id, req.Label, *req.LatE6, *req.LngE6)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, map[string]string{"tx_ref": receipt.TxRef})
}

// List handles GET /v1/shipments/:id/checkpoints. It reads the full log from
// the ledger in insertion order.
//
// @Summary      List a shipment's checkpoints
// @Tags         checkpoints
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Ledger-assigned shipment id"
// @Success      200  {object}  checkpointListResponse
// @Failure      404  {object}  map[string]string
// @Router       /v1/shipments/{id}/checkpoints [get]
func (h *CheckpointHandler) List(c echo.Context) error {
	id, err := shipmentIDParam(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	count, err := h.ledger.CheckpointCount(ctx, id)
	if err != nil {
		return err
	}

	checkpoints := make([]domain.Checkpoint, 0, count)
	for i := 0; i < count; i++ {
		cp, err := h.ledger.GetCheckpoint(ctx, id, i)
		if err != nil {
			return err
		}
		checkpoints = append(checkpoints, cp)
	}

	return c.JSON(http.StatusOK, checkpointListResponse{
		ShipmentID:  id,
		Checkpoints: checkpoints,
	})
}

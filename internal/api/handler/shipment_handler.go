package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/freightchain/tracking-system/internal/core/domain"
	"github.com/freightchain/tracking-system/internal/core/ports"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// ShipmentHandler handles HTTP requests for shipment operations. Mutations go
// through the reconciliation engine so ledger finality and mirror projection
// stay coupled; reads are served from the mirror store, and counts from the
// ledger itself.
type ShipmentHandler struct {
	reconciler ports.Reconciler
	mirror     ports.MirrorRepository
	ledger     ports.LedgerClient
}

func NewShipmentHandler(reconciler ports.Reconciler, mirror ports.MirrorRepository, ledgerClient ports.LedgerClient) *ShipmentHandler {
	return &ShipmentHandler{reconciler: reconciler, mirror: mirror, ledger: ledgerClient}
}

// --- Request / Response types ---

type createShipmentRequest struct {
	ProductName string `json:"product_name" validate:"required,max=100"`
	Origin      string `json:"origin"       validate:"required,max=100"`
	Destination string `json:"destination"  validate:"required,max=100"`
	Payment     uint64 `json:"payment"`
}

type assignRequest struct {
	DriverName   string `json:"driver_name"   validate:"required,max=100"`
	VehiclePlate string `json:"vehicle_plate" validate:"required,max=20"`
	Notes        string `json:"notes"         validate:"max=500"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=created in_transit delivered cancelled"`
}

type listShipmentsResponse struct {
	Items []*domain.MirrorRecord `json:"items"`
	Total int64                  `json:"total"`
	Page  int                    `json:"page"`
	Limit int                    `json:"limit"`
}

type countResponse struct {
	Count uint64 `json:"count"`
}

// Create handles POST /v1/shipments.
//
// @Summary      Create a new shipment on the ledger
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createShipmentRequest  true  "Shipment details"
// @Success      201   {object}  domain.MirrorRecord
// @Failure      402   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /v1/shipments [post]
func (h *ShipmentHandler) Create(c echo.Context) error {
	var req createShipmentRequest
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

	rec, err := h.reconciler.SubmitCreate(c.Request().Context(), ports.CreateShipmentInput{
		Caller:      caller,
		ProductName: req.ProductName,
		Origin:      req.Origin,
		Destination: req.Destination,
		Payment:     req.Payment,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, rec)
}

// Get handles GET /v1/shipments/:id, served from the mirror store.
//
// @Summary      Get a shipment by ledger id
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Ledger-assigned shipment id"
// @Success      200  {object}  domain.MirrorRecord
// @Failure      404  {object}  map[string]string
// @Router       /v1/shipments/{id} [get]
func (h *ShipmentHandler) Get(c echo.Context) error {
	id, err := shipmentIDParam(c)
	if err != nil {
		return err
	}

	rec, err := h.mirror.FindByShipmentID(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// List handles GET /v1/shipments. Customers see only their own shipments;
// owners and managers see everything.
//
// @Summary      List shipments from the mirror store
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "Filter by status"
// @Param        page    query     int     false  "Page (1-based)"
// @Param        limit   query     int     false  "Page size (max 100)"
// @Success      200     {object}  listShipmentsResponse
// @Router       /v1/shipments [get]
func (h *ShipmentHandler) List(c echo.Context) error {
	role, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	filter := ports.ListMirrorFilter{
		Status: c.QueryParam("status"),
		Page:   page,
		Limit:  limit,
	}
	if role == domain.RoleCustomer {
		filter.Customer = caller
	}

	items, total, err := h.mirror.List(c.Request().Context(), filter)
	if err != nil {
		return err
	}
	if items == nil {
		items = []*domain.MirrorRecord{}
	}

	return c.JSON(http.StatusOK, listShipmentsResponse{
		Items: items,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// Count handles GET /v1/shipments/count, the authoritative ledger count.
//
// @Summary      Get the total number of shipments ever created
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  countResponse
// @Router       /v1/shipments/count [get]
func (h *ShipmentHandler) Count(c echo.Context) error {
	count, err := h.ledger.ShipmentCount(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, countResponse{Count: count})
}

// Assign handles POST /v1/shipments/:id/assign. Assignment is only accepted
// while the shipment is still in the created state; whether that restriction
// should be relaxed for driver reassignment in transit is an open product
// question, so the ledger's behavior is surfaced as-is.
//
// @Summary      Assign driver and vehicle to a shipment
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int            true  "Ledger-assigned shipment id"
// @Param        body  body      assignRequest  true  "Assignment details"
// @Success      200   {object}  domain.MirrorRecord
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/shipments/{id}/assign [post]
func (h *ShipmentHandler) Assign(c echo.Context) error {
	id, err := shipmentIDParam(c)
	if err != nil {
		return err
	}

	var req assignRequest
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

	rec, err := h.reconciler.SubmitAssign(c.Request().Context(), ports.AssignInput{
		Caller:       caller,
		ShipmentID:   id,
		DriverName:   req.DriverName,
		VehiclePlate: req.VehiclePlate,
		Notes:        req.Notes,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// UpdateStatus handles PUT /v1/shipments/:id/status.
//
// @Summary      Apply a status transition
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                  true  "Ledger-assigned shipment id"
// @Param        body  body      updateStatusRequest  true  "New status"
// @Success      200   {object}  domain.MirrorRecord
// @Failure      403   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/shipments/{id}/status [put]
func (h *ShipmentHandler) UpdateStatus(c echo.Context) error {
	id, err := shipmentIDParam(c)
	if err != nil {
		return err
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	status, ok := domain.ParseStatus(req.Status)
	if !ok {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "unknown status")
	}

	_, caller, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	rec, err := h.reconciler.SubmitStatusUpdate(c.Request().Context(), ports.UpdateStatusInput{
		Caller:     caller,
		ShipmentID: id,
		NewStatus:  status,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rec)
}

// shipmentIDParam parses the :id path parameter as a ledger shipment id.
func shipmentIDParam(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid shipment id")
	}
	return id, nil
}

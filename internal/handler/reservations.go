package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/middleware"
	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/service"
)

// ReservationHandler serves storefront booking and admin cancellation.
type ReservationHandler struct {
	Engine *service.ReservationEngine
	Log    *zap.Logger
}

// NewReservationHandler wires a ReservationHandler.
func NewReservationHandler(e *service.ReservationEngine, log *zap.Logger) *ReservationHandler {
	return &ReservationHandler{Engine: e, Log: log}
}

// Book handles POST /v1/public/reservations.  No session is needed; the
// storefront books on behalf of walk-up customers.
func (h *ReservationHandler) Book(c echo.Context) error {
	var req model.BookingRequest
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	rec, err := h.Engine.Book(c.Request().Context(), req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

// Cancel handles DELETE /v1/admin/reservations/:id.
func (h *ReservationHandler) Cancel(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid reservation id")
	}
	if err := h.Engine.Cancel(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// CancelAll handles POST /v1/admin/reservations/cancel-all.  Elevated
// callers may pass ?tenant_id= to act on another tenant.
func (h *ReservationHandler) CancelAll(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	res, err := h.Engine.CancelAll(c.Request().Context(), p, targetTenant(p, c.QueryParam("tenant_id")))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

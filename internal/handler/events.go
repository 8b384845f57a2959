package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/middleware"
	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/service"
)

// EventHandler exposes the tenant catalog administration.
type EventHandler struct {
	Events *service.EventService
	Log    *zap.Logger
}

// NewEventHandler wires an EventHandler.
func NewEventHandler(s *service.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{Events: s, Log: log}
}

// eventGroupReq is the body of create and update.  Dates are strings so
// that an empty entry can stand for an undated instance.
type eventGroupReq struct {
	TenantID    string             `json:"tenant_id"`
	Fields      model.EventFields  `json:"fields"`
	Dates       []string           `json:"dates"`
	TicketTypes []model.TicketSpec `json:"ticket_types"`
}

func (r eventGroupReq) input() (service.EventGroupInput, error) {
	dates, err := parseDates(r.Dates)
	if err != nil {
		return service.EventGroupInput{}, err
	}
	return service.EventGroupInput{Fields: r.Fields, Dates: dates, Tickets: r.TicketTypes}, nil
}

// targetTenant is the tenant a request acts on: the explicit one when an
// elevated principal names it, the principal's own otherwise.
func targetTenant(p model.Principal, explicit string) string {
	if explicit = strings.TrimSpace(explicit); explicit != "" {
		return explicit
	}
	return p.TenantID
}

// CreateGroup handles POST /v1/admin/events.
func (h *EventHandler) CreateGroup(c echo.Context) error {
	var req eventGroupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, h.Log, err)
	}
	p := middleware.PrincipalFrom(c)
	res, err := h.Events.CreateEventGroup(c.Request().Context(), p, targetTenant(p, req.TenantID), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

// UpdateGroup handles PUT /v1/admin/events/:id.  The id names any instance
// of the group being edited.
func (h *EventHandler) UpdateGroup(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req eventGroupReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	in, err := req.input()
	if err != nil {
		return writeError(c, h.Log, err)
	}
	res, err := h.Events.UpdateEventGroup(c.Request().Context(), middleware.PrincipalFrom(c), id, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Delete handles DELETE /v1/admin/events/:id.
func (h *EventHandler) Delete(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	if err := h.Events.DeleteEvent(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// BulkDelete handles POST /v1/admin/events/bulk-delete.
func (h *EventHandler) BulkDelete(c echo.Context) error {
	var req struct {
		IDs []int64 `json:"ids"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.Events.BulkDeleteEvents(c.Request().Context(), middleware.PrincipalFrom(c), req.IDs)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// SetActive handles PATCH /v1/admin/events/:id/active.
func (h *EventHandler) SetActive(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req struct {
		Active *bool `json:"active"`
	}
	if err := c.Bind(&req); err != nil || req.Active == nil {
		return badRequest(c, "active is required")
	}
	ev, err := h.Events.SetEventActive(c.Request().Context(), middleware.PrincipalFrom(c), id, *req.Active)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ev)
}

// DeleteTicketType handles DELETE /v1/admin/ticket-types/:id.
func (h *EventHandler) DeleteTicketType(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid ticket type id")
	}
	if err := h.Events.DeleteTicketType(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ResetStock handles POST /v1/admin/events/:id/reset-stock.
func (h *EventHandler) ResetStock(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	n, err := h.Events.ResetEventStock(c.Request().Context(), middleware.PrincipalFrom(c), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket_types": n})
}

// ResetAllStock handles POST /v1/admin/stock/reset.  Elevated callers may
// pass ?tenant_id= to act on another tenant.
func (h *EventHandler) ResetAllStock(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	n, err := h.Events.ResetAllStock(c.Request().Context(), p, targetTenant(p, c.QueryParam("tenant_id")))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"ticket_types": n})
}

// Dashboard handles GET /v1/admin/dashboard.
func (h *EventHandler) Dashboard(c echo.Context) error {
	d, err := h.Events.Dashboard(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}

// SyncCache handles POST /v1/admin/cache/sync.
func (h *EventHandler) SyncCache(c echo.Context) error {
	if err := h.Events.SyncCache(c.Request().Context(), middleware.PrincipalFrom(c)); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// PublicCatalog handles GET /v1/public/tenants/:id/events.
func (h *EventHandler) PublicCatalog(c echo.Context) error {
	tenantID := strings.TrimSpace(c.Param("id"))
	if tenantID == "" {
		return badRequest(c, "invalid tenant id")
	}
	cat, err := h.Events.PublicCatalog(c.Request().Context(), tenantID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, cat)
}

package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/middleware"
	"github.com/iliyamo/tenant-ticketing/internal/model"
	"github.com/iliyamo/tenant-ticketing/internal/service"
)

// TenantHandler exposes tenant lifecycle and settings.
type TenantHandler struct {
	Tenants     *service.TenantService
	Distributor *service.Distributor
	Log         *zap.Logger
}

// NewTenantHandler wires a TenantHandler.
func NewTenantHandler(t *service.TenantService, d *service.Distributor, log *zap.Logger) *TenantHandler {
	return &TenantHandler{Tenants: t, Distributor: d, Log: log}
}

type flagReq struct {
	Value *bool `json:"value"`
}

func tenantParam(c echo.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	return id, id != ""
}

// Create handles POST /v1/admin/tenants.
func (h *TenantHandler) Create(c echo.Context) error {
	var req service.NewTenantInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t, err := h.Tenants.CreateTenant(c.Request().Context(), middleware.PrincipalFrom(c), req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, t)
}

// List handles GET /v1/admin/tenants.
func (h *TenantHandler) List(c echo.Context) error {
	ts, err := h.Tenants.ListTenants(c.Request().Context(), middleware.PrincipalFrom(c))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, ts)
}

// SetFeatured handles PATCH /v1/admin/tenants/:id/featured.
func (h *TenantHandler) SetFeatured(c echo.Context) error {
	return h.flag(c, h.Tenants.SetFeatured)
}

// SetActive handles PATCH /v1/admin/tenants/:id/active.
func (h *TenantHandler) SetActive(c echo.Context) error {
	return h.flag(c, h.Tenants.SetActive)
}

type tenantFlag func(ctx context.Context, p model.Principal, id string, v bool) (*model.Tenant, error)

func (h *TenantHandler) flag(c echo.Context, set tenantFlag) error {
	id, ok := tenantParam(c)
	if !ok {
		return badRequest(c, "invalid tenant id")
	}
	var req flagReq
	if err := c.Bind(&req); err != nil || req.Value == nil {
		return badRequest(c, "value is required")
	}
	t, err := set(c.Request().Context(), middleware.PrincipalFrom(c), id, *req.Value)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// UpdateSettings handles PUT /v1/admin/tenants/:id/settings.  Owners edit
// their own tenant; elevated principals any.
func (h *TenantHandler) UpdateSettings(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return badRequest(c, "invalid tenant id")
	}
	var req model.TenantSettings
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	t, err := h.Tenants.UpdateSettings(c.Request().Context(), middleware.PrincipalFrom(c), id, req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, t)
}

// Delete handles DELETE /v1/admin/tenants/:id.
func (h *TenantHandler) Delete(c echo.Context) error {
	id, ok := tenantParam(c)
	if !ok {
		return badRequest(c, "invalid tenant id")
	}
	if err := h.Tenants.DeleteTenant(c.Request().Context(), middleware.PrincipalFrom(c), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Distribute handles POST /v1/admin/events/:id/distribute.  Per-target
// failures are part of a 200 response; only a bad source fails the call.
func (h *TenantHandler) Distribute(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid event id")
	}
	var req struct {
		TenantIDs []string `json:"tenant_ids"`
	}
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	res, err := h.Distributor.Distribute(c.Request().Context(), middleware.PrincipalFrom(c), id, req.TenantIDs)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

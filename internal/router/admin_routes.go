package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-ticketing/internal/middleware"
)

// RegisterAdmin registers the tenant administration surface under
// /v1/admin.  Every route needs a session; tenant scoping is enforced by
// the services.  Cross-tenant operations additionally sit behind
// RequireElevated.
func RegisterAdmin(e *echo.Echo, h Handlers, session echo.MiddlewareFunc) {
	g := e.Group("/v1/admin", session)

	g.GET("/dashboard", h.Events.Dashboard)
	g.POST("/cache/sync", h.Events.SyncCache)

	g.POST("/events", h.Events.CreateGroup)
	g.POST("/events/bulk-delete", h.Events.BulkDelete)
	g.PUT("/events/:id", h.Events.UpdateGroup)
	g.DELETE("/events/:id", h.Events.Delete)
	g.PATCH("/events/:id/active", h.Events.SetActive)
	g.POST("/events/:id/reset-stock", h.Events.ResetStock)
	g.DELETE("/ticket-types/:id", h.Events.DeleteTicketType)
	g.POST("/stock/reset", h.Events.ResetAllStock)

	g.DELETE("/reservations/:id", h.Reservations.Cancel)
	g.POST("/reservations/cancel-all", h.Reservations.CancelAll)

	// owners may edit their own settings
	g.PUT("/tenants/:id/settings", h.Tenants.UpdateSettings)
	g.GET("/export/reservations", h.Export.Reservations)

	el := g.Group("", middleware.RequireElevated())
	el.POST("/tenants", h.Tenants.Create)
	el.GET("/tenants", h.Tenants.List)
	el.PATCH("/tenants/:id/featured", h.Tenants.SetFeatured)
	el.PATCH("/tenants/:id/active", h.Tenants.SetActive)
	el.DELETE("/tenants/:id", h.Tenants.Delete)
	el.POST("/events/:id/distribute", h.Tenants.Distribute)
	el.GET("/export/tenants", h.Export.Tenants)
}

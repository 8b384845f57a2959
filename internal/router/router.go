package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-ticketing/internal/handler"
	"github.com/iliyamo/tenant-ticketing/internal/middleware"
)

// Handlers groups everything the route table dispatches to.
type Handlers struct {
	Auth         *handler.AuthHandler
	Events       *handler.EventHandler
	Reservations *handler.ReservationHandler
	Tenants      *handler.TenantHandler
	Export       *handler.ExportHandler
}

// Middleware carries the pre-built middleware that depends on runtime
// clients (Redis, the session resolver).
type Middleware struct {
	Session   echo.MiddlewareFunc
	Cache     echo.MiddlewareFunc
	RateLimit echo.MiddlewareFunc
}

// RegisterRoutes registers the probes.  Ready is nil-safe: without a
// pinger only /healthz is exposed.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers login, logout and the session-scoped account
// routes.  Login and logout need no session.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, session echo.MiddlewareFunc) {
	g := e.Group("/v1/auth")
	g.POST("/login", a.Login)
	g.POST("/logout", a.Logout)
	g.POST("/impersonate", a.Impersonate, session, middleware.RequireElevated())

	me := e.Group("/v1/me", session)
	me.GET("", a.Me)
	me.PUT("/password", a.ChangePassword)
}

// RegisterPublic registers the storefront: the cached catalog read and the
// rate-limited booking endpoint.  Neither requires a session.
func RegisterPublic(e *echo.Echo, h Handlers, mw Middleware) {
	g := e.Group("/v1/public")
	g.GET("/tenants/:id/events", h.Events.PublicCatalog, mw.Cache)
	g.POST("/reservations", h.Reservations.Book, mw.RateLimit)
}

// Register wires the full route table.
func Register(e *echo.Echo, db handler.Pinger, h Handlers, mw Middleware) {
	RegisterRoutes(e, db)
	RegisterAuth(e, h.Auth, mw.Session)
	RegisterPublic(e, h, mw)
	RegisterAdmin(e, h, mw.Session)
}

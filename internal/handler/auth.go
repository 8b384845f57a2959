package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/tenant-ticketing/internal/middleware"
	"github.com/iliyamo/tenant-ticketing/internal/service"
	"github.com/iliyamo/tenant-ticketing/internal/utils"
)

// AuthHandler bundles the session endpoints.
type AuthHandler struct {
	Sessions     *service.Sessions
	Tenants      *service.TenantService
	CookieSecure bool
	Log          *zap.Logger
}

// NewAuthHandler wires an AuthHandler.
func NewAuthHandler(s *service.Sessions, t *service.TenantService, cookieSecure bool, log *zap.Logger) *AuthHandler {
	return &AuthHandler{Sessions: s, Tenants: t, CookieSecure: cookieSecure, Log: log}
}

// ----- DTOs -----

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type impersonateReq struct {
	TenantID string `json:"tenant_id"`
}

type passwordReq struct {
	Password string `json:"password"`
	Confirm  string `json:"confirm_password"`
}

type sessionResp struct {
	TenantID       string     `json:"tenant_id"`
	IsElevated     bool       `json:"is_elevated"`
	ImpersonatedBy string     `json:"impersonated_by,omitempty"`
	Expires        *time.Time `json:"expires,omitempty"`
	Token          string     `json:"token,omitempty"`
}

func (h *AuthHandler) setCookie(c echo.Context, sess utils.Session) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.Exp,
		HttpOnly: true,
		Secure:   h.CookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// Login handles POST /v1/auth/login.  The token is set as an HTTP-only
// cookie and also returned for Bearer clients.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	sess, p, err := h.Sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.setCookie(c, sess)
	return c.JSON(http.StatusOK, sessionResp{
		TenantID:   p.TenantID,
		IsElevated: p.Elevated,
		Expires:    &sess.Exp,
		Token:      sess.Token,
	})
}

// Logout handles POST /v1/auth/logout by expiring the cookie.
func (h *AuthHandler) Logout(c echo.Context) error {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.CookieSecure,
	})
	return c.NoContent(http.StatusNoContent)
}

// Impersonate handles POST /v1/auth/impersonate.
func (h *AuthHandler) Impersonate(c echo.Context) error {
	var req impersonateReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	sess, err := h.Sessions.Impersonate(c.Request().Context(), middleware.PrincipalFrom(c), req.TenantID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.setCookie(c, sess)
	return c.JSON(http.StatusOK, sessionResp{
		TenantID:       req.TenantID,
		ImpersonatedBy: middleware.PrincipalFrom(c).TenantID,
		Expires:        &sess.Exp,
		Token:          sess.Token,
	})
}

// Me handles GET /v1/me.
func (h *AuthHandler) Me(c echo.Context) error {
	p := middleware.PrincipalFrom(c)
	return c.JSON(http.StatusOK, sessionResp{
		TenantID:       p.TenantID,
		IsElevated:     p.Elevated,
		ImpersonatedBy: p.ImpersonatedBy,
	})
}

// ChangePassword handles PUT /v1/me/password.
func (h *AuthHandler) ChangePassword(c echo.Context) error {
	var req passwordReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if err := h.Tenants.ChangePassword(c.Request().Context(), middleware.PrincipalFrom(c), req.Password, req.Confirm); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

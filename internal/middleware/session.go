package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/tenant-ticketing/internal/model"
)

// SessionCookie is the cookie carrying the admin session token.
const SessionCookie = "admin_session"

// SessionResolver turns a raw token into a principal.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (model.Principal, error)
}

// Session resolves the session token from the admin_session cookie, or from
// an "Authorization: Bearer" header when no cookie is present, and stores
// the principal in the context.  Requests without a valid session get 401.
func Session(r SessionResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := TokenFrom(c)
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing session"})
			}
			p, err := r.Resolve(c.Request().Context(), raw)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session"})
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// TokenFrom extracts the raw session token, cookie first.
func TokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	auth := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

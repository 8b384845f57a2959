package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// RequireElevated rejects principals without cross-tenant authority with
// 403.  It runs after Session, which stores the principal it inspects.
func RequireElevated() echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !PrincipalFrom(c).Elevated {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

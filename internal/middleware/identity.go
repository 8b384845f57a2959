package middleware

// identity.go holds the helpers that move the resolved principal through the
// Echo context.  The session middleware stores it under principalKey; handlers
// and the other middleware read it back with PrincipalFrom.

import (
    "github.com/labstack/echo/v4"

    "github.com/iliyamo/tenant-ticketing/internal/model"
)

const principalKey = "principal"

// PrincipalFrom returns the principal stored by Session.  The zero value
// (no tenant, not elevated) is returned for anonymous requests.
func PrincipalFrom(c echo.Context) model.Principal {
    if p, ok := c.Get(principalKey).(model.Principal); ok {
        return p
    }
    return model.Principal{}
}

// identity names the caller for rate-limit keys: the tenant of an
// authenticated session, "guest" otherwise.
func identity(c echo.Context) string {
    if p := PrincipalFrom(c); p.TenantID != "" {
        return p.TenantID
    }
    return "guest"
}

package middleware // middleware provides shared request processing for handlers

import (
    "net/http" // http package defines standard HTTP status codes
    "strings"  // bearer prefix handling

    "github.com/labstack/echo/v4" // echo provides middleware chaining and context

    "github.com/iliyamo/seat-picker/internal/utils" // operator token verification
)

// Context keys set by OperatorAuth.
const (
    OperatorKey = "operator"
    RoleKey     = "role"
)

// OperatorAuth validates a Bearer operator token signed with secret and
// stores the subject and role in the context.  Venue writes sit behind it.
func OperatorAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            claims, err := utils.ParseOperatorToken(secret, strings.TrimPrefix(auth, "Bearer "))
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid operator token"})
            }
            c.Set(OperatorKey, claims.Subject)
            c.Set(RoleKey, claims.Role)
            return next(c)
        }
    }
}

// RequireRole aborts with 403 unless the role stored by OperatorAuth is one
// of roles.
func RequireRole(roles ...string) echo.MiddlewareFunc {
    allowed := make(map[string]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(RoleKey).(string)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
            }
            return next(c)
        }
    }
}

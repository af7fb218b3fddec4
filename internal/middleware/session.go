package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/seat-picker/internal/utils" // session token verification
)

// Context keys set by SessionAuth.
const (
    SessionIDKey = "session_id"
    VenueIDKey   = "venue_id"
)

// SessionAuth returns an Echo middleware that validates a Bearer session
// token and injects the session id and venue id into the request context.
// The provided secret must match the one used when the session was opened.
// Handlers read the values via c.Get(SessionIDKey) and c.Get(VenueIDKey).
func SessionAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            // A valid header starts with "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
            }
            raw := strings.TrimPrefix(auth, "Bearer ")

            claims, err := utils.ParseSessionToken(secret, raw)
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
            }
            c.Set(SessionIDKey, claims.SessionID)
            c.Set(VenueIDKey, claims.VenueID)
            return next(c)
        }
    }
}

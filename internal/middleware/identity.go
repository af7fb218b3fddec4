package middleware

// identity.go defines helpers shared across middleware files for working
// out who is calling.  Session routes carry a session id placed in the
// context by SessionAuth; everything else is anonymous.

import "github.com/labstack/echo/v4"

// SessionID returns the session id stored by SessionAuth, or "anon" when
// the request is not bound to a session.
func SessionID(c echo.Context) string {
    if v, ok := c.Get(SessionIDKey).(string); ok && v != "" {
        return v
    }
    return "anon"
}

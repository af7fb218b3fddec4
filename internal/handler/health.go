package handler // declare the package name; contains HTTP handlers

import (
    "net/http"          // net/http provides status codes and response helpers

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/iliyamo/seat-picker/internal/session" // live session count
)

// Health returns a health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It answers
// 200 with the number of live selection sessions.
func Health(sessions *session.Store) echo.HandlerFunc {
    return func(c echo.Context) error {
        out := echo.Map{"status": "ok"}
        if sessions != nil {
            out["sessions"] = sessions.Len()
        }
        return c.JSON(http.StatusOK, out) // 200 OK with a small JSON body
    }
}

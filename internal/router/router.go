package router // package router defines how HTTP routes are registered for the API

import (
	"log" // startup notes

	"github.com/labstack/echo/v4"                  // import the Echo web framework to handle routing
	echomw "github.com/labstack/echo/v4/middleware" // request body limit

	"github.com/iliyamo/seat-picker/internal/handler"    // handlers that implement the HTTP boundary
	"github.com/iliyamo/seat-picker/internal/middleware" // session authentication, rate limiting and caching
	"github.com/iliyamo/seat-picker/internal/session"    // session store for the health check
	"github.com/iliyamo/seat-picker/internal/utils"      // operator role name
)

// RegisterRoutes registers routes that do not require a session on the
// provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo, sessions *session.Store) {
	// Load balancers and monitoring poll this endpoint.
	e.GET("/healthz", handler.Health(sessions))
}

// MaxVenueBody caps the size of a venue document on POST /v1/venues.
const MaxVenueBody = "64K"

// RegisterVenues registers the venue endpoints.  Layout responses go
// through the cache middleware since layouts never change once stored.
// Creating a venue needs an operator token signed with operatorSecret;
// with an empty secret the write route is not registered at all.
func RegisterVenues(e *echo.Echo, h *handler.VenueHandler, cache, limiter echo.MiddlewareFunc, operatorSecret string) {
	g := e.Group("/v1/venues")
	g.GET("", h.ListVenues)
	g.GET("/:id/layout", h.GetLayout, cache)

	if operatorSecret == "" {
		log.Printf("router: OPERATOR_SECRET not set; POST /v1/venues disabled")
		return
	}
	g.POST("", h.CreateVenue,
		limiter,
		echomw.BodyLimit(MaxVenueBody),
		middleware.OperatorAuth(operatorSecret),
		middleware.RequireRole(utils.RoleOperator),
	)
}

// RegisterSessions registers the selection endpoints.  Opening a session is
// unauthenticated and returns a token; every other route requires that
// token.  The limiter runs after SessionAuth so that it can key on the
// session id.
func RegisterSessions(e *echo.Echo, h *handler.SelectionHandler, secret string, limiter echo.MiddlewareFunc) {
	e.POST("/v1/sessions", h.CreateSession, limiter)

	g := e.Group("/v1/session", middleware.SessionAuth(secret), limiter)
	g.GET("", h.GetState)
	g.PUT("/quantity", h.SetQuantity)
	g.POST("/clicks", h.Click)
	g.DELETE("", h.DeleteSession)
}

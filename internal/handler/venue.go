package handler // handler package contains the HTTP boundary of the seat picker

import (
	"encoding/json" // raw layout documents
	"errors"        // errors.Is on repository sentinels
	"net/http"      // status codes
	"strconv"       // path parameter parsing
	"strings"       // trimming names

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-picker/internal/layout"
	"github.com/iliyamo/seat-picker/internal/repository"
)

// VenueHandler exposes venue layouts for rendering and lets operators
// register new layouts.
type VenueHandler struct {
	Venues repository.VenueStore
}

// NewVenueHandler panics when the store is missing.
func NewVenueHandler(venues repository.VenueStore) *VenueHandler {
	if venues == nil {
		panic("nil venue store passed to NewVenueHandler")
	}
	return &VenueHandler{Venues: venues}
}

type venueOut struct {
	ID        uint64 `json:"id"`
	Name      string `json:"name"`
	Rows      int    `json:"rows"`
	Seats     int    `json:"seats"`
	CreatedAt string `json:"created_at"`
}

func summarize(v *repository.Venue, l *layout.Layout) venueOut {
	out := venueOut{ID: v.ID, Name: v.Name, CreatedAt: v.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")}
	if l != nil {
		for _, r := range l.Rows() {
			out.Rows++
			out.Seats += r.Len()
		}
	}
	return out
}

// ListVenues handles GET /v1/venues.
func (h *VenueHandler) ListVenues(c echo.Context) error {
	venues, err := h.Venues.List(c.Request().Context())
	if err != nil {
		c.Logger().Errorf("list venues: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	items := make([]venueOut, 0, len(venues))
	for _, v := range venues {
		l, err := v.Layout()
		if err != nil {
			c.Logger().Warnf("venue %d has an unusable layout: %v", v.ID, err)
		}
		items = append(items, summarize(v, l))
	}
	return c.JSON(http.StatusOK, echo.Map{"count": len(items), "items": items})
}

// CreateVenue handles POST /v1/venues.  The body is
// {"name": "...", "config": {"A": [1, 15, [3, 4], "Club"], ...}}.
// The layout is validated before it is stored.
func (h *VenueHandler) CreateVenue(c echo.Context) error {
	var body struct {
		Name   string          `json:"name" validate:"required,max=100"`
		Config json.RawMessage `json:"config" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	body.Name = strings.TrimSpace(body.Name)
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body", "detail": validationDetail(err)})
	}
	v := &repository.Venue{Name: body.Name, Config: body.Config}
	l, err := v.Layout()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid layout", "detail": err.Error()})
	}
	if err := h.Venues.Create(c.Request().Context(), v); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "venue name already exists"})
		}
		c.Logger().Errorf("create venue: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusCreated, summarize(v, l))
}

// GetLayout handles GET /v1/venues/:id/layout and returns the seat matrix
// of the venue with the blocked seats and the effective class of each row.
// Responses are immutable and may be served from the cache.
func (h *VenueHandler) GetLayout(c echo.Context) error {
	v, l, err := h.loadVenue(c)
	if l == nil {
		return err // error response already written
	}
	rows, err := renderRows(l, nil)
	if err != nil {
		c.Logger().Errorf("render layout of venue %d: %v", v.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "layout error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"venue_id":     v.ID,
		"name":         v.Name,
		"order":        l.Order(),
		"rows":         rows,
		"max_quantity": maxQuantity,
	})
}

// loadVenue resolves :id into a venue and its layout.  On failure the
// error response has been written and the returned layout is nil.
func (h *VenueHandler) loadVenue(c echo.Context) (*repository.Venue, *layout.Layout, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return nil, nil, c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid venue id"})
	}
	v, err := h.Venues.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return nil, nil, c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		}
		c.Logger().Errorf("get venue %d: %v", id, err)
		return nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	l, err := v.Layout()
	if err != nil {
		c.Logger().Errorf("venue %d has an unusable layout: %v", id, err)
		return nil, nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "layout error"})
	}
	return v, l, nil
}

package handler

import (
	"context"  // publish deadline
	"errors"   // errors.Is on domain sentinels
	"net/http" // status codes
	"time"     // token lifetime and event timestamps

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/seat-picker/internal/layout"
	"github.com/iliyamo/seat-picker/internal/middleware"
	"github.com/iliyamo/seat-picker/internal/queue"
	"github.com/iliyamo/seat-picker/internal/repository"
	"github.com/iliyamo/seat-picker/internal/selection"
	"github.com/iliyamo/seat-picker/internal/session"
	"github.com/iliyamo/seat-picker/internal/utils"
)

// SelectionPublisher is notified when a session completes its selection.
type SelectionPublisher interface {
	PublishSelectionCompleted(ctx context.Context, event queue.SelectionCompletedEvent) error
}

const publishTimeout = 3 * time.Second

// SelectionHandler drives one selection engine per session.  Every route
// except CreateSession expects SessionAuth to have run.
type SelectionHandler struct {
	Venues    repository.VenueStore
	Sessions  *session.Store
	Secret    string
	TokenTTL  time.Duration
	Publisher SelectionPublisher // optional
}

// NewSelectionHandler panics when a required dependency is missing.
// publisher may be nil.
func NewSelectionHandler(venues repository.VenueStore, sessions *session.Store, secret string, ttl time.Duration, publisher SelectionPublisher) *SelectionHandler {
	if venues == nil || sessions == nil || secret == "" {
		panic("missing dependency passed to NewSelectionHandler")
	}
	return &SelectionHandler{
		Venues:    venues,
		Sessions:  sessions,
		Secret:    secret,
		TokenTTL:  ttl,
		Publisher: publisher,
	}
}

// CreateSession handles POST /v1/sessions with body {"venue_id": 1}.  It
// opens a fresh selection on the venue layout and returns a session token
// that authenticates the other session routes.
func (h *SelectionHandler) CreateSession(c echo.Context) error {
	var body struct {
		VenueID uint64 `json:"venue_id" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "venue_id is required", "detail": validationDetail(err)})
	}
	v, err := h.Venues.GetByID(c.Request().Context(), body.VenueID)
	if err != nil {
		if errors.Is(err, repository.ErrVenueNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "venue not found"})
		}
		c.Logger().Errorf("get venue %d: %v", body.VenueID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	l, err := v.Layout()
	if err != nil {
		c.Logger().Errorf("venue %d has an unusable layout: %v", v.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "layout error"})
	}

	s := h.Sessions.Create(v.ID, l)
	tok, err := utils.NewSessionToken(h.Secret, s.ID, v.ID, h.TokenTTL)
	if err != nil {
		h.Sessions.Delete(s.ID)
		c.Logger().Errorf("sign session token: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}

	var state selection.State
	_ = s.Do(func(e *selection.Engine) error {
		state = e.CurrentState()
		return nil
	})
	return c.JSON(http.StatusCreated, echo.Map{
		"session_id":        s.ID,
		"venue_id":          v.ID,
		"token":             tok.Token,
		"expires_at":        tok.Exp.UTC().Format(time.RFC3339),
		"required_quantity": state.RequiredQuantity,
		"remaining":         state.Remaining,
	})
}

// GetState handles GET /v1/session and returns the full seat matrix with
// the state of every seat.
func (h *SelectionHandler) GetState(c echo.Context) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	var resp echo.Map
	err = s.Do(func(e *selection.Engine) error {
		m, err := stateResponse(e)
		if err != nil {
			return err
		}
		resp = m
		rows, err := renderRows(e.Layout(), e)
		if err != nil {
			return err
		}
		resp["rows"] = rows
		return nil
	})
	if err != nil {
		c.Logger().Errorf("render session %s: %v", s.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "layout error"})
	}
	resp["session_id"] = s.ID
	resp["venue_id"] = s.VenueID
	return c.JSON(http.StatusOK, resp)
}

// SetQuantity handles PUT /v1/session/quantity with body {"quantity": n}.
func (h *SelectionHandler) SetQuantity(c echo.Context) error {
	var body struct {
		Quantity *int `json:"quantity" validate:"required"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity is required", "detail": validationDetail(err)})
	}
	s, err := h.session(c)
	if s == nil {
		return err
	}
	var resp echo.Map
	err = s.Do(func(e *selection.Engine) error {
		if err := e.SetRequiredQuantity(*body.Quantity); err != nil {
			return err
		}
		resp, err = stateResponse(e)
		return err
	})
	if err != nil {
		if errors.Is(err, selection.ErrInvalidQuantity) {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{
				"error": "invalid_quantity",
				"min":   1,
				"max":   maxQuantity,
			})
		}
		c.Logger().Errorf("set quantity on session %s: %v", s.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	return c.JSON(http.StatusOK, resp)
}

// Click handles POST /v1/session/clicks.  The seat is addressed either by
// its column offset {"row": "C", "col": 3} or by the number printed on it
// {"row": "C", "seat_number": 9}.
func (h *SelectionHandler) Click(c echo.Context) error {
	var body struct {
		Row        string `json:"row" validate:"required,max=16"`
		Col        *int   `json:"col" validate:"required_without=SeatNumber"`
		SeatNumber *int   `json:"seat_number" validate:"required_without=Col"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid click", "detail": validationDetail(err)})
	}
	if body.Col != nil && body.SeatNumber != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid click", "detail": "col and seat_number are mutually exclusive"})
	}
	s, err := h.session(c)
	if s == nil {
		return err
	}

	var (
		resp       echo.Map
		walk       selection.Walk
		completed  bool
		state      selection.State
		layoutUsed *layout.Layout
	)
	err = s.Do(func(e *selection.Engine) error {
		ref := layout.SeatRef{Row: body.Row}
		if body.Col != nil {
			ref.Col = *body.Col
		} else {
			col, err := e.Layout().Offset(body.Row, *body.SeatNumber)
			if err != nil {
				return err
			}
			ref.Col = col
		}
		wasComplete := e.Complete()
		if _, err := e.HandleSeatClick(ref); err != nil {
			return err
		}
		walk = e.LastWalk()
		completed = !wasComplete && e.Complete()
		state = e.CurrentState()
		layoutUsed = e.Layout()
		resp, err = stateResponse(e)
		return err
	})
	if err != nil {
		if errors.Is(err, layout.ErrUnknownSeat) || errors.Is(err, layout.ErrUnknownRow) {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown seat", "detail": err.Error()})
		}
		c.Logger().Errorf("click on session %s: %v", s.ID, err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}

	if walk.Stop == selection.StopEndOfRow && state.Remaining > 0 {
		c.Logger().Infof("session %s: selection reached the end of row %s with %d seat(s) left", s.ID, body.Row, state.Remaining)
	}
	if completed {
		h.publishCompleted(c, s, layoutUsed, state)
	}

	resp["stop"] = walk.Stop
	resp["toggled"] = walk.Toggled
	return c.JSON(http.StatusOK, resp)
}

// DeleteSession handles DELETE /v1/session.
func (h *SelectionHandler) DeleteSession(c echo.Context) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	h.Sessions.Delete(s.ID)
	return c.NoContent(http.StatusNoContent)
}

// session resolves the session bound to the request token.  On failure the
// error response has been written and the returned session is nil.
func (h *SelectionHandler) session(c echo.Context) (*session.Session, error) {
	id := middleware.SessionID(c)
	s, err := h.Sessions.Get(id)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrSessionExpired):
		return nil, c.JSON(http.StatusGone, echo.Map{"error": "session expired"})
	case errors.Is(err, session.ErrSessionNotFound):
		return nil, c.JSON(http.StatusNotFound, echo.Map{"error": "session not found"})
	default:
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	if venueID, ok := c.Get(middleware.VenueIDKey).(uint64); ok && venueID != s.VenueID {
		return nil, c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid session token"})
	}
	return s, nil
}

func stateResponse(e *selection.Engine) (echo.Map, error) {
	state := e.CurrentState()
	labels, err := seatLabels(e.Layout(), state.Selected)
	if err != nil {
		return nil, err
	}
	return echo.Map{
		"required_quantity": state.RequiredQuantity,
		"remaining":         state.Remaining,
		"selected":          labels,
		"complete":          e.Complete(),
	}, nil
}

// publishCompleted emits a SelectionCompletedEvent.  Failures are logged
// and never fail the click.
func (h *SelectionHandler) publishCompleted(c echo.Context, s *session.Session, l *layout.Layout, state selection.State) {
	if h.Publisher == nil {
		return
	}
	labels, err := seatLabels(l, state.Selected)
	if err != nil {
		c.Logger().Warnf("session %s: label seats: %v", s.ID, err)
		return
	}
	classes := make([]string, 0, len(state.Selected))
	for _, ref := range state.Selected {
		class, _ := l.EffectiveClass(ref.Row)
		classes = append(classes, class)
	}
	event := queue.SelectionCompletedEvent{
		SessionID:   s.ID,
		VenueID:     s.VenueID,
		Quantity:    state.RequiredQuantity,
		SeatLabels:  labels,
		SeatClasses: classes,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
	if v, err := h.Venues.GetByID(c.Request().Context(), s.VenueID); err == nil {
		event.VenueName = v.Name
	}

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := h.Publisher.PublishSelectionCompleted(ctx, event); err != nil {
		c.Logger().Warnf("session %s: publish selection completed: %v", s.ID, err)
	}
}

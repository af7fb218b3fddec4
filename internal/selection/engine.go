// Package selection implements the click-driven seat picker.  An Engine
// owns the selection of a single user: the number of seats requested, the
// budget still open and the seats chosen so far.  It is not safe for
// concurrent use; callers serialise events per engine.
package selection

import (
	"errors"
	"fmt"
	"sort"

	"github.com/iliyamo/seat-picker/internal/layout"
)

// MaxQuantity is the largest number of seats a user may request.
const MaxQuantity = 10

var (
	// ErrInvalidQuantity is returned for a requested quantity outside
	// 1..MaxQuantity.  The engine state is left untouched.
	ErrInvalidQuantity = errors.New("invalid quantity")
	// ErrUnknownSeat is returned for coordinates the layout does not
	// contain, whether the row or only the column is wrong.
	ErrUnknownSeat = layout.ErrUnknownSeat
)

// StopReason tells why the rightward walk after a click ended.
type StopReason uint8

const (
	StopNone     StopReason = iota // click was a no-op
	StopEndOfRow                   // ran out of seats in the row
	StopBlocked                    // next seat is permanently blocked
	StopBudget                     // no seats left to pick
)

func (r StopReason) String() string {
	switch r {
	case StopEndOfRow:
		return "end_of_row"
	case StopBlocked:
		return "blocked"
	case StopBudget:
		return "budget"
	}
	return "none"
}

// MarshalText encodes the reason for JSON responses.
func (r StopReason) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// Walk summarises the effect of the last click.
type Walk struct {
	Toggled int        // seats whose state changed, clicked seat included
	Stop    StopReason // why the walk ended
}

// State is a snapshot handed to the renderer after every event.
type State struct {
	RequiredQuantity int              `json:"required_quantity"`
	Remaining        int              `json:"remaining"`
	Selected         []layout.SeatRef `json:"selected"`
}

// Engine holds one selection over an immutable layout.
type Engine struct {
	layout    *layout.Layout
	required  int
	remaining int
	selected  map[layout.SeatRef]bool
	last      Walk
}

// New returns an engine in its initial state: one seat requested, one
// seat left, nothing selected.
func New(l *layout.Layout) *Engine {
	return &Engine{
		layout:    l,
		required:  1,
		remaining: 1,
		selected:  make(map[layout.SeatRef]bool),
	}
}

// Layout returns the layout the engine selects from.
func (e *Engine) Layout() *layout.Layout { return e.layout }

// SetRequiredQuantity resets the budget to n.  Seats that are already
// selected stay selected; only later clicks reconcile them with the new
// budget.
func (e *Engine) SetRequiredQuantity(n int) error {
	if n < 1 || n > MaxQuantity {
		return fmt.Errorf("%w: %d (want 1..%d)", ErrInvalidQuantity, n, MaxQuantity)
	}
	e.required = n
	e.remaining = n
	return nil
}

// HandleSeatClick applies a click on ref and returns the new state.
//
// A click on a selected seat deselects it; a click on a free seat selects
// it as long as budget is left, otherwise nothing happens.  The seats to
// the right of the clicked one are then toggled one by one until the row
// ends, a blocked seat is reached or the budget is used up.  Clicks on
// blocked seats are ignored.
func (e *Engine) HandleSeatClick(ref layout.SeatRef) (State, error) {
	blocked, err := e.layout.IsBlocked(ref.Row, ref.Col)
	if err != nil {
		return e.CurrentState(), unknownSeat(err)
	}
	e.last = Walk{}
	if blocked {
		return e.CurrentState(), nil
	}
	if e.remaining == 0 && !e.selected[ref] {
		return e.CurrentState(), nil
	}

	e.toggle(ref)
	e.last.Toggled = 1

	rowLen, _ := e.layout.Len(ref.Row)
	for col := ref.Col + 1; ; col++ {
		if col > rowLen {
			e.last.Stop = StopEndOfRow
			break
		}
		next := layout.SeatRef{Row: ref.Row, Col: col}
		if b, _ := e.layout.IsBlocked(next.Row, next.Col); b {
			e.last.Stop = StopBlocked
			break
		}
		if e.remaining == 0 {
			e.last.Stop = StopBudget
			break
		}
		e.toggle(next)
		e.last.Toggled++
	}
	return e.CurrentState(), nil
}

func unknownSeat(err error) error {
	if errors.Is(err, layout.ErrUnknownRow) {
		return fmt.Errorf("%w: %w", ErrUnknownSeat, err)
	}
	return err
}

func (e *Engine) toggle(ref layout.SeatRef) {
	if e.selected[ref] {
		delete(e.selected, ref)
		e.remaining++
		return
	}
	e.selected[ref] = true
	e.remaining--
}

// LastWalk reports what the most recent click did.
func (e *Engine) LastWalk() Walk { return e.last }

// CurrentState returns a snapshot; selected seats are ordered top to
// bottom, left to right.
func (e *Engine) CurrentState() State {
	refs := make([]layout.SeatRef, 0, len(e.selected))
	for ref := range e.selected {
		refs = append(refs, ref)
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].Row != refs[j].Row {
			pi, _ := e.layout.RowPosition(refs[i].Row)
			pj, _ := e.layout.RowPosition(refs[j].Row)
			return pi < pj
		}
		return refs[i].Col < refs[j].Col
	})
	return State{
		RequiredQuantity: e.required,
		Remaining:        e.remaining,
		Selected:         refs,
	}
}

// IsSelected reports whether ref is part of the selection.
func (e *Engine) IsSelected(ref layout.SeatRef) bool { return e.selected[ref] }

// SeatState combines the layout and the selection for one seat.
func (e *Engine) SeatState(ref layout.SeatRef) (layout.SeatState, error) {
	blocked, err := e.layout.IsBlocked(ref.Row, ref.Col)
	switch {
	case err != nil:
		return layout.Available, unknownSeat(err)
	case blocked:
		return layout.Blocked, nil
	case e.selected[ref]:
		return layout.Selected, nil
	}
	return layout.Available, nil
}

// Complete reports whether the requested number of seats has been picked.
func (e *Engine) Complete() bool {
	return e.remaining == 0 && len(e.selected) > 0
}

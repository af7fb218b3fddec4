package handler

import (
	"fmt"

	"github.com/iliyamo/seat-picker/internal/layout"
	"github.com/iliyamo/seat-picker/internal/selection"
)

const maxQuantity = selection.MaxQuantity

type seatOut struct {
	Col    int              `json:"col"`
	Number int              `json:"number"`
	Label  string           `json:"label"`
	State  layout.SeatState `json:"state"`
}

// rowOut is one row of the seat matrix.  ClassHeader marks the rows where
// a new class section starts, so a renderer can print the class name once
// above the rows that inherit it.
type rowOut struct {
	Label       string    `json:"label"`
	Class       string    `json:"class"`
	ClassHeader bool      `json:"class_header"`
	Seats       []seatOut `json:"seats"`
}

// renderRows walks the layout in display order.  With a nil engine every
// seat is either available or blocked.
func renderRows(l *layout.Layout, e *selection.Engine) ([]rowOut, error) {
	rows := l.Rows()
	matrix := l.BuildSeatMatrix()
	out := make([]rowOut, 0, len(rows))
	for _, r := range rows {
		class, err := l.EffectiveClass(r.Label)
		if err != nil {
			return nil, err
		}
		nums := matrix[r.Label]
		ro := rowOut{
			Label:       r.Label,
			Class:       class,
			ClassHeader: r.SeatClass != "",
			Seats:       make([]seatOut, 0, len(nums)),
		}
		for i, n := range nums {
			ref := layout.SeatRef{Row: r.Label, Col: i + 1}
			var st layout.SeatState
			if e != nil {
				st, err = e.SeatState(ref)
			} else {
				st, err = plainState(l, ref)
			}
			if err != nil {
				return nil, err
			}
			ro.Seats = append(ro.Seats, seatOut{
				Col:    ref.Col,
				Number: n,
				Label:  fmt.Sprintf("%s%d", r.Label, n),
				State:  st,
			})
		}
		out = append(out, ro)
	}
	return out, nil
}

func plainState(l *layout.Layout, ref layout.SeatRef) (layout.SeatState, error) {
	blocked, err := l.IsBlocked(ref.Row, ref.Col)
	if err != nil {
		return layout.Available, err
	}
	if blocked {
		return layout.Blocked, nil
	}
	return layout.Available, nil
}

// seatLabels converts refs into printed labels such as C9.
func seatLabels(l *layout.Layout, refs []layout.SeatRef) ([]string, error) {
	labels := make([]string, 0, len(refs))
	for _, ref := range refs {
		s, err := l.Label(ref)
		if err != nil {
			return nil, err
		}
		labels = append(labels, s)
	}
	return labels, nil
}

// Package layout describes the seating map of a venue: its rows, the seat
// numbering range of each row, the seats that can never be sold and the
// seat class of every row.  A Layout is built once and never changes
// afterwards, so it can be shared freely between selection sessions.
package layout

import (
	"errors"
	"fmt"
	"strings"
)

// Size limits of a layout.  Every click walks at most one row, so a row
// never holds more than MaxRowLen seats.
const (
	MaxRowLen = 15
	MaxRows   = 64
)

var (
	// ErrEmptyLayout is returned when a layout has no rows at all.
	ErrEmptyLayout = errors.New("layout has no rows")
	// ErrInvalidRow is returned for a row with an empty or duplicate label,
	// an inverted seat range or more than MaxRowLen seats.
	ErrInvalidRow = errors.New("invalid row")
	// ErrMissingClass is returned when the first row has no seat class to
	// be inherited by the rows that follow it.
	ErrMissingClass = errors.New("first row has no seat class")
	// ErrUnknownRow is returned when a row label is not part of the layout.
	ErrUnknownRow = errors.New("unknown row")
	// ErrUnknownSeat is returned when a column lies outside its row.
	ErrUnknownSeat = errors.New("unknown seat")
)

// Row is a single physical line of seats.  BlockedOffsets are 1-based
// positions inside the row, not printed seat numbers.  An empty SeatClass
// means the row takes the class of the row above it.
type Row struct {
	Label          string // e.g. A, B, AA
	FirstSeatNo    int    // printed number of the leftmost seat
	LastSeatNo     int    // printed number of the rightmost seat
	BlockedOffsets []int  // positions that are permanently unavailable
	SeatClass      string // Club, Executive ... (empty = inherited)
}

// Len returns the number of seats in the row.
func (r Row) Len() int { return r.LastSeatNo - r.FirstSeatNo + 1 }

// SeatRef identifies a seat by row label and 1-based column offset.
type SeatRef struct {
	Row string `json:"row"`
	Col int    `json:"col"`
}

func (s SeatRef) String() string { return fmt.Sprintf("%s@%d", s.Row, s.Col) }

// Layout is an immutable, ordered set of rows.
type Layout struct {
	rows    []Row
	index   map[string]int
	blocked []map[int]bool
}

// New validates rows and freezes them into a Layout.  The slice order is
// the physical order of the rows, top to bottom.
func New(rows []Row) (*Layout, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyLayout
	}
	if len(rows) > MaxRows {
		return nil, fmt.Errorf("%w: %d rows, at most %d", ErrInvalidRow, len(rows), MaxRows)
	}
	l := &Layout{
		rows:    make([]Row, len(rows)),
		index:   make(map[string]int, len(rows)),
		blocked: make([]map[int]bool, len(rows)),
	}
	for i, r := range rows {
		r.Label = strings.TrimSpace(r.Label)
		if r.Label == "" {
			return nil, fmt.Errorf("%w: row %d has no label", ErrInvalidRow, i+1)
		}
		if _, dup := l.index[r.Label]; dup {
			return nil, fmt.Errorf("%w: duplicate label %q", ErrInvalidRow, r.Label)
		}
		if r.FirstSeatNo < 1 || r.FirstSeatNo > r.LastSeatNo {
			return nil, fmt.Errorf("%w: row %q range %d-%d", ErrInvalidRow, r.Label, r.FirstSeatNo, r.LastSeatNo)
		}
		if r.LastSeatNo-r.FirstSeatNo >= MaxRowLen {
			return nil, fmt.Errorf("%w: row %q has more than %d seats", ErrInvalidRow, r.Label, MaxRowLen)
		}
		if i == 0 && r.SeatClass == "" {
			return nil, fmt.Errorf("%w: row %q", ErrMissingClass, r.Label)
		}
		// offsets outside the row are tolerated and simply never match
		set := make(map[int]bool, len(r.BlockedOffsets))
		offsets := make([]int, 0, len(r.BlockedOffsets))
		for _, off := range r.BlockedOffsets {
			if !set[off] {
				set[off] = true
				offsets = append(offsets, off)
			}
		}
		r.BlockedOffsets = offsets
		l.rows[i] = r
		l.index[r.Label] = i
		l.blocked[i] = set
	}
	return l, nil
}

// Rows returns a copy of the rows in physical order.
func (l *Layout) Rows() []Row {
	out := make([]Row, len(l.rows))
	for i, r := range l.rows {
		r.BlockedOffsets = append([]int(nil), r.BlockedOffsets...)
		out[i] = r
	}
	return out
}

// Order returns the row labels top to bottom.
func (l *Layout) Order() []string {
	out := make([]string, len(l.rows))
	for i, r := range l.rows {
		out[i] = r.Label
	}
	return out
}

// Row looks up a row by label.
func (l *Layout) Row(label string) (Row, bool) {
	i, ok := l.index[label]
	if !ok {
		return Row{}, false
	}
	return l.rows[i], true
}

// Len returns the number of seats of the given row.
func (l *Layout) Len(label string) (int, error) {
	i, err := l.rowIndex(label)
	if err != nil {
		return 0, err
	}
	return l.rows[i].Len(), nil
}

// BuildSeatMatrix lists the printed seat numbers of every row in
// ascending order.  Use Order to walk the rows top to bottom.
func (l *Layout) BuildSeatMatrix() map[string][]int {
	m := make(map[string][]int, len(l.rows))
	for _, r := range l.rows {
		nums := make([]int, 0, r.Len())
		for col := 1; col <= r.Len(); col++ {
			nums = append(nums, r.FirstSeatNo+col-1)
		}
		m[r.Label] = nums
	}
	return m
}

// IsBlocked reports whether the seat at col (1-based) is permanently
// unavailable.
func (l *Layout) IsBlocked(label string, col int) (bool, error) {
	i, err := l.seatIndex(label, col)
	if err != nil {
		return false, err
	}
	return l.blocked[i][col], nil
}

// EffectiveClass resolves the seat class of a row, walking back up the
// layout until a row with an explicit class is found.
func (l *Layout) EffectiveClass(label string) (string, error) {
	i, err := l.rowIndex(label)
	if err != nil {
		return "", err
	}
	for ; i >= 0; i-- {
		if c := l.rows[i].SeatClass; c != "" {
			return c, nil
		}
	}
	// New guarantees the first row carries a class
	return "", fmt.Errorf("%w: row %q", ErrMissingClass, label)
}

// SeatNumber converts a seat reference into its printed seat number.
func (l *Layout) SeatNumber(ref SeatRef) (int, error) {
	i, err := l.seatIndex(ref.Row, ref.Col)
	if err != nil {
		return 0, err
	}
	return l.rows[i].FirstSeatNo + ref.Col - 1, nil
}

// Offset converts a printed seat number into its column offset.
func (l *Layout) Offset(label string, seatNo int) (int, error) {
	i, err := l.rowIndex(label)
	if err != nil {
		return 0, err
	}
	r := l.rows[i]
	if seatNo < r.FirstSeatNo || seatNo > r.LastSeatNo {
		return 0, fmt.Errorf("%w: row %q seat %d", ErrUnknownSeat, label, seatNo)
	}
	return seatNo - r.FirstSeatNo + 1, nil
}

// Label renders a seat reference the way it is printed on a ticket, e.g. A7.
func (l *Layout) Label(ref SeatRef) (string, error) {
	n, err := l.SeatNumber(ref)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d", ref.Row, n), nil
}

// RowPosition returns the physical index of a row, used for ordering.
func (l *Layout) RowPosition(label string) (int, error) {
	return l.rowIndex(label)
}

func (l *Layout) rowIndex(label string) (int, error) {
	i, ok := l.index[label]
	if !ok {
		return -1, fmt.Errorf("%w: %q", ErrUnknownRow, label)
	}
	return i, nil
}

func (l *Layout) seatIndex(label string, col int) (int, error) {
	i, err := l.rowIndex(label)
	if err != nil {
		return -1, err
	}
	if col < 1 || col > l.rows[i].Len() {
		return -1, fmt.Errorf("%w: row %q col %d", ErrUnknownSeat, label, col)
	}
	return i, nil
}

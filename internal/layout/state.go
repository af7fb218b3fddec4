package layout

import "fmt"

// SeatState is what a renderer needs to know about one seat.
type SeatState uint8

const (
	Available SeatState = iota
	Selected
	Blocked
)

func (s SeatState) String() string {
	switch s {
	case Available:
		return "available"
	case Selected:
		return "selected"
	case Blocked:
		return "blocked"
	}
	return fmt.Sprintf("SeatState(%d)", uint8(s))
}

// MarshalText encodes the state as its lower-case name.
func (s SeatState) MarshalText() ([]byte, error) {
	switch s {
	case Available, Selected, Blocked:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("unknown seat state %d", uint8(s))
}

// UnmarshalText decodes the lower-case state name.
func (s *SeatState) UnmarshalText(b []byte) error {
	switch string(b) {
	case "available":
		*s = Available
	case "selected":
		*s = Selected
	case "blocked":
		*s = Blocked
	default:
		return fmt.Errorf("unknown seat state %q", string(b))
	}
	return nil
}

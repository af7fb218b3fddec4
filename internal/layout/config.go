package layout

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// ErrInvalidConfig is returned when a layout document cannot be decoded.
var ErrInvalidConfig = errors.New("invalid layout config")

// DefaultConfig is the demo venue shipped with the service.  Rows without
// a class inherit it from the row above.
const DefaultConfig = `{
  "A": [1, 15, [3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15], "Club"],
  "B": [3, 15, [2, 5, 8]],
  "C": [7, 15, [7, 8, 9, 10, 11, 12, 14], "Executive"],
  "D": [7, 15, [10, 11, 12, 13, 14, 15]],
  "E": [7, 15],
  "F": [7, 15],
  "G": [3, 15, [4, 7, 10, 15]],
  "H": [3, 15],
  "I": [3, 15],
  "J": [3, 15]
}`

// Default builds the demo venue.
func Default() *Layout {
	rows, err := ParseConfig([]byte(DefaultConfig))
	if err != nil {
		panic(err)
	}
	l, err := New(rows)
	if err != nil {
		panic(err)
	}
	return l
}

// ParseConfig decodes a layout document of the form
//
//	{ "A": [firstSeatNo, lastSeatNo, [blockedOffsets...], "Class"], ... }
//
// where the last two members are optional.  Rows are returned in document
// order, which is the physical order of the venue, so the object is read
// token by token instead of through a map.
func ParseConfig(data []byte) ([]Row, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: expected object", ErrInvalidConfig)
	}

	var rows []Row
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		label, _ := tok.(string)

		var members []json.RawMessage
		if err := dec.Decode(&members); err != nil {
			return nil, fmt.Errorf("%w: row %q: %v", ErrInvalidConfig, label, err)
		}
		row, err := parseRow(label, members)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after layout object", ErrInvalidConfig)
	}
	return rows, nil
}

func parseRow(label string, members []json.RawMessage) (Row, error) {
	row := Row{Label: label}
	if len(members) < 2 || len(members) > 4 {
		return row, fmt.Errorf("%w: row %q needs 2 to 4 members, got %d", ErrInvalidConfig, label, len(members))
	}
	if err := json.Unmarshal(members[0], &row.FirstSeatNo); err != nil {
		return row, fmt.Errorf("%w: row %q first seat: %v", ErrInvalidConfig, label, err)
	}
	if err := json.Unmarshal(members[1], &row.LastSeatNo); err != nil {
		return row, fmt.Errorf("%w: row %q last seat: %v", ErrInvalidConfig, label, err)
	}
	if len(members) > 2 {
		// null is allowed so that a class can follow without blocked seats
		if err := json.Unmarshal(members[2], &row.BlockedOffsets); err != nil {
			return row, fmt.Errorf("%w: row %q blocked seats: %v", ErrInvalidConfig, label, err)
		}
	}
	if len(members) > 3 {
		var class *string
		if err := json.Unmarshal(members[3], &class); err != nil {
			return row, fmt.Errorf("%w: row %q class: %v", ErrInvalidConfig, label, err)
		}
		if class != nil {
			row.SeatClass = *class
		}
	}
	return row, nil
}

// MarshalConfig encodes rows back into the layout document format,
// keeping their order.
func MarshalConfig(rows []Row) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(r.Label)
		if err != nil {
			return nil, err
		}
		members := []any{r.FirstSeatNo, r.LastSeatNo}
		switch {
		case r.SeatClass != "":
			members = append(members, nonNil(r.BlockedOffsets), r.SeatClass)
		case len(r.BlockedOffsets) > 0:
			members = append(members, r.BlockedOffsets)
		}
		val, err := json.Marshal(members)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func nonNil(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}

package model

import (
	"encoding/json"
	"time"
)

// DateLayout is the calendar date format used on the wire.
const DateLayout = "2006-01-02"

const day = 24 * time.Hour

// Stay is the date range of a reservation.  Both dates are calendar days
// stored as UTC midnight; CheckOut is the departure day and is not a night.
type Stay struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// NewStay truncates both instants to their UTC calendar day.
func NewStay(checkIn, checkOut time.Time) Stay {
	return Stay{CheckIn: DateOf(checkIn), CheckOut: DateOf(checkOut)}
}

// ParseStay parses two YYYY-MM-DD dates.  Unparseable input is reported as
// ErrInvalidDateRange; ordering is checked separately by Valid.
func ParseStay(from, to string) (Stay, error) {
	in, err := time.Parse(DateLayout, from)
	if err != nil {
		return Stay{}, ErrInvalidDateRange
	}
	out, err := time.Parse(DateLayout, to)
	if err != nil {
		return Stay{}, ErrInvalidDateRange
	}
	return NewStay(in, out), nil
}

// DateOf returns the calendar day of t (in t's location) as UTC midnight.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Valid reports checkIn < checkOut.
func (s Stay) Valid() bool {
	return s.CheckIn.Before(s.CheckOut)
}

// Nights is the ceiling of the stay length in days; zero for an empty or
// inverted stay.
func (s Stay) Nights() int {
	d := s.CheckOut.Sub(s.CheckIn)
	if d <= 0 {
		return 0
	}
	n := int(d / day)
	if d%day != 0 {
		n++
	}
	return n
}

// Overlaps uses half-open intervals: a stay checking out on the day another
// checks in does not overlap it.
func (s Stay) Overlaps(o Stay) bool {
	return s.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(s.CheckOut)
}

func (s Stay) String() string {
	return s.CheckIn.Format(DateLayout) + ".." + s.CheckOut.Format(DateLayout)
}

type stayJSON struct {
	CheckIn  string `json:"checkIn"`
	CheckOut string `json:"checkOut"`
}

func (s Stay) MarshalJSON() ([]byte, error) {
	return json.Marshal(stayJSON{
		CheckIn:  s.CheckIn.Format(DateLayout),
		CheckOut: s.CheckOut.Format(DateLayout),
	})
}

func (s *Stay) UnmarshalJSON(b []byte) error {
	var raw stayJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	parsed, err := ParseStay(raw.CheckIn, raw.CheckOut)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

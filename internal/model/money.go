package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money is an amount in cents.  All prices, deposits and totals are kept as
// integer cents so that sums and differences never leak rounding error; the
// decimal form only exists at the JSON boundary.
type Money int64

// Cents returns m as a plain integer.
func (m Money) Cents() int64 { return int64(m) }

// String renders m with exactly two decimals, e.g. 1382.40.
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON encodes m as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// ParseMoney parses a decimal amount with at most two fractional digits.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty amount")
	}
	neg := false
	if s[0] == '-' {
		neg = true
		s = s[1:]
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimals", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || f < 0 {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	v := w*100 + f
	if neg {
		v = -v
	}
	return Money(v), nil
}

// Percent is a whole-number percentage used for season multipliers,
// discounts and deposit tiers (200 means x2.00, 10 means 10%).
type Percent int

// Fraction renders p as a decimal fraction with two places, e.g. 0.80.
func (p Percent) Fraction() string {
	return Money(p).String()
}

func (p Percent) MarshalJSON() ([]byte, error) {
	return []byte(p.Fraction()), nil
}

func (p *Percent) UnmarshalJSON(b []byte) error {
	var m Money
	if err := m.UnmarshalJSON(b); err != nil {
		return err
	}
	*p = Percent(m)
	return nil
}

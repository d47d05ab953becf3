package model

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStay_NightsAndOverlap(t *testing.T) {
	t.Parallel()

	s := NewStay(date(2025, 6, 1), date(2025, 6, 5))
	if got := s.Nights(); got != 4 {
		t.Fatalf("expected 4 nights, got %d", got)
	}
	if !s.Valid() {
		t.Fatalf("expected stay to be valid")
	}
	if NewStay(date(2025, 6, 5), date(2025, 6, 5)).Nights() != 0 {
		t.Fatalf("expected zero nights for empty stay")
	}

	partial := Stay{CheckIn: date(2025, 6, 1), CheckOut: date(2025, 6, 2).Add(3 * time.Hour)}
	if got := partial.Nights(); got != 2 {
		t.Fatalf("expected nights to round up to 2, got %d", got)
	}

	cases := []struct {
		name string
		a, b Stay
		want bool
	}{
		{"same range", s, s, true},
		{"back to back", s, NewStay(date(2025, 6, 5), date(2025, 6, 7)), false},
		{"inner", s, NewStay(date(2025, 6, 2), date(2025, 6, 3)), true},
		{"tail overlap", s, NewStay(date(2025, 6, 4), date(2025, 6, 9)), true},
		{"before", s, NewStay(date(2025, 5, 1), date(2025, 6, 1)), false},
	}
	for _, tc := range cases {
		if got := tc.a.Overlaps(tc.b); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
		if got := tc.b.Overlaps(tc.a); got != tc.want {
			t.Fatalf("%s (swapped): expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestParseStay(t *testing.T) {
	t.Parallel()

	s, err := ParseStay("2026-02-14", "2026-02-19")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if s.Nights() != 5 {
		t.Fatalf("expected 5 nights, got %d", s.Nights())
	}
	if _, err := ParseStay("14/02/2026", "2026-02-19"); !errors.Is(err, ErrInvalidDateRange) {
		t.Fatalf("expected ErrInvalidDateRange, got %v", err)
	}

	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `{"checkIn":"2026-02-14","checkOut":"2026-02-19"}` {
		t.Fatalf("unexpected stay json %s", b)
	}
}

func TestMoney(t *testing.T) {
	t.Parallel()

	if got := Money(138240).String(); got != "1382.40" {
		t.Fatalf("expected 1382.40, got %s", got)
	}
	if got := Money(-5).String(); got != "-0.05" {
		t.Fatalf("expected -0.05, got %s", got)
	}
	for in, want := range map[string]Money{"1200": 120000, "0.3": 30, "12.34": 1234, "-1.50": -150} {
		got, err := ParseMoney(in)
		if err != nil {
			t.Fatalf("parse %q: %v", in, err)
		}
		if got != want {
			t.Fatalf("parse %q: expected %d, got %d", in, want, got)
		}
	}
	if _, err := ParseMoney("1.234"); err == nil {
		t.Fatalf("expected error for three decimals")
	}

	var m Money
	if err := json.Unmarshal([]byte(`300.00`), &m); err != nil || m != 30000 {
		t.Fatalf("expected 30000, got %d (%v)", m, err)
	}
	if got := Percent(80).Fraction(); got != "0.80" {
		t.Fatalf("expected 0.80, got %s", got)
	}
}

func TestBedSelection(t *testing.T) {
	t.Parallel()

	sel := BedSelection{"b": {3, 1, 3}, "a": {2}, "empty": nil}.Normalize()
	if !reflect.DeepEqual(sel, BedSelection{"a": {2}, "b": {1, 3}}) {
		t.Fatalf("unexpected normalized selection %v", sel)
	}
	if sel.Count() != 3 {
		t.Fatalf("expected 3 beds, got %d", sel.Count())
	}
	want := []Bed{{"a", 2}, {"b", 1}, {"b", 3}}
	if got := sel.Beds(); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	clone := sel.Clone()
	clone["a"][0] = 99
	if sel["a"][0] != 2 {
		t.Fatalf("clone shares backing array with original")
	}
}

func TestHold_EffectiveStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	h := Hold{Status: HoldStatusPending, ExpiresAt: now}
	if h.EffectiveStatus(now) != HoldStatusExpired {
		t.Fatalf("hold at its deadline must be expired")
	}
	if h.Occupies(now) {
		t.Fatalf("expired hold must not occupy beds")
	}
	h.ExpiresAt = now.Add(time.Second)
	if !h.Occupies(now) {
		t.Fatalf("live pending hold must occupy beds")
	}
	h.Status = HoldStatusConfirmed
	h.ExpiresAt = now.Add(-time.Hour)
	if !h.Occupies(now) {
		t.Fatalf("confirmed hold occupies beds regardless of deadline")
	}
}

func TestErrorsUnwrap(t *testing.T) {
	t.Parallel()

	var err error = &OverbookingError{Beds: []Bed{{"mixed-12a", 4}}}
	if !errors.Is(err, ErrOverbookingConflict) {
		t.Fatalf("expected OverbookingError to unwrap to ErrOverbookingConflict")
	}
	err = &CarnivalMinimumNightsError{Nights: 2, Minimum: 5}
	if !errors.Is(err, ErrCarnivalMinimumNights) {
		t.Fatalf("expected CarnivalMinimumNightsError to unwrap")
	}
}

package model

import (
	"sort"
	"time"
)

// HoldStatus is the lifecycle state of a Hold.  Only pending is non-terminal.
type HoldStatus string

const (
	HoldStatusPending   HoldStatus = "pending"
	HoldStatusConfirmed HoldStatus = "confirmed"
	HoldStatusReleased  HoldStatus = "released"
	HoldStatusExpired   HoldStatus = "expired"
)

// Terminal reports whether no further transition is possible from s.
func (s HoldStatus) Terminal() bool {
	return s != HoldStatusPending
}

// ParseHoldStatus returns the status named by v.
func ParseHoldStatus(v string) (HoldStatus, bool) {
	switch s := HoldStatus(v); s {
	case HoldStatusPending, HoldStatusConfirmed, HoldStatusReleased, HoldStatusExpired:
		return s, true
	}
	return "", false
}

// BedSelection maps room IDs to the bed indexes chosen in that room.
type BedSelection map[string][]int

// Normalize returns a copy with sorted, de-duplicated indexes and without
// rooms that have no beds.
func (s BedSelection) Normalize() BedSelection {
	out := make(BedSelection, len(s))
	for roomID, beds := range s {
		if len(beds) == 0 {
			continue
		}
		seen := make(map[int]struct{}, len(beds))
		uniq := make([]int, 0, len(beds))
		for _, b := range beds {
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			uniq = append(uniq, b)
		}
		sort.Ints(uniq)
		out[roomID] = uniq
	}
	return out
}

// Count is the total number of beds across all rooms.
func (s BedSelection) Count() int {
	n := 0
	for _, beds := range s {
		n += len(beds)
	}
	return n
}

// RoomIDs returns the selected rooms in sorted order.  The order matters:
// room locks are always taken in this order.
func (s BedSelection) RoomIDs() []string {
	ids := make([]string, 0, len(s))
	for id, beds := range s {
		if len(beds) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Beds flattens the selection, ordered by room then index.
func (s BedSelection) Beds() []Bed {
	out := make([]Bed, 0, s.Count())
	for _, roomID := range s.RoomIDs() {
		beds := append([]int(nil), s[roomID]...)
		sort.Ints(beds)
		for _, idx := range beds {
			out = append(out, Bed{RoomID: roomID, Index: idx})
		}
	}
	return out
}

// Clone deep-copies the selection.
func (s BedSelection) Clone() BedSelection {
	if s == nil {
		return nil
	}
	out := make(BedSelection, len(s))
	for k, v := range s {
		out[k] = append([]int(nil), v...)
	}
	return out
}

// GuestCounts is the gender split of the party, used by the female-room rule.
type GuestCounts struct {
	Male   int `json:"male" validate:"min=0"`
	Female int `json:"female" validate:"min=0"`
}

func (g GuestCounts) Total() int { return g.Male + g.Female }

// HasFemale is true when the party may take beds in a female room.
func (g GuestCounts) HasFemale() bool { return g.Female >= 1 }

// FemaleOnly is true for a party with no male guests.  Only such a party
// keeps a flexible room female inside its opening window.
func (g GuestCounts) FemaleOnly() bool { return g.Male == 0 && g.Female >= 1 }

// Guest carries the optional contact details copied onto the booking.
type Guest struct {
	Name  string `json:"name,omitempty" validate:"max=120"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// Season names the pricing season of a stay.
type Season string

const (
	SeasonCarnival Season = "carnival"
	SeasonHigh     Season = "high"
	SeasonLow      Season = "low"
	SeasonMedium   Season = "medium"
)

// PriceSnapshot is the quote frozen onto a Hold at creation.  It is never
// recomputed: the amount charged is the amount quoted.
type PriceSnapshot struct {
	Nights               int     `json:"nights"`
	TotalBeds            int     `json:"totalBeds"`
	BasePricePerBedNight Money   `json:"basePricePerBedNight"`
	Subtotal             Money   `json:"subtotal"`
	Season               Season  `json:"season"`
	SeasonMultiplier     Percent `json:"seasonMultiplier"`
	GroupDiscount        Percent `json:"groupDiscount"`
	Total                Money   `json:"total"`
	DepositPercent       Percent `json:"depositPercent"`
	DepositAmount        Money   `json:"depositAmount"`
	RemainingAmount      Money   `json:"remainingAmount"`
}

// Hold is a time-limited claim on specific beds for a stay.  Holds are
// never deleted; a terminal status is kept as the audit record.
type Hold struct {
	ID              string        `json:"id"`
	Beds            BedSelection  `json:"beds"`
	Stay            Stay          `json:"stay"`
	Guests          GuestCounts   `json:"guestCounts"`
	Guest           Guest         `json:"guest"`
	PriceSnapshot   PriceSnapshot `json:"priceSnapshot"`
	DepositAmount   Money         `json:"depositAmount"`
	RemainingAmount Money         `json:"remainingAmount"`
	IdempotencyKey  string        `json:"-"`
	CreatedAt       time.Time     `json:"createdAt"`
	ExpiresAt       time.Time     `json:"expiresAt"`
	Status          HoldStatus    `json:"status"`
}

// PastDeadline is the computed half of expiry: a pending hold whose
// deadline has passed is expired even before the sweep stores it.
func (h Hold) PastDeadline(now time.Time) bool {
	return h.Status == HoldStatusPending && !h.ExpiresAt.After(now)
}

// EffectiveStatus folds the computed expiry into the stored status.
func (h Hold) EffectiveStatus(now time.Time) HoldStatus {
	if h.PastDeadline(now) {
		return HoldStatusExpired
	}
	return h.Status
}

// Occupies reports whether h still claims its beds at now.
func (h Hold) Occupies(now time.Time) bool {
	switch h.EffectiveStatus(now) {
	case HoldStatusPending, HoldStatusConfirmed:
		return true
	}
	return false
}

// Clone deep-copies h so stores never share the Beds map with callers.
func (h Hold) Clone() Hold {
	h.Beds = h.Beds.Clone()
	return h
}

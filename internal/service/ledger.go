package service

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/hostel-bed-reservation/internal/clock"
	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// RoomCatalog is the read side of the room catalog.
type RoomCatalog interface {
	ListRooms() []model.Room
	Room(id string) (model.Room, bool)
}

const defaultFlexibleWindow = 48 * time.Hour

// Ledger answers occupancy questions from the current store state.  It
// holds no state of its own.
type Ledger struct {
	holds          HoldRepository
	catalog        RoomCatalog
	clock          clock.Clock
	flexibleWindow time.Duration
	loc            *time.Location
}

// NewLedger returns a ledger over holds.  loc is the hostel's time zone;
// check-in days start at midnight there.
func NewLedger(holds HoldRepository, catalog RoomCatalog, clk clock.Clock, flexibleWindow time.Duration, loc *time.Location) *Ledger {
	if flexibleWindow <= 0 {
		flexibleWindow = defaultFlexibleWindow
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Ledger{holds: holds, catalog: catalog, clock: clk, flexibleWindow: flexibleWindow, loc: loc}
}

// OccupiedBeds returns the sorted bed indexes of roomID claimed for any
// night of stay.
func (l *Ledger) OccupiedBeds(ctx context.Context, roomID string, stay model.Stay) ([]int, error) {
	holds, err := l.holds.HoldsForRooms(ctx, []string{roomID}, stay)
	if err != nil {
		return nil, err
	}
	return occupancy(holds, l.clock.Now())[roomID], nil
}

// Availability returns the occupied beds of every room for stay.  Rooms
// with no occupied bed map to an empty slice.
func (l *Ledger) Availability(ctx context.Context, stay model.Stay) (map[string][]int, error) {
	rooms := l.catalog.ListRooms()
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	holds, err := l.holds.HoldsForRooms(ctx, ids, stay)
	if err != nil {
		return nil, err
	}
	occ := occupancy(holds, l.clock.Now())
	out := make(map[string][]int, len(rooms))
	for _, id := range ids {
		beds := occ[id]
		if beds == nil {
			beds = []int{}
		}
		out[id] = beds
	}
	return out, nil
}

// EffectiveRoomTypes reports the effective type of every room for stay.
func (l *Ledger) EffectiveRoomTypes(ctx context.Context, stay model.Stay) (map[string]model.RoomType, error) {
	now := l.clock.Now()
	out := make(map[string]model.RoomType)
	for _, r := range l.catalog.ListRooms() {
		t, err := l.EffectiveRoomType(ctx, r, stay, now)
		if err != nil {
			return nil, err
		}
		out[r.ID] = t
	}
	return out, nil
}

// EffectiveRoomType derives the gender policy of room for stay at now.  A
// flexible FEMALE room opens to any guest once now is within the flexible
// window before check-in, unless a female-only party already claims one of
// its beds for an overlapping stay.  Nothing is stored.
func (l *Ledger) EffectiveRoomType(ctx context.Context, room model.Room, stay model.Stay, now time.Time) (model.RoomType, error) {
	if room.Type != model.RoomTypeFemale || !room.IsFlexible {
		return room.Type, nil
	}
	if !l.withinFlexibleWindow(stay, now) {
		return model.RoomTypeFemale, nil
	}
	holds, err := l.holds.HoldsForRooms(ctx, []string{room.ID}, stay)
	if err != nil {
		return "", err
	}
	if femaleClaim(holds, room.ID, now) {
		return model.RoomTypeFemale, nil
	}
	return model.RoomTypeMixed, nil
}

// withinFlexibleWindow is true at or after check-in midnight (hostel time)
// minus the window.
func (l *Ledger) withinFlexibleWindow(stay model.Stay, now time.Time) bool {
	y, m, d := stay.CheckIn.Date()
	checkIn := time.Date(y, m, d, 0, 0, 0, 0, l.loc)
	return !now.Before(checkIn.Add(-l.flexibleWindow))
}

// today is the current calendar day in the hostel's time zone.
func (l *Ledger) today(now time.Time) time.Time {
	return model.DateOf(now.In(l.loc))
}

// occupancy folds holds into sorted bed indexes per room, ignoring holds
// that no longer claim their beds at now.
func occupancy(holds []model.Hold, now time.Time) map[string][]int {
	sets := make(map[string]map[int]struct{})
	for _, h := range holds {
		if !h.Occupies(now) {
			continue
		}
		for roomID, beds := range h.Beds {
			set, ok := sets[roomID]
			if !ok {
				set = make(map[int]struct{})
				sets[roomID] = set
			}
			for _, b := range beds {
				set[b] = struct{}{}
			}
		}
	}
	out := make(map[string][]int, len(sets))
	for roomID, set := range sets {
		beds := make([]int, 0, len(set))
		for b := range set {
			beds = append(beds, b)
		}
		sort.Ints(beds)
		out[roomID] = beds
	}
	return out
}

func femaleClaim(holds []model.Hold, roomID string, now time.Time) bool {
	for _, h := range holds {
		if h.Occupies(now) && h.Guests.FemaleOnly() && len(h.Beds[roomID]) > 0 {
			return true
		}
	}
	return false
}

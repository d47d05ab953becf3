// Package service holds the reservation state machine: bed holds, their
// confirmation into bookings and their expiry.
package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/hostel-bed-reservation/internal/clock"
	"github.com/iliyamo/hostel-bed-reservation/internal/model"
	"github.com/iliyamo/hostel-bed-reservation/internal/pricing"
)

const (
	defaultHoldTTL = 10 * time.Minute
	publishTimeout = 5 * time.Second
)

// EventPublisher receives domain events after the transition that caused
// them has committed.  Delivery is best effort.
type EventPublisher interface {
	BookingConfirmed(ctx context.Context, b model.Booking) error
	HoldClosed(ctx context.Context, h model.Hold) error
}

type nopPublisher struct{}

func (nopPublisher) BookingConfirmed(context.Context, model.Booking) error { return nil }
func (nopPublisher) HoldClosed(context.Context, model.Hold) error          { return nil }

// Publishers fans every event out to each member and joins their errors.
type Publishers []EventPublisher

func (ps Publishers) BookingConfirmed(ctx context.Context, b model.Booking) error {
	var errs []error
	for _, p := range ps {
		if err := p.BookingConfirmed(ctx, b); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ps Publishers) HoldClosed(ctx context.Context, h model.Hold) error {
	var errs []error
	for _, p := range ps {
		if err := p.HoldClosed(ctx, h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// HoldManager owns every Hold transition.  All transitions of a stored
// status go through Store.CompareAndSwapStatus, so confirm, release and the
// expiry sweep may race freely: exactly one of them wins.
type HoldManager struct {
	store          Store
	catalog        RoomCatalog
	pricing        *pricing.Engine
	clock          clock.Clock
	holdTTL        time.Duration
	flexibleWindow time.Duration
	loc            *time.Location
	publisher      EventPublisher
	ledger         *Ledger
}

type HoldManagerOption func(*HoldManager)

// WithHoldTTL overrides the lifetime of new holds.
func WithHoldTTL(d time.Duration) HoldManagerOption {
	return func(m *HoldManager) {
		if d > 0 {
			m.holdTTL = d
		}
	}
}

// WithFlexibleWindow sets how long before check-in a flexible room may open
// to every guest.
func WithFlexibleWindow(d time.Duration) HoldManagerOption {
	return func(m *HoldManager) {
		if d > 0 {
			m.flexibleWindow = d
		}
	}
}

// WithLocation sets the hostel time zone used for "today" and check-in time.
func WithLocation(loc *time.Location) HoldManagerOption {
	return func(m *HoldManager) {
		if loc != nil {
			m.loc = loc
		}
	}
}

func WithPublisher(p EventPublisher) HoldManagerOption {
	return func(m *HoldManager) {
		if p != nil {
			m.publisher = p
		}
	}
}

func NewHoldManager(store Store, catalog RoomCatalog, engine *pricing.Engine, clk clock.Clock, opts ...HoldManagerOption) *HoldManager {
	m := &HoldManager{
		store:          store,
		catalog:        catalog,
		pricing:        engine,
		clock:          clk,
		holdTTL:        defaultHoldTTL,
		flexibleWindow: defaultFlexibleWindow,
		loc:            time.UTC,
		publisher:      nopPublisher{},
	}
	for _, opt := range opts {
		opt(m)
	}
	m.ledger = NewLedger(store, catalog, clk, m.flexibleWindow, m.loc)
	return m
}

// Ledger returns the occupancy view over the same store.
func (m *HoldManager) Ledger() *Ledger { return m.ledger }

// HoldTTL is the lifetime of a new hold.
func (m *HoldManager) HoldTTL() time.Duration { return m.holdTTL }

type CreateHoldInput struct {
	Beds           model.BedSelection
	Stay           model.Stay
	Guests         model.GuestCounts
	Guest          model.Guest
	IdempotencyKey string
}

// CreateHold validates the request, then atomically checks and reserves
// the selected beds.  Validation failures are reported in a fixed order:
// date range, carnival minimum, guest counts, selection shape, occupancy,
// gender policy.
func (m *HoldManager) CreateHold(ctx context.Context, in CreateHoldInput) (model.Hold, error) {
	now := m.clock.Now()
	sel := in.Beds.Normalize()

	if err := m.validateStay(in.Stay, now); err != nil {
		return model.Hold{}, err
	}
	if in.Guests.Male < 0 || in.Guests.Female < 0 || in.Guests.Total() == 0 {
		return model.Hold{}, model.ErrInvalidGuestCounts
	}
	rooms, err := m.resolveRooms(sel)
	if err != nil {
		return model.Hold{}, err
	}
	if outOfRange := bedsOutOfRange(sel, rooms); len(outOfRange) > 0 {
		return model.Hold{}, &model.OverbookingError{Beds: outOfRange}
	}
	snapshot, err := m.pricing.Compute(in.Stay, sel)
	if err != nil {
		return model.Hold{}, err
	}

	var (
		result  model.Hold
		created bool
		expired []model.Hold
	)
	err = m.store.WithTx(ctx, func(txCtx context.Context) error {
		expired = nil
		roomIDs := sel.RoomIDs()
		if err := m.store.LockRooms(txCtx, roomIDs); err != nil {
			return err
		}
		// Looked up under the room locks so a replay racing the original
		// request sees its hold instead of a conflict with it.
		if existing, err := m.store.FindHoldByIdempotencyKey(txCtx, in.IdempotencyKey); err != nil {
			return err
		} else if existing != nil {
			return sameRequest(*existing, sel, in.Stay, now, &result)
		}

		holds, err := m.store.HoldsForRooms(txCtx, roomIDs, in.Stay)
		if err != nil {
			return err
		}
		// Holds past their deadline are flipped before occupancy is read so
		// that a confirm racing with this create loses deterministically.
		for _, h := range holds {
			if !h.PastDeadline(now) {
				continue
			}
			won, err := m.store.CompareAndSwapStatus(txCtx, h.ID, model.HoldStatusPending, model.HoldStatusExpired)
			if err != nil {
				return err
			}
			if won {
				h.Status = model.HoldStatusExpired
				expired = append(expired, h)
			}
		}

		occupied := occupancy(holds, now)
		var conflicts []model.Bed
		for _, bed := range sel.Beds() {
			if containsInt(occupied[bed.RoomID], bed.Index) {
				conflicts = append(conflicts, bed)
			}
		}
		if len(conflicts) > 0 {
			return &model.OverbookingError{Beds: conflicts}
		}

		if !in.Guests.HasFemale() {
			for _, roomID := range roomIDs {
				if m.effectiveType(rooms[roomID], in.Stay, holds, now) == model.RoomTypeFemale {
					return model.ErrFemaleOnlyRoom
				}
			}
		}

		hold := model.Hold{
			ID:              uuid.NewString(),
			Beds:            sel,
			Stay:            in.Stay,
			Guests:          in.Guests,
			Guest:           in.Guest,
			PriceSnapshot:   snapshot,
			DepositAmount:   snapshot.DepositAmount,
			RemainingAmount: snapshot.RemainingAmount,
			IdempotencyKey:  in.IdempotencyKey,
			CreatedAt:       now,
			ExpiresAt:       now.Add(m.holdTTL),
			Status:          model.HoldStatusPending,
		}
		if err := m.store.CreateHold(txCtx, hold); err != nil {
			return err
		}
		result, created = hold, true
		return nil
	})
	if errors.Is(err, model.ErrDuplicateIdempotencyKey) && in.IdempotencyKey != "" {
		// A concurrent create with the same key committed first.
		existing, findErr := m.store.FindHoldByIdempotencyKey(ctx, in.IdempotencyKey)
		if findErr == nil && existing != nil {
			err = sameRequest(*existing, sel, in.Stay, now, &result)
		}
	}
	if err != nil {
		return model.Hold{}, err
	}
	for _, h := range expired {
		m.emitHoldClosed(ctx, h)
	}
	if created {
		log.Printf("hold %s created: beds=%d stay=%s total=%s", result.ID, result.PriceSnapshot.TotalBeds, result.Stay, result.PriceSnapshot.Total)
	}
	result.Status = result.EffectiveStatus(now)
	return result, nil
}

// sameRequest accepts a replayed create only when it asks for the same beds
// and dates as the hold stored under the key, and that hold still holds them.
// A key whose hold expired or was released cannot be reused.
func sameRequest(existing model.Hold, sel model.BedSelection, stay model.Stay, now time.Time, out *model.Hold) error {
	if !existing.Stay.CheckIn.Equal(stay.CheckIn) || !existing.Stay.CheckOut.Equal(stay.CheckOut) || !sameBeds(existing.Beds, sel) {
		return model.ErrDuplicateIdempotencyKey
	}
	if !existing.Occupies(now) {
		return model.ErrDuplicateIdempotencyKey
	}
	*out = existing
	return nil
}

type QuoteInput struct {
	Beds model.BedSelection
	Stay model.Stay
}

// Quote prices a selection without reserving it.  It applies the same
// validation as CreateHold up to, but excluding, occupancy.
func (m *HoldManager) Quote(ctx context.Context, in QuoteInput) (model.PriceSnapshot, error) {
	now := m.clock.Now()
	sel := in.Beds.Normalize()
	if err := m.validateStay(in.Stay, now); err != nil {
		return model.PriceSnapshot{}, err
	}
	rooms, err := m.resolveRooms(sel)
	if err != nil {
		return model.PriceSnapshot{}, err
	}
	if outOfRange := bedsOutOfRange(sel, rooms); len(outOfRange) > 0 {
		return model.PriceSnapshot{}, &model.OverbookingError{Beds: outOfRange}
	}
	return m.pricing.Compute(in.Stay, sel)
}

type ConfirmHoldInput struct {
	HoldID         string
	IdempotencyKey string
	// Amount is the amount captured by the gateway.  When set it must equal
	// the snapshot deposit or the snapshot total.
	Amount     *model.Money
	PaymentRef string
}

type ConfirmHoldResult struct {
	Hold    model.Hold
	Booking model.Booking
	Created bool
}

// ConfirmHold turns a pending hold into a booking.  Confirming a confirmed
// hold returns the existing booking.  A hold past its deadline is never
// confirmed, whether or not the sweep has stored its expiry.
func (m *HoldManager) ConfirmHold(ctx context.Context, in ConfirmHoldInput) (ConfirmHoldResult, error) {
	now := m.clock.Now()
	var result ConfirmHoldResult
	err := m.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		result, err = m.confirm(txCtx, in, now)
		return err
	})
	return m.afterConfirm(ctx, in.HoldID, result, err)
}

// confirm runs inside the caller's transaction.
func (m *HoldManager) confirm(ctx context.Context, in ConfirmHoldInput, now time.Time) (ConfirmHoldResult, error) {
	hold, err := m.store.GetHold(ctx, in.HoldID)
	if err != nil {
		return ConfirmHoldResult{}, err
	}
	if in.IdempotencyKey != "" {
		if _, err := m.store.RecordPaymentEvent(ctx, hold.ID, in.IdempotencyKey, now); err != nil {
			return ConfirmHoldResult{}, err
		}
	}
	switch {
	case hold.Status == model.HoldStatusConfirmed:
		return m.existingConfirmation(ctx, hold)
	case hold.Status == model.HoldStatusReleased:
		return ConfirmHoldResult{}, model.ErrHoldReleased
	case hold.EffectiveStatus(now) == model.HoldStatusExpired:
		return ConfirmHoldResult{}, model.ErrHoldExpired
	}

	paymentStatus := model.PaymentDepositPaid
	if in.Amount != nil {
		switch *in.Amount {
		case hold.DepositAmount:
		case hold.PriceSnapshot.Total:
			paymentStatus = model.PaymentPaid
		default:
			return ConfirmHoldResult{}, model.ErrPaymentAmountMismatch
		}
	}

	won, err := m.store.CompareAndSwapStatus(ctx, hold.ID, model.HoldStatusPending, model.HoldStatusConfirmed)
	if err != nil {
		return ConfirmHoldResult{}, err
	}
	if !won {
		current, err := m.store.GetHold(ctx, hold.ID)
		if err != nil {
			return ConfirmHoldResult{}, err
		}
		switch current.Status {
		case model.HoldStatusConfirmed:
			return m.existingConfirmation(ctx, current)
		case model.HoldStatusReleased:
			return ConfirmHoldResult{}, model.ErrHoldReleased
		default:
			return ConfirmHoldResult{}, model.ErrHoldExpired
		}
	}
	hold.Status = model.HoldStatusConfirmed

	booking := model.NewBookingFromHold(uuid.NewString(), hold, paymentStatus, in.PaymentRef, now)
	if err := m.store.PersistBooking(ctx, booking); err != nil {
		return ConfirmHoldResult{}, err
	}
	return ConfirmHoldResult{Hold: hold, Booking: booking, Created: true}, nil
}

func (m *HoldManager) existingConfirmation(ctx context.Context, hold model.Hold) (ConfirmHoldResult, error) {
	b, err := m.store.GetBookingByHoldID(ctx, hold.ID)
	if err != nil {
		return ConfirmHoldResult{}, err
	}
	if b == nil {
		return ConfirmHoldResult{}, model.ErrBookingNotFound
	}
	return ConfirmHoldResult{Hold: hold, Booking: *b, Created: false}, nil
}

// afterConfirm runs once the confirm transaction has ended.  A hold found
// past its deadline has its expiry stored here, outside the rolled back
// transaction.
func (m *HoldManager) afterConfirm(ctx context.Context, holdID string, result ConfirmHoldResult, err error) (ConfirmHoldResult, error) {
	if errors.Is(err, model.ErrHoldExpired) {
		m.storeExpiry(ctx, holdID)
	}
	if err != nil {
		return ConfirmHoldResult{}, err
	}
	if result.Created {
		log.Printf("hold %s confirmed: booking=%s payment=%s", result.Hold.ID, result.Booking.ID, result.Booking.PaymentStatus)
		m.emitBookingConfirmed(ctx, result.Booking)
	}
	return result, nil
}

// ReleaseHold frees the beds of a pending hold.  Releasing a hold that is
// already terminal, or past its deadline, succeeds without changing it.
func (m *HoldManager) ReleaseHold(ctx context.Context, id string) (model.Hold, error) {
	var (
		hold model.Hold
		won  bool
	)
	err := m.store.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		hold, won, err = m.release(txCtx, id, m.clock.Now())
		return err
	})
	if err != nil {
		return model.Hold{}, err
	}
	if won {
		log.Printf("hold %s %s", hold.ID, hold.Status)
		m.emitHoldClosed(ctx, hold)
	}
	return hold, nil
}

// release reports whether this call performed a stored transition.
func (m *HoldManager) release(ctx context.Context, id string, now time.Time) (model.Hold, bool, error) {
	hold, err := m.store.GetHold(ctx, id)
	if err != nil {
		return model.Hold{}, false, err
	}
	if hold.Status.Terminal() {
		return hold, false, nil
	}
	to := model.HoldStatusReleased
	if hold.PastDeadline(now) {
		to = model.HoldStatusExpired
	}
	won, err := m.store.CompareAndSwapStatus(ctx, id, model.HoldStatusPending, to)
	if err != nil {
		return model.Hold{}, false, err
	}
	if !won {
		current, err := m.store.GetHold(ctx, id)
		return current, false, err
	}
	hold.Status = to
	return hold, true, nil
}

// Expire stores the expiry of every pending hold past its deadline and
// returns how many transitions this call made.  Holds that another caller
// confirmed, released or expired first are skipped.
func (m *HoldManager) Expire(ctx context.Context) (int, error) {
	now := m.clock.Now()
	ids, err := m.store.OverduePendingHolds(ctx, now)
	if err != nil {
		return 0, err
	}
	n := 0
	var errs []error
	for _, id := range ids {
		won, err := m.store.CompareAndSwapStatus(ctx, id, model.HoldStatusPending, model.HoldStatusExpired)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !won {
			continue
		}
		n++
		if h, err := m.store.GetHold(ctx, id); err == nil {
			m.emitHoldClosed(ctx, h)
		}
	}
	return n, errors.Join(errs...)
}

func (m *HoldManager) storeExpiry(ctx context.Context, id string) {
	won, err := m.store.CompareAndSwapStatus(ctx, id, model.HoldStatusPending, model.HoldStatusExpired)
	if err != nil {
		log.Printf("hold %s: store expiry: %v", id, err)
		return
	}
	if won {
		if h, err := m.store.GetHold(ctx, id); err == nil {
			m.emitHoldClosed(ctx, h)
		}
	}
}

// GetHold returns the hold with its effective status.
func (m *HoldManager) GetHold(ctx context.Context, id string) (model.Hold, error) {
	h, err := m.store.GetHold(ctx, id)
	if err != nil {
		return model.Hold{}, err
	}
	h.Status = h.EffectiveStatus(m.clock.Now())
	return h, nil
}

// ListHolds filters on effective status; an empty status lists every hold.
func (m *HoldManager) ListHolds(ctx context.Context, status model.HoldStatus) ([]model.Hold, error) {
	all, err := m.store.ListHolds(ctx, "")
	if err != nil {
		return nil, err
	}
	now := m.clock.Now()
	out := make([]model.Hold, 0, len(all))
	for _, h := range all {
		h.Status = h.EffectiveStatus(now)
		if status != "" && h.Status != status {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (m *HoldManager) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return m.store.GetBooking(ctx, id)
}

func (m *HoldManager) GetBookingByHold(ctx context.Context, holdID string) (model.Booking, error) {
	b, err := m.store.GetBookingByHoldID(ctx, holdID)
	if err != nil {
		return model.Booking{}, err
	}
	if b == nil {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return *b, nil
}

func (m *HoldManager) validateStay(stay model.Stay, now time.Time) error {
	if !stay.Valid() || stay.CheckIn.Before(m.ledger.today(now)) {
		return model.ErrInvalidDateRange
	}
	if nights := stay.Nights(); pricing.OverlapsCarnival(stay) && nights < pricing.CarnivalMinimumNights {
		return &model.CarnivalMinimumNightsError{Nights: nights, Minimum: pricing.CarnivalMinimumNights}
	}
	return nil
}

func (m *HoldManager) resolveRooms(sel model.BedSelection) (map[string]model.Room, error) {
	if sel.Count() == 0 {
		return nil, model.ErrInvalidBedSelection
	}
	rooms := make(map[string]model.Room, len(sel))
	for _, id := range sel.RoomIDs() {
		r, ok := m.catalog.Room(id)
		if !ok {
			return nil, model.ErrRoomNotFound
		}
		rooms[id] = r
	}
	return rooms, nil
}

// effectiveType is Ledger.EffectiveRoomType over holds already read under
// the room lock.
func (m *HoldManager) effectiveType(room model.Room, stay model.Stay, holds []model.Hold, now time.Time) model.RoomType {
	if room.Type != model.RoomTypeFemale || !room.IsFlexible {
		return room.Type
	}
	if !m.ledger.withinFlexibleWindow(stay, now) || femaleClaim(holds, room.ID, now) {
		return model.RoomTypeFemale
	}
	return model.RoomTypeMixed
}

func (m *HoldManager) emitBookingConfirmed(ctx context.Context, b model.Booking) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := m.publisher.BookingConfirmed(pubCtx, b); err != nil {
		log.Printf("publish booking %s confirmed: %v", b.ID, err)
	}
}

func (m *HoldManager) emitHoldClosed(ctx context.Context, h model.Hold) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := m.publisher.HoldClosed(pubCtx, h); err != nil {
		log.Printf("publish hold %s %s: %v", h.ID, h.Status, err)
	}
}

func bedsOutOfRange(sel model.BedSelection, rooms map[string]model.Room) []model.Bed {
	var out []model.Bed
	for _, bed := range sel.Beds() {
		if !rooms[bed.RoomID].HasBed(bed.Index) {
			out = append(out, bed)
		}
	}
	return out
}

func sameBeds(a, b model.BedSelection) bool {
	a, b = a.Normalize(), b.Normalize()
	if len(a) != len(b) {
		return false
	}
	for roomID, beds := range a {
		other := b[roomID]
		if len(other) != len(beds) {
			return false
		}
		for i := range beds {
			if beds[i] != other[i] {
				return false
			}
		}
	}
	return true
}

func containsInt(sorted []int, v int) bool {
	for _, x := range sorted {
		if x == v {
			return true
		}
		if x > v {
			return false
		}
	}
	return false
}

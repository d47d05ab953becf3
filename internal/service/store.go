package service

import (
	"context"
	"time"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// HoldRepository persists holds and their beds.  Methods called with a
// context returned by WithTx run inside that transaction.
type HoldRepository interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// LockRooms serializes check-then-reserve per room until the enclosing
	// transaction ends.  It must be called inside WithTx.
	LockRooms(ctx context.Context, roomIDs []string) error
	// HoldsForRooms returns pending and confirmed holds that reference any
	// of roomIDs and whose stay overlaps stay.  Pending holds past their
	// deadline are included; callers decide what to do with them.
	HoldsForRooms(ctx context.Context, roomIDs []string, stay model.Stay) ([]model.Hold, error)
	FindHoldByIdempotencyKey(ctx context.Context, key string) (*model.Hold, error)
	CreateHold(ctx context.Context, hold model.Hold) error
	GetHold(ctx context.Context, id string) (model.Hold, error)
	// CompareAndSwapStatus moves a hold from one status to another and
	// reports whether this call performed the transition.
	CompareAndSwapStatus(ctx context.Context, id string, from, to model.HoldStatus) (bool, error)
	ListHolds(ctx context.Context, status model.HoldStatus) ([]model.Hold, error)
	OverduePendingHolds(ctx context.Context, now time.Time) ([]string, error)
}

// BookingRepository persists bookings and payment notifications.
type BookingRepository interface {
	PersistBooking(ctx context.Context, b model.Booking) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetBookingByHoldID(ctx context.Context, holdID string) (*model.Booking, error)
	// RecordPaymentEvent stores (holdID, key) and reports whether it was new.
	RecordPaymentEvent(ctx context.Context, holdID, key string, at time.Time) (bool, error)
}

// Store is the single source of truth for hold and booking state.
type Store interface {
	HoldRepository
	BookingRepository
}

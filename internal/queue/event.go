// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

const (
	BookingConfirmedQueue = "booking.confirmed"
	HoldReleasedQueue     = "hold.released"
	HoldExpiredQueue      = "hold.expired"
)

// BedRef is a bed as it appears in event payloads.
type BedRef struct {
	RoomID string `json:"room_id"`
	Index  int    `json:"index"`
}

// BookingConfirmedEvent is published when a hold is confirmed into a booking.
// It contains enough information for downstream consumers to log, notify, or
// reconcile payments without querying the primary database.
type BookingConfirmedEvent struct {
	BookingID      string   `json:"booking_id"`
	HoldID         string   `json:"hold_id"`
	GuestName      string   `json:"guest_name,omitempty"`
	GuestEmail     string   `json:"guest_email,omitempty"`
	CheckIn        string   `json:"check_in"`
	CheckOut       string   `json:"check_out"`
	Nights         int      `json:"nights"`
	Beds           []BedRef `json:"beds"`
	TotalCents     int64    `json:"total_cents"`
	DepositCents   int64    `json:"deposit_cents"`
	RemainingCents int64    `json:"remaining_cents"`
	PaymentStatus  string   `json:"payment_status"`
	ConfirmedAt    string   `json:"confirmed_at"`
}

// HoldClosedEvent is published when a pending hold is released or expires
// and its beds return to inventory.
type HoldClosedEvent struct {
	HoldID   string   `json:"hold_id"`
	Status   string   `json:"status"`
	CheckIn  string   `json:"check_in"`
	CheckOut string   `json:"check_out"`
	Beds     []BedRef `json:"beds"`
	ClosedAt string   `json:"closed_at"`
}

// NewBookingConfirmedEvent builds the payload for b.
func NewBookingConfirmedEvent(b model.Booking) BookingConfirmedEvent {
	return BookingConfirmedEvent{
		BookingID:      b.ID,
		HoldID:         b.HoldID,
		GuestName:      b.Guest.Name,
		GuestEmail:     b.Guest.Email,
		CheckIn:        b.Stay.CheckIn.Format(model.DateLayout),
		CheckOut:       b.Stay.CheckOut.Format(model.DateLayout),
		Nights:         b.Stay.Nights(),
		Beds:           bedRefs(b.Beds),
		TotalCents:     b.Total.Cents(),
		DepositCents:   b.DepositAmount.Cents(),
		RemainingCents: b.RemainingAmount.Cents(),
		PaymentStatus:  string(b.PaymentStatus),
		ConfirmedAt:    b.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// NewHoldClosedEvent builds the payload for h at closedAt.
func NewHoldClosedEvent(h model.Hold, closedAt time.Time) HoldClosedEvent {
	return HoldClosedEvent{
		HoldID:   h.ID,
		Status:   string(h.Status),
		CheckIn:  h.Stay.CheckIn.Format(model.DateLayout),
		CheckOut: h.Stay.CheckOut.Format(model.DateLayout),
		Beds:     bedRefs(h.Beds),
		ClosedAt: closedAt.UTC().Format(time.RFC3339),
	}
}

func bedRefs(sel model.BedSelection) []BedRef {
	beds := sel.Beds()
	out := make([]BedRef, 0, len(beds))
	for _, b := range beds {
		out = append(out, BedRef{RoomID: b.RoomID, Index: b.Index})
	}
	return out
}

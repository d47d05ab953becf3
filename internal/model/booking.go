package model

import "time"

// PaymentStatus tracks how much of a booking has been collected.
type PaymentStatus string

const (
	// PaymentDepositPaid means the deposit was captured; the remainder is
	// collected later by an external billing process.
	PaymentDepositPaid PaymentStatus = "deposit_paid"
	// PaymentPaid means the full total was captured up front.
	PaymentPaid PaymentStatus = "paid"
)

// Booking is the durable record created from a confirmed Hold.  It owns
// the occupancy of the hold's beds for the stay from then on.
type Booking struct {
	ID              string        `json:"id"`
	HoldID          string        `json:"holdId"`
	Guest           Guest         `json:"guest"`
	Guests          GuestCounts   `json:"guestCounts"`
	Beds            BedSelection  `json:"beds"`
	Stay            Stay          `json:"stay"`
	Total           Money         `json:"total"`
	DepositAmount   Money         `json:"depositAmount"`
	RemainingAmount Money         `json:"remainingAmount"`
	PaymentStatus   PaymentStatus `json:"paymentStatus"`
	PaymentRef      string        `json:"paymentRef,omitempty"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// Paid reports whether any payment was captured for b.
func (b Booking) Paid() bool {
	return b.PaymentStatus == PaymentDepositPaid || b.PaymentStatus == PaymentPaid
}

// NewBookingFromHold copies the reservation facts of a confirmed hold.
func NewBookingFromHold(id string, h Hold, status PaymentStatus, ref string, at time.Time) Booking {
	return Booking{
		ID:              id,
		HoldID:          h.ID,
		Guest:           h.Guest,
		Guests:          h.Guests,
		Beds:            h.Beds.Clone(),
		Stay:            h.Stay,
		Total:           h.PriceSnapshot.Total,
		DepositAmount:   h.DepositAmount,
		RemainingAmount: h.RemainingAmount,
		PaymentStatus:   status,
		PaymentRef:      ref,
		CreatedAt:       at,
	}
}

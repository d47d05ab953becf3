package model

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors shared by the pricing, service, repository and handler
// layers.  Handlers map them to HTTP statuses with errors.Is / errors.As.
var (
	ErrInvalidDateRange        = errors.New("invalid date range")
	ErrCarnivalMinimumNights   = errors.New("carnival stays require a minimum number of nights")
	ErrOverbookingConflict     = errors.New("one or more beds are not available")
	ErrHoldNotFound            = errors.New("hold not found")
	ErrHoldExpired             = errors.New("hold expired")
	ErrHoldReleased            = errors.New("hold released")
	ErrPaymentAmountMismatch   = errors.New("payment amount does not match the quoted price")
	ErrFemaleOnlyRoom          = errors.New("room is reserved for female guests")
	ErrInvalidBedSelection     = errors.New("invalid bed selection")
	ErrInvalidGuestCounts      = errors.New("invalid guest counts")
	ErrRoomNotFound            = errors.New("room not found")
	ErrBookingNotFound         = errors.New("booking not found")
	ErrBookingExists           = errors.New("booking already exists for hold")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used")
	ErrIdempotencyKeyRequired  = errors.New("idempotency key is required")
)

// CarnivalMinimumNightsError reports the nights of a stay that is too short
// for the Carnival window.
type CarnivalMinimumNightsError struct {
	Nights  int
	Minimum int
}

func (e *CarnivalMinimumNightsError) Error() string {
	return fmt.Sprintf("carnival stays require at least %d nights, got %d", e.Minimum, e.Nights)
}

func (e *CarnivalMinimumNightsError) Unwrap() error { return ErrCarnivalMinimumNights }

// OverbookingError lists the beds that could not be reserved.
type OverbookingError struct {
	Beds []Bed
}

func (e *OverbookingError) Error() string {
	parts := make([]string, 0, len(e.Beds))
	for _, b := range e.Beds {
		parts = append(parts, fmt.Sprintf("%s#%d", b.RoomID, b.Index))
	}
	return fmt.Sprintf("%s: %s", ErrOverbookingConflict, strings.Join(parts, ","))
}

func (e *OverbookingError) Unwrap() error { return ErrOverbookingConflict }

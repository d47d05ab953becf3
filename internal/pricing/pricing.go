// Package pricing turns a stay and a bed selection into a price breakdown.
// Everything here is a pure function of its inputs: no clock, no store.
package pricing

import (
	"errors"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

const (
	// CarnivalMinimumNights is enforced by the hold manager, not here.
	CarnivalMinimumNights = 5
	// DefaultLargeGroupThreshold is the bed count from which the 50%
	// deposit tier applies.
	DefaultLargeGroupThreshold = 15

	standardDepositPercent   model.Percent = 30
	largeGroupDepositPercent model.Percent = 50
)

var (
	ErrInvalidNights  = errors.New("stay must be at least one night")
	ErrEmptySelection = errors.New("no beds selected")
)

// GroupDiscountPercent is the step discount for a number of beds:
// <7 none, 7-15 10%, 16-25 15%, 26+ 20%.
func GroupDiscountPercent(beds int) model.Percent {
	switch {
	case beds >= 26:
		return 20
	case beds >= 16:
		return 15
	case beds >= 7:
		return 10
	default:
		return 0
	}
}

// Engine prices selections against per-room base prices.
type Engine struct {
	basePrices          map[string]model.Money
	defaultBase         model.Money
	largeGroupThreshold int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLargeGroupThreshold sets the bed count that triggers the 50% deposit.
func WithLargeGroupThreshold(beds int) Option {
	return func(e *Engine) {
		if beds > 0 {
			e.largeGroupThreshold = beds
		}
	}
}

// NewEngine builds an engine from room prices.  defaultBase prices rooms
// that are not in rooms.
func NewEngine(rooms []model.Room, defaultBase model.Money, opts ...Option) *Engine {
	e := &Engine{
		basePrices:          make(map[string]model.Money, len(rooms)),
		defaultBase:         defaultBase,
		largeGroupThreshold: DefaultLargeGroupThreshold,
	}
	for _, r := range rooms {
		e.basePrices[r.ID] = r.BasePricePerBedNight
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// LargeGroupThreshold exposes the configured deposit threshold.
func (e *Engine) LargeGroupThreshold() int { return e.largeGroupThreshold }

// DepositPercent is 50% for large groups and 30% otherwise.
func (e *Engine) DepositPercent(beds int) model.Percent {
	if beds >= e.largeGroupThreshold {
		return largeGroupDepositPercent
	}
	return standardDepositPercent
}

// DepositFor splits total into deposit and remainder.  The remainder is
// computed by subtraction so the two always sum to total exactly.
func (e *Engine) DepositFor(total model.Money, beds int) (deposit, remaining model.Money, pct model.Percent) {
	pct = e.DepositPercent(beds)
	deposit = model.Money(mulDivHalfUp(int64(total), int64(pct), 100))
	return deposit, total - deposit, pct
}

// Compute prices sel for stay.
//
//	subtotal = sum over rooms(beds × nights × base)
//	total    = round½↑(subtotal × season × (1 − discount))
func (e *Engine) Compute(stay model.Stay, sel model.BedSelection) (model.PriceSnapshot, error) {
	nights := stay.Nights()
	if nights <= 0 {
		return model.PriceSnapshot{}, ErrInvalidNights
	}
	sel = sel.Normalize()
	beds := sel.Count()
	if beds == 0 {
		return model.PriceSnapshot{}, ErrEmptySelection
	}

	var subtotal model.Money
	for _, roomID := range sel.RoomIDs() {
		subtotal += model.Money(len(sel[roomID])*nights) * e.priceOf(roomID)
	}
	base := e.priceOf(sel.RoomIDs()[0])
	if !e.uniformPrice(sel) {
		// Mixed prices have no single nightly rate; report the average.
		base = model.Money(mulDivHalfUp(int64(subtotal), 1, int64(beds*nights)))
	}

	season := SeasonOf(stay)
	mult := SeasonMultiplier(season)
	discount := GroupDiscountPercent(beds)
	total := model.Money(mulDivHalfUp(int64(subtotal), int64(mult)*int64(100-discount), 100*100))
	deposit, remaining, depositPct := e.DepositFor(total, beds)

	return model.PriceSnapshot{
		Nights:               nights,
		TotalBeds:            beds,
		BasePricePerBedNight: base,
		Subtotal:             subtotal,
		Season:               season,
		SeasonMultiplier:     mult,
		GroupDiscount:        discount,
		Total:                total,
		DepositPercent:       depositPct,
		DepositAmount:        deposit,
		RemainingAmount:      remaining,
	}, nil
}

func (e *Engine) priceOf(roomID string) model.Money {
	if price, ok := e.basePrices[roomID]; ok {
		return price
	}
	return e.defaultBase
}

func (e *Engine) uniformPrice(sel model.BedSelection) bool {
	ids := sel.RoomIDs()
	for _, id := range ids[1:] {
		if e.priceOf(id) != e.priceOf(ids[0]) {
			return false
		}
	}
	return true
}

// mulDivHalfUp returns x*num/den rounded half away from zero.
func mulDivHalfUp(x, num, den int64) int64 {
	p := x * num
	neg := p < 0
	if neg {
		p = -p
	}
	q, r := p/den, p%den
	if 2*r >= den {
		q++
	}
	if neg {
		return -q
	}
	return q
}

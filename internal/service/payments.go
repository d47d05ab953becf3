package service

import (
	"context"
	"errors"
	"log"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// PaymentNotification is the gateway callback for a hold.  The gateway
// charges the snapshot deposit (or total) and reports the outcome; it never
// sends card data here.
type PaymentNotification struct {
	HoldID         string
	IdempotencyKey string
	Amount         model.Money
	Success        bool
	Reference      string
}

// PaymentOutcome describes what a notification did.
type PaymentOutcome struct {
	Hold    model.Hold
	Booking *model.Booking
	// Duplicate is set when (HoldID, IdempotencyKey) was already processed.
	Duplicate bool
}

// HandlePayment applies a gateway notification.  A success confirms the
// hold when the captured amount matches the snapshot; a mismatch releases
// the hold so that the guest must start over with a fresh quote.  A
// failure releases the hold.  Replays of the same (hold, key) pair have no
// side effects.
func (m *HoldManager) HandlePayment(ctx context.Context, n PaymentNotification) (PaymentOutcome, error) {
	if n.IdempotencyKey == "" {
		return PaymentOutcome{}, model.ErrIdempotencyKeyRequired
	}
	if n.Success {
		return m.handlePaymentSuccess(ctx, n)
	}

	now := m.clock.Now()
	var (
		out PaymentOutcome
		won bool
	)
	err := m.store.WithTx(ctx, func(txCtx context.Context) error {
		fresh, err := m.store.RecordPaymentEvent(txCtx, n.HoldID, n.IdempotencyKey, now)
		if err != nil {
			return err
		}
		if !fresh {
			out.Duplicate = true
			out.Hold, err = m.store.GetHold(txCtx, n.HoldID)
			return err
		}
		out.Hold, won, err = m.release(txCtx, n.HoldID, now)
		return err
	})
	if err != nil {
		return PaymentOutcome{}, err
	}
	if won {
		log.Printf("hold %s %s after failed payment %s", out.Hold.ID, out.Hold.Status, n.IdempotencyKey)
		m.emitHoldClosed(ctx, out.Hold)
	}
	out.Hold.Status = out.Hold.EffectiveStatus(now)
	return out, nil
}

func (m *HoldManager) handlePaymentSuccess(ctx context.Context, n PaymentNotification) (PaymentOutcome, error) {
	amount := n.Amount
	res, err := m.ConfirmHold(ctx, ConfirmHoldInput{
		HoldID:         n.HoldID,
		IdempotencyKey: n.IdempotencyKey,
		Amount:         &amount,
		PaymentRef:     n.Reference,
	})
	if errors.Is(err, model.ErrPaymentAmountMismatch) {
		if _, relErr := m.ReleaseHold(ctx, n.HoldID); relErr != nil {
			log.Printf("hold %s: release after amount mismatch: %v", n.HoldID, relErr)
		}
		return PaymentOutcome{}, err
	}
	if err != nil {
		return PaymentOutcome{}, err
	}
	b := res.Booking
	return PaymentOutcome{Hold: res.Hold, Booking: &b, Duplicate: !res.Created}, nil
}

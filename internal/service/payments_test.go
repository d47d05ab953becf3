package service

import (
	"context"
	"errors"
	"testing"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

func TestHoldManager_HandlePayment(t *testing.T) {
	t.Parallel()

	t.Run("requires idempotency key", func(t *testing.T) {
		f := newFixture(t)
		h := createJuneHold(t, f, model.BedSelection{"mixed-7": {1}})
		_, err := f.mgr.HandlePayment(context.Background(), PaymentNotification{HoldID: h.ID, Success: true, Amount: h.DepositAmount})
		if !errors.Is(err, model.ErrIdempotencyKeyRequired) {
			t.Fatalf("expected ErrIdempotencyKeyRequired, got %v", err)
		}
	})

	t.Run("deposit success confirms once", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		h := createJuneHold(t, f, model.BedSelection{"mixed-7": {1, 2}})
		n := PaymentNotification{HoldID: h.ID, IdempotencyKey: "pay-1", Amount: h.DepositAmount, Success: true, Reference: "gw-123"}

		first, err := f.mgr.HandlePayment(ctx, n)
		if err != nil {
			t.Fatalf("first notification: %v", err)
		}
		if first.Duplicate || first.Booking == nil || first.Booking.PaymentStatus != model.PaymentDepositPaid {
			t.Fatalf("unexpected outcome %+v", first)
		}
		if first.Booking.PaymentRef != "gw-123" {
			t.Fatalf("expected payment reference to be stored, got %q", first.Booking.PaymentRef)
		}

		replay, err := f.mgr.HandlePayment(ctx, n)
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if !replay.Duplicate || replay.Booking.ID != first.Booking.ID {
			t.Fatalf("expected duplicate with same booking, got %+v", replay)
		}
		if len(f.pub.bookings) != 1 {
			t.Fatalf("expected one booking event, got %d", len(f.pub.bookings))
		}
	})

	t.Run("full amount marks booking paid", func(t *testing.T) {
		f := newFixture(t)
		h := createJuneHold(t, f, model.BedSelection{"mixed-7": {1}})
		out, err := f.mgr.HandlePayment(context.Background(), PaymentNotification{
			HoldID: h.ID, IdempotencyKey: "pay-1", Amount: h.PriceSnapshot.Total, Success: true,
		})
		if err != nil {
			t.Fatalf("notification: %v", err)
		}
		if !out.Booking.Paid() {
			t.Fatalf("expected paid booking, got %s", out.Booking.PaymentStatus)
		}
	})

	t.Run("amount mismatch releases the hold", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		h := createJuneHold(t, f, model.BedSelection{"mixed-7": {1}})
		_, err := f.mgr.HandlePayment(ctx, PaymentNotification{
			HoldID: h.ID, IdempotencyKey: "pay-1", Amount: h.DepositAmount + 1, Success: true,
		})
		if !errors.Is(err, model.ErrPaymentAmountMismatch) {
			t.Fatalf("expected ErrPaymentAmountMismatch, got %v", err)
		}
		got, _ := f.mgr.GetHold(ctx, h.ID)
		if got.Status != model.HoldStatusReleased {
			t.Fatalf("expected released hold, got %s", got.Status)
		}
		if _, err := f.mgr.GetBookingByHold(ctx, h.ID); !errors.Is(err, model.ErrBookingNotFound) {
			t.Fatalf("expected no booking, got %v", err)
		}
	})

	t.Run("failure releases and replays are no-ops", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		h := createJuneHold(t, f, model.BedSelection{"mixed-7": {3}})
		n := PaymentNotification{HoldID: h.ID, IdempotencyKey: "pay-9", Success: false}

		out, err := f.mgr.HandlePayment(ctx, n)
		if err != nil {
			t.Fatalf("failure notification: %v", err)
		}
		if out.Duplicate || out.Hold.Status != model.HoldStatusReleased || out.Booking != nil {
			t.Fatalf("unexpected outcome %+v", out)
		}
		replay, err := f.mgr.HandlePayment(ctx, n)
		if err != nil {
			t.Fatalf("replay: %v", err)
		}
		if !replay.Duplicate {
			t.Fatalf("expected duplicate on replay")
		}
		if len(f.pub.closed) != 1 {
			t.Fatalf("expected one closed event, got %d", len(f.pub.closed))
		}

		avail, err := f.mgr.Ledger().Availability(ctx, juneStay(t))
		if err != nil {
			t.Fatalf("availability: %v", err)
		}
		for _, b := range avail["mixed-7"] {
			if b == 3 {
				return
			}
		}
		t.Fatalf("expected bed 3 to be free again, got %v", avail["mixed-7"])
	})

	t.Run("success after expiry is rejected", func(t *testing.T) {
		f := newFixture(t)
		ctx := context.Background()
		h := createJuneHold(t, f, model.BedSelection{"mixed-7": {1}})
		f.clock.Advance(f.mgr.HoldTTL())
		_, err := f.mgr.HandlePayment(ctx, PaymentNotification{
			HoldID: h.ID, IdempotencyKey: "late", Amount: h.DepositAmount, Success: true,
		})
		if !errors.Is(err, model.ErrHoldExpired) {
			t.Fatalf("expected ErrHoldExpired, got %v", err)
		}
	})
}

type failingPublisher struct{ err error }

func (p failingPublisher) BookingConfirmed(context.Context, model.Booking) error { return p.err }
func (p failingPublisher) HoldClosed(context.Context, model.Hold) error          { return p.err }

func TestPublishers(t *testing.T) {
	t.Parallel()

	rec := &recordingPublisher{}
	boom := errors.New("broker down")
	ps := Publishers{failingPublisher{err: boom}, rec}

	if err := ps.BookingConfirmed(context.Background(), model.Booking{ID: "b1"}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if err := ps.HoldClosed(context.Background(), model.Hold{ID: "h1"}); !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if len(rec.bookings) != 1 || len(rec.closed) != 1 {
		t.Fatalf("later publishers must still run, got %d/%d", len(rec.bookings), len(rec.closed))
	}
	if err := (Publishers{rec}).HoldClosed(context.Background(), model.Hold{}); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

package queue

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

func sampleBooking(t *testing.T) model.Booking {
	t.Helper()
	stay, err := model.ParseStay("2026-06-01", "2026-06-05")
	if err != nil {
		t.Fatalf("parse stay: %v", err)
	}
	return model.Booking{
		ID:              "b-1",
		HoldID:          "h-1",
		Guest:           model.Guest{Name: "Ana"},
		Beds:            model.BedSelection{"mixed-7": {2, 1}, "female-7": {3}},
		Stay:            stay,
		Total:           38400,
		DepositAmount:   11520,
		RemainingAmount: 26880,
		PaymentStatus:   model.PaymentDepositPaid,
		CreatedAt:       time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC),
	}
}

func TestNewBookingConfirmedEvent(t *testing.T) {
	t.Parallel()

	ev := NewBookingConfirmedEvent(sampleBooking(t))
	if ev.Nights != 4 || ev.CheckIn != "2026-06-01" || ev.CheckOut != "2026-06-05" {
		t.Fatalf("unexpected stay fields: %+v", ev)
	}
	want := []BedRef{{"female-7", 3}, {"mixed-7", 1}, {"mixed-7", 2}}
	if len(ev.Beds) != len(want) {
		t.Fatalf("expected %d beds, got %v", len(want), ev.Beds)
	}
	for i := range want {
		if ev.Beds[i] != want[i] {
			t.Fatalf("bed %d: expected %v, got %v", i, want[i], ev.Beds[i])
		}
	}
	if ev.ConfirmedAt != "2026-01-10T12:00:00Z" {
		t.Fatalf("unexpected confirmed_at %q", ev.ConfirmedAt)
	}
}

func TestFormatBookingLine(t *testing.T) {
	t.Parallel()

	line := FormatBookingLine(NewBookingConfirmedEvent(sampleBooking(t)))
	for _, part := range []string{
		"[2026-01-10T12:00:00Z] Booking confirmed",
		"booking_id=b-1",
		"hold_id=h-1",
		`guest="Ana"`,
		"stay=2026-06-01..2026-06-05 (4 nights)",
		"total=38400 cents",
		"deposit=11520 cents",
		"payment=deposit_paid",
		"beds=[female-7#3,mixed-7#1,mixed-7#2]",
	} {
		if !strings.Contains(line, part) {
			t.Fatalf("line %q missing %q", line, part)
		}
	}
	if !strings.HasSuffix(line, "\n") || strings.Count(line, "\n") != 1 {
		t.Fatalf("expected a single newline-terminated line, got %q", line)
	}
}

func TestHandleMessage(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "logs")
	body, _ := json.Marshal(NewBookingConfirmedEvent(sampleBooking(t)))
	if err := handleMessage(dir, body); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if err := handleMessage(dir, body); err != nil {
		t.Fatalf("handle again: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if n := strings.Count(string(data), "booking_id=b-1"); n != 2 {
		t.Fatalf("expected 2 appended lines, got %d", n)
	}

	if err := handleMessage(dir, []byte("not json")); err == nil {
		t.Fatalf("expected error for malformed body")
	}
	if err := handleMessage(dir, []byte(`{"total_cents": 1}`)); err == nil {
		t.Fatalf("expected error for event without ids")
	}
}

func TestClosedQueue(t *testing.T) {
	t.Parallel()

	if q, err := closedQueue(model.HoldStatusReleased); err != nil || q != HoldReleasedQueue {
		t.Fatalf("released: got %q, %v", q, err)
	}
	if q, err := closedQueue(model.HoldStatusExpired); err != nil || q != HoldExpiredQueue {
		t.Fatalf("expired: got %q, %v", q, err)
	}
	if _, err := closedQueue(model.HoldStatusConfirmed); err == nil {
		t.Fatalf("expected error for confirmed")
	}
}

func TestPublisher_SilentBrokerHonoursContext(t *testing.T) {
	t.Parallel()

	// A listener that accepts connections and never speaks AMQP.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	accepted := make(chan net.Conn, 4)
	go func() {
		for {
			c, err := ln.Accept()
			if err != nil {
				return
			}
			accepted <- c
		}
	}()
	t.Cleanup(func() {
		for {
			select {
			case c := <-accepted:
				_ = c.Close()
			default:
				return
			}
		}
	})

	p := NewPublisher("amqp://guest:guest@" + ln.Addr().String() + "/")
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = p.BookingConfirmed(ctx, sampleBooking(t))
	if err == nil {
		t.Fatalf("expected an error from a silent broker")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("publish ignored the context deadline: took %s", elapsed)
	}
}

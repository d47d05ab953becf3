package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

type countingExpirer struct {
	calls atomic.Int32
	n     int
	err   error
}

func (e *countingExpirer) Expire(context.Context) (int, error) {
	e.calls.Add(1)
	return e.n, e.err
}

func TestSweeper_SweepOnce(t *testing.T) {
	t.Parallel()

	exp := &countingExpirer{n: 3}
	if got := NewSweeper(exp, time.Minute).SweepOnce(context.Background()); got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}

	failing := &countingExpirer{n: 1, err: errors.New("store down")}
	if got := NewSweeper(failing, time.Minute).SweepOnce(context.Background()); got != 1 {
		t.Fatalf("expected partial count 1, got %d", got)
	}
}

func TestSweeper_StartStop(t *testing.T) {
	t.Parallel()

	exp := &countingExpirer{}
	s := NewSweeper(exp, 5*time.Millisecond)
	s.Start(context.Background())

	deadline := time.Now().Add(2 * time.Second)
	for exp.calls.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()

	if exp.calls.Load() < 2 {
		t.Fatalf("expected at least 2 sweeps, got %d", exp.calls.Load())
	}
	after := exp.calls.Load()
	time.Sleep(20 * time.Millisecond)
	if exp.calls.Load() != after {
		t.Fatalf("sweeper kept running after Stop")
	}
}

func TestSweeper_DefaultInterval(t *testing.T) {
	t.Parallel()

	if s := NewSweeper(&countingExpirer{}, 0); s.interval != defaultSweepInterval {
		t.Fatalf("expected default interval, got %v", s.interval)
	}
}

func TestSweeper_ExpiresThroughManager(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	createJuneHold(t, f, map[string][]int{"mixed-7": {1}})
	s := NewSweeper(f.mgr, time.Minute)
	if n := s.SweepOnce(context.Background()); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
	f.clock.Advance(f.mgr.HoldTTL())
	if n := s.SweepOnce(context.Background()); n != 1 {
		t.Fatalf("expected 1, got %d", n)
	}
}

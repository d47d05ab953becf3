package service

import (
	"context"
	"log"
	"sync"
	"time"
)

const defaultSweepInterval = 30 * time.Second

// Expirer is the part of HoldManager the sweeper drives.
type Expirer interface {
	Expire(ctx context.Context) (int, error)
}

// Sweeper periodically stores the expiry of pending holds past their
// deadline.  Confirm already treats such holds as expired, so the sweep
// only makes the stored status catch up and frees nothing that was not
// already free.
type Sweeper struct {
	expirer  Expirer
	interval time.Duration

	once sync.Once
	done chan struct{}
	wg   sync.WaitGroup
}

// NewSweeper returns a sweeper running every interval; a non-positive
// interval falls back to 30s.
func NewSweeper(expirer Expirer, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{expirer: expirer, interval: interval, done: make(chan struct{})}
}

// Start runs the sweep loop in the background until ctx is cancelled or
// Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.run(ctx)
	}()
	log.Printf("hold-sweeper: started with %v interval", s.interval)
}

// Stop ends the loop and waits for an in-flight sweep to finish.
func (s *Sweeper) Stop() {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	log.Println("hold-sweeper: stopped")
}

func (s *Sweeper) run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.SweepOnce(ctx)
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

// SweepOnce runs a single pass and returns the number of holds expired.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	n, err := s.expirer.Expire(ctx)
	if err != nil {
		log.Printf("hold-sweeper: %v", err)
	}
	if n > 0 {
		log.Printf("hold-sweeper: expired %d holds", n)
	}
	return n
}

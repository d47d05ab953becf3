package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// errNoTx is returned by operations that only make sense inside WithTx.
var errNoTx = errors.New("repository: operation requires a transaction")

// MemoryStore keeps holds and bookings in process memory.  It is the store
// of single-node deployments and of the test suite.  Room serialization
// uses one mutex per room; every other mutation is a short critical section
// on mu, so status compare-and-swap is atomic.
//
// Transactions are undo logs: a failing WithTx callback reverts its own
// writes in reverse order.  Writes are visible to other goroutines before
// commit, which is acceptable here because the only writes that can be
// undone are a status flip and inserts that no other path reads back.
type MemoryStore struct {
	mu       sync.RWMutex
	holds    map[string]model.Hold
	order    []string
	idemKeys map[string]string
	bookings map[string]model.Booking
	byHold   map[string]string
	payments map[string]time.Time

	locksMu   sync.Mutex
	roomLocks map[string]*sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		holds:     make(map[string]model.Hold),
		idemKeys:  make(map[string]string),
		bookings:  make(map[string]model.Booking),
		byHold:    make(map[string]string),
		payments:  make(map[string]time.Time),
		roomLocks: make(map[string]*sync.Mutex),
	}
}

type memTx struct {
	undo  []func()
	held  map[string]*sync.Mutex
	order []string
}

type memTxKey struct{}

func memTxFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(memTxKey{}).(*memTx)
	return tx
}

// WithTx runs fn in a transaction.  Nested calls join the outer one.
func (s *MemoryStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if memTxFrom(ctx) != nil {
		return fn(ctx)
	}
	tx := &memTx{held: make(map[string]*sync.Mutex)}
	err := fn(context.WithValue(ctx, memTxKey{}, tx))
	if err != nil {
		s.mu.Lock()
		for i := len(tx.undo) - 1; i >= 0; i-- {
			tx.undo[i]()
		}
		s.mu.Unlock()
	}
	for i := len(tx.order) - 1; i >= 0; i-- {
		tx.held[tx.order[i]].Unlock()
	}
	return err
}

// LockRooms acquires the room mutexes in sorted order, so two transactions
// over intersecting room sets cannot deadlock.
func (s *MemoryStore) LockRooms(ctx context.Context, roomIDs []string) error {
	tx := memTxFrom(ctx)
	if tx == nil {
		return errNoTx
	}
	ids := append([]string(nil), roomIDs...)
	sort.Strings(ids)
	for _, id := range ids {
		if _, ok := tx.held[id]; ok {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		l := s.roomLock(id)
		l.Lock()
		tx.held[id] = l
		tx.order = append(tx.order, id)
	}
	return nil
}

func (s *MemoryStore) roomLock(id string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l, ok := s.roomLocks[id]
	if !ok {
		l = &sync.Mutex{}
		s.roomLocks[id] = l
	}
	return l
}

// record registers an undo step when ctx carries a transaction.  Callers
// hold s.mu.
func record(ctx context.Context, undo func()) {
	if tx := memTxFrom(ctx); tx != nil {
		tx.undo = append(tx.undo, undo)
	}
}

func (s *MemoryStore) HoldsForRooms(_ context.Context, roomIDs []string, stay model.Stay) ([]model.Hold, error) {
	want := make(map[string]struct{}, len(roomIDs))
	for _, id := range roomIDs {
		want[id] = struct{}{}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Hold
	for _, id := range s.order {
		h := s.holds[id]
		if h.Status != model.HoldStatusPending && h.Status != model.HoldStatusConfirmed {
			continue
		}
		if !h.Stay.Overlaps(stay) {
			continue
		}
		for roomID := range h.Beds {
			if _, ok := want[roomID]; ok {
				out = append(out, h.Clone())
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) FindHoldByIdempotencyKey(_ context.Context, key string) (*model.Hold, error) {
	if key == "" {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.idemKeys[key]
	if !ok {
		return nil, nil
	}
	h := s.holds[id].Clone()
	return &h, nil
}

func (s *MemoryStore) CreateHold(ctx context.Context, hold model.Hold) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.holds[hold.ID]; exists {
		return ErrDuplicateID
	}
	if hold.IdempotencyKey != "" {
		if _, used := s.idemKeys[hold.IdempotencyKey]; used {
			return model.ErrDuplicateIdempotencyKey
		}
		s.idemKeys[hold.IdempotencyKey] = hold.ID
	}
	s.holds[hold.ID] = hold.Clone()
	s.order = append(s.order, hold.ID)
	record(ctx, func() {
		delete(s.holds, hold.ID)
		if hold.IdempotencyKey != "" {
			delete(s.idemKeys, hold.IdempotencyKey)
		}
		if n := len(s.order); n > 0 && s.order[n-1] == hold.ID {
			s.order = s.order[:n-1]
		} else {
			for i, id := range s.order {
				if id == hold.ID {
					s.order = append(s.order[:i], s.order[i+1:]...)
					break
				}
			}
		}
	})
	return nil
}

func (s *MemoryStore) GetHold(_ context.Context, id string) (model.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.holds[id]
	if !ok {
		return model.Hold{}, model.ErrHoldNotFound
	}
	return h.Clone(), nil
}

func (s *MemoryStore) CompareAndSwapStatus(ctx context.Context, id string, from, to model.HoldStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.holds[id]
	if !ok {
		return false, model.ErrHoldNotFound
	}
	if h.Status != from {
		return false, nil
	}
	h.Status = to
	s.holds[id] = h
	record(ctx, func() {
		if cur, ok := s.holds[id]; ok && cur.Status == to {
			cur.Status = from
			s.holds[id] = cur
		}
	})
	return true, nil
}

// ListHolds returns holds in creation order; an empty status lists all.
func (s *MemoryStore) ListHolds(_ context.Context, status model.HoldStatus) ([]model.Hold, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Hold, 0, len(s.order))
	for _, id := range s.order {
		h := s.holds[id]
		if status != "" && h.Status != status {
			continue
		}
		out = append(out, h.Clone())
	}
	return out, nil
}

func (s *MemoryStore) OverduePendingHolds(_ context.Context, now time.Time) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for _, id := range s.order {
		if s.holds[id].PastDeadline(now) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *MemoryStore) PersistBooking(ctx context.Context, b model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byHold[b.HoldID]; exists {
		return model.ErrBookingExists
	}
	if _, exists := s.bookings[b.ID]; exists {
		return ErrDuplicateID
	}
	b.Beds = b.Beds.Clone()
	s.bookings[b.ID] = b
	s.byHold[b.HoldID] = b.ID
	record(ctx, func() {
		delete(s.bookings, b.ID)
		delete(s.byHold, b.HoldID)
	})
	return nil
}

func (s *MemoryStore) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	b.Beds = b.Beds.Clone()
	return b, nil
}

func (s *MemoryStore) GetBookingByHoldID(_ context.Context, holdID string) (*model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHold[holdID]
	if !ok {
		return nil, nil
	}
	b := s.bookings[id]
	b.Beds = b.Beds.Clone()
	return &b, nil
}

func (s *MemoryStore) RecordPaymentEvent(ctx context.Context, holdID, key string, at time.Time) (bool, error) {
	k := holdID + "|" + key
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, seen := s.payments[k]; seen {
		return false, nil
	}
	s.payments[k] = at
	record(ctx, func() { delete(s.payments, k) })
	return true, nil
}

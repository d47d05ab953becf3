package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/hostel-bed-reservation/internal/model"
)

// MySQLStore persists holds and bookings in MySQL.  Room serialization is
// done with SELECT ... FOR UPDATE on the rooms table, which must be kept in
// sync with the catalog through SyncRooms.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore returns a store bound to db.
func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

type sqlTxKey struct{}

// querier is the subset of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func txFrom(ctx context.Context) *sql.Tx {
	tx, _ := ctx.Value(sqlTxKey{}).(*sql.Tx)
	return tx
}

func (s *MySQLStore) q(ctx context.Context) querier {
	if tx := txFrom(ctx); tx != nil {
		return tx
	}
	return s.db
}

// WithTx runs fn inside a READ COMMITTED transaction.  Row locks taken by
// LockRooms and GetHold are what serialize writers; the isolation level
// only has to make committed holds of other transactions visible after a
// lock is acquired.  Nested calls join the outer transaction.
func (s *MySQLStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFrom(ctx) != nil {
		return fn(ctx)
	}
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SyncRooms upserts the catalog rooms.  It is called once at startup.
func (s *MySQLStore) SyncRooms(ctx context.Context, rooms []model.Room) error {
	const q = `INSERT INTO rooms (id, name, capacity, room_type, base_price_cents, is_flexible)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE name = VALUES(name), capacity = VALUES(capacity),
			room_type = VALUES(room_type), base_price_cents = VALUES(base_price_cents),
			is_flexible = VALUES(is_flexible)`
	for _, r := range rooms {
		if _, err := s.db.ExecContext(ctx, q, r.ID, r.Name, r.Capacity, string(r.Type), r.BasePricePerBedNight.Cents(), r.IsFlexible); err != nil {
			return err
		}
	}
	return nil
}

// LockRooms locks one rooms row per id, in id order.
func (s *MySQLStore) LockRooms(ctx context.Context, roomIDs []string) error {
	tx := txFrom(ctx)
	if tx == nil {
		return errNoTx
	}
	if len(roomIDs) == 0 {
		return nil
	}
	ids := append([]string(nil), roomIDs...)
	sort.Strings(ids)
	query := `SELECT id FROM rooms WHERE id IN (` + placeholders(len(ids)) + `) ORDER BY id FOR UPDATE`
	rows, err := tx.QueryContext(ctx, query, stringArgs(ids)...)
	if err != nil {
		return err
	}
	n := 0
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return scanErr
		}
		n++
	}
	if err = rows.Close(); err != nil {
		return err
	}
	if n != len(dedupe(ids)) {
		return model.ErrRoomNotFound
	}
	return nil
}

func (s *MySQLStore) HoldsForRooms(ctx context.Context, roomIDs []string, stay model.Stay) ([]model.Hold, error) {
	if len(roomIDs) == 0 {
		return nil, nil
	}
	where := `h.id IN (SELECT DISTINCT hb.hold_id FROM hold_beds hb
			WHERE hb.room_id IN (` + placeholders(len(roomIDs)) + `)
			AND hb.check_in < ? AND hb.check_out > ?)
		AND h.status IN (?, ?)`
	args := stringArgs(roomIDs)
	args = append(args, stay.CheckOut, stay.CheckIn, string(model.HoldStatusPending), string(model.HoldStatusConfirmed))
	return s.loadHolds(ctx, where, false, args...)
}

func (s *MySQLStore) FindHoldByIdempotencyKey(ctx context.Context, key string) (*model.Hold, error) {
	if key == "" {
		return nil, nil
	}
	holds, err := s.loadHolds(ctx, `h.idempotency_key = ?`, false, key)
	if err != nil {
		return nil, err
	}
	if len(holds) == 0 {
		return nil, nil
	}
	return &holds[0], nil
}

func (s *MySQLStore) CreateHold(ctx context.Context, hold model.Hold) error {
	snapshot, err := json.Marshal(hold.PriceSnapshot)
	if err != nil {
		return err
	}
	var idem sql.NullString
	if hold.IdempotencyKey != "" {
		idem = sql.NullString{String: hold.IdempotencyKey, Valid: true}
	}
	db := s.q(ctx)
	const q = `INSERT INTO holds (id, check_in, check_out, guests_male, guests_female, guest_name, guest_email,
		price_snapshot, total_cents, deposit_cents, remaining_cents, status, idempotency_key, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err = db.ExecContext(ctx, q,
		hold.ID, hold.Stay.CheckIn, hold.Stay.CheckOut, hold.Guests.Male, hold.Guests.Female,
		hold.Guest.Name, hold.Guest.Email, string(snapshot), hold.PriceSnapshot.Total.Cents(),
		hold.DepositAmount.Cents(), hold.RemainingAmount.Cents(), string(hold.Status), idem,
		hold.CreatedAt.UTC(), hold.ExpiresAt.UTC())
	if err != nil {
		if isDuplicate(err) {
			if strings.Contains(err.Error(), "uq_holds_idempotency") {
				return model.ErrDuplicateIdempotencyKey
			}
			return ErrDuplicateID
		}
		return err
	}
	beds := hold.Beds.Beds()
	if len(beds) == 0 {
		return nil
	}
	query := `INSERT INTO hold_beds (hold_id, room_id, bed_index, check_in, check_out) VALUES `
	args := make([]any, 0, len(beds)*5)
	for i, b := range beds {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?, ?, ?)"
		args = append(args, hold.ID, b.RoomID, b.Index, hold.Stay.CheckIn, hold.Stay.CheckOut)
	}
	_, err = db.ExecContext(ctx, query, args...)
	return err
}

// GetHold locks the row when called inside a transaction so that confirm
// and release see a stable status until they commit.
func (s *MySQLStore) GetHold(ctx context.Context, id string) (model.Hold, error) {
	holds, err := s.loadHolds(ctx, `h.id = ?`, txFrom(ctx) != nil, id)
	if err != nil {
		return model.Hold{}, err
	}
	if len(holds) == 0 {
		return model.Hold{}, model.ErrHoldNotFound
	}
	return holds[0], nil
}

func (s *MySQLStore) CompareAndSwapStatus(ctx context.Context, id string, from, to model.HoldStatus) (bool, error) {
	db := s.q(ctx)
	res, err := db.ExecContext(ctx, `UPDATE holds SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 1 {
		return true, nil
	}
	var exists int
	err = db.QueryRowContext(ctx, `SELECT 1 FROM holds WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, model.ErrHoldNotFound
	}
	return false, err
}

// ListHolds returns holds in creation order; an empty status lists all.
func (s *MySQLStore) ListHolds(ctx context.Context, status model.HoldStatus) ([]model.Hold, error) {
	if status == "" {
		return s.loadHolds(ctx, `1 = 1`, false)
	}
	return s.loadHolds(ctx, `h.status = ?`, false, string(status))
}

func (s *MySQLStore) OverduePendingHolds(ctx context.Context, now time.Time) ([]string, error) {
	rows, err := s.q(ctx).QueryContext(ctx,
		`SELECT id FROM holds WHERE status = ? AND expires_at <= ? ORDER BY expires_at, id`,
		string(model.HoldStatusPending), now.UTC())
	if err != nil {
		return nil, err
	}
	var ids []string
	for rows.Next() {
		var id string
		if scanErr := rows.Scan(&id); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		ids = append(ids, id)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	return ids, nil
}

const holdColumns = `h.id, h.check_in, h.check_out, h.guests_male, h.guests_female, h.guest_name, h.guest_email,
	h.price_snapshot, h.deposit_cents, h.remaining_cents, h.status, h.idempotency_key, h.created_at, h.expires_at`

// loadHolds selects holds matching where and attaches their beds.
func (s *MySQLStore) loadHolds(ctx context.Context, where string, forUpdate bool, args ...any) ([]model.Hold, error) {
	db := s.q(ctx)
	query := `SELECT ` + holdColumns + ` FROM holds h WHERE ` + where + ` ORDER BY h.created_at, h.id`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	var holds []model.Hold
	index := make(map[string]int)
	for rows.Next() {
		var (
			h         model.Hold
			snapshot  []byte
			deposit   int64
			remaining int64
			status    string
			idem      sql.NullString
		)
		if scanErr := rows.Scan(&h.ID, &h.Stay.CheckIn, &h.Stay.CheckOut, &h.Guests.Male, &h.Guests.Female,
			&h.Guest.Name, &h.Guest.Email, &snapshot, &deposit, &remaining, &status, &idem,
			&h.CreatedAt, &h.ExpiresAt); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		if scanErr := json.Unmarshal(snapshot, &h.PriceSnapshot); scanErr != nil {
			rows.Close()
			return nil, scanErr
		}
		h.Stay = model.NewStay(h.Stay.CheckIn, h.Stay.CheckOut)
		h.DepositAmount = model.Money(deposit)
		h.RemainingAmount = model.Money(remaining)
		h.Status = model.HoldStatus(status)
		h.IdempotencyKey = idem.String
		h.CreatedAt = h.CreatedAt.UTC()
		h.ExpiresAt = h.ExpiresAt.UTC()
		h.Beds = model.BedSelection{}
		index[h.ID] = len(holds)
		holds = append(holds, h)
	}
	if err = rows.Close(); err != nil {
		return nil, err
	}
	if len(holds) == 0 {
		return holds, nil
	}
	ids := make([]string, 0, len(holds))
	for _, h := range holds {
		ids = append(ids, h.ID)
	}
	bedRows, err := db.QueryContext(ctx,
		`SELECT hold_id, room_id, bed_index FROM hold_beds WHERE hold_id IN (`+placeholders(len(ids))+`) ORDER BY hold_id, room_id, bed_index`,
		stringArgs(ids)...)
	if err != nil {
		return nil, err
	}
	for bedRows.Next() {
		var (
			holdID, roomID string
			idx            int
		)
		if scanErr := bedRows.Scan(&holdID, &roomID, &idx); scanErr != nil {
			bedRows.Close()
			return nil, scanErr
		}
		i, ok := index[holdID]
		if !ok {
			continue
		}
		holds[i].Beds[roomID] = append(holds[i].Beds[roomID], idx)
	}
	if err = bedRows.Close(); err != nil {
		return nil, err
	}
	return holds, nil
}

func (s *MySQLStore) PersistBooking(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO bookings (id, hold_id, guest_name, guest_email, payment_status, payment_ref,
		total_cents, deposit_cents, remaining_cents, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.q(ctx).ExecContext(ctx, q, b.ID, b.HoldID, b.Guest.Name, b.Guest.Email, string(b.PaymentStatus),
		b.PaymentRef, b.Total.Cents(), b.DepositAmount.Cents(), b.RemainingAmount.Cents(), b.CreatedAt.UTC())
	if err != nil && isDuplicate(err) {
		if strings.Contains(err.Error(), "uq_bookings_hold") {
			return model.ErrBookingExists
		}
		return ErrDuplicateID
	}
	return err
}

func (s *MySQLStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	b, err := s.loadBooking(ctx, `b.id = ?`, id)
	if err != nil {
		return model.Booking{}, err
	}
	if b == nil {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return *b, nil
}

func (s *MySQLStore) GetBookingByHoldID(ctx context.Context, holdID string) (*model.Booking, error) {
	return s.loadBooking(ctx, `b.hold_id = ?`, holdID)
}

// loadBooking reads one booking; stay, party and beds come from its hold.
func (s *MySQLStore) loadBooking(ctx context.Context, where string, arg string) (*model.Booking, error) {
	query := `SELECT b.id, b.hold_id, b.guest_name, b.guest_email, b.payment_status, b.payment_ref,
		b.total_cents, b.deposit_cents, b.remaining_cents, b.created_at
		FROM bookings b WHERE ` + where
	var (
		b                         model.Booking
		status                    string
		total, deposit, remaining int64
	)
	err := s.q(ctx).QueryRowContext(ctx, query, arg).Scan(&b.ID, &b.HoldID, &b.Guest.Name, &b.Guest.Email,
		&status, &b.PaymentRef, &total, &deposit, &remaining, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	holds, err := s.loadHolds(ctx, `h.id = ?`, false, b.HoldID)
	if err != nil {
		return nil, err
	}
	if len(holds) == 1 {
		b.Guests = holds[0].Guests
		b.Beds = holds[0].Beds
		b.Stay = holds[0].Stay
	}
	b.PaymentStatus = model.PaymentStatus(status)
	b.Total = model.Money(total)
	b.DepositAmount = model.Money(deposit)
	b.RemainingAmount = model.Money(remaining)
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}

func (s *MySQLStore) RecordPaymentEvent(ctx context.Context, holdID, key string, at time.Time) (bool, error) {
	res, err := s.q(ctx).ExecContext(ctx,
		`INSERT IGNORE INTO payment_events (hold_id, idempotency_key, received_at) VALUES (?, ?, ?)`,
		holdID, key, at.UTC())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// isDuplicate reports a MySQL duplicate-entry error (1062).
func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == 1062
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(vals []string) []any {
	args := make([]any, len(vals))
	for i, v := range vals {
		args[i] = v
	}
	return args
}

// dedupe expects sorted input.
func dedupe(ids []string) []string {
	out := ids[:0:0]
	for i, id := range ids {
		if i > 0 && ids[i-1] == id {
			continue
		}
		out = append(out, id)
	}
	return out
}

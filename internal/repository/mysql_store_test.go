package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestIsDuplicate(t *testing.T) {
	t.Parallel()

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'k' for key 'uq_holds_idempotency'"}
	if !isDuplicate(dup) {
		t.Fatalf("expected 1062 to be a duplicate")
	}
	if !isDuplicate(fmt.Errorf("insert hold: %w", dup)) {
		t.Fatalf("expected wrapped 1062 to be a duplicate")
	}
	if isDuplicate(&mysql.MySQLError{Number: 1213}) {
		t.Fatalf("deadlock is not a duplicate")
	}
	if isDuplicate(errors.New("Error 1062")) {
		t.Fatalf("plain errors are not driver errors")
	}
}

func TestPlaceholders(t *testing.T) {
	t.Parallel()

	cases := map[int]string{0: "", 1: "?", 3: "?,?,?"}
	for n, want := range cases {
		if got := placeholders(n); got != want {
			t.Fatalf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestDedupe(t *testing.T) {
	t.Parallel()

	ids := []string{"a", "a", "b", "c", "c"}
	got := dedupe(ids)
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected %v", got)
	}
	if ids[1] != "a" {
		t.Fatalf("dedupe modified its input")
	}
}

func TestMySQLStore_LockRoomsRequiresTx(t *testing.T) {
	t.Parallel()

	s := NewMySQLStore(nil)
	if err := s.LockRooms(context.Background(), []string{"r1"}); !errors.Is(err, errNoTx) {
		t.Fatalf("expected errNoTx, got %v", err)
	}
}

package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schema is applied statement by statement; every statement is idempotent.
// rooms mirrors the catalog and exists mainly so that check-then-reserve
// can lock one row per room with SELECT ... FOR UPDATE.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS rooms (
		id               VARCHAR(64)  NOT NULL PRIMARY KEY,
		name             VARCHAR(128) NOT NULL,
		capacity         INT          NOT NULL,
		room_type        VARCHAR(16)  NOT NULL,
		base_price_cents BIGINT       NOT NULL,
		is_flexible      TINYINT(1)   NOT NULL DEFAULT 0
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS holds (
		id               CHAR(36)     NOT NULL PRIMARY KEY,
		check_in         DATE         NOT NULL,
		check_out        DATE         NOT NULL,
		guests_male      INT          NOT NULL,
		guests_female    INT          NOT NULL,
		guest_name       VARCHAR(255) NOT NULL DEFAULT '',
		guest_email      VARCHAR(255) NOT NULL DEFAULT '',
		price_snapshot   JSON         NOT NULL,
		total_cents      BIGINT       NOT NULL,
		deposit_cents    BIGINT       NOT NULL,
		remaining_cents  BIGINT       NOT NULL,
		status           VARCHAR(16)  NOT NULL,
		idempotency_key  VARCHAR(128) NULL,
		created_at       DATETIME(6)  NOT NULL,
		expires_at       DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_holds_idempotency (idempotency_key),
		KEY idx_holds_status_expires (status, expires_at)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS hold_beds (
		hold_id    CHAR(36)    NOT NULL,
		room_id    VARCHAR(64) NOT NULL,
		bed_index  INT         NOT NULL,
		check_in   DATE        NOT NULL,
		check_out  DATE        NOT NULL,
		PRIMARY KEY (hold_id, room_id, bed_index),
		KEY idx_hold_beds_room_dates (room_id, check_in, check_out),
		CONSTRAINT fk_hold_beds_hold FOREIGN KEY (hold_id) REFERENCES holds (id),
		CONSTRAINT fk_hold_beds_room FOREIGN KEY (room_id) REFERENCES rooms (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS bookings (
		id               CHAR(36)     NOT NULL PRIMARY KEY,
		hold_id          CHAR(36)     NOT NULL,
		guest_name       VARCHAR(255) NOT NULL DEFAULT '',
		guest_email      VARCHAR(255) NOT NULL DEFAULT '',
		payment_status   VARCHAR(32)  NOT NULL,
		payment_ref      VARCHAR(255) NOT NULL DEFAULT '',
		total_cents      BIGINT       NOT NULL,
		deposit_cents    BIGINT       NOT NULL,
		remaining_cents  BIGINT       NOT NULL,
		created_at       DATETIME(6)  NOT NULL,
		UNIQUE KEY uq_bookings_hold (hold_id),
		CONSTRAINT fk_bookings_hold FOREIGN KEY (hold_id) REFERENCES holds (id)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS payment_events (
		hold_id          CHAR(36)     NOT NULL,
		idempotency_key  VARCHAR(128) NOT NULL,
		received_at      DATETIME(6)  NOT NULL,
		PRIMARY KEY (hold_id, idempotency_key)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4`,
}

// Migrate creates the tables used by the MySQL store.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}

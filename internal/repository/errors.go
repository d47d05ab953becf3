// Package repository implements the hold and booking stores: an in-memory
// store for single-node deployments and tests, and a MySQL store for
// production.  Domain-level failures are reported with the sentinels of
// the model package; the values below are storage-level only.
package repository

import "errors"

// ErrDuplicateID is returned when an insert reuses a primary key.  IDs are
// random UUIDs, so this indicates a bug rather than a user error.
var ErrDuplicateID = errors.New("duplicate id")

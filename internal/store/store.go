// Package store provides the minimal table-oriented record store every other
// layer is built on. A store keeps opaque JSON payloads keyed by synthetic
// UUID ids, grouped into named tables. Typed encoding and decoding is the
// responsibility of the repositories in internal/repo.
//
// Two implementations exist:
//
//   - MemStore: the in-memory reference implementation used in tests and as
//     the default driver.
//   - SQLiteStore: a durable implementation backed by GORM and SQLite.
//
// Both guarantee single-record atomicity only. There are no cross-table
// transactions; callers needing multi-record consistency must perform their
// own pre-checks before writing.
package store

import (
	"context"
	"errors"
	"time"
)

// Well-known table names. Each table has an independent identity space.
const (
	TableAccounts    = "accounts"
	TableOrders      = "orders"
	TablePayments    = "payments"
	TableIdempotency = "idempotency"
)

var (
	// ErrNotConnected is returned by every operation invoked before Connect.
	ErrNotConnected = errors.New("store not connected")

	// ErrNotFound is returned when a record id does not exist in a table.
	ErrNotFound = errors.New("record not found")
)

// Record is a stored row: an id assigned at insert time, the opaque JSON
// payload, and bookkeeping timestamps.
type Record struct {
	ID        string
	Data      []byte
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Store is the persistence boundary of the application. Implementations
// must be safe for concurrent use and must assign ids that are unique
// within a table for the store's lifetime, even under concurrent inserts.
type Store interface {
	// Connect prepares the store. Every other method fails with
	// ErrNotConnected until Connect has succeeded.
	Connect(ctx context.Context) error

	// Close releases resources. A closed store reports ErrNotConnected.
	Close() error

	// Connected reports whether Connect has been called and succeeded.
	Connected() bool

	// Query returns every record in table, oldest first. An unknown table
	// yields an empty slice, not an error.
	Query(ctx context.Context, table string) ([]Record, error)

	// Get returns the record with the given id, or ErrNotFound.
	Get(ctx context.Context, table, id string) (Record, error)

	// Insert stores data under a freshly assigned UUID id and returns the
	// stored record.
	Insert(ctx context.Context, table string, data []byte) (Record, error)

	// Update replaces the payload of an existing record and returns the
	// updated record, or ErrNotFound when the id is absent. Partial updates
	// are expressed by the caller as read-modify-write; the store itself is
	// atomic only at single-record granularity.
	Update(ctx context.Context, table, id string, data []byte) (Record, error)

	// Delete removes a record. It reports whether a record was removed;
	// deleting an absent id is not an error.
	Delete(ctx context.Context, table, id string) (bool, error)

	// Clear removes every record in table.
	Clear(ctx context.Context, table string) error
}

// Package store – MemStore
//
// This file implements the in-memory store used as the default driver and
// throughout the test suite. Tables are ordered slices guarded by a single
// RWMutex; ids are UUIDv4 strings, which keeps insert-assigned ids unique
// even under concurrent inserts without a per-table sequence.
package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// MemStore is an in-memory Store implementation. The zero value is not
// usable; construct with NewMemStore and call Connect before use.
type MemStore struct {
	mu        sync.RWMutex
	connected bool
	tables    map[string][]Record

	// now is the clock used for record timestamps; injectable for tests.
	now func() time.Time
}

// NewMemStore returns an unconnected in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		tables: make(map[string][]Record),
		now:    time.Now,
	}
}

// Connect marks the store usable and resets all tables.
func (m *MemStore) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = true
	m.tables = map[string][]Record{
		TableAccounts:    {},
		TableOrders:      {},
		TablePayments:    {},
		TableIdempotency: {},
	}
	log.Debug().Msg("memstore connected")
	return nil
}

// Close marks the store unusable. Data is retained until the next Connect.
func (m *MemStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Connected reports whether Connect has been called.
func (m *MemStore) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// Query returns a copy of every record in table, oldest first.
func (m *MemStore) Query(ctx context.Context, table string) ([]Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return nil, ErrNotConnected
	}
	rows := m.tables[table]
	out := make([]Record, len(rows))
	copy(out, rows)
	return out, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (m *MemStore) Get(ctx context.Context, table, id string) (Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.connected {
		return Record{}, ErrNotConnected
	}
	for _, r := range m.tables[table] {
		if r.ID == id {
			return r, nil
		}
	}
	return Record{}, ErrNotFound
}

// Insert appends a record with a fresh UUID id and returns it.
func (m *MemStore) Insert(ctx context.Context, table string, data []byte) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return Record{}, ErrNotConnected
	}
	now := m.now().UTC()
	rec := Record{
		ID:        uuid.NewString(),
		Data:      append([]byte(nil), data...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.tables[table] = append(m.tables[table], rec)
	log.Debug().Str("table", table).Str("id", rec.ID).Msg("memstore insert")
	return rec, nil
}

// Update replaces the payload of an existing record, or returns ErrNotFound.
func (m *MemStore) Update(ctx context.Context, table, id string, data []byte) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return Record{}, ErrNotConnected
	}
	rows := m.tables[table]
	for i := range rows {
		if rows[i].ID == id {
			rows[i].Data = append([]byte(nil), data...)
			rows[i].UpdatedAt = m.now().UTC()
			return rows[i], nil
		}
	}
	return Record{}, ErrNotFound
}

// Delete removes a record by id, reporting whether anything was removed.
func (m *MemStore) Delete(ctx context.Context, table, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return false, ErrNotConnected
	}
	rows := m.tables[table]
	for i := range rows {
		if rows[i].ID == id {
			m.tables[table] = append(rows[:i:i], rows[i+1:]...)
			log.Debug().Str("table", table).Str("id", id).Msg("memstore delete")
			return true, nil
		}
	}
	return false, nil
}

// Clear truncates a table.
func (m *MemStore) Clear(ctx context.Context, table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.connected {
		return ErrNotConnected
	}
	m.tables[table] = nil
	return nil
}

// Package store – SQLiteStore
//
// This file implements the durable Store backed by GORM with the pure-Go
// SQLite driver. Every logical table shares one physical "records" table
// keyed by (table_name, id); payloads stay opaque JSON so the engine can be
// swapped without touching any repository or service.
package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// row is the GORM model backing every logical table.
type row struct {
	Table     string    `gorm:"column:table_name;type:TEXT NOT NULL;primaryKey"`
	ID        string    `gorm:"column:id;type:TEXT NOT NULL;primaryKey"`
	Data      []byte    `gorm:"column:data;type:BLOB NOT NULL"`
	CreatedAt time.Time `gorm:"column:created_at;type:DATETIME NOT NULL;index"`
	UpdatedAt time.Time `gorm:"column:updated_at;type:DATETIME NOT NULL"`
}

// TableName implements the GORM tabler interface.
func (row) TableName() string { return "records" }

// SQLiteStore is a durable Store implementation. Construct with
// NewSQLiteStore and call Connect before use.
type SQLiteStore struct {
	path string

	mu sync.RWMutex
	db *gorm.DB
}

// NewSQLiteStore returns an unconnected store writing to the given file
// path. The parent directory must already exist.
func NewSQLiteStore(path string) *SQLiteStore {
	return &SQLiteStore{path: path}
}

// Connect opens (or creates) the database file, applies PRAGMAs and pool
// settings, and migrates the records table.
func (s *SQLiteStore) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db != nil {
		return nil
	}

	// Fail early if the parent directory does not exist (instead of the
	// sqlite "out of memory (14)" error on some platforms).
	if dir := filepath.Dir(s.path); dir != "." {
		if _, err := os.Stat(dir); err != nil {
			return err
		}
	}

	db, err := gorm.Open(sqlite.Open(s.path), &gorm.Config{})
	if err != nil {
		return err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	if err := db.WithContext(ctx).AutoMigrate(&row{}); err != nil {
		return err
	}

	s.db = db
	return nil
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	s.db = nil
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Connected reports whether Connect has succeeded.
func (s *SQLiteStore) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db != nil
}

// handle returns the live DB handle or ErrNotConnected.
func (s *SQLiteStore) handle() (*gorm.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.db == nil {
		return nil, ErrNotConnected
	}
	return s.db, nil
}

// Query returns every record in table, oldest first.
func (s *SQLiteStore) Query(ctx context.Context, table string) ([]Record, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	var rows []row
	if err := db.WithContext(ctx).
		Where("table_name = ?", table).
		Order("created_at asc").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{ID: r.ID, Data: r.Data, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt})
	}
	return out, nil
}

// Get returns the record with the given id, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, table, id string) (Record, error) {
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	var r row
	err = db.WithContext(ctx).
		Where("table_name = ? AND id = ?", table, id).
		First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return Record{ID: r.ID, Data: r.Data, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
}

// Insert stores data under a fresh UUID id.
func (s *SQLiteStore) Insert(ctx context.Context, table string, data []byte) (Record, error) {
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	now := time.Now().UTC()
	r := row{
		Table:     table,
		ID:        uuid.NewString(),
		Data:      append([]byte(nil), data...),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := db.WithContext(ctx).Create(&r).Error; err != nil {
		return Record{}, err
	}
	return Record{ID: r.ID, Data: r.Data, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}, nil
}

// Update replaces the payload of an existing record, or returns ErrNotFound.
func (s *SQLiteStore) Update(ctx context.Context, table, id string, data []byte) (Record, error) {
	db, err := s.handle()
	if err != nil {
		return Record{}, err
	}
	now := time.Now().UTC()
	res := db.WithContext(ctx).
		Model(&row{}).
		Where("table_name = ? AND id = ?", table, id).
		Updates(map[string]any{"data": append([]byte(nil), data...), "updated_at": now})
	if res.Error != nil {
		return Record{}, res.Error
	}
	if res.RowsAffected == 0 {
		return Record{}, ErrNotFound
	}
	return s.Get(ctx, table, id)
}

// Delete removes a record by id, reporting whether anything was removed.
func (s *SQLiteStore) Delete(ctx context.Context, table, id string) (bool, error) {
	db, err := s.handle()
	if err != nil {
		return false, err
	}
	res := db.WithContext(ctx).
		Where("table_name = ? AND id = ?", table, id).
		Delete(&row{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Clear removes every record in table.
func (s *SQLiteStore) Clear(ctx context.Context, table string) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	return db.WithContext(ctx).
		Where("table_name = ?", table).
		Delete(&row{}).Error
}

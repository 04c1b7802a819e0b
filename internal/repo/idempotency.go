// Package repo implements the typed data access layer over the record
// store. This file provides repository helpers for the Idempotency model
// used to implement safe-retry semantics for payment submission.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/store"
)

// ErrDuplicate indicates that a live idempotency record already exists for
// the given (account_id, order_id, key) tuple.
var ErrDuplicate = errors.New("duplicate")

// IdempotencyRepo persists idempotency records in the record store.
// The record store has no unique indexes, so Create performs a lookup
// first; the small race window this leaves is acceptable for a
// best-effort replay guard.
type IdempotencyRepo struct {
	Store store.Store
}

// NewIdempotencyRepo constructs an IdempotencyRepo bound to the given store.
func NewIdempotencyRepo(s store.Store) *IdempotencyRepo {
	return &IdempotencyRepo{Store: s}
}

// Get returns a non-expired record for (accountID, orderID, key) or
// ErrNotFound. Expired records are evicted when touched.
func (r *IdempotencyRepo) Get(ctx context.Context, accountID, orderID, key string, now time.Time) (*domain.Idempotency, error) {
	if orderID == "" || key == "" {
		return nil, ErrNotFound
	}
	recs, err := r.Store.Query(ctx, store.TableIdempotency)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		var idem domain.Idempotency
		if err := json.Unmarshal(rec.Data, &idem); err != nil {
			return nil, err
		}
		idem.ID = rec.ID
		if idem.AccountID != accountID || idem.OrderID != orderID || idem.Key != key {
			continue
		}
		if idem.Expired(now) {
			_, _ = r.Store.Delete(ctx, store.TableIdempotency, rec.ID)
			continue
		}
		return &idem, nil
	}
	return nil, ErrNotFound
}

// Create inserts a record and returns ErrDuplicate when a live record for
// the same tuple already exists.
func (r *IdempotencyRepo) Create(ctx context.Context, accountID, orderID, key, transactionID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	if existing, err := r.Get(ctx, accountID, orderID, key, now); err == nil && existing != nil {
		return nil, ErrDuplicate
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	idem := domain.Idempotency{
		AccountID:     accountID,
		OrderID:       orderID,
		Key:           key,
		TransactionID: transactionID,
		Status:        status,
		CreatedAt:     now,
		ExpiresAt:     now.Add(ttl),
	}
	data, err := json.Marshal(&idem)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Insert(ctx, store.TableIdempotency, data)
	if err != nil {
		return nil, err
	}
	idem.ID = rec.ID
	return &idem, nil
}

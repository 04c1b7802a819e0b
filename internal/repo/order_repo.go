// Package repo implements the typed data access layer over the record
// store. This file provides the order repository.
package repo

import (
	"context"
	"encoding/json"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/store"
)

// OrderRepo persists domain.Order rows in the orders table.
type OrderRepo struct {
	Store store.Store
}

// NewOrderRepo constructs an OrderRepo bound to the given store.
func NewOrderRepo(s store.Store) *OrderRepo {
	return &OrderRepo{Store: s}
}

// Create inserts the order and returns it with its assigned id and
// creation timestamp.
func (r *OrderRepo) Create(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Insert(ctx, store.TableOrders, data)
	if err != nil {
		return nil, err
	}
	o.ID = rec.ID
	o.CreatedAt = rec.CreatedAt
	o.UpdatedAt = rec.UpdatedAt
	return o, nil
}

// Get returns the order with the given id, or ErrNotFound.
func (r *OrderRepo) Get(ctx context.Context, id string) (*domain.Order, error) {
	rec, err := r.Store.Get(ctx, store.TableOrders, id)
	if err != nil {
		return nil, err
	}
	return decodeOrder(rec)
}

// ListByAccount returns every order owned by accountID, oldest first.
func (r *OrderRepo) ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error) {
	recs, err := r.Store.Query(ctx, store.TableOrders)
	if err != nil {
		return nil, err
	}
	out := []domain.Order{}
	for _, rec := range recs {
		o, err := decodeOrder(rec)
		if err != nil {
			return nil, err
		}
		if o.AccountID == accountID {
			out = append(out, *o)
		}
	}
	return out, nil
}

// Update persists the given order under its id. The target must already
// exist; ErrNotFound is returned otherwise.
func (r *OrderRepo) Update(ctx context.Context, o *domain.Order) (*domain.Order, error) {
	data, err := json.Marshal(o)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Update(ctx, store.TableOrders, o.ID, data)
	if err != nil {
		return nil, err
	}
	o.UpdatedAt = rec.UpdatedAt
	return o, nil
}

// decodeOrder unmarshals a stored record into a domain.Order.
func decodeOrder(rec store.Record) (*domain.Order, error) {
	var o domain.Order
	if err := json.Unmarshal(rec.Data, &o); err != nil {
		return nil, err
	}
	o.ID = rec.ID
	if o.CreatedAt.IsZero() {
		o.CreatedAt = rec.CreatedAt
	}
	o.UpdatedAt = rec.UpdatedAt
	return &o, nil
}

// Package repo implements the typed data access layer over the record
// store. This file provides the payment repository.
package repo

import (
	"context"
	"encoding/json"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/store"
)

// PaymentRepo persists domain.Payment rows in the payments table.
type PaymentRepo struct {
	Store store.Store
}

// NewPaymentRepo constructs a PaymentRepo bound to the given store.
func NewPaymentRepo(s store.Store) *PaymentRepo {
	return &PaymentRepo{Store: s}
}

// Create inserts the payment and returns it with its assigned transaction
// id.
func (r *PaymentRepo) Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Insert(ctx, store.TablePayments, data)
	if err != nil {
		return nil, err
	}
	p.ID = rec.ID
	return p, nil
}

// Get returns the payment with the given transaction id, or ErrNotFound.
func (r *PaymentRepo) Get(ctx context.Context, id string) (*domain.Payment, error) {
	rec, err := r.Store.Get(ctx, store.TablePayments, id)
	if err != nil {
		return nil, err
	}
	return decodePayment(rec)
}

// ListByOrder returns every payment recorded against orderID, oldest first.
func (r *PaymentRepo) ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error) {
	recs, err := r.Store.Query(ctx, store.TablePayments)
	if err != nil {
		return nil, err
	}
	out := []domain.Payment{}
	for _, rec := range recs {
		p, err := decodePayment(rec)
		if err != nil {
			return nil, err
		}
		if p.OrderID == orderID {
			out = append(out, *p)
		}
	}
	return out, nil
}

// Update persists the given payment under its id. The target must already
// exist; ErrNotFound is returned otherwise.
func (r *PaymentRepo) Update(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	if _, err := r.Store.Update(ctx, store.TablePayments, p.ID, data); err != nil {
		return nil, err
	}
	return p, nil
}

// decodePayment unmarshals a stored record into a domain.Payment.
func decodePayment(rec store.Record) (*domain.Payment, error) {
	var p domain.Payment
	if err := json.Unmarshal(rec.Data, &p); err != nil {
		return nil, err
	}
	p.ID = rec.ID
	return &p, nil
}

// Handler wiring.
//
// Handlers groups the HTTP endpoints for accounts, orders, and payments. It
// depends on abstract service interfaces to keep transport concerns separate
// from business logic.
package handlers

import (
	"context"
	"time"

	"github.com/tbourn/go-commerce-backend/internal/domain"
)

// IdempotencyStore persists payment replay records keyed by
// (account, order, idempotency key). Implementations enforce a TTL.
type IdempotencyStore interface {
	Get(ctx context.Context, accountID, orderID, key string, now time.Time) (*domain.Idempotency, error)
	Create(ctx context.Context, accountID, orderID, key, transactionID string, status int, ttl time.Duration) (*domain.Idempotency, error)
}

// Handlers groups HTTP endpoints for accounts, orders, and payments.
type Handlers struct {
	accountSvc AccountService
	orderSvc   OrderService
	paymentSvc PaymentService

	// idemStore records completed payment submissions for safe retries;
	// may be nil to disable replay detection.
	idemStore IdempotencyStore
	// idemTTL bounds how long a recorded submission can be replayed.
	idemTTL time.Duration

	// taxRate is applied when deriving order tax for responses.
	taxRate float64
}

// Options carries the cross-cutting knobs handlers need beyond their
// services.
type Options struct {
	TaxRate        float64
	IdempotencyTTL time.Duration
	Idempotency    IdempotencyStore
}

// New constructs and returns a Handlers instance bound to the given services.
func New(accountSvc AccountService, orderSvc OrderService, paymentSvc PaymentService, opts Options) *Handlers {
	if opts.IdempotencyTTL <= 0 {
		opts.IdempotencyTTL = 24 * time.Hour
	}
	return &Handlers{
		accountSvc: accountSvc,
		orderSvc:   orderSvc,
		paymentSvc: paymentSvc,
		idemStore:  opts.Idempotency,
		idemTTL:    opts.IdempotencyTTL,
		taxRate:    opts.TaxRate,
	}
}

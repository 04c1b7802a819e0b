// Package domain defines the core entities of the commerce backend.
// This file holds the idempotency record used to deduplicate payment
// submissions.
package domain

import "time"

// Idempotency records a previously processed payment request, keyed by
// (account_id, order_id, key). A replayed request within the TTL window is
// answered from the recorded transaction instead of charging again.
type Idempotency struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"account_id"`
	OrderID       string    `json:"order_id"`
	Key           string    `json:"key"`
	TransactionID string    `json:"transaction_id"`
	Status        int       `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// Expired reports whether the record's replay window has passed at now.
func (i *Idempotency) Expired(now time.Time) bool { return now.After(i.ExpiresAt) }

// Package domain defines the core entities of the commerce backend: accounts,
// orders with their line items, and payment transactions. These types are
// plain data structures serialized to JSON by the repository layer; the
// record store underneath is schema-agnostic.
package domain

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"
)

// Role enumerates the access level of an account.
type Role string

const (
	// RoleUser is the default role assigned at registration.
	RoleUser Role = "user"
	// RoleAdmin marks privileged accounts.
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// Account validation errors. Services wrap these into their own sentinel
// so handlers can map all malformed-input cases to a single error code.
var (
	// ErrInvalidEmail is returned when an email is not well-formed
	// (a single @ with a local part and a dotted domain fragment).
	ErrInvalidEmail = errors.New("invalid email format")

	// ErrInvalidName is returned when a display name is shorter than
	// three characters.
	ErrInvalidName = errors.New("name must be at least 3 characters")
)

// emailRE accepts local@domain.tld shapes and rejects whitespace and
// multiple @ signs.
var emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Account represents a registered identity.
//
// Fields:
//   - ID: store-assigned UUID, unique for the lifetime of the account table.
//   - Name: display name (>= 3 characters).
//   - Email: secondary lookup key; well-formedness enforced by Validate.
//   - Role: "user" (default) or "admin".
//   - Active: soft activation flag; deactivation keeps the record.
//   - SecretHash: deterministic hash of the account secret. Never exposed
//     over the API (handlers serialize a sanitized view).
type Account struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Role       Role      `json:"role"`
	Active     bool      `json:"active"`
	SecretHash string    `json:"secret_hash,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks the account's format invariants. It returns
// ErrInvalidEmail or ErrInvalidName on the first violated rule.
// A violated rule must prevent the account from ever being persisted.
func (a *Account) Validate() error {
	if !emailRE.MatchString(a.Email) {
		return ErrInvalidEmail
	}
	if utf8.RuneCountInString(a.Name) < 3 {
		return ErrInvalidName
	}
	return nil
}

// Deactivate clears the active flag. The record is retained.
func (a *Account) Deactivate() { a.Active = false }

// Activate sets the active flag.
func (a *Account) Activate() { a.Active = true }

// LineItem is a single purchasable entry within an order.
type LineItem struct {
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderStatus enumerates the order state machine:
//
//	pending → paid → shipped → delivered
//	pending|paid → cancelled (terminal)
//
// Shipped and delivered orders can no longer be cancelled.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusPaid      OrderStatus = "paid"
	StatusShipped   OrderStatus = "shipped"
	StatusDelivered OrderStatus = "delivered"
	StatusCancelled OrderStatus = "cancelled"
)

// transitions is the authoritative order state transition table.
var transitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusPaid, StatusCancelled},
	StatusPaid:      {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered},
	StatusDelivered: {},
	StatusCancelled: {},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Unknown states permit nothing.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Order represents a customer order. The total is maintained as the items
// subtotal minus the cumulative discount; tax is derived from the current
// total at read time and never stored.
//
// Fields:
//   - ID: store-assigned UUID.
//   - AccountID: owning account (plain id reference, no embedding).
//   - Items: ordered line items as supplied at creation.
//   - Total: running total after discounts.
//   - Discount: cumulative discount amount subtracted from the subtotal.
//   - Status: state machine position (see OrderStatus).
//   - ShippedAt / DeliveredAt: set when the respective transition happens.
type Order struct {
	ID          string      `json:"id"`
	AccountID   string      `json:"account_id"`
	Items       []LineItem  `json:"items"`
	Total       float64     `json:"total"`
	Discount    float64     `json:"discount"`
	Status      OrderStatus `json:"status"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
	ShippedAt   *time.Time  `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time  `json:"delivered_at,omitempty"`
}

// Subtotal reconstructs the pre-discount total.
func (o *Order) Subtotal() float64 { return o.Total + o.Discount }

// Tax derives the tax amount from the current total. It is computed at
// read time so discounts applied later are always reflected.
func (o *Order) Tax(rate float64) float64 { return o.Total * rate }

// ErrInvalidDiscountPercent is returned by ApplyDiscount for percentages
// outside [0, 100].
var ErrInvalidDiscountPercent = errors.New("discount percent must be between 0 and 100")

// ApplyDiscount reduces the order total by percent of the *current* total.
// A second discount therefore compounds against the already-discounted
// amount rather than the original subtotal. The cumulative discount amount
// is tracked so Subtotal stays consistent.
func (o *Order) ApplyDiscount(percent float64) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidDiscountPercent, percent)
	}
	amount := o.Total * percent / 100
	o.Discount += amount
	o.Total -= amount
	return nil
}

// PaymentMethod enumerates the accepted payment instruments.
type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodPayPal       PaymentMethod = "paypal"
	MethodBankTransfer PaymentMethod = "bank_transfer"
)

// PaymentMethods lists every accepted method, in a stable order. The
// configuration layer may narrow this set but never widen it.
func PaymentMethods() []PaymentMethod {
	return []PaymentMethod{MethodCreditCard, MethodDebitCard, MethodPayPal, MethodBankTransfer}
}

// PaymentStatus is the lifecycle position of a payment transaction.
type PaymentStatus string

const (
	PaymentCompleted PaymentStatus = "completed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Payment records a processed transaction against an order. Payments are
// immutable once created except for the refund transition.
//
// Fields:
//   - ID: store-assigned UUID; doubles as the transaction id.
//   - Reference: short human-facing reference (TXN_…), derived from the id.
//   - OrderID: the paid order (plain id reference).
//   - Amount: amount tendered; always >= the order total at processing time.
//   - RefundedAt: set only by the refund transition.
type Payment struct {
	ID          string        `json:"id"`
	Reference   string        `json:"reference"`
	OrderID     string        `json:"order_id"`
	Amount      float64       `json:"amount"`
	Method      PaymentMethod `json:"method"`
	Status      PaymentStatus `json:"status"`
	ProcessedAt time.Time     `json:"processed_at"`
	RefundedAt  *time.Time    `json:"refunded_at,omitempty"`
}

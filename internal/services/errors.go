// Package services defines the business logic for accounts, orders, and
// payments. This file centralizes common service-level error values so that
// they can be consistently returned by service methods and checked by
// callers.
//
// These errors are intended for internal use by the service layer;
// translation into user-facing messages or HTTP status codes is performed
// at the handler layer. Every service method either returns a definite
// result or fails with exactly one of these kinds — no method returns a
// nil/sentinel value for an error it could classify.
package services

import "errors"

// Account-related errors.
var (
	// ErrInvalidAccount indicates malformed registration or profile data
	// (email format, name length, missing required fields).
	ErrInvalidAccount = errors.New("invalid account data")

	// ErrAccountExists is returned when the registration pre-check finds
	// an account with the same email.
	ErrAccountExists = errors.New("account already exists")

	// ErrAccountNotFound indicates that the referenced account does not
	// exist.
	ErrAccountNotFound = errors.New("account not found")

	// ErrInvalidCredentials is returned when a presented secret does not
	// match the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSamePassword is returned when a password change presents a new
	// secret identical to the old one.
	ErrSamePassword = errors.New("new password must be different")
)

// Order-related errors.
var (
	// ErrOrderNotFound indicates that the referenced order does not exist.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidDiscount is returned when a discount percentage is outside
	// the 0–100 range.
	ErrInvalidDiscount = errors.New("invalid discount percent")

	// ErrInvalidTransition is returned when an order status change
	// violates the state machine (e.g., cancelling a shipped order).
	ErrInvalidTransition = errors.New("invalid order status transition")
)

// Payment-related errors.
var (
	// ErrPaymentNotFound indicates that the referenced transaction does
	// not exist.
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrInsufficientPayment is returned when the tendered amount is below
	// the order total.
	ErrInsufficientPayment = errors.New("insufficient payment amount")

	// ErrInvalidPaymentMethod is returned for methods outside the accepted
	// enumeration.
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
)

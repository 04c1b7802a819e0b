// Package services – PaymentService
//
// This file implements the PaymentService, which validates and records
// payments against orders and performs refunds. Processing a payment is
// two separate writes (the payment insert and the order status update)
// with no transaction spanning them; a crash between the two leaves a
// completed payment against a still-pending order.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/notify"
	"github.com/tbourn/go-commerce-backend/internal/repo"
)

// PaymentRepo defines the repository contract required by PaymentService.
type PaymentRepo interface {
	Create(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
	Get(ctx context.Context, id string) (*domain.Payment, error)
	ListByOrder(ctx context.Context, orderID string) ([]domain.Payment, error)
	Update(ctx context.Context, p *domain.Payment) (*domain.Payment, error)
}

// OrderManager is the slice of the order layer the payment service needs:
// reading an order to validate the amount and moving it to paid.
type OrderManager interface {
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error)
}

// PaymentService provides the payment use-cases.
type PaymentService struct {
	// Repo is the payment repository.
	Repo PaymentRepo
	// Orders validates targets and records the paid transition.
	Orders OrderManager
	// Accounts resolves the receipt recipient; may be nil.
	Accounts AccountReader
	// Methods is the accepted payment method enumeration.
	Methods []domain.PaymentMethod
	// Notifier dispatches payment receipts; may be nil.
	Notifier notify.Notifier
}

// NewPaymentService constructs a PaymentService accepting the default
// method enumeration.
func NewPaymentService(r PaymentRepo, orders OrderManager, accounts AccountReader, n notify.Notifier) *PaymentService {
	return &PaymentService{Repo: r, Orders: orders, Accounts: accounts, Methods: domain.PaymentMethods(), Notifier: n}
}

// ProcessPayment validates and records a payment against an order.
//
// Validation runs in a fixed sequence, and the first failure wins:
// the order must exist (ErrOrderNotFound), the amount must cover the
// current order total (ErrInsufficientPayment), and the method must be in
// the accepted enumeration (ErrInvalidPaymentMethod). An amount one cent
// below the total is rejected; exact and over payments both succeed, and
// overpayment is recorded as-is with no change due.
//
// On success the payment is stored as completed and the order is moved to
// paid via the order service. The transition is pre-checked before the
// payment insert: paying a cancelled or already paid order fails with
// ErrInvalidTransition and leaves no payment record behind.
func (s *PaymentService) ProcessPayment(ctx context.Context, orderID string, amount float64, method domain.PaymentMethod) (*domain.Payment, error) {
	order, err := s.Orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if amount < order.Total {
		return nil, ErrInsufficientPayment
	}
	if !s.methodAccepted(method) {
		return nil, ErrInvalidPaymentMethod
	}
	// The paid transition is re-checked by UpdateStatus below, but failing
	// early keeps a doomed payment out of the store.
	if !order.Status.CanTransitionTo(domain.StatusPaid) {
		return nil, ErrInvalidTransition
	}

	payment := &domain.Payment{
		Reference:   newReference(),
		OrderID:     orderID,
		Amount:      amount,
		Method:      method,
		Status:      domain.PaymentCompleted,
		ProcessedAt: time.Now().UTC(),
	}
	created, err := s.Repo.Create(ctx, payment)
	if err != nil {
		return nil, err
	}

	if _, err := s.Orders.UpdateStatus(ctx, orderID, domain.StatusPaid); err != nil {
		return nil, err
	}
	log.Info().Str("transaction_id", created.ID).Str("reference", created.Reference).
		Str("order_id", orderID).Float64("amount", amount).Msg("payment processed")

	s.dispatchReceipt(ctx, order.AccountID, created)
	return created, nil
}

// RefundPayment marks an existing payment as refunded. The owning order
// keeps its status: refunds do not revert paid, shipped, or delivered
// orders.
func (s *PaymentService) RefundPayment(ctx context.Context, transactionID string) (*domain.Payment, error) {
	payment, err := s.PaymentStatus(ctx, transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	payment.Status = domain.PaymentRefunded
	payment.RefundedAt = &now

	updated, err := s.Repo.Update(ctx, payment)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	log.Info().Str("transaction_id", transactionID).Msg("payment refunded")
	return updated, nil
}

// PaymentStatus returns the payment with the given transaction id, or
// ErrPaymentNotFound.
func (s *PaymentService) PaymentStatus(ctx context.Context, transactionID string) (*domain.Payment, error) {
	payment, err := s.Repo.Get(ctx, transactionID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return payment, nil
}

// ListPayments returns every payment recorded against orderID, oldest
// first. Refunded payments remain in the history.
func (s *PaymentService) ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error) {
	return s.Repo.ListByOrder(ctx, orderID)
}

func (s *PaymentService) methodAccepted(method domain.PaymentMethod) bool {
	for _, m := range s.Methods {
		if m == method {
			return true
		}
	}
	return false
}

// dispatchReceipt sends the payment confirmation fire-and-forget. A
// missing account or notifier skips the receipt without failing the
// payment.
func (s *PaymentService) dispatchReceipt(ctx context.Context, accountID string, p *domain.Payment) {
	if s.Notifier == nil || s.Accounts == nil {
		return
	}
	account, err := s.Accounts.FindByID(ctx, accountID)
	if err != nil {
		log.Warn().Err(err).Str("account_id", accountID).Msg("receipt recipient lookup failed")
		return
	}
	subject, body := notify.PaymentReceipt(p.Reference, p.Amount)
	if err := s.Notifier.Send(ctx, account.Email, subject, body); err != nil {
		log.Error().Err(err).Str("transaction_id", p.ID).Msg("receipt dispatch failed")
	}
}

// newReference builds a short human-readable payment reference distinct
// from the store-assigned transaction id.
func newReference() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TXN_" + raw[:7]
}

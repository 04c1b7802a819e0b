// Package services – OrderService
//
// This file implements the OrderService, which owns order creation, total
// calculation, discount application, and the status state machine. Orders
// are created only against existing accounts; the existence check and the
// insert are separate store operations with no cross-table atomicity.
package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/repo"
)

// OrderRepo defines the repository contract required by OrderService.
type OrderRepo interface {
	Create(ctx context.Context, o *domain.Order) (*domain.Order, error)
	Get(ctx context.Context, id string) (*domain.Order, error)
	ListByAccount(ctx context.Context, accountID string) ([]domain.Order, error)
	Update(ctx context.Context, o *domain.Order) (*domain.Order, error)
}

// AccountReader is the read-only slice of the account layer the order
// service depends on for existence checks.
type AccountReader interface {
	FindByID(ctx context.Context, id string) (*domain.Account, error)
}

// OrderService provides the order lifecycle use-cases.
type OrderService struct {
	// Repo is the order repository.
	Repo OrderRepo
	// Accounts resolves order ownership.
	Accounts AccountReader
	// TaxRate is the rate used when deriving tax for read models.
	TaxRate float64
}

// NewOrderService constructs an OrderService with the default 10% tax rate.
func NewOrderService(r OrderRepo, accounts AccountReader) *OrderService {
	return &OrderService{Repo: r, Accounts: accounts, TaxRate: 0.1}
}

// CalculateTotal sums price × quantity over the line items. It is a pure
// function: callers pass its result into CreateOrder, and no stored total
// is ever implicitly recomputed from items.
func CalculateTotal(items []domain.LineItem) float64 {
	var total float64
	for _, it := range items {
		total += it.Price * float64(it.Quantity)
	}
	return total
}

// CreateOrder persists a new pending order for accountID with the
// caller-supplied total. It fails with ErrAccountNotFound when the account
// does not exist.
func (s *OrderService) CreateOrder(ctx context.Context, accountID string, items []domain.LineItem, total float64) (*domain.Order, error) {
	if _, err := s.Accounts.FindByID(ctx, accountID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}

	order := &domain.Order{
		AccountID: accountID,
		Items:     items,
		Total:     total,
		Status:    domain.StatusPending,
	}
	created, err := s.Repo.Create(ctx, order)
	if err != nil {
		return nil, err
	}
	log.Info().Str("order_id", created.ID).Str("account_id", accountID).
		Int("items", len(items)).Float64("total", total).Msg("order created")
	return created, nil
}

// GetOrder returns the order with the given id, or ErrOrderNotFound.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.Repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

// ListOrders returns every order owned by accountID, oldest first.
func (s *OrderService) ListOrders(ctx context.Context, accountID string) ([]domain.Order, error) {
	return s.Repo.ListByAccount(ctx, accountID)
}

// ApplyDiscount reduces the order total by percent of its current total
// and persists the result. Percent must be within [0, 100]
// (ErrInvalidDiscount otherwise). Applying a second discount compounds
// against the already-discounted total, not the original subtotal.
func (s *OrderService) ApplyDiscount(ctx context.Context, orderID string, percent float64) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.ApplyDiscount(percent); err != nil {
		return nil, errors.Join(ErrInvalidDiscount, err)
	}
	order.UpdatedAt = time.Now().UTC()

	updated, err := s.Repo.Update(ctx, order)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	log.Info().Str("order_id", orderID).Float64("percent", percent).
		Float64("new_total", updated.Total).Msg("discount applied")
	return updated, nil
}

// UpdateStatus moves the order to next, enforcing the transition table.
// Invalid transitions fail with ErrInvalidTransition instead of silently
// succeeding. Ship and deliver transitions stamp their timestamps.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID string, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !next.Valid() || !order.Status.CanTransitionTo(next) {
		return nil, ErrInvalidTransition
	}

	now := time.Now().UTC()
	order.Status = next
	order.UpdatedAt = now
	switch next {
	case domain.StatusShipped:
		order.ShippedAt = &now
	case domain.StatusDelivered:
		order.DeliveredAt = &now
	}

	updated, err := s.Repo.Update(ctx, order)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	log.Info().Str("order_id", orderID).Str("status", string(next)).Msg("order status updated")
	return updated, nil
}

// ShipOrder transitions the order to shipped.
func (s *OrderService) ShipOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, orderID, domain.StatusShipped)
}

// DeliverOrder transitions the order to delivered.
func (s *OrderService) DeliverOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, orderID, domain.StatusDelivered)
}

// CancelOrder transitions the order to cancelled. Shipped and delivered
// orders cannot be cancelled (ErrInvalidTransition).
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.UpdateStatus(ctx, orderID, domain.StatusCancelled)
}

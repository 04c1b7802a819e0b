// Payment HTTP handlers.
//
// This file exposes REST endpoints for payment resources:
//   - POST /orders/{id}/payments       (process a payment)
//   - GET  /orders/{id}/payments       (payment history for an order)
//   - GET  /payments/{id}              (transaction status)
//   - POST /payments/{id}/refund       (refund)
//
// Payment submission honors the Idempotency-Key header: a retried request
// carrying the same key within the TTL is served from the recorded
// transaction instead of charging twice.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/http/middleware"
	"github.com/tbourn/go-commerce-backend/internal/services"
)

// PaymentService defines payment operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PaymentService interface {
	// ProcessPayment validates and records a payment, moving the order to paid.
	ProcessPayment(ctx context.Context, orderID string, amount float64, method domain.PaymentMethod) (*domain.Payment, error)
	// RefundPayment marks a transaction refunded without touching the order.
	RefundPayment(ctx context.Context, transactionID string) (*domain.Payment, error)
	// PaymentStatus fetches a transaction by id.
	PaymentStatus(ctx context.Context, transactionID string) (*domain.Payment, error)
	// ListPayments returns every payment recorded against an order.
	ListPayments(ctx context.Context, orderID string) ([]domain.Payment, error)
}

//
// DTOs
//

// ProcessPaymentRequest is the JSON payload for submitting a payment.
type ProcessPaymentRequest struct {
	Amount *float64 `json:"amount" binding:"required" example:"202.5"`
	Method string   `json:"method" binding:"required" example:"credit_card"`
}

// PaymentView is the payment representation returned by the API.
type PaymentView struct {
	ID          string     `json:"id"`
	Reference   string     `json:"reference"`
	OrderID     string     `json:"order_id"`
	Amount      float64    `json:"amount"`
	Method      string     `json:"method"`
	Status      string     `json:"status"`
	ProcessedAt time.Time  `json:"processed_at"`
	RefundedAt  *time.Time `json:"refunded_at,omitempty"`
	// Replayed is true when the response was served from a previously
	// recorded submission instead of a fresh charge.
	Replayed bool `json:"replayed,omitempty"`
}

// viewPayment maps a domain payment to its API representation.
func viewPayment(p *domain.Payment) PaymentView {
	return PaymentView{
		ID:          p.ID,
		Reference:   p.Reference,
		OrderID:     p.OrderID,
		Amount:      p.Amount,
		Method:      string(p.Method),
		Status:      string(p.Status),
		ProcessedAt: p.ProcessedAt,
		RefundedAt:  p.RefundedAt,
	}
}

// ListPaymentsResponse wraps an order's payment history.
type ListPaymentsResponse struct {
	Payments []PaymentView `json:"payments"`
}

//
// Handlers
//

// ProcessPayment godoc
// @ID          processPayment
// @Summary     Pay for an order
// @Description Validates the amount against the current order total and records the transaction.
// @Description Retries carrying the same Idempotency-Key within the TTL replay the original transaction.
// @Tags        Payments
// @Accept      json
// @Produce     json
//
// @Param       id               path    string                          true   "Order ID (UUID)"  format(uuid)
// @Param       Idempotency-Key  header  string                          false  "Safe-retry key"
// @Param       body             body    handlers.ProcessPaymentRequest  true   "Payment payload"
//
// @Success     201  {object}  handlers.SuccessResponse{data=handlers.PaymentView}
// @Failure     400  {object}  handlers.ErrorResponse  "Insufficient amount / unknown method"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Order not payable"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id}/payments [post]
func (h *Handlers) ProcessPayment(c *gin.Context) {
	orderID := c.Param("id")
	if !requireUUID(c, orderID, "order") {
		return
	}
	var req ProcessPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Amount == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "amount and method required")
		return
	}

	ctx := c.Request.Context()
	accountID := middleware.AccountID(c)
	idemKey, _ := middleware.GetIdempotencyKey(c)

	// Serve a recorded submission instead of charging twice.
	if h.idemStore != nil && idemKey != "" {
		if rec, err := h.idemStore.Get(ctx, accountID, orderID, idemKey, time.Now().UTC()); err == nil {
			if payment, err := h.paymentSvc.PaymentStatus(ctx, rec.TransactionID); err == nil {
				view := viewPayment(payment)
				view.Replayed = true
				ok(c, rec.Status, view)
				return
			}
		}
	}

	payment, err := h.paymentSvc.ProcessPayment(ctx, orderID, *req.Amount, domain.PaymentMethod(req.Method))
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
		case errors.Is(err, services.ErrInsufficientPayment):
			fail(c, http.StatusBadRequest, ErrCodeInsufficientPayment, "payment amount below order total")
		case errors.Is(err, services.ErrInvalidPaymentMethod):
			fail(c, http.StatusBadRequest, ErrCodeInvalidPaymentMethod, "payment method not accepted")
		case errors.Is(err, services.ErrInvalidTransition):
			fail(c, http.StatusConflict, ErrCodeInvalidTransition, "order is not payable")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}

	// Best effort: a failed idempotency write must not fail the payment.
	if h.idemStore != nil && idemKey != "" {
		_, _ = h.idemStore.Create(ctx, accountID, orderID, idemKey, payment.ID, http.StatusCreated, h.idemTTL)
	}

	ok(c, http.StatusCreated, viewPayment(payment))
}

// ListPayments godoc
// @ID          listPayments
// @Summary     Payment history for an order
// @Description Refunded transactions remain in the history.
// @Tags        Payments
// @Produce     json
//
// @Param       id  path  string  true  "Order ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.ListPaymentsResponse}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id}/payments [get]
func (h *Handlers) ListPayments(c *gin.Context) {
	orderID := c.Param("id")
	if !requireUUID(c, orderID, "order") {
		return
	}
	payments, err := h.paymentSvc.ListPayments(c.Request.Context(), orderID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	views := make([]PaymentView, 0, len(payments))
	for i := range payments {
		views = append(views, viewPayment(&payments[i]))
	}
	ok(c, http.StatusOK, ListPaymentsResponse{Payments: views})
}

// PaymentStatus godoc
// @ID          paymentStatus
// @Summary     Fetch a transaction
// @Tags        Payments
// @Produce     json
//
// @Param       id  path  string  true  "Transaction ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.PaymentView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Payment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /payments/{id} [get]
func (h *Handlers) PaymentStatus(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "payment") {
		return
	}
	payment, err := h.paymentSvc.PaymentStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "payment not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, viewPayment(payment))
}

// RefundPayment godoc
// @ID          refundPayment
// @Summary     Refund a transaction
// @Description Marks the payment refunded. The owning order keeps its status.
// @Tags        Payments
// @Produce     json
//
// @Param       id  path  string  true  "Transaction ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.PaymentView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Payment not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /payments/{id}/refund [post]
func (h *Handlers) RefundPayment(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "payment") {
		return
	}
	payment, err := h.paymentSvc.RefundPayment(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrPaymentNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "payment not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, viewPayment(payment))
}

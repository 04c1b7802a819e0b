// Order HTTP handlers.
//
// This file exposes REST endpoints for order resources:
//   - POST   /orders                (create)
//   - GET    /orders                (list for an account, paginated)
//   - GET    /orders/{id}           (fetch with derived totals)
//   - POST   /orders/{id}/discount  (apply percentage discount)
//   - POST   /orders/{id}/ship      (transition to shipped)
//   - POST   /orders/{id}/deliver   (transition to delivered)
//   - POST   /orders/{id}/cancel    (transition to cancelled)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses. Tax is derived per response from
// the configured rate and never stored.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/services"
)

// OrderService defines order lifecycle operations consumed by HTTP handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type OrderService interface {
	// CreateOrder persists a pending order for an existing account.
	CreateOrder(ctx context.Context, accountID string, items []domain.LineItem, total float64) (*domain.Order, error)
	// GetOrder fetches a single order by id.
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	// ListOrders returns every order owned by the account, oldest first.
	ListOrders(ctx context.Context, accountID string) ([]domain.Order, error)
	// ApplyDiscount compounds a percentage discount onto the current total.
	ApplyDiscount(ctx context.Context, orderID string, percent float64) (*domain.Order, error)
	// ShipOrder, DeliverOrder and CancelOrder drive the state machine.
	ShipOrder(ctx context.Context, orderID string) (*domain.Order, error)
	DeliverOrder(ctx context.Context, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*domain.Order, error)
}

//
// DTOs
//

// OrderView is the order representation returned by the API. Subtotal and
// tax are derived from the stored totals at serialization time.
type OrderView struct {
	ID          string            `json:"id"`
	AccountID   string            `json:"account_id"`
	Items       []domain.LineItem `json:"items"`
	Subtotal    float64           `json:"subtotal"`
	Discount    float64           `json:"discount"`
	Total       float64           `json:"total"`
	Tax         float64           `json:"tax"`
	Status      string            `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	ShippedAt   *time.Time        `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time        `json:"delivered_at,omitempty"`
}

// viewOrder maps a domain order to its API representation using the given
// tax rate.
func viewOrder(o *domain.Order, taxRate float64) OrderView {
	return OrderView{
		ID:          o.ID,
		AccountID:   o.AccountID,
		Items:       o.Items,
		Subtotal:    o.Subtotal(),
		Discount:    o.Discount,
		Total:       o.Total,
		Tax:         o.Tax(taxRate),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
		ShippedAt:   o.ShippedAt,
		DeliveredAt: o.DeliveredAt,
	}
}

// CreateOrderRequest is the JSON payload for creating an order. The total is
// computed server-side from the line items.
type CreateOrderRequest struct {
	AccountID string            `json:"account_id" binding:"required" example:"141add05-4415-4938-b5a1-17e0d3171aff"`
	Items     []domain.LineItem `json:"items" binding:"required"`
}

// ApplyDiscountRequest is the JSON payload for discount application.
type ApplyDiscountRequest struct {
	Percent *float64 `json:"percent" binding:"required" example:"10"`
}

// ListOrdersResponse wraps a page of orders and pagination information.
type ListOrdersResponse struct {
	Orders     []OrderView `json:"orders"`
	Pagination Pagination  `json:"pagination"`
}

//
// Handlers
//

// CreateOrder godoc
// @ID          createOrder
// @Summary     Create a new order
// @Description Creates a pending order; the total is the sum of price times quantity over the items.
// @Tags        Orders
// @Accept      json
// @Produce     json
//
// @Param       body  body  handlers.CreateOrderRequest  true  "Create order payload"
//
// @Success     201  {object}  handlers.SuccessResponse{data=handlers.OrderView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Account not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders [post]
func (h *Handlers) CreateOrder(c *gin.Context) {
	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if !requireUUID(c, req.AccountID, "account") {
		return
	}

	total := services.CalculateTotal(req.Items)
	order, err := h.orderSvc.CreateOrder(c.Request.Context(), req.AccountID, req.Items, total)
	if err != nil {
		if errors.Is(err, services.ErrAccountNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "account not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusCreated, viewOrder(order, h.taxRate))
}

// GetOrder godoc
// @ID          getOrder
// @Summary     Fetch an order
// @Description Returns the order with subtotal and tax derived from the current total.
// @Tags        Orders
// @Produce     json
//
// @Param       id  path  string  true  "Order ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.OrderView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id} [get]
func (h *Handlers) GetOrder(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "order") {
		return
	}
	order, err := h.orderSvc.GetOrder(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrOrderNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	ok(c, http.StatusOK, viewOrder(order, h.taxRate))
}

// ListOrders godoc
// @ID          listOrders
// @Summary     List orders for an account (paginated)
// @Tags        Orders
// @Produce     json
//
// @Param       account_id  query  string  true   "Owning account (UUID)"  format(uuid)
// @Param       page        query  int     false  "Page number"            minimum(1) default(1)
// @Param       page_size   query  int     false  "Items per page"         minimum(1) maximum(100) default(20)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.ListOrdersResponse}
// @Failure     400  {object}  handlers.ErrorResponse  "Missing or malformed account_id"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders [get]
func (h *Handlers) ListOrders(c *gin.Context) {
	accountID := c.Query("account_id")
	if !requireUUID(c, accountID, "account") {
		return
	}
	page, pageSize := clampPagination(c)

	orders, err := h.orderSvc.ListOrders(c.Request.Context(), accountID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		return
	}
	views := make([]OrderView, 0, len(orders))
	for i := range orders {
		views = append(views, viewOrder(&orders[i], h.taxRate))
	}
	pageItems, meta := paginate(views, page, pageSize)
	ok(c, http.StatusOK, ListOrdersResponse{Orders: pageItems, Pagination: meta})
}

// ApplyDiscount godoc
// @ID          applyDiscount
// @Summary     Apply a percentage discount
// @Description Reduces the order total by percent of its current total; repeated discounts compound.
// @Tags        Orders
// @Accept      json
// @Produce     json
//
// @Param       id    path  string                         true  "Order ID (UUID)"  format(uuid)
// @Param       body  body  handlers.ApplyDiscountRequest  true  "Discount payload"
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.OrderView}
// @Failure     400  {object}  handlers.ErrorResponse  "Percent outside 0-100"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id}/discount [post]
func (h *Handlers) ApplyDiscount(c *gin.Context) {
	id := c.Param("id")
	if !requireUUID(c, id, "order") {
		return
	}
	var req ApplyDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Percent == nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "percent required")
		return
	}

	order, err := h.orderSvc.ApplyDiscount(c.Request.Context(), id, *req.Percent)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
		case errors.Is(err, services.ErrInvalidDiscount):
			fail(c, http.StatusBadRequest, ErrCodeInvalidDiscount, "discount percent must be between 0 and 100")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, viewOrder(order, h.taxRate))
}

// transitionOrder shares the response mapping for the ship/deliver/cancel
// endpoints.
func (h *Handlers) transitionOrder(c *gin.Context, do func(ctx context.Context, id string) (*domain.Order, error)) {
	id := c.Param("id")
	if !requireUUID(c, id, "order") {
		return
	}
	order, err := do(c.Request.Context(), id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			fail(c, http.StatusNotFound, ErrCodeNotFound, "order not found")
		case errors.Is(err, services.ErrInvalidTransition):
			fail(c, http.StatusConflict, ErrCodeInvalidTransition, "order status transition not allowed")
		default:
			fail(c, http.StatusInternalServerError, ErrCodeInternal, err.Error())
		}
		return
	}
	ok(c, http.StatusOK, viewOrder(order, h.taxRate))
}

// ShipOrder godoc
// @ID          shipOrder
// @Summary     Mark an order shipped
// @Description Only paid orders can ship; the shipping timestamp is recorded.
// @Tags        Orders
// @Produce     json
//
// @Param       id  path  string  true  "Order ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.OrderView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id}/ship [post]
func (h *Handlers) ShipOrder(c *gin.Context) {
	h.transitionOrder(c, h.orderSvc.ShipOrder)
}

// DeliverOrder godoc
// @ID          deliverOrder
// @Summary     Mark an order delivered
// @Description Only shipped orders can be delivered; the delivery timestamp is recorded.
// @Tags        Orders
// @Produce     json
//
// @Param       id  path  string  true  "Order ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.OrderView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id}/deliver [post]
func (h *Handlers) DeliverOrder(c *gin.Context) {
	h.transitionOrder(c, h.orderSvc.DeliverOrder)
}

// CancelOrder godoc
// @ID          cancelOrder
// @Summary     Cancel an order
// @Description Pending and paid orders can be cancelled; shipped and delivered ones cannot.
// @Tags        Orders
// @Produce     json
//
// @Param       id  path  string  true  "Order ID (UUID)"  format(uuid)
//
// @Success     200  {object}  handlers.SuccessResponse{data=handlers.OrderView}
// @Failure     400  {object}  handlers.ErrorResponse  "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse  "Order not found"
// @Failure     409  {object}  handlers.ErrorResponse  "Transition not allowed"
// @Failure     500  {object}  handlers.ErrorResponse  "Internal error"
// @Router      /orders/{id}/cancel [post]
func (h *Handlers) CancelOrder(c *gin.Context) {
	h.transitionOrder(c, h.orderSvc.CancelOrder)
}

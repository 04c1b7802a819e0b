package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/http/middleware"
)

//
// Service fakes. Each fake returns its preset fields and records the
// arguments it was called with, so tests assert both the wire mapping and
// the pass-through.
//

type fakeAccountSvc struct {
	account *domain.Account
	token   string
	list    []domain.Account
	err     error

	gotID     string
	gotEmail  string
	gotName   string
	gotSecret string
}

func (f *fakeAccountSvc) Register(_ context.Context, email, name, secret string) (*domain.Account, string, error) {
	f.gotEmail, f.gotName, f.gotSecret = email, name, secret
	if f.err != nil {
		return nil, "", f.err
	}
	return f.account, f.token, nil
}

func (f *fakeAccountSvc) Authenticate(_ context.Context, email, secret string) (*domain.Account, string, error) {
	f.gotEmail, f.gotSecret = email, secret
	if f.err != nil {
		return nil, "", f.err
	}
	return f.account, f.token, nil
}

func (f *fakeAccountSvc) GetAccount(_ context.Context, id string) (*domain.Account, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func (f *fakeAccountSvc) ListAccounts(context.Context) ([]domain.Account, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeAccountSvc) UpdateProfile(_ context.Context, id, name, email string) (*domain.Account, error) {
	f.gotID, f.gotName, f.gotEmail = id, name, email
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func (f *fakeAccountSvc) SetActive(_ context.Context, id string, active bool) (*domain.Account, error) {
	f.gotID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func (f *fakeAccountSvc) ChangePassword(_ context.Context, id, oldSecret, newSecret string) error {
	f.gotID, f.gotSecret = id, newSecret
	return f.err
}

func (f *fakeAccountSvc) DeleteAccount(_ context.Context, id string) error {
	f.gotID = id
	return f.err
}

type fakeOrderSvc struct {
	order *domain.Order
	list  []domain.Order
	err   error

	gotAccountID string
	gotOrderID   string
	gotTotal     float64
	gotPercent   float64
	transitions  []string
}

func (f *fakeOrderSvc) CreateOrder(_ context.Context, accountID string, items []domain.LineItem, total float64) (*domain.Order, error) {
	f.gotAccountID, f.gotTotal = accountID, total
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeOrderSvc) GetOrder(_ context.Context, id string) (*domain.Order, error) {
	f.gotOrderID = id
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeOrderSvc) ListOrders(_ context.Context, accountID string) ([]domain.Order, error) {
	f.gotAccountID = accountID
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

func (f *fakeOrderSvc) ApplyDiscount(_ context.Context, orderID string, percent float64) (*domain.Order, error) {
	f.gotOrderID, f.gotPercent = orderID, percent
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

func (f *fakeOrderSvc) ShipOrder(_ context.Context, orderID string) (*domain.Order, error) {
	return f.transition("ship", orderID)
}

func (f *fakeOrderSvc) DeliverOrder(_ context.Context, orderID string) (*domain.Order, error) {
	return f.transition("deliver", orderID)
}

func (f *fakeOrderSvc) CancelOrder(_ context.Context, orderID string) (*domain.Order, error) {
	return f.transition("cancel", orderID)
}

func (f *fakeOrderSvc) transition(name, orderID string) (*domain.Order, error) {
	f.gotOrderID = orderID
	f.transitions = append(f.transitions, name)
	if f.err != nil {
		return nil, f.err
	}
	return f.order, nil
}

type fakePaymentSvc struct {
	payment *domain.Payment
	list    []domain.Payment
	err     error

	processed  int
	gotOrderID string
	gotTxnID   string
	gotAmount  float64
	gotMethod  domain.PaymentMethod
}

func (f *fakePaymentSvc) ProcessPayment(_ context.Context, orderID string, amount float64, method domain.PaymentMethod) (*domain.Payment, error) {
	f.processed++
	f.gotOrderID, f.gotAmount, f.gotMethod = orderID, amount, method
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

func (f *fakePaymentSvc) RefundPayment(_ context.Context, transactionID string) (*domain.Payment, error) {
	f.gotTxnID = transactionID
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

func (f *fakePaymentSvc) PaymentStatus(_ context.Context, transactionID string) (*domain.Payment, error) {
	f.gotTxnID = transactionID
	if f.err != nil {
		return nil, f.err
	}
	return f.payment, nil
}

func (f *fakePaymentSvc) ListPayments(_ context.Context, orderID string) ([]domain.Payment, error) {
	f.gotOrderID = orderID
	if f.err != nil {
		return nil, f.err
	}
	return f.list, nil
}

type createdIdem struct {
	accountID, orderID, key, transactionID string
	status                                 int
	ttl                                    time.Duration
}

type fakeIdemStore struct {
	rec       *domain.Idempotency
	getErr    error
	createErr error
	created   []createdIdem
}

func (f *fakeIdemStore) Get(_ context.Context, accountID, orderID, key string, now time.Time) (*domain.Idempotency, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.rec, nil
}

func (f *fakeIdemStore) Create(_ context.Context, accountID, orderID, key, transactionID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, createdIdem{accountID, orderID, key, transactionID, status, ttl})
	return &domain.Idempotency{TransactionID: transactionID, Status: status}, nil
}

//
// HTTP plumbing helpers.
//

// envelope mirrors the response shape with the data left raw so each test
// can decode it into the view it expects.
type envelope struct {
	Success   bool            `json:"success"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Error     ErrorBody       `json:"error"`
}

// newTestRouter mounts every handler route the way the real router does.
// When accountID is non-empty a stub auth middleware stashes it, mirroring
// TokenAuth.
func newTestRouter(h *Handlers, accountID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.IdempotencyValidator(middleware.IdempotencyOptions{}, nil))
	if accountID != "" {
		r.Use(func(c *gin.Context) {
			c.Set("accountID", accountID)
			c.Next()
		})
	}

	r.POST("/accounts", h.RegisterAccount)
	r.POST("/accounts/login", h.Login)
	r.GET("/accounts", h.ListAccounts)
	r.GET("/accounts/:id", h.GetAccount)
	r.PUT("/accounts/:id", h.UpdateAccount)
	r.PUT("/accounts/:id/active", h.SetAccountActive)
	r.PUT("/accounts/:id/password", h.ChangePassword)
	r.DELETE("/accounts/:id", h.DeleteAccount)

	r.POST("/orders", h.CreateOrder)
	r.GET("/orders", h.ListOrders)
	r.GET("/orders/:id", h.GetOrder)
	r.POST("/orders/:id/discount", h.ApplyDiscount)
	r.POST("/orders/:id/ship", h.ShipOrder)
	r.POST("/orders/:id/deliver", h.DeliverOrder)
	r.POST("/orders/:id/cancel", h.CancelOrder)

	r.POST("/orders/:id/payments", h.ProcessPayment)
	r.GET("/orders/:id/payments", h.ListPayments)
	r.GET("/payments/:id", h.PaymentStatus)
	r.POST("/payments/:id/refund", h.RefundPayment)
	return r
}

// doJSON performs a request with an optional JSON body and optional extra
// headers given as alternating key/value pairs.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope and, when out is non-nil, the data payload.
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal envelope: %v (body=%s)", err, w.Body.String())
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("unmarshal data: %v (body=%s)", err, w.Body.String())
		}
	}
	return env
}

func wantError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	if w.Code != status {
		t.Fatalf("status=%d want %d (body=%s)", w.Code, status, w.Body.String())
	}
	env := decode(t, w, nil)
	if env.Success {
		t.Fatalf("success must be false on errors")
	}
	if env.Error.Code != code {
		t.Fatalf("error code=%q want %q", env.Error.Code, code)
	}
}

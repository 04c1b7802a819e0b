package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tbourn/go-commerce-backend/internal/domain"
)

// payableOrder creates an account and a pending order with the given total.
func payableOrder(t *testing.T, env *testEnv, total float64) *domain.Order {
	t.Helper()
	accountID := env.register(t, "buyer@example.com", "Buyer", "pw")
	order, err := env.orders.CreateOrder(context.Background(), accountID, nil, total)
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	return order
}

func TestProcessPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := payableOrder(t, env, 250)
	env.notifier.sent = nil

	payment, err := env.payments.ProcessPayment(ctx, order.ID, 250, domain.MethodCreditCard)
	if err != nil {
		t.Fatalf("ProcessPayment: %v", err)
	}
	if payment.ID == "" || payment.Status != domain.PaymentCompleted {
		t.Fatalf("payment = %+v", payment)
	}
	if !strings.HasPrefix(payment.Reference, "TXN_") || len(payment.Reference) != 11 {
		t.Fatalf("Reference = %q; want TXN_ prefix with 7-char suffix", payment.Reference)
	}
	if payment.ProcessedAt.IsZero() {
		t.Fatal("ProcessedAt not stamped")
	}

	paid, err := env.orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if paid.Status != domain.StatusPaid {
		t.Fatalf("order status = %q; want paid", paid.Status)
	}

	if len(env.notifier.sent) != 1 {
		t.Fatalf("sent %d notifications; want 1 receipt", len(env.notifier.sent))
	}
	receipt := env.notifier.sent[0]
	if receipt.Recipient != "buyer@example.com" || receipt.Subject != "Payment Received" {
		t.Fatalf("receipt = %+v", receipt)
	}
	if !strings.Contains(receipt.Body, payment.Reference) {
		t.Fatalf("receipt body %q missing reference %q", receipt.Body, payment.Reference)
	}
}

func TestProcessPaymentOverpaymentRecordedAsIs(t *testing.T) {
	env := newTestEnv(t)
	order := payableOrder(t, env, 100)

	payment, err := env.payments.ProcessPayment(context.Background(), order.ID, 150, domain.MethodPayPal)
	if err != nil {
		t.Fatalf("overpayment should succeed: %v", err)
	}
	if payment.Amount != 150 {
		t.Fatalf("Amount = %v; want the tendered 150", payment.Amount)
	}
}

func TestProcessPaymentInsufficientAmount(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := payableOrder(t, env, 100)

	// One cent short is still short.
	if _, err := env.payments.ProcessPayment(ctx, order.ID, 99.99, domain.MethodCreditCard); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("err = %v; want ErrInsufficientPayment", err)
	}

	// The rejected attempt must not move the order.
	got, err := env.orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusPending {
		t.Fatalf("order status = %q; want pending", got.Status)
	}
	if payments, _ := env.payments.ListPayments(ctx, order.ID); len(payments) != 0 {
		t.Fatalf("recorded %d payments for a rejected attempt", len(payments))
	}
}

func TestProcessPaymentInvalidMethod(t *testing.T) {
	env := newTestEnv(t)
	order := payableOrder(t, env, 100)

	if _, err := env.payments.ProcessPayment(context.Background(), order.ID, 100, "crypto"); !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("err = %v; want ErrInvalidPaymentMethod", err)
	}
}

func TestProcessPaymentErrorPrecedence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Unknown order wins over everything else.
	if _, err := env.payments.ProcessPayment(ctx, "nope", 1, "crypto"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("err = %v; want ErrOrderNotFound", err)
	}

	// Amount check comes before the method check.
	order := payableOrder(t, env, 100)
	if _, err := env.payments.ProcessPayment(ctx, order.ID, 1, "crypto"); !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("err = %v; want ErrInsufficientPayment", err)
	}
}

func TestProcessPaymentOnNonPendingOrder(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := payableOrder(t, env, 100)

	if _, err := env.payments.ProcessPayment(ctx, order.ID, 100, domain.MethodDebitCard); err != nil {
		t.Fatal(err)
	}

	// A second payment hits the paid→paid transition and fails.
	if _, err := env.payments.ProcessPayment(ctx, order.ID, 100, domain.MethodDebitCard); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("double pay err = %v; want ErrInvalidTransition", err)
	}
	// The rejected attempt must not leave a second payment record behind.
	if got, _ := env.payments.ListPayments(ctx, order.ID); len(got) != 1 {
		t.Fatalf("payments after rejected double pay = %d; want 1", len(got))
	}

	cancelled, _ := env.orders.CreateOrder(ctx, order.AccountID, nil, 50)
	if _, err := env.orders.CancelOrder(ctx, cancelled.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := env.payments.ProcessPayment(ctx, cancelled.ID, 50, domain.MethodDebitCard); !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("pay cancelled err = %v; want ErrInvalidTransition", err)
	}
	if got, _ := env.payments.ListPayments(ctx, cancelled.ID); len(got) != 0 {
		t.Fatalf("payments against cancelled order = %d; want 0", len(got))
	}
}

func TestRefundPayment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := payableOrder(t, env, 100)
	payment, err := env.payments.ProcessPayment(ctx, order.ID, 100, domain.MethodBankTransfer)
	if err != nil {
		t.Fatal(err)
	}

	refunded, err := env.payments.RefundPayment(ctx, payment.ID)
	if err != nil {
		t.Fatalf("RefundPayment: %v", err)
	}
	if refunded.Status != domain.PaymentRefunded || refunded.RefundedAt == nil {
		t.Fatalf("refunded = %+v", refunded)
	}

	// Refunds never revert the order.
	got, err := env.orders.GetOrder(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusPaid {
		t.Fatalf("order status after refund = %q; want paid", got.Status)
	}

	if _, err := env.payments.RefundPayment(ctx, "nope"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("unknown transaction err = %v; want ErrPaymentNotFound", err)
	}
}

func TestPaymentStatusAndList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	order := payableOrder(t, env, 100)

	if _, err := env.payments.PaymentStatus(ctx, "nope"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("err = %v; want ErrPaymentNotFound", err)
	}

	payment, err := env.payments.ProcessPayment(ctx, order.ID, 100, domain.MethodCreditCard)
	if err != nil {
		t.Fatal(err)
	}
	got, err := env.payments.PaymentStatus(ctx, payment.ID)
	if err != nil || got.Reference != payment.Reference {
		t.Fatalf("PaymentStatus = %v, %v", got, err)
	}

	if _, err := env.payments.RefundPayment(ctx, payment.ID); err != nil {
		t.Fatal(err)
	}

	// Refunded payments stay in the order's history.
	list, err := env.payments.ListPayments(ctx, order.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Status != domain.PaymentRefunded {
		t.Fatalf("list = %+v", list)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/tbourn/go-commerce-backend/internal/repo"
	"github.com/tbourn/go-commerce-backend/internal/store"
)

// fakeTokens is an in-memory CredentialIssuer recording issued tokens and
// revocations per account.
type fakeTokens struct {
	issued  []string
	revoked map[string]int
	failed  bool
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{revoked: map[string]int{}}
}

func (f *fakeTokens) Issue(accountID string) (string, error) {
	if f.failed {
		return "", errors.New("token backend down")
	}
	tok := fmt.Sprintf("tok-%s-%d", accountID, len(f.issued))
	f.issued = append(f.issued, tok)
	return tok, nil
}

func (f *fakeTokens) RevokeAll(accountID string) int {
	f.revoked[accountID]++
	return 3
}

// sentEmail captures one notification handed to the fake notifier.
type sentEmail struct {
	Recipient string
	Subject   string
	Body      string
}

// fakeNotifier records every send and can be told to fail, which services
// must swallow.
type fakeNotifier struct {
	sent []sentEmail
	err  error
}

func (f *fakeNotifier) Send(ctx context.Context, recipient, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentEmail{recipient, subject, body})
	return nil
}

// testEnv wires the full service stack onto a connected in-memory store.
type testEnv struct {
	store    *store.MemStore
	tokens   *fakeTokens
	notifier *fakeNotifier
	accounts *AccountService
	orders   *OrderService
	payments *PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ms := store.NewMemStore()
	if err := ms.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	accountRepo := repo.NewAccountRepo(ms)
	orderRepo := repo.NewOrderRepo(ms)
	paymentRepo := repo.NewPaymentRepo(ms)

	tokens := newFakeTokens()
	notifier := &fakeNotifier{}

	accounts := NewAccountService(accountRepo, tokens, notifier)
	orders := NewOrderService(orderRepo, accountRepo)
	payments := NewPaymentService(paymentRepo, orders, accountRepo, notifier)

	return &testEnv{
		store:    ms,
		tokens:   tokens,
		notifier: notifier,
		accounts: accounts,
		orders:   orders,
		payments: payments,
	}
}

// register is a shortcut for tests needing a pre-existing account.
func (e *testEnv) register(t *testing.T, email, name, secret string) string {
	t.Helper()
	a, _, err := e.accounts.Register(context.Background(), email, name, secret)
	if err != nil {
		t.Fatalf("Register(%q): %v", email, err)
	}
	return a.ID
}

package services

import (
	"context"
	"errors"
	"testing"

	"github.com/tbourn/go-commerce-backend/internal/domain"
)

func TestRegisterIssuesTokenAndWelcome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	account, token, err := env.accounts.Register(ctx, "alice@example.com", "Alice", "s3cret")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if account.ID == "" {
		t.Fatal("expected store-assigned id")
	}
	if account.Role != domain.RoleUser || !account.Active {
		t.Fatalf("defaults wrong: role=%q active=%v", account.Role, account.Active)
	}
	if token == "" {
		t.Fatal("expected a session token")
	}
	if len(env.notifier.sent) != 1 {
		t.Fatalf("sent %d notifications; want 1", len(env.notifier.sent))
	}
	if got := env.notifier.sent[0]; got.Recipient != "alice@example.com" || got.Subject != "Welcome!" {
		t.Fatalf("welcome notification = %+v", got)
	}
}

func TestRegisterRejectsMalformedInput(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := []struct {
		name  string
		email string
		disp  string
	}{
		{"bad email", "not-an-email", "Alice"},
		{"double at", "a@@b.com", "Alice"},
		{"short name", "alice@example.com", "Al"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := env.accounts.Register(ctx, tc.email, tc.disp, "s3cret"); !errors.Is(err, ErrInvalidAccount) {
				t.Fatalf("err = %v; want ErrInvalidAccount", err)
			}
		})
	}

	// Nothing may be persisted on validation failure.
	all, err := env.accounts.ListAccounts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("persisted %d accounts after rejected registrations", len(all))
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.register(t, "alice@example.com", "Alice", "s3cret")

	if _, _, err := env.accounts.Register(ctx, "alice@example.com", "Other", "pw"); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v; want ErrAccountExists", err)
	}
}

func TestAuthenticate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice@example.com", "Alice", "s3cret")

	account, token, err := env.accounts.Authenticate(ctx, "alice@example.com", "s3cret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if account.ID != id || token == "" {
		t.Fatalf("account=%q token=%q", account.ID, token)
	}

	if _, _, err := env.accounts.Authenticate(ctx, "alice@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong secret err = %v; want ErrInvalidCredentials", err)
	}
	if _, _, err := env.accounts.Authenticate(ctx, "ghost@example.com", "s3cret"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown email err = %v; want ErrAccountNotFound", err)
	}
}

func TestGetAccountUnknown(t *testing.T) {
	env := newTestEnv(t)
	if _, err := env.accounts.GetAccount(context.Background(), "nope"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("err = %v; want ErrAccountNotFound", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice@example.com", "Alice", "s3cret")
	env.notifier.sent = nil

	updated, err := env.accounts.UpdateProfile(ctx, id, "Alicia", "")
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if updated.Name != "Alicia" || updated.Email != "alice@example.com" {
		t.Fatalf("partial update wrong: %+v", updated)
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].Subject != "Profile Updated" {
		t.Fatalf("notifications = %+v", env.notifier.sent)
	}

	// An update may never produce a state registration would reject.
	if _, err := env.accounts.UpdateProfile(ctx, id, "Al", ""); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("short name err = %v; want ErrInvalidAccount", err)
	}
	if _, err := env.accounts.UpdateProfile(ctx, id, "", "broken@"); !errors.Is(err, ErrInvalidAccount) {
		t.Fatalf("bad email err = %v; want ErrInvalidAccount", err)
	}

	if _, err := env.accounts.UpdateProfile(ctx, "nope", "Somebody", ""); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("unknown id err = %v; want ErrAccountNotFound", err)
	}
}

func TestSetActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice@example.com", "Alice", "s3cret")

	account, err := env.accounts.SetActive(ctx, id, false)
	if err != nil {
		t.Fatalf("SetActive(false): %v", err)
	}
	if account.Active {
		t.Fatal("account should be inactive")
	}

	// Deactivation keeps the record reachable.
	if _, err := env.accounts.GetAccount(ctx, id); err != nil {
		t.Fatalf("deactivated account should still resolve: %v", err)
	}

	if account, err = env.accounts.SetActive(ctx, id, true); err != nil || !account.Active {
		t.Fatalf("SetActive(true) = %v, active=%v", err, account.Active)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice@example.com", "Alice", "old-pw")

	if err := env.accounts.ChangePassword(ctx, id, "wrong", "new-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong old secret err = %v; want ErrInvalidCredentials", err)
	}
	if err := env.accounts.ChangePassword(ctx, id, "old-pw", "old-pw"); !errors.Is(err, ErrSamePassword) {
		t.Fatalf("same secret err = %v; want ErrSamePassword", err)
	}
	if err := env.accounts.ChangePassword(ctx, id, "old-pw", "new-pw"); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}

	if _, _, err := env.accounts.Authenticate(ctx, "alice@example.com", "old-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("old secret should no longer authenticate: %v", err)
	}
	if _, _, err := env.accounts.Authenticate(ctx, "alice@example.com", "new-pw"); err != nil {
		t.Fatalf("new secret should authenticate: %v", err)
	}
}

func TestDeleteAccountRevokesTokensAndNotifies(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	id := env.register(t, "alice@example.com", "Alice", "s3cret")
	env.notifier.sent = nil

	if err := env.accounts.DeleteAccount(ctx, id); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := env.accounts.GetAccount(ctx, id); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("deleted account still resolves: %v", err)
	}
	if env.tokens.revoked[id] != 1 {
		t.Fatalf("RevokeAll calls for %s = %d; want 1", id, env.tokens.revoked[id])
	}
	if len(env.notifier.sent) != 1 || env.notifier.sent[0].Subject != "Account Deleted" {
		t.Fatalf("notifications = %+v", env.notifier.sent)
	}

	if err := env.accounts.DeleteAccount(ctx, id); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("second delete err = %v; want ErrAccountNotFound", err)
	}
}

func TestNotifierFailureDoesNotFailMutation(t *testing.T) {
	env := newTestEnv(t)
	env.notifier.err = errors.New("smtp down")

	account, _, err := env.accounts.Register(context.Background(), "alice@example.com", "Alice", "s3cret")
	if err != nil {
		t.Fatalf("Register should survive notifier failure: %v", err)
	}
	if _, err := env.accounts.GetAccount(context.Background(), account.ID); err != nil {
		t.Fatalf("account should be persisted: %v", err)
	}
}

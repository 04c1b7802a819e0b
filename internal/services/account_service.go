// Package services – AccountService
//
// This file implements the AccountService, which orchestrates account
// registration, authentication, profile maintenance, and deletion. It
// combines the account repository, the credential manager, and the
// notification collaborator. Notifications are fire-and-forget: a dispatch
// failure is logged and never rolls back the account mutation that
// triggered it.
//
// Service-level errors (e.g. ErrAccountExists, ErrInvalidCredentials) are
// returned for predictable cases so handlers can map them to HTTP results
// consistently.
package services

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/notify"
	"github.com/tbourn/go-commerce-backend/internal/repo"
)

// AccountRepo defines the repository contract required by AccountService.
type AccountRepo interface {
	// Create validates required fields, hashes the secret, and inserts
	// the account.
	Create(ctx context.Context, email, name, secret string) (*domain.Account, error)

	// FindByID returns the account or repo.ErrNotFound.
	FindByID(ctx context.Context, id string) (*domain.Account, error)

	// FindByEmail returns the first account with the email or repo.ErrNotFound.
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)

	// List returns every account, oldest first.
	List(ctx context.Context) ([]domain.Account, error)

	// Update persists an existing account.
	Update(ctx context.Context, a *domain.Account) (*domain.Account, error)

	// Delete removes an existing account.
	Delete(ctx context.Context, id string) error
}

// CredentialIssuer is the slice of the credential manager the account
// service needs: issuing tokens on successful authentication and bulk
// revocation on deletion.
type CredentialIssuer interface {
	Issue(accountID string) (string, error)
	RevokeAll(accountID string) int
}

// AccountService provides the account lifecycle use-cases.
type AccountService struct {
	// Repo is the account repository.
	Repo AccountRepo
	// Tokens is the credential manager.
	Tokens CredentialIssuer
	// Notifier dispatches lifecycle notifications; may not be nil.
	Notifier notify.Notifier
}

// NewAccountService constructs an AccountService.
func NewAccountService(r AccountRepo, tokens CredentialIssuer, n notify.Notifier) *AccountService {
	return &AccountService{Repo: r, Tokens: tokens, Notifier: n}
}

// Register creates a new account and issues an initial session token.
//
// Semantics and validation:
//   - The account is validated in-process (email shape, name length);
//     malformed input yields ErrInvalidAccount and nothing is persisted.
//   - An existence pre-check by email yields ErrAccountExists for
//     duplicates. The check and the insert are two separate store
//     operations: a concurrent registration in the gap can slip through.
//     The repository enforces no uniqueness, so this pre-check is the only
//     guard (documented race, accepted).
//   - A welcome notification is dispatched fire-and-forget.
func (s *AccountService) Register(ctx context.Context, email, name, secret string) (*domain.Account, string, error) {
	candidate := domain.Account{Name: name, Email: email, Role: domain.RoleUser, Active: true}
	if err := candidate.Validate(); err != nil {
		return nil, "", errors.Join(ErrInvalidAccount, err)
	}

	if _, err := s.Repo.FindByEmail(ctx, email); err == nil {
		return nil, "", ErrAccountExists
	} else if !errors.Is(err, repo.ErrNotFound) {
		return nil, "", err
	}

	account, err := s.Repo.Create(ctx, email, name, secret)
	if err != nil {
		if errors.Is(err, repo.ErrInvalidAccountData) {
			return nil, "", errors.Join(ErrInvalidAccount, err)
		}
		return nil, "", err
	}
	log.Info().Str("account_id", account.ID).Msg("account registered")

	subject, body := notify.Welcome(account.Name)
	s.dispatch(ctx, account.Email, subject, body)

	token, err := s.Tokens.Issue(account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// Authenticate verifies an email/secret pair and issues a session token.
// It returns ErrAccountNotFound when the email is unknown and
// ErrInvalidCredentials when the secret does not match.
func (s *AccountService) Authenticate(ctx context.Context, email, secret string) (*domain.Account, string, error) {
	account, err := s.Repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, "", ErrAccountNotFound
		}
		return nil, "", err
	}
	if account.SecretHash != repo.HashSecret(secret) {
		log.Warn().Str("account_id", account.ID).Msg("failed login attempt")
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.Tokens.Issue(account.ID)
	if err != nil {
		return nil, "", err
	}
	return account, token, nil
}

// GetAccount returns the account with the given id, or ErrAccountNotFound.
func (s *AccountService) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	account, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return account, nil
}

// ListAccounts returns every account, oldest first.
func (s *AccountService) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	return s.Repo.List(ctx)
}

// UpdateProfile applies non-empty name/email changes to an existing
// account. The result is re-validated before persisting; a profile update
// can never leave an account in a state registration would have rejected.
func (s *AccountService) UpdateProfile(ctx context.Context, id, name, email string) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		account.Name = name
	}
	if email != "" {
		account.Email = email
	}
	if err := account.Validate(); err != nil {
		return nil, errors.Join(ErrInvalidAccount, err)
	}

	updated, err := s.Repo.Update(ctx, account)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	log.Info().Str("account_id", id).Msg("profile updated")

	subject, body := notify.ProfileUpdated()
	s.dispatch(ctx, updated.Email, subject, body)
	return updated, nil
}

// SetActive flips the account's active flag.
func (s *AccountService) SetActive(ctx context.Context, id string, active bool) (*domain.Account, error) {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if active {
		account.Activate()
	} else {
		account.Deactivate()
	}
	updated, err := s.Repo.Update(ctx, account)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return updated, nil
}

// ChangePassword verifies the old secret and stores the hash of the new
// one. The new secret must differ from the old.
func (s *AccountService) ChangePassword(ctx context.Context, id, oldSecret, newSecret string) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if account.SecretHash != repo.HashSecret(oldSecret) {
		return ErrInvalidCredentials
	}
	if oldSecret == newSecret {
		return ErrSamePassword
	}
	account.SecretHash = repo.HashSecret(newSecret)
	if _, err := s.Repo.Update(ctx, account); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}
	log.Info().Str("account_id", id).Msg("password changed")
	return nil
}

// DeleteAccount removes the account, dispatches a farewell notification,
// and revokes every credential issued to it so no session continues to
// authenticate a deleted account.
func (s *AccountService) DeleteAccount(ctx context.Context, id string) error {
	account, err := s.GetAccount(ctx, id)
	if err != nil {
		return err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAccountNotFound
		}
		return err
	}

	subject, body := notify.Farewell(account.Name)
	s.dispatch(ctx, account.Email, subject, body)

	revoked := s.Tokens.RevokeAll(id)
	log.Info().Str("account_id", id).Int("tokens_revoked", revoked).Msg("account deleted")
	return nil
}

// dispatch sends a notification and logs a failure without escalating it;
// the triggering mutation has already committed.
func (s *AccountService) dispatch(ctx context.Context, recipient, subject, body string) {
	if s.Notifier == nil {
		return
	}
	if err := s.Notifier.Send(ctx, recipient, subject, body); err != nil {
		log.Error().Err(err).Str("subject", subject).Msg("notification dispatch failed")
	}
}

// Package repo implements the typed data access layer over the record
// store. This file provides the account repository.
//
// All functions are context-aware and follow the "thin repository"
// approach: field-presence validation, JSON encoding, and id bookkeeping —
// no business logic.
//
// Error semantics:
//   - When an account is not found, functions return ErrNotFound (an alias
//     of store.ErrNotFound).
//   - Missing required fields at creation return ErrInvalidAccountData.
//   - Store failures (including store.ErrNotConnected) propagate unwrapped.
//
// The repository performs no uniqueness enforcement on emails; the service
// layer's existence pre-check is the only duplicate guard (a documented
// check-then-act race).
package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"

	"github.com/tbourn/go-commerce-backend/internal/domain"
	"github.com/tbourn/go-commerce-backend/internal/store"
)

// ErrNotFound is returned when a requested record does not exist. It
// aliases store.ErrNotFound for convenience and consistency across the
// service layer and handlers.
var ErrNotFound = store.ErrNotFound

// ErrInvalidAccountData is returned by Create when a required field
// (email, name, or secret) is missing.
var ErrInvalidAccountData = errors.New("invalid account data")

// HashSecret applies the deterministic secret transform used for stored
// credentials. It is intentionally a plain SHA-256 hex digest: the contract
// only requires a stable comparable transform, and strengthening it is out
// of scope for this layer.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// AccountRepo persists domain.Account rows in the accounts table.
type AccountRepo struct {
	// Store is the record store handle shared by all repositories.
	Store store.Store
}

// NewAccountRepo constructs an AccountRepo bound to the given store.
func NewAccountRepo(s store.Store) *AccountRepo {
	return &AccountRepo{Store: s}
}

// Create validates that email, name and secret are present, hashes the
// secret, and inserts the account with default role "user" and the active
// flag set. It returns the stored account with its assigned id.
func (r *AccountRepo) Create(ctx context.Context, email, name, secret string) (*domain.Account, error) {
	if email == "" || name == "" || secret == "" {
		return nil, ErrInvalidAccountData
	}
	a := domain.Account{
		Name:       name,
		Email:      email,
		Role:       domain.RoleUser,
		Active:     true,
		SecretHash: HashSecret(secret),
	}
	data, err := json.Marshal(&a)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Insert(ctx, store.TableAccounts, data)
	if err != nil {
		return nil, err
	}
	a.ID = rec.ID
	a.CreatedAt = rec.CreatedAt
	a.UpdatedAt = rec.UpdatedAt
	return &a, nil
}

// FindByID returns the account with the given id, or ErrNotFound.
func (r *AccountRepo) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	rec, err := r.Store.Get(ctx, store.TableAccounts, id)
	if err != nil {
		return nil, err
	}
	return decodeAccount(rec)
}

// FindByEmail returns the first account with the given email, or
// ErrNotFound. Email is a secondary lookup key with no uniqueness
// guarantee; when duplicates exist the oldest record wins.
func (r *AccountRepo) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	recs, err := r.Store.Query(ctx, store.TableAccounts)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		a, err := decodeAccount(rec)
		if err != nil {
			return nil, err
		}
		if a.Email == email {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

// List returns every account, oldest first.
func (r *AccountRepo) List(ctx context.Context) ([]domain.Account, error) {
	recs, err := r.Store.Query(ctx, store.TableAccounts)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Account, 0, len(recs))
	for _, rec := range recs {
		a, err := decodeAccount(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, nil
}

// Update persists the given account under its id. The target must already
// exist; ErrNotFound is returned otherwise.
func (r *AccountRepo) Update(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	data, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	rec, err := r.Store.Update(ctx, store.TableAccounts, a.ID, data)
	if err != nil {
		return nil, err
	}
	a.UpdatedAt = rec.UpdatedAt
	return a, nil
}

// Delete removes the account with the given id. The target must already
// exist; ErrNotFound is returned otherwise.
func (r *AccountRepo) Delete(ctx context.Context, id string) error {
	removed, err := r.Store.Delete(ctx, store.TableAccounts, id)
	if err != nil {
		return err
	}
	if !removed {
		return ErrNotFound
	}
	return nil
}

// decodeAccount unmarshals a stored record into a domain.Account. The id
// and timestamps always come from the record, not the payload.
func decodeAccount(rec store.Record) (*domain.Account, error) {
	var a domain.Account
	if err := json.Unmarshal(rec.Data, &a); err != nil {
		return nil, err
	}
	a.ID = rec.ID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = rec.CreatedAt
	}
	a.UpdatedAt = rec.UpdatedAt
	return &a, nil
}

// Package auth implements the credential manager: issuance, validation,
// refresh, and revocation of opaque session tokens.
//
// Tokens are 32 random bytes rendered as hex and carry no embedded claims;
// the manager's in-memory registry is the single source of truth. Expiry is
// lazy: an expired entry is evicted the first time a validation touches it,
// never by a background sweep. The registry is owned state injected at
// construction — there is no package-level instance — so tests get isolated
// managers and callers control the clock.
package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrTokenNotFound is returned by Refresh when the presented token is not
// in the registry (never issued, already revoked, or evicted).
var ErrTokenNotFound = errors.New("token not found")

// DefaultTTL is the credential lifetime applied when a Manager is
// constructed with a non-positive TTL.
const DefaultTTL = 24 * time.Hour

// Credential is the registry entry behind an issued token.
type Credential struct {
	// AccountID is the owning account.
	AccountID string
	// IssuedAt is the issuance instant.
	IssuedAt time.Time
	// ExpiresAt is the absolute expiry (IssuedAt + TTL); no sliding window.
	ExpiresAt time.Time
}

// Manager issues and tracks opaque session tokens. It is safe for
// concurrent use: validation takes a read lock while issue, revoke, and
// refresh take the write lock, so a refresh's revoke-then-issue pair is
// observed atomically by concurrent validators.
type Manager struct {
	mu     sync.RWMutex
	tokens map[string]Credential

	ttl time.Duration
	// now is the clock used for expiry decisions; injectable for tests.
	now func() time.Time
}

// NewManager constructs a Manager with the given fixed TTL. A non-positive
// TTL falls back to DefaultTTL.
func NewManager(ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		tokens: make(map[string]Credential),
		ttl:    ttl,
		now:    time.Now,
	}
}

// WithClock replaces the manager's clock and returns the manager. Intended
// for tests that need deterministic time advancement.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
	return m
}

// Issue generates a fresh opaque token bound to accountID, registers it
// with expiry now+TTL, and returns it.
func (m *Manager) Issue(accountID string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.tokens[token] = Credential{
		AccountID: accountID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	log.Debug().Str("account_id", accountID).Msg("token issued")
	return token, nil
}

// Validate reports whether token is live. An expired entry is evicted on
// the spot, so a second validation of the same token fails via the
// absent-token path.
func (m *Manager) Validate(token string) bool {
	if token == "" {
		return false
	}

	m.mu.RLock()
	cred, ok := m.tokens[token]
	now := m.now()
	m.mu.RUnlock()
	if !ok {
		return false
	}

	if now.After(cred.ExpiresAt) {
		// Lazy eviction. Re-check under the write lock: a concurrent
		// refresh may have replaced the entry in the meantime.
		m.mu.Lock()
		if cur, ok := m.tokens[token]; ok && m.now().After(cur.ExpiresAt) {
			delete(m.tokens, token)
		}
		m.mu.Unlock()
		log.Debug().Msg("token expired, evicted")
		return false
	}
	return true
}

// Owner returns the account id behind a live token. The boolean result is
// false for absent or expired tokens (expired entries are evicted, as in
// Validate).
func (m *Manager) Owner(token string) (string, bool) {
	if !m.Validate(token) {
		return "", false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.tokens[token]
	if !ok {
		return "", false
	}
	return cred.AccountID, true
}

// Revoke removes a token unconditionally. Revoking an absent token is not
// an error.
func (m *Manager) Revoke(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.tokens, token)
}

// RevokeAll removes every token owned by accountID and returns the number
// removed.
func (m *Manager) RevokeAll(accountID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for token, cred := range m.tokens {
		if cred.AccountID == accountID {
			delete(m.tokens, token)
			count++
		}
	}
	log.Debug().Str("account_id", accountID).Int("count", count).Msg("tokens revoked")
	return count
}

// Refresh atomically revokes token and issues a replacement bound to the
// same owner with a fresh TTL window. The swap happens under one write
// lock: no concurrent validator can observe a state where both tokens are
// valid, or neither is. Returns ErrTokenNotFound when token is absent.
func (m *Manager) Refresh(token string) (string, error) {
	replacement, err := newToken()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cred, ok := m.tokens[token]
	if !ok {
		return "", ErrTokenNotFound
	}
	delete(m.tokens, token)
	now := m.now()
	m.tokens[replacement] = Credential{
		AccountID: cred.AccountID,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}
	return replacement, nil
}

// Len returns the number of live entries in the registry. Expired entries
// that were never touched still count; eviction is lazy.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tokens)
}

// newToken returns 32 cryptographically random bytes as a hex string.
func newToken() (string, error) {
	var b [32]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

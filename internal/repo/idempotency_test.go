package repo

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIdempotencyCreateAndGet(t *testing.T) {
	r := NewIdempotencyRepo(connectedStore(t))
	ctx := context.Background()
	now := time.Now().UTC()

	created, err := r.Create(ctx, "acct", "ord", "key-1", "txn-1", 200, time.Hour)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.ID == "" || created.TransactionID != "txn-1" {
		t.Fatalf("created = %+v", created)
	}

	got, err := r.Get(ctx, "acct", "ord", "key-1", now)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TransactionID != "txn-1" || got.Status != 200 {
		t.Fatalf("got = %+v", got)
	}

	// Any field of the tuple differing is a miss.
	if _, err := r.Get(ctx, "other", "ord", "key-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("account mismatch err = %v; want ErrNotFound", err)
	}
	if _, err := r.Get(ctx, "acct", "other", "key-1", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("order mismatch err = %v; want ErrNotFound", err)
	}
	if _, err := r.Get(ctx, "acct", "ord", "other", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("key mismatch err = %v; want ErrNotFound", err)
	}
}

func TestIdempotencyDuplicate(t *testing.T) {
	r := NewIdempotencyRepo(connectedStore(t))
	ctx := context.Background()

	if _, err := r.Create(ctx, "acct", "ord", "key-1", "txn-1", 200, time.Hour); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Create(ctx, "acct", "ord", "key-1", "txn-2", 200, time.Hour); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v; want ErrDuplicate", err)
	}

	// A different key on the same order is a fresh record.
	if _, err := r.Create(ctx, "acct", "ord", "key-2", "txn-2", 200, time.Hour); err != nil {
		t.Fatalf("distinct key should succeed: %v", err)
	}
}

func TestIdempotencyExpiryEviction(t *testing.T) {
	r := NewIdempotencyRepo(connectedStore(t))
	ctx := context.Background()

	if _, err := r.Create(ctx, "acct", "ord", "key-1", "txn-1", 200, time.Minute); err != nil {
		t.Fatal(err)
	}

	// Within the TTL the record resolves; past it the lookup misses and
	// evicts lazily.
	soon := time.Now().UTC().Add(30 * time.Second)
	if _, err := r.Get(ctx, "acct", "ord", "key-1", soon); err != nil {
		t.Fatalf("live record should resolve: %v", err)
	}

	later := time.Now().UTC().Add(2 * time.Minute)
	if _, err := r.Get(ctx, "acct", "ord", "key-1", later); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expired record err = %v; want ErrNotFound", err)
	}

	// After eviction the tuple can be recorded again.
	if _, err := r.Create(ctx, "acct", "ord", "key-1", "txn-2", 200, time.Hour); err != nil {
		t.Fatalf("recreate after expiry: %v", err)
	}
}

func TestIdempotencyBlankKeyNeverMatches(t *testing.T) {
	r := NewIdempotencyRepo(connectedStore(t))
	ctx := context.Background()
	now := time.Now().UTC()

	if _, err := r.Get(ctx, "acct", "", "key", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank order err = %v; want ErrNotFound", err)
	}
	if _, err := r.Get(ctx, "acct", "ord", "", now); !errors.Is(err, ErrNotFound) {
		t.Fatalf("blank key err = %v; want ErrNotFound", err)
	}
}

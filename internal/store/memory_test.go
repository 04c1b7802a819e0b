package store

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestMemStoreRequiresConnect(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()

	if m.Connected() {
		t.Fatal("new store should not report connected")
	}
	if _, err := m.Query(ctx, TableAccounts); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Query before Connect = %v; want ErrNotConnected", err)
	}
	if _, err := m.Insert(ctx, TableAccounts, []byte(`{}`)); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Insert before Connect = %v; want ErrNotConnected", err)
	}
	if _, err := m.Get(ctx, TableAccounts, "x"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Get before Connect = %v; want ErrNotConnected", err)
	}
	if _, err := m.Update(ctx, TableAccounts, "x", nil); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Update before Connect = %v; want ErrNotConnected", err)
	}
	if _, err := m.Delete(ctx, TableAccounts, "x"); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Delete before Connect = %v; want ErrNotConnected", err)
	}
	if err := m.Clear(ctx, TableAccounts); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Clear before Connect = %v; want ErrNotConnected", err)
	}

	if err := m.Connect(ctx); err != nil {
		t.Fatalf("Connect error: %v", err)
	}
	if !m.Connected() {
		t.Fatal("store should report connected after Connect")
	}
	if err := m.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}
	if _, err := m.Query(ctx, TableAccounts); !errors.Is(err, ErrNotConnected) {
		t.Fatalf("Query after Close = %v; want ErrNotConnected", err)
	}
}

func TestMemStoreInsertGetQuery(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	if err := m.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	first, err := m.Insert(ctx, TableOrders, []byte(`{"n":1}`))
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if first.ID == "" {
		t.Fatal("Insert must assign an id")
	}
	second, err := m.Insert(ctx, TableOrders, []byte(`{"n":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if first.ID == second.ID {
		t.Fatal("ids must be unique within a table")
	}

	got, err := m.Get(ctx, TableOrders, first.ID)
	if err != nil {
		t.Fatalf("Get error: %v", err)
	}
	if string(got.Data) != `{"n":1}` {
		t.Fatalf("Get payload = %s", got.Data)
	}

	rows, err := m.Query(ctx, TableOrders)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[0].ID != first.ID || rows[1].ID != second.ID {
		t.Fatalf("Query should preserve insertion order, got %d rows", len(rows))
	}

	// Unknown table is empty, not an error.
	rows, err = m.Query(ctx, "nope")
	if err != nil || len(rows) != 0 {
		t.Fatalf("Query unknown table = %v rows, err %v", len(rows), err)
	}
}

func TestMemStoreUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	if err := m.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	rec, err := m.Insert(ctx, TableAccounts, []byte(`{"v":"old"}`))
	if err != nil {
		t.Fatal(err)
	}
	upd, err := m.Update(ctx, TableAccounts, rec.ID, []byte(`{"v":"new"}`))
	if err != nil {
		t.Fatalf("Update error: %v", err)
	}
	if string(upd.Data) != `{"v":"new"}` {
		t.Fatalf("Update payload = %s", upd.Data)
	}

	if _, err := m.Update(ctx, TableAccounts, "missing", []byte(`{}`)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing id = %v; want ErrNotFound", err)
	}
}

func TestMemStoreDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	if err := m.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	rec, err := m.Insert(ctx, TablePayments, []byte(`{}`))
	if err != nil {
		t.Fatal(err)
	}
	removed, err := m.Delete(ctx, TablePayments, rec.ID)
	if err != nil || !removed {
		t.Fatalf("Delete = %v/%v; want true/nil", removed, err)
	}
	// Deleting an absent id is not an error.
	removed, err = m.Delete(ctx, TablePayments, rec.ID)
	if err != nil || removed {
		t.Fatalf("second Delete = %v/%v; want false/nil", removed, err)
	}

	if _, err := m.Insert(ctx, TablePayments, []byte(`{}`)); err != nil {
		t.Fatal(err)
	}
	if err := m.Clear(ctx, TablePayments); err != nil {
		t.Fatal(err)
	}
	rows, err := m.Query(ctx, TablePayments)
	if err != nil || len(rows) != 0 {
		t.Fatalf("Clear left %d rows (err %v)", len(rows), err)
	}
}

func TestMemStoreConcurrentInsertIDsUnique(t *testing.T) {
	ctx := context.Background()
	m := NewMemStore()
	if err := m.Connect(ctx); err != nil {
		t.Fatal(err)
	}

	const workers = 16
	const perWorker = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := m.Insert(ctx, TableOrders, []byte(`{}`)); err != nil {
					t.Errorf("Insert error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	rows, err := m.Query(ctx, TableOrders)
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		if _, dup := seen[r.ID]; dup {
			t.Fatalf("duplicate id %s", r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	if len(seen) != workers*perWorker {
		t.Fatalf("expected %d unique ids, got %d", workers*perWorker, len(seen))
	}
}

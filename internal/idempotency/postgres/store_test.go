//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/database/dbtest"
	"github.com/dejobratic/storefront/internal/idempotency/postgres"
	"github.com/dejobratic/storefront/internal/shop/ports"
)

func TestStoreSaveAndGet(t *testing.T) {
	pool := dbtest.NewPool(t)
	store := postgres.NewStore(pool, time.Hour)
	ctx := context.Background()

	resp, err := store.Get(ctx, "user-1:missing")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if resp != nil {
		t.Fatalf("expected nil for unknown key, got %+v", resp)
	}

	first := ports.StoredResponse{StatusCode: 201, Body: []byte(`{"orderId":"A"}`), OrderID: "A"}
	if err := store.Save(ctx, "user-1:k", first); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	if err := store.Save(ctx, "user-1:k", ports.StoredResponse{StatusCode: 201, Body: []byte(`{}`), OrderID: "B"}); err != nil {
		t.Fatalf("second Save() failed: %v", err)
	}

	resp, err = store.Get(ctx, "user-1:k")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected stored response")
	}
	if resp.StatusCode != 201 || resp.OrderID != "A" || string(resp.Body) != string(first.Body) {
		t.Errorf("expected first response to win, got %+v", resp)
	}
}

func TestStoreExpiry(t *testing.T) {
	pool := dbtest.NewPool(t)
	store := postgres.NewStore(pool, time.Hour)
	ctx := context.Background()

	_, err := pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, status_code, body, order_id, created_at)
		VALUES ('stale', 201, '\x7b7d', 'OLD', NOW() - INTERVAL '2 hours')
	`)
	if err != nil {
		t.Fatalf("failed to insert stale key: %v", err)
	}

	if resp, err := store.Get(ctx, "stale"); err != nil || resp != nil {
		t.Fatalf("expected stale key to be absent, got %+v, %v", resp, err)
	}

	if err := store.Save(ctx, "stale", ports.StoredResponse{StatusCode: 201, Body: []byte(`{}`), OrderID: "NEW"}); err != nil {
		t.Fatalf("Save() failed: %v", err)
	}
	resp, err := store.Get(ctx, "stale")
	if err != nil || resp == nil || resp.OrderID != "NEW" {
		t.Fatalf("expected expired key to be replaced, got %+v, %v", resp, err)
	}

	_, err = pool.Exec(ctx, `UPDATE idempotency_keys SET created_at = NOW() - INTERVAL '3 hours'`)
	if err != nil {
		t.Fatalf("failed to age keys: %v", err)
	}
	removed, err := store.Purge(ctx)
	if err != nil {
		t.Fatalf("Purge() failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 purged key, got %d", removed)
	}
}

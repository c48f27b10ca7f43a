package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dejobratic/storefront/internal/shop/ports"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown key returns nil", func(t *testing.T) {
		store := NewStore(time.Hour)

		resp, err := store.Get(ctx, "user-1:missing")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if resp != nil {
			t.Errorf("expected nil response, got %+v", resp)
		}
	})

	t.Run("first response wins", func(t *testing.T) {
		store := NewStore(time.Hour)

		first := ports.StoredResponse{StatusCode: 201, Body: []byte(`{"orderId":"A"}`), OrderID: "A"}
		second := ports.StoredResponse{StatusCode: 201, Body: []byte(`{"orderId":"B"}`), OrderID: "B"}
		if err := store.Save(ctx, "user-1:k", first); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if err := store.Save(ctx, "user-1:k", second); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}

		resp, err := store.Get(ctx, "user-1:k")
		if err != nil {
			t.Fatalf("Get() failed: %v", err)
		}
		if resp == nil || resp.OrderID != "A" || string(resp.Body) != `{"orderId":"A"}` {
			t.Errorf("expected first response, got %+v", resp)
		}
	})

	t.Run("returned body is a copy", func(t *testing.T) {
		store := NewStore(time.Hour)
		_ = store.Save(ctx, "k", ports.StoredResponse{StatusCode: 201, Body: []byte("abc")})

		resp, _ := store.Get(ctx, "k")
		resp.Body[0] = 'z'

		again, _ := store.Get(ctx, "k")
		if string(again.Body) != "abc" {
			t.Errorf("stored body was mutated: %q", again.Body)
		}
	})

	t.Run("expired keys are ignored and purged", func(t *testing.T) {
		store := NewStore(time.Hour)
		now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		store.now = func() time.Time { return now }

		_ = store.Save(ctx, "old", ports.StoredResponse{StatusCode: 201, OrderID: "A"})
		now = now.Add(30 * time.Minute)
		_ = store.Save(ctx, "fresh", ports.StoredResponse{StatusCode: 201, OrderID: "B"})
		now = now.Add(45 * time.Minute)

		if resp, _ := store.Get(ctx, "old"); resp != nil {
			t.Errorf("expected expired key to be ignored, got %+v", resp)
		}
		if resp, _ := store.Get(ctx, "fresh"); resp == nil {
			t.Error("expected fresh key to be returned")
		}

		removed, err := store.Purge(ctx)
		if err != nil {
			t.Fatalf("Purge() failed: %v", err)
		}
		if removed != 1 {
			t.Errorf("expected 1 key purged, got %d", removed)
		}

		if err := store.Save(ctx, "old", ports.StoredResponse{StatusCode: 201, OrderID: "C"}); err != nil {
			t.Fatalf("Save() failed: %v", err)
		}
		if resp, _ := store.Get(ctx, "old"); resp == nil || resp.OrderID != "C" {
			t.Errorf("expected expired key to be reusable, got %+v", resp)
		}
	})
}

package database

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestCheckHealth(t *testing.T) {
	t.Run("propagates ping failure", func(t *testing.T) {
		down := errors.New("connection refused")

		err := CheckHealth(context.Background(), pingerFunc(func(context.Context) error { return down }))

		if !errors.Is(err, down) {
			t.Errorf("expected ping error, got %v", err)
		}
	})

	t.Run("bounds the ping with a deadline", func(t *testing.T) {
		var deadline time.Time
		err := CheckHealth(context.Background(), pingerFunc(func(ctx context.Context) error {
			deadline, _ = ctx.Deadline()
			return nil
		}))

		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if deadline.IsZero() || time.Until(deadline) > 2*time.Second {
			t.Errorf("expected a deadline within 2s, got %v", deadline)
		}
	})
}

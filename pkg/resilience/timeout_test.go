package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWithTimeoutReturnsResult(t *testing.T) {
	want := errors.New("boom")
	err := WithTimeout(context.Background(), time.Second, "redis", func(ctx context.Context) error {
		return want
	})
	if !errors.Is(err, want) {
		t.Errorf("err = %v, want %v", err, want)
	}
}

func TestWithTimeoutDeadline(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	err := WithTimeout(context.Background(), 10*time.Millisecond, "kafka", func(ctx context.Context) error {
		<-release
		return nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want deadline exceeded", err)
	}
}

func TestWithTimeoutParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := WithTimeout(ctx, time.Second, "postgres", func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestWithTimeoutDisabled(t *testing.T) {
	called := false
	err := WithTimeout(context.Background(), 0, "noop", func(ctx context.Context) error {
		called = true
		if _, ok := ctx.Deadline(); ok {
			t.Error("no deadline expected when timeout is disabled")
		}
		return nil
	})
	if err != nil || !called {
		t.Errorf("err = %v, called = %v", err, called)
	}
}

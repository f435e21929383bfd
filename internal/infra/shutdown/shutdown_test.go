package shutdown

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNewHandler(t *testing.T) {
	h := NewHandler(5 * time.Second)
	if h == nil {
		t.Fatal("NewHandler returned nil")
	}
	if h.timeout != 5*time.Second {
		t.Errorf("timeout = %v, want 5s", h.timeout)
	}
}

func TestHooksRunInReverseOrder(t *testing.T) {
	h := NewHandler(time.Second)

	var mu sync.Mutex
	order := make([]int, 0, 3)
	for i := 1; i <= 3; i++ {
		i := i
		h.OnShutdown(func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		})
	}

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Wait: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait did not return")
	}

	if len(order) != 3 || order[0] != 3 || order[1] != 2 || order[2] != 1 {
		t.Errorf("hook order = %v, want [3 2 1]", order)
	}
}

func TestWaitReturnsHookError(t *testing.T) {
	h := NewHandler(time.Second)

	hookErr := errors.New("close failed")
	h.OnShutdown(func(context.Context) error { return hookErr })
	h.OnShutdown(func(context.Context) error { return nil })

	errCh := make(chan error, 1)
	go func() { errCh <- h.Wait() }()
	h.Trigger()

	if err := <-errCh; !errors.Is(err, hookErr) {
		t.Errorf("Wait = %v, want hook error", err)
	}
}

func TestTriggerIdempotent(t *testing.T) {
	h := NewHandler(time.Second)

	go h.Wait()
	h.Trigger()
	h.Trigger() // must not panic

	select {
	case <-h.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("Done channel never closed")
	}
}

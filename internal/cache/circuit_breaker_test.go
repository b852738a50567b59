package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBreaker(maxFailures, halfOpen int) (*CircuitBreaker, *fakeClock) {
	clock := newFakeClock()
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      maxFailures,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: halfOpen,
	})
	cb.now = clock.Now
	return cb, clock
}

func failing() error { return fmt.Errorf("operation failed") }
func succeeding() error { return nil }

func TestCircuitBreakerBasicFlow(t *testing.T) {
	cb, _ := newTestBreaker(3, 2)

	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected initial state to be Closed, got %v", cb.GetState())
	}

	if err := cb.Execute(succeeding); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected state to remain Closed after success, got %v", cb.GetState())
	}
}

func TestCircuitBreakerFailureTransition(t *testing.T) {
	cb, _ := newTestBreaker(2, 2)

	if err := cb.Execute(failing); err == nil {
		t.Error("Expected error, got nil")
	}
	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected state to be Closed after first failure, got %v", cb.GetState())
	}

	if err := cb.Execute(failing); err == nil {
		t.Error("Expected error, got nil")
	}
	if cb.GetState() != CircuitBreakerOpen {
		t.Errorf("Expected state to be Open after reaching failure threshold, got %v", cb.GetState())
	}
}

func TestCircuitBreakerSuccessResetsFailures(t *testing.T) {
	cb, _ := newTestBreaker(2, 1)

	cb.Execute(failing)
	cb.Execute(succeeding)
	cb.Execute(failing)

	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected non-consecutive failures to keep the breaker Closed, got %v", cb.GetState())
	}
}

func TestCircuitBreakerOpenState(t *testing.T) {
	cb, _ := newTestBreaker(1, 2)

	cb.Execute(failing)
	if cb.GetState() != CircuitBreakerOpen {
		t.Errorf("Expected state to be Open, got %v", cb.GetState())
	}

	err := cb.Execute(func() error {
		t.Error("Operation should not be executed when circuit is open")
		return nil
	})
	if err != ErrCircuitBreakerOpen {
		t.Errorf("Expected ErrCircuitBreakerOpen, got %v", err)
	}
}

func TestCircuitBreakerHalfOpenRecovery(t *testing.T) {
	cb, clock := newTestBreaker(1, 2)

	cb.Execute(failing)
	clock.Advance(150 * time.Millisecond)

	executed := false
	err := cb.Execute(func() error {
		executed = true
		return nil
	})
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !executed {
		t.Error("Expected operation to be executed once the timeout elapsed")
	}
	if cb.GetState() != CircuitBreakerHalfOpen {
		t.Errorf("Expected HalfOpen after one trial success, got %v", cb.GetState())
	}

	cb.Execute(succeeding)
	if cb.GetState() != CircuitBreakerClosed {
		t.Errorf("Expected Closed after enough trial successes, got %v", cb.GetState())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(1, 2)

	cb.Execute(failing)
	clock.Advance(150 * time.Millisecond)

	if err := cb.Execute(failing); err == nil {
		t.Error("Expected trial failure to be returned")
	}
	if cb.GetState() != CircuitBreakerOpen {
		t.Errorf("Expected trial failure to reopen the breaker, got %v", cb.GetState())
	}
	if err := cb.Execute(succeeding); err != ErrCircuitBreakerOpen {
		t.Errorf("Expected ErrCircuitBreakerOpen right after reopening, got %v", err)
	}

	stats := cb.GetStats()
	if stats["times_opened"] != int64(2) {
		t.Errorf("Expected breaker to have opened twice, got %v", stats["times_opened"])
	}
	if stats["state"] != "open" {
		t.Errorf("Expected state 'open' in stats, got %v", stats["state"])
	}
}

func TestCircuitBreakerConcurrency(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          100 * time.Millisecond,
		HalfOpenMaxCalls: 3,
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				cb.Execute(func() error {
					if (id+j)%3 == 0 {
						return fmt.Errorf("failure %d-%d", id, j)
					}
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	err := cb.Execute(succeeding)
	if err != nil && err != ErrCircuitBreakerOpen {
		t.Errorf("Unexpected error after concurrent operations: %v", err)
	}
}

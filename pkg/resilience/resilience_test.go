package resilience

import (
	"testing"
	"time"
)

func TestAllowTripsWhenConcurrencyLimitExceeded(t *testing.T) {
	cb := NewCircuitBreaker().WithMaxConcurrent(1).WithMaxMemory(1.0)

	if !cb.Allow() {
		t.Fatal("expected the first operation to be allowed")
	}
	cb.Start()

	if cb.Allow() {
		t.Fatal("expected a second concurrent operation to trip the breaker")
	}
	if cb.State() != CircuitOpen {
		t.Fatalf("expected CircuitOpen after tripping, got %v", cb.State())
	}
}

func TestAllowReopensHalfOpenAfterCooldown(t *testing.T) {
	cb := NewCircuitBreaker().WithMaxConcurrent(1).WithMaxMemory(1.0).WithCooldown(time.Millisecond)

	cb.Allow()
	cb.Start()
	cb.Allow() // trips

	time.Sleep(5 * time.Millisecond)

	if !cb.Allow() {
		t.Fatal("expected the breaker to allow a probe request after the cooldown elapses")
	}
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected CircuitHalfOpen after the cooldown, got %v", cb.State())
	}
}

func TestEndSuccessFromHalfOpenResetsToClosed(t *testing.T) {
	cb := NewCircuitBreaker().WithMaxConcurrent(1).WithMaxMemory(1.0).WithCooldown(time.Millisecond)

	cb.Allow()
	cb.Start()
	cb.Allow()
	time.Sleep(5 * time.Millisecond)
	cb.Allow()

	cb.End(true)

	if cb.State() != CircuitClosed {
		t.Fatalf("expected CircuitClosed after a successful half-open probe, got %v", cb.State())
	}
}

func TestOnTripCallbackFiresWithAReason(t *testing.T) {
	cb := NewCircuitBreaker().WithMaxConcurrent(1).WithMaxMemory(1.0)

	reasons := make(chan string, 1)
	cb.OnTrip = func(reason string) { reasons <- reason }

	cb.Allow()
	cb.Start()
	cb.Allow()

	select {
	case reason := <-reasons:
		if reason == "" {
			t.Fatal("expected a non-empty trip reason")
		}
	case <-time.After(time.Second):
		t.Fatal("expected OnTrip to fire")
	}
}

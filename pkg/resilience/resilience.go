// Package resilience guards long-running ingest operations against memory
// pressure and unbounded concurrency.
package resilience

import (
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreaker rejects operations once memory usage or concurrency
// exceeds a threshold, and reopens after a cooldown.
type CircuitBreaker struct {
	mu sync.RWMutex

	maxMemoryPct   float64
	maxConcurrent  int
	cooldownPeriod time.Duration

	state         CircuitState
	failures      int64
	lastFailure   time.Time
	tripTime      time.Time
	concurrentOps int64

	OnTrip  func(reason string)
	OnReset func()
}

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

// NewCircuitBreaker creates a circuit breaker with sensible defaults.
func NewCircuitBreaker() *CircuitBreaker {
	return &CircuitBreaker{
		maxMemoryPct:   0.90,
		maxConcurrent:  1000,
		cooldownPeriod: 30 * time.Second,
		state:          CircuitClosed,
	}
}

// WithMaxMemory sets the maximum memory usage threshold.
func (cb *CircuitBreaker) WithMaxMemory(pct float64) *CircuitBreaker {
	cb.maxMemoryPct = pct
	return cb
}

// WithMaxConcurrent sets the maximum concurrent operations.
func (cb *CircuitBreaker) WithMaxConcurrent(n int) *CircuitBreaker {
	cb.maxConcurrent = n
	return cb
}

// WithCooldown sets the cooldown period after tripping.
func (cb *CircuitBreaker) WithCooldown(d time.Duration) *CircuitBreaker {
	cb.cooldownPeriod = d
	return cb
}

// Allow checks if an operation should be allowed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.RLock()
	state := cb.state
	cb.mu.RUnlock()

	switch state {
	case CircuitOpen:
		cb.mu.Lock()
		defer cb.mu.Unlock()

		if time.Since(cb.tripTime) > cb.cooldownPeriod {
			cb.state = CircuitHalfOpen
			return true
		}
		return false

	case CircuitHalfOpen:
		return true

	case CircuitClosed:
		if cb.memoryUsagePct() > cb.maxMemoryPct {
			cb.trip("memory threshold exceeded")
			return false
		}
		if atomic.LoadInt64(&cb.concurrentOps) >= int64(cb.maxConcurrent) {
			cb.trip("concurrent operations limit exceeded")
			return false
		}
		return true
	}

	return true
}

// Start marks the beginning of an operation.
func (cb *CircuitBreaker) Start() {
	atomic.AddInt64(&cb.concurrentOps, 1)
}

// End marks the end of an operation.
func (cb *CircuitBreaker) End(success bool) {
	atomic.AddInt64(&cb.concurrentOps, -1)

	if !success {
		atomic.AddInt64(&cb.failures, 1)
		cb.mu.Lock()
		cb.lastFailure = time.Now()
		cb.mu.Unlock()
	} else if cb.state == CircuitHalfOpen {
		cb.reset()
	}
}

func (cb *CircuitBreaker) trip(reason string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == CircuitOpen {
		return
	}

	cb.state = CircuitOpen
	cb.tripTime = time.Now()

	if cb.OnTrip != nil {
		go cb.OnTrip(reason)
	}
}

func (cb *CircuitBreaker) reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = CircuitClosed
	cb.failures = 0

	if cb.OnReset != nil {
		go cb.OnReset()
	}
}

func (cb *CircuitBreaker) memoryUsagePct() float64 {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	totalMem := m.Sys
	usedMem := m.Alloc
	if totalMem == 0 {
		return 0
	}
	return float64(usedMem) / float64(totalMem)
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

package circuit

import (
	"sync"
	"time"

	"perpdesk/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// CircuitBreaker opens after threshold consecutive failures and lets one
// trial call through once the cooldown has passed.
type CircuitBreaker struct {
	mu            sync.Mutex
	state         State
	failures      int
	threshold     int
	cooldown      time.Duration
	lastFailure   time.Time
	name          string
	now           func() time.Time
	onStateChange func(name string, from, to State)
}

// NewCircuitBreaker returns a breaker that opens after threshold consecutive
// failures. A threshold <= 0 disables tripping.
func NewCircuitBreaker(name string, threshold int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		name:      name,
		threshold: threshold,
		cooldown:  cooldown,
		state:     StateClosed,
		now:       time.Now,
	}
}

// WithClock swaps the time source; used by tests.
func (cb *CircuitBreaker) WithClock(now func() time.Time) *CircuitBreaker {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if now != nil {
		cb.now = now
	}
	return cb
}

func (cb *CircuitBreaker) SetStateChangeHandler(handler func(name string, from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = handler
}

func (cb *CircuitBreaker) Name() string {
	return cb.name
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.state {
	case StateClosed:
		return true
	case StateOpen:
		if cb.now().Sub(cb.lastFailure) >= cb.cooldown {
			cb.transition(StateHalfOpen)
			return true
		}
		return false
	default:
		return true
	}
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures = 0
	if cb.state != StateClosed {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case StateClosed:
		if cb.threshold > 0 && cb.failures >= cb.threshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	cb.state = to
	if cb.onStateChange != nil {
		go cb.onStateChange(cb.name, from, to)
		return
	}
	logger.Warnf("[circuit] %s %s -> %s (failures=%d/%d cooldown=%s)",
		cb.name, from, to, cb.failures, cb.threshold, cb.cooldown)
}

package feed

import (
	"context"
	"time"
)

const (
	DefaultBaseDelay  = time.Second
	DefaultMaxDelay   = 30 * time.Second
	DefaultMaxRetries = 10
)

// Backoff is the reconnect schedule: Delay(n) = min(Base*2^n, Max).
type Backoff struct {
	Base       time.Duration
	Max        time.Duration
	MaxRetries int
}

func DefaultBackoff() Backoff {
	return Backoff{Base: DefaultBaseDelay, Max: DefaultMaxDelay, MaxRetries: DefaultMaxRetries}
}

func (b Backoff) withDefaults() Backoff {
	if b.Base <= 0 {
		b.Base = DefaultBaseDelay
	}
	if b.Max <= 0 {
		b.Max = DefaultMaxDelay
	}
	if b.Max < b.Base {
		b.Max = b.Base
	}
	if b.MaxRetries <= 0 {
		b.MaxRetries = DefaultMaxRetries
	}
	return b
}

// Delay returns the wait before reconnect attempt n (0-based).
func (b Backoff) Delay(attempt int) time.Duration {
	b = b.withDefaults()
	if attempt < 0 {
		attempt = 0
	}
	d := b.Base
	for i := 0; i < attempt; i++ {
		if d >= b.Max/2 {
			return b.Max
		}
		d *= 2
	}
	if d > b.Max {
		return b.Max
	}
	return d
}

type waitResult int

const (
	waitElapsed waitResult = iota
	waitKicked
	waitCancelled
)

// wait sleeps for d unless ctx ends or a manual reconnect arrives on kick.
func wait(ctx context.Context, d time.Duration, kick <-chan struct{}) waitResult {
	if d <= 0 {
		d = time.Millisecond
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return waitCancelled
	case <-kick:
		return waitKicked
	case <-timer.C:
		return waitElapsed
	}
}

package circuit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	cb := NewCircuitBreaker("gmx", 2, time.Minute).WithClock(func() time.Time { return now })

	assert.True(t, cb.Allow())
	cb.RecordFailure()
	assert.Equal(t, StateClosed, cb.State())
	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())
	assert.False(t, cb.Allow())

	now = now.Add(time.Minute)
	assert.True(t, cb.Allow())
	assert.Equal(t, StateHalfOpen, cb.State())

	cb.RecordFailure()
	assert.Equal(t, StateOpen, cb.State())

	now = now.Add(2 * time.Minute)
	assert.True(t, cb.Allow())
	cb.RecordSuccess()
	assert.Equal(t, StateClosed, cb.State())
}

func TestBreakerZeroThresholdNeverTrips(t *testing.T) {
	cb := NewCircuitBreaker("aster", 0, time.Second)
	for i := 0; i < 10; i++ {
		cb.RecordFailure()
	}
	assert.True(t, cb.Allow())
	assert.Equal(t, StateClosed, cb.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "HALF-OPEN", StateHalfOpen.String())
	assert.Equal(t, "UNKNOWN", State(9).String())
}

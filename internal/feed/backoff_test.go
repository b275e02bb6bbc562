package feed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelayMonotonicAndCapped(t *testing.T) {
	b := DefaultBackoff()
	prev := time.Duration(0)
	for attempt := 0; attempt < b.MaxRetries; attempt++ {
		d := b.Delay(attempt)
		assert.GreaterOrEqual(t, d, prev, "attempt %d", attempt)
		assert.LessOrEqual(t, d, b.Max, "attempt %d", attempt)
		prev = d
	}
	assert.Equal(t, time.Second, b.Delay(0))
	assert.Equal(t, 16*time.Second, b.Delay(4))
	assert.Equal(t, 30*time.Second, b.Delay(5))
	assert.Equal(t, 30*time.Second, b.Delay(500))
}

func TestBackoffDefaults(t *testing.T) {
	b := Backoff{}.withDefaults()
	assert.Equal(t, DefaultBackoff(), b)

	odd := Backoff{Base: time.Minute, Max: time.Second, MaxRetries: 3}.withDefaults()
	assert.Equal(t, time.Minute, odd.Max)
	assert.Equal(t, time.Minute, odd.Delay(3))
}

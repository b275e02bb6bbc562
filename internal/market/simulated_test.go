package market

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimulateBookDeterministic(t *testing.T) {
	p := DefaultSimParams()
	a := SimulateBook(65000, 1, p, nil)
	b := SimulateBook(65000, 1, p, nil)
	assert.Equal(t, a, b)
	assert.True(t, a.Simulated)
	require.Len(t, a.Bids, p.Levels)
	require.Len(t, a.Asks, p.Levels)
	assert.Less(t, a.Bids[0].Price, 65000.0)
	assert.Greater(t, a.Asks[0].Price, 65000.0)
	for i := 1; i < len(a.Bids); i++ {
		assert.Greater(t, a.Bids[i-1].Price, a.Bids[i].Price)
		assert.Less(t, a.Asks[i-1].Price, a.Asks[i].Price)
	}
	last := a.Bids[len(a.Bids)-1]
	var sum float64
	for _, lvl := range a.Bids {
		sum += lvl.Size
	}
	assert.InDelta(t, sum, last.Total, 1e-9)
}

func TestSimulateBookSeeded(t *testing.T) {
	p := DefaultSimParams()
	a := SimulateBook(3000, 1, p, rand.New(rand.NewPCG(1, 2)))
	b := SimulateBook(3000, 1, p, rand.New(rand.NewPCG(1, 2)))
	assert.Equal(t, a, b)
}

func TestSimulateBookNoPrice(t *testing.T) {
	book := SimulateBook(0, 5, DefaultSimParams(), nil)
	assert.True(t, book.Empty())
	assert.True(t, book.Simulated)
}

func TestSimulateTrades(t *testing.T) {
	p := DefaultSimParams()
	trades := SimulateTrades(2000, 1_700_000_000_000, p, nil)
	require.Len(t, trades, p.Trades)
	ids := make(map[string]bool)
	for i, tr := range trades {
		assert.Positive(t, tr.Price)
		assert.Positive(t, tr.Size)
		assert.False(t, ids[tr.ID])
		ids[tr.ID] = true
		if i > 0 {
			assert.Greater(t, trades[i-1].Timestamp, tr.Timestamp)
		}
	}
	assert.Nil(t, SimulateTrades(0, 1, p, nil))
}

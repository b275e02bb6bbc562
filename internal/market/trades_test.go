package market

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func tradeBatch(from, to int) []Trade {
	out := make([]Trade, 0, to-from)
	for i := to - 1; i >= from; i-- {
		out = append(out, Trade{ID: fmt.Sprintf("t%d", i), Price: 100, Size: 1, Side: Buy, Timestamp: int64(i)})
	}
	return out
}

func TestTradeTapeDedup(t *testing.T) {
	b1 := tradeBatch(0, 10)
	b2 := b1[3:7]

	once := NewTradeTape(0)
	once.Merge(b1)

	twice := NewTradeTape(0)
	twice.Merge(b1)
	changed := twice.Merge(b2)

	assert.False(t, changed)
	assert.Equal(t, once.Trades(), twice.Trades())
}

func TestTradeTapeNewestFirstPrepend(t *testing.T) {
	tape := NewTradeTape(0)
	tape.Merge(tradeBatch(0, 3))
	tape.Merge(tradeBatch(2, 6))

	ids := make([]string, 0, tape.Len())
	for _, tr := range tape.Trades() {
		ids = append(ids, tr.ID)
	}
	assert.Equal(t, []string{"t5", "t4", "t3", "t2", "t1", "t0"}, ids)
}

func TestTradeTapeBound(t *testing.T) {
	tape := NewTradeTape(50)
	for i := 0; i < 20; i++ {
		tape.Merge(tradeBatch(i*7, i*7+7))
		require.LessOrEqual(t, tape.Len(), 50)
	}
	trades := tape.Trades()
	assert.Equal(t, "t139", trades[0].ID)
	for i := 1; i < len(trades); i++ {
		assert.GreaterOrEqual(t, trades[i-1].Timestamp, trades[i].Timestamp)
	}
}

func TestTradeTapeUnchangedKeepsBacking(t *testing.T) {
	tape := NewTradeTape(0)
	tape.Merge(tradeBatch(0, 3))
	before := tape.items
	assert.False(t, tape.Merge(tradeBatch(0, 3)))
	assert.False(t, tape.Merge(nil))
	assert.Same(t, &before[0], &tape.items[0])
}

func TestTradeTapeDedupWithinBatch(t *testing.T) {
	tape := NewTradeTape(0)
	tape.Merge([]Trade{{ID: "x", Timestamp: 2}, {ID: "x", Timestamp: 1}, {ID: ""}})
	assert.Equal(t, 1, tape.Len())
}

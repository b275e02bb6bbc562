package market

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchPartsToleratesPartialFailure(t *testing.T) {
	var snap Snapshot
	var ran int32
	err := FetchParts(context.Background(), "venue",
		SnapshotPart{Name: "book", Fetch: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			snap.Bids = []OrderBookLevel{{Price: 99, Size: 1}}
			return nil
		}},
		SnapshotPart{Name: "candles", Fetch: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			return errors.New("status 500")
		}},
		SnapshotPart{Name: "trades", Fetch: func(context.Context) error {
			atomic.AddInt32(&ran, 1)
			snap.Trades = []Trade{{ID: "t1", Price: 100, Size: 1}}
			return nil
		}},
	)
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&ran))
	assert.Len(t, snap.Bids, 1)
	assert.Len(t, snap.Trades, 1)
	assert.Empty(t, snap.Candles)
	assert.False(t, snap.Empty())
}

func TestFetchPartsFailsWhenAllFail(t *testing.T) {
	boom := errors.New("status 502")
	fail := func(context.Context) error { return boom }
	err := FetchParts(context.Background(), "venue",
		SnapshotPart{Name: "book", Fetch: fail},
		SnapshotPart{Name: "candles", Fetch: fail},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "venue book")
	assert.Contains(t, err.Error(), "venue candles")
}

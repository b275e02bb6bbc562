package sqlite

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalRoundTrip(t *testing.T) {
	s, err := NewJournalStore(filepath.Join(t.TempDir(), "nested", "journal.db"))
	require.NoError(t, err)
	defer s.Close()
	ctx := context.Background()

	base := time.Unix(1714521600, 0).UTC()
	entries := []router.Entry{
		{
			Action:   router.ActionPlace,
			Exchange: market.Hyperliquid,
			Asset:    "BTC",
			ClientID: "cid-1",
			Request:  router.UnifiedOrderRequest{Exchange: market.Hyperliquid, Asset: "BTC", Size: 0.1, Price: 60000},
			Result: router.OrderResult{
				Success: true, Message: "resting", OrderID: "123", Exchange: market.Hyperliquid,
				Raw: json.RawMessage(`{"status":"ok"}`),
			},
			Latency: 120 * time.Millisecond,
			At:      base,
		},
		{
			Action:   router.ActionPlace,
			Exchange: market.GMX,
			Asset:    "ETH",
			Result:   router.OrderResult{Success: false, Message: "not supported", Exchange: market.GMX},
			At:       base.Add(time.Second),
		},
		{
			Action:   router.ActionCancel,
			Exchange: market.Hyperliquid,
			Asset:    "BTC",
			Request:  router.CancelRequest{Exchange: market.Hyperliquid, Asset: "BTC", OrderID: "123"},
			Result:   router.OrderResult{Success: true, Exchange: market.Hyperliquid},
			At:       base.Add(2 * time.Second),
		},
	}
	for _, e := range entries {
		require.NoError(t, s.Record(ctx, e))
	}

	all, err := s.ListRecent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, router.ActionCancel, all[0].Action)
	assert.Equal(t, market.GMX, all[1].Exchange)

	hl, err := s.ListRecent(ctx, market.Hyperliquid, 10)
	require.NoError(t, err)
	require.Len(t, hl, 2)
	placed := hl[1]
	assert.Equal(t, "cid-1", placed.ClientID)
	assert.True(t, placed.Result.Success)
	assert.Equal(t, "123", placed.Result.OrderID)
	assert.Equal(t, int64(120), placed.LatencyMS)
	assert.JSONEq(t, `{"status":"ok"}`, string(placed.Result.Raw))

	var req router.UnifiedOrderRequest
	require.NoError(t, json.Unmarshal(placed.Request, &req))
	assert.Equal(t, 60000.0, req.Price)

	one, err := s.ListRecent(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestNewJournalStoreRejectsEmptyPath(t *testing.T) {
	_, err := NewJournalStore("  ")
	assert.Error(t, err)
	_, err = NewJournalStoreFromDB(nil)
	assert.Error(t, err)
}

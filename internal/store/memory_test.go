package store

import (
	"context"
	"testing"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/router"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func entry(ex market.Exchange, asset string, ok bool) router.Entry {
	return router.Entry{
		Action:   router.ActionPlace,
		Exchange: ex,
		Asset:    asset,
		Request:  router.UnifiedOrderRequest{Exchange: ex, Asset: asset, Size: 1},
		Result:   router.OrderResult{Success: ok, Exchange: ex},
		Latency:  25 * time.Millisecond,
		At:       time.Unix(1714521600, 0),
	}
}

func TestMemoryJournalNewestFirst(t *testing.T) {
	j := NewMemoryJournal(3)
	ctx := context.Background()
	require.NoError(t, j.Record(ctx, entry(market.Hyperliquid, "BTC", true)))
	require.NoError(t, j.Record(ctx, entry(market.Aster, "ETH", false)))
	require.NoError(t, j.Record(ctx, entry(market.Hyperliquid, "SOL", true)))
	require.NoError(t, j.Record(ctx, entry(market.Hyperliquid, "DOGE", true)))

	all, err := j.ListRecent(ctx, "", 0)
	require.NoError(t, err)
	require.Len(t, all, 3, "ring keeps the last three")
	assert.Equal(t, "DOGE", all[0].Asset)
	assert.Equal(t, int64(4), all[0].ID)
	assert.Equal(t, int64(25), all[0].LatencyMS)

	hl, err := j.ListRecent(ctx, market.Hyperliquid, 1)
	require.NoError(t, err)
	require.Len(t, hl, 1)
	assert.Equal(t, "DOGE", hl[0].Asset)
}

func TestToRecordEncodesRequest(t *testing.T) {
	rec := ToRecord(entry(market.DYDX, "BTC", false))
	assert.Equal(t, "BTC", gjson.GetBytes(rec.Request, "asset").String())

	rec = ToRecord(router.Entry{})
	assert.Equal(t, "null", string(rec.Request))
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ClampLimit(0))
	assert.Equal(t, MaxListLimit, ClampLimit(10_000))
	assert.Equal(t, 7, ClampLimit(7))
}

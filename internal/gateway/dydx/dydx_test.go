package dydx

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/market/markettest"
	"perpdesk/internal/portfolio"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

var btcKey = market.Key{Exchange: market.DYDX, Symbol: "BTC", Interval: "1m"}

func TestSubscribeMessages(t *testing.T) {
	msgs, err := New(Config{}).Stream().SubscribeMessages(btcKey)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, wsRequest{Type: "subscribe", Channel: channelCandles, ID: "BTC-USD/1MIN"}, msgs[2])

	_, err = New(Config{}).Stream().SubscribeMessages(market.Key{Symbol: "BTC", Interval: "3m"})
	assert.Error(t, err)
}

func TestDecodeBookSnapshotThenDelta(t *testing.T) {
	c := New(Config{})
	c.now = func() time.Time { return time.UnixMilli(42) }
	s := c.Stream()
	sink := &markettest.Sink{}

	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"subscribed","channel":"v4_orderbook","id":"BTC-USD",
		"contents":{"bids":[{"price":"64000","size":"1.2"},{"price":"63990","size":"0"}],"asks":[{"price":"64010","size":"0.5"}]}}`), sink))
	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"channel_batch_data","channel":"v4_orderbook","id":"BTC-USD",
		"contents":[{"bids":[["64000","0"]]},{"asks":[["64020","2"]]}]}`), sink))
	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"channel_data","channel":"v4_orderbook","id":"ETH-USD","contents":{"bids":[["1","1"]]}}`), sink))

	require.Len(t, sink.Books, 1)
	assert.Len(t, sink.Books[0].Bids, 1)
	assert.Equal(t, int64(42), sink.Books[0].Timestamp)
	require.Len(t, sink.Updates, 2)
	assert.Equal(t, []market.OrderBookLevel{{Price: 64000, Size: 0}}, sink.Updates[0].Bids)
	assert.Equal(t, []market.OrderBookLevel{{Price: 64020, Size: 2}}, sink.Updates[1].Asks)
}

func TestDecodeTradesAndCandles(t *testing.T) {
	s := New(Config{}).Stream()
	sink := &markettest.Sink{}

	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"channel_data","channel":"v4_trades","id":"BTC-USD","contents":{"trades":[
		{"id":"a","side":"BUY","price":"64000","size":"0.1","createdAt":"2024-05-01T00:00:01.000Z"},
		{"id":"b","side":"SELL","price":"64001","size":"0.2","createdAt":"2024-05-01T00:00:02.500Z"},
		{"id":"c","side":"SELL","price":"0","size":"0.2","createdAt":"2024-05-01T00:00:03.000Z"}]}}`), sink))
	require.Len(t, sink.Trades, 1)
	require.Len(t, sink.Trades[0], 2)
	assert.Equal(t, "b", sink.Trades[0][0].ID)
	assert.Equal(t, market.Sell, sink.Trades[0][0].Side)
	assert.Equal(t, int64(1714521602500), sink.Trades[0][0].Timestamp)

	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"subscribed","channel":"v4_candles","id":"BTC-USD/1MIN","contents":{"candles":[
		{"startedAt":"2024-05-01T00:01:00.000Z","open":"2","high":"3","low":"1","close":"2.5","baseTokenVolume":"7"},
		{"startedAt":"2024-05-01T00:00:00.000Z","open":"1","high":"2","low":"1","close":"2","baseTokenVolume":"3"}]}}`), sink))
	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"channel_data","channel":"v4_candles","id":"BTC-USD/1MIN",
		"contents":{"startedAt":"2024-05-01T00:01:00.000Z","open":"2","high":"3.5","low":"1","close":"3","baseTokenVolume":"9"}}`), sink))
	require.NoError(t, s.Decode(btcKey, []byte(`{"type":"channel_data","channel":"v4_candles","id":"BTC-USD/5MINS","contents":{"startedAt":"2024-05-01T00:00:00.000Z"}}`), sink))

	require.Len(t, sink.Batches, 1)
	assert.Len(t, sink.Batches[0], 2)
	require.Len(t, sink.Candles, 1)
	assert.Equal(t, 3.5, sink.Candles[0].High)
	assert.Equal(t, 9.0, sink.Candles[0].Volume)
}

func TestDecodeErrors(t *testing.T) {
	s := New(Config{}).Stream()
	sink := &markettest.Sink{}
	assert.Error(t, s.Decode(btcKey, []byte(`{"type":"error","message":"Invalid subscribe message"}`), sink))
	assert.Error(t, s.Decode(btcKey, []byte(`{`), sink))
	assert.NoError(t, s.Decode(btcKey, []byte(`{"type":"connected","connection_id":"x"}`), sink))
}

func TestParseTime(t *testing.T) {
	assert.Equal(t, int64(1714521600000), ParseTime("2024-05-01T00:00:00.000Z"))
	assert.Zero(t, ParseTime("yesterday"))
	assert.Zero(t, ParseTime(""))
}

func newIndexer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v4/addresses/dydx1abc/subaccountNumber/0":
			_, _ = io.WriteString(w, `{"subaccount":{"equity":"10000","openPerpetualPositions":{
				"ETH-USD":{"market":"ETH-USD","side":"SHORT","size":"-4","entryPrice":"3100","unrealizedPnl":"400"},
				"BTC-USD":{"market":"BTC-USD","side":"LONG","size":"0.5","entryPrice":"60000","unrealizedPnl":"-250"}}}}`)
		case "/v4/perpetualMarkets":
			_, _ = io.WriteString(w, `{"markets":{"ETH-USD":{"oraclePrice":"3000"},"BTC-USD":{"oraclePrice":"59500"}}}`)
		case "/v4/orders":
			assert.Equal(t, "OPEN", r.URL.Query().Get("status"))
			_, _ = io.WriteString(w, `[{"id":"o1","ticker":"BTC-USD","side":"BUY","type":"LIMIT","size":"1","totalFilled":"0.25","price":"58000","reduceOnly":false,"updatedAt":"2024-05-01T00:00:00Z"}]`)
		case "/v4/fills":
			assert.Equal(t, "dydx1abc", r.URL.Query().Get("address"))
			_, _ = io.WriteString(w, `{"fills":[{"id":"f1","market":"ETH-USD","side":"SELL","price":"3100","size":"4","fee":"1.2","createdAt":"2024-05-01T00:00:00Z"}]}`)
		case "/v4/candles/perpetualMarkets/BTC-USD":
			assert.Equal(t, "1MIN", r.URL.Query().Get("resolution"))
			_, _ = io.WriteString(w, `{"candles":[{"startedAt":"2024-05-01T00:00:00.000Z","open":"1","high":"2","low":"1","close":"2"}]}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errors":[{"msg":"not found"}]}`)
		}
	}))
}

func TestAccountPositions(t *testing.T) {
	srv := newIndexer(t)
	defer srv.Close()

	positions, err := New(Config{RESTURL: srv.URL}).Account().FetchUserPositions(context.Background(), "dydx1abc")
	require.NoError(t, err)
	require.Len(t, positions, 2)

	bySymbol := map[string]portfolio.UserPosition{}
	for _, p := range positions {
		bySymbol[p.Symbol] = p
	}
	eth := bySymbol["ETH"]
	assert.Equal(t, portfolio.Short, eth.Side)
	assert.Equal(t, 4.0, eth.Size)
	assert.Equal(t, 3000.0, eth.MarkPrice)
	assert.Equal(t, 1.2, eth.Leverage)

	btc := bySymbol["BTC"]
	assert.Equal(t, portfolio.Long, btc.Side)
	assert.Equal(t, -250.0, btc.UnrealizedPnl)
}

func TestAccountUnknownAddress(t *testing.T) {
	srv := newIndexer(t)
	defer srv.Close()
	_, err := New(Config{RESTURL: srv.URL}).Account().FetchUserPositions(context.Background(), "dydx1missing")
	assert.Error(t, err)
}

func TestAccountOrdersAndFills(t *testing.T) {
	srv := newIndexer(t)
	defer srv.Close()
	acct := New(Config{RESTURL: srv.URL}).Account()

	orders, err := acct.FetchOpenOrders(context.Background(), "dydx1abc")
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, "BTC", orders[0].Symbol)
	assert.Equal(t, 0.75, orders[0].Size)
	assert.Equal(t, "limit", orders[0].Type)

	fills, err := acct.FetchFills(context.Background(), "dydx1abc")
	require.NoError(t, err)
	require.Len(t, fills, 1)
	assert.Equal(t, market.Sell, fills[0].Side)
	assert.Equal(t, "ETH", fills[0].Symbol)
}

func TestBackfill(t *testing.T) {
	srv := newIndexer(t)
	defer srv.Close()
	sink := &markettest.Sink{}
	require.NoError(t, New(Config{RESTURL: srv.URL}).Stream().Backfill(context.Background(), btcKey, sink))
	require.Len(t, sink.Batches, 1)
	assert.Len(t, sink.Batches[0], 1)
}

func TestParseDeltaLevelsSkipsMalformed(t *testing.T) {
	got := ParseDeltaLevels(gjson.Parse(`[["1","2"],["x","1"],["3"],["4","0"]]`))
	assert.Equal(t, []market.OrderBookLevel{{Price: 1, Size: 2}, {Price: 4, Size: 0}}, got)
}

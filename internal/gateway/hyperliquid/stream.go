package hyperliquid

import (
	"context"
	"fmt"
	"strings"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/scheduler"

	"github.com/tidwall/gjson"
)

const backfillCandles = 100

// Stream is the WebSocket market-data protocol: one subscription each for
// l2Book, trades and candle.
type Stream struct {
	c *Client
}

func (c *Client) Stream() *Stream {
	return &Stream{c: c}
}

type subscription struct {
	Type     string `json:"type"`
	Coin     string `json:"coin"`
	Interval string `json:"interval,omitempty"`
}

type wsRequest struct {
	Method       string        `json:"method"`
	Subscription *subscription `json:"subscription,omitempty"`
}

func (s *Stream) Endpoint() string {
	return s.c.cfg.WSURL
}

func (s *Stream) SubscribeMessages(key market.Key) ([]any, error) {
	coin := symbol.Hyperliquid.ToExchange(key.Symbol)
	if coin == "" {
		return nil, fmt.Errorf("hyperliquid: invalid symbol %q", key.Symbol)
	}
	if _, ok := scheduler.ParseIntervalDuration(key.Interval); !ok {
		return nil, fmt.Errorf("hyperliquid: invalid interval %q", key.Interval)
	}
	return []any{
		wsRequest{Method: "subscribe", Subscription: &subscription{Type: "l2Book", Coin: coin}},
		wsRequest{Method: "subscribe", Subscription: &subscription{Type: "trades", Coin: coin}},
		wsRequest{Method: "subscribe", Subscription: &subscription{Type: "candle", Coin: coin, Interval: key.Interval}},
	}, nil
}

// Decode routes one frame by its channel. Frames for other coins or
// intervals are ignored.
func (s *Stream) Decode(key market.Key, raw []byte, sink market.Sink) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("hyperliquid: invalid frame")
	}
	msg := gjson.ParseBytes(raw)
	data := msg.Get("data")
	coin := symbol.Hyperliquid.ToExchange(key.Symbol)
	switch msg.Get("channel").String() {
	case "l2Book":
		if !strings.EqualFold(data.Get("coin").String(), coin) {
			return nil
		}
		bids, asks, ts := ParseBook(data)
		sink.SetBook(bids, asks, ts)
	case "trades":
		if trades := ParseTradesFor(data, coin); len(trades) > 0 {
			sink.MergeTrades(trades)
		}
	case "candle":
		if !strings.EqualFold(data.Get("s").String(), coin) || data.Get("i").String() != key.Interval {
			return nil
		}
		if c := ParseCandle(data); c.Valid() {
			sink.PushCandle(c)
		}
	case "error":
		return fmt.Errorf("hyperliquid: %s", data.String())
	}
	return nil
}

// Backfill seeds the last candles over REST once the socket is open.
func (s *Stream) Backfill(ctx context.Context, key market.Key, sink market.Sink) error {
	d, ok := scheduler.ParseIntervalDuration(key.Interval)
	if !ok {
		return fmt.Errorf("hyperliquid: invalid interval %q", key.Interval)
	}
	end := s.c.now().UnixMilli()
	start := end - int64(backfillCandles)*d.Milliseconds()
	candles, err := s.c.Candles(ctx, symbol.Hyperliquid.ToExchange(key.Symbol), key.Interval, start, end)
	if err != nil {
		return err
	}
	sink.MergeCandles(candles)
	return nil
}

// Heartbeat keeps the server from dropping an idle connection.
func (s *Stream) Heartbeat() (any, time.Duration) {
	return wsRequest{Method: "ping"}, 30 * time.Second
}

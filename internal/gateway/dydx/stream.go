package dydx

import (
	"context"
	"fmt"

	"perpdesk/internal/logger"
	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/scheduler"

	"github.com/tidwall/gjson"
)

const (
	channelBook    = "v4_orderbook"
	channelTrades  = "v4_trades"
	channelCandles = "v4_candles"

	backfillCandles = 100
)

// Stream is the indexer WebSocket protocol. The first message of each
// channel ("subscribed") carries a snapshot, later ones carry deltas.
type Stream struct {
	c *Client
}

func (c *Client) Stream() *Stream {
	return &Stream{c: c}
}

type wsRequest struct {
	Type    string `json:"type"`
	Channel string `json:"channel"`
	ID      string `json:"id"`
	Batched bool   `json:"batched,omitempty"`
}

func (s *Stream) Endpoint() string {
	return s.c.cfg.WSURL
}

func (s *Stream) SubscribeMessages(key market.Key) ([]any, error) {
	ticker := symbol.DYDX.ToExchange(key.Symbol)
	if ticker == "" {
		return nil, fmt.Errorf("dydx: invalid symbol %q", key.Symbol)
	}
	res, ok := scheduler.DYDXResolution(key.Interval)
	if !ok {
		return nil, fmt.Errorf("dydx: unsupported interval %q", key.Interval)
	}
	return []any{
		wsRequest{Type: "subscribe", Channel: channelBook, ID: ticker, Batched: true},
		wsRequest{Type: "subscribe", Channel: channelTrades, ID: ticker, Batched: true},
		wsRequest{Type: "subscribe", Channel: channelCandles, ID: ticker + "/" + res},
	}, nil
}

func (s *Stream) Decode(key market.Key, raw []byte, sink market.Sink) error {
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("dydx: invalid frame")
	}
	msg := gjson.ParseBytes(raw)
	switch msg.Get("type").String() {
	case "connected", "unsubscribed", "pong":
		return nil
	case "error":
		return fmt.Errorf("dydx: %s", msg.Get("message").String())
	case "subscribed":
		return s.decodeContents(key, msg, msg.Get("contents"), true, sink)
	case "channel_data":
		return s.decodeContents(key, msg, msg.Get("contents"), false, sink)
	case "channel_batch_data":
		var err error
		msg.Get("contents").ForEach(func(_, c gjson.Result) bool {
			err = s.decodeContents(key, msg, c, false, sink)
			return err == nil
		})
		return err
	}
	return nil
}

func (s *Stream) decodeContents(key market.Key, msg, contents gjson.Result, snapshot bool, sink market.Sink) error {
	ticker := symbol.DYDX.ToExchange(key.Symbol)
	id := msg.Get("id").String()
	switch msg.Get("channel").String() {
	case channelBook:
		if id != ticker {
			return nil
		}
		ts := s.c.now().UnixMilli()
		if snapshot {
			sink.SetBook(ParseSnapshotLevels(contents.Get("bids")), ParseSnapshotLevels(contents.Get("asks")), ts)
			return nil
		}
		sink.UpdateBook(ParseDeltaLevels(contents.Get("bids")), ParseDeltaLevels(contents.Get("asks")), ts)
	case channelTrades:
		if id != ticker {
			return nil
		}
		if trades := ParseTrades(contents.Get("trades")); len(trades) > 0 {
			sink.MergeTrades(trades)
		}
	case channelCandles:
		res, _ := scheduler.DYDXResolution(key.Interval)
		if id != ticker+"/"+res {
			return nil
		}
		if snapshot {
			sink.MergeCandles(ParseCandles(contents.Get("candles")))
			return nil
		}
		if c := ParseCandle(contents); c.Valid() {
			sink.PushCandle(c)
		}
	default:
		logger.Debugf("[dydx] ignoring channel %q", msg.Get("channel").String())
	}
	return nil
}

// Backfill loads recent candles over REST; the socket snapshot only covers
// the current window.
func (s *Stream) Backfill(ctx context.Context, key market.Key, sink market.Sink) error {
	res, ok := scheduler.DYDXResolution(key.Interval)
	if !ok {
		return fmt.Errorf("dydx: unsupported interval %q", key.Interval)
	}
	candles, err := s.c.Candles(ctx, symbol.DYDX.ToExchange(key.Symbol), res, backfillCandles)
	if err != nil {
		return err
	}
	sink.MergeCandles(candles)
	return nil
}

package dydx

import (
	"strings"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"

	"github.com/tidwall/gjson"
)

// ParseSnapshotLevels reads [{price, size}] objects; non-positive levels
// are dropped.
func ParseSnapshotLevels(arr gjson.Result) []market.OrderBookLevel {
	out := make([]market.OrderBookLevel, 0, len(arr.Array()))
	arr.ForEach(func(_, lvl gjson.Result) bool {
		price := convert.Number(lvl.Get("price"))
		size := convert.Number(lvl.Get("size"))
		if price > 0 && size > 0 {
			out = append(out, market.OrderBookLevel{Price: price, Size: size})
		}
		return true
	})
	return out
}

// ParseDeltaLevels reads ["price","size"] tuples. A zero size is kept: it
// deletes the price level when applied.
func ParseDeltaLevels(arr gjson.Result) []market.OrderBookLevel {
	out := make([]market.OrderBookLevel, 0, len(arr.Array()))
	arr.ForEach(func(_, lvl gjson.Result) bool {
		pair := lvl.Array()
		if len(pair) < 2 {
			return true
		}
		price := convert.Number(pair[0])
		size := convert.Number(pair[1])
		if price <= 0 || size < 0 {
			return true
		}
		out = append(out, market.OrderBookLevel{Price: price, Size: size})
		return true
	})
	return out
}

// ParseTrades reads indexer trades ({id, side BUY|SELL, price, size,
// createdAt}) newest-first.
func ParseTrades(arr gjson.Result) []market.Trade {
	out := make([]market.Trade, 0, len(arr.Array()))
	arr.ForEach(func(_, t gjson.Result) bool {
		tr := market.Trade{
			ID:        t.Get("id").String(),
			Price:     convert.Number(t.Get("price")),
			Size:      convert.Number(t.Get("size")),
			Side:      market.ParseSide(t.Get("side").String()),
			Timestamp: ParseTime(t.Get("createdAt").String()),
		}
		if tr.ID == "" || tr.Price <= 0 || tr.Size <= 0 {
			return true
		}
		out = append(out, tr)
		return true
	})
	market.SortNewestFirst(out)
	return out
}

// ParseCandle reads {startedAt, open, high, low, close, baseTokenVolume}.
func ParseCandle(c gjson.Result) market.Candle {
	return market.Candle{
		Timestamp: ParseTime(c.Get("startedAt").String()),
		Open:      convert.Number(c.Get("open")),
		High:      convert.Number(c.Get("high")),
		Low:       convert.Number(c.Get("low")),
		Close:     convert.Number(c.Get("close")),
		Volume:    convert.Number(c.Get("baseTokenVolume")),
	}
}

func ParseCandles(arr gjson.Result) []market.Candle {
	out := make([]market.Candle, 0, len(arr.Array()))
	arr.ForEach(func(_, c gjson.Result) bool {
		if cd := ParseCandle(c); cd.Valid() {
			out = append(out, cd)
		}
		return true
	})
	return out
}

// ParseTime converts an indexer ISO-8601 timestamp to epoch ms; 0 when it
// does not parse.
func ParseTime(raw string) int64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

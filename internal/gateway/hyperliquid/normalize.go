package hyperliquid

import (
	"strconv"
	"strings"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"

	"github.com/tidwall/gjson"
)

// ParseLevels reads [{px, sz, n}] and drops levels without a positive
// price and size.
func ParseLevels(arr gjson.Result) []market.OrderBookLevel {
	out := make([]market.OrderBookLevel, 0, len(arr.Array()))
	arr.ForEach(func(_, lvl gjson.Result) bool {
		price := convert.Number(lvl.Get("px"))
		size := convert.Number(lvl.Get("sz"))
		if price > 0 && size > 0 {
			out = append(out, market.OrderBookLevel{Price: price, Size: size})
		}
		return true
	})
	return out
}

// ParseBook reads an l2Book payload: levels[0] are bids, levels[1] asks.
func ParseBook(data gjson.Result) (bids, asks []market.OrderBookLevel, ts int64) {
	levels := data.Get("levels").Array()
	if len(levels) > 0 {
		bids = ParseLevels(levels[0])
	}
	if len(levels) > 1 {
		asks = ParseLevels(levels[1])
	}
	return bids, asks, convert.Int64(data.Get("time"))
}

// ParseTrades reads a trades payload newest-first. Side "B" is a buy
// aggressor, "A" a sell. Trades without an id or a positive price and
// size are dropped.
func ParseTrades(arr gjson.Result) []market.Trade {
	return ParseTradesFor(arr, "")
}

// ParseTradesFor is ParseTrades restricted to one coin; an empty coin
// keeps every trade.
func ParseTradesFor(arr gjson.Result, coin string) []market.Trade {
	out := make([]market.Trade, 0, len(arr.Array()))
	arr.ForEach(func(_, t gjson.Result) bool {
		if coin != "" && !strings.EqualFold(t.Get("coin").String(), coin) {
			return true
		}
		tr := market.Trade{
			ID:        tradeID(t),
			Price:     convert.Number(t.Get("px")),
			Size:      convert.Number(t.Get("sz")),
			Side:      market.ParseSide(t.Get("side").String()),
			Timestamp: convert.Int64(t.Get("time")),
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

func tradeID(t gjson.Result) string {
	if tid := t.Get("tid"); tid.Exists() {
		return strconv.FormatInt(convert.Int64(tid), 10)
	}
	if h := t.Get("hash").String(); h != "" {
		return h + ":" + strconv.FormatInt(convert.Int64(t.Get("time")), 10)
	}
	return ""
}

// ParseCandle reads {t, o, h, l, c, v}; t is the open time in ms.
func ParseCandle(c gjson.Result) market.Candle {
	return market.Candle{
		Timestamp: convert.Int64(c.Get("t")),
		Open:      convert.Number(c.Get("o")),
		High:      convert.Number(c.Get("h")),
		Low:       convert.Number(c.Get("l")),
		Close:     convert.Number(c.Get("c")),
		Volume:    convert.Number(c.Get("v")),
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

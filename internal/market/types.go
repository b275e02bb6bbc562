package market

import (
	"sort"
	"strings"
)

// Exchange identifies one of the supported perp venues.
type Exchange string

const (
	Hyperliquid Exchange = "hyperliquid"
	DYDX        Exchange = "dydx"
	GMX         Exchange = "gmx"
	Lighter     Exchange = "lighter"
	Aster       Exchange = "aster"
)

// Exchanges lists every venue in registry order.
var Exchanges = []Exchange{Hyperliquid, DYDX, GMX, Lighter, Aster}

func ParseExchange(s string) (Exchange, bool) {
	name := Exchange(strings.ToLower(strings.TrimSpace(s)))
	for _, ex := range Exchanges {
		if ex == name {
			return ex, true
		}
	}
	return "", false
}

// OrderBookLevel is one price point of a book side. Total is the cumulative
// size from the best price out to and including this level.
type OrderBookLevel struct {
	Price float64 `json:"price"`
	Size  float64 `json:"size"`
	Total float64 `json:"total"`
}

// OrderBook has bids sorted by descending price and asks ascending.
// Simulated marks a synthetic book for AMM venues.
type OrderBook struct {
	Bids      []OrderBookLevel `json:"bids"`
	Asks      []OrderBookLevel `json:"asks"`
	Timestamp int64            `json:"timestamp"`
	Simulated bool             `json:"simulated"`
}

// Mid returns the midpoint of the best bid and ask, or 0 when a side is empty.
func (b OrderBook) Mid() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return (b.Bids[0].Price + b.Asks[0].Price) / 2
}

func (b OrderBook) Empty() bool {
	return len(b.Bids) == 0 && len(b.Asks) == 0
}

type Trade struct {
	ID        string  `json:"id"`
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Side      Side    `json:"side"`
	Timestamp int64   `json:"timestamp"`
}

// SortNewestFirst orders a trade batch by descending timestamp, keeping the
// arrival order of equal timestamps.
func SortNewestFirst(trades []Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].Timestamp > trades[j].Timestamp
	})
}

type ConnectionState string

const (
	StateLoading ConnectionState = "loading"
	StateOpen    ConnectionState = "open"
	StateError   ConnectionState = "error"
)

// Key identifies one live subscription: a venue market at a candle interval.
type Key struct {
	Exchange Exchange `json:"exchange"`
	Symbol   string   `json:"symbol"`
	Interval string   `json:"interval"`
}

func (k Key) String() string {
	return string(k.Exchange) + ":" + k.Symbol + "@" + k.Interval
}

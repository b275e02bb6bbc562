package market

import "sort"

// BuildDepth fills Total with the running size sum over levels in their
// given order. The input is not modified.
func BuildDepth(levels []OrderBookLevel) []OrderBookLevel {
	out := make([]OrderBookLevel, len(levels))
	var total float64
	for i, lvl := range levels {
		total += lvl.Size
		lvl.Total = total
		out[i] = lvl
	}
	return out
}

// BookSide picks the price ordering of a book side.
type BookSide int

const (
	BidSide BookSide = iota
	AskSide
)

// BuildSide drops non-positive levels, sorts by the side's price order
// (bids descending, asks ascending), keeps the best depth levels
// (depth <= 0 keeps all) and computes cumulative totals.
func BuildSide(levels []OrderBookLevel, side BookSide, depth int) []OrderBookLevel {
	clean := make([]OrderBookLevel, 0, len(levels))
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		clean = append(clean, OrderBookLevel{Price: lvl.Price, Size: lvl.Size})
	}
	sort.SliceStable(clean, func(i, j int) bool {
		if side == BidSide {
			return clean[i].Price > clean[j].Price
		}
		return clean[i].Price < clean[j].Price
	})
	if depth > 0 && len(clean) > depth {
		clean = clean[:depth]
	}
	return BuildDepth(clean)
}

// NewOrderBook builds a sorted book with cumulative totals from raw levels.
func NewOrderBook(bids, asks []OrderBookLevel, depth int, ts int64) OrderBook {
	return OrderBook{
		Bids:      BuildSide(bids, BidSide, depth),
		Asks:      BuildSide(asks, AskSide, depth),
		Timestamp: ts,
	}
}

type DepthPoint struct {
	Price float64 `json:"price"`
	Total float64 `json:"total"`
}

type DepthChart struct {
	Bids []DepthPoint `json:"bids"`
	Asks []DepthPoint `json:"asks"`
}

// Depth renders the book as a depth chart. Totals come from BuildDepth over
// the book's own ordering, so they match the book view exactly.
func (b OrderBook) Depth() DepthChart {
	return DepthChart{
		Bids: depthPoints(BuildDepth(b.Bids)),
		Asks: depthPoints(BuildDepth(b.Asks)),
	}
}

func depthPoints(levels []OrderBookLevel) []DepthPoint {
	out := make([]DepthPoint, len(levels))
	for i, lvl := range levels {
		out[i] = DepthPoint{Price: lvl.Price, Total: lvl.Total}
	}
	return out
}

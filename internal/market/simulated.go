package market

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// SimParams shapes the synthetic book and tape generated for pool-based
// venues that have no resting orders.
type SimParams struct {
	Levels      int     // levels per side
	TickBps     float64 // spacing between levels in basis points of the mid
	NotionalUSD float64 // size of the best level in quote terms
	Growth      float64 // per-level size growth factor
	Trades      int     // synthetic trades per snapshot
}

func DefaultSimParams() SimParams {
	return SimParams{Levels: 15, TickBps: 1, NotionalUSD: 25_000, Growth: 0.35, Trades: 20}
}

// SimulateBook builds a spread ladder around mid. Without rng the output is
// a pure function of mid and params; with rng each size gets up to ±20%
// jitter. The book is tagged Simulated.
func SimulateBook(mid float64, ts int64, p SimParams, rng *rand.Rand) OrderBook {
	if mid <= 0 || p.Levels <= 0 {
		return OrderBook{Timestamp: ts, Simulated: true}
	}
	tick := mid * p.TickBps / 10_000
	baseSize := p.NotionalUSD / mid
	bids := make([]OrderBookLevel, 0, p.Levels)
	asks := make([]OrderBookLevel, 0, p.Levels)
	for i := 0; i < p.Levels; i++ {
		offset := tick * float64(i+1)
		size := baseSize * (1 + p.Growth*float64(i))
		bids = append(bids, OrderBookLevel{Price: roundTo(mid-offset, mid), Size: jitter(size, rng)})
		asks = append(asks, OrderBookLevel{Price: roundTo(mid+offset, mid), Size: jitter(size, rng)})
	}
	book := NewOrderBook(bids, asks, 0, ts)
	book.Simulated = true
	return book
}

// SimulateTrades produces a newest-first synthetic tape ending at nowMillis.
// IDs derive from the second of the trade so re-polls within the same
// second do not duplicate.
func SimulateTrades(mid float64, nowMillis int64, p SimParams, rng *rand.Rand) []Trade {
	if mid <= 0 || p.Trades <= 0 {
		return nil
	}
	tick := mid * p.TickBps / 10_000
	baseSize := p.NotionalUSD / mid / 10
	out := make([]Trade, 0, p.Trades)
	for i := 0; i < p.Trades; i++ {
		side := Buy
		if i%2 == 1 {
			side = Sell
		}
		offset := tick * float64(i%3)
		price := mid + offset
		if side == Sell {
			price = mid - offset
		}
		ts := nowMillis - int64(i)*1000
		out = append(out, Trade{
			ID:        fmt.Sprintf("sim-%d-%d", ts/1000, i%2),
			Price:     roundTo(price, mid),
			Size:      jitter(baseSize*(1+float64(i%5)*0.5), rng),
			Side:      side,
			Timestamp: ts,
		})
	}
	return out
}

func jitter(v float64, rng *rand.Rand) float64 {
	if rng == nil {
		return v
	}
	return v * (0.8 + 0.4*rng.Float64())
}

// roundTo keeps five significant digits relative to the reference price.
func roundTo(v, ref float64) float64 {
	if ref <= 0 {
		return v
	}
	digits := 5 - int(math.Floor(math.Log10(ref))) - 1
	if digits < 0 {
		digits = 0
	}
	pow := math.Pow(10, float64(digits))
	return math.Round(v*pow) / pow
}

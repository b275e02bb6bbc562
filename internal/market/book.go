package market

// Book is an incrementally maintained order book keyed by price. It is not
// safe for concurrent use.
type Book struct {
	bids      map[float64]float64
	asks      map[float64]float64
	updated   int64
	simulated bool
}

func NewBook() *Book {
	return &Book{
		bids: make(map[float64]float64),
		asks: make(map[float64]float64),
	}
}

// ApplySnapshot replaces both sides. Non-positive levels are ignored.
func (b *Book) ApplySnapshot(bids, asks []OrderBookLevel, ts int64) {
	b.bids = make(map[float64]float64, len(bids))
	b.asks = make(map[float64]float64, len(asks))
	applyLevels(b.bids, bids)
	applyLevels(b.asks, asks)
	b.updated = ts
	b.simulated = false
}

// ApplySimulated replaces the book with synthetic levels and tags it.
func (b *Book) ApplySimulated(bids, asks []OrderBookLevel, ts int64) {
	b.ApplySnapshot(bids, asks, ts)
	b.simulated = true
}

// ApplyDelta upserts levels; a level with zero size removes its price.
func (b *Book) ApplyDelta(bids, asks []OrderBookLevel, ts int64) {
	applyDelta(b.bids, bids)
	applyDelta(b.asks, asks)
	if ts > b.updated {
		b.updated = ts
	}
}

// Snapshot returns the best depth levels per side (depth <= 0 means all)
// sorted and with cumulative totals.
func (b *Book) Snapshot(depth int) OrderBook {
	book := OrderBook{
		Bids:      BuildSide(levelsOf(b.bids), BidSide, depth),
		Asks:      BuildSide(levelsOf(b.asks), AskSide, depth),
		Timestamp: b.updated,
		Simulated: b.simulated,
	}
	return book
}

func (b *Book) Empty() bool {
	return len(b.bids) == 0 && len(b.asks) == 0
}

func (b *Book) Reset() {
	b.bids = make(map[float64]float64)
	b.asks = make(map[float64]float64)
	b.updated = 0
	b.simulated = false
}

func applyLevels(dst map[float64]float64, levels []OrderBookLevel) {
	for _, lvl := range levels {
		if lvl.Price <= 0 || lvl.Size <= 0 {
			continue
		}
		dst[lvl.Price] = lvl.Size
	}
}

func applyDelta(dst map[float64]float64, levels []OrderBookLevel) {
	for _, lvl := range levels {
		if lvl.Price <= 0 {
			continue
		}
		if lvl.Size <= 0 {
			delete(dst, lvl.Price)
			continue
		}
		dst[lvl.Price] = lvl.Size
	}
}

func levelsOf(src map[float64]float64) []OrderBookLevel {
	out := make([]OrderBookLevel, 0, len(src))
	for price, size := range src {
		out = append(out, OrderBookLevel{Price: price, Size: size})
	}
	return out
}

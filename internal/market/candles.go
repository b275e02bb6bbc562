package market

import (
	"sort"
	"time"
)

const DefaultMaxCandles = 100

// CandleSeries is a bounded OHLCV series ordered by ascending Timestamp with
// at most one candle per Timestamp. It is not safe for concurrent use.
type CandleSeries struct {
	max   int
	items []Candle
}

func NewCandleSeries(max int) *CandleSeries {
	if max <= 0 {
		max = DefaultMaxCandles
	}
	return &CandleSeries{max: max, items: make([]Candle, 0, max)}
}

func (s *CandleSeries) Max() int {
	return s.max
}

func (s *CandleSeries) Len() int {
	return len(s.items)
}

// Candles returns a copy of the series.
func (s *CandleSeries) Candles() []Candle {
	out := make([]Candle, len(s.items))
	copy(out, s.items)
	return out
}

// Last returns the most recent (still open) candle.
func (s *CandleSeries) Last() (Candle, bool) {
	if len(s.items) == 0 {
		return Candle{}, false
	}
	return s.items[len(s.items)-1], true
}

func (s *CandleSeries) Reset() {
	s.items = s.items[:0]
}

// Apply is the streaming update: replace the open candle on an equal
// timestamp, append on a newer one. Older candles fall back to Merge.
func (s *CandleSeries) Apply(c Candle) {
	if !c.Valid() {
		return
	}
	n := len(s.items)
	switch {
	case n == 0:
		s.items = append(s.items, c)
	case s.items[n-1].Timestamp == c.Timestamp:
		s.items[n-1] = c
	case c.Timestamp > s.items[n-1].Timestamp:
		s.items = append(s.items, c)
		s.trim()
	default:
		s.Merge([]Candle{c})
	}
}

// Merge folds a batch of candles in any order into the series. On a
// timestamp collision the incoming candle wins; within the batch the later
// entry wins.
func (s *CandleSeries) Merge(batch []Candle) {
	if len(batch) == 0 {
		return
	}
	byTS := make(map[int64]Candle, len(s.items)+len(batch))
	for _, c := range s.items {
		byTS[c.Timestamp] = c
	}
	changed := false
	for _, c := range batch {
		if !c.Valid() {
			continue
		}
		byTS[c.Timestamp] = c
		changed = true
	}
	if !changed {
		return
	}
	merged := make([]Candle, 0, len(byTS))
	for _, c := range byTS {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp < merged[j].Timestamp })
	s.items = merged
	s.trim()
}

// MergeWithin is Merge for sources whose candle timestamps jitter inside a
// bucket: an incoming candle strictly closer than tolerance to an existing
// candle takes over that candle's timestamp. tolerance <= 0 means exact match.
func (s *CandleSeries) MergeWithin(batch []Candle, tolerance time.Duration) {
	tol := tolerance.Milliseconds()
	if tol <= 0 || len(s.items) == 0 {
		s.Merge(batch)
		return
	}
	aligned := make([]Candle, 0, len(batch))
	for _, c := range batch {
		if !c.Valid() {
			continue
		}
		if ts, ok := s.nearest(c.Timestamp, tol); ok {
			c.Timestamp = ts
		}
		aligned = append(aligned, c)
	}
	s.Merge(aligned)
}

// nearest finds the existing timestamp closest to ts within tol.
func (s *CandleSeries) nearest(ts, tol int64) (int64, bool) {
	idx := sort.Search(len(s.items), func(i int) bool { return s.items[i].Timestamp >= ts })
	best, bestDist := int64(0), tol
	found := false
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(s.items) {
			continue
		}
		d := s.items[i].Timestamp - ts
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist, found = s.items[i].Timestamp, d, true
		}
	}
	return best, found
}

func (s *CandleSeries) trim() {
	if over := len(s.items) - s.max; over > 0 {
		kept := make([]Candle, s.max)
		copy(kept, s.items[over:])
		s.items = kept
	}
}

package market

const DefaultMaxTrades = 50

// TradeTape keeps a bounded, newest-first list of trades without duplicate IDs.
type TradeTape struct {
	max   int
	items []Trade
}

func NewTradeTape(max int) *TradeTape {
	if max <= 0 {
		max = DefaultMaxTrades
	}
	return &TradeTape{max: max}
}

func (t *TradeTape) Max() int {
	return t.max
}

func (t *TradeTape) Len() int {
	return len(t.items)
}

// Trades returns a copy of the tape, newest first.
func (t *TradeTape) Trades() []Trade {
	out := make([]Trade, len(t.items))
	copy(out, t.items)
	return out
}

// Merge prepends the trades of a newest-first batch whose IDs are not on
// the tape yet, keeping their relative order, and truncates to the cap.
// It reports false and leaves the tape untouched when nothing was new.
func (t *TradeTape) Merge(batch []Trade) bool {
	if len(batch) == 0 {
		return false
	}
	seen := make(map[string]struct{}, len(t.items)+len(batch))
	for _, tr := range t.items {
		seen[tr.ID] = struct{}{}
	}
	fresh := make([]Trade, 0, len(batch))
	for _, tr := range batch {
		if tr.ID == "" {
			continue
		}
		if _, dup := seen[tr.ID]; dup {
			continue
		}
		seen[tr.ID] = struct{}{}
		fresh = append(fresh, tr)
	}
	if len(fresh) == 0 {
		return false
	}
	n := len(fresh) + len(t.items)
	if n > t.max {
		n = t.max
	}
	next := make([]Trade, 0, n)
	next = append(next, fresh...)
	next = append(next, t.items...)
	if len(next) > t.max {
		next = next[:t.max]
	}
	t.items = next
	return true
}

func (t *TradeTape) Reset() {
	t.items = nil
}

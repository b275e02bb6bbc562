package gmx

import (
	"context"
	"fmt"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/scheduler"
)

// Source implements market.PollSource.
type Source struct {
	c *Client
}

func (c *Client) Source() *Source {
	return &Source{c: c}
}

func (s *Source) PollInterval() time.Duration {
	return s.c.cfg.PollInterval
}

var periods = map[string]bool{"1m": true, "5m": true, "15m": true, "1h": true, "4h": true, "1d": true}

// Fetch polls candles and the oracle price and synthesizes the book and
// tape around the mid.
func (s *Source) Fetch(ctx context.Context, key market.Key) (market.Snapshot, error) {
	token := symbol.GMX.ToExchange(key.Symbol)
	if token == "" {
		return market.Snapshot{}, fmt.Errorf("gmx: invalid symbol %q", key.Symbol)
	}
	period := scheduler.Canonical(key.Interval)
	if !periods[period] {
		return market.Snapshot{}, fmt.Errorf("gmx: unsupported interval %q", key.Interval)
	}
	// A token-list failure is left to the prices part; candles may still load.
	if tokens, err := s.c.Tokens(ctx); err == nil && !listed(tokens, token) {
		return market.Snapshot{}, fmt.Errorf("gmx: unknown token %q", token)
	}
	now := s.c.now().UnixMilli()
	snap := market.Snapshot{Simulated: true, Timestamp: now}
	err := market.FetchParts(ctx, "gmx",
		market.SnapshotPart{Name: "prices", Fetch: func(ctx context.Context) error {
			tickers, err := s.c.Tickers(ctx)
			if err != nil {
				return err
			}
			tk, ok := tickers[token]
			if !ok {
				return fmt.Errorf("no price for %s", token)
			}
			mid := tk.Mid()
			s.c.simMu.Lock()
			book := market.SimulateBook(mid, now, s.c.cfg.Sim, s.c.rng)
			trades := market.SimulateTrades(mid, now, s.c.cfg.Sim, s.c.rng)
			s.c.simMu.Unlock()
			snap.Bids, snap.Asks, snap.Trades = book.Bids, book.Asks, trades
			return nil
		}},
		market.SnapshotPart{Name: "candles", Fetch: func(ctx context.Context) error {
			candles, err := s.c.Candles(ctx, token, period)
			if err != nil {
				return err
			}
			snap.Candles = candles
			return nil
		}},
	)
	if err != nil {
		return market.Snapshot{}, err
	}
	return snap, nil
}

func listed(tokens map[string]Token, sym string) bool {
	for _, t := range tokens {
		if t.Symbol == sym {
			return true
		}
	}
	return false
}

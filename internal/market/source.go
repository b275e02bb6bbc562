package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"perpdesk/internal/logger"

	"golang.org/x/sync/errgroup"
)

// Sink receives normalized market data for one subscription. Implementations
// ignore writes after the subscription is closed.
type Sink interface {
	// SetBook replaces the whole book.
	SetBook(bids, asks []OrderBookLevel, ts int64)
	// UpdateBook applies incremental levels; zero size deletes a price.
	UpdateBook(bids, asks []OrderBookLevel, ts int64)
	// PushCandle is the O(1) streaming candle update.
	PushCandle(c Candle)
	// MergeCandles folds an unordered batch (history, backfill, poll).
	MergeCandles(batch []Candle)
	// MergeTrades adds a newest-first batch to the tape.
	MergeTrades(batch []Trade)
}

// StreamProtocol describes a venue's WebSocket market-data feed.
type StreamProtocol interface {
	Endpoint() string
	// SubscribeMessages returns one message per stream (book, trades, candles).
	SubscribeMessages(key Key) ([]any, error)
	// Decode normalizes one raw frame into the sink.
	Decode(key Key, raw []byte, sink Sink) error
}

// Backfiller is implemented by stream protocols that can seed candle
// history over REST once the socket is open.
type Backfiller interface {
	Backfill(ctx context.Context, key Key, sink Sink) error
}

// Snapshot is one REST poll of a venue market.
type Snapshot struct {
	Candles []Candle
	Bids    []OrderBookLevel
	Asks    []OrderBookLevel
	Trades  []Trade
	// Simulated marks Bids, Asks and Trades as synthetic.
	Simulated bool
	// CandleTolerance enables proximity matching of candle timestamps.
	CandleTolerance time.Duration
	Timestamp       int64
}

// Empty reports whether the poll returned no candles, no book and no trades.
func (s Snapshot) Empty() bool {
	return len(s.Candles) == 0 && len(s.Bids) == 0 && len(s.Asks) == 0 && len(s.Trades) == 0
}

// SnapshotPart fetches one piece of a Snapshot into the caller's variables.
type SnapshotPart struct {
	Name  string
	Fetch func(ctx context.Context) error
}

// FetchParts runs the parts concurrently and waits for all of them. Failed
// parts are logged and left empty; the error is non-nil only when every
// part failed.
func FetchParts(ctx context.Context, venue string, parts ...SnapshotPart) error {
	errs := make([]error, len(parts))
	var group errgroup.Group
	for i, part := range parts {
		group.Go(func() error {
			if err := part.Fetch(ctx); err != nil {
				errs[i] = fmt.Errorf("%s %s: %w", venue, part.Name, err)
			}
			// nil keeps the group waiting for the other parts
			return nil
		})
	}
	_ = group.Wait()

	var failed []error
	for _, err := range errs {
		if err != nil {
			failed = append(failed, err)
		}
	}
	if len(parts) > 0 && len(failed) == len(parts) {
		return errors.Join(failed...)
	}
	for _, err := range failed {
		logger.Warnf("[market] partial poll: %v", err)
	}
	return nil
}

// PollSource is a venue served by fixed-interval REST polling.
type PollSource interface {
	PollInterval() time.Duration
	Fetch(ctx context.Context, key Key) (Snapshot, error)
}

type SubscribeOptions struct {
	OnConnect    func()
	OnDisconnect func(error)
}

type SourceStats struct {
	Reconnects      int    `json:"reconnects"`
	SubscribeErrors int    `json:"subscribe_errors"`
	PollErrors      int    `json:"poll_errors"`
	LastError       string `json:"last_error,omitempty"`
}

package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"perpdesk/internal/logger"
	"perpdesk/internal/market"
)

// PollSink is the sink a poller writes to; it extends market.Sink with the
// simulated book and proximity candle merge used by some REST venues.
type PollSink interface {
	market.Sink
	SetSimulatedBook(bids, asks []market.OrderBookLevel, ts int64)
	MergeCandlesWithin(batch []market.Candle, tolerance time.Duration)
}

// Poller drives a REST venue at a fixed interval. Only the initial fetch
// changes the connection state; later failures are logged.
type Poller struct {
	key      market.Key
	src      market.PollSource
	sink     PollSink
	status   *Status
	interval time.Duration

	inFlight atomic.Bool
	wg       sync.WaitGroup
	kick     chan struct{}

	statsMu sync.Mutex
	stats   market.SourceStats
}

func NewPoller(key market.Key, src market.PollSource, sink PollSink, status *Status) *Poller {
	interval := src.PollInterval()
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		key:      key,
		src:      src,
		sink:     sink,
		status:   status,
		interval: interval,
		kick:     make(chan struct{}, 1),
	}
}

func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Run performs the initial fetch and then polls until ctx ends. It waits
// for an in-flight poll before returning.
func (p *Poller) Run(ctx context.Context) {
	defer p.wg.Wait()
	p.initial(ctx)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
			p.initial(ctx)
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Reconnect re-runs the initial fetch, which may move the state again.
func (p *Poller) Reconnect() {
	select {
	case p.kick <- struct{}{}:
	default:
	}
}

func (p *Poller) Stats() market.SourceStats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

func (p *Poller) initial(ctx context.Context) {
	p.status.Loading("Loading")
	p.wg.Wait()
	snap, err := p.src.Fetch(ctx, p.key)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		p.recordError(err)
		logger.Warnf("[feed] %s initial fetch failed: %v", p.key, err)
		p.status.Fail(fmt.Sprintf("Failed to load market data: %v", err))
		return
	}
	if snap.Empty() {
		p.status.Fail("No market data available")
		return
	}
	p.apply(snap)
	p.status.Open()
}

// Tick starts one background poll unless the previous one is still in
// flight. It reports whether a poll was started.
func (p *Poller) Tick(ctx context.Context) bool {
	if !p.inFlight.CompareAndSwap(false, true) {
		logger.Debugf("[feed] %s poll skipped, previous still running", p.key)
		return false
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.inFlight.Store(false)
		p.poll(ctx)
	}()
	return true
}

func (p *Poller) poll(ctx context.Context) {
	snap, err := p.src.Fetch(ctx, p.key)
	if err != nil {
		if ctx.Err() == nil {
			p.recordError(err)
			logger.Warnf("[feed] %s poll failed: %v", p.key, err)
		}
		return
	}
	p.apply(snap)
}

func (p *Poller) apply(snap market.Snapshot) {
	if len(snap.Bids) > 0 || len(snap.Asks) > 0 {
		if snap.Simulated {
			p.sink.SetSimulatedBook(snap.Bids, snap.Asks, snap.Timestamp)
		} else {
			p.sink.SetBook(snap.Bids, snap.Asks, snap.Timestamp)
		}
	}
	if len(snap.Candles) > 0 {
		if snap.CandleTolerance > 0 {
			p.sink.MergeCandlesWithin(snap.Candles, snap.CandleTolerance)
		} else {
			p.sink.MergeCandles(snap.Candles)
		}
	}
	if len(snap.Trades) > 0 {
		p.sink.MergeTrades(snap.Trades)
	}
}

func (p *Poller) recordError(err error) {
	p.statsMu.Lock()
	p.stats.PollErrors++
	p.stats.LastError = err.Error()
	p.statsMu.Unlock()
}

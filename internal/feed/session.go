package feed

import (
	"context"
	"errors"
	"sync"
	"time"

	"perpdesk/internal/market"
)

var ErrSessionClosed = errors.New("feed session closed")

// Driver is the transport behind a session: a Socket or a Poller.
type Driver interface {
	Run(ctx context.Context)
	Reconnect()
	Stats() market.SourceStats
}

// Limits bounds the per-session market state.
type Limits struct {
	MaxCandles int
	MaxTrades  int
	BookDepth  int
}

// View is a consistent copy of a session's state.
type View struct {
	Key     market.Key         `json:"key"`
	Status  StatusView         `json:"status"`
	Book    market.OrderBook   `json:"book"`
	Depth   market.DepthChart  `json:"depth"`
	Trades  []market.Trade     `json:"trades"`
	Candles []market.Candle    `json:"candles"`
	Stats   market.SourceStats `json:"stats"`
}

// Session owns the market state of one (venue, market, interval)
// subscription. Writes arriving after Close are dropped.
type Session struct {
	key    market.Key
	limits Limits
	status *Status

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	mu      sync.RWMutex
	closed  bool
	candles *market.CandleSeries
	trades  *market.TradeTape
	book    *market.Book
	driver  Driver
}

// NewSession creates an idle session; Start attaches and runs its driver.
func NewSession(parent context.Context, key market.Key, limits Limits) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		key:     key,
		limits:  limits,
		status:  NewStatus(),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
		candles: market.NewCandleSeries(limits.MaxCandles),
		trades:  market.NewTradeTape(limits.MaxTrades),
		book:    market.NewBook(),
	}
}

func (s *Session) Key() market.Key {
	return s.key
}

func (s *Session) Status() *Status {
	return s.status
}

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Start runs the driver in the background.
func (s *Session) Start(d Driver) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.driver = d
	s.mu.Unlock()
	go func() {
		defer close(s.done)
		d.Run(s.ctx)
	}()
	return nil
}

// Close cancels the driver and blocks until it has stopped.
func (s *Session) Close() {
	s.cancel()
	s.mu.Lock()
	started := s.driver != nil
	s.closed = true
	s.mu.Unlock()
	if started {
		<-s.done
	}
}

func (s *Session) Reconnect() error {
	s.mu.RLock()
	d, closed := s.driver, s.closed
	s.mu.RUnlock()
	if closed {
		return ErrSessionClosed
	}
	if d != nil {
		d.Reconnect()
	}
	return nil
}

func (s *Session) SetBook(bids, asks []market.OrderBookLevel, ts int64) {
	s.write(func() { s.book.ApplySnapshot(bids, asks, ts) })
}

func (s *Session) SetSimulatedBook(bids, asks []market.OrderBookLevel, ts int64) {
	s.write(func() { s.book.ApplySimulated(bids, asks, ts) })
}

func (s *Session) UpdateBook(bids, asks []market.OrderBookLevel, ts int64) {
	s.write(func() { s.book.ApplyDelta(bids, asks, ts) })
}

func (s *Session) PushCandle(c market.Candle) {
	s.write(func() { s.candles.Apply(c) })
}

func (s *Session) MergeCandles(batch []market.Candle) {
	s.write(func() { s.candles.Merge(batch) })
}

func (s *Session) MergeCandlesWithin(batch []market.Candle, tolerance time.Duration) {
	s.write(func() { s.candles.MergeWithin(batch, tolerance) })
}

func (s *Session) MergeTrades(batch []market.Trade) {
	s.write(func() { s.trades.Merge(batch) })
}

func (s *Session) write(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.ctx.Err() != nil {
		return
	}
	fn()
}

func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	book := s.book.Snapshot(s.limits.BookDepth)
	v := View{
		Key:     s.key,
		Status:  s.status.View(),
		Book:    book,
		Depth:   book.Depth(),
		Trades:  s.trades.Trades(),
		Candles: s.candles.Candles(),
	}
	if s.driver != nil {
		v.Stats = s.driver.Stats()
	}
	return v
}

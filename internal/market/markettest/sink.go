// Package markettest provides a recording market.Sink for venue tests.
package markettest

import (
	"sync"
	"time"

	"perpdesk/internal/market"
)

// Sink records every write it receives.
type Sink struct {
	mu sync.Mutex

	Books      []market.OrderBook
	Updates    []market.OrderBook
	Candles    []market.Candle
	Batches    [][]market.Candle
	Trades     [][]market.Trade
	Simulated  []market.OrderBook
	Tolerances []time.Duration
}

func (s *Sink) SetBook(bids, asks []market.OrderBookLevel, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Books = append(s.Books, market.OrderBook{Bids: bids, Asks: asks, Timestamp: ts})
}

func (s *Sink) SetSimulatedBook(bids, asks []market.OrderBookLevel, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Simulated = append(s.Simulated, market.OrderBook{Bids: bids, Asks: asks, Timestamp: ts, Simulated: true})
}

func (s *Sink) UpdateBook(bids, asks []market.OrderBookLevel, ts int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Updates = append(s.Updates, market.OrderBook{Bids: bids, Asks: asks, Timestamp: ts})
}

func (s *Sink) PushCandle(c market.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Candles = append(s.Candles, c)
}

func (s *Sink) MergeCandles(batch []market.Candle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Batches = append(s.Batches, batch)
}

func (s *Sink) MergeCandlesWithin(batch []market.Candle, tolerance time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Batches = append(s.Batches, batch)
	s.Tolerances = append(s.Tolerances, tolerance)
}

func (s *Sink) MergeTrades(batch []market.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Trades = append(s.Trades, batch)
}

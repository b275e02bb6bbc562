// Package lighter polls the Lighter zk order-book REST API.
package lighter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"perpdesk/internal/gateway/rest"
	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/scheduler"

	"github.com/tidwall/gjson"
)

const (
	DefaultRESTURL      = "https://mainnet.zklighter.elliot.ai"
	DefaultPollInterval = 5 * time.Second

	marketsTTL  = 10 * time.Minute
	bookLimit   = 50
	tradeLimit  = 50
	candleCount = 100
)

type Config struct {
	RESTURL      string
	PollInterval time.Duration
	Timeout      time.Duration
	RateLimit    float64
}

func (c Config) withDefaults() Config {
	out := c
	if strings.TrimSpace(out.RESTURL) == "" {
		out.RESTURL = DefaultRESTURL
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	return out
}

type Client struct {
	cfg  Config
	rest *rest.Client
	now  func() time.Time

	mu        sync.Mutex
	markets   map[string]int64 // symbol -> market_id
	marketsAt time.Time
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	c := &Client{
		cfg:  final,
		rest: rest.New(string(market.Lighter), final.RESTURL, final.Timeout),
		now:  time.Now,
	}
	c.rest.SetRateLimit(final.RateLimit, 3)
	return c
}

// MarketID resolves a symbol to Lighter's numeric market index.
func (c *Client) MarketID(ctx context.Context, sym string) (int64, error) {
	base := symbol.Lighter.ToExchange(sym)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.markets == nil || c.now().Sub(c.marketsAt) >= marketsTTL {
		res, err := c.rest.Get(ctx, "/api/v1/orderBooks", nil)
		if err != nil {
			return 0, err
		}
		markets := make(map[string]int64)
		res.Get("order_books").ForEach(func(_, ob gjson.Result) bool {
			if s := strings.ToUpper(ob.Get("symbol").String()); s != "" {
				markets[s] = ob.Get("market_id").Int()
			}
			return true
		})
		c.markets, c.marketsAt = markets, c.now()
	}
	id, ok := c.markets[base]
	if !ok {
		return 0, fmt.Errorf("lighter: unknown market %q", sym)
	}
	return id, nil
}

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

// Fetch polls book, trades and candles. Lighter stamps candles with the
// close of the bucket on some markets, so candle timestamps are matched
// within one interval.
func (s *Source) Fetch(ctx context.Context, key market.Key) (market.Snapshot, error) {
	interval, ok := scheduler.ParseIntervalDuration(key.Interval)
	if !ok {
		return market.Snapshot{}, fmt.Errorf("lighter: invalid interval %q", key.Interval)
	}
	id, err := s.c.MarketID(ctx, key.Symbol)
	if err != nil {
		return market.Snapshot{}, err
	}
	idStr := strconv.FormatInt(id, 10)

	end := s.c.now()
	snap := market.Snapshot{CandleTolerance: interval, Timestamp: end.UnixMilli()}
	err = market.FetchParts(ctx, "lighter",
		market.SnapshotPart{Name: "book", Fetch: func(ctx context.Context) error {
			q := url.Values{"market_id": {idStr}, "limit": {strconv.Itoa(bookLimit)}}
			book, err := s.c.rest.Get(ctx, "/api/v1/orderBookOrders", q)
			if err != nil {
				return err
			}
			snap.Bids = ParseLevels(book.Get("bids"))
			snap.Asks = ParseLevels(book.Get("asks"))
			return nil
		}},
		market.SnapshotPart{Name: "trades", Fetch: func(ctx context.Context) error {
			q := url.Values{"market_id": {idStr}, "limit": {strconv.Itoa(tradeLimit)}}
			trades, err := s.c.rest.Get(ctx, "/api/v1/recentTrades", q)
			if err != nil {
				return err
			}
			snap.Trades = ParseTrades(trades.Get("trades"))
			return nil
		}},
		market.SnapshotPart{Name: "candles", Fetch: func(ctx context.Context) error {
			q := url.Values{
				"market_id":       {idStr},
				"resolution":      {scheduler.Canonical(key.Interval)},
				"start_timestamp": {strconv.FormatInt(end.Add(-interval*candleCount).Unix(), 10)},
				"end_timestamp":   {strconv.FormatInt(end.Unix(), 10)},
				"count_back":      {strconv.Itoa(candleCount)},
			}
			candles, err := s.c.rest.Get(ctx, "/api/v1/candlesticks", q)
			if err != nil {
				return err
			}
			snap.Candles = ParseCandles(candles.Get("candlesticks"))
			return nil
		}},
	)
	if err != nil {
		return market.Snapshot{}, err
	}
	return snap, nil
}

// ParseLevels reads resting orders {price, remaining_base_amount}.
func ParseLevels(arr gjson.Result) []market.OrderBookLevel {
	out := make([]market.OrderBookLevel, 0, len(arr.Array()))
	arr.ForEach(func(_, o gjson.Result) bool {
		price := convert.Number(o.Get("price"))
		size := convert.Number(o.Get("remaining_base_amount"))
		if price > 0 && size > 0 {
			out = append(out, market.OrderBookLevel{Price: price, Size: size})
		}
		return true
	})
	return out
}

// ParseTrades reads {trade_id, price, size, is_maker_ask, timestamp}
// newest-first. A maker ask means the taker bought.
func ParseTrades(arr gjson.Result) []market.Trade {
	out := make([]market.Trade, 0, len(arr.Array()))
	arr.ForEach(func(_, t gjson.Result) bool {
		tr := market.Trade{
			ID:        t.Get("trade_id").String(),
			Price:     convert.Number(t.Get("price")),
			Size:      convert.Number(t.Get("size")),
			Side:      market.SideFromMakerAsk(t.Get("is_maker_ask").Bool()),
			Timestamp: toMillis(convert.Int64(t.Get("timestamp"))),
		}
		if tr.ID == "" || tr.Price <= 0 || tr.Size <= 0 {
			return true
		}
		out = append(out, tr)
		return true
	})
	market.SortNewestFirst(out)
	return out
}

// ParseCandles reads {timestamp, open, high, low, close, volume0}.
func ParseCandles(arr gjson.Result) []market.Candle {
	out := make([]market.Candle, 0, len(arr.Array()))
	arr.ForEach(func(_, c gjson.Result) bool {
		cd := market.Candle{
			Timestamp: toMillis(convert.Int64(c.Get("timestamp"))),
			Open:      convert.Number(c.Get("open")),
			High:      convert.Number(c.Get("high")),
			Low:       convert.Number(c.Get("low")),
			Close:     convert.Number(c.Get("close")),
			Volume:    convert.Number(c.Get("volume0")),
		}
		if cd.Valid() {
			out = append(out, cd)
		}
		return true
	})
	return out
}

// toMillis accepts either epoch seconds or epoch milliseconds.
func toMillis(ts int64) int64 {
	if ts > 0 && ts < 1e12 {
		return ts * 1000
	}
	return ts
}

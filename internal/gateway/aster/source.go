// Package aster polls Aster perpetuals through its Binance-compatible
// fapi with the go-binance futures client.
package aster

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"perpdesk/internal/market"
	"perpdesk/internal/pkg/symbol"
	"perpdesk/internal/scheduler"

	"github.com/adshao/go-binance/v2/futures"
)

const (
	klineLimit = 200
	depthLimit = 50
	tradeLimit = 50
)

// Client wraps a go-binance futures client pointed at the Aster base URL.
type Client struct {
	cfg    Config
	client *futures.Client
	now    func() time.Time
}

func New(cfg Config) (*Client, error) {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	client.BaseURL = final.RESTURL
	httpClient := &http.Client{Timeout: final.HTTPTimeout}
	if final.ProxyURL != "" {
		proxyURL, err := url.Parse(final.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid REST proxy url: %w", err)
		}
		baseTransport, ok := http.DefaultTransport.(*http.Transport)
		if !ok || baseTransport == nil {
			return nil, fmt.Errorf("http DefaultTransport is not *http.Transport")
		}
		transport := baseTransport.Clone()
		transport.Proxy = http.ProxyURL(proxyURL)
		httpClient.Transport = transport
	}
	client.HTTPClient = httpClient
	return &Client{cfg: final, client: client, now: time.Now}, nil
}

func (c *Client) Config() Config {
	return c.cfg
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

func (s *Source) Fetch(ctx context.Context, key market.Key) (market.Snapshot, error) {
	sym := symbol.Aster.ToExchange(key.Symbol)
	if sym == "" {
		return market.Snapshot{}, fmt.Errorf("aster: invalid symbol %q", key.Symbol)
	}
	interval := scheduler.Canonical(key.Interval)
	if _, ok := scheduler.ParseIntervalDuration(interval); !ok {
		return market.Snapshot{}, fmt.Errorf("aster: invalid interval %q", key.Interval)
	}
	var snap market.Snapshot
	err := market.FetchParts(ctx, "aster",
		market.SnapshotPart{Name: "klines", Fetch: func(ctx context.Context) error {
			kls, err := s.c.client.NewKlinesService().Symbol(sym).Interval(interval).Limit(klineLimit).Do(ctx)
			if err != nil {
				return err
			}
			snap.Candles = convertKlines(kls)
			return nil
		}},
		market.SnapshotPart{Name: "depth", Fetch: func(ctx context.Context) error {
			depth, err := s.c.client.NewDepthService().Symbol(sym).Limit(depthLimit).Do(ctx)
			if err != nil {
				return err
			}
			snap.Timestamp = depth.Time
			for _, b := range depth.Bids {
				if lvl, ok := level(b.Price, b.Quantity); ok {
					snap.Bids = append(snap.Bids, lvl)
				}
			}
			for _, a := range depth.Asks {
				if lvl, ok := level(a.Price, a.Quantity); ok {
					snap.Asks = append(snap.Asks, lvl)
				}
			}
			return nil
		}},
		market.SnapshotPart{Name: "trades", Fetch: func(ctx context.Context) error {
			trades, err := s.c.client.NewRecentTradesService().Symbol(sym).Limit(tradeLimit).Do(ctx)
			if err != nil {
				return err
			}
			snap.Trades = convertTrades(trades)
			return nil
		}},
	)
	if err != nil {
		return market.Snapshot{}, err
	}
	if snap.Timestamp == 0 {
		snap.Timestamp = s.c.now().UnixMilli()
	}
	return snap, nil
}

func level(price, qty string) (market.OrderBookLevel, bool) {
	p, q := parseFloat(price), parseFloat(qty)
	if p <= 0 || q <= 0 {
		return market.OrderBookLevel{}, false
	}
	return market.OrderBookLevel{Price: p, Size: q}, true
}

func convertKlines(kls []*futures.Kline) []market.Candle {
	out := make([]market.Candle, 0, len(kls))
	for _, kl := range kls {
		if kl == nil {
			continue
		}
		c := market.Candle{
			Timestamp: kl.OpenTime,
			Open:      parseFloat(kl.Open),
			High:      parseFloat(kl.High),
			Low:       parseFloat(kl.Low),
			Close:     parseFloat(kl.Close),
			Volume:    parseFloat(kl.Volume),
		}
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// convertTrades maps isBuyerMaker to the aggressor side, newest first.
func convertTrades(trades []*futures.Trade) []market.Trade {
	out := make([]market.Trade, 0, len(trades))
	for _, t := range trades {
		if t == nil {
			continue
		}
		tr := market.Trade{
			ID:        strconv.FormatInt(t.ID, 10),
			Price:     parseFloat(t.Price),
			Size:      parseFloat(t.Quantity),
			Side:      market.SideFromBuyerMaker(t.IsBuyerMaker),
			Timestamp: t.Time,
		}
		if tr.Price <= 0 || tr.Size <= 0 {
			continue
		}
		out = append(out, tr)
	}
	market.SortNewestFirst(out)
	return out
}

func parseFloat(v string) float64 {
	f, _ := strconv.ParseFloat(strings.TrimSpace(v), 64)
	return f
}

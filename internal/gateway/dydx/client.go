// Package dydx reads the dYdX v4 indexer: the WebSocket market feed and
// the REST subaccount views.
package dydx

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"perpdesk/internal/gateway/rest"
	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"

	"github.com/tidwall/gjson"
)

const (
	DefaultRESTURL = "https://indexer.dydx.trade"
	DefaultWSURL   = "wss://indexer.dydx.trade/v4/ws"

	// Subaccount 0 is the one the dYdX frontends trade from.
	defaultSubaccount = 0
)

type Config struct {
	RESTURL   string
	WSURL     string
	Timeout   time.Duration
	RateLimit float64
}

func (c Config) withDefaults() Config {
	out := c
	if strings.TrimSpace(out.RESTURL) == "" {
		out.RESTURL = DefaultRESTURL
	}
	if strings.TrimSpace(out.WSURL) == "" {
		out.WSURL = DefaultWSURL
	}
	return out
}

type Client struct {
	cfg  Config
	rest *rest.Client
	now  func() time.Time
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	c := &Client{
		cfg:  final,
		rest: rest.New(string(market.DYDX), final.RESTURL, final.Timeout),
		now:  time.Now,
	}
	c.rest.SetRateLimit(final.RateLimit, 2)
	return c
}

// Candles fetches the latest candles of ticker at an indexer resolution
// ("1MIN", "1HOUR", ...).
func (c *Client) Candles(ctx context.Context, ticker, resolution string, limit int) ([]market.Candle, error) {
	q := url.Values{}
	q.Set("resolution", resolution)
	if limit > 0 {
		q.Set("limit", fmt.Sprint(limit))
	}
	res, err := c.rest.Get(ctx, "/v4/candles/perpetualMarkets/"+url.PathEscape(ticker), q)
	if err != nil {
		return nil, err
	}
	return ParseCandles(res.Get("candles")), nil
}

// OraclePrices returns ticker -> oracle price for every perpetual market.
func (c *Client) OraclePrices(ctx context.Context) (map[string]float64, error) {
	res, err := c.rest.Get(ctx, "/v4/perpetualMarkets", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64)
	res.Get("markets").ForEach(func(k, m gjson.Result) bool {
		if px := convert.Number(m.Get("oraclePrice")); px > 0 {
			out[strings.ToUpper(k.String())] = px
		}
		return true
	})
	return out, nil
}

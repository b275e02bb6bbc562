// Package gmx polls the GMX v2 (Arbitrum) REST API. GMX is pool-based:
// it has oracle prices and candles but no order book, so the book and the
// tape it reports are simulated around the oracle mid.
package gmx

import (
	"context"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"perpdesk/internal/gateway/rest"
	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

const (
	DefaultRESTURL      = "https://arbitrum-api.gmxinfra.io"
	DefaultPollInterval = 10 * time.Second

	// Prices carry 30 decimals of USD precision per token unit.
	pricePrecision = 30
	tokensTTL      = 10 * time.Minute
	candleLimit    = 200
)

type Config struct {
	RESTURL      string
	GraphQLURL   string
	PollInterval time.Duration
	Timeout      time.Duration
	RateLimit    float64
	// Seed adds reproducible jitter to the simulated book; 0 keeps the
	// plain ladder.
	Seed uint64
	Sim  market.SimParams
}

func (c Config) withDefaults() Config {
	out := c
	if strings.TrimSpace(out.RESTURL) == "" {
		out.RESTURL = DefaultRESTURL
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	if out.Sim.Levels <= 0 {
		out.Sim = market.DefaultSimParams()
	}
	return out
}

type Token struct {
	Symbol   string
	Address  string
	Decimals int32
}

// Ticker is one oracle price pair in USD.
type Ticker struct {
	Symbol    string
	Address   string
	MinPrice  float64
	MaxPrice  float64
	Timestamp int64
}

func (t Ticker) Mid() float64 {
	return (t.MinPrice + t.MaxPrice) / 2
}

type Client struct {
	cfg     Config
	rest    *rest.Client
	graphql *rest.Client
	now     func() time.Time

	simMu sync.Mutex
	rng   *rand.Rand

	mu       sync.Mutex
	tokens   map[string]Token // by lower-case address
	tokensAt time.Time
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	c := &Client{
		cfg:  final,
		rest: rest.New(string(market.GMX), final.RESTURL, final.Timeout),
		now:  time.Now,
	}
	c.rest.SetRateLimit(final.RateLimit, 3)
	if gql := strings.TrimSpace(final.GraphQLURL); gql != "" {
		c.graphql = rest.New(string(market.GMX)+"-graphql", gql, final.Timeout)
		c.graphql.SetRateLimit(final.RateLimit, 1)
	}
	if final.Seed != 0 {
		c.rng = rand.New(rand.NewPCG(final.Seed, final.Seed))
	}
	return c
}

// Tokens returns the token list keyed by lower-case address.
func (c *Client) Tokens(ctx context.Context) (map[string]Token, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.tokens != nil && c.now().Sub(c.tokensAt) < tokensTTL {
		return c.tokens, nil
	}
	res, err := c.rest.Get(ctx, "/tokens", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]Token)
	res.Get("tokens").ForEach(func(_, t gjson.Result) bool {
		addr := strings.ToLower(t.Get("address").String())
		if addr == "" {
			return true
		}
		out[addr] = Token{
			Symbol:   strings.ToUpper(t.Get("symbol").String()),
			Address:  addr,
			Decimals: int32(t.Get("decimals").Int()),
		}
		return true
	})
	if len(out) == 0 {
		return nil, fmt.Errorf("gmx: empty token list")
	}
	c.tokens, c.tokensAt = out, c.now()
	return out, nil
}

// Tickers returns the oracle prices keyed by upper-case token symbol.
func (c *Client) Tickers(ctx context.Context) (map[string]Ticker, error) {
	tokens, err := c.Tokens(ctx)
	if err != nil {
		return nil, err
	}
	res, err := c.rest.Get(ctx, "/prices/tickers", nil)
	if err != nil {
		return nil, err
	}
	return ParseTickers(res, tokens), nil
}

// ParseTickers scales the fixed-point min/max prices by the token decimals.
func ParseTickers(arr gjson.Result, tokens map[string]Token) map[string]Ticker {
	out := make(map[string]Ticker)
	arr.ForEach(func(_, t gjson.Result) bool {
		addr := strings.ToLower(t.Get("tokenAddress").String())
		tok, ok := tokens[addr]
		sym := strings.ToUpper(t.Get("tokenSymbol").String())
		if sym == "" {
			sym = tok.Symbol
		}
		if !ok || sym == "" {
			return true
		}
		scale := pricePrecision - tok.Decimals
		tk := Ticker{
			Symbol:    sym,
			Address:   addr,
			MinPrice:  convert.FromFixed(t.Get("minPrice").String(), scale),
			MaxPrice:  convert.FromFixed(t.Get("maxPrice").String(), scale),
			Timestamp: convert.Int64(t.Get("timestamp")),
		}
		if tk.MinPrice <= 0 || tk.MaxPrice <= 0 {
			return true
		}
		if _, seen := out[sym]; !seen {
			out[sym] = tk
		}
		return true
	})
	return out
}

// Candles fetches OHLC candles for a token symbol ("ETH") and period ("1m").
func (c *Client) Candles(ctx context.Context, tokenSymbol, period string) ([]market.Candle, error) {
	q := url.Values{}
	q.Set("tokenSymbol", tokenSymbol)
	q.Set("period", period)
	q.Set("limit", strconv.Itoa(candleLimit))
	res, err := c.rest.Get(ctx, "/prices/candles", q)
	if err != nil {
		return nil, err
	}
	return ParseCandles(res.Get("candles")), nil
}

// ParseCandles reads [[tsSeconds, open, high, low, close], ...].
func ParseCandles(arr gjson.Result) []market.Candle {
	out := make([]market.Candle, 0, len(arr.Array()))
	arr.ForEach(func(_, row gjson.Result) bool {
		v := row.Array()
		if len(v) < 5 {
			return true
		}
		c := market.Candle{
			Timestamp: convert.Int64(v[0]) * 1000,
			Open:      convert.Number(v[1]),
			High:      convert.Number(v[2]),
			Low:       convert.Number(v[3]),
			Close:     convert.Number(v[4]),
		}
		if c.Valid() {
			out = append(out, c)
		}
		return true
	})
	return out
}

// usd converts a 30-decimal USD amount.
func usd(raw string) float64 {
	return convert.FromFixed(raw, pricePrecision)
}

// tokenAmount scales a raw token amount by its decimals.
func tokenAmount(raw string, decimals int32) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero
	}
	return d.Shift(-decimals)
}

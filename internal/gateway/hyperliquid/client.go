// Package hyperliquid connects perpdesk to the Hyperliquid perp DEX: the
// WebSocket market feed, the /info account queries and signed /exchange
// order actions.
package hyperliquid

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"perpdesk/internal/gateway/rest"
	"perpdesk/internal/market"
	"perpdesk/internal/pkg/convert"

	"github.com/tidwall/gjson"
)

const (
	DefaultRESTURL = "https://api.hyperliquid.xyz"
	DefaultWSURL   = "wss://api.hyperliquid.xyz/ws"
	metaTTL        = 10 * time.Minute
)

type Config struct {
	RESTURL string
	WSURL   string
	Timeout time.Duration
	Testnet bool
	// RateLimit is the REST budget in requests per second; 0 is unlimited.
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

// AssetMeta is one entry of the perp universe; Index is the asset id used
// in order actions.
type AssetMeta struct {
	Name        string
	Index       int
	SzDecimals  int
	MaxLeverage int
}

type Client struct {
	cfg  Config
	rest *rest.Client

	metaMu sync.Mutex
	meta   map[string]AssetMeta
	metaAt time.Time
	now    func() time.Time
}

func New(cfg Config) *Client {
	final := cfg.withDefaults()
	c := &Client{
		cfg:  final,
		rest: rest.New(string(market.Hyperliquid), final.RESTURL, final.Timeout),
		now:  time.Now,
	}
	c.rest.SetRateLimit(final.RateLimit, 2)
	return c
}

// REST exposes the underlying HTTP client, mainly for tests.
func (c *Client) REST() *rest.Client {
	return c.rest
}

func (c *Client) info(ctx context.Context, body map[string]any) (gjson.Result, error) {
	return c.rest.Post(ctx, "/info", body)
}

// Meta returns the perp universe keyed by coin, cached for a few minutes.
func (c *Client) Meta(ctx context.Context) (map[string]AssetMeta, error) {
	c.metaMu.Lock()
	defer c.metaMu.Unlock()
	if c.meta != nil && c.now().Sub(c.metaAt) < metaTTL {
		return c.meta, nil
	}
	res, err := c.info(ctx, map[string]any{"type": "meta"})
	if err != nil {
		return nil, err
	}
	meta := make(map[string]AssetMeta)
	for i, u := range res.Get("universe").Array() {
		name := strings.ToUpper(u.Get("name").String())
		if name == "" {
			continue
		}
		meta[name] = AssetMeta{
			Name:        name,
			Index:       i,
			SzDecimals:  int(u.Get("szDecimals").Int()),
			MaxLeverage: int(u.Get("maxLeverage").Int()),
		}
	}
	if len(meta) == 0 {
		return nil, fmt.Errorf("hyperliquid meta: empty universe")
	}
	c.meta, c.metaAt = meta, c.now()
	return meta, nil
}

func (c *Client) Asset(ctx context.Context, coin string) (AssetMeta, error) {
	meta, err := c.Meta(ctx)
	if err != nil {
		return AssetMeta{}, err
	}
	a, ok := meta[strings.ToUpper(coin)]
	if !ok {
		return AssetMeta{}, fmt.Errorf("hyperliquid: unknown asset %s", coin)
	}
	return a, nil
}

// Mid returns the current mid price of coin from allMids.
func (c *Client) Mid(ctx context.Context, coin string) (float64, error) {
	res, err := c.info(ctx, map[string]any{"type": "allMids"})
	if err != nil {
		return 0, err
	}
	mid := convert.Number(res.Get(gjsonKey(strings.ToUpper(coin))))
	if mid <= 0 {
		return 0, fmt.Errorf("hyperliquid: no mid price for %s", coin)
	}
	return mid, nil
}

// Candles fetches candleSnapshot history between start and end (epoch ms).
func (c *Client) Candles(ctx context.Context, coin, interval string, start, end int64) ([]market.Candle, error) {
	res, err := c.info(ctx, map[string]any{
		"type": "candleSnapshot",
		"req": map[string]any{
			"coin":      coin,
			"interval":  interval,
			"startTime": start,
			"endTime":   end,
		},
	})
	if err != nil {
		return nil, err
	}
	return ParseCandles(res), nil
}

// gjsonKey escapes path characters that appear in some coin names.
func gjsonKey(k string) string {
	r := strings.NewReplacer(".", `\.`, "*", `\*`, "?", `\?`)
	return r.Replace(k)
}

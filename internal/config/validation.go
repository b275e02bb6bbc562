package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validate 对配置进行基础校验。
func validate(c *Config) error {
	if err := c.App.validate(); err != nil {
		return err
	}
	if err := c.Feed.validate(); err != nil {
		return err
	}
	for _, name := range []string{"hyperliquid", "dydx", "gmx", "lighter", "aster"} {
		v, _ := c.Exchanges.Venue(name)
		if err := v.validate(name); err != nil {
			return err
		}
	}
	if c.Portfolio.BreakerThreshold < 0 {
		return fmt.Errorf("portfolio.breaker_threshold must be >= 0")
	}
	return nil
}

func (a *AppConfig) validate() error {
	switch strings.ToLower(a.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("app.log_level must be debug, info, warn or error, got %q", a.LogLevel)
	}
	switch a.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("app.log_format must be text or json, got %q", a.LogFormat)
	}
	return nil
}

func (f *FeedConfig) validate() error {
	if f.MaxCandles <= 0 || f.MaxTrades <= 0 || f.BookDepth <= 0 {
		return fmt.Errorf("feed.max_candles, feed.max_trades and feed.book_depth must be > 0")
	}
	if f.Backoff.MaxMS < f.Backoff.BaseMS {
		return fmt.Errorf("feed.backoff.max_ms (%d) must be >= base_ms (%d)", f.Backoff.MaxMS, f.Backoff.BaseMS)
	}
	if f.Backoff.MaxRetries <= 0 {
		return fmt.Errorf("feed.backoff.max_retries must be > 0")
	}
	if f.WSProxy != "" {
		if _, err := url.Parse(f.WSProxy); err != nil {
			return fmt.Errorf("feed.ws_proxy: %w", err)
		}
	}
	return nil
}

func (v VenueConfig) validate(name string) error {
	if !v.Enabled {
		return nil
	}
	if err := validURL("exchanges."+name+".rest_url", v.RESTURL, "http", "https"); err != nil {
		return err
	}
	if v.WSURL != "" {
		if err := validURL("exchanges."+name+".ws_url", v.WSURL, "ws", "wss"); err != nil {
			return err
		}
	}
	if v.GraphQLURL != "" {
		if err := validURL("exchanges."+name+".graphql_url", v.GraphQLURL, "http", "https"); err != nil {
			return err
		}
	}
	if v.RateLimitRPS < 0 {
		return fmt.Errorf("exchanges.%s.rate_limit_rps must be >= 0", name)
	}
	if (v.APIKey == "") != (v.APISecret == "") {
		return fmt.Errorf("exchanges.%s requires both api_key and api_secret", name)
	}
	return nil
}

func validURL(field, raw string, schemes ...string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", field)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	for _, s := range schemes {
		if u.Scheme == s && u.Host != "" {
			return nil
		}
	}
	return fmt.Errorf("%s must be a %s url, got %q", field, strings.Join(schemes, "/"), raw)
}

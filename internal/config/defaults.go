package config

import (
	"os"
	"strings"
)

// 默认值常量
const (
	defaultAppEnv       = "dev"
	defaultAppLogLevel  = "info"
	defaultAppLogFormat = "text"
	defaultAppHTTPAddr  = ":9991"
	defaultLogMaxSizeMB = 100
	defaultLogMaxAge    = 7

	defaultFeedMaxCandles = 100
	defaultFeedMaxTrades  = 50
	defaultFeedBookDepth  = 20
	defaultBackoffBaseMS  = 1000
	defaultBackoffMaxMS   = 30000
	defaultBackoffRetries = 10

	defaultVenueTimeoutMS = 10000
	defaultVenueRateRPS   = 10
	defaultPollerRateRPS  = 5

	defaultHyperliquidREST = "https://api.hyperliquid.xyz"
	defaultHyperliquidWS   = "wss://api.hyperliquid.xyz/ws"
	defaultDYDXREST        = "https://indexer.dydx.trade"
	defaultDYDXWS          = "wss://indexer.dydx.trade/v4/ws"
	defaultGMXREST         = "https://arbitrum-api.gmxinfra.io"
	defaultGMXPollMS       = 10000
	defaultLighterREST     = "https://mainnet.zklighter.elliot.ai"
	defaultLighterPollMS   = 5000
	defaultAsterREST       = "https://fapi.asterdex.com"
	defaultAsterPollMS     = 5000

	defaultPortfolioTimeoutMS  = 8000
	defaultBreakerThreshold    = 3
	defaultBreakerCooldownMS   = 60000
	defaultSignerPrivateKeyEnv = "PERPDESK_PRIVATE_KEY"
	defaultJournalPath         = "data/perpdesk.db"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Feed.applyDefaults(keys)
	c.Exchanges.applyDefaults(keys)
	c.Portfolio.applyDefaults(keys)
	applyFieldDefaults(keys,
		stringFieldDefault("signer.private_key_env", &c.Signer.PrivateKeyEnv, defaultSignerPrivateKeyEnv),
		stringFieldDefault("journal.path", &c.Journal.Path, defaultJournalPath),
	)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.log_format", &a.LogFormat, defaultAppLogFormat),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		intFieldDefault("app.log_max_size_mb", &a.LogMaxSizeMB, defaultLogMaxSizeMB),
		intFieldDefault("app.log_max_age_days", &a.LogMaxAgeDays, defaultLogMaxAge),
	)
	a.LogFormat = strings.ToLower(strings.TrimSpace(a.LogFormat))
}

func (f *FeedConfig) applyDefaults(keys keySet) {
	if f == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("feed.max_candles", &f.MaxCandles, defaultFeedMaxCandles),
		intFieldDefault("feed.max_trades", &f.MaxTrades, defaultFeedMaxTrades),
		intFieldDefault("feed.book_depth", &f.BookDepth, defaultFeedBookDepth),
		intFieldDefault("feed.backoff.base_ms", &f.Backoff.BaseMS, defaultBackoffBaseMS),
		intFieldDefault("feed.backoff.max_ms", &f.Backoff.MaxMS, defaultBackoffMaxMS),
		intFieldDefault("feed.backoff.max_retries", &f.Backoff.MaxRetries, defaultBackoffRetries),
	)
	f.WSProxy = strings.TrimSpace(f.WSProxy)
}

func (e *ExchangesConfig) applyDefaults(keys keySet) {
	if e == nil {
		return
	}
	e.Hyperliquid.applyDefaults(keys, "hyperliquid", defaultHyperliquidREST, defaultHyperliquidWS, 0, defaultVenueRateRPS)
	e.DYDX.applyDefaults(keys, "dydx", defaultDYDXREST, defaultDYDXWS, 0, defaultVenueRateRPS)
	e.GMX.applyDefaults(keys, "gmx", defaultGMXREST, "", defaultGMXPollMS, defaultPollerRateRPS)
	e.Lighter.applyDefaults(keys, "lighter", defaultLighterREST, "", defaultLighterPollMS, defaultPollerRateRPS)
	// aster 走 go-binance，无法挂限流器
	e.Aster.applyDefaults(keys, "aster", defaultAsterREST, "", defaultAsterPollMS, 0)
}

func (v *VenueConfig) applyDefaults(keys keySet, name, rest, ws string, pollMS int, rps float64) {
	if v == nil {
		return
	}
	prefix := "exchanges." + name + "."
	defs := []fieldDefault{
		boolFieldDefault(prefix+"enabled", &v.Enabled, true),
		stringFieldDefault(prefix+"rest_url", &v.RESTURL, rest),
		intFieldDefault(prefix+"timeout_ms", &v.TimeoutMS, defaultVenueTimeoutMS),
	}
	if ws != "" {
		defs = append(defs, stringFieldDefault(prefix+"ws_url", &v.WSURL, ws))
	}
	if pollMS > 0 {
		defs = append(defs, intFieldDefault(prefix+"poll_interval_ms", &v.PollIntervalMS, pollMS))
	}
	if rps > 0 {
		defs = append(defs, floatFieldDefault(prefix+"rate_limit_rps", &v.RateLimitRPS, rps))
	}
	applyFieldDefaults(keys, defs...)
	// 密钥通常写成 ${ENV_VAR}
	v.APIKey = os.ExpandEnv(v.APIKey)
	v.APISecret = os.ExpandEnv(v.APISecret)
	v.normalize()
}

func (p *PortfolioConfig) applyDefaults(keys keySet) {
	if p == nil {
		return
	}
	applyFieldDefaults(keys,
		intFieldDefault("portfolio.timeout_ms", &p.TimeoutMS, defaultPortfolioTimeoutMS),
		intFieldDefault("portfolio.breaker_threshold", &p.BreakerThreshold, defaultBreakerThreshold),
		intFieldDefault("portfolio.breaker_cooldown_ms", &p.BreakerCooldownMS, defaultBreakerCooldownMS),
	)
}

// 辅助函数

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func intFieldDefault(key string, target *int, def int) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target <= 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func boolFieldDefault(key string, target *bool, def bool) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

package config

import (
	"strings"
	"time"
)

// Config 汇总 perpdesk 的全部配置段。
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Exchanges ExchangesConfig `mapstructure:"exchanges"`
	Portfolio PortfolioConfig `mapstructure:"portfolio"`
	Signer    SignerConfig    `mapstructure:"signer"`
	Journal   JournalConfig   `mapstructure:"journal"`
}

type AppConfig struct {
	Env       string `mapstructure:"env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
	HTTPAddr  string `mapstructure:"http_addr"`
	LogPath   string `mapstructure:"log_path"`
	// log_path 按大小滚动，旧文件压缩保留 LogMaxAgeDays 天。
	LogMaxSizeMB  int `mapstructure:"log_max_size_mb"`
	LogMaxAgeDays int `mapstructure:"log_max_age_days"`
}

// FeedConfig 控制行情会话的容量与重连策略。
type FeedConfig struct {
	MaxCandles int           `mapstructure:"max_candles"`
	MaxTrades  int           `mapstructure:"max_trades"`
	BookDepth  int           `mapstructure:"book_depth"`
	WSProxy    string        `mapstructure:"ws_proxy"`
	Backoff    BackoffConfig `mapstructure:"backoff"`
}

type BackoffConfig struct {
	BaseMS     int `mapstructure:"base_ms"`
	MaxMS      int `mapstructure:"max_ms"`
	MaxRetries int `mapstructure:"max_retries"`
}

func (b BackoffConfig) Base() time.Duration {
	return time.Duration(b.BaseMS) * time.Millisecond
}

func (b BackoffConfig) Max() time.Duration {
	return time.Duration(b.MaxMS) * time.Millisecond
}

type ExchangesConfig struct {
	Hyperliquid VenueConfig `mapstructure:"hyperliquid"`
	DYDX        VenueConfig `mapstructure:"dydx"`
	GMX         VenueConfig `mapstructure:"gmx"`
	Lighter     VenueConfig `mapstructure:"lighter"`
	Aster       VenueConfig `mapstructure:"aster"`
}

// Venue 按交易所名（不区分大小写）返回对应配置段。
func (e ExchangesConfig) Venue(name string) (VenueConfig, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "hyperliquid":
		return e.Hyperliquid, true
	case "dydx":
		return e.DYDX, true
	case "gmx":
		return e.GMX, true
	case "lighter":
		return e.Lighter, true
	case "aster":
		return e.Aster, true
	}
	return VenueConfig{}, false
}

// VenueConfig 描述单个交易所的接入参数。
type VenueConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RESTURL        string `mapstructure:"rest_url"`
	WSURL          string `mapstructure:"ws_url"`
	GraphQLURL     string `mapstructure:"graphql_url"`
	PollIntervalMS int    `mapstructure:"poll_interval_ms"`
	TimeoutMS      int    `mapstructure:"timeout_ms"`
	APIKey         string `mapstructure:"api_key"`
	APISecret      string `mapstructure:"api_secret"`
	Testnet        bool   `mapstructure:"testnet"`
	// RateLimitRPS 限制 REST 请求速率，0 表示不限流。
	RateLimitRPS float64 `mapstructure:"rate_limit_rps"`
}

func (v VenueConfig) PollInterval() time.Duration {
	return time.Duration(v.PollIntervalMS) * time.Millisecond
}

func (v VenueConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutMS) * time.Millisecond
}

func (v *VenueConfig) normalize() {
	if v == nil {
		return
	}
	v.RESTURL = strings.TrimRight(strings.TrimSpace(v.RESTURL), "/")
	v.WSURL = strings.TrimSpace(v.WSURL)
	v.GraphQLURL = strings.TrimSpace(v.GraphQLURL)
	v.APIKey = strings.TrimSpace(v.APIKey)
	v.APISecret = strings.TrimSpace(v.APISecret)
}

// PortfolioConfig 控制跨交易所持仓聚合。
type PortfolioConfig struct {
	TimeoutMS         int `mapstructure:"timeout_ms"`
	BreakerThreshold  int `mapstructure:"breaker_threshold"`
	BreakerCooldownMS int `mapstructure:"breaker_cooldown_ms"`
}

func (p PortfolioConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutMS) * time.Millisecond
}

func (p PortfolioConfig) BreakerCooldown() time.Duration {
	return time.Duration(p.BreakerCooldownMS) * time.Millisecond
}

// SignerConfig 只记录存放私钥的环境变量名，私钥本身不写入配置文件。
type SignerConfig struct {
	PrivateKeyEnv string `mapstructure:"private_key_env"`
}

type JournalConfig struct {
	Path string `mapstructure:"path"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}

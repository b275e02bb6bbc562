package aster

import (
	"strings"
	"time"
)

const (
	DefaultRESTURL      = "https://fapi.asterdex.com"
	DefaultPollInterval = 5 * time.Second
)

type Config struct {
	RESTURL      string
	APIKey       string
	APISecret    string
	HTTPTimeout  time.Duration
	PollInterval time.Duration
	ProxyURL     string
}

func (c *Config) withDefaults() Config {
	out := *c
	out.RESTURL = strings.TrimSpace(out.RESTURL)
	if out.RESTURL == "" {
		out.RESTURL = DefaultRESTURL
	}
	if out.HTTPTimeout <= 0 {
		out.HTTPTimeout = 15 * time.Second
	}
	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}
	out.APIKey = strings.TrimSpace(out.APIKey)
	out.APISecret = strings.TrimSpace(out.APISecret)
	out.ProxyURL = strings.TrimSpace(out.ProxyURL)
	return out
}

// Authenticated reports whether signed endpoints (positions, orders) are
// usable.
func (c Config) Authenticated() bool {
	return c.APIKey != "" && c.APISecret != ""
}

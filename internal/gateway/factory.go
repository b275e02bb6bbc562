// Package gateway builds the fixed venue registry from config: the market
// data transport, the position adapter and the order placer of every
// enabled exchange.
package gateway

import (
	"fmt"

	"perpdesk/internal/config"
	"perpdesk/internal/gateway/aster"
	"perpdesk/internal/gateway/dydx"
	"perpdesk/internal/gateway/gmx"
	"perpdesk/internal/gateway/hyperliquid"
	"perpdesk/internal/gateway/lighter"
	"perpdesk/internal/logger"
	"perpdesk/internal/market"
	"perpdesk/internal/portfolio"
	"perpdesk/internal/router"
	"perpdesk/internal/signer"
)

// Registry maps venue names to their components. It is built once and
// never mutated, so lookups need no locking.
type Registry struct {
	streams  map[market.Exchange]market.StreamProtocol
	pollers  map[market.Exchange]market.PollSource
	adapters []portfolio.Adapter
	placers  map[market.Exchange]router.Placer
}

// NewRegistry wires every enabled venue. s may be nil; signed venues then
// answer orders with "signer not configured".
func NewRegistry(cfg *config.Config, s signer.Signer) (*Registry, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	r := &Registry{
		streams: make(map[market.Exchange]market.StreamProtocol),
		pollers: make(map[market.Exchange]market.PollSource),
		placers: make(map[market.Exchange]router.Placer),
	}
	ex := cfg.Exchanges

	// Registry order is the order aggregated positions are reported in.
	if v := ex.Hyperliquid; v.Enabled {
		c := hyperliquid.New(hyperliquid.Config{RESTURL: v.RESTURL, WSURL: v.WSURL, Timeout: v.Timeout(), Testnet: v.Testnet, RateLimit: v.RateLimitRPS})
		r.streams[market.Hyperliquid] = c.Stream()
		r.adapters = append(r.adapters, c.Account())
		r.placers[market.Hyperliquid] = c.Placer(s)
	}
	if v := ex.DYDX; v.Enabled {
		c := dydx.New(dydx.Config{RESTURL: v.RESTURL, WSURL: v.WSURL, Timeout: v.Timeout(), RateLimit: v.RateLimitRPS})
		r.streams[market.DYDX] = c.Stream()
		r.adapters = append(r.adapters, c.Account())
		r.placers[market.DYDX] = router.Unsupported{
			Exchange: market.DYDX,
			Reason:   "dydx orders are signed Cosmos transactions; place them from a dYdX wallet",
		}
	}
	if v := ex.GMX; v.Enabled {
		c := gmx.New(gmx.Config{RESTURL: v.RESTURL, GraphQLURL: v.GraphQLURL, PollInterval: v.PollInterval(), Timeout: v.Timeout(), RateLimit: v.RateLimitRPS})
		r.pollers[market.GMX] = c.Source()
		if v.GraphQLURL != "" {
			r.adapters = append(r.adapters, c.Account())
		} else {
			logger.Warnf("[gateway] gmx graphql_url not set, positions disabled")
		}
		r.placers[market.GMX] = router.Unsupported{
			Exchange: market.GMX,
			Reason:   "gmx orders are on-chain ExchangeRouter calls; place them from a wallet",
		}
	}
	if v := ex.Lighter; v.Enabled {
		c := lighter.New(lighter.Config{RESTURL: v.RESTURL, PollInterval: v.PollInterval(), Timeout: v.Timeout(), RateLimit: v.RateLimitRPS})
		r.pollers[market.Lighter] = c.Source()
		r.adapters = append(r.adapters, c.Account())
		r.placers[market.Lighter] = router.Unsupported{
			Exchange: market.Lighter,
			Reason:   "lighter orders need an API key registered on the zk rollup",
		}
	}
	if v := ex.Aster; v.Enabled {
		c, err := aster.New(aster.Config{
			RESTURL:      v.RESTURL,
			APIKey:       v.APIKey,
			APISecret:    v.APISecret,
			HTTPTimeout:  v.Timeout(),
			PollInterval: v.PollInterval(),
			ProxyURL:     cfg.Feed.WSProxy,
		})
		if err != nil {
			return nil, fmt.Errorf("aster: %w", err)
		}
		r.pollers[market.Aster] = c.Source()
		if c.Config().Authenticated() {
			r.adapters = append(r.adapters, c.Account())
		}
		r.placers[market.Aster] = c.Placer()
	}
	logger.Infof("[gateway] venues: streams=%d pollers=%d adapters=%d placers=%d",
		len(r.streams), len(r.pollers), len(r.adapters), len(r.placers))
	return r, nil
}

func (r *Registry) StreamProtocol(ex market.Exchange) (market.StreamProtocol, bool) {
	p, ok := r.streams[ex]
	return p, ok
}

func (r *Registry) PollSource(ex market.Exchange) (market.PollSource, bool) {
	p, ok := r.pollers[ex]
	return p, ok
}

// Adapters returns the position adapters in registry order.
func (r *Registry) Adapters() []portfolio.Adapter {
	out := make([]portfolio.Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

func (r *Registry) Placers() map[market.Exchange]router.Placer {
	out := make(map[market.Exchange]router.Placer, len(r.placers))
	for k, v := range r.placers {
		out[k] = v
	}
	return out
}

// Enabled lists the venues with a market-data source.
func (r *Registry) Enabled() []market.Exchange {
	var out []market.Exchange
	for _, ex := range market.Exchanges {
		if _, ok := r.streams[ex]; ok {
			out = append(out, ex)
			continue
		}
		if _, ok := r.pollers[ex]; ok {
			out = append(out, ex)
		}
	}
	return out
}

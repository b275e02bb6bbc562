package app

import (
	"fmt"
	"strings"

	"perpdesk/internal/config"
	"perpdesk/internal/gateway"
	"perpdesk/internal/market"
	"perpdesk/internal/portfolio"
	"perpdesk/internal/signer"
	"perpdesk/internal/store"
	"perpdesk/internal/store/sqlite"
)

type StartupSummary struct {
	HTTPAddr  string
	Venues    []VenueSummary
	Signer    string
	Journal   string
	Feed      FeedSummary
	Portfolio PortfolioSummary
}

type VenueSummary struct {
	Exchange  market.Exchange
	Transport string
	Endpoint  string
	Positions bool
}

type FeedSummary struct {
	MaxCandles int
	MaxTrades  int
	BookDepth  int
	MaxRetries int
}

type PortfolioSummary struct {
	TimeoutMS        int
	BreakerThreshold int
}

func buildSummary(cfg *config.Config, reg *gateway.Registry, agg *portfolio.Aggregator, sig signer.Signer, journal store.Journal) *StartupSummary {
	s := &StartupSummary{
		HTTPAddr: cfg.App.HTTPAddr,
		Signer:   "-",
		Journal:  "memory",
		Feed: FeedSummary{
			MaxCandles: cfg.Feed.MaxCandles,
			MaxTrades:  cfg.Feed.MaxTrades,
			BookDepth:  cfg.Feed.BookDepth,
			MaxRetries: cfg.Feed.Backoff.MaxRetries,
		},
		Portfolio: PortfolioSummary{
			TimeoutMS:        cfg.Portfolio.TimeoutMS,
			BreakerThreshold: cfg.Portfolio.BreakerThreshold,
		},
	}
	if sig != nil {
		s.Signer = sig.Address()
	}
	if _, ok := journal.(*sqlite.JournalStore); ok {
		s.Journal = cfg.Journal.Path
	}
	positions := make(map[market.Exchange]bool)
	for _, ad := range agg.Adapters() {
		positions[ad.Name()] = true
	}
	for _, ex := range reg.Enabled() {
		venue, _ := cfg.Exchanges.Venue(string(ex))
		v := VenueSummary{Exchange: ex, Positions: positions[ex]}
		if _, ok := reg.StreamProtocol(ex); ok {
			v.Transport = "websocket"
			v.Endpoint = venue.WSURL
		} else {
			v.Transport = fmt.Sprintf("poll %s", venue.PollInterval())
			v.Endpoint = venue.RESTURL
		}
		s.Venues = append(s.Venues, v)
	}
	return s
}

func (s *StartupSummary) Print() {
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%*s\n", 40+len("启动配置摘要 (STARTUP SUMMARY)")/2, "启动配置摘要 (STARTUP SUMMARY)")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("[交易所 (VENUES)]")
	if len(s.Venues) == 0 {
		fmt.Println("  (无配置)")
	}
	for _, v := range s.Venues {
		fmt.Printf("  > %-12s %-14s positions=%-5t %s\n", v.Exchange, v.Transport, v.Positions, v.Endpoint)
	}
	fmt.Println()

	fmt.Println("[行情会话 (FEED)]")
	fmt.Printf("  K线缓存: %d  成交缓存: %d  盘口深度: %d  最大重连: %d\n",
		s.Feed.MaxCandles, s.Feed.MaxTrades, s.Feed.BookDepth, s.Feed.MaxRetries)
	fmt.Println()

	fmt.Println("[持仓聚合 (PORTFOLIO)]")
	fmt.Printf("  超时: %dms  熔断阈值: %d\n", s.Portfolio.TimeoutMS, s.Portfolio.BreakerThreshold)
	fmt.Println()

	fmt.Println("[下单 (ORDERS)]")
	fmt.Printf("  签名地址: %s\n", s.Signer)
	fmt.Printf("  订单日志: %s\n", s.Journal)
	fmt.Printf("  HTTP: %s\n", s.HTTPAddr)
	fmt.Println(strings.Repeat("=", 80))
}

package app

import (
	"context"
	"errors"
	"fmt"

	"perpdesk/internal/config"
	"perpdesk/internal/feed"
	"perpdesk/internal/gateway"
	"perpdesk/internal/logger"
	"perpdesk/internal/portfolio"
	"perpdesk/internal/router"
	"perpdesk/internal/signer"
	"perpdesk/internal/store"
	apihttp "perpdesk/internal/transport/http/api"
)

type AppBuilder struct {
	cfg        *config.Config
	configPath string

	signerFn   func(config.SignerConfig) (signer.Signer, error)
	registryFn func(*config.Config, signer.Signer) (*gateway.Registry, error)
	journalFn  func(config.JournalConfig) (store.Journal, error)
	httpFn     func(apihttp.ServerConfig) (*apihttp.Server, error)
}

type AppBuilderOption func(*AppBuilder)

// WithJournal 替换配置中的订单日志，主要用于测试。
func WithJournal(j store.Journal) AppBuilderOption {
	return func(b *AppBuilder) {
		b.journalFn = func(config.JournalConfig) (store.Journal, error) { return j, nil }
	}
}

func WithSigner(s signer.Signer) AppBuilderOption {
	return func(b *AppBuilder) {
		b.signerFn = func(config.SignerConfig) (signer.Signer, error) { return s, nil }
	}
}

func NewAppBuilder(cfg *config.Config, configPath string, opts ...AppBuilderOption) *AppBuilder {
	b := &AppBuilder{
		cfg:        cfg,
		configPath: configPath,
		signerFn:   loadSigner,
		registryFn: gateway.NewRegistry,
		journalFn:  openJournal,
		httpFn:     buildHTTPServer,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

func (b *AppBuilder) Build(ctx context.Context) (*App, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if b.cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	cfg := b.cfg

	sig, err := b.signerFn(cfg.Signer)
	if err != nil {
		return nil, err
	}
	registry, err := b.registryFn(cfg, sig)
	if err != nil {
		return nil, fmt.Errorf("build venue registry: %w", err)
	}

	manager := feed.NewManager(registry, feed.Options{
		Limits: feed.Limits{
			MaxCandles: cfg.Feed.MaxCandles,
			MaxTrades:  cfg.Feed.MaxTrades,
			BookDepth:  cfg.Feed.BookDepth,
		},
		Backoff: feed.Backoff{
			Base:       cfg.Feed.Backoff.Base(),
			Max:        cfg.Feed.Backoff.Max(),
			MaxRetries: cfg.Feed.Backoff.MaxRetries,
		},
	})

	aggregator := portfolio.NewAggregator(registry.Adapters(), portfolio.Options{
		Timeout:          cfg.Portfolio.Timeout(),
		BreakerThreshold: cfg.Portfolio.BreakerThreshold,
		BreakerCooldown:  cfg.Portfolio.BreakerCooldown(),
	})
	refresher := portfolio.NewRefresher(aggregator)

	journal, err := b.journalFn(cfg.Journal)
	if err != nil {
		manager.Close()
		return nil, err
	}
	orders := router.New(registry.Placers(), journal)

	server, err := b.httpFn(apihttp.ServerConfig{
		Addr:      cfg.App.HTTPAddr,
		Feed:      manager,
		Portfolio: aggregator,
		Refresher: refresher,
		Orders:    orders,
		Journal:   journal,
		Venues:    venueInfos(registry, aggregator, orders),
	})
	if err != nil {
		manager.Close()
		_ = journal.Close()
		return nil, err
	}

	return &App{
		cfg:        cfg,
		configPath: b.configPath,
		registry:   registry,
		feed:       manager,
		portfolio:  aggregator,
		refresher:  refresher,
		orders:     orders,
		journal:    journal,
		http:       server,
		Summary:    buildSummary(cfg, registry, aggregator, sig, journal),
	}, nil
}

// loadSigner 返回 nil signer 表示只读模式：签名类交易所下单会返回 "signer not configured"。
func loadSigner(cfg config.SignerConfig) (signer.Signer, error) {
	s, err := signer.FromEnv(cfg.PrivateKeyEnv)
	if errors.Is(err, signer.ErrNotConfigured) {
		logger.Warnf("signer: %s not set, order placement on signed venues disabled", cfg.PrivateKeyEnv)
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load signer from %s: %w", cfg.PrivateKeyEnv, err)
	}
	logger.Infof("✓ signer loaded: %s", s.Address())
	return s, nil
}

package app

import (
	"context"
	"fmt"

	"perpdesk/internal/config"
	"perpdesk/internal/feed"
	"perpdesk/internal/gateway"
	"perpdesk/internal/logger"
	"perpdesk/internal/portfolio"
	"perpdesk/internal/router"
	"perpdesk/internal/store"
	apihttp "perpdesk/internal/transport/http/api"

	"golang.org/x/sync/errgroup"
)

// App 负责应用级编排：加载配置→初始化依赖→启动 HTTP 与热更新。
type App struct {
	cfg        *config.Config
	configPath string

	registry  *gateway.Registry
	feed      *feed.Manager
	portfolio *portfolio.Aggregator
	refresher *portfolio.Refresher
	orders    *router.Router
	journal   store.Journal
	http      *apihttp.Server

	Summary *StartupSummary
}

// NewApp 根据配置构建应用对象（不启动）。configPath 用于日志级别热更新，可为空。
func NewApp(cfg *config.Config, configPath string) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.SetFormat(cfg.App.LogFormat)
	return buildAppWithWire(context.Background(), cfg, configPath)
}

// Run 启动 HTTP 服务，直到 ctx 取消；退出时关闭行情会话与订单日志。
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.cfg == nil {
		return fmt.Errorf("app not initialized")
	}
	if a.Summary != nil {
		a.Summary.Print()
	}
	defer a.Close()

	if a.configPath != "" {
		if err := config.WatchLevel(a.configPath); err != nil {
			logger.Warnf("config watch disabled: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	if a.http != nil {
		group.Go(func() error {
			if err := a.http.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		<-ctx.Done()
		logger.Infof("shutting down")
		return nil
	})
	return group.Wait()
}

// Close 关闭所有行情会话并释放订单日志。
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.feed != nil {
		a.feed.Close()
	}
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			logger.Warnf("journal close: %v", err)
		}
	}
}

func (a *App) Registry() *gateway.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *App) Router() *router.Router {
	if a == nil {
		return nil
	}
	return a.orders
}

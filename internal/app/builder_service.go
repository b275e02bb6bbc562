package app

import (
	"fmt"
	"strings"

	"perpdesk/internal/config"
	"perpdesk/internal/gateway"
	"perpdesk/internal/logger"
	"perpdesk/internal/market"
	"perpdesk/internal/portfolio"
	"perpdesk/internal/router"
	"perpdesk/internal/store"
	"perpdesk/internal/store/sqlite"
	apihttp "perpdesk/internal/transport/http/api"
)

const memoryJournalSize = 1000

// openJournal 打开 sqlite 订单日志；路径为空时退回内存日志。
func openJournal(cfg config.JournalConfig) (store.Journal, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		logger.Infof("journal: path empty, keeping the last %d entries in memory", memoryJournalSize)
		return store.NewMemoryJournal(memoryJournalSize), nil
	}
	js, err := sqlite.NewJournalStore(path)
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", path, err)
	}
	logger.Infof("✓ journal: %s", path)
	return js, nil
}

func buildHTTPServer(cfg apihttp.ServerConfig) (*apihttp.Server, error) {
	server, err := apihttp.NewServer(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化 HTTP 失败: %w", err)
	}
	logger.Infof("✓ HTTP 接口监听 %s", server.Addr())
	return server, nil
}

func venueInfos(reg *gateway.Registry, agg *portfolio.Aggregator, orders *router.Router) []apihttp.VenueInfo {
	withPositions := make(map[market.Exchange]bool)
	for _, ad := range agg.Adapters() {
		withPositions[ad.Name()] = true
	}
	enabled := make(map[market.Exchange]bool)
	for _, ex := range reg.Enabled() {
		enabled[ex] = true
	}
	var out []apihttp.VenueInfo
	for _, ex := range market.Exchanges {
		info := apihttp.VenueInfo{
			Exchange:  ex,
			Market:    enabled[ex],
			Positions: withPositions[ex],
			Orders:    orders.Supports(ex),
		}
		if info.Market || info.Positions || info.Orders {
			out = append(out, info)
		}
	}
	return out
}

package apihttp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"perpdesk/internal/feed"
	"perpdesk/internal/logger"
	"perpdesk/internal/market"
	"perpdesk/internal/portfolio"
	"perpdesk/internal/router"
	"perpdesk/internal/store"

	"github.com/gin-gonic/gin"
)

// MarketFeed 是 API 用到的 feed.Manager 子集。
type MarketFeed interface {
	Subscribe(key market.Key) (*feed.Session, error)
	Session(ex market.Exchange) (*feed.Session, bool)
	Unsubscribe(ex market.Exchange) bool
}

type Aggregator interface {
	FetchAllPositions(ctx context.Context, address string) []portfolio.UserPosition
	FetchAllOpenOrders(ctx context.Context, address string) []portfolio.OpenOrder
	FetchAllFills(ctx context.Context, address string) []portfolio.Fill
}

// Refresher 驱动被监控钱包的持仓聚合刷新。
type Refresher interface {
	Address() string
	Counter() uint64
	Current() portfolio.Result
	SetAddress(ctx context.Context, address string) portfolio.Result
	Refresh(ctx context.Context) portfolio.Result
}

type OrderRouter interface {
	Supports(ex market.Exchange) bool
	Place(ctx context.Context, req router.UnifiedOrderRequest) router.OrderResult
	Cancel(ctx context.Context, req router.CancelRequest) router.OrderResult
}

type JournalReader interface {
	ListRecent(ctx context.Context, ex market.Exchange, limit int) ([]store.JournalRecord, error)
}

// VenueInfo 描述一个已配置的交易所，供 GET /api/exchanges 返回。
type VenueInfo struct {
	Exchange  market.Exchange `json:"exchange"`
	Market    bool            `json:"market"`
	Positions bool            `json:"positions"`
	Orders    bool            `json:"orders"`
}

const maxBodyBytes = 64 << 10

// Router 注册 /api 下的全部接口。
type Router struct {
	feed      MarketFeed
	portfolio Aggregator
	refresher Refresher
	orders    OrderRouter
	journal   JournalReader
	venues    []VenueInfo
	schemas   *Schemas
}

func NewRouter(cfg ServerConfig, schemas *Schemas) *Router {
	return &Router{
		feed:      cfg.Feed,
		portfolio: cfg.Portfolio,
		refresher: cfg.Refresher,
		orders:    cfg.Orders,
		journal:   cfg.Journal,
		venues:    cfg.Venues,
		schemas:   schemas,
	}
}

func (r *Router) Register(g *gin.RouterGroup) {
	g.GET("/exchanges", r.handleExchanges)

	g.GET("/markets/:exchange/:symbol", r.handleMarket)
	g.POST("/markets/:exchange/reconnect", r.handleReconnect)
	g.DELETE("/markets/:exchange", r.handleUnsubscribe)

	g.GET("/portfolio/current", r.handleCurrent)
	g.POST("/portfolio/:address/refresh", r.handleRefresh)
	g.GET("/portfolio/:address/positions", r.handlePositions)
	g.GET("/portfolio/:address/orders", r.handleOpenOrders)
	g.GET("/portfolio/:address/fills", r.handleFills)

	g.POST("/orders", r.handlePlace)
	g.POST("/orders/cancel", r.handleCancel)
	g.GET("/orders/journal", r.handleJournal)
}

func (r *Router) handleExchanges(c *gin.Context) {
	venues := r.venues
	if venues == nil {
		venues = []VenueInfo{}
	}
	c.JSON(http.StatusOK, gin.H{"exchanges": venues})
}

func (r *Router) handleMarket(c *gin.Context) {
	ex, ok := exchangeParam(c)
	if !ok {
		return
	}
	key := market.Key{Exchange: ex, Symbol: c.Param("symbol"), Interval: c.Query("interval")}
	sess, err := r.feed.Subscribe(key)
	if err != nil {
		switch {
		case errors.Is(err, feed.ErrUnknownExchange):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, feed.ErrSessionClosed):
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

func (r *Router) handleReconnect(c *gin.Context) {
	ex, ok := exchangeParam(c)
	if !ok {
		return
	}
	sess, ok := r.feed.Session(ex)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no live session for " + string(ex)})
		return
	}
	if err := sess.Reconnect(); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	logger.Infof("[http] manual reconnect %s", sess.Key())
	c.JSON(http.StatusAccepted, gin.H{"status": "reconnecting", "key": sess.Key()})
}

func (r *Router) handleUnsubscribe(c *gin.Context) {
	ex, ok := exchangeParam(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"unsubscribed": r.feed.Unsubscribe(ex)})
}

func (r *Router) handleCurrent(c *gin.Context) {
	if r.refresher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio refresher disabled"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"counter": r.refresher.Counter(),
		"result":  r.refresher.Current(),
	})
}

// handleRefresh 切换地址时拉取新数据，地址相同则强制刷新。
func (r *Router) handleRefresh(c *gin.Context) {
	if r.refresher == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "portfolio refresher disabled"})
		return
	}
	address := strings.TrimSpace(c.Param("address"))
	var res portfolio.Result
	if address == r.refresher.Address() {
		res = r.refresher.Refresh(c.Request.Context())
	} else {
		res = r.refresher.SetAddress(c.Request.Context(), address)
	}
	c.JSON(http.StatusOK, gin.H{"counter": r.refresher.Counter(), "result": res})
}

func (r *Router) handlePositions(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	list := r.portfolio.FetchAllPositions(c.Request.Context(), address)
	if list == nil {
		list = []portfolio.UserPosition{}
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "positions": list})
}

func (r *Router) handleOpenOrders(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	list := r.portfolio.FetchAllOpenOrders(c.Request.Context(), address)
	if list == nil {
		list = []portfolio.OpenOrder{}
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "orders": list})
}

func (r *Router) handleFills(c *gin.Context) {
	address := strings.TrimSpace(c.Param("address"))
	list := r.portfolio.FetchAllFills(c.Request.Context(), address)
	if list == nil {
		list = []portfolio.Fill{}
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "fills": list})
}

func (r *Router) handlePlace(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var req router.UnifiedOrderRequest
	if err := decodeValidated(r.schemas.Order, body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !r.orders.Supports(req.Exchange) {
		c.JSON(http.StatusNotFound, gin.H{"error": "exchange not enabled: " + string(req.Exchange)})
		return
	}
	c.JSON(http.StatusOK, r.orders.Place(c.Request.Context(), req))
}

func (r *Router) handleCancel(c *gin.Context) {
	body, ok := readBody(c)
	if !ok {
		return
	}
	var req router.CancelRequest
	if err := decodeValidated(r.schemas.Cancel, body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !r.orders.Supports(req.Exchange) {
		c.JSON(http.StatusNotFound, gin.H{"error": "exchange not enabled: " + string(req.Exchange)})
		return
	}
	c.JSON(http.StatusOK, r.orders.Cancel(c.Request.Context(), req))
}

func (r *Router) handleJournal(c *gin.Context) {
	if r.journal == nil {
		c.JSON(http.StatusOK, gin.H{"records": []store.JournalRecord{}})
		return
	}
	var ex market.Exchange
	if raw := strings.TrimSpace(c.Query("exchange")); raw != "" {
		parsed, ok := market.ParseExchange(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown exchange " + raw})
			return
		}
		ex = parsed
	}
	limit := 0
	if raw := strings.TrimSpace(c.Query("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	records, err := r.journal.ListRecent(c.Request.Context(), ex, store.ClampLimit(limit))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if records == nil {
		records = []store.JournalRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"records": records})
}

func exchangeParam(c *gin.Context) (market.Exchange, bool) {
	raw := c.Param("exchange")
	ex, ok := market.ParseExchange(raw)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown exchange " + raw})
		return "", false
	}
	return ex, true
}

func readBody(c *gin.Context) ([]byte, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	return body, true
}

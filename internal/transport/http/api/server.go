// Package apihttp 提供给 UI 进程调用的本地 HTTP API。
package apihttp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"perpdesk/internal/logger"

	"github.com/gin-gonic/gin"
)

// Server 提供 /api 行情、持仓与下单接口。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述 HTTP 服务依赖。
type ServerConfig struct {
	Addr      string
	Feed      MarketFeed
	Portfolio Aggregator
	Refresher Refresher
	Orders    OrderRouter
	Journal   JournalReader
	Venues    []VenueInfo
}

// NewServer 构建 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Feed == nil || cfg.Portfolio == nil || cfg.Orders == nil {
		return nil, errors.New("http server requires feed, portfolio and orders")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":9991"
	}
	schemas, err := LoadSchemas()
	if err != nil {
		return nil, err
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	api := NewRouter(cfg, schemas)
	api.Register(router.Group("/api"))

	return &Server{addr: cfg.Addr, router: router}, nil
}

// Handler 暴露 gin 引擎，主要用于测试。
func (s *Server) Handler() http.Handler {
	return s.router
}

// requestLogger 记录接口调用，便于追踪刷新与下单。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("[http] listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

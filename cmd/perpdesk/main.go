package main

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"perpdesk/internal/app"
	"perpdesk/internal/config"
	"perpdesk/internal/logger"

	"github.com/joho/godotenv"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// .env 中通常放私钥与 API secret
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("读取 .env 失败: %v", err)
	}

	cfgPath := config.ResolvePath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetFormat(cfg.App.LogFormat)
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s，配置=%s）", cfg.App.Env, cfgPath)

	application, err := app.NewApp(cfg, cfgPath)
	if err != nil {
		log.Fatalf("初始化应用失败: %v", err)
	}
	if err := application.Run(ctx); err != nil {
		log.Fatalf("运行失败: %v", err)
	}
}

func setupLogOutput(cfg config.AppConfig) (io.Closer, error) {
	trimmed := strings.TrimSpace(cfg.LogPath)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	rotating := &lumberjack.Logger{
		Filename: trimmed,
		MaxSize:  cfg.LogMaxSizeMB,
		MaxAge:   cfg.LogMaxAgeDays,
		Compress: true,
	}
	mw := io.MultiWriter(os.Stdout, rotating)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return rotating, nil
}

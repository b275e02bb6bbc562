package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"log/slog"
)

var (
	levelVar   slog.LevelVar
	loggerMu   sync.RWMutex
	baseLogger *slog.Logger
	output     io.Writer = os.Stdout
	jsonFormat bool
)

func init() {
	levelVar.Set(slog.LevelInfo)
	baseLogger = newLogger(os.Stdout, false)
}

func newLogger(w io.Writer, asJSON bool) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: &levelVar}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// SetOutput 切换日志输出目标，保留当前格式。
func SetOutput(w io.Writer) {
	loggerMu.Lock()
	if w == nil {
		w = os.Stdout
	}
	output = w
	baseLogger = newLogger(output, jsonFormat)
	loggerMu.Unlock()
}

// SetFormat 支持 "json" 与 "text"，其他值回退为 text。
func SetFormat(format string) {
	loggerMu.Lock()
	jsonFormat = strings.EqualFold(strings.TrimSpace(format), "json")
	baseLogger = newLogger(output, jsonFormat)
	loggerMu.Unlock()
}

func SetLevel(level string) {
	levelVar.Set(ParseLevel(level))
}

// Level 返回当前生效的日志级别。
func Level() slog.Level {
	return levelVar.Level()
}

func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func activeLogger() *slog.Logger {
	loggerMu.RLock()
	l := baseLogger
	loggerMu.RUnlock()
	if l != nil {
		return l
	}
	loggerMu.Lock()
	defer loggerMu.Unlock()
	if baseLogger == nil {
		baseLogger = newLogger(output, jsonFormat)
	}
	return baseLogger
}

func Debugf(format string, v ...any) {
	activeLogger().Debug(fmt.Sprintf(format, v...))
}

func Infof(format string, v ...any) {
	activeLogger().Info(fmt.Sprintf(format, v...))
}

func Warnf(format string, v ...any) {
	activeLogger().Warn(fmt.Sprintf(format, v...))
}

func Errorf(format string, v ...any) {
	activeLogger().Error(fmt.Sprintf(format, v...))
}

// With 返回带 component 属性的结构化 logger，供按键值对记录日志的调用方使用。
func With(component string) *slog.Logger {
	return activeLogger().With(slog.String("component", component))
}

func InfoBlock(block string) {
	block = strings.TrimSpace(block)
	if block == "" {
		return
	}
	for _, line := range strings.Split(block, "\n") {
		Infof("%s", line)
	}
}

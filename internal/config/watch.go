package config

import (
	"fmt"
	"path/filepath"

	"perpdesk/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch 在根配置文件变化时重新加载并校验，成功后回调 onChange；
// 非法修改只记录日志，旧配置继续生效。
func Watch(path string, onChange func(*Config)) error {
	if onChange == nil {
		return fmt.Errorf("config watch requires a callback")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	v := viper.New()
	v.SetConfigFile(abs)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", abs, err)
	}
	v.OnConfigChange(func(evt fsnotify.Event) {
		if !evt.Has(fsnotify.Write) && !evt.Has(fsnotify.Create) {
			return
		}
		cfg, err := Load(abs)
		if err != nil {
			logger.Errorf("config reload failed: %v", err)
			return
		}
		logger.Infof("config reloaded from %s", abs)
		onChange(cfg)
	})
	v.WatchConfig()
	return nil
}

// WatchLevel 让日志级别跟随 app.log_level 热更新。
func WatchLevel(path string) error {
	return Watch(path, func(cfg *Config) {
		logger.SetLevel(cfg.App.LogLevel)
	})
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath 环境变量可覆盖默认配置路径。
const EnvConfigPath = "PERPDESK_CONFIG"

const DefaultPath = "configs/perpdesk.yaml"

// ResolvePath 返回 $PERPDESK_CONFIG，未设置时返回默认路径。
func ResolvePath() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p
	}
	return DefaultPath
}

// sections 是配置文件允许出现的顶层字段。
var sections = map[string]bool{
	"include":   true,
	"app":       true,
	"feed":      true,
	"exchanges": true,
	"portfolio": true,
	"signer":    true,
	"journal":   true,
}

// venueNames 对应 exchanges.<name> 段，其密钥可由环境变量覆盖。
var venueNames = []string{"hyperliquid", "dydx", "gmx", "lighter", "aster"}

// Load 读取配置文件（含 include），应用默认值并校验。
// include 中的文件先合并，根文件最后合并，因此根文件优先。
func Load(path string) (*Config, error) {
	docs, err := loadDocuments(path)
	if err != nil {
		return nil, err
	}
	v := viper.New()
	v.SetConfigType("yaml")
	for _, doc := range docs {
		if err := v.MergeConfigMap(doc.settings); err != nil {
			return nil, fmt.Errorf("merging config file failed (%s): %w", doc.path, err)
		}
	}
	if err := bindSecretEnv(v); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.applyDefaults(explicitKeys(v))
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// bindSecretEnv 绑定 PERPDESK_<VENUE>_API_KEY / PERPDESK_<VENUE>_API_SECRET，
// 环境变量优先于配置文件。
func bindSecretEnv(v *viper.Viper) error {
	for _, name := range venueNames {
		for _, field := range []string{"api_key", "api_secret"} {
			key := "exchanges." + name + "." + field
			env := "PERPDESK_" + strings.ToUpper(name+"_"+field)
			if err := v.BindEnv(key, env); err != nil {
				return fmt.Errorf("binding %s: %w", env, err)
			}
		}
	}
	return nil
}

// explicitKeys 收集文件或环境变量显式赋值的字段路径。
func explicitKeys(v *viper.Viper) keySet {
	keys := make(keySet)
	for _, k := range v.AllKeys() {
		if v.IsSet(k) {
			keys.mark(k)
		}
	}
	return keys
}

type document struct {
	path     string
	settings map[string]any
}

// includeWalker 深度优先展开 include：被引用文件排在引用者之前，每个文件只读一次。
type includeWalker struct {
	seen   map[string]bool
	active map[string]bool
	docs   []document
}

func loadDocuments(path string) ([]document, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("config path cannot be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	w := &includeWalker{seen: make(map[string]bool), active: make(map[string]bool)}
	if err := w.walk(abs); err != nil {
		return nil, err
	}
	return w.docs, nil
}

func (w *includeWalker) walk(path string) error {
	path = filepath.Clean(path)
	if w.active[path] {
		return fmt.Errorf("include cycle detected: %s", path)
	}
	if w.seen[path] {
		return nil
	}
	w.active[path] = true

	tmp := viper.New()
	tmp.SetConfigFile(path)
	tmp.SetConfigType("yaml")
	if err := tmp.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file failed (%s): %w", path, err)
	}
	settings := tmp.AllSettings()
	for key := range settings {
		if !sections[key] {
			return fmt.Errorf("unknown config section %q in %s", key, path)
		}
	}
	for _, inc := range tmp.GetStringSlice("include") {
		inc = strings.TrimSpace(inc)
		if inc == "" {
			continue
		}
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(path), inc)
		}
		if err := w.walk(inc); err != nil {
			return err
		}
	}
	delete(settings, "include")

	delete(w.active, path)
	w.seen[path] = true
	w.docs = append(w.docs, document{path: path, settings: settings})
	return nil
}

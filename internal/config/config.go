package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/ivanGusef/guardfeed/internal/validation"
)

const (
	SourceGuardian = "guardian"
	SourceRSS      = "rss"
)

type Config struct {
	Source SourceConfig `mapstructure:"source"`
	Cache  CacheConfig  `mapstructure:"cache"`
	Retry  RetryConfig  `mapstructure:"retry"`
	UI     UIConfig     `mapstructure:"ui"`
	Keys   KeyConfig    `mapstructure:"keys"`
	Log    LogConfig    `mapstructure:"log"`
}

type SourceConfig struct {
	Kind        string        `mapstructure:"kind"`
	BaseURL     string        `mapstructure:"base_url"`
	APIKey      string        `mapstructure:"api_key"`
	Query       string        `mapstructure:"query"`
	RSSURL      string        `mapstructure:"rss_url"`
	PageSize    int           `mapstructure:"page_size"`
	HTTPTimeout time.Duration `mapstructure:"http_timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	// AllowPrivate permits localhost and private network endpoints.
	AllowPrivate bool `mapstructure:"allow_private"`
}

type CacheConfig struct {
	// Backend is one of file, bolt or sqlite.
	Backend string        `mapstructure:"backend"`
	Path    string        `mapstructure:"path"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type RetryConfig struct {
	Unit time.Duration `mapstructure:"unit"`
	Cap  int           `mapstructure:"cap"`
}

type UIConfig struct {
	Colors            UIColors `mapstructure:"colors" toml:"colors"`
	PrefetchThreshold int      `mapstructure:"prefetch_threshold" toml:"prefetch_threshold"`
	WordWrapWidth     int      `mapstructure:"word_wrap_width" toml:"word_wrap_width"`
	// Opener launches story links; empty picks the platform default.
	Opener            string   `mapstructure:"opener" toml:"opener"`
}

type UIColors struct {
	Primary   string `mapstructure:"primary" toml:"primary"`
	Secondary string `mapstructure:"secondary" toml:"secondary"`
	Accent    string `mapstructure:"accent" toml:"accent"`
	Text      string `mapstructure:"text" toml:"text"`
	Muted     string `mapstructure:"muted" toml:"muted"`
	Error     string `mapstructure:"error" toml:"error"`
	Success   string `mapstructure:"success" toml:"success"`
}

type KeyConfig struct {
	Modifier string      `mapstructure:"modifier" toml:"modifier"`
	Bindings KeyBindings `mapstructure:"bindings" toml:"bindings"`
}

type KeyBindings struct {
	Quit       string `mapstructure:"quit" toml:"quit"`
	Search     string `mapstructure:"search" toml:"search"`
	ClearCache string `mapstructure:"clear_cache" toml:"clear_cache"`
	Open       string `mapstructure:"open" toml:"open"`
	Top        string `mapstructure:"top" toml:"top"`
	Bottom     string `mapstructure:"bottom" toml:"bottom"`
	Back       string `mapstructure:"back" toml:"back"`
	Help       string `mapstructure:"help" toml:"help"`
}

type LogConfig struct {
	Level string `mapstructure:"level" toml:"level"`
	File  string `mapstructure:"file" toml:"file"`
}

func defaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()

	return &Config{
		Source: SourceConfig{
			Kind:        SourceGuardian,
			BaseURL:     "https://content.guardianapis.com",
			APIKey:      "test",
			Query:       "football",
			RSSURL:      "https://www.theguardian.com/football/rss",
			PageSize:    5,
			HTTPTimeout: 30 * time.Second,
			UserAgent:   "guardfeed/1.0 (+https://github.com/ivanGusef/guardfeed)",
		},
		Cache: CacheConfig{
			Backend: "file",
			Path:    filepath.Join(homeDir, ".guardfeed", "cache"),
			Timeout: 1 * time.Second,
		},
		Retry: RetryConfig{
			Unit: 1 * time.Second,
			Cap:  3,
		},
		UI: UIConfig{
			Colors: UIColors{
				Primary:   "#052962",
				Secondary: "#FFE500",
				Accent:    "#C70000",
				Text:      "#EAEAEA",
				Muted:     "#94A3B8",
				Error:     "#F87171",
				Success:   "#4ADE80",
			},
			PrefetchThreshold: 3,
			WordWrapWidth:     100,
		},
		Keys: KeyConfig{
			Modifier: "ctrl",
			Bindings: KeyBindings{
				Quit:       "q",
				Search:     "s",
				ClearCache: "x",
				Open:       "o",
				Top:        "g",
				Bottom:     "G",
				Back:       "esc",
				Help:       "?",
			},
		},
		Log: LogConfig{
			Level: "off",
		},
	}
}

// Default returns a fresh copy of the built-in configuration.
func Default() *Config {
	return defaultConfig()
}

// setDefaults registers every leaf so environment variables can override
// single keys such as GUARDFEED_SOURCE_API_KEY.
func setDefaults(v *viper.Viper, cfg *Config) {
	defaults := map[string]any{
		"source.kind":          cfg.Source.Kind,
		"source.base_url":      cfg.Source.BaseURL,
		"source.api_key":       cfg.Source.APIKey,
		"source.query":         cfg.Source.Query,
		"source.rss_url":       cfg.Source.RSSURL,
		"source.page_size":     cfg.Source.PageSize,
		"source.http_timeout":  cfg.Source.HTTPTimeout,
		"source.user_agent":    cfg.Source.UserAgent,
		"source.allow_private": cfg.Source.AllowPrivate,

		"cache.backend": cfg.Cache.Backend,
		"cache.path":    cfg.Cache.Path,
		"cache.timeout": cfg.Cache.Timeout,

		"retry.unit": cfg.Retry.Unit,
		"retry.cap":  cfg.Retry.Cap,

		"ui.colors.primary":     cfg.UI.Colors.Primary,
		"ui.colors.secondary":   cfg.UI.Colors.Secondary,
		"ui.colors.accent":      cfg.UI.Colors.Accent,
		"ui.colors.text":        cfg.UI.Colors.Text,
		"ui.colors.muted":       cfg.UI.Colors.Muted,
		"ui.colors.error":       cfg.UI.Colors.Error,
		"ui.colors.success":     cfg.UI.Colors.Success,
		"ui.prefetch_threshold": cfg.UI.PrefetchThreshold,
		"ui.word_wrap_width":    cfg.UI.WordWrapWidth,
		"ui.opener":             cfg.UI.Opener,

		"keys.modifier":             cfg.Keys.Modifier,
		"keys.bindings.quit":        cfg.Keys.Bindings.Quit,
		"keys.bindings.search":      cfg.Keys.Bindings.Search,
		"keys.bindings.clear_cache": cfg.Keys.Bindings.ClearCache,
		"keys.bindings.open":        cfg.Keys.Bindings.Open,
		"keys.bindings.top":         cfg.Keys.Bindings.Top,
		"keys.bindings.bottom":      cfg.Keys.Bindings.Bottom,
		"keys.bindings.back":        cfg.Keys.Bindings.Back,
		"keys.bindings.help":        cfg.Keys.Bindings.Help,

		"log.level": cfg.Log.Level,
		"log.file":  cfg.Log.File,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// DefaultPath is ~/.config/guardfeed/config.toml.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "guardfeed", "config.toml")
}

func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v, defaultConfig())

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("toml")
		v.AddConfigPath(filepath.Dir(DefaultPath()))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("GUARDFEED")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Cache.Path = validation.ExpandPath(cfg.Cache.Path)
	if cfg.Log.File != "" {
		cfg.Log.File = validation.ExpandPath(cfg.Log.File)
	}

	return &cfg, nil
}

// Validate checks the values a session depends on and normalizes the
// source URLs in place.
func (c *Config) Validate() error {
	urls := validation.NewSourceURLValidator()
	if c.Source.AllowPrivate {
		urls = validation.NewPermissiveSourceURLValidator()
	}

	switch c.Source.Kind {
	case SourceGuardian:
		normalized, err := urls.ValidateAndNormalize(c.Source.BaseURL)
		if err != nil {
			return fmt.Errorf("source.base_url: %w", err)
		}
		c.Source.BaseURL = normalized
		if c.Source.APIKey == "" {
			return fmt.Errorf("source.api_key must be set")
		}
	case SourceRSS:
		normalized, err := urls.ValidateAndNormalize(c.Source.RSSURL)
		if err != nil {
			return fmt.Errorf("source.rss_url: %w", err)
		}
		c.Source.RSSURL = normalized
	default:
		return fmt.Errorf("source.kind: unknown source %q", c.Source.Kind)
	}

	if c.Source.PageSize <= 0 {
		return fmt.Errorf("source.page_size must be positive, got %d", c.Source.PageSize)
	}

	switch c.Cache.Backend {
	case "file", "bolt", "sqlite":
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	path, err := validation.NewCachePathValidator().ValidateAndExpand(c.Cache.Path)
	if err != nil {
		return fmt.Errorf("cache.path: %w", err)
	}
	c.Cache.Path = path

	if c.Retry.Unit <= 0 {
		return fmt.Errorf("retry.unit must be positive, got %s", c.Retry.Unit)
	}
	if c.Retry.Cap < 1 {
		return fmt.Errorf("retry.cap must be at least 1, got %d", c.Retry.Cap)
	}
	if c.UI.PrefetchThreshold < 0 {
		return fmt.Errorf("ui.prefetch_threshold must not be negative")
	}
	return nil
}

// Location is where the configured backend keeps its data: the cache
// directory itself for file, a database file inside it otherwise.
func (c CacheConfig) Location() string {
	switch c.Backend {
	case "bolt":
		return filepath.Join(c.Path, "cache.db")
	case "sqlite":
		return filepath.Join(c.Path, "cache.sqlite")
	default:
		return c.Path
	}
}

// document renders durations as strings for a readable TOML file.
func document(cfg *Config) map[string]any {
	return map[string]any{
		"source": map[string]any{
			"kind":          cfg.Source.Kind,
			"base_url":      cfg.Source.BaseURL,
			"api_key":       cfg.Source.APIKey,
			"query":         cfg.Source.Query,
			"rss_url":       cfg.Source.RSSURL,
			"page_size":     cfg.Source.PageSize,
			"http_timeout":  cfg.Source.HTTPTimeout.String(),
			"user_agent":    cfg.Source.UserAgent,
			"allow_private": cfg.Source.AllowPrivate,
		},
		"cache": map[string]any{
			"backend": cfg.Cache.Backend,
			"path":    cfg.Cache.Path,
			"timeout": cfg.Cache.Timeout.String(),
		},
		"retry": map[string]any{
			"unit": cfg.Retry.Unit.String(),
			"cap":  cfg.Retry.Cap,
		},
		"ui":   cfg.UI,
		"keys": cfg.Keys,
		"log":  cfg.Log,
	}
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg *Config) error {
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	if err := enc.Encode(document(cfg)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

func Save(cfg *Config, path string) error {
	var buf bytes.Buffer
	if err := Encode(&buf, cfg); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func GenerateDefaultConfig(path string) error {
	return Save(defaultConfig(), path)
}

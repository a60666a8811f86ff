package config

import "time"

// TestConfig returns a config suitable for testing: local endpoints are
// allowed and retries back off in milliseconds.
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.Source.HTTPTimeout = 5 * time.Second
	cfg.Source.UserAgent = "guardfeed-test/1.0"
	cfg.Source.AllowPrivate = true
	cfg.Cache.Path = ""
	cfg.Retry.Unit = time.Millisecond
	return cfg
}

package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultPath is read when CONFIG_PATH is unset.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Index struct {
		BaseURL     string `yaml:"base_url"`
		APIKey      string `yaml:"api_key"`
		HistoryDays int    `yaml:"history_days"`
		TimeoutSec  int    `yaml:"timeout_sec"`
	} `yaml:"index"`
	Exchange struct {
		BaseURL       string `yaml:"base_url"`
		QuoteCurrency string `yaml:"quote_currency"`
		TimeoutSec    int    `yaml:"timeout_sec"`
	} `yaml:"exchange"`
	Dashboard struct {
		ChangeLimit   int    `yaml:"change_limit"`
		TopN          int    `yaml:"top_n"`
		SnapshotLimit int    `yaml:"snapshot_limit"`
		Workers       int    `yaml:"workers"`
		DefaultSymbol string `yaml:"default_symbol"`
		DefaultPeriod string `yaml:"default_period"`
	} `yaml:"dashboard"`
	Schedule struct {
		RefreshCron    string `yaml:"refresh_cron"`
		CatalogCron    string `yaml:"catalog_cron"`
		PassTimeoutSec int    `yaml:"pass_timeout_sec"`
	} `yaml:"schedule"`
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Redis struct {
		Addr          string `yaml:"addr"`
		Password      string `yaml:"password"`
		DB            int    `yaml:"db"`
		CatalogTTLMin int    `yaml:"catalog_ttl_min"`
	} `yaml:"redis"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Proxy         string `yaml:"proxy"`
	LogLevel      string `yaml:"log_level"`
	MockProviders bool   `yaml:"mock_providers"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	setString(&c.Index.BaseURL, "INDEX_BASE_URL")
	setString(&c.Index.APIKey, "INDEX_API_KEY")
	setString(&c.Exchange.BaseURL, "EXCHANGE_BASE_URL")
	setString(&c.Exchange.QuoteCurrency, "QUOTE_CURRENCY")
	setString(&c.Schedule.RefreshCron, "CRON_REFRESH")
	setString(&c.Schedule.CatalogCron, "CRON_CATALOG")
	setString(&c.HTTP.Addr, "HTTP_ADDR")
	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Database.SQLitePath, "SQLITE_PATH")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.LogLevel, "LOG_LEVEL")
	setInt(&c.Dashboard.Workers, "WORKERS")
	setInt(&c.Redis.DB, "REDIS_DB")
	if v := os.Getenv("MOCK_PROVIDERS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.MockProviders = b
		}
	}
}

func (c *Config) applyDefaults() {
	defaultString(&c.Index.BaseURL, "https://api.coincap.io/v2")
	defaultInt(&c.Index.HistoryDays, 90)
	defaultInt(&c.Index.TimeoutSec, 10)
	defaultString(&c.Exchange.BaseURL, "https://api.kraken.com/0/public")
	defaultString(&c.Exchange.QuoteCurrency, "USD")
	defaultInt(&c.Exchange.TimeoutSec, 15)
	defaultInt(&c.Dashboard.ChangeLimit, 10)
	defaultInt(&c.Dashboard.TopN, 10)
	defaultInt(&c.Dashboard.SnapshotLimit, 250)
	defaultInt(&c.Dashboard.Workers, 4)
	defaultString(&c.Dashboard.DefaultSymbol, "XXBT")
	defaultString(&c.Dashboard.DefaultPeriod, "1d")
	defaultString(&c.Schedule.RefreshCron, "0 * * * * *")
	defaultString(&c.Schedule.CatalogCron, "0 0 */6 * * *")
	defaultInt(&c.Schedule.PassTimeoutSec, 45)
	defaultString(&c.HTTP.Addr, ":8050")
	defaultInt(&c.Redis.CatalogTTLMin, 360)

	c.Exchange.QuoteCurrency = strings.ToUpper(c.Exchange.QuoteCurrency)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Index.HistoryDays < 60 {
		return fmt.Errorf("index.history_days must cover the 60-day window, got %d", c.Index.HistoryDays)
	}
	if c.Dashboard.TopN >= c.Dashboard.SnapshotLimit {
		return fmt.Errorf("dashboard.top_n (%d) must be below dashboard.snapshot_limit (%d)", c.Dashboard.TopN, c.Dashboard.SnapshotLimit)
	}
	if c.Dashboard.ChangeLimit > c.Dashboard.SnapshotLimit {
		return fmt.Errorf("dashboard.change_limit (%d) exceeds dashboard.snapshot_limit (%d)", c.Dashboard.ChangeLimit, c.Dashboard.SnapshotLimit)
	}
	if c.Dashboard.Workers < 1 {
		return fmt.Errorf("dashboard.workers must be positive")
	}
	if c.Exchange.QuoteCurrency == "" {
		return fmt.Errorf("exchange.quote_currency is required")
	}
	if c.Proxy != "" && !validProxy(c.Proxy) {
		return fmt.Errorf("proxy %q is not a valid URL", c.Proxy)
	}
	return nil
}

func (c *Config) IndexTimeout() time.Duration {
	return time.Duration(c.Index.TimeoutSec) * time.Second
}

func (c *Config) ExchangeTimeout() time.Duration {
	return time.Duration(c.Exchange.TimeoutSec) * time.Second
}

func (c *Config) PassTimeout() time.Duration {
	return time.Duration(c.Schedule.PassTimeoutSec) * time.Second
}

func (c *Config) CatalogTTL() time.Duration {
	return time.Duration(c.Redis.CatalogTTLMin) * time.Minute
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func defaultString(dst *string, v string) {
	if *dst == "" {
		*dst = v
	}
}

func defaultInt(dst *int, v int) {
	if *dst == 0 {
		*dst = v
	}
}

// validProxy accepts a URL with a host, or a bare host:port read as http.
func validProxy(raw string) bool {
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	return err == nil && u.Host != ""
}

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider names understood by the collector.
const (
	ProviderFMP   = "fmp"
	ProviderEODHD = "eodhd"
	ProviderYahoo = "yahoo"
	ProviderMock  = "mock"
)

// ProviderConfig configures one fundamentals provider in the fallback chain.
type ProviderConfig struct {
	Name      string        `yaml:"name" validate:"required,oneof=fmp eodhd yahoo mock"`
	BaseURL   string        `yaml:"base_url" validate:"omitempty,url"`
	APIKey    string        `yaml:"api_key"`
	Timeout   time.Duration `yaml:"timeout" validate:"gte=0"`
	Retries   int           `yaml:"retries" validate:"gte=0,lte=10"`
	RateLimit float64       `yaml:"rate_limit" validate:"gte=0"` // requests per second, 0 = unlimited
}

// NeedsKey reports whether the provider cannot work without an API key.
func (p ProviderConfig) NeedsKey() bool {
	return p.Name == ProviderFMP || p.Name == ProviderEODHD
}

// Config holds all application configuration.
type Config struct {
	Universe struct {
		Pools   map[string][]string `yaml:"pools" validate:"required,min=1"`
		Pool    string              `yaml:"pool" validate:"required"`
		Sectors map[string]string   `yaml:"sectors"`
	} `yaml:"universe"`
	Providers []ProviderConfig `yaml:"providers" validate:"dive"`
	Collector struct {
		Workers int `yaml:"workers" validate:"gte=1,lte=64"`
	} `yaml:"collector"`
	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl" validate:"gte=0"`
		Path    string        `yaml:"path"` // SQLite file; empty keeps the cache in memory
	} `yaml:"cache"`
	Strategy struct {
		InvestmentAmount float64 `yaml:"investment_amount" validate:"gte=0"`
		ScoreThreshold   float64 `yaml:"score_threshold" validate:"gte=0,lte=100"`
		MaxPE            float64 `yaml:"max_pe" validate:"gte=0"`
		SectorPenalty    bool    `yaml:"sector_penalty"`
	} `yaml:"strategy"`
	Projection struct {
		LumpSum      float64 `yaml:"lump_sum" validate:"gte=0"`
		Contribution float64 `yaml:"contribution" validate:"gte=0"`
		AnnualRate   float64 `yaml:"annual_rate" validate:"gte=0"`
		Years        int     `yaml:"years" validate:"gte=0,lte=100"`
	} `yaml:"projection"`
	HoldingsFile string `yaml:"holdings_file"`
	Schedule     struct {
		RefreshCron string `yaml:"refresh_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Export struct {
		Dir      string `yaml:"dir"`
		S3Bucket string `yaml:"s3_bucket"`
		S3Prefix string `yaml:"s3_prefix"`
		S3Region string `yaml:"s3_region"`
	} `yaml:"export"`
	Log struct {
		Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.Universe.Pools = map[string][]string{
		"US": {"AAPL", "MSFT", "GOOGL", "TSLA"},
		"AU": {"BHP.AX", "WES.AX", "CSL.AX", "CBA.AX"},
	}
	cfg.Universe.Pools["MIXED"] = append(append([]string{}, cfg.Universe.Pools["US"]...), cfg.Universe.Pools["AU"]...)
	cfg.Universe.Pool = "US"
	cfg.Providers = []ProviderConfig{
		{Name: ProviderFMP, BaseURL: "https://financialmodelingprep.com/api/v3", Timeout: 10 * time.Second, Retries: 2, RateLimit: 5},
		{Name: ProviderYahoo, Timeout: 10 * time.Second, Retries: 1, RateLimit: 2},
	}
	cfg.Collector.Workers = 4
	cfg.Cache.Enabled = true
	cfg.Cache.TTL = 6 * time.Hour
	cfg.Strategy.InvestmentAmount = 500
	cfg.Strategy.ScoreThreshold = 40
	cfg.Projection.LumpSum = 10000
	cfg.Projection.Contribution = 200
	cfg.Projection.AnnualRate = 7
	cfg.Projection.Years = 20
	cfg.Schedule.RefreshCron = "0 30 9 * * 1-5"
	cfg.Database.SQLitePath = "data/smart_portfolio.db"
	cfg.Server.Addr = ":8080"
	cfg.Export.Dir = "data/export"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file over the defaults, then applies
// .env and environment variable overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	dotenv := ".env"
	if v := os.Getenv("DOTENV_PATH"); v != "" {
		dotenv = v
	}
	if err := godotenv.Load(dotenv); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.normalizePools()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("FMP_API_KEY"); v != "" {
		c.provider(ProviderFMP).APIKey = v
	}
	if v := os.Getenv("EODHD_API_KEY"); v != "" {
		c.provider(ProviderEODHD).APIKey = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		c.Telegram.ChatID = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		c.Proxy = v
	}
	if v := os.Getenv("MARKET_POOL"); v != "" {
		c.Universe.Pool = v
	}
	if v := os.Getenv("INVESTMENT_AMOUNT"); v != "" {
		amount, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse INVESTMENT_AMOUNT: %w", err)
		}
		c.Strategy.InvestmentAmount = amount
	}
	if v := os.Getenv("SCORE_THRESHOLD"); v != "" {
		threshold, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse SCORE_THRESHOLD: %w", err)
		}
		c.Strategy.ScoreThreshold = threshold
	}
	if v := os.Getenv("CRON_REFRESH"); v != "" {
		c.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.Database.SQLitePath = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("HOLDINGS_FILE"); v != "" {
		c.HoldingsFile = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	return nil
}

// normalizePools upper-cases pool names and tickers so lookups are case-insensitive.
func (c *Config) normalizePools() {
	pools := make(map[string][]string, len(c.Universe.Pools))
	for name, tickers := range c.Universe.Pools {
		list := make([]string, 0, len(tickers))
		for _, t := range tickers {
			if t = strings.ToUpper(strings.TrimSpace(t)); t != "" {
				list = append(list, t)
			}
		}
		pools[strings.ToUpper(strings.TrimSpace(name))] = list
	}
	c.Universe.Pools = pools
	c.Universe.Pool = strings.ToUpper(strings.TrimSpace(c.Universe.Pool))
}

// provider returns the named provider entry, appending one when absent.
func (c *Config) provider(name string) *ProviderConfig {
	for i := range c.Providers {
		if c.Providers[i].Name == name {
			return &c.Providers[i]
		}
	}
	c.Providers = append(c.Providers, ProviderConfig{Name: name, Timeout: 10 * time.Second, Retries: 1})
	return &c.Providers[len(c.Providers)-1]
}

// Tickers returns the ticker list of the selected pool.
func (c *Config) Tickers() []string {
	return c.Universe.Pools[c.Universe.Pool]
}

// ValidateFields checks the struct tag ranges only. It suits runs that name
// their own tickers and do not depend on the selected pool.
func (c *Config) ValidateFields() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Validate checks field ranges and cross-field rules.
func (c *Config) Validate() error {
	if err := c.ValidateFields(); err != nil {
		return err
	}
	tickers, ok := c.Universe.Pools[c.Universe.Pool]
	if !ok {
		return fmt.Errorf("universe.pool %q is not defined in universe.pools", c.Universe.Pool)
	}
	if len(tickers) == 0 {
		return fmt.Errorf("universe.pools.%s has no tickers", c.Universe.Pool)
	}
	return nil
}

// ValidateProviders checks that the fallback chain is usable.
func (c *Config) ValidateProviders() error {
	if len(c.Providers) == 0 {
		return errors.New("at least one provider is required")
	}
	for i, p := range c.Providers {
		if p.NeedsKey() && p.APIKey == "" {
			return fmt.Errorf("providers[%d] (%s): api_key is required", i, p.Name)
		}
	}
	return nil
}

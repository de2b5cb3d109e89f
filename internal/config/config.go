package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

type Config struct {
	Environment string      `yaml:"environment" validate:"required,oneof=production development"`
	Explorer    ExplorerCfg `yaml:"explorer"    validate:"required"`
	Token       TokenCfg    `yaml:"token"       validate:"required"`
	Router      RouterCfg   `yaml:"router"      validate:"required"`
	Pipeline    PipelineCfg `yaml:"pipeline"`
	Pricing     PricingCfg  `yaml:"pricing"`
	Ledger      LedgerCfg   `yaml:"ledger"`
	VWAP        VWAPCfg     `yaml:"vwap"`
	NATS        NATSCfg     `yaml:"nats"`
	FailedStore FailedCfg   `yaml:"failed_store"`
}

type ExplorerCfg struct {
	BaseURL           string        `yaml:"base_url" validate:"required,url"`
	APIKey            string        `yaml:"api_key"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond int           `yaml:"requests_per_second"`
	BurstSize         int           `yaml:"burst_size"`
}

type TokenCfg struct {
	Address string `yaml:"address" validate:"required"`
	Symbol  string `yaml:"symbol"`
}

type RouterCfg struct {
	Address string `yaml:"address" validate:"required"`
	Name    string `yaml:"name"`
}

type PipelineCfg struct {
	Concurrency  int           `yaml:"concurrency"`
	MaxAttempts  int           `yaml:"max_attempts"`
	BatchSize    int           `yaml:"batch_size"`
	WindowPause  time.Duration `yaml:"window_pause"`
	Aggregate    bool          `yaml:"aggregate"`     // one net row per transaction instead of one per transfer
	PoolPatterns []string      `yaml:"pool_patterns"` // extra pool-like label substrings
}

type PricingCfg struct {
	// FallbackRateUSD is the token→USD rate used when no stablecoin leg is
	// present in a transaction. Empty means the built-in default applies.
	FallbackRateUSD string `yaml:"fallback_rate_usd"`
}

type LedgerCfg struct {
	Path string `yaml:"path"`
}

type VWAPCfg struct {
	OutputPath string `yaml:"output_path"`
}

type NATSCfg struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

type FailedCfg struct {
	Directory string `yaml:"directory"`
}

func (c *Config) applyDefaults() {
	if c.Explorer.RequestTimeout <= 0 {
		c.Explorer.RequestTimeout = 30 * time.Second
	}
	if c.Explorer.RequestsPerSecond <= 0 {
		c.Explorer.RequestsPerSecond = 10
	}
	if c.Explorer.BurstSize <= 0 {
		c.Explorer.BurstSize = 20
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 50
	}
	if c.Pipeline.MaxAttempts <= 0 {
		c.Pipeline.MaxAttempts = 3
	}
	if c.Pipeline.BatchSize <= 0 {
		c.Pipeline.BatchSize = 200
	}
	if c.Pipeline.WindowPause <= 0 {
		c.Pipeline.WindowPause = time.Second
	}
	if c.Ledger.Path == "" {
		c.Ledger.Path = "data/trades.csv"
	}
	if c.VWAP.OutputPath == "" {
		c.VWAP.OutputPath = "data/vwap.csv"
	}
	if c.NATS.Subject == "" {
		c.NATS.Subject = "indexer.trades"
	}
	if c.FailedStore.Directory == "" {
		c.FailedStore.Directory = "data/failed"
	}
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, err
	}

	cfg.applyDefaults()

	if err := validate.Struct(cfg); err != nil {
		return cfg, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// Package config loads and validates the simulator's YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"execution-sim/fees"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Exchange    string          `yaml:"exchange"`
	Symbol      string          `yaml:"symbol"`
	MetricsAddr string          `yaml:"metricsAddr"`
	Logger      LoggerConfig    `yaml:"logger"`
	Order       OrderConfig     `yaml:"order"`
	Execution   ExecutionConfig `yaml:"execution"`
	Slippage    SlippageConfig  `yaml:"slippage"`
	Venues      []fees.Venue    `yaml:"venues"`
}

type LoggerConfig struct {
	Level   string   `yaml:"level"`  // debug, info, warn, error
	Format  string   `yaml:"format"` // json or console
	Outputs []string `yaml:"outputs"`
}

// OrderConfig describes the hypothetical order whose cost is modeled.
type OrderConfig struct {
	Size        float64 `yaml:"size"`
	DailyVolume float64 `yaml:"dailyVolume"`
	IsBuy       bool    `yaml:"isBuy"`
}

type ExecutionConfig struct {
	Volatility      float64 `yaml:"volatility"` // annualized; 0 = use realized
	PermanentImpact float64 `yaml:"permanentImpact"`
	TemporaryImpact float64 `yaml:"temporaryImpact"`
	RiskAversion    float64 `yaml:"riskAversion"`
	HorizonDays     float64 `yaml:"horizonDays"`
	Periods         int     `yaml:"periods"`
}

type SlippageConfig struct {
	ImpactFactor float64 `yaml:"impactFactor"`
	DepthFactor  float64 `yaml:"depthFactor"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *AppConfig) applyDefaults() {
	if c.Exchange == "" {
		c.Exchange = "okx"
	}
	if c.Symbol == "" {
		c.Symbol = "BTC-USDT"
	}
	if c.MetricsAddr == "" {
		c.MetricsAddr = ":9100"
	}
	if c.Logger.Level == "" {
		c.Logger.Level = "info"
	}
	if c.Logger.Format == "" {
		c.Logger.Format = "json"
	}
	if len(c.Logger.Outputs) == 0 {
		c.Logger.Outputs = []string{"stdout"}
	}
	if c.Execution.HorizonDays == 0 {
		c.Execution.HorizonDays = 1
	}
	if c.Execution.Periods == 0 {
		c.Execution.Periods = 10
	}
	if c.Execution.RiskAversion == 0 {
		c.Execution.RiskAversion = 1
	}
	if c.Slippage.ImpactFactor == 0 {
		c.Slippage.ImpactFactor = 0.1
	}
	if c.Slippage.DepthFactor == 0 {
		c.Slippage.DepthFactor = 1
	}
}

// Validate checks field ranges after defaults were applied.
func (c AppConfig) Validate() error {
	var errs []error
	if c.Symbol == "" {
		errs = append(errs, errors.New("symbol is required"))
	}
	if c.Order.Size < 0 {
		errs = append(errs, fmt.Errorf("order.size %v must not be negative", c.Order.Size))
	}
	if c.Order.DailyVolume < 0 {
		errs = append(errs, fmt.Errorf("order.dailyVolume %v must not be negative", c.Order.DailyVolume))
	}
	if c.Execution.HorizonDays <= 0 {
		errs = append(errs, fmt.Errorf("execution.horizonDays %v must be positive", c.Execution.HorizonDays))
	}
	if c.Execution.Periods < 1 {
		errs = append(errs, fmt.Errorf("execution.periods %d must be at least 1", c.Execution.Periods))
	}
	if c.Execution.RiskAversion <= 0 {
		errs = append(errs, fmt.Errorf("execution.riskAversion %v must be positive", c.Execution.RiskAversion))
	}
	if c.Slippage.ImpactFactor < 0 || c.Slippage.ImpactFactor > 1 {
		errs = append(errs, fmt.Errorf("slippage.impactFactor %v must be in [0,1]", c.Slippage.ImpactFactor))
	}
	for _, v := range c.Venues {
		if v.Name == "" {
			errs = append(errs, errors.New("venue name is required"))
		}
		if v.FillProbability < 0 || v.FillProbability > 1 {
			errs = append(errs, fmt.Errorf("venue %q fillProbability %v must be in [0,1]", v.Name, v.FillProbability))
		}
	}
	return errors.Join(errs...)
}

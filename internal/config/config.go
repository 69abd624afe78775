package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration for the strata runtime.
type Config struct {
	Logging  Logging  `yaml:"logging"`
	Router   Router   `yaml:"router"`
	Data     Data     `yaml:"data"`
	Journal  Journal  `yaml:"journal"`
	Gateway  Gateway  `yaml:"gateway"`
	Strategy Strategy `yaml:"strategy"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Router configures the event router.
type Router struct {
	Capacity int `yaml:"capacity"`
}

// Data holds paths for market data sources.
type Data struct {
	DuckDBPath string `yaml:"duckdb_path"`
	BinaryPath string `yaml:"binary_path"`
}

// Journal holds the path for the execution journal database.
type Journal struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// Gateway holds the endpoint of the order gateway.
type Gateway struct {
	URL string `yaml:"url"`
}

// Strategy holds parameters for the strategy under execution.
type Strategy struct {
	Label      string `yaml:"label"`
	Symbol     string `yaml:"symbol"`
	BarStep    int    `yaml:"bar_step"`
	FastPeriod int    `yaml:"fast_period"`
	SlowPeriod int    `yaml:"slow_period"`
	Quantity   int64  `yaml:"quantity"`
}

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STRATA_DUCKDB_PATH"); v != "" {
		cfg.Data.DuckDBPath = v
	}
	if v := os.Getenv("STRATA_JOURNAL_PATH"); v != "" {
		cfg.Journal.SQLitePath = v
	}
	if v := os.Getenv("STRATA_GATEWAY_URL"); v != "" {
		cfg.Gateway.URL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Router.Capacity <= 0 {
		cfg.Router.Capacity = 1024
	}
	if cfg.Strategy.Label == "" {
		cfg.Strategy.Label = "001"
	}
	if cfg.Strategy.BarStep <= 0 {
		cfg.Strategy.BarStep = 1
	}
	if cfg.Strategy.Quantity <= 0 {
		cfg.Strategy.Quantity = 1
	}
}

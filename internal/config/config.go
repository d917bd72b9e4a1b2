package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/Behodler/yield-strategy-router/internal/ledger"
)

// Config is the full service configuration. Values come from an optional
// YAML file, overridden by YSR_* environment variables.
type Config struct {
	// Owner is the UUID of the service owner identity. When unset a fresh
	// identity is generated at startup and logged.
	Owner string `yaml:"owner"`

	Server   ServerConfig   `yaml:"server"`
	Postgres PostgresConfig `yaml:"postgres"`
	NATS     NATSConfig     `yaml:"nats"`
	Persist  PersistConfig  `yaml:"persist"`
	Snapshot SnapshotConfig `yaml:"snapshot"`
	Assets   []AssetConfig  `yaml:"assets"`
}

type ServerConfig struct {
	HTTPAddr    string `yaml:"http_addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type PostgresConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type NATSConfig struct {
	URL     string `yaml:"url"`
	Enabled bool   `yaml:"enabled"`
}

type PersistConfig struct {
	BatchSize    int           `yaml:"batch_size"`
	FlushTimeout time.Duration `yaml:"flush_timeout"`
	ChannelSize  int           `yaml:"channel_size"`
}

type SnapshotConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// AssetConfig declares one asset the service manages, with its simulated
// pool's starting conditions.
type AssetConfig struct {
	Symbol      string `yaml:"symbol"`
	RewardToken string `yaml:"reward_token"`
	Staking     bool   `yaml:"staking"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			HTTPAddr:    ":8080",
			MetricsAddr: ":9090",
		},
		Postgres: PostgresConfig{
			URL:     "postgres://localhost:5432/ysrouter?sslmode=disable",
			Enabled: true,
		},
		NATS: NATSConfig{
			URL:     "nats://localhost:4222",
			Enabled: true,
		},
		Persist: PersistConfig{
			BatchSize:    100,
			FlushTimeout: 50 * time.Millisecond,
			ChannelSize:  1024,
		},
		Snapshot: SnapshotConfig{
			Interval: 5 * time.Minute,
		},
		Assets: []AssetConfig{
			{Symbol: "DAI", RewardToken: "EYE", Staking: true},
		},
	}
}

// Load reads the YAML file at path (when non-empty) over the defaults, then
// applies environment overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("YSR_OWNER"); v != "" {
		c.Owner = v
	}
	if v := os.Getenv("YSR_HTTP_ADDR"); v != "" {
		c.Server.HTTPAddr = v
	}
	if v := os.Getenv("YSR_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("YSR_POSTGRES_URL"); v != "" {
		c.Postgres.URL = v
	}
	if v := os.Getenv("YSR_POSTGRES_ENABLED"); v != "" {
		c.Postgres.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("YSR_NATS_URL"); v != "" {
		c.NATS.URL = v
	}
	if v := os.Getenv("YSR_NATS_ENABLED"); v != "" {
		c.NATS.Enabled = v == "1" || v == "true"
	}
	if v := os.Getenv("YSR_PERSIST_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.Persist.BatchSize = n
		}
	}
	if v := os.Getenv("YSR_PERSIST_FLUSH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Persist.FlushTimeout = d
		}
	}
	if v := os.Getenv("YSR_SNAPSHOT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Snapshot.Interval = d
		}
	}
}

func (c *Config) validate() error {
	if c.Owner != "" {
		if _, err := uuid.Parse(c.Owner); err != nil {
			return fmt.Errorf("owner must be a valid UUID: %w", err)
		}
	}
	if c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr must be set")
	}
	if c.Persist.BatchSize <= 0 {
		return fmt.Errorf("persist.batch_size must be positive")
	}
	if c.Persist.ChannelSize <= 0 {
		return fmt.Errorf("persist.channel_size must be positive")
	}
	if len(c.Assets) == 0 {
		return fmt.Errorf("at least one asset must be configured")
	}
	for _, a := range c.Assets {
		if a.Symbol == "" {
			return fmt.Errorf("asset symbol must be set")
		}
		if _, ok := ledger.GetAssetID(a.Symbol); !ok {
			return fmt.Errorf("asset %q is not in the registry", a.Symbol)
		}
	}
	return nil
}

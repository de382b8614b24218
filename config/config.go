package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Simulator  SimulatorConfig  `yaml:"simulator"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Seed       SeedConfig       `yaml:"seed"`
}

// ServerConfig holds the HTTP server configuration.
type ServerConfig struct {
	Port                int     `yaml:"port"`
	RequestIPHeader     string  `yaml:"request_ip_header"`
	RateLimitPerSec     float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst      int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds     int     `yaml:"cache_ttl_seconds"`
	ReadTimeoutSeconds  int     `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int     `yaml:"write_timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds JWT signing configuration.
type AuthConfig struct {
	JWTSecret       string        `yaml:"jwt_secret"`
	TokenTTLMinutes int           `yaml:"token_ttl_minutes"`
	TokenTTL        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// SimulatorConfig holds the synthetic event generator configuration.
type SimulatorConfig struct {
	Enabled         bool          `yaml:"enabled"`
	IntervalSeconds int           `yaml:"interval_seconds"`
	Interval        time.Duration `yaml:"-"` // Ignored by YAML parser
	MinPerTick      int           `yaml:"min_per_tick"`
	MaxPerTick      int           `yaml:"max_per_tick"`
	Seed            int64         `yaml:"seed"`
	Backfill        bool          `yaml:"backfill"`
}

// PushConfig holds the VAPID keys for web push stop alerts.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// SeedConfig controls demo data seeding at startup.
type SeedConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads the configuration from the given path and applies defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 30
	}
	if cfg.Server.ReadTimeoutSeconds <= 0 {
		cfg.Server.ReadTimeoutSeconds = 15
	}
	if cfg.Server.WriteTimeoutSeconds <= 0 {
		cfg.Server.WriteTimeoutSeconds = 15
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Auth.TokenTTLMinutes <= 0 {
		cfg.Auth.TokenTTLMinutes = 60
	}
	cfg.Auth.TokenTTL = time.Duration(cfg.Auth.TokenTTLMinutes) * time.Minute

	if cfg.Simulator.IntervalSeconds <= 0 {
		cfg.Simulator.IntervalSeconds = 60
	}
	cfg.Simulator.Interval = time.Duration(cfg.Simulator.IntervalSeconds) * time.Second
	if cfg.Simulator.MinPerTick <= 0 {
		cfg.Simulator.MinPerTick = 1
	}
	if cfg.Simulator.MaxPerTick < cfg.Simulator.MinPerTick {
		cfg.Simulator.MaxPerTick = cfg.Simulator.MinPerTick + 2
	}
	if cfg.Simulator.Seed == 0 {
		cfg.Simulator.Seed = 42
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	return &cfg, nil
}

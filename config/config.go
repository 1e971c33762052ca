package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// DefaultScreenIDs are the identities of the four shop displays, in hub order.
var DefaultScreenIDs = []string{
	"00000000-0000-0000-0000-000000000001",
	"00000000-0000-0000-0000-000000000002",
	"00000000-0000-0000-0000-000000000003",
	"00000000-0000-0000-0000-000000000004",
}

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Screens    ScreensConfig    `yaml:"screens"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
	Timezone        string  `yaml:"timezone"`
}

// ScreensConfig lists the physical displays. The order fixes each display's slot index.
type ScreensConfig struct {
	IDs     []string `yaml:"ids"`
	Backend string   `yaml:"backend"` // "database" or "upstream"
}

// CatalogConfig selects where the service catalog is persisted.
type CatalogConfig struct {
	Backend  string `yaml:"backend"` // "database", "file" or "redis"
	Path     string `yaml:"path"`
	RedisKey string `yaml:"redis_key"`
}

// UpstreamConfig describes the external screen API and how often to reload from the system of record.
type UpstreamConfig struct {
	PollEnabled     bool              `yaml:"poll_enabled"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Interval        time.Duration     `yaml:"-"` // Ignored by YAML parser
	BaseURL         string            `yaml:"base_url"`
	HTTPProxy       string            `yaml:"http_proxy"`
	Headers         map[string]string `yaml:"headers"`
	TimeoutSeconds  int               `yaml:"timeout_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "sqlite"
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// RedisConfig holds the realtime channel configuration. An empty URL disables Redis.
type RedisConfig struct {
	URL     string `yaml:"url"`
	Channel string `yaml:"channel"`
}

// AuthConfig holds the secret used to verify operator tokens.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// Load reads the configuration from the given path.
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

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) applyDefaults() error {
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
		cfg.Server.CacheTTLSeconds = 300
	}
	if cfg.Server.Timezone == "" {
		cfg.Server.Timezone = "Asia/Jakarta"
	}

	if len(cfg.Screens.IDs) == 0 {
		cfg.Screens.IDs = append([]string(nil), DefaultScreenIDs...)
	}
	seen := make(map[string]bool, len(cfg.Screens.IDs))
	for _, id := range cfg.Screens.IDs {
		if _, err := uuid.Parse(id); err != nil {
			return fmt.Errorf("screens.ids: %q is not a UUID: %w", id, err)
		}
		if seen[id] {
			return fmt.Errorf("screens.ids: duplicate screen %q", id)
		}
		seen[id] = true
	}
	if cfg.Screens.Backend == "" {
		cfg.Screens.Backend = "database"
	}

	if cfg.Catalog.Backend == "" {
		cfg.Catalog.Backend = "database"
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "./data/services.yaml"
	}
	if cfg.Catalog.RedisKey == "" {
		cfg.Catalog.RedisKey = "catalog:services"
	}

	if cfg.Upstream.IntervalSeconds <= 0 {
		cfg.Upstream.IntervalSeconds = 30
	}
	cfg.Upstream.Interval = time.Duration(cfg.Upstream.IntervalSeconds) * time.Second
	if cfg.Upstream.TimeoutSeconds <= 0 {
		cfg.Upstream.TimeoutSeconds = 30
	}
	if cfg.Screens.Backend == "upstream" && cfg.Upstream.BaseURL == "" {
		return fmt.Errorf("screens.backend is upstream but upstream.base_url is empty")
	}

	if cfg.Database.Driver == "" {
		cfg.Database.Driver = "postgres"
	}

	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "screen:update"
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		log.Printf("worker_pool.size is not set or invalid; defaulting to 1")
		cfg.WorkerPool.Size = 1
	}
	return nil
}

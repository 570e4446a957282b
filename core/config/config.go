package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// StoreMemory selects the in-memory session store backend.
	StoreMemory = "memory"
	// StorePostgres selects the PostgreSQL session store backend.
	StorePostgres = "postgres"
)

// TelegramConfig holds settings common to every bot served by the module.
type TelegramConfig struct {
	// ServerName participates in bot uid derivation; the same (server, token)
	// pair always yields the same uid.
	ServerName string `yaml:"server_name" envconfig:"TELEGRAM_SERVER_NAME"`
	APIURL     string `yaml:"api_url" envconfig:"TELEGRAM_API_URL"`
	HookPrefix string `yaml:"hook_prefix" envconfig:"TELEGRAM_HOOK_PREFIX"`
}

// WebhookConfig specifies the inbound webhook listener.
type WebhookConfig struct {
	Listen    string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port      int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
	PublicURL string `yaml:"public_url" envconfig:"WEBHOOK_PUBLIC_URL"`
}

// StoreConfig selects and tunes the session store backend.
type StoreConfig struct {
	Backend    string `yaml:"backend" envconfig:"STORE_BACKEND"`
	TTLSeconds int    `yaml:"ttl_seconds" envconfig:"STORE_TTL_SECONDS"`
	Capacity   int    `yaml:"capacity" envconfig:"STORE_CAPACITY"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format string `yaml:"format" envconfig:"LOG_FORMAT"`
	Dir    string `yaml:"dir" envconfig:"LOG_DIR"`
	File   string `yaml:"file" envconfig:"LOG_FILE"`
}

// Config aggregates the configuration that belongs to the reusable core.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Store    StoreConfig    `yaml:"store"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if strings.TrimSpace(cfg.Telegram.ServerName) == "" {
		return fmt.Errorf("telegram.server_name is required")
	}
	if cfg.Telegram.APIURL == "" {
		cfg.Telegram.APIURL = "https://api.telegram.org"
	}
	if cfg.Telegram.HookPrefix == "" {
		cfg.Telegram.HookPrefix = "telegram"
	}
	cfg.Telegram.HookPrefix = strings.Trim(cfg.Telegram.HookPrefix, "/")

	if strings.TrimSpace(cfg.Webhook.Listen) == "" {
		cfg.Webhook.Listen = "0.0.0.0"
	}
	if cfg.Webhook.Port <= 0 {
		return fmt.Errorf("webhook.port must be > 0")
	}

	backend := strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if backend == "" {
		backend = StoreMemory
	}
	switch backend {
	case StoreMemory, StorePostgres:
	default:
		return fmt.Errorf("invalid store.backend %q; allowed: memory, postgres", cfg.Store.Backend)
	}
	cfg.Store.Backend = backend

	if cfg.Store.TTLSeconds < 0 {
		return fmt.Errorf("store.ttl_seconds must be >= 0")
	}
	if cfg.Store.TTLSeconds == 0 {
		cfg.Store.TTLSeconds = 86400
	}
	if cfg.Store.Capacity <= 0 {
		cfg.Store.Capacity = 65536
	}
	return nil
}

// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port        int    `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MigrationsPath string `yaml:"migrations_path"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type PayHeroConfig struct {
	AuthToken   string `yaml:"auth_token"`
	BaseURL     string `yaml:"base_url"`
	ChannelID   int    `yaml:"channel_id"`
	CallbackURL string `yaml:"callback_url"`
}

type PaymentConfig struct {
	DonationMin int64         `yaml:"donation_min"` // whole KES
	DonationMax int64         `yaml:"donation_max"`
	Retention   time.Duration `yaml:"retention"` // how long settled records are kept
}

type CatalogConfig struct {
	Path string `yaml:"path"`
}

type InventoryConfig struct {
	Backend string `yaml:"backend"` // postgres|redis
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Sender   string `yaml:"sender"`
}

type NotifyConfig struct {
	SMTP       SMTPConfig `yaml:"smtp"`
	OpsContact string     `yaml:"ops_contact"` // recipient for shortage alerts
	Workers    int        `yaml:"workers"`     // async delivery workers
}

type ReconcilerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	StaleAfter  time.Duration `yaml:"stale_after"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Log        LogConfig        `yaml:"log"`
	Database   DatabaseConfig   `yaml:"database"`
	Redis      RedisConfig      `yaml:"redis"`
	PayHero    PayHeroConfig    `yaml:"payhero"`
	Payment    PaymentConfig    `yaml:"payment"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Inventory  InventoryConfig  `yaml:"inventory"`
	Notify     NotifyConfig     `yaml:"notify"`
	Reconciler ReconcilerConfig `yaml:"reconciler"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MigrationsPath == "" {
		cfg.Database.MigrationsPath = "migrations"
	}
	if cfg.PayHero.BaseURL == "" {
		cfg.PayHero.BaseURL = "https://backend.payhero.co.ke/api/v2"
	}
	if cfg.Payment.DonationMin <= 0 {
		cfg.Payment.DonationMin = 1
	}
	if cfg.Payment.DonationMax <= 0 {
		cfg.Payment.DonationMax = 150000
	}
	if cfg.Payment.Retention <= 0 {
		cfg.Payment.Retention = 30 * 24 * time.Hour
	}
	if cfg.Catalog.Path == "" {
		cfg.Catalog.Path = "catalog.yaml"
	}
	if cfg.Inventory.Backend == "" {
		cfg.Inventory.Backend = "postgres"
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Reconciler.Interval <= 0 {
		cfg.Reconciler.Interval = time.Minute
	}
	if cfg.Reconciler.StaleAfter <= 0 {
		cfg.Reconciler.StaleAfter = 2 * time.Minute
	}
	if cfg.Reconciler.MaxAttempts <= 0 {
		cfg.Reconciler.MaxAttempts = 30
	}

	// Minimal validation
	if !dev && cfg.PayHero.AuthToken == "" {
		return nil, errors.New("payhero.auth_token is required")
	}
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Payment.DonationMin > cfg.Payment.DonationMax {
		return nil, errors.New("payment.donation_min exceeds payment.donation_max")
	}
	switch cfg.Inventory.Backend {
	case "postgres":
	case "redis":
		if cfg.Redis.URL == "" {
			return nil, errors.New("inventory.backend redis requires redis.url")
		}
	default:
		return nil, fmt.Errorf("unknown inventory.backend %q (postgres|redis)", cfg.Inventory.Backend)
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

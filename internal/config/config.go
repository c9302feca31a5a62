// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type AdminConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int32  `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type MailConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	LoginURL string `yaml:"login_url"`
	Language string `yaml:"language"` // en|id
	// Disabled swaps SMTP delivery for a log-only notifier.
	Disabled bool `yaml:"disabled"`
}

type WebhookConfig struct {
	Secret    string        `yaml:"secret"`
	DedupeTTL time.Duration `yaml:"dedupe_ttl"`
}

type CheckoutConfig struct {
	Currency             string `yaml:"currency"`
	YearlyDiscountMonths int    `yaml:"yearly_discount_months"`
}

type ProvisioningConfig struct {
	Workers           int           `yaml:"workers"`
	QueueSize         int           `yaml:"queue_size"`
	RetryMaxElapsed   time.Duration `yaml:"retry_max_elapsed"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	StaleAfter        time.Duration `yaml:"stale_after"`
	BatchSize         int           `yaml:"batch_size"`
	MaxFailures       int           `yaml:"max_failures"` // business rejections before the reconciler gives up
}

type SchedulerConfig struct {
	ExpiryInterval time.Duration `yaml:"expiry_interval"`
}

type SecurityConfig struct {
	BcryptCost         int `yaml:"bcrypt_cost"`
	TempPasswordLength int `yaml:"temp_password_length"`
}

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
	Admin        AdminConfig        `yaml:"admin"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Mail         MailConfig         `yaml:"mail"`
	Webhook      WebhookConfig      `yaml:"webhook"`
	Checkout     CheckoutConfig     `yaml:"checkout"`
	Provisioning ProvisioningConfig `yaml:"provisioning"`
	Scheduler    SchedulerConfig    `yaml:"scheduler"`
	Security     SecurityConfig     `yaml:"security"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads -config and -dev from the command line and loads the file.
func LoadConfig() (*Config, error) {
	var configPath string
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()
	return Load(configPath, dev)
}

// Load parses the YAML file at path, applies environment overrides and
// defaults, and validates the result.
func Load(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b, dev)
}

func Parse(b []byte, dev bool) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Webhook.Secret == "" {
		return nil, errors.New("webhook.secret is required")
	}
	if cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.jwt_secret is required")
	}
	if !cfg.Mail.Disabled && cfg.Mail.Host == "" {
		return nil, errors.New("mail.host is required unless mail.disabled")
	}
	if cfg.Checkout.YearlyDiscountMonths < 0 || cfg.Checkout.YearlyDiscountMonths >= 12 {
		return nil, errors.New("checkout.yearly_discount_months must be in [0, 11]")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// applyEnv lets secrets live outside the file.
func applyEnv(cfg *Config) {
	overrides := []struct {
		env string
		dst *string
	}{
		{"DATABASE_URL", &cfg.Database.URL},
		{"REDIS_URL", &cfg.Redis.URL},
		{"SMTP_PASSWORD", &cfg.Mail.Password},
		{"WEBHOOK_SECRET", &cfg.Webhook.Secret},
		{"ADMIN_JWT_SECRET", &cfg.Admin.JWTSecret},
	}
	for _, o := range overrides {
		if v := os.Getenv(o.env); v != "" {
			*o.dst = v
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.HTTP.Port <= 0 {
		cfg.HTTP.Port = 8080
	}
	if cfg.HTTP.RequestTimeout <= 0 {
		cfg.HTTP.RequestTimeout = 15 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.TokenTTL <= 0 {
		cfg.Admin.TokenTTL = 12 * time.Hour
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
	if cfg.Mail.Port <= 0 {
		cfg.Mail.Port = 587
	}
	if cfg.Mail.Language == "" {
		cfg.Mail.Language = "en"
	}
	if cfg.Webhook.DedupeTTL <= 0 {
		cfg.Webhook.DedupeTTL = 24 * time.Hour
	}
	if cfg.Checkout.Currency == "" {
		cfg.Checkout.Currency = "IDR"
	}
	p := &cfg.Provisioning
	if p.Workers <= 0 {
		p.Workers = 4
	}
	if p.QueueSize <= 0 {
		p.QueueSize = 256
	}
	if p.RetryMaxElapsed <= 0 {
		p.RetryMaxElapsed = 2 * time.Minute
	}
	if p.ReconcileInterval <= 0 {
		p.ReconcileInterval = time.Minute
	}
	if p.StaleAfter <= 0 {
		p.StaleAfter = 5 * time.Minute
	}
	if p.BatchSize <= 0 {
		p.BatchSize = 50
	}
	if p.MaxFailures <= 0 {
		p.MaxFailures = 3
	}
	if cfg.Scheduler.ExpiryInterval <= 0 {
		cfg.Scheduler.ExpiryInterval = time.Hour
	}
	if cfg.Security.BcryptCost <= 0 {
		cfg.Security.BcryptCost = 12
	}
	if cfg.Security.TempPasswordLength < 8 {
		cfg.Security.TempPasswordLength = 12
	}
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}

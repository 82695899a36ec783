package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	URL          string `mapstructure:"url"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
}

type WhatsAppConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	APIVersion    string        `mapstructure:"api_version"`
	PhoneNumberID string        `mapstructure:"phone_number_id"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	Currency     string        `mapstructure:"currency"`
	LinkExpiry   time.Duration `mapstructure:"link_expiry"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

type SMTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	From string `mapstructure:"from"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	WhatsApp  WhatsAppConfig  `mapstructure:"whatsapp"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	SMTP      SMTPConfig      `mapstructure:"smtp"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Metrics   struct {
		Namespace string `mapstructure:"namespace"`
	} `mapstructure:"metrics"`
}

// Secrets are never read from the config file; they come from the
// environment only.
type Secrets struct {
	WhatsAppAccessToken   string `envconfig:"WHATSAPP_ACCESS_TOKEN"`
	WhatsAppVerifyToken   string `envconfig:"WHATSAPP_VERIFY_TOKEN"`
	RazorpayKeyID         string `envconfig:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `envconfig:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `envconfig:"RAZORPAY_WEBHOOK_SECRET"`
	ReplyTokenSecret      string `envconfig:"REPLY_TOKEN_SECRET"`
	SMTPUsername          string `envconfig:"SMTP_USERNAME"`
	SMTPPassword          string `envconfig:"SMTP_PASSWORD"`
	DatabasePassword      string `envconfig:"DATABASE_PASSWORD"`
}

// Load reads config.yml and overlays secrets from the environment.
func Load() (*Config, *Secrets, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/app")
	v.AddConfigPath("/app/config")

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	var secrets Secrets
	if err := envconfig.Process("", &secrets); err != nil {
		return nil, nil, fmt.Errorf("failed to read secrets from env: %w", err)
	}
	if secrets.DatabasePassword != "" {
		cfg.Database.Password = secrets.DatabasePassword
	}

	applyDefaults(&cfg)
	return &cfg, &secrets, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 15 * time.Second
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Payment.LinkExpiry == 0 {
		cfg.Payment.LinkExpiry = 10 * time.Minute
	}
	if cfg.Payment.PollInterval == 0 {
		cfg.Payment.PollInterval = 60 * time.Second
	}
	if cfg.RateLimit.RequestsPerSecond == 0 {
		cfg.RateLimit.RequestsPerSecond = 10
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = 20
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "bookingbot"
	}
}

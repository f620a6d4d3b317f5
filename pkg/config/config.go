package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	EnvPrefix = "SHOPWISH"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                = "SHOPWISH_APP_ENV"
	EnvPort                  = "SHOPWISH_APP_PORT"
	EnvLogLevel              = "SHOPWISH_LOG_LEVEL"
	EnvRedisURL              = "SHOPWISH_REDIS_URL"
	EnvRedisAddr             = "SHOPWISH_REDIS_ADDR"
	EnvShopifyWebhookSecret  = "SHOPWISH_SHOPIFY_WEBHOOK_SECRET"
	EnvShopifySchedulerToken = "SHOPWISH_SHOPIFY_SCHEDULER_TOKEN"
	EnvNotifyDedupWindow     = "SHOPWISH_NOTIFY_DEDUP_WINDOW"
	EnvNotifyRetention       = "SHOPWISH_NOTIFY_RETENTION"
	EnvDeliveryTimeout       = "SHOPWISH_DELIVERY_TIMEOUT"
	EnvDeliveryConcurrency   = "SHOPWISH_DELIVERY_CONCURRENCY"
	EnvSendgridAPIKey        = "SHOPWISH_SENDGRID_API_KEY"
	EnvSendgridFromEmail     = "SHOPWISH_SENDGRID_FROM_EMAIL"
	EnvReminderSchedule      = "SHOPWISH_REMINDER_SCHEDULE"
	EnvReminderStaleAfter    = "SHOPWISH_REMINDER_STALE_AFTER"
)

type Config struct {
	App           AppConfig
	Redis         RedisConfig
	Shopify       ShopifyConfig
	Webhooks      WebhooksConfig
	Notifications NotificationsConfig
	Delivery      DeliveryConfig
	Sendgrid      SendgridConfig
	Reminders     RemindersConfig
	CORS          CORSConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"SHOPWISH_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPWISH_APP_PORT" default:"3000"`
	LogLevel     string `envconfig:"SHOPWISH_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPWISH_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// RedisConfig is optional; without a URL or address the service falls back to
// in-process locks and idempotency markers.
type RedisConfig struct {
	URL          string        `envconfig:"SHOPWISH_REDIS_URL"`
	Address      string        `envconfig:"SHOPWISH_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPWISH_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPWISH_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPWISH_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPWISH_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPWISH_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPWISH_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPWISH_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint has been configured.
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.URL) != "" || strings.TrimSpace(r.Address) != ""
}

type ShopifyConfig struct {
	WebhookSecret  string `envconfig:"SHOPWISH_SHOPIFY_WEBHOOK_SECRET"`
	SchedulerToken string `envconfig:"SHOPWISH_SHOPIFY_SCHEDULER_TOKEN" required:"true"`
}

type WebhooksConfig struct {
	IdempotencyTTL time.Duration `envconfig:"SHOPWISH_WEBHOOK_IDEMPOTENCY_TTL" default:"24h"`
}

type NotificationsConfig struct {
	DedupWindow       time.Duration `envconfig:"SHOPWISH_NOTIFY_DEDUP_WINDOW" default:"0s"`
	DedupCapacity     int           `envconfig:"SHOPWISH_NOTIFY_DEDUP_CAPACITY" default:"10000"`
	LowStockThreshold int           `envconfig:"SHOPWISH_NOTIFY_LOW_STOCK_THRESHOLD" default:"5"`

	// Retention bounds how long sent notifications are kept; 0 keeps them forever.
	Retention time.Duration `envconfig:"SHOPWISH_NOTIFY_RETENTION" default:"720h"`
}

type DeliveryConfig struct {
	Timeout     time.Duration `envconfig:"SHOPWISH_DELIVERY_TIMEOUT" default:"10s"`
	Concurrency int           `envconfig:"SHOPWISH_DELIVERY_CONCURRENCY" default:"1"`
}

type SendgridConfig struct {
	APIKey               string `envconfig:"SHOPWISH_SENDGRID_API_KEY"`
	DefaultFrom          string `envconfig:"SHOPWISH_SENDGRID_FROM_EMAIL"`
	FromName             string `envconfig:"SHOPWISH_SENDGRID_FROM_NAME" default:"Wishlist Alerts"`
	CustomerEmailPattern string `envconfig:"SHOPWISH_CUSTOMER_EMAIL_PATTERN" default:"customer%s@example.com"`
}

// Enabled reports whether outbound email should go through SendGrid.
func (s SendgridConfig) Enabled() bool {
	return strings.TrimSpace(s.APIKey) != ""
}

type RemindersConfig struct {
	Schedule   string        `envconfig:"SHOPWISH_REMINDER_SCHEDULE" default:"0 9 * * *"`
	StaleAfter time.Duration `envconfig:"SHOPWISH_REMINDER_STALE_AFTER" default:"168h"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"SHOPWISH_CORS_ALLOWED_ORIGINS" default:"*"`
}

func (c *Config) validate() error {
	if c.Sendgrid.Enabled() && strings.TrimSpace(c.Sendgrid.DefaultFrom) == "" {
		return fmt.Errorf("%s is required when %s is set", EnvSendgridFromEmail, EnvSendgridAPIKey)
	}
	if c.Delivery.Timeout <= 0 {
		return fmt.Errorf("%s must be positive", EnvDeliveryTimeout)
	}
	if c.Delivery.Concurrency < 1 {
		return fmt.Errorf("%s must be at least 1", EnvDeliveryConcurrency)
	}
	if c.Notifications.DedupWindow < 0 {
		return fmt.Errorf("%s must be non-negative", EnvNotifyDedupWindow)
	}
	if c.Notifications.Retention < 0 {
		return fmt.Errorf("%s must be non-negative", EnvNotifyRetention)
	}
	if c.Reminders.StaleAfter <= 0 {
		return fmt.Errorf("%s must be positive", EnvReminderStaleAfter)
	}
	if strings.TrimSpace(c.Reminders.Schedule) == "" {
		return errors.New(EnvReminderSchedule + " is required")
	}
	return nil
}

// AngelaMos | 2026
// config.go

package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App       AppConfig                `koanf:"app"`
	Server    ServerConfig             `koanf:"server"`
	Database  DatabaseConfig           `koanf:"database"`
	Redis     RedisConfig              `koanf:"redis"`
	JWT       JWTConfig                `koanf:"jwt"`
	RateLimit RateLimitConfig          `koanf:"rate_limit"`
	CORS      CORSConfig               `koanf:"cors"`
	Log       LogConfig                `koanf:"log"`
	Otel      OtelConfig               `koanf:"otel"`
	LLM       LLMConfig                `koanf:"llm"`
	Payment   PaymentConfig            `koanf:"payment"`
	Archive   ArchiveConfig            `koanf:"archive"`
	Notify    NotifyConfig             `koanf:"notify"`
	Features  map[string]FeatureConfig `koanf:"features"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
	OwnerID     string `koanf:"owner_id"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
	AutoMigrate     bool          `koanf:"auto_migrate"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`

	GenerateRequests int           `koanf:"generate_requests"`
	GenerateWindow   time.Duration `koanf:"generate_window"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type LLMConfig struct {
	BaseURL     string        `koanf:"base_url"`
	APIKey      string        `koanf:"api_key"`
	Model       string        `koanf:"model"`
	Timeout     time.Duration `koanf:"timeout"`
	Temperature float64       `koanf:"temperature"`
}

type PaymentConfig struct {
	Provider           string `koanf:"provider"`
	Currency           string `koanf:"currency"`
	AccessToken        string `koanf:"access_token"`
	BaseURL            string `koanf:"base_url"`
	PayPalClientID     string `koanf:"paypal_client_id"`
	PayPalClientSecret string `koanf:"paypal_client_secret"`
	PayPalSandbox      bool   `koanf:"paypal_sandbox"`
	PayPalBaseURL      string `koanf:"paypal_base_url"`
	WebhookSecret      string `koanf:"webhook_secret"`
	NotificationURL    string `koanf:"notification_url"`
	SuccessURL         string `koanf:"success_url"`
	FailureURL         string `koanf:"failure_url"`
	PendingURL         string `koanf:"pending_url"`
}

type ArchiveConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type NotifyConfig struct {
	Driver  string `koanf:"driver"`
	AMQPURL string `koanf:"amqp_url"`
	Queue   string `koanf:"queue"`
}

// FeatureConfig is the per consultation kind access policy.
type FeatureConfig struct {
	AllowAnonymous bool `koanf:"allow_anonymous"`
	RequirePayment bool `koanf:"require_payment"`

	GenerateRequests int           `koanf:"generate_requests"`
	GenerateWindow   time.Duration `koanf:"generate_window"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		cfg, loadErr = load(configPath)
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
		return nil, fmt.Errorf("load env vars: %w", err)
	}

	c := &Config{}
	if err := k.Unmarshal("", c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validate(c); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

func Get() *Config {
	if cfg == nil {
		panic("config not loaded: call Load() first")
	}
	return cfg
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Mystic Backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "180s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.auto_migrate":       true,

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "24h",
		"jwt.issuer":              "mystic-backend",
		"jwt.audience":            "mystic-backend-api",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"rate_limit.requests": 100,
		"rate_limit.window":   "1m",
		"rate_limit.burst":    20,

		"rate_limit.generate_requests": 20,
		"rate_limit.generate_window":   "1h",

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "mystic-backend",

		"llm.base_url":    "https://api.openai.com/v1",
		"llm.model":       "gpt-4o-mini",
		"llm.timeout":     "120s",
		"llm.temperature": 0.9,

		"payment.provider":       "mercadopago",
		"payment.currency":       "BRL",
		"payment.base_url":       "https://api.mercadopago.com",
		"payment.paypal_sandbox": true,

		"archive.enabled": false,
		"archive.bucket":  "consultation-transcripts",
		"archive.use_ssl": true,

		"notify.driver": "log",
		"notify.queue":  "owner.notifications",

		"features.tarot.allow_anonymous":      false,
		"features.tarot.require_payment":      false,
		"features.tarot.generate_requests":    6,
		"features.oracle.generate_requests":   10,
		"features.dream.allow_anonymous":      true,
		"features.astral.allow_anonymous":     false,
		"features.oracle.allow_anonymous":     false,
		"features.radionic.allow_anonymous":   true,
		"features.energy.allow_anonymous":     true,
		"features.numerology.allow_anonymous": false,
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"DATABASE_AUTO_MIGRATE":       "database.auto_migrate",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"OWNER_ID":                    "app.owner_id",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"LLM_BASE_URL":                "llm.base_url",
	"LLM_API_KEY":                 "llm.api_key",
	"LLM_MODEL":                   "llm.model",
	"LLM_TIMEOUT":                 "llm.timeout",
	"PAYMENT_PROVIDER":            "payment.provider",
	"PAYMENT_CURRENCY":            "payment.currency",
	"MERCADOPAGO_ACCESS_TOKEN":    "payment.access_token",
	"MERCADOPAGO_BASE_URL":        "payment.base_url",
	"PAYPAL_CLIENT_ID":            "payment.paypal_client_id",
	"PAYPAL_CLIENT_SECRET":        "payment.paypal_client_secret",
	"PAYPAL_SANDBOX":              "payment.paypal_sandbox",
	"PAYPAL_BASE_URL":             "payment.paypal_base_url",
	"PAYMENT_WEBHOOK_SECRET":      "payment.webhook_secret",
	"PAYMENT_NOTIFICATION_URL":    "payment.notification_url",
	"PAYMENT_SUCCESS_URL":         "payment.success_url",
	"PAYMENT_FAILURE_URL":         "payment.failure_url",
	"PAYMENT_PENDING_URL":         "payment.pending_url",
	"ARCHIVE_ENABLED":             "archive.enabled",
	"ARCHIVE_ENDPOINT":            "archive.endpoint",
	"ARCHIVE_ACCESS_KEY":          "archive.access_key",
	"ARCHIVE_SECRET_KEY":          "archive.secret_key",
	"ARCHIVE_BUCKET":              "archive.bucket",
	"ARCHIVE_USE_SSL":             "archive.use_ssl",
	"NOTIFY_DRIVER":               "notify.driver",
	"NOTIFY_AMQP_URL":             "notify.amqp_url",
	"NOTIFY_QUEUE":                "notify.queue",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.LLM.BaseURL == "" || c.LLM.Model == "" {
		return fmt.Errorf("LLM_BASE_URL and LLM_MODEL are required")
	}

	switch c.Payment.Provider {
	case "mercadopago":
		if c.IsProduction() && c.Payment.AccessToken == "" {
			return fmt.Errorf("MERCADOPAGO_ACCESS_TOKEN is required in production")
		}
	case "paypal":
		if c.Payment.PayPalClientID == "" || c.Payment.PayPalClientSecret == "" {
			return fmt.Errorf("PAYPAL_CLIENT_ID and PAYPAL_CLIENT_SECRET are required")
		}
	default:
		return fmt.Errorf("unsupported payment provider %q", c.Payment.Provider)
	}

	if c.IsProduction() && c.Payment.WebhookSecret == "" {
		return fmt.Errorf("PAYMENT_WEBHOOK_SECRET is required in production")
	}

	if c.Archive.Enabled && (c.Archive.Endpoint == "" || c.Archive.Bucket == "") {
		return fmt.Errorf("ARCHIVE_ENDPOINT and ARCHIVE_BUCKET are required when archive is enabled")
	}

	switch c.Notify.Driver {
	case "log":
	case "amqp":
		if c.Notify.AMQPURL == "" {
			return fmt.Errorf("NOTIFY_AMQP_URL is required for the amqp notifier")
		}
	default:
		return fmt.Errorf("unsupported notify driver %q", c.Notify.Driver)
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.IsProduction() {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// Feature returns the policy for a consultation kind; unknown kinds get
// the zero policy, which denies anonymous use.
func (c *Config) Feature(kind string) FeatureConfig {
	return c.Features[kind]
}

// GenerateQuota is how many generations one caller may run for a kind per
// window. Kinds without their own numbers use rate_limit.generate_*.
func (c *Config) GenerateQuota(kind string) (int, time.Duration) {
	requests, window := c.RateLimit.GenerateRequests, c.RateLimit.GenerateWindow
	if f, ok := c.Features[kind]; ok {
		if f.GenerateRequests > 0 {
			requests = f.GenerateRequests
		}
		if f.GenerateWindow > 0 {
			window = f.GenerateWindow
		}
	}
	return requests, window
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

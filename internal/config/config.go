// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store backends.
const (
	StoreRedis    = "redis"
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Notifier targets. An empty NOTIFIER means no delivery target (dev log only in dev mode).
const (
	NotifierNone    = ""
	NotifierGateway = "gateway"
	NotifierKafka   = "kafka"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC trigger server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// HTTPAddr is the address of the HTTP trigger server; empty disables it.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// StoreBackend selects the secret store: redis, postgres or memory.
	StoreBackend   string `mapstructure:"STORE_BACKEND"`
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisDB        int    `mapstructure:"REDIS_DB"`
	StoreKeyPrefix string `mapstructure:"STORE_KEY_PREFIX"`
	// DatabaseURL is the Postgres DSN; required when StoreBackend is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// StoreSweepInterval is how often expired Postgres records are removed (e.g. "1m").
	StoreSweepInterval string `mapstructure:"STORE_SWEEP_INTERVAL"`

	// OTPTTL is the code validity window (e.g. "5m").
	OTPTTL string `mapstructure:"OTP_TTL"`
	// OTPDigestSecret, when set, keys code digests with HMAC-SHA256.
	OTPDigestSecret string `mapstructure:"OTP_DIGEST_SECRET"`
	// OTPVerifyFailOpen accepts a digest match when the store is unreachable during verify.
	OTPVerifyFailOpen bool `mapstructure:"OTP_VERIFY_FAIL_OPEN"`
	// OTPDevMode logs the plaintext code and serves it on GET /dev/otp/{subject}. Must not be
	// true when Env is production.
	OTPDevMode bool `mapstructure:"OTP_DEV_MODE"`

	// Notifier selects the delivery target: gateway, kafka or empty.
	Notifier            string `mapstructure:"NOTIFIER"`
	NotifyGatewayURL    string `mapstructure:"NOTIFY_GATEWAY_URL"`
	NotifyGatewayAPIKey string `mapstructure:"NOTIFY_GATEWAY_API_KEY"`
	NotifyGatewaySender string `mapstructure:"NOTIFY_GATEWAY_SENDER"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers     string `mapstructure:"KAFKA_BROKERS"`
	NotifyKafkaTopic string `mapstructure:"NOTIFY_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the delivery worker.
	KafkaGroupID     string  `mapstructure:"KAFKA_GROUP_ID"`
	NotifyWorkers    int     `mapstructure:"NOTIFY_WORKERS"`
	NotifyQueueSize  int     `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifyTimeout    string  `mapstructure:"NOTIFY_TIMEOUT"`
	NotifyRatePerSec float64 `mapstructure:"NOTIFY_RATE_PER_SEC"`

	Region        string `mapstructure:"REGION"`
	DefaultLocale string `mapstructure:"DEFAULT_LOCALE"`

	// TriggerSigningKey is the HS256 key shared with the identity provider. Empty disables
	// caller authentication; required in production.
	TriggerSigningKey string `mapstructure:"TRIGGER_SIGNING_KEY"`
	TriggerIssuer     string `mapstructure:"TRIGGER_ISSUER"`
	TriggerAudience   string `mapstructure:"TRIGGER_AUDIENCE"`
	// TriggerDeadline bounds each trigger call (e.g. "5s").
	TriggerDeadline string `mapstructure:"TRIGGER_DEADLINE"`

	// Telemetry (optional). When the endpoint is empty, providers are not installed.
	OTelEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTelServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("HTTP_ADDR", ":8081")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_BACKEND", StoreRedis)
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("STORE_KEY_PREFIX", "otpc")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("STORE_SWEEP_INTERVAL", "1m")
	v.SetDefault("OTP_TTL", "5m")
	v.SetDefault("OTP_DIGEST_SECRET", "")
	v.SetDefault("OTP_VERIFY_FAIL_OPEN", true)
	v.SetDefault("OTP_DEV_MODE", false)
	v.SetDefault("NOTIFIER", NotifierNone)
	v.SetDefault("NOTIFY_GATEWAY_URL", "")
	v.SetDefault("NOTIFY_GATEWAY_API_KEY", "")
	v.SetDefault("NOTIFY_GATEWAY_SENDER", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("NOTIFY_KAFKA_TOPIC", "otp-delivery")
	v.SetDefault("KAFKA_GROUP_ID", "otp-delivery-worker")
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_QUEUE_SIZE", 256)
	v.SetDefault("NOTIFY_TIMEOUT", "5s")
	v.SetDefault("NOTIFY_RATE_PER_SEC", 20)
	v.SetDefault("REGION", "ap-south-1")
	v.SetDefault("DEFAULT_LOCALE", "en")
	v.SetDefault("TRIGGER_SIGNING_KEY", "")
	v.SetDefault("TRIGGER_ISSUER", "identity-provider")
	v.SetDefault("TRIGGER_AUDIENCE", "otp-ceremony")
	v.SetDefault("TRIGGER_DEADLINE", "5s")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "otp-ceremony")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	cfg.StoreBackend = strings.ToLower(strings.TrimSpace(cfg.StoreBackend))
	cfg.Notifier = strings.ToLower(strings.TrimSpace(cfg.Notifier))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}

	switch c.StoreBackend {
	case StoreRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR must be set when STORE_BACKEND=redis")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: STORE_BACKEND %q is not one of redis, postgres, memory", c.StoreBackend)
	}

	switch c.Notifier {
	case NotifierNone:
	case NotifierGateway:
		if c.NotifyGatewayURL == "" || c.NotifyGatewayAPIKey == "" {
			return errors.New("config: NOTIFY_GATEWAY_URL and NOTIFY_GATEWAY_API_KEY must be set when NOTIFIER=gateway")
		}
	case NotifierKafka:
		if len(c.KafkaBrokersList()) == 0 {
			return errors.New("config: KAFKA_BROKERS must be set when NOTIFIER=kafka")
		}
		if c.NotifyKafkaTopic == "" {
			return errors.New("config: NOTIFY_KAFKA_TOPIC must be set when NOTIFIER=kafka")
		}
	default:
		return fmt.Errorf("config: NOTIFIER %q is not one of gateway, kafka or empty", c.Notifier)
	}

	if c.IsProduction() {
		if c.OTPDevMode {
			return errors.New("config: OTP_DEV_MODE must not be true when APP_ENV=production")
		}
		if c.TriggerSigningKey == "" {
			return errors.New("config: TRIGGER_SIGNING_KEY must be set when APP_ENV=production")
		}
		if c.StoreBackend == StoreMemory {
			return errors.New("config: STORE_BACKEND=memory is not allowed when APP_ENV=production")
		}
	}

	if c.NotifyWorkers < 1 {
		return errors.New("config: NOTIFY_WORKERS must be at least 1")
	}
	if c.NotifyQueueSize < 1 {
		return errors.New("config: NOTIFY_QUEUE_SIZE must be at least 1")
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// ChallengeTTL parses OTPTTL. Returns 5m if unset or invalid.
func (c *Config) ChallengeTTL() time.Duration {
	return parseDuration(c.OTPTTL, 5*time.Minute)
}

// Deadline parses TriggerDeadline. Returns 5s if unset or invalid.
func (c *Config) Deadline() time.Duration {
	return parseDuration(c.TriggerDeadline, 5*time.Second)
}

// DeliveryTimeout parses NotifyTimeout. Returns 5s if unset or invalid.
func (c *Config) DeliveryTimeout() time.Duration {
	return parseDuration(c.NotifyTimeout, 5*time.Second)
}

// SweepInterval parses StoreSweepInterval. Returns 1m if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	return parseDuration(c.StoreSweepInterval, time.Minute)
}

// CallerAuthEnabled reports whether trigger calls must carry a signed caller token.
func (c *Config) CallerAuthEnabled() bool {
	return c != nil && c.TriggerSigningKey != ""
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil || c.KafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.KafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

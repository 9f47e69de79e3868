package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":8080" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":8080")
	}
	if cfg.HTTPAddr != ":8081" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8081")
	}
	if cfg.StoreBackend != StoreRedis {
		t.Errorf("StoreBackend = %q, want redis", cfg.StoreBackend)
	}
	if cfg.RedisAddr != "localhost:6379" || cfg.StoreKeyPrefix != "otpc" {
		t.Errorf("redis defaults = %q/%q", cfg.RedisAddr, cfg.StoreKeyPrefix)
	}
	if !cfg.OTPVerifyFailOpen {
		t.Error("OTPVerifyFailOpen should default to true")
	}
	if cfg.OTPDevMode {
		t.Error("OTPDevMode should default to false")
	}
	if cfg.ChallengeTTL() != 5*time.Minute {
		t.Errorf("ChallengeTTL = %v, want 5m", cfg.ChallengeTTL())
	}
	if cfg.Deadline() != 5*time.Second {
		t.Errorf("Deadline = %v, want 5s", cfg.Deadline())
	}
	if cfg.NotifyKafkaTopic != "otp-delivery" || cfg.KafkaGroupID != "otp-delivery-worker" {
		t.Errorf("kafka defaults = %q/%q", cfg.NotifyKafkaTopic, cfg.KafkaGroupID)
	}
	if cfg.NotifyWorkers != 4 || cfg.NotifyQueueSize != 256 || cfg.NotifyRatePerSec != 20 {
		t.Errorf("dispatcher defaults = %d/%d/%v", cfg.NotifyWorkers, cfg.NotifyQueueSize, cfg.NotifyRatePerSec)
	}
	if cfg.Region != "ap-south-1" || cfg.DefaultLocale != "en" {
		t.Errorf("region/locale = %q/%q", cfg.Region, cfg.DefaultLocale)
	}
	if cfg.TriggerIssuer != "identity-provider" || cfg.TriggerAudience != "otp-ceremony" {
		t.Errorf("trigger iss/aud = %q/%q", cfg.TriggerIssuer, cfg.TriggerAudience)
	}
	if cfg.CallerAuthEnabled() {
		t.Error("caller auth should be disabled without a signing key")
	}
	if cfg.OTelServiceName != "otp-ceremony" {
		t.Errorf("OTelServiceName = %q", cfg.OTelServiceName)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("GRPC_ADDR", ":9090")
	os.Setenv("STORE_BACKEND", "Memory")
	os.Setenv("OTP_TTL", "90s")
	os.Setenv("OTP_VERIFY_FAIL_OPEN", "false")
	os.Setenv("TRIGGER_SIGNING_KEY", "k")
	os.Setenv("NOTIFY_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GRPCAddr != ":9090" {
		t.Errorf("GRPCAddr = %q, want %q", cfg.GRPCAddr, ":9090")
	}
	if cfg.StoreBackend != StoreMemory {
		t.Errorf("StoreBackend = %q, want memory", cfg.StoreBackend)
	}
	if cfg.ChallengeTTL() != 90*time.Second {
		t.Errorf("ChallengeTTL = %v, want 90s", cfg.ChallengeTTL())
	}
	if cfg.OTPVerifyFailOpen {
		t.Error("OTPVerifyFailOpen should be overridden to false")
	}
	if !cfg.CallerAuthEnabled() {
		t.Error("caller auth should be enabled with a signing key")
	}
	if cfg.NotifyWorkers != 8 {
		t.Errorf("NotifyWorkers = %d, want 8", cfg.NotifyWorkers)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown store", map[string]string{"STORE_BACKEND": "dynamo"}, "STORE_BACKEND"},
		{"postgres without dsn", map[string]string{"STORE_BACKEND": "postgres"}, "DATABASE_URL"},
		{"unknown notifier", map[string]string{"NOTIFIER": "pigeon"}, "NOTIFIER"},
		{"gateway without url", map[string]string{"NOTIFIER": "gateway", "NOTIFY_GATEWAY_API_KEY": "k"}, "NOTIFY_GATEWAY_URL"},
		{"kafka without brokers", map[string]string{"NOTIFIER": "kafka", "KAFKA_BROKERS": " , "}, "KAFKA_BROKERS"},
		{"dev mode in production", map[string]string{"APP_ENV": "production", "OTP_DEV_MODE": "true", "TRIGGER_SIGNING_KEY": "k"}, "OTP_DEV_MODE"},
		{"production without signing key", map[string]string{"APP_ENV": "production"}, "TRIGGER_SIGNING_KEY"},
		{"memory store in production", map[string]string{"APP_ENV": "production", "TRIGGER_SIGNING_KEY": "k", "STORE_BACKEND": "memory"}, "STORE_BACKEND"},
		{"zero workers", map[string]string{"NOTIFY_WORKERS": "0"}, "NOTIFY_WORKERS"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tc.env {
				os.Setenv(k, v)
			}
			_, err := Load()
			if err == nil {
				t.Fatalf("Load: want error mentioning %s", tc.want)
			}
			if !strings.HasPrefix(err.Error(), "config: ") || !strings.Contains(err.Error(), tc.want) {
				t.Errorf("err = %q, want config: ... %s", err, tc.want)
			}
		})
	}
}

func TestLoad_ProductionValid(t *testing.T) {
	os.Clearenv()
	os.Setenv("APP_ENV", "production")
	os.Setenv("TRIGGER_SIGNING_KEY", "secret")
	os.Setenv("NOTIFIER", "kafka")
	os.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction should be true")
	}
	brokers := cfg.KafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "k1:9092" || brokers[1] != "k2:9092" {
		t.Errorf("KafkaBrokersList = %v", brokers)
	}
}

func TestDurationHelpers_FallBack(t *testing.T) {
	c := &Config{OTPTTL: "nope", TriggerDeadline: "-1s", NotifyTimeout: "", StoreSweepInterval: "0"}
	if c.ChallengeTTL() != 5*time.Minute {
		t.Errorf("ChallengeTTL = %v", c.ChallengeTTL())
	}
	if c.Deadline() != 5*time.Second {
		t.Errorf("Deadline = %v", c.Deadline())
	}
	if c.DeliveryTimeout() != 5*time.Second {
		t.Errorf("DeliveryTimeout = %v", c.DeliveryTimeout())
	}
	if c.SweepInterval() != time.Minute {
		t.Errorf("SweepInterval = %v", c.SweepInterval())
	}
}

func TestKafkaBrokersList_Nil(t *testing.T) {
	var c *Config
	if c.KafkaBrokersList() != nil {
		t.Error("nil config should have no brokers")
	}
}

// Worker consumes code deliveries from Kafka and sends them through the delivery gateway.
// Set KAFKA_BROKERS, NOTIFY_KAFKA_TOPIC, KAFKA_GROUP_ID, NOTIFY_GATEWAY_URL and
// NOTIFY_GATEWAY_API_KEY. NOTIFY_RATE_PER_SEC paces gateway sends.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"otp-ceremony/backend/internal/config"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/notify/gateway"
	"otp-ceremony/backend/internal/notify/kafka"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("config")
	}
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.OTelServiceName + "-worker",
		Env:     cfg.Env,
	})
	log := logger.Named("worker")

	brokers := cfg.KafkaBrokersList()
	if len(brokers) == 0 {
		log.Fatal().Msg("worker: KAFKA_BROKERS is required")
	}
	if cfg.NotifyGatewayURL == "" || cfg.NotifyGatewayAPIKey == "" {
		log.Fatal().Msg("worker: NOTIFY_GATEWAY_URL and NOTIFY_GATEWAY_API_KEY are required")
	}

	reader := kafka.NewReader(brokers, cfg.NotifyKafkaTopic, cfg.KafkaGroupID)
	consumer := kafka.NewConsumer(reader, gateway.New(cfg.NotifyGatewayAPIKey, cfg.NotifyGatewayURL, cfg.NotifyGatewaySender), kafka.ConsumerConfig{
		RatePerSec: cfg.NotifyRatePerSec,
		Timeout:    cfg.DeliveryTimeout(),
		MaxAge:     cfg.ChallengeTTL(),
		Logger:     log,
	})
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().
		Str("topic", cfg.NotifyKafkaTopic).
		Str("group", cfg.KafkaGroupID).
		Float64("rate_per_sec", cfg.NotifyRatePerSec).
		Msg("worker: consuming deliveries")
	if err := consumer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("worker: stopped with error")
		return
	}
	log.Info().Msg("worker: stopped")
}

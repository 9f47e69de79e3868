package main

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"otp-ceremony/backend/internal/challenge/repository"
	"otp-ceremony/backend/internal/config"
	"otp-ceremony/backend/internal/db"
	"otp-ceremony/backend/internal/devotp"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/notify"
	"otp-ceremony/backend/internal/notify/gateway"
	"otp-ceremony/backend/internal/notify/kafka"
)

type pingRepository interface {
	repository.Repository
	repository.Pinger
}

type store struct {
	repo  pingRepository
	sweep func(ctx context.Context, interval time.Duration)
	close func()
}

func openStore(ctx context.Context, cfg *config.Config) (*store, error) {
	switch cfg.StoreBackend {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		repo := repository.NewRedisRepository(client, cfg.StoreKeyPrefix)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := repo.Ping(pingCtx); err != nil {
			// not fatal: health reports NOT_SERVING and verify degrades per OTP_VERIFY_FAIL_OPEN
			logger.Named("store").Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis not reachable at startup")
		}
		return &store{repo: repo, close: func() { _ = client.Close() }}, nil
	case config.StorePostgres:
		conn, err := db.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		repo := repository.NewPostgresRepository(conn)
		return &store{
			repo:  repo,
			sweep: func(ctx context.Context, interval time.Duration) { sweepExpired(ctx, repo, interval) },
			close: func() { _ = conn.Close() },
		}, nil
	case config.StoreMemory:
		logger.Named("store").Warn().Msg("using the in-memory challenge store; codes are lost on restart")
		return &store{repo: repository.NewMemoryRepository(), close: func() {}}, nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

func sweepExpired(ctx context.Context, repo *repository.PostgresRepository, interval time.Duration) {
	log := logger.Named("store.sweep")
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := repo.DeleteExpired(ctx)
			if err != nil {
				log.Warn().Err(err).Msg("expired record sweep failed")
				continue
			}
			if n > 0 {
				log.Debug().Int64("removed", n).Msg("expired records removed")
			}
		}
	}
}

type deliveryTarget struct {
	notifier notify.Notifier
	close    func()
}

// buildNotifier returns the configured delivery target. In dev mode with no target, codes go
// to the dev log notifier and the returned dev store serves them; a configured target always
// wins and dev mode is then ignored.
func buildNotifier(cfg *config.Config) (*deliveryTarget, devotp.Store, error) {
	t := &deliveryTarget{close: func() {}}
	switch cfg.Notifier {
	case config.NotifierGateway:
		t.notifier = gateway.New(cfg.NotifyGatewayAPIKey, cfg.NotifyGatewayURL, cfg.NotifyGatewaySender)
	case config.NotifierKafka:
		p, err := kafka.NewPublisher(cfg.KafkaBrokersList(), cfg.NotifyKafkaTopic)
		if err != nil {
			return nil, nil, err
		}
		t.notifier = p
		t.close = func() { _ = p.Close() }
	default:
		t.notifier = notify.NoTarget{}
	}

	if cfg.Notifier != config.NotifierNone {
		if cfg.OTPDevMode {
			logger.Named("notify").Warn().Str("notifier", cfg.Notifier).Msg("OTP_DEV_MODE ignored; a delivery target is configured")
		}
		return t, nil, nil
	}
	if !cfg.OTPDevMode {
		logger.Named("notify").Warn().Msg("NOTIFIER is empty; codes are not delivered")
		return t, nil, nil
	}
	devStore := devotp.NewMemoryStore()
	t.notifier = notify.NewDevLog(devStore, cfg.ChallengeTTL(), logger.Named("notify.dev"))
	return t, devStore, nil
}

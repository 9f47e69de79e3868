// Server runs the OTP ceremony triggers over gRPC (GRPC_ADDR) and HTTP (HTTP_ADDR).
package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"otp-ceremony/backend/internal/challenge"
	"otp-ceremony/backend/internal/config"
	devhandler "otp-ceremony/backend/internal/devotp/handler"
	healthhandler "otp-ceremony/backend/internal/health/handler"
	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/notify"
	"otp-ceremony/backend/internal/security"
	"otp-ceremony/backend/internal/server"
	"otp-ceremony/backend/internal/telemetry"
	telemetryotel "otp-ceremony/backend/internal/telemetry/otel"
	"otp-ceremony/backend/internal/trigger"
	triggerhandler "otp-ceremony/backend/internal/trigger/handler"
)

const (
	healthInterval  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get().Fatal().Err(err).Msg("config")
	}
	logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: cfg.OTelServiceName,
		Env:     cfg.Env,
	})
	log := logger.Named("server")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, telemetryotel.Options{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.OTelServiceName,
		Region:      cfg.Region,
		Env:         cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry providers")
	}
	providers.SetGlobal()

	st, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.StoreBackend).Msg("challenge store")
	}
	defer st.close()

	target, devStore, err := buildNotifier(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("notifier")
	}
	defer target.close()
	dispatcher := notify.NewDispatcher(target.notifier, notify.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.DeliveryTimeout(),
		Logger:    logger.Named("notify"),
		Meter:     providers.MeterProvider.Meter("otp-ceremony/notify"),
	})

	hasher, err := challenge.NewHasher(cfg.OTPDigestSecret)
	if err != nil {
		log.Fatal().Err(err).Msg("digest key")
	}
	if !hasher.Keyed() {
		log.Warn().Msg("OTP_DIGEST_SECRET is empty; challenge digests are unkeyed SHA-256")
	}
	if !cfg.OTPVerifyFailOpen {
		log.Info().Msg("verify is fail-closed; store outages reject answers")
	}
	issuer := challenge.NewIssuer(st.repo, dispatcher, hasher, challenge.NewPrompts(cfg.DefaultLocale), cfg.ChallengeTTL(), logger.Named("challenge.issuer"))
	verifier := challenge.NewVerifier(st.repo, hasher, cfg.OTPVerifyFailOpen, logger.Named("challenge.verifier"))

	metrics, err := telemetry.NewMetrics(providers.MeterProvider)
	if err != nil {
		log.Fatal().Err(err).Msg("telemetry metrics")
	}
	recorder := telemetry.NewRecorder(metrics, telemetryotel.NewEventEmitter(providers.LoggerProvider), cfg.Region)
	svc := trigger.NewService(issuer, verifier, recorder, cfg.Deadline(), logger.Named("trigger"))

	var validator *security.CallerValidator
	if cfg.CallerAuthEnabled() {
		validator, err = security.NewCallerValidator(cfg.TriggerSigningKey, cfg.TriggerIssuer, cfg.TriggerAudience)
		if err != nil {
			log.Fatal().Err(err).Msg("caller validator")
		}
	} else {
		log.Warn().Msg("TRIGGER_SIGNING_KEY is empty; trigger calls are not authenticated")
	}

	health := healthhandler.NewServer(st.repo, triggerhandler.ServiceName)
	go health.Run(ctx, healthInterval)
	if st.sweep != nil {
		go st.sweep(ctx, cfg.SweepInterval())
	}

	grpcServer := server.NewGRPCServer(server.Deps{
		Trigger:   triggerhandler.NewGRPCServer(svc),
		Health:    health,
		Validator: validator,
		Logger:    logger.Named("grpc"),
	})
	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatal().Err(err).Str("addr", cfg.GRPCAddr).Msg("listen")
	}
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		if err := grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("grpc serve")
			stop()
		}
	}()

	var httpServer *http.Server
	if cfg.HTTPAddr != "" {
		opts := triggerhandler.RouterOptions{
			Validator: validator,
			Health:    health,
			Logger:    logger.Named("http"),
			Slow:      500 * time.Millisecond,
		}
		if cfg.OTPDevMode && devStore != nil {
			log.Warn().Msg("DEV MODE ONLY: plaintext codes are logged and served on /dev/otp/{subject}")
			opts.Dev = devhandler.New(devStore)
		}
		httpServer = &http.Server{
			Addr:              cfg.HTTPAddr,
			Handler:           triggerhandler.NewRouter(svc, opts),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
		}
		go func() {
			log.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP server listening")
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("http serve")
				stop()
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down...")
	health.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if httpServer != nil {
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http shutdown")
		}
	}
	grpcServer.GracefulStop()

	if err := dispatcher.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Uint64("dropped", dispatcher.Dropped()).Msg("delivery drain incomplete")
	}
	// let in-flight telemetry emits finish before the exporters go away
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("telemetry shutdown")
	}
	log.Info().Msg("stopped")
}

package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"golang.org/x/time/rate"

	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/notify"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// ConsumerConfig tunes the delivery worker.
type ConsumerConfig struct {
	// RatePerSec caps gateway sends; <= 0 is unlimited.
	RatePerSec float64
	// Timeout bounds one Notify call.
	Timeout time.Duration
	// MaxAge drops deliveries older than the code validity window.
	MaxAge time.Duration
	// Attempts is the number of sends tried for a temporary failure.
	Attempts int
	Logger   *logger.Logger
}

// Consumer reads deliveries from the topic and hands them to a Notifier.
type Consumer struct {
	reader   messageReader
	notifier notify.Notifier
	limiter  *rate.Limiter
	cfg      ConsumerConfig
	log      *logger.Logger
	nowF     func() time.Time
	backoff  time.Duration
}

// NewReader returns a group reader for the delivery topic.
func NewReader(brokers []string, topic, groupID string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		CommitInterval: time.Second,
	})
}

// NewConsumer returns a Consumer that reads from reader (typically NewReader).
func NewConsumer(reader messageReader, notifier notify.Notifier, cfg ConsumerConfig) *Consumer {
	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = int(cfg.RatePerSec)
		if burst < 1 {
			burst = 1
		}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Named("worker")
	}
	return &Consumer{
		reader:   reader,
		notifier: notifier,
		limiter:  rate.NewLimiter(limit, burst),
		cfg:      cfg,
		log:      cfg.Logger,
		nowF:     func() time.Time { return time.Now().UTC() },
		backoff:  200 * time.Millisecond,
	}
}

// Run consumes until ctx is canceled. It returns nil on cancellation.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		km, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error().Err(err).Msg("kafka read error")
			continue
		}
		c.handle(ctx, km)
	}
}

func (c *Consumer) handle(ctx context.Context, km kafka.Message) {
	msg, err := Decode(km.Value)
	if err != nil {
		c.log.Error().Err(err).Int64("offset", km.Offset).Msg("skipping undeliverable payload")
		return
	}
	log := logger.C(logger.WithRequestID(ctx, msg.RequestID), c.log)
	if c.cfg.MaxAge > 0 && !msg.CreatedAt.IsZero() && c.nowF().Sub(msg.CreatedAt) > c.cfg.MaxAge {
		log.Warn().Str("delivery_id", msg.ID).Msg("skipping expired delivery")
		return
	}

	for attempt := 1; attempt <= c.cfg.Attempts; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}
		sendCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		err = c.notifier.Notify(sendCtx, msg)
		cancel()
		if err == nil {
			log.Debug().Str("delivery_id", msg.ID).Int("attempt", attempt).Msg("delivery sent")
			return
		}
		if !temporary(err) || attempt == c.cfg.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.backoff * time.Duration(attempt)):
		}
	}
	log.Error().Err(err).Str("delivery_id", msg.ID).Str("subject_hash", logger.SubjectHash(msg.Subject)).Msg("delivery failed")
}

func temporary(err error) bool {
	var t interface{ Temporary() bool }
	if errors.As(err, &t) {
		return t.Temporary()
	}
	return errors.Is(err, context.DeadlineExceeded)
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

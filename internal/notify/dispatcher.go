package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"otp-ceremony/backend/internal/logger"
)

// DispatcherConfig controls the delivery worker pool.
type DispatcherConfig struct {
	Workers   int
	QueueSize int
	// Timeout bounds a single Notify call. Deliveries never inherit the caller's deadline.
	Timeout time.Duration
	Logger  *logger.Logger
	Meter   metric.Meter
}

// Dispatcher queues deliveries and runs them on a fixed pool of workers. Dispatch never
// blocks; when the queue is full the delivery is dropped and counted.
type Dispatcher struct {
	n       Notifier
	cfg     DispatcherConfig
	ch      chan Message
	done    chan struct{}
	wg      sync.WaitGroup
	log     *logger.Logger
	nowF    func() time.Time
	dropped atomic.Uint64

	// mu orders Dispatch sends against Close so nothing is queued after the workers drain.
	mu     sync.RWMutex
	closed bool

	droppedCounter metric.Int64Counter
	sentCounter    metric.Int64Counter
}

// NewDispatcher starts cfg.Workers workers delivering through n.
func NewDispatcher(n Notifier, cfg DispatcherConfig) *Dispatcher {
	if n == nil {
		n = NoTarget{}
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Named("notify")
	}
	if cfg.Meter == nil {
		cfg.Meter = otel.Meter("otp-ceremony/notify")
	}
	d := &Dispatcher{
		n:    n,
		cfg:  cfg,
		ch:   make(chan Message, cfg.QueueSize),
		done: make(chan struct{}),
		log:  cfg.Logger,
		nowF: func() time.Time { return time.Now().UTC() },
	}
	d.droppedCounter, _ = cfg.Meter.Int64Counter("otp.notify.dropped",
		metric.WithDescription("Deliveries dropped because the queue was full or closed"))
	d.sentCounter, _ = cfg.Meter.Int64Counter("otp.notify.sent",
		metric.WithDescription("Delivery attempts by result"))

	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.run()
	}
	return d
}

// Dispatch queues a delivery of code to subject. ctx only contributes the request id.
func (d *Dispatcher) Dispatch(ctx context.Context, subject, code string) {
	msg := Message{
		ID:        uuid.NewString(),
		Subject:   subject,
		Code:      code,
		RequestID: logger.RequestID(ctx),
		CreatedAt: d.nowF(),
	}
	d.mu.RLock()
	reason := ""
	if d.closed {
		reason = "closed"
	} else {
		select {
		case d.ch <- msg:
		default:
			reason = "queue_full"
		}
	}
	d.mu.RUnlock()
	if reason != "" {
		d.drop(ctx, msg, reason)
	}
}

func (d *Dispatcher) drop(ctx context.Context, msg Message, reason string) {
	d.dropped.Add(1)
	if d.droppedCounter != nil {
		d.droppedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
	}
	logger.C(ctx, d.log).Warn().
		Str("delivery_id", msg.ID).
		Str("subject_hash", logger.SubjectHash(msg.Subject)).
		Str("reason", reason).
		Msg("delivery dropped")
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case msg := <-d.ch:
			d.deliver(msg)
		case <-d.done:
			for {
				select {
				case msg := <-d.ch:
					d.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) deliver(msg Message) {
	ctx, cancel := context.WithTimeout(logger.WithRequestID(context.Background(), msg.RequestID), d.cfg.Timeout)
	defer cancel()

	log := logger.C(ctx, d.log)
	err := d.n.Notify(ctx, msg)
	result := "ok"
	if err != nil {
		result = "error"
		log.Error().Err(err).Str("delivery_id", msg.ID).Str("subject_hash", logger.SubjectHash(msg.Subject)).Msg("delivery failed")
	} else {
		log.Debug().Str("delivery_id", msg.ID).Msg("delivery sent")
	}
	if d.sentCounter != nil {
		d.sentCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
	}
}

// Close stops accepting deliveries and waits for queued ones to finish, or for ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.done)
	}
	d.mu.Unlock()
	waited := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(waited)
	}()
	select {
	case <-waited:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dropped returns the number of deliveries dropped so far.
func (d *Dispatcher) Dropped() uint64 {
	return d.dropped.Load()
}

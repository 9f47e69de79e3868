package kafka

import (
	"context"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"

	"otp-ceremony/backend/internal/logger"
	"otp-ceremony/backend/internal/notify"
)

const headerRequestID = "request-id"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher is a notify.Notifier that writes deliveries to a Kafka topic.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a publisher for topic on brokers. Call Close when shutting down.
func NewPublisher(brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 || topic == "" {
		return nil, errors.New("kafka: brokers and topic are required")
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	return &Publisher{writer: writer, topic: topic}, nil
}

// Notify publishes msg keyed by subject so one subject's deliveries stay ordered.
func (p *Publisher) Notify(ctx context.Context, msg notify.Message) error {
	value, err := Encode(msg)
	if err != nil {
		return err
	}
	km := kafka.Message{
		Key:   []byte(msg.Subject),
		Value: value,
		Time:  msg.CreatedAt,
	}
	id := msg.RequestID
	if id == "" {
		id = logger.RequestID(ctx)
	}
	if id != "" {
		km.Headers = append(km.Headers, kafka.Header{Key: headerRequestID, Value: []byte(id)})
	}
	return p.writer.WriteMessages(ctx, km)
}

// Close closes the Kafka writer. Safe to call on a nil publisher.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

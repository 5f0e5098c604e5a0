package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/temcen/copyink/internal/config"
	"github.com/temcen/copyink/pkg/models"
)

const DefaultUsageTopic = "copy-usage-events"

const publishTimeout = 10 * time.Second

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// UsagePublisher streams accounted generations to Kafka, keyed by user so
// one user's events stay ordered within a partition.
type UsagePublisher struct {
	writer MessageWriter
	topic  string
	logger *logrus.Logger
}

// NewUsagePublisher returns nil when no brokers are configured.
func NewUsagePublisher(cfg config.KafkaConfig, logger *logrus.Logger) *UsagePublisher {
	if len(cfg.Brokers) == 0 {
		return nil
	}

	topic := cfg.Topics.UsageEvents
	if topic == "" {
		topic = DefaultUsageTopic
	}

	return NewUsagePublisherWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
		BatchSize:    100,
	}, topic, logger)
}

func NewUsagePublisherWithWriter(writer MessageWriter, topic string, logger *logrus.Logger) *UsagePublisher {
	return &UsagePublisher{
		writer: writer,
		topic:  topic,
		logger: logger,
	}
}

func (p *UsagePublisher) PublishUsage(ctx context.Context, event models.UsageEvent) error {
	message, err := buildUsageMessage(event)
	if err != nil {
		return err
	}

	// The request may already be finishing; give the write its own budget.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write usage event to Kafka: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"event_id":     event.EventID,
		"user_id":      event.UserID,
		"content_type": event.ContentType,
		"topic":        p.topic,
	}).Debug("Usage event published")

	return nil
}

func buildUsageMessage(event models.UsageEvent) (kafka.Message, error) {
	if event.UserID == "" {
		return kafka.Message{}, errors.New("usage event without user id")
	}
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	value, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal usage event: %w", err)
	}

	return kafka.Message{
		Key:   []byte(event.UserID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(event.EventID)},
			{Key: "content_type", Value: []byte(event.ContentType)},
			{Key: "source", Value: []byte(event.Source)},
			{Key: "timestamp", Value: []byte(event.Timestamp.Format(time.RFC3339))},
		},
	}, nil
}

func (p *UsagePublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close usage publisher: %w", err)
	}
	return nil
}

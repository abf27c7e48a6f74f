// Package publisher relays order outbox rows to Kafka.
package publisher

import (
	"context"
	"time"

	"github.com/fjod/order-desk/internal/repository"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const DefaultTopic = "order-events"

type EventStore interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*repository.OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers   []string      `koanf:"brokers"`
	Topic     string        `koanf:"topic"`
	Interval  time.Duration `koanf:"interval"`
	BatchSize int           `koanf:"batch_size"`
}

type OutboxPoller struct {
	interval  time.Duration
	batchSize int
	store     EventStore
	writer    MessageWriter
	logger    *zap.Logger
	published func(eventType string)
}

func NewOutboxPoller(store EventStore, cfg Config, logger *zap.Logger) *OutboxPoller {
	topic := cfg.Topic
	if topic == "" {
		topic = DefaultTopic
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return newPoller(store, w, cfg, logger)
}

func newPoller(store EventStore, w MessageWriter, cfg Config, logger *zap.Logger) *OutboxPoller {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OutboxPoller{
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		store:     store,
		writer:    w,
		logger:    logger,
		published: func(string) {},
	}
}

// OnPublished registers a callback run after each event is published and marked.
func (p *OutboxPoller) OnPublished(fn func(eventType string)) {
	if fn != nil {
		p.published = fn
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	events, err := p.store.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.Error("failed to fetch outbox events", zap.Error(err))
		return
	}

	for _, event := range events {
		if err := p.publish(ctx, event); err != nil {
			p.logger.Warn("failed to publish outbox event", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		if err := p.store.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.Warn("failed to mark outbox event processed", zap.Int64("event_id", event.ID), zap.Error(err))
			continue
		}
		p.published(event.EventType)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	msg := kafka.Message{
		Key:   []byte(event.AggregateID), // order id keeps one order's events in one partition
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
		},
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *OutboxPoller) Close() error {
	return p.writer.Close()
}

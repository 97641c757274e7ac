package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/honeynil/BankClientService/internal/infrastructure/kafka"
	"github.com/honeynil/BankClientService/internal/infrastructure/redis"
)

const publishTimeout = 3 * time.Second

type options struct {
	redisClient redis.RedisClient
	events      eventPublisher
	clock       func() time.Time
}

type Option func(*options)

// WithRedis enables the request-id guard used by TransferOnce.
func WithRedis(client redis.RedisClient) Option {
	return func(o *options) {
		o.redisClient = client
	}
}

// WithEvents publishes domain events to topic after each committed change.
func WithEvents(producer kafka.KafkaProducer, topic string) Option {
	return func(o *options) {
		o.events = eventPublisher{producer: producer, topic: topic}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func newOptions(opts []Option) options {
	o := options{clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

type eventPublisher struct {
	producer kafka.KafkaProducer
	topic    string
}

// publish is best-effort: the change it reports is already committed, so a
// failure is logged and swallowed.
func (p eventPublisher) publish(ctx context.Context, key int64, event any) {
	if p.producer == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal kafka event", "topic", p.topic, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := p.producer.Send(ctx, p.topic, key, payload); err != nil {
		slog.Error("failed to publish event", "topic", p.topic, "key", key, "error", err)
	}
}

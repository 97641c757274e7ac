package redis

import (
	"context"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

//go:generate mockgen -source=client.go -destination=mocks/client_mock.go -package=mocks

var ErrKeyNotFound = stderrors.New("key not found")

// RedisClient is the subset of Redis used for transfer request ids.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Del(ctx context.Context, key string) error
	Ping(ctx context.Context) error
	Close() error
}

type Client struct {
	client *redis.Client
}

func NewClient(ctx context.Context, addr string) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		slog.Error("failed to connect to Redis", "addr", addr, "error", err)
		_ = client.Close()
		return nil, err
	}

	slog.Info("connected to Redis", "addr", addr)
	return &Client{client: client}, nil
}

func startSpan(ctx context.Context, op, key string) (context.Context, trace.Span) {
	return otel.Tracer("redis-client").Start(ctx, "redis."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "redis"),
			attribute.String("db.operation", op),
			attribute.String("redis.key", key),
		),
	)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (c *Client) Get(ctx context.Context, key string) (val string, err error) {
	ctx, span := startSpan(ctx, "GET", key)
	defer func() { endSpan(span, err) }()

	val, err = c.client.Get(ctx, key).Result()
	if stderrors.Is(err, redis.Nil) {
		return "", ErrKeyNotFound
	}
	return val, err
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) (err error) {
	ctx, span := startSpan(ctx, "SET", key)
	defer func() { endSpan(span, err) }()

	return c.client.Set(ctx, key, value, expiration).Err()
}

// SetNX reports whether key was set by this call.
func (c *Client) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (ok bool, err error) {
	ctx, span := startSpan(ctx, "SETNX", key)
	defer func() {
		span.SetAttributes(attribute.Bool("redis.acquired", ok))
		endSpan(span, err)
	}()

	return c.client.SetNX(ctx, key, value, expiration).Result()
}

func (c *Client) Del(ctx context.Context, key string) (err error) {
	ctx, span := startSpan(ctx, "DEL", key)
	defer func() { endSpan(span, err) }()

	return c.client.Del(ctx, key).Err()
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}

package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/BankClientService/internal/models"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"github.com/segmentio/kafka-go"
)

type Transferer interface {
	TransferOnce(ctx context.Context, requestID, senderName, senderPassword, recipientName string, amount int64) error
}

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// readRetryBackoff spaces out ReadMessage retries while the broker is failing.
const readRetryBackoff = time.Second

var errMalformedCommand = errors.New("malformed transfer command")

// Consumer turns transfer commands from a topic into TransferOnce calls.
type Consumer struct {
	reader    messageReader
	transfers Transferer
	backoff   time.Duration
}

func NewConsumer(brokers []string, topic, groupID string, transfers Transferer) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    topic,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		transfers: transfers,
		backoff:   readRetryBackoff,
	}
}

// Consume blocks until ctx is cancelled. Malformed and rejected commands are
// logged and skipped.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				slog.Info("kafka consumer stopped")
				return
			}
			slog.Error("failed to read Kafka message", "error", err, "retry_in", c.backoff)
			select {
			case <-ctx.Done():
				slog.Info("kafka consumer stopped")
				return
			case <-time.After(c.backoff):
			}
			continue
		}

		slog.Debug("Kafka message received", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
		if err := c.handleMessage(ctx, msg); err != nil {
			switch {
			case errors.Is(err, errMalformedCommand):
				slog.Error("skipping transfer command", "offset", msg.Offset, "error", err)
			case pkgerrors.IsExpected(err):
				slog.Warn("transfer command rejected", "offset", msg.Offset, "error", err)
			default:
				// TODO: route to a dead-letter topic once one is provisioned
				slog.Error("transfer command failed", "offset", msg.Offset, "error", err)
			}
		}
	}
}

func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var cmd models.TransferCommand
	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		return fmt.Errorf("%w: %v", errMalformedCommand, err)
	}
	if cmd.SenderName == "" || cmd.RecipientName == "" {
		return fmt.Errorf("%w: sender and recipient are required", errMalformedCommand)
	}
	if cmd.RequestID == "" {
		cmd.RequestID = uuid.NewString()
	}

	if err := c.transfers.TransferOnce(ctx, cmd.RequestID, cmd.SenderName, cmd.SenderPassword, cmd.RecipientName, cmd.Amount); err != nil {
		return fmt.Errorf("request %s: %w", cmd.RequestID, err)
	}
	slog.Info("transfer command processed", "request_id", cmd.RequestID, "sender", cmd.SenderName, "recipient", cmd.RecipientName, "amount", cmd.Amount)
	return nil
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

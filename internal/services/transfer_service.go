package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/honeynil/BankClientService/internal/infrastructure/observability"
	"github.com/honeynil/BankClientService/internal/infrastructure/redis"
	"github.com/honeynil/BankClientService/internal/models"
	"github.com/honeynil/BankClientService/internal/repository"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=transfer_service.go -destination=mocks/transfer_service_mock.go -package=mocks

const requestKeyTTL = 24 * time.Hour

type TransferService interface {
	Transfer(ctx context.Context, senderName, senderPassword, recipientName string, amount int64) error
	TransferOnce(ctx context.Context, requestID, senderName, senderPassword, recipientName string, amount int64) error
}

type transferService struct {
	tx repository.Transactor
	options
}

func NewTransferService(tx repository.Transactor, opts ...Option) *transferService {
	return &transferService{
		tx:      tx,
		options: newOptions(opts),
	}
}

// Transfer moves amount from the sender to the recipient. Validation and both
// legs run in one transaction: either both balances change or neither does.
func (s *transferService) Transfer(ctx context.Context, senderName, senderPassword, recipientName string, amount int64) error {
	return s.transfer(ctx, "", senderName, senderPassword, recipientName, amount)
}

// TransferOnce is Transfer guarded by requestID. A request id that was already
// used returns ErrRequestAlreadyProcessed naming the id state (pending or
// completed); a failed transfer releases its id so
// the caller may retry. Without Redis or without an id it is plain Transfer.
func (s *transferService) TransferOnce(ctx context.Context, requestID, senderName, senderPassword, recipientName string, amount int64) error {
	if requestID == "" || s.redisClient == nil {
		return s.transfer(ctx, requestID, senderName, senderPassword, recipientName, amount)
	}

	requestKey := fmt.Sprintf("transfer:%s", requestID)
	ok, err := s.redisClient.SetNX(ctx, requestKey, "pending", requestKeyTTL)
	if err != nil {
		slog.Error("failed to set request key", "request_id", requestID, "error", err)
		return pkgerrors.StoreUnavailable("set request key", err)
	}
	if !ok {
		state, err := s.redisClient.Get(ctx, requestKey)
		if err != nil {
			if !stderrors.Is(err, redis.ErrKeyNotFound) {
				slog.Error("failed to read request key", "request_id", requestID, "error", err)
			}
			// the key expired or could not be read after SETNX lost
			state = "unknown"
		}
		slog.Warn("transfer already processed", "request_id", requestID, "sender", senderName, "state", state)
		return fmt.Errorf("%w: request %s is %s", pkgerrors.ErrRequestAlreadyProcessed, requestID, state)
	}

	if err := s.transfer(ctx, requestID, senderName, senderPassword, recipientName, amount); err != nil {
		if delErr := s.redisClient.Del(context.WithoutCancel(ctx), requestKey); delErr != nil {
			slog.Error("failed to release request key", "request_id", requestID, "error", delErr)
		}
		return err
	}

	if err := s.redisClient.Set(ctx, requestKey, "completed", requestKeyTTL); err != nil {
		slog.Error("failed to mark request completed", "request_id", requestID, "error", err)
	}
	return nil
}

func (s *transferService) transfer(ctx context.Context, requestID, senderName, senderPassword, recipientName string, amount int64) (err error) {
	tracer := otel.Tracer("transfer-service")
	ctx, span := tracer.Start(ctx, "Transfer")
	span.SetAttributes(
		attribute.String("sender", senderName),
		attribute.String("recipient", recipientName),
		attribute.Int64("amount", amount),
	)
	defer span.End()
	logger := observability.WithContext(ctx, "sender", senderName, "recipient", recipientName, "amount", amount)

	defer func() {
		switch {
		case err == nil:
			observability.TransfersTotal.WithLabelValues("success").Inc()
		case pkgerrors.IsExpected(err):
			observability.TransfersTotal.WithLabelValues("rejected").Inc()
			span.SetStatus(codes.Error, err.Error())
			logger.Warn("transfer rejected", "error", err)
		default:
			observability.TransfersTotal.WithLabelValues("failed").Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			logger.Error("transfer failed", "error", err)
		}
	}()

	if amount <= 0 {
		return pkgerrors.ErrInvalidAmount
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context, repo repository.ClientRepository) error {
		recipient, found, err := repo.GetByName(ctx, recipientName)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("%w: recipient %q", pkgerrors.ErrNotFound, recipientName)
		}

		ok, err := repo.ValidateCredentials(ctx, senderName, senderPassword)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.ErrAuthFailed
		}

		enough, err := repo.HasAtLeast(ctx, senderName, amount)
		if err != nil {
			return err
		}
		if !enough {
			return pkgerrors.ErrInsufficientFunds
		}

		if _, err := repo.AdjustBalance(ctx, senderName, senderPassword, -amount); err != nil {
			return fmt.Errorf("debit %q: %w", senderName, err)
		}
		if _, err := repo.AdjustBalance(ctx, recipient.Name, recipient.Password, amount); err != nil {
			if stderrors.Is(err, pkgerrors.ErrAuthFailed) {
				// the recipient row disappeared or changed after it was read
				return fmt.Errorf("%w: recipient %q", pkgerrors.ErrNotFound, recipientName)
			}
			return fmt.Errorf("credit %q: %w", recipientName, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("transfer committed", "request_id", requestID)
	s.events.publish(ctx, s.clock().UnixNano(), models.TransferEvent{
		EventID:       uuid.NewString(),
		Type:          models.EventTransferCompleted,
		RequestID:     requestID,
		SenderName:    senderName,
		RecipientName: recipientName,
		Amount:        amount,
		CreatedAt:     s.clock().UTC(),
	})
	return nil
}

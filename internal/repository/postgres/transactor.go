package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"log/slog"
	"time"

	"github.com/honeynil/BankClientService/internal/repository"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const defaultTxTimeout = 5 * time.Second

type Transactor struct {
	db      *sql.DB
	repo    *PostgresClientRepository
	timeout time.Duration
}

func NewTransactor(db *sql.DB, timeout time.Duration) *Transactor {
	if timeout <= 0 {
		timeout = defaultTxTimeout
	}
	return &Transactor{
		db:      db,
		repo:    NewPostgresClientRepository(db),
		timeout: timeout,
	}
}

// RunInTx commits only if fn returns nil. Contexts without a deadline get the
// transactor's timeout, and fn receives that bounded context.
func (t *Transactor) RunInTx(ctx context.Context, fn func(ctx context.Context, repo repository.ClientRepository) error) (err error) {
	ctx, span := otel.Tracer("client-repository").Start(ctx, "RunInTx")
	defer func() {
		if err != nil && !pkgerrors.IsExpected(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "RunInTx", "error", err)
		return pkgerrors.StoreUnavailable("begin transaction", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !stderrors.Is(rbErr, sql.ErrTxDone) {
			slog.Error("rollback failed", "method", "RunInTx", "error", rbErr)
		}
	}()

	if err = fn(ctx, t.repo.WithTx(tx)); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "RunInTx", "error", err)
		return pkgerrors.StoreUnavailable("commit transaction", err)
	}
	return nil
}

package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/honeynil/BankClientService/internal/infrastructure/observability"
	"github.com/honeynil/BankClientService/internal/models"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const uniqueViolation = "23505"

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresClientRepository struct {
	db   *sql.DB
	q    DBTX
	inTx bool
}

func NewPostgresClientRepository(db *sql.DB) *PostgresClientRepository {
	return &PostgresClientRepository{db: db, q: db}
}

// WithTx returns a copy of the repository whose statements run inside tx.
// Commit and rollback stay with the caller.
func (r *PostgresClientRepository) WithTx(tx *sql.Tx) *PostgresClientRepository {
	return &PostgresClientRepository{db: r.db, q: tx, inTx: true}
}

func (r *PostgresClientRepository) observe(ctx context.Context, method string, attrs ...attribute.KeyValue) (context.Context, func(*error)) {
	ctx, span := otel.Tracer("client-repository").Start(ctx, method)
	span.SetAttributes(attrs...)
	start := time.Now()

	return ctx, func(errp *error) {
		status := "success"
		if err := *errp; err != nil {
			status = "error"
			if pkgerrors.IsExpected(err) {
				status = "rejected"
			} else {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			}
			if stderrors.Is(err, pkgerrors.ErrInvariantViolation) {
				observability.InvariantViolations.Inc()
			}
		}
		observability.RepositoryCalls.WithLabelValues(method, status).Inc()
		observability.RepositoryDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
		span.End()
	}
}

func (r *PostgresClientRepository) ListAll(ctx context.Context) (clients []models.Client, err error) {
	ctx, done := r.observe(ctx, "ListAll")
	defer done(&err)

	rows, err := r.q.QueryContext(ctx, `SELECT id, name, password, money FROM bank_client ORDER BY id`)
	if err != nil {
		slog.Error("failed to list clients", "method", "ListAll", "error", err)
		return nil, pkgerrors.StoreUnavailable("list clients", err)
	}
	defer rows.Close()

	clients = make([]models.Client, 0)
	for rows.Next() {
		var c models.Client
		if err = rows.Scan(&c.ID, &c.Name, &c.Password, &c.Balance); err != nil {
			slog.Error("failed to scan client", "method", "ListAll", "error", err)
			return nil, pkgerrors.StoreUnavailable("scan client", err)
		}
		clients = append(clients, c)
	}
	if err = rows.Err(); err != nil {
		slog.Error("failed to iterate clients", "method", "ListAll", "error", err)
		return nil, pkgerrors.StoreUnavailable("list clients", err)
	}

	slog.Debug("clients listed", "method", "ListAll", "count", len(clients))
	return clients, nil
}

// getOne runs a single-client query. A well-formed query matches at most one
// row; if it ever yields several, the first one in id order wins.
func (r *PostgresClientRepository) getOne(ctx context.Context, query string, args ...any) (models.Client, bool, error) {
	var c models.Client
	err := r.q.QueryRowContext(ctx, query, args...).Scan(&c.ID, &c.Name, &c.Password, &c.Balance)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return models.Client{}, false, nil
	case err != nil:
		return models.Client{}, false, pkgerrors.StoreUnavailable("get client", err)
	}
	return c, true, nil
}

func (r *PostgresClientRepository) GetByName(ctx context.Context, name string) (client models.Client, found bool, err error) {
	ctx, done := r.observe(ctx, "GetByName", attribute.String("name", name))
	defer done(&err)

	client, found, err = r.getOne(ctx, `SELECT id, name, password, money FROM bank_client WHERE name = $1 ORDER BY id`, name)
	if err != nil {
		slog.Error("failed to get client by name", "method", "GetByName", "name", name, "error", err)
	}
	return client, found, err
}

func (r *PostgresClientRepository) GetByID(ctx context.Context, id int64) (client models.Client, found bool, err error) {
	ctx, done := r.observe(ctx, "GetByID", attribute.Int64("client_id", id))
	defer done(&err)

	client, found, err = r.getOne(ctx, `SELECT id, name, password, money FROM bank_client WHERE id = $1`, id)
	if err != nil {
		slog.Error("failed to get client by id", "method", "GetByID", "client_id", id, "error", err)
	}
	return client, found, err
}

func (r *PostgresClientRepository) GetIDByName(ctx context.Context, name string) (int64, bool, error) {
	client, found, err := r.GetByName(ctx, name)
	if err != nil || !found {
		return 0, false, err
	}
	return client.ID, true, nil
}

func (r *PostgresClientRepository) ValidateCredentials(ctx context.Context, name, password string) (ok bool, err error) {
	ctx, done := r.observe(ctx, "ValidateCredentials", attribute.String("name", name))
	defer done(&err)

	_, ok, err = r.getOne(ctx, `SELECT id, name, password, money FROM bank_client WHERE name = $1 AND password = $2 ORDER BY id`, name, password)
	if err != nil {
		slog.Error("failed to validate credentials", "method", "ValidateCredentials", "name", name, "error", err)
	}
	return ok, err
}

func (r *PostgresClientRepository) HasAtLeast(ctx context.Context, name string, amount int64) (ok bool, err error) {
	ctx, done := r.observe(ctx, "HasAtLeast", attribute.String("name", name), attribute.Int64("amount", amount))
	defer done(&err)

	client, found, err := r.getOne(ctx, `SELECT id, name, password, money FROM bank_client WHERE name = $1 ORDER BY id`, name)
	if err != nil {
		slog.Error("failed to check balance", "method", "HasAtLeast", "name", name, "error", err)
		return false, err
	}
	return found && client.Balance >= amount, nil
}

// AdjustBalance adds delta to the balance of the client identified by name and
// password. When the repository is not bound to a transaction it opens its own.
func (r *PostgresClientRepository) AdjustBalance(ctx context.Context, name, password string, delta int64) (newBalance int64, err error) {
	ctx, done := r.observe(ctx, "AdjustBalance", attribute.String("name", name), attribute.Int64("delta", delta))
	defer done(&err)

	if r.inTx {
		return r.adjustBalance(ctx, name, password, delta)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "AdjustBalance", "error", err)
		return 0, pkgerrors.StoreUnavailable("begin transaction", err)
	}

	newBalance, err = r.WithTx(tx).adjustBalance(ctx, name, password, delta)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.Error("rollback failed", "method", "AdjustBalance", "error", rbErr)
			return 0, fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
		}
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		slog.Error("failed to commit transaction", "method", "AdjustBalance", "error", err)
		return 0, pkgerrors.StoreUnavailable("commit transaction", err)
	}
	return newBalance, nil
}

func (r *PostgresClientRepository) adjustBalance(ctx context.Context, name, password string, delta int64) (int64, error) {
	var id, balance int64
	err := r.q.QueryRowContext(ctx,
		`SELECT id, money FROM bank_client WHERE name = $1 AND password = $2 ORDER BY id LIMIT 1 FOR UPDATE`,
		name, password,
	).Scan(&id, &balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		slog.Warn("balance change rejected", "method", "AdjustBalance", "name", name, "reason", "credentials")
		return 0, pkgerrors.ErrAuthFailed
	}
	if err != nil {
		slog.Error("failed to lock client row", "method", "AdjustBalance", "name", name, "error", err)
		return 0, pkgerrors.StoreUnavailable("lock client", err)
	}

	newBalance := balance + delta
	if delta > 0 && newBalance < balance {
		return 0, fmt.Errorf("%w: balance overflow", pkgerrors.ErrInvalidAmount)
	}
	if newBalance < 0 {
		slog.Warn("balance change rejected", "method", "AdjustBalance", "name", name, "balance", balance, "delta", delta)
		return 0, pkgerrors.ErrInsufficientFunds
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE bank_client SET money = money + $1 WHERE id = $2 AND money + $1 >= 0`,
		delta, id,
	)
	if err != nil {
		slog.Error("failed to update balance", "method", "AdjustBalance", "name", name, "error", err)
		return 0, pkgerrors.StoreUnavailable("update balance", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.StoreUnavailable("update balance", err)
	}
	if rows != 1 {
		iv := &pkgerrors.InvariantViolationError{Op: "update balance", Name: name, RowsAffected: rows}
		slog.Error("invariant violation", "method", "AdjustBalance", "name", name, "rows_affected", rows, "error", iv)
		return 0, iv
	}

	slog.Info("balance changed", "method", "AdjustBalance", "name", name, "delta", delta, "balance", newBalance)
	return newBalance, nil
}

func (r *PostgresClientRepository) Create(ctx context.Context, client *models.Client) (err error) {
	ctx, done := r.observe(ctx, "Create")
	defer done(&err)

	if client == nil {
		return fmt.Errorf("%w: client is nil", pkgerrors.ErrInvalidInput)
	}
	switch {
	case client.Name == "":
		return fmt.Errorf("%w: name is required", pkgerrors.ErrInvalidInput)
	case len(client.Name) > 255:
		return fmt.Errorf("%w: name too long", pkgerrors.ErrInvalidInput)
	case client.Password == "":
		return fmt.Errorf("%w: password is required", pkgerrors.ErrInvalidInput)
	case len(client.Password) > 60:
		return fmt.Errorf("%w: password too long", pkgerrors.ErrInvalidInput)
	case client.Balance < 0:
		return fmt.Errorf("%w: opening balance must not be negative", pkgerrors.ErrInvalidInput)
	}

	_, exists, err := r.getOne(ctx, `SELECT id, name, password, money FROM bank_client WHERE name = $1 ORDER BY id`, client.Name)
	if err != nil {
		slog.Error("failed to check client existence", "method", "Create", "name", client.Name, "error", err)
		return err
	}
	if exists {
		slog.Warn("client already exists", "method", "Create", "name", client.Name)
		return pkgerrors.ErrDuplicateName
	}

	var id int64
	err = r.q.QueryRowContext(ctx,
		`INSERT INTO bank_client (name, password, money) VALUES ($1, $2, $3) RETURNING id`,
		client.Name, client.Password, client.Balance,
	).Scan(&id)
	var pqErr *pq.Error
	switch {
	case stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation:
		slog.Warn("client already exists", "method", "Create", "name", client.Name)
		return pkgerrors.ErrDuplicateName
	case stderrors.Is(err, sql.ErrNoRows):
		iv := &pkgerrors.InvariantViolationError{Op: "insert client", Name: client.Name, RowsAffected: 0}
		slog.Error("invariant violation", "method", "Create", "name", client.Name, "error", iv)
		return iv
	case err != nil:
		slog.Error("failed to create client", "method", "Create", "name", client.Name, "error", err)
		return pkgerrors.StoreUnavailable("create client", err)
	}

	client.ID = id
	slog.Info("client created", "method", "Create", "client_id", id, "name", client.Name)
	return nil
}

func (r *PostgresClientRepository) Delete(ctx context.Context, name string) (err error) {
	ctx, done := r.observe(ctx, "Delete", attribute.String("name", name))
	defer done(&err)

	_, found, err := r.getOne(ctx, `SELECT id, name, password, money FROM bank_client WHERE name = $1 ORDER BY id`, name)
	if err != nil {
		slog.Error("failed to check client existence", "method", "Delete", "name", name, "error", err)
		return err
	}
	if !found {
		slog.Warn("client not found", "method", "Delete", "name", name)
		return pkgerrors.ErrNotFound
	}

	res, err := r.q.ExecContext(ctx, `DELETE FROM bank_client WHERE name = $1`, name)
	if err != nil {
		slog.Error("failed to delete client", "method", "Delete", "name", name, "error", err)
		return pkgerrors.StoreUnavailable("delete client", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.StoreUnavailable("delete client", err)
	}
	if rows != 1 {
		iv := &pkgerrors.InvariantViolationError{Op: "delete client", Name: name, RowsAffected: rows}
		slog.Error("invariant violation", "method", "Delete", "name", name, "rows_affected", rows, "error", iv)
		return iv
	}

	slog.Info("client deleted", "method", "Delete", "name", name)
	return nil
}

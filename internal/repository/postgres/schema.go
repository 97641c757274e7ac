package repository

import (
	"context"
	"log/slog"

	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
)

const createTableQuery = `
	CREATE TABLE IF NOT EXISTS bank_client (
		id       BIGSERIAL    PRIMARY KEY,
		name     VARCHAR(255) NOT NULL UNIQUE,
		password VARCHAR(60)  NOT NULL,
		money    BIGINT       NOT NULL CHECK (money >= 0)
	)
`

const dropTableQuery = `DROP TABLE IF EXISTS bank_client`

func (r *PostgresClientRepository) EnsureSchema(ctx context.Context) (err error) {
	ctx, done := r.observe(ctx, "EnsureSchema")
	defer done(&err)

	if _, err = r.q.ExecContext(ctx, createTableQuery); err != nil {
		slog.Error("failed to create table", "method", "EnsureSchema", "error", err)
		return pkgerrors.StoreUnavailable("create table", err)
	}
	slog.Info("schema ensured", "table", "bank_client")
	return nil
}

func (r *PostgresClientRepository) DropSchema(ctx context.Context) (err error) {
	ctx, done := r.observe(ctx, "DropSchema")
	defer done(&err)

	if _, err = r.q.ExecContext(ctx, dropTableQuery); err != nil {
		slog.Error("failed to drop table", "method", "DropSchema", "error", err)
		return pkgerrors.StoreUnavailable("drop table", err)
	}
	slog.Info("schema dropped", "table", "bank_client")
	return nil
}

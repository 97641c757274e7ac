package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/honeynil/BankClientService/internal/models"
	repository "github.com/honeynil/BankClientService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	selectByName  = `SELECT id, name, password, money FROM bank_client WHERE name = $1 ORDER BY id`
	selectByCreds = `SELECT id, name, password, money FROM bank_client WHERE name = $1 AND password = $2 ORDER BY id`
	lockByCreds   = `SELECT id, money FROM bank_client WHERE name = $1 AND password = $2 ORDER BY id LIMIT 1 FOR UPDATE`
	updateMoney   = `UPDATE bank_client SET money = money + $1 WHERE id = $2 AND money + $1 >= 0`
)

var clientColumns = []string{"id", "name", "password", "money"}

func newRepo(t *testing.T) (*repository.PostgresClientRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return repository.NewPostgresClientRepository(db), mock
}

func TestPostgresClientRepository_ListAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, password, money FROM bank_client ORDER BY id`)).
			WillReturnRows(sqlmock.NewRows(clientColumns).
				AddRow(1, "alice", "pwd", 100).
				AddRow(2, "bob", "secret", 0))

		clients, err := repo.ListAll(ctx)
		assert.NoError(t, err)
		assert.Equal(t, []models.Client{
			{ID: 1, Name: "alice", Password: "pwd", Balance: 100},
			{ID: 2, Name: "bob", Password: "secret", Balance: 0},
		}, clients)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EmptyTable", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, password, money FROM bank_client`)).
			WillReturnRows(sqlmock.NewRows(clientColumns))

		clients, err := repo.ListAll(ctx)
		assert.NoError(t, err)
		assert.NotNil(t, clients)
		assert.Empty(t, clients)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, password, money FROM bank_client`)).
			WillReturnError(fmt.Errorf("connection refused"))

		clients, err := repo.ListAll(ctx)
		assert.Nil(t, clients)
		assert.ErrorIs(t, err, pkgerrors.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "connection refused")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresClientRepository_GetByName(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(1, "alice", "pwd", 100))

		client, found, err := repo.GetByName(ctx, "alice")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, models.Client{ID: 1, Name: "alice", Password: "pwd", Balance: 100}, client)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("FirstRowWins", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(clientColumns).
				AddRow(1, "alice", "pwd", 100).
				AddRow(7, "alice", "other", 5))

		client, found, err := repo.GetByName(ctx, "alice")
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, int64(1), client.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("ghost").
			WillReturnError(sql.ErrNoRows)

		client, found, err := repo.GetByName(ctx, "ghost")
		assert.NoError(t, err)
		assert.False(t, found)
		assert.Equal(t, models.Client{}, client)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DatabaseError", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("alice").
			WillReturnError(fmt.Errorf("database error"))

		_, found, err := repo.GetByName(ctx, "alice")
		assert.False(t, found)
		assert.ErrorIs(t, err, pkgerrors.ErrStoreUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresClientRepository_GetByID(t *testing.T) {
	ctx := context.Background()
	query := regexp.QuoteMeta(`SELECT id, name, password, money FROM bank_client WHERE id = $1`)

	t.Run("Success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(query).
			WithArgs(int64(2)).
			WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(2, "bob", "secret", 40))

		client, found, err := repo.GetByID(ctx, 2)
		assert.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "bob", client.Name)
		assert.Equal(t, int64(40), client.Balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(query).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

		_, found, err := repo.GetByID(ctx, 9)
		assert.NoError(t, err)
		assert.False(t, found)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresClientRepository_GetIDByName(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
		WithArgs("bob").
		WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(2, "bob", "secret", 40))
	mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	id, found, err := repo.GetIDByName(context.Background(), "bob")
	assert.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(2), id)

	_, found, err = repo.GetIDByName(context.Background(), "ghost")
	assert.NoError(t, err)
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepository_ValidateCredentials(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectByCreds)).
		WithArgs("alice", "pwd").
		WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(1, "alice", "pwd", 100))
	mock.ExpectQuery(regexp.QuoteMeta(selectByCreds)).
		WithArgs("alice", "wrong").
		WillReturnError(sql.ErrNoRows)

	ok, err := repo.ValidateCredentials(ctx, "alice", "pwd")
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ValidateCredentials(ctx, "alice", "wrong")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClientRepository_HasAtLeast(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		rows   *sqlmock.Rows
		noRows bool
		amount int64
		want   bool
	}{
		{name: "Enough", rows: sqlmock.NewRows(clientColumns).AddRow(1, "alice", "pwd", 100), amount: 100, want: true},
		{name: "NotEnough", rows: sqlmock.NewRows(clientColumns).AddRow(1, "alice", "pwd", 100), amount: 101, want: false},
		{name: "Missing", noRows: true, amount: 1, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepo(t)
			exp := mock.ExpectQuery(regexp.QuoteMeta(selectByName)).WithArgs("alice")
			if tt.noRows {
				exp.WillReturnError(sql.ErrNoRows)
			} else {
				exp.WillReturnRows(tt.rows)
			}

			ok, err := repo.HasAtLeast(ctx, "alice", tt.amount)
			assert.NoError(t, err)
			assert.Equal(t, tt.want, ok)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestPostgresClientRepository_AdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "pwd").
			WillReturnRows(sqlmock.NewRows([]string{"id", "money"}).AddRow(1, 100))
		mock.ExpectExec(regexp.QuoteMeta(updateMoney)).
			WithArgs(int64(-40), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		balance, err := repo.AdjustBalance(ctx, "alice", "pwd", -40)
		assert.NoError(t, err)
		assert.Equal(t, int64(60), balance)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("AuthFailed", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "wrong").
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		balance, err := repo.AdjustBalance(ctx, "alice", "wrong", 10)
		assert.Equal(t, int64(0), balance)
		assert.ErrorIs(t, err, pkgerrors.ErrAuthFailed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFundsSkipsUpdate", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "pwd").
			WillReturnRows(sqlmock.NewRows([]string{"id", "money"}).AddRow(1, 60))
		mock.ExpectRollback()

		_, err := repo.AdjustBalance(ctx, "alice", "pwd", -1000)
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ZeroRowsIsInvariantViolation", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "pwd").
			WillReturnRows(sqlmock.NewRows([]string{"id", "money"}).AddRow(1, 100))
		mock.ExpectExec(regexp.QuoteMeta(updateMoney)).
			WithArgs(int64(5), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		_, err := repo.AdjustBalance(ctx, "alice", "pwd", 5)
		assert.ErrorIs(t, err, pkgerrors.ErrInvariantViolation)
		var iv *pkgerrors.InvariantViolationError
		require.ErrorAs(t, err, &iv)
		assert.Equal(t, int64(0), iv.RowsAffected)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ManyRowsIsInvariantViolation", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "pwd").
			WillReturnRows(sqlmock.NewRows([]string{"id", "money"}).AddRow(1, 100))
		mock.ExpectExec(regexp.QuoteMeta(updateMoney)).
			WithArgs(int64(5), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectRollback()

		_, err := repo.AdjustBalance(ctx, "alice", "pwd", 5)
		assert.ErrorIs(t, err, pkgerrors.ErrInvariantViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RollbackError", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "pwd").
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback().WillReturnError(fmt.Errorf("rollback error"))

		_, err := repo.AdjustBalance(ctx, "alice", "pwd", 5)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "rollback failed")
		assert.Contains(t, err.Error(), "database error")
		assert.ErrorIs(t, err, pkgerrors.ErrStoreUnavailable)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("CommitError", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(lockByCreds)).
			WithArgs("alice", "pwd").
			WillReturnRows(sqlmock.NewRows([]string{"id", "money"}).AddRow(1, 100))
		mock.ExpectExec(regexp.QuoteMeta(updateMoney)).
			WithArgs(int64(5), int64(1)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit().WillReturnError(fmt.Errorf("commit error"))

		balance, err := repo.AdjustBalance(ctx, "alice", "pwd", 5)
		assert.Equal(t, int64(0), balance)
		assert.ErrorIs(t, err, pkgerrors.ErrStoreUnavailable)
		assert.Contains(t, err.Error(), "commit transaction")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresClientRepository_Create(t *testing.T) {
	ctx := context.Background()
	insert := regexp.QuoteMeta(`INSERT INTO bank_client (name, password, money) VALUES ($1, $2, $3) RETURNING id`)

	t.Run("NilClient", func(t *testing.T) {
		repo, mock := newRepo(t)
		err := repo.Create(ctx, nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidInput)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InvalidClient", func(t *testing.T) {
		repo, mock := newRepo(t)
		for _, c := range []*models.Client{
			{Name: "", Password: "pwd"},
			{Name: "alice", Password: ""},
			{Name: string(make([]byte, 256)), Password: "pwd"},
			{Name: "alice", Password: "pwd", Balance: -1},
		} {
			assert.ErrorIs(t, repo.Create(ctx, c), pkgerrors.ErrInvalidInput)
		}
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success", func(t *testing.T) {
		repo, mock := newRepo(t)
		client := &models.Client{Name: "alice", Password: "pwd", Balance: 100}
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).WithArgs("alice").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(insert).
			WithArgs("alice", "pwd", int64(100)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

		err := repo.Create(ctx, client)
		assert.NoError(t, err)
		assert.Equal(t, int64(1), client.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("DuplicateName", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("alice").
			WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(1, "alice", "pwd", 100))

		err := repo.Create(ctx, &models.Client{Name: "alice", Password: "other", Balance: 5})
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UniqueViolationRace", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).WithArgs("alice").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(insert).
			WithArgs("alice", "pwd", int64(0)).
			WillReturnError(&pq.Error{Code: "23505"})

		err := repo.Create(ctx, &models.Client{Name: "alice", Password: "pwd"})
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateName)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NothingInserted", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).WithArgs("alice").WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(insert).
			WithArgs("alice", "pwd", int64(0)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		err := repo.Create(ctx, &models.Client{Name: "alice", Password: "pwd"})
		assert.ErrorIs(t, err, pkgerrors.ErrInvariantViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresClientRepository_Delete(t *testing.T) {
	ctx := context.Background()
	del := regexp.QuoteMeta(`DELETE FROM bank_client WHERE name = $1`)

	t.Run("Success", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("bob").
			WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(2, "bob", "secret", 40))
		mock.ExpectExec(del).WithArgs("bob").WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(ctx, "bob"))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.Delete(ctx, "ghost"), pkgerrors.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RowCountMismatch", func(t *testing.T) {
		repo, mock := newRepo(t)
		mock.ExpectQuery(regexp.QuoteMeta(selectByName)).
			WithArgs("bob").
			WillReturnRows(sqlmock.NewRows(clientColumns).AddRow(2, "bob", "secret", 40))
		mock.ExpectExec(del).WithArgs("bob").WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Delete(ctx, "bob")
		assert.ErrorIs(t, err, pkgerrors.ErrInvariantViolation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresClientRepository_Schema(t *testing.T) {
	ctx := context.Background()
	repo, mock := newRepo(t)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS bank_client`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS bank_client`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS bank_client`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP TABLE IF EXISTS bank_client`)).WillReturnError(fmt.Errorf("connection reset"))

	assert.NoError(t, repo.EnsureSchema(ctx))
	assert.NoError(t, repo.EnsureSchema(ctx))
	assert.NoError(t, repo.DropSchema(ctx))
	assert.ErrorIs(t, repo.DropSchema(ctx), pkgerrors.ErrStoreUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

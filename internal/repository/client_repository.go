package repository

import (
	"context"

	"github.com/honeynil/BankClientService/internal/models"
)

//go:generate mockgen -source=client_repository.go -destination=mocks/client_repository_mock.go -package=mocks

type ClientRepository interface {
	ListAll(ctx context.Context) ([]models.Client, error)
	GetByName(ctx context.Context, name string) (models.Client, bool, error)
	GetByID(ctx context.Context, id int64) (models.Client, bool, error)
	GetIDByName(ctx context.Context, name string) (int64, bool, error)
	ValidateCredentials(ctx context.Context, name, password string) (bool, error)
	HasAtLeast(ctx context.Context, name string, amount int64) (bool, error)
	AdjustBalance(ctx context.Context, name, password string, delta int64) (newBalance int64, err error)
	Create(ctx context.Context, client *models.Client) error
	Delete(ctx context.Context, name string) error
}

type SchemaManager interface {
	EnsureSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error
}

// Transactor runs fn against a ClientRepository bound to a single database
// transaction. Returning an error from fn rolls back every change made through it.
// fn must issue its statements with the ctx it receives, which carries the
// transaction deadline.
type Transactor interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, repo ClientRepository) error) error
}

package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/honeynil/BankClientService/internal/models"
	"github.com/honeynil/BankClientService/internal/repository"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=client_service.go -destination=mocks/client_service_mock.go -package=mocks

type ClientService interface {
	Register(ctx context.Context, name, password string, money int64) (models.Client, error)
	GetByName(ctx context.Context, name string) (models.Client, bool, error)
	GetByID(ctx context.Context, id int64) (models.Client, bool, error)
	GetBalance(ctx context.Context, name, password string) (int64, error)
	ListClients(ctx context.Context) ([]models.Client, error)
	DeleteClient(ctx context.Context, name string) error
	EnsureSchema(ctx context.Context) error
	CleanUp(ctx context.Context) error
}

type clientService struct {
	repo   repository.ClientRepository
	schema repository.SchemaManager
	options
}

func NewClientService(repo repository.ClientRepository, schema repository.SchemaManager, opts ...Option) *clientService {
	return &clientService{
		repo:    repo,
		schema:  schema,
		options: newOptions(opts),
	}
}

func (s *clientService) Register(ctx context.Context, name, password string, money int64) (models.Client, error) {
	tracer := otel.Tracer("client-service")
	ctx, span := tracer.Start(ctx, "Register")
	defer span.End()

	if name == "" || password == "" {
		span.SetStatus(codes.Error, "empty name or password")
		return models.Client{}, fmt.Errorf("%w: name and password are required", pkgerrors.ErrInvalidInput)
	}

	client := models.Client{Name: name, Password: password, Balance: money}
	if err := s.repo.Create(ctx, &client); err != nil {
		span.SetStatus(codes.Error, "client creation failed")
		if !pkgerrors.IsExpected(err) {
			span.RecordError(err)
		}
		slog.Warn("client not registered", "name", name, "error", err)
		return models.Client{}, err
	}

	slog.Info("client registered", "client_id", client.ID, "name", name)
	s.events.publish(ctx, client.ID, models.ClientEvent{
		EventID:   uuid.NewString(),
		Type:      models.EventClientRegistered,
		ClientID:  client.ID,
		Name:      client.Name,
		Balance:   client.Balance,
		CreatedAt: s.clock().UTC(),
	})
	return client, nil
}

func (s *clientService) GetByName(ctx context.Context, name string) (models.Client, bool, error) {
	return s.repo.GetByName(ctx, name)
}

func (s *clientService) GetByID(ctx context.Context, id int64) (models.Client, bool, error) {
	return s.repo.GetByID(ctx, id)
}

// GetBalance returns the balance of the client only when the password matches.
func (s *clientService) GetBalance(ctx context.Context, name, password string) (int64, error) {
	tracer := otel.Tracer("client-service")
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	client, found, err := s.repo.GetByName(ctx, name)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lookup failed")
		return 0, err
	}
	if !found {
		return 0, pkgerrors.ErrNotFound
	}
	if client.Password != password {
		slog.Warn("balance lookup rejected", "name", name)
		return 0, pkgerrors.ErrAuthFailed
	}
	return client.Balance, nil
}

func (s *clientService) ListClients(ctx context.Context) ([]models.Client, error) {
	return s.repo.ListAll(ctx)
}

func (s *clientService) DeleteClient(ctx context.Context, name string) error {
	tracer := otel.Tracer("client-service")
	ctx, span := tracer.Start(ctx, "DeleteClient")
	defer span.End()

	fail := func(err error) error {
		span.SetStatus(codes.Error, "client deletion failed")
		if !pkgerrors.IsExpected(err) {
			span.RecordError(err)
		}
		return err
	}

	// the id keys the deletion event onto the client's partition
	id, found, err := s.repo.GetIDByName(ctx, name)
	if err != nil {
		return fail(err)
	}
	if !found {
		return fail(pkgerrors.ErrNotFound)
	}
	span.SetAttributes(attribute.Int64("client_id", id))

	if err := s.repo.Delete(ctx, name); err != nil {
		return fail(err)
	}

	slog.Info("client deleted", "client_id", id, "name", name)
	s.events.publish(ctx, id, models.ClientEvent{
		EventID:   uuid.NewString(),
		Type:      models.EventClientDeleted,
		ClientID:  id,
		Name:      name,
		CreatedAt: s.clock().UTC(),
	})
	return nil
}

func (s *clientService) EnsureSchema(ctx context.Context) error {
	return s.schema.EnsureSchema(ctx)
}

// CleanUp drops the client table.
func (s *clientService) CleanUp(ctx context.Context) error {
	return s.schema.DropSchema(ctx)
}

//go:build integration

package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/honeynil/BankClientService/internal/models"
	repository "github.com/honeynil/BankClientService/internal/repository/postgres"
	pkgerrors "github.com/honeynil/BankClientService/pkg/errors"
	"github.com/honeynil/BankClientService/pkg/testutil/containers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntegrationRepo(t *testing.T) *repository.PostgresClientRepository {
	t.Helper()
	pg := containers.NewPostgresContainer(t)
	repo := repository.NewPostgresClientRepository(pg.DB)
	require.NoError(t, repo.EnsureSchema(context.Background()))
	return repo
}

func TestIntegration_SchemaIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepo(t)

	require.NoError(t, repo.Create(ctx, &models.Client{Name: "alice", Password: "pwdA", Balance: 100}))
	require.NoError(t, repo.EnsureSchema(ctx))

	clients, err := repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, clients, 1)

	require.NoError(t, repo.DropSchema(ctx))
	require.NoError(t, repo.DropSchema(ctx))
	require.NoError(t, repo.EnsureSchema(ctx))

	clients, err = repo.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, clients)
}

func TestIntegration_ClientLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepo(t)

	alice := &models.Client{Name: "alice", Password: "pwdA", Balance: 100}
	require.NoError(t, repo.Create(ctx, alice))
	assert.NotZero(t, alice.ID)

	err := repo.Create(ctx, &models.Client{Name: "alice", Password: "other", Balance: 1})
	assert.ErrorIs(t, err, pkgerrors.ErrDuplicateName)

	got, found, err := repo.GetByID(ctx, alice.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, *alice, got)

	id, found, err := repo.GetIDByName(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, alice.ID, id)

	balance, err := repo.AdjustBalance(ctx, "alice", "pwdA", -30)
	require.NoError(t, err)
	assert.Equal(t, int64(70), balance)

	_, err = repo.AdjustBalance(ctx, "alice", "pwdA", -71)
	assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)

	_, err = repo.AdjustBalance(ctx, "alice", "wrong", 10)
	assert.ErrorIs(t, err, pkgerrors.ErrAuthFailed)

	ok, err := repo.HasAtLeast(ctx, "alice", 70)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, repo.Delete(ctx, "alice"))
	_, found, err = repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)
	assert.ErrorIs(t, repo.Delete(ctx, "alice"), pkgerrors.ErrNotFound)
}

func TestIntegration_ConcurrentCreateSameName(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepo(t)

	const workers = 8
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = repo.Create(ctx, &models.Client{Name: "race", Password: "pwd", Balance: 1})
		}(i)
	}
	wg.Wait()

	created := 0
	for _, err := range errs {
		if err == nil {
			created++
			continue
		}
		assert.ErrorIs(t, err, pkgerrors.ErrDuplicateName)
	}
	assert.Equal(t, 1, created)
}

func TestIntegration_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	ctx := context.Background()
	repo := newIntegrationRepo(t)
	require.NoError(t, repo.Create(ctx, &models.Client{Name: "alice", Password: "pwdA", Balance: 100}))

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.AdjustBalance(ctx, "alice", "pwdA", -10); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _, err := repo.GetByName(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(0), got.Balance)
}

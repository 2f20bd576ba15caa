//go:build integration

package billstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	postgresmodule "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	container, err := postgresmodule.Run(ctx, "postgres:16",
		postgresmodule.WithDatabase("flateze_test"),
		postgresmodule.WithUsername("test_user"),
		postgresmodule.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	conn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, Migrate(ctx, conn))
	require.NoError(t, Migrate(ctx, conn), "second run is a no-op")

	pool, err := NewPostgresPool(ctx, conn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return NewPostgresStore(pool)
}

func TestPostgresStore_CreateFindDuplicate(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	b := sampleBill()
	dup, err := s.FindDuplicate(ctx, b.Key())
	require.NoError(t, err)
	assert.Nil(t, dup)

	created, err := s.CreateBill(ctx, b)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Amount.Equal(b.Amount))
	require.NotNil(t, created.DueDate)
	assert.Equal(t, "2024-09-15", created.DueDate.Format("2006-01-02"))

	dup, err = s.FindDuplicate(ctx, b.Key())
	require.NoError(t, err)
	require.NotNil(t, dup)
	assert.Equal(t, created.ID, dup.ID)

	_, err = s.CreateBill(ctx, b)
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresStore_NoDueDateNoReference(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	b := sampleBill()
	b.DueDate = nil
	b.ReferenceID = ""
	created, err := s.CreateBill(ctx, b)
	require.NoError(t, err)
	assert.Nil(t, created.DueDate)
	assert.Empty(t, created.ReferenceID)
}

func TestPostgresStore_ConcurrentInsertOneWins(t *testing.T) {
	ctx := context.Background()
	s := setupPostgres(t)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
		dups    int
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateBill(ctx, sampleBill())
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				created++
			case assert.ErrorIs(t, err, ErrDuplicate):
				dups++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, created)
	assert.Equal(t, 9, dups)
}

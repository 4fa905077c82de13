// Package postgresqltest поднимает PostgreSQL в testcontainers для интеграционных тестов.
package postgresqltest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/photobot/store/internal/config"
	"github.com/photobot/store/internal/storage/postgresql"
)

// Config запускает контейнер и возвращает настройки подключения к нему.
// Контейнер останавливается по завершении теста.
func Config(t *testing.T) config.Database {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("photobot"),
		postgres.WithUsername("bot"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	port, err := pgContainer.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return config.Database{
		Host:           host,
		Port:           port.Int(),
		User:           "bot",
		Password:       "password",
		Name:           "photobot",
		SSLMode:        "disable",
		PoolSize:       5,
		MinConns:       1,
		AcquireTimeout: 5 * time.Second,
	}
}

// New возвращает Storage с созданной схемой.
func New(t *testing.T) *postgresql.Storage {
	t.Helper()
	return NewWithConfig(t, Config(t))
}

// NewWithConfig открывает Storage по cfg и создаёт схему.
func NewWithConfig(t *testing.T, cfg config.Database) *postgresql.Storage {
	t.Helper()
	ctx := context.Background()

	storage, err := postgresql.New(ctx, cfg)
	require.NoError(t, err, "failed to connect test db")
	t.Cleanup(storage.Close)

	require.NoError(t, storage.EnsureSchema(ctx))
	return storage
}

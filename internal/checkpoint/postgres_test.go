package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	ctr, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("finflow"),
		postgres.WithUsername("finflow"),
		postgres.WithPassword("finflow"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestPostgresStore(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	runStoreSuite(t, func(t *testing.T) Store {
		s, err := OpenPostgres(ctx, dsn, nil)
		require.NoError(t, err)
		_, err = s.db.ExecContext(ctx, `TRUNCATE checkpoints, runs`)
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestPostgresMigrations(t *testing.T) {
	dsn := startPostgres(t)

	require.NoError(t, Migrate(dsn, MigrateUp))
	version, dirty, err := MigrationVersion(dsn)
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, Migrate(dsn, MigrateUp), "second up is a no-op")

	require.NoError(t, Migrate(dsn, MigrateDown))
	require.NoError(t, Migrate(dsn, MigrateUp))
}

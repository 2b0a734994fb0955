//go:build integration

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/couchcryptid/pm25-field-data/internal/adapter/storetest"
	"github.com/couchcryptid/pm25-field-data/internal/domain"
)

func TestStore(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.Run(ctx, "postgres:16-alpine",
		postgrescontainer.WithDatabase("pm25"),
		postgrescontainer.WithUsername("pm25"),
		postgrescontainer.WithPassword("pm25"),
		postgrescontainer.BasicWaitStrategies(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := Connect(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(store.Close)
	require.NoError(t, store.Ping(ctx))

	t.Run("connect applies the schema", func(t *testing.T) {
		for _, table := range []string{"sheets", "sheet_rows"} {
			var exists bool
			require.NoError(t, store.pool.QueryRow(ctx, `SELECT to_regclass($1) IS NOT NULL`, table).Scan(&exists))
			assert.True(t, exists, table)
		}
		require.NoError(t, store.EnsureSchema(ctx), "schema is idempotent")
	})

	storetest.Run(t, func(t *testing.T) domain.RecordStore {
		_, err := store.pool.Exec(ctx, `TRUNCATE sheets CASCADE`)
		require.NoError(t, err)
		return store
	})
}

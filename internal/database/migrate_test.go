package database

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrations_UpDownPairs(t *testing.T) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	require.NoError(t, err)

	ups := map[string]bool{}
	downs := map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		default:
			t.Errorf("unexpected file in migrations: %s", name)
		}
	}

	require.NotEmpty(t, ups)
	assert.Equal(t, ups, downs)
}

func TestMigrations_Schema(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000001_init_schema.up.sql")
	require.NoError(t, err)
	schema := string(data)

	for _, table := range []string{"accounts", "products", "orders", "password_reset_tokens"} {
		assert.Contains(t, schema, "CREATE TABLE IF NOT EXISTS "+table)
	}

	t.Run("orders survive account and product deletion", func(t *testing.T) {
		assert.Contains(t, schema, "REFERENCES accounts (id) ON DELETE SET NULL")
		assert.Contains(t, schema, "REFERENCES products (id) ON DELETE SET NULL")
	})

	t.Run("stock and counters cannot go negative", func(t *testing.T) {
		assert.Contains(t, schema, "CHECK (stock_quantity >= 0)")
		assert.Contains(t, schema, "CHECK (transaction_count >= 0)")
	})

	t.Run("email is unique", func(t *testing.T) {
		assert.Contains(t, schema, "email         VARCHAR(255) NOT NULL UNIQUE")
	})
}

func TestMigrations_SeedIsIdempotent(t *testing.T) {
	data, err := fs.ReadFile(migrationsFS, "migrations/000002_seed_products.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(data), "WHERE NOT EXISTS (SELECT 1 FROM products)")
	assert.Contains(t, string(data), "PERMANENT DRAGON")
}

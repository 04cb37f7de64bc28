package postgres

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationURL(t *testing.T) {
	assert.Equal(t, "pgx5://app:secret@db:5432/shop?sslmode=disable",
		MigrationURL("postgres://app:secret@db:5432/shop?sslmode=disable"))
	assert.Equal(t, "pgx5://db/shop", MigrationURL("postgresql://db/shop"))
	assert.Equal(t, "pgx5://db/shop", MigrationURL("pgx5://db/shop"))
}

func TestMigrations_ArePaired(t *testing.T) {
	ups, err := fs.Glob(migrations, "migrations/*.up.sql")
	require.NoError(t, err)
	downs, err := fs.Glob(migrations, "migrations/*.down.sql")
	require.NoError(t, err)
	require.NotEmpty(t, ups)
	assert.Len(t, downs, len(ups))
}

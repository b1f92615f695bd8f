package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMigrateURL(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@h:5432/db?sslmode=disable": "pgx5://u:p@h:5432/db?sslmode=disable",
		"postgresql://u:p@h:5432/db":               "pgx5://u:p@h:5432/db",
		"pgx5://already":                           "pgx5://already",
	}
	for in, want := range cases {
		assert.Equal(t, want, MigrateURL(in), in)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	assert.NoError(t, err)
	assert.Len(t, entries, 4)
}

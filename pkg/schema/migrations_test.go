package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetMigrations_VersionsAreOrderedAndUnique(t *testing.T) {
	migrations := GetMigrations()
	assert.NotEmpty(t, migrations)

	seen := make(map[int]bool)
	last := 0
	for _, m := range migrations {
		assert.Greater(t, m.Version, last, "migration versions must be strictly increasing")
		assert.False(t, seen[m.Version], "duplicate migration version %d", m.Version)
		assert.NotEmpty(t, m.Description)
		assert.NotEmpty(t, m.SQL)
		seen[m.Version] = true
		last = m.Version
	}
}

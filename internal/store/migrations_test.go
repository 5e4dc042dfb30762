package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatements(t *testing.T) {
	script := `-- leading comment
CREATE TABLE a (id TEXT);

-- between statements
CREATE INDEX idx_a ON a (id);
`
	stmts := statements(script)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (id TEXT)", stmts[0])
	assert.Equal(t, "CREATE INDEX idx_a ON a (id)", stmts[1])
}

func TestStatements_CommentOnlyScript(t *testing.T) {
	assert.Empty(t, statements("-- nothing here;\n-- still nothing\n"))
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Migrate(context.Background()))

	var applied int
	require.NoError(t, s.db.QueryRowContext(context.Background(),
		`SELECT COUNT(*) FROM migration_history`).Scan(&applied))
	assert.Equal(t, len(allMigrations), applied)
}

package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"ameliorate/infrastructure/persistence/repotest"
)

// Runs against a real server. Each subtest truncates the tables, so point
// TEST_DATABASE_URL at a scratch database.
func TestRepositoryContract(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	db, err := NewDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	repotest.RunContract(t, func(t *testing.T) repotest.Stores {
		_, err := db.Pool.Exec(ctx, `TRUNCATE user_scores, edges, nodes, topics, users`)
		require.NoError(t, err)
		return repotest.Stores{
			Topics: NewTopicRepository(db),
			Users:  NewUserRepository(db),
		}
	})
}

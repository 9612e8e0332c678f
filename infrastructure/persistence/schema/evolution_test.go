package schema

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExecutor struct {
	applied []SchemaVersion
	failOn  int
}

func (f *fakeExecutor) EnsureVersionTable(context.Context) error { return nil }

func (f *fakeExecutor) AppliedVersions(context.Context) ([]SchemaVersion, error) {
	return f.applied, nil
}

func (f *fakeExecutor) Apply(_ context.Context, m Migration) error {
	if m.Version == f.failOn {
		return errors.New("boom")
	}
	f.applied = append(f.applied, SchemaVersion{Version: m.Version, Description: m.Description})
	return nil
}

func TestRegisterMigration(t *testing.T) {
	s, err := NewSchemaEvolution(
		Migration{Version: 2, Up: "b"},
		Migration{Version: 1, Up: "a"},
	)
	require.NoError(t, err)
	assert.Equal(t, 2, s.LatestVersion())

	assert.Error(t, s.RegisterMigration(Migration{Version: 1, Up: "dup"}))
	assert.Error(t, s.RegisterMigration(Migration{Version: 0, Up: "x"}))
	assert.Error(t, s.RegisterMigration(Migration{Version: 3, Up: "  "}))
}

func TestMigrate(t *testing.T) {
	s, err := NewSchemaEvolution(
		Migration{Version: 1, Up: "a"},
		Migration{Version: 2, Up: "b"},
		Migration{Version: 3, Up: "c"},
	)
	require.NoError(t, err)

	exec := &fakeExecutor{applied: []SchemaVersion{{Version: 1}}}
	n, err := s.Migrate(context.Background(), exec)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = s.Migrate(context.Background(), exec)
	require.NoError(t, err)
	assert.Zero(t, n, "second run is a no-op")
}

func TestMigrate_StopsAtFailure(t *testing.T) {
	s, _ := NewSchemaEvolution(
		Migration{Version: 1, Up: "a"},
		Migration{Version: 2, Up: "b"},
		Migration{Version: 3, Up: "c"},
	)
	exec := &fakeExecutor{failOn: 2}

	n, err := s.Migrate(context.Background(), exec)
	require.Error(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, exec.applied, 1)
}

func TestLoadMigrations(t *testing.T) {
	fsys := fstest.MapFS{
		"m/001_create_topics.sql": {Data: []byte("CREATE TABLE topics (id TEXT);")},
		"m/002_add_index.sql":     {Data: []byte("CREATE INDEX i ON topics (id);")},
		"m/README.md":             {Data: []byte("ignored")},
	}

	migrations, err := LoadMigrations(fsys, "m")
	require.NoError(t, err)
	require.Len(t, migrations, 2)
	assert.Equal(t, 1, migrations[0].Version)
	assert.Equal(t, "create topics", migrations[0].Description)

	_, err = LoadMigrations(fstest.MapFS{"m/init.sql": {Data: []byte("x")}}, "m")
	assert.Error(t, err)
}

func TestSplitStatements(t *testing.T) {
	up := `-- topics
CREATE TABLE a (
    id TEXT
);

CREATE INDEX b ON a (id);
`
	assert.Equal(t, []string{"CREATE TABLE a (\n    id TEXT\n);", "CREATE INDEX b ON a (id);"}, SplitStatements(up))
}

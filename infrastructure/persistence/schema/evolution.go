// Package schema applies versioned SQL migrations to the relational stores.
package schema

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"time"
)

// SchemaVersion is one applied migration
type SchemaVersion struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"applied_at"`
}

// Migration moves the schema from Version-1 to Version
type Migration struct {
	Version     int
	Description string
	Up          string
}

// Executor runs migrations against one database. Apply must run the
// statements and record the version atomically.
type Executor interface {
	EnsureVersionTable(ctx context.Context) error
	AppliedVersions(ctx context.Context) ([]SchemaVersion, error)
	Apply(ctx context.Context, migration Migration) error
}

// SchemaEvolution manages database schema evolution
type SchemaEvolution struct {
	migrations []Migration
}

// NewSchemaEvolution creates a new schema evolution manager
func NewSchemaEvolution(migrations ...Migration) (*SchemaEvolution, error) {
	s := &SchemaEvolution{}
	for _, m := range migrations {
		if err := s.RegisterMigration(m); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// RegisterMigration registers a new migration
func (s *SchemaEvolution) RegisterMigration(migration Migration) error {
	if migration.Version <= 0 {
		return fmt.Errorf("invalid migration: version must be positive, got %d", migration.Version)
	}
	if strings.TrimSpace(migration.Up) == "" {
		return fmt.Errorf("invalid migration %d: no statements", migration.Version)
	}
	for _, existing := range s.migrations {
		if existing.Version == migration.Version {
			return fmt.Errorf("migration %d already exists", migration.Version)
		}
	}

	s.migrations = append(s.migrations, migration)
	sort.Slice(s.migrations, func(i, j int) bool { return s.migrations[i].Version < s.migrations[j].Version })
	return nil
}

// LatestVersion is the version the schema has after every migration
func (s *SchemaEvolution) LatestVersion() int {
	if len(s.migrations) == 0 {
		return 0
	}
	return s.migrations[len(s.migrations)-1].Version
}

// Pending returns the migrations not in applied, in order
func (s *SchemaEvolution) Pending(applied []SchemaVersion) []Migration {
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v.Version] = true
	}
	var pending []Migration
	for _, m := range s.migrations {
		if !done[m.Version] {
			pending = append(pending, m)
		}
	}
	return pending
}

// Migrate applies every pending migration and returns how many ran
func (s *SchemaEvolution) Migrate(ctx context.Context, exec Executor) (int, error) {
	if err := exec.EnsureVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("create version table: %w", err)
	}
	applied, err := exec.AppliedVersions(ctx)
	if err != nil {
		return 0, fmt.Errorf("read applied versions: %w", err)
	}

	pending := s.Pending(applied)
	for i, m := range pending {
		if err := exec.Apply(ctx, m); err != nil {
			return i, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}
	}
	return len(pending), nil
}

// LoadMigrations reads files named like 001_create_topics.sql from dir.
// The numeric prefix is the version and the rest is the description.
func LoadMigrations(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}

	var migrations []Migration
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".sql") {
			continue
		}
		prefix, rest, ok := strings.Cut(strings.TrimSuffix(name, ".sql"), "_")
		if !ok {
			return nil, fmt.Errorf("migration %s: expected <version>_<description>.sql", name)
		}
		version, err := strconv.Atoi(prefix)
		if err != nil {
			return nil, fmt.Errorf("migration %s: bad version: %w", name, err)
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		migrations = append(migrations, Migration{
			Version:     version,
			Description: strings.ReplaceAll(rest, "_", " "),
			Up:          string(body),
		})
	}
	return migrations, nil
}

// SplitStatements splits a migration on semicolons that end a line, for
// drivers that execute one statement per call.
func SplitStatements(up string) []string {
	var (
		out     []string
		current strings.Builder
	)
	for _, line := range strings.Split(up, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		current.WriteString(line)
		current.WriteString("\n")
		if strings.HasSuffix(trimmed, ";") {
			out = append(out, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if rest := strings.TrimSpace(current.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

// Package sqlite stores topics and users in an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"ameliorate/infrastructure/persistence/schema"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// DB wraps a SQLite database connection
type DB struct {
	conn *sql.DB
	Path string
}

// OpenDB opens a SQLite database with WAL mode and foreign keys enabled.
// Use ":memory:" for a throwaway database.
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// SQLite allows one writer; a single connection also keeps an
	// in-memory database alive for the life of the pool.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := conn.Exec(p); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}

	return &DB{conn: conn, Path: path}, nil
}

// Migrate brings the schema to the latest version
func (d *DB) Migrate(ctx context.Context) (int, error) {
	migrations, err := schema.LoadMigrations(migrationFiles, "migrations")
	if err != nil {
		return 0, err
	}
	evolution, err := schema.NewSchemaEvolution(migrations...)
	if err != nil {
		return 0, err
	}
	return evolution.Migrate(ctx, d)
}

// EnsureVersionTable implements schema.Executor
func (d *DB) EnsureVersionTable(ctx context.Context) error {
	_, err := d.conn.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at  INTEGER NOT NULL
)`)
	return err
}

// AppliedVersions implements schema.Executor
func (d *DB) AppliedVersions(ctx context.Context) ([]schema.SchemaVersion, error) {
	rows, err := d.conn.QueryContext(ctx, `SELECT version, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []schema.SchemaVersion
	for rows.Next() {
		var (
			v  schema.SchemaVersion
			at int64
		)
		if err := rows.Scan(&v.Version, &v.Description, &at); err != nil {
			return nil, err
		}
		v.AppliedAt = time.UnixMilli(at).UTC()
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Apply implements schema.Executor
func (d *DB) Apply(ctx context.Context, m schema.Migration) error {
	return d.inTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range schema.SplitStatements(m.Up) {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("%s: %w", firstLine(stmt), err)
			}
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
			m.Version, m.Description, time.Now().UnixMilli())
		return err
	})
}

// Ping reports whether the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// Close closes the database connection
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn returns the underlying sql.DB for custom queries
func (d *DB) Conn() *sql.DB {
	return d.conn
}

func (d *DB) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

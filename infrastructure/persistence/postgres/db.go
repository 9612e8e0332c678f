// Package postgres stores topics and users in PostgreSQL through a pgx pool.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"ameliorate/infrastructure/persistence/schema"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const uniqueViolation = "23505"

// DB wraps a pgx connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB connects to the database at dsn
func NewDB(ctx context.Context, dsn string) (*DB, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &DB{Pool: pool}, nil
}

// Close releases every pooled connection
func (d *DB) Close() {
	if d != nil && d.Pool != nil {
		d.Pool.Close()
	}
}

// Ping reports whether the database is reachable
func (d *DB) Ping(ctx context.Context) error {
	return d.Pool.Ping(ctx)
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
	_, err := d.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version     INTEGER PRIMARY KEY,
    description TEXT NOT NULL,
    applied_at  TIMESTAMPTZ NOT NULL
)`)
	return err
}

// AppliedVersions implements schema.Executor
func (d *DB) AppliedVersions(ctx context.Context) ([]schema.SchemaVersion, error) {
	rows, err := d.Pool.Query(ctx, `SELECT version, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []schema.SchemaVersion
	for rows.Next() {
		var v schema.SchemaVersion
		if err := rows.Scan(&v.Version, &v.Description, &v.AppliedAt); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// Apply implements schema.Executor
func (d *DB) Apply(ctx context.Context, m schema.Migration) error {
	return pgx.BeginFunc(ctx, d.Pool, func(tx pgx.Tx) error {
		for _, stmt := range schema.SplitStatements(m.Up) {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				line, _, _ := strings.Cut(stmt, "\n")
				return fmt.Errorf("%s: %w", line, err)
			}
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, description, applied_at) VALUES ($1, $2, $3)`,
			m.Version, m.Description, time.Now().UTC())
		return err
	})
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Package migrations provides filesystem-based database migrations.
//
// Migration files live in a directory and follow the naming scheme
// <version>_<name>.up.sql / <version>_<name>.down.sql, where version is
// a zero-padded numeric prefix (000001_reports.up.sql). Each migration
// runs in its own transaction and is recorded in schema_migrations.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/sarifscope/api/pkg/logger"
)

// Runner executes database migrations from a directory.
type Runner struct {
	db  *sql.DB
	dir string
	log *logger.Logger
}

// NewRunner creates a new migration runner.
func NewRunner(db *sql.DB, dir string, log *logger.Logger) *Runner {
	return &Runner{
		db:  db,
		dir: dir,
		log: log.With("component", "migrations"),
	}
}

// Record represents a row in the schema_migrations table.
type Record struct {
	Version   string
	AppliedAt time.Time
}

// EnsureTable creates the schema_migrations table if it doesn't exist.
func (r *Runner) EnsureTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version VARCHAR(14) PRIMARY KEY,
			applied_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
		)
	`
	_, err := r.db.ExecContext(ctx, query)
	return err
}

// Applied returns all applied migration versions, oldest first.
func (r *Runner) Applied(ctx context.Context) ([]Record, error) {
	query := `SELECT version, applied_at FROM schema_migrations ORDER BY version`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.Version, &rec.AppliedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Pending returns migration versions that have not been applied yet.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	available, err := scanMigrationFiles(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to scan migrations: %w", err)
	}

	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied migrations: %w", err)
	}

	appliedSet := make(map[string]bool)
	for _, rec := range applied {
		appliedSet[rec.Version] = true
	}

	var pending []string
	for _, v := range available {
		if !appliedSet[v] {
			pending = append(pending, v)
		}
	}

	sort.Strings(pending)
	return pending, nil
}

// Up runs all pending migrations.
func (r *Runner) Up(ctx context.Context) error {
	if err := r.EnsureTable(ctx); err != nil {
		return fmt.Errorf("failed to ensure migration table: %w", err)
	}

	pending, err := r.Pending(ctx)
	if err != nil {
		return err
	}

	if len(pending) == 0 {
		r.log.Info("no pending migrations")
		return nil
	}

	r.log.Info("running migrations", "count", len(pending))

	for _, version := range pending {
		if err := r.runMigration(ctx, version, "up"); err != nil {
			return fmt.Errorf("migration %s failed: %w", version, err)
		}
		r.log.Info("migration applied", "version", version)
	}

	return nil
}

// Down rolls back the last applied migration.
func (r *Runner) Down(ctx context.Context) error {
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}

	if len(applied) == 0 {
		r.log.Info("no migrations to rollback")
		return nil
	}

	last := applied[len(applied)-1]

	if err := r.runMigration(ctx, last.Version, "down"); err != nil {
		return fmt.Errorf("rollback %s failed: %w", last.Version, err)
	}

	_, err = r.db.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = $1", last.Version)
	if err != nil {
		return fmt.Errorf("failed to remove migration record: %w", err)
	}

	r.log.Info("migration rolled back", "version", last.Version)
	return nil
}

// runMigration executes a single migration inside a transaction.
func (r *Runner) runMigration(ctx context.Context, version, direction string) error {
	pattern := filepath.Join(r.dir, fmt.Sprintf("%s_*.%s.sql", version, direction))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return fmt.Errorf("migration file not found: %s", pattern)
	}

	content, err := os.ReadFile(matches[0])
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return err
	}

	// Record only on the way up
	if direction == "up" {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version) VALUES ($1)", version)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// scanMigrationFiles scans the migrations directory for available versions.
func scanMigrationFiles(dir string) ([]string, error) {
	versions := make(map[string]bool)

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(path, ".up.sql") {
			return nil
		}

		filename := filepath.Base(path)
		parts := strings.SplitN(filename, "_", 2)
		if len(parts) >= 1 {
			versions[parts[0]] = true
		}
		return nil
	})

	if err != nil {
		return nil, err
	}

	var result []string
	for v := range versions {
		result = append(result, v)
	}
	sort.Strings(result)
	return result, nil
}

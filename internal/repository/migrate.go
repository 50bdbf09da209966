package repository

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"regexp"
	"sort"
	"strconv"
)

//go:embed migrations/*/*.sql
var migrationsFS embed.FS

type migration struct {
	version  int
	name     string
	upFile   string
	downFile string
}

var migrationFileRe = regexp.MustCompile(`^([0-9]{4})_(.+)\.(up|down)\.sql$`)

// Migrate applies pending embedded migrations for the active dialect.
// Applied versions are tracked in schema_migrations.
func (r *Repository) Migrate(ctx context.Context) error {
	migrations, err := r.loadMigrations()
	if err != nil {
		return err
	}

	if err := r.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] || m.upFile == "" {
			continue
		}
		if err := r.runMigration(ctx, m.version, m.upFile, true); err != nil {
			return fmt.Errorf("migration %04d_%s: %w", m.version, m.name, err)
		}
	}
	return nil
}

// RollbackLast reverts the most recently applied migration.
func (r *Repository) RollbackLast(ctx context.Context) error {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return err
	}

	var version int
	err := r.db.QueryRowContext(ctx,
		`SELECT version FROM schema_migrations ORDER BY version DESC LIMIT 1`,
	).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	migrations, err := r.loadMigrations()
	if err != nil {
		return err
	}
	for _, m := range migrations {
		if m.version == version && m.downFile != "" {
			return r.runMigration(ctx, version, m.downFile, false)
		}
	}
	return fmt.Errorf("no down migration found for version %d", version)
}

// SchemaVersion returns the highest applied migration version, or 0.
func (r *Repository) SchemaVersion(ctx context.Context) (int, error) {
	if err := r.ensureMigrationsTable(ctx); err != nil {
		return 0, err
	}
	var version sql.NullInt64
	if err := r.db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return int(version.Int64), nil
}

func (r *Repository) runMigration(ctx context.Context, version int, file string, up bool) error {
	text, err := migrationsFS.ReadFile(file)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, string(text)); err != nil {
		return err
	}

	if up {
		_, err = tx.ExecContext(ctx, r.rebind(`INSERT INTO schema_migrations (version) VALUES (?)`), version)
	} else {
		_, err = tx.ExecContext(ctx, r.rebind(`DELETE FROM schema_migrations WHERE version = ?`), version)
	}
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (r *Repository) loadMigrations() ([]migration, error) {
	dir := "migrations/" + string(r.dialect)
	entries, err := fs.ReadDir(migrationsFS, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations: %w", err)
	}

	byVersion := map[int]*migration{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		match := migrationFileRe.FindStringSubmatch(entry.Name())
		if match == nil {
			continue
		}
		version, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		m, ok := byVersion[version]
		if !ok {
			m = &migration{version: version, name: match[2]}
			byVersion[version] = m
		}
		path := dir + "/" + entry.Name()
		if match[3] == "up" {
			m.upFile = path
		} else {
			m.downFile = path
		}
	}

	out := make([]migration, 0, len(byVersion))
	for _, m := range byVersion {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].version < out[j].version })
	return out, nil
}

func (r *Repository) ensureMigrationsTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}
	return nil
}

func (r *Repository) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("failed to list applied migrations: %w", err)
	}
	defer rows.Close()

	applied := map[int]bool{}
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

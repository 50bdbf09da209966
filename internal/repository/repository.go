// Package repository provides database access layer.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL flavour behind a Repository.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// queryTimeout bounds every single statement.
const queryTimeout = 5 * time.Second

// sqlitePragmas are applied to every SQLite connection through the DSN.
var sqlitePragmas = []string{
	"_foreign_keys=1",
	"_busy_timeout=5000",
	"_journal_mode=WAL",
}

// Repository provides database access methods.
// It is constructed once at startup and passed to the services that need it.
type Repository struct {
	db      *sql.DB
	dialect Dialect
}

// New opens a database handle for the given URL and verifies connectivity.
// postgres:// and postgresql:// URLs use the pgx driver; anything else is
// treated as a SQLite path or file: URI.
func New(ctx context.Context, databaseURL string) (*Repository, error) {
	driver, dsn, dialect := parseDatabaseURL(databaseURL)

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == DialectSQLite {
		// Single writer. Also keeps in-memory databases alive for the pool lifetime.
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(2)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db, dialect: dialect}, nil
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database handle.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Dialect returns the SQL dialect in use.
func (r *Repository) Dialect() Dialect {
	return r.dialect
}

// DB returns the underlying handle.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) DB() *sql.DB {
	return r.db
}

// rebind rewrites ? placeholders into $N for PostgreSQL.
func (r *Repository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func parseDatabaseURL(raw string) (driver, dsn string, dialect Dialect) {
	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return "pgx", raw, DialectPostgres
	}

	dsn = strings.TrimPrefix(raw, "sqlite://")
	dsn = strings.TrimPrefix(dsn, "sqlite3://")
	if dsn == "" {
		dsn = "taskflow.db"
	}
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}

	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return "sqlite3", dsn + sep + strings.Join(sqlitePragmas, "&"), DialectSQLite
}

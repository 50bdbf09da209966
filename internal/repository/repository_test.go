package repository

import (
	"context"
	"strings"
	"testing"

	"github.com/taskflow/taskflow/internal/testutil"
)

func newTestRepository(t *testing.T, ctx context.Context) *Repository {
	t.Helper()

	repo, err := New(ctx, testutil.MemoryDatabaseURL(t))
	if err != nil {
		t.Fatalf("create repository: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return repo
}

func TestParseDatabaseURL(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantDriver  string
		wantDialect Dialect
		wantPrefix  string
	}{
		{"postgres", "postgres://u:p@localhost:5432/db", "pgx", DialectPostgres, "postgres://u:p@localhost:5432/db"},
		{"postgresql", "postgresql://localhost/db", "pgx", DialectPostgres, "postgresql://localhost/db"},
		{"file uri", "file:taskflow.db", "sqlite3", DialectSQLite, "file:taskflow.db?_foreign_keys=1"},
		{"bare path", "data/app.db", "sqlite3", DialectSQLite, "file:data/app.db?"},
		{"sqlite scheme", "sqlite://app.db", "sqlite3", DialectSQLite, "file:app.db?"},
		{"existing query", "file:x?mode=memory&cache=shared", "sqlite3", DialectSQLite, "file:x?mode=memory&cache=shared&_foreign_keys=1"},
		{"empty", "", "sqlite3", DialectSQLite, "file:taskflow.db?"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			driver, dsn, dialect := parseDatabaseURL(tt.raw)
			if driver != tt.wantDriver {
				t.Errorf("driver = %q, want %q", driver, tt.wantDriver)
			}
			if dialect != tt.wantDialect {
				t.Errorf("dialect = %q, want %q", dialect, tt.wantDialect)
			}
			if !strings.HasPrefix(dsn, tt.wantPrefix) {
				t.Errorf("dsn = %q, want prefix %q", dsn, tt.wantPrefix)
			}
		})
	}
}

func TestRebind(t *testing.T) {
	pg := &Repository{dialect: DialectPostgres}
	lite := &Repository{dialect: DialectSQLite}
	query := "SELECT * FROM users WHERE id = ? AND email = ? LIMIT ?"

	if got, want := pg.rebind(query), "SELECT * FROM users WHERE id = $1 AND email = $2 LIMIT $3"; got != want {
		t.Errorf("postgres rebind = %q, want %q", got, want)
	}
	if got := lite.rebind(query); got != query {
		t.Errorf("sqlite rebind changed query: %q", got)
	}
}

func TestOrderBy(t *testing.T) {
	tests := []struct {
		key  string
		desc bool
		want string
	}{
		{"username", false, " ORDER BY username ASC, id ASC"},
		{"created_at", true, " ORDER BY created_at DESC, id DESC"},
		{"password_hash", false, " ORDER BY id ASC"},
		{"", true, " ORDER BY id DESC"},
	}

	for _, tt := range tests {
		if got := orderBy(UserSortColumns, tt.key, tt.desc); got != tt.want {
			t.Errorf("orderBy(%q, %v) = %q, want %q", tt.key, tt.desc, got, tt.want)
		}
	}
}

func TestEscapeLike(t *testing.T) {
	if got, want := escapeLike(`50%_off\`), `50\%\_off\\`; got != want {
		t.Errorf("escapeLike = %q, want %q", got, want)
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("second migrate: %v", err)
	}

	version, err := repo.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 1 {
		t.Errorf("schema version = %d, want 1", version)
	}
}

func TestMigrate_RollbackLast(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	if err := repo.RollbackLast(ctx); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	version, err := repo.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("schema version: %v", err)
	}
	if version != 0 {
		t.Errorf("schema version after rollback = %d, want 0", version)
	}

	if _, err := repo.DB().ExecContext(ctx, "SELECT 1 FROM users"); err == nil {
		t.Error("users table should be gone after rollback")
	}

	if err := repo.Migrate(ctx); err != nil {
		t.Fatalf("re-migrate: %v", err)
	}
}

func TestSeed(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepository(t, ctx)

	result, err := repo.Seed(ctx, "seed-hash")
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	if result.Users != 3 || result.Tasks != 6 {
		t.Fatalf("seed result = %+v, want 3 users and 6 tasks", result)
	}

	again, err := repo.Seed(ctx, "seed-hash")
	if err != nil {
		t.Fatalf("second seed: %v", err)
	}
	if again.Users != 0 || again.Tasks != 0 {
		t.Errorf("second seed inserted rows: %+v", again)
	}

	john, err := repo.GetUserByUsername(ctx, "john_doe")
	if err != nil {
		t.Fatalf("get seeded user: %v", err)
	}
	tasks, err := repo.ListTasks(ctx, TaskFilter{UserID: &john.ID})
	if err != nil {
		t.Fatalf("list tasks: %v", err)
	}
	if len(tasks) != 2 {
		t.Errorf("john_doe tasks = %d, want 2", len(tasks))
	}

	all, err := repo.ListTasks(ctx, TaskFilter{})
	if err != nil {
		t.Fatalf("list all tasks: %v", err)
	}
	unassigned := 0
	for _, task := range all {
		if !task.IsAssigned() {
			unassigned++
		}
	}
	if unassigned != 1 {
		t.Errorf("unassigned seeded tasks = %d, want 1", unassigned)
	}
}

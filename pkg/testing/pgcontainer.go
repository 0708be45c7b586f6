package testing

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// GradingTables are the tables created by db/migrations.
var GradingTables = []string{"grades", "grade_entries", "evaluation_rounds", "answers", "questions"}

// GradingDB is a disposable postgres with the grading schema applied.
type GradingDB struct {
	Container  *postgres.PostgresContainer
	ConnString string
}

// NewGradingDB starts postgres for tb, or skips tb in short mode. The container is terminated on cleanup.
func NewGradingDB(ctx context.Context, tb testing.TB) *GradingDB {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping postgres integration test in short mode")
	}

	scripts, err := migrationScripts()
	if err != nil {
		tb.Fatalf("failed to collect migrations: %v", err)
	}

	container, err := postgres.Run(ctx,
		"postgres:17.5",
		postgres.WithDatabase("grading_test_db"),
		postgres.WithUsername("grader"),
		postgres.WithPassword("grader"),
		postgres.WithInitScripts(scripts...),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		tb.Fatalf("failed to start postgres container: %v", err)
	}
	tb.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			tb.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		tb.Fatalf("failed to get connection string: %v", err)
	}
	return &GradingDB{Container: container, ConnString: connStr}
}

// Truncate empties every grading table so subtests can share one container.
func (db *GradingDB) Truncate(ctx context.Context, tb testing.TB) {
	tb.Helper()

	conn, err := pgx.Connect(ctx, db.ConnString)
	if err != nil {
		tb.Fatalf("failed to connect: %v", err)
	}
	defer conn.Close(ctx)

	if _, err := conn.Exec(ctx, "TRUNCATE "+strings.Join(GradingTables, ", ")+" CASCADE"); err != nil {
		tb.Fatalf("failed to truncate grading tables: %v", err)
	}
}

// MigrationsDir is the absolute path of db/migrations in this module.
func MigrationsDir() string {
	_, b, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(b), "..", "..", "db", "migrations")
}

// migrationScripts returns the *.up.sql files in apply order.
// The init directory runs them by file name, which keeps the numeric prefixes in order.
func migrationScripts() ([]string, error) {
	dir := MigrationsDir()
	files, err := filepath.Glob(filepath.Join(dir, "*.up.sql"))
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no migrations found in %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

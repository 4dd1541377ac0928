package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jakechorley/residency-scheduler/pkg/db"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const (
	// maxStatementsPerTx bounds the statements sent in one transaction
	maxStatementsPerTx = 400

	// maxAttempts counts the first try
	maxAttempts = 4
)

// DB provides database operations using PostgreSQL
type DB struct {
	pool *pgxpool.Pool

	// newBackOff builds the retry policy for one write
	newBackOff func() backoff.BackOff
}

// NewDB creates a new PostgreSQL database connection
func NewDB(ctx context.Context, connString string) (*DB, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create connection pool: %w", db.ErrPersistence, err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %w", db.ErrPersistence, err)
	}

	return &DB{pool: pool, newBackOff: defaultBackOff}, nil
}

// Close closes the database connection pool
func (d *DB) Close() {
	d.pool.Close()
}

func defaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	return limitAttempts(b)
}

func limitAttempts(b backoff.BackOff) backoff.BackOff {
	return backoff.WithMaxRetries(b, maxAttempts-1)
}

// RunMigrations executes all pending SQL migration files in order.
// Applied migrations are tracked in a schema_migrations table.
func (d *DB) RunMigrations(ctx context.Context) error {
	_, err := d.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			filename TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to create schema_migrations table: %w", db.ErrPersistence, err)
	}

	applied, err := d.appliedMigrations(ctx)
	if err != nil {
		return err
	}

	files, err := migrationFiles()
	if err != nil {
		return err
	}

	for _, filename := range files {
		if applied[filename] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+filename)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", filename, err)
		}

		err = pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, string(content)); err != nil {
				return fmt.Errorf("failed to execute migration %s: %w", filename, err)
			}
			if _, err := tx.Exec(ctx, `INSERT INTO schema_migrations (filename) VALUES ($1)`, filename); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", filename, err)
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("%w: %w", db.ErrPersistence, err)
		}
	}

	return nil
}

func (d *DB) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := d.pool.Query(ctx, `SELECT filename FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query applied migrations: %w", db.ErrPersistence, err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var filename string
		if err := rows.Scan(&filename); err != nil {
			return nil, fmt.Errorf("%w: failed to scan migration filename: %w", db.ErrPersistence, err)
		}
		applied[filename] = true
	}
	return applied, rows.Err()
}

// migrationFiles returns the embedded migration file names in apply order
func migrationFiles() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)
	return sqlFiles, nil
}

// statement is one queued write
type statement struct {
	sql  string
	args []any
}

// execChunked sends the statements in transactions of at most maxStatementsPerTx,
// retrying each transaction with exponential backoff. Statements must be idempotent.
func (d *DB) execChunked(ctx context.Context, op string, stmts []statement) error {
	for i, part := range chunk(stmts, maxStatementsPerTx) {
		if err := d.withRetry(ctx, func() error { return d.execTx(ctx, part) }); err != nil {
			return fmt.Errorf("%w: failed to %s (batch %d): %w", db.ErrPersistence, op, i+1, err)
		}
	}
	return nil
}

func (d *DB) execTx(ctx context.Context, stmts []statement) error {
	return pgx.BeginFunc(ctx, d.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, s := range stmts {
			batch.Queue(s.sql, s.args...)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

// withRetry runs op until it succeeds, fails permanently or the retry budget is spent
func (d *DB) withRetry(ctx context.Context, op func() error) error {
	return backoff.Retry(func() error {
		err := op()
		if err != nil && !isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(d.newBackOff(), ctx))
}

// isRetryable reports whether a failed write may succeed when sent again.
// Constraint, data and syntax errors never will.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "22", "23", "42":
			return false
		}
	}
	return true
}

func chunk[T any](items []T, size int) [][]T {
	var chunks [][]T
	for size < len(items) {
		items, chunks = items[size:], append(chunks, items[:size:size])
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}

// dateString formats a scanned DATE column
func dateString(t time.Time) string {
	return t.Format("2006-01-02")
}

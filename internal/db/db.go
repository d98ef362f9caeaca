package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

// ErrBeginTx marks a transaction that could not be started.
var ErrBeginTx = errors.New("begin transaction")

const (
	defaultMaxRetries = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// DB wraps a pgx connection pool and retries transient connection errors.
type DB struct {
	pool       *pgxpool.Pool
	maxRetries uint64
	retryDelay time.Duration
}

// New connects to PostgreSQL and returns a DB handle.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return FromPool(pool), nil
}

// FromPool wraps an existing pool with the default retry policy.
func FromPool(pool *pgxpool.Pool) *DB {
	return &DB{
		pool:       pool,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
	}
}

// SetRetry changes how many times transient errors are retried and the pause between attempts.
func (d *DB) SetRetry(maxRetries uint64, delay time.Duration) {
	d.maxRetries = maxRetries
	d.retryDelay = delay
}

// Close closes the database connection pool.
func (d *DB) Close() {
	d.pool.Close()
}

// Pool returns the underlying pgx pool.
func (d *DB) Pool() *pgxpool.Pool {
	return d.pool
}

// withRetry runs fn, retrying it while it fails with a transient connection error.
func (d *DB) withRetry(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(d.maxRetries, retry.NewConstant(d.retryDelay))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := fn(ctx)
		if err != nil && isTransient(err) {
			slog.Warn("transient database error", "op", op, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return err
	})
}

// isTransient reports connection failures that happened before the statement
// reached the server, and connection-exception class errors.
func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if pgconn.SafeToRetry(err) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return strings.HasPrefix(pgErr.Code, "08") || pgErr.Code == "57P01"
	}
	return false
}

// noRows maps pgx.ErrNoRows to found=false.
func noRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

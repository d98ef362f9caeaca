package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/udisondev/xilogin/internal/db/migrations"
)

// StartPostgres запускает PostgreSQL 16 testcontainer и применяет миграции.
// Возвращает pool и функцию остановки контейнера.
func StartPostgres(ctx context.Context) (*pgxpool.Pool, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("starting postgres container: %w", err)
	}
	terminate := func() { _ = testcontainers.TerminateContainer(container) }

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("getting connection string: %w", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		terminate()
		return nil, nil, fmt.Errorf("connecting to test db: %w", err)
	}

	if err := runMigrations(pool); err != nil {
		pool.Close()
		terminate()
		return nil, nil, fmt.Errorf("running migrations: %w", err)
	}

	return pool, func() {
		pool.Close()
		terminate()
	}, nil
}

// SetupTestDB создаёт PostgreSQL testcontainer для одного теста.
// Пропускает тест в режиме -short. Cleanup автоматический.
func SetupTestDB(tb testing.TB) *pgxpool.Pool {
	tb.Helper()
	if testing.Short() {
		tb.Skip("skipping postgres integration test in short mode")
	}

	pool, stop, err := StartPostgres(context.Background())
	if err != nil {
		tb.Fatalf("%v", err)
	}
	tb.Cleanup(stop)
	return pool
}

// TruncateAll очищает все таблицы между тестами.
func TruncateAll(tb testing.TB, pool *pgxpool.Pool) {
	tb.Helper()
	_, err := pool.Exec(context.Background(), `
		TRUNCATE accounts, ip_exceptions, chars, char_look, char_stats, char_exp,
		         char_jobs, char_pet, char_points, char_unlocks, char_profile,
		         char_storage, char_inventory, char_vars, zone_settings,
		         accounts_sessions, account_ip_record`)
	if err != nil {
		tb.Fatalf("truncating tables: %v", err)
	}
}

// runMigrations применяет embedded миграции через goose.
func runMigrations(pool *pgxpool.Pool) error {
	// goose требует *sql.DB, получаем его из pgxpool
	connStr := stdlib.RegisterConnConfig(pool.Config().ConnConfig)
	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("opening sql.DB: %w", err)
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(sqlDB, "."); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}
	return nil
}

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of a pgx pool the repositories depend on.
// *pgxpool.Pool and pgxmock pools both satisfy it.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PostgresConfig represents configuration for a PostgreSQL database connection
type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxConns        int
	MaxConnLifetime time.Duration
	Timeout         time.Duration
}

// NewPostgresConfig creates a new PostgreSQL database configuration
func NewPostgresConfig(host string, port int, user, password, database, sslMode string) *PostgresConfig {
	return &PostgresConfig{
		Host:            host,
		Port:            port,
		User:            user,
		Password:        password,
		Database:        database,
		SSLMode:         sslMode,
		MaxConns:        10,
		MaxConnLifetime: time.Hour,
		Timeout:         10 * time.Second,
	}
}

// ConnectionString returns the database connection string
func (c *PostgresConfig) ConnectionString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// PostgresDB handles interactions with a PostgreSQL database
type PostgresDB struct {
	q    Querier
	pool *pgxpool.Pool
}

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(ctx context.Context, config *PostgresConfig) (*PostgresDB, error) {
	poolConfig, err := pgxpool.ParseConfig(config.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}

	poolConfig.MaxConns = int32(config.MaxConns)
	poolConfig.MaxConnLifetime = config.MaxConnLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDB{q: pool, pool: pool}, nil
}

// NewFromQuerier wraps an existing querier, used by tests with pgxmock.
func NewFromQuerier(q Querier) *PostgresDB {
	return &PostgresDB{q: q}
}

// Close closes the database connection pool
func (db *PostgresDB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// Pool returns the underlying connection pool, nil when built from a querier.
func (db *PostgresDB) Pool() *pgxpool.Pool {
	return db.pool
}

// Ping tests the database connection
func (db *PostgresDB) Ping(ctx context.Context) error {
	if db.pool == nil {
		return nil
	}
	return db.pool.Ping(ctx)
}

// ExecContext executes an SQL query with no rows returned
func (db *PostgresDB) ExecContext(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return db.q.Exec(ctx, sql, args...)
}

// QueryContext executes an SQL query and returns the rows
func (db *PostgresDB) QueryContext(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.q.Query(ctx, sql, args...)
}

// QueryRowContext executes an SQL query and returns a single row
func (db *PostgresDB) QueryRowContext(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.q.QueryRow(ctx, sql, args...)
}

// BeginTx starts a transaction
func (db *PostgresDB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.q.Begin(ctx)
}

// WithTx runs fn inside a transaction, committing on success and rolling back otherwise.
func (db *PostgresDB) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

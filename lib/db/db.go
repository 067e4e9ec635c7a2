package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/artie-labs/starsync/lib/retry"
)

// Executor is satisfied by [*sql.DB] and [*sql.Conn].
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

var connectRetryCfg = retry.NewRetryConfig(retry.NewRetryConfigArgs{
	JitterBaseMs:   500,
	JitterMaxMs:    5_000,
	MaxAttempts:    5,
	IsRetryableErr: IsRetryableError,
})

// Open returns a connection pool that has been validated with a ping.
// Transient network failures while pinging are retried.
func Open(ctx context.Context, driverName, dsn string, maxOpenConns int) (*sql.DB, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to start a %q client: %w", driverName, err)
	}

	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns)
	}

	err = connectRetryCfg.WithRetries(ctx, func(_ int, _ error) error {
		return db.PingContext(ctx)
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			slog.Warn("Failed to close the connection pool", slog.String("driverName", driverName), slog.Any("err", closeErr))
		}
		return nil, fmt.Errorf("failed to validate the %q connection: %w", driverName, err)
	}

	return db, nil
}

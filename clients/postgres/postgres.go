package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/db"
	"github.com/artie-labs/starsync/lib/source"
)

// Store is the source database. It speaks database/sql, so both the pgx and the MySQL drivers are registered.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func LoadStore(ctx context.Context, cfg config.Source) (*Store, error) {
	sqlDB, err := db.Open(ctx, cfg.DriverName(), cfg.DSN(), cfg.MaxOpenConns)
	if err != nil {
		return nil, err
	}

	if version, err := db.RetrieveVersion(ctx, sqlDB); err != nil {
		slog.Warn("Failed to retrieve the source version", slog.Any("err", err))
	} else {
		slog.Info("Connected to source", slog.String("source", cfg.String()), slog.String("version", version.String()))
	}

	return NewStore(sqlDB), nil
}

// Execute holds a single connection for the duration of [query], it is always handed back to the pool.
func (s *Store) Execute(ctx context.Context, query source.Query) ([]source.Row, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire a connection: %w", err)
	}
	defer func() {
		if closeErr := conn.Close(); closeErr != nil {
			slog.Warn("Failed to release the connection", slog.Any("err", closeErr))
		}
	}()

	tx, err := conn.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to start tx: %w", err)
	}
	var committed bool
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				slog.Warn("Unable to rollback", slog.Any("err", rollbackErr))
			}
		}
	}()

	rows, err := tx.QueryContext(ctx, query.Text, query.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}

	objects, err := db.RowsToObjects(rows)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit tx: %w", err)
	}
	committed = true

	return objects, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

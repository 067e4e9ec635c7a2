package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/civil"
	_ "modernc.org/sqlite"

	"github.com/artie-labs/starsync/clients/sqlite/dialect"
	"github.com/artie-labs/starsync/lib/config"
	"github.com/artie-labs/starsync/lib/db"
	"github.com/artie-labs/starsync/lib/destination"
	"github.com/artie-labs/starsync/lib/schema"
	"github.com/artie-labs/starsync/lib/source"
	sqllib "github.com/artie-labs/starsync/lib/sql"
	"github.com/artie-labs/starsync/lib/typing"
)

// datasetsTable records which datasets exist, tables of a dataset share its name as a prefix.
const datasetsTable = "__starsync_datasets"

// Store is a [destination.Warehouse] backed by a single SQLite database, used for local runs and tests.
type Store struct {
	db *sql.DB
}

func LoadStore(ctx context.Context, cfg config.SQLite) (*Store, error) {
	sqlDB, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database %q: %w", cfg.Path, err)
	}

	// SQLite allows a single writer, and an in-memory database only lives as long as its connection.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	store := &Store{db: sqlDB}
	if err = store.init(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return store, nil
}

func (s *Store) init(ctx context.Context) error {
	query := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (name TEXT PRIMARY KEY)", s.Dialect().QuoteIdentifier(datasetsTable))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create datasets table: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Dialect() sqllib.Dialect {
	return dialect.SQLiteDialect{}
}

func (s *Store) IdentifierFor(dataset, table string) sqllib.TableIdentifier {
	return dialect.NewTableIdentifier(dataset, table)
}

func (s *Store) datasetExists(ctx context.Context, name string) (bool, error) {
	var count int
	query := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE name = ?", s.Dialect().QuoteIdentifier(datasetsTable))
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to look up dataset %q: %w", name, err)
	}
	return count > 0, nil
}

func (s *Store) CreateDataset(ctx context.Context, name string, existsOK bool) error {
	exists, err := s.datasetExists(ctx, name)
	if err != nil {
		return err
	}

	if exists {
		if existsOK {
			return nil
		}
		return fmt.Errorf("dataset %q already exists", name)
	}

	query := fmt.Sprintf("INSERT INTO %s (name) VALUES (?)", s.Dialect().QuoteIdentifier(datasetsTable))
	if _, err = s.db.ExecContext(ctx, query, name); err != nil {
		return fmt.Errorf("failed to create dataset %q: %w", name, err)
	}
	return nil
}

// ListTables returns the tables of [dataset] by name, without the dataset prefix.
func (s *Store) ListTables(ctx context.Context, dataset string) ([]string, error) {
	prefix := dialect.TablePrefix(dataset)
	rows, err := s.db.QueryContext(ctx, "SELECT name FROM sqlite_master WHERE type = 'table' AND substr(name, 1, ?) = ? ORDER BY name", len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %q: %w", dataset, err)
	}

	objects, err := db.RowsToObjects(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables of %q: %w", dataset, err)
	}

	tables := make([]string, 0, len(objects))
	for _, object := range objects {
		tables = append(tables, strings.TrimPrefix(fmt.Sprint(object["name"]), prefix))
	}
	return tables, nil
}

func (s *Store) DeleteDataset(ctx context.Context, name string, deleteContents, notFoundOK bool) error {
	exists, err := s.datasetExists(ctx, name)
	if err != nil {
		return err
	}

	if !exists {
		if notFoundOK {
			return nil
		}
		return fmt.Errorf("dataset %q does not exist", name)
	}

	tables, err := s.ListTables(ctx, name)
	if err != nil {
		return err
	}

	if len(tables) > 0 && !deleteContents {
		return fmt.Errorf("dataset %q is not empty, it has %d tables", name, len(tables))
	}

	statements := make([]string, 0, len(tables)+1)
	for _, table := range tables {
		statements = append(statements, fmt.Sprintf("DROP TABLE IF EXISTS %s", s.IdentifierFor(name, table).FullyQualifiedName()))
	}
	statements = append(statements, fmt.Sprintf("DELETE FROM %s WHERE name = %s", s.Dialect().QuoteIdentifier(datasetsTable), quoteLiteral(name)))

	if err = db.ExecContextStatements(ctx, s.db, statements); err != nil {
		return fmt.Errorf("failed to delete dataset %q: %w", name, err)
	}
	return nil
}

func (s *Store) GetOrCreateTable(ctx context.Context, tableID sqllib.TableIdentifier, table schema.TableDescriptor) error {
	exists, err := s.datasetExists(ctx, tableID.Dataset())
	if err != nil {
		return err
	}

	if !exists {
		return fmt.Errorf("dataset %q does not exist", tableID.Dataset())
	}

	query := s.Dialect().BuildCreateTableQuery(tableID, sqllib.BuildColumnDefinitions(table, s.Dialect()), table.PrimaryKeyNames())
	slog.Debug("Executing...", slog.String("query", query))
	if _, err = s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create table %s: %w", tableID.FullyQualifiedName(), err)
	}
	return nil
}

func (s *Store) WriteRows(ctx context.Context, tableID sqllib.TableIdentifier, table schema.TableDescriptor, rows []source.Row, mode destination.WriteMode) error {
	if err := mode.Validate(); err != nil {
		return err
	}

	if len(rows) == 0 {
		return nil
	}

	columns := table.Columns()
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		tableID.FullyQualifiedName(),
		strings.Join(sqllib.QuoteIdentifiers(table.ColumnNames(), s.Dialect()), ","),
		placeholders,
	)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start tx: %w", err)
	}
	var committed bool
	defer func() {
		if !committed {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				slog.Warn("Unable to rollback", slog.Any("err", rollbackErr))
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare insert into %s: %w", tableID.FullyQualifiedName(), err)
	}
	defer stmt.Close()

	for i, row := range rows {
		values := make([]any, len(columns))
		for j, col := range columns {
			values[j], err = toSQLiteValue(row[col.Name], col.Kind)
			if err != nil {
				return fmt.Errorf("row %d, column %q: %w", i, col.Name, err)
			}
		}

		if _, err = stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("failed to insert row %d into %s: %w", i, tableID.FullyQualifiedName(), err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rows into %s: %w", tableID.FullyQualifiedName(), err)
	}
	committed = true
	return nil
}

func quoteLiteral(value string) string {
	return fmt.Sprintf("'%s'", strings.ReplaceAll(value, "'", "''"))
}

func toSQLiteValue(value any, kind typing.Kind) (any, error) {
	casted, err := typing.Cast(value, kind)
	if err != nil {
		return nil, err
	}

	if date, ok := casted.(civil.Date); ok {
		return date.String(), nil
	}
	return casted, nil
}

func (s *Store) ExecuteStatement(ctx context.Context, query string) error {
	slog.Debug("Executing...", slog.String("query", query))
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to execute statement: %w", err)
	}
	return nil
}

// Query is used to inspect warehouse contents.
func (s *Store) Query(ctx context.Context, query string, args ...any) ([]map[string]any, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run query: %w", err)
	}
	return db.RowsToObjects(rows)
}

package db

import (
	"context"
	"fmt"
	"log/slog"
)

// ExecContextStatements executes one or more statements against an [Executor].
// If there is more than one statement, the statements will be executed inside of a transaction.
func ExecContextStatements(ctx context.Context, executor Executor, statements []string) error {
	switch len(statements) {
	case 0:
		return fmt.Errorf("statements is empty")
	case 1:
		slog.Debug("Executing...", slog.String("query", statements[0]))
		if _, err := executor.ExecContext(ctx, statements[0]); err != nil {
			return fmt.Errorf("failed to execute statement: %w", err)
		}
		return nil
	default:
		tx, err := executor.BeginTx(ctx, nil)
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

		for _, statement := range statements {
			slog.Debug("Executing...", slog.String("query", statement))
			if _, err = tx.ExecContext(ctx, statement); err != nil {
				return fmt.Errorf("failed to execute statement: %q, err: %w", statement, err)
			}
		}

		if err = tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit statements: %v, err: %w", statements, err)
		}
		committed = true
		return nil
	}
}

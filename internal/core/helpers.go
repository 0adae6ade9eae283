package core

import (
	"context"
	"fmt"
	"strings"
)

// ContextCheckInterval is how many rows are inserted between cancellation checks.
const ContextCheckInterval = 100

// entityColumns returns the database columns of an entity in FieldSpec order.
func entityColumns(def EntityDefinition) []string {
	cols := make([]string, len(def.FieldSpecs))
	for i, spec := range def.FieldSpecs {
		cols[i] = spec.Column()
	}
	return cols
}

// resolveDBColumn returns the database column for a header name.
func resolveDBColumn(col string, specs []FieldSpec) string {
	for _, spec := range specs {
		if strings.EqualFold(spec.Name, col) {
			return spec.Column()
		}
	}
	return toDBColumnName(col)
}

func quoteColumns(cols []string) []string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = quoteIdentifier(c)
	}
	return quoted
}

// buildInsertSQL returns an INSERT for table with one placeholder per column.
func buildInsertSQL(table string, cols []string) string {
	placeholders := make([]string, len(cols))
	for i := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(table),
		strings.Join(quoteColumns(cols), ", "),
		strings.Join(placeholders, ", "),
	)
}

// defaultInsert inserts the built values plus the run id into the entity table.
func defaultInsert(def EntityDefinition) InsertFunc {
	cols := append(entityColumns(def), "import_run_id")
	query := buildInsertSQL(def.Info.Table, cols)

	return func(ctx context.Context, db DBTX, runID string, values []any) error {
		if len(values) != len(def.FieldSpecs) {
			return fmt.Errorf("insert %s: got %d values for %d columns", def.Info.Table, len(values), len(def.FieldSpecs))
		}
		args := append(append(make([]any, 0, len(values)+1), values...), ToPgUUID(runID))
		_, err := db.Exec(ctx, query, args...)
		return err
	}
}

// withSavepoint runs fn inside a savepoint so a failing row does not abort
// the surrounding transaction. rowErr is fn's error; err is a failure of
// the savepoint itself, after which the transaction is unusable.
func withSavepoint(ctx context.Context, tx DBTX, name string, fn func() error) (rowErr, err error) {
	if _, err := tx.Exec(ctx, "SAVEPOINT "+name); err != nil {
		return nil, fmt.Errorf("create savepoint: %w", err)
	}

	if rowErr := fn(); rowErr != nil {
		if _, err := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+name); err != nil {
			return rowErr, fmt.Errorf("rollback savepoint: %w", err)
		}
		return rowErr, nil
	}

	_, _ = tx.Exec(ctx, "RELEASE SAVEPOINT "+name)
	return nil, nil
}

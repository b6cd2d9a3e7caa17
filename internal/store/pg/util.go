package pg

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

// isUniqueViolation reports whether err is a Postgres unique-constraint
// violation.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execMapUpdate issues `UPDATE <table> SET col1=$1, col2=$2, ... WHERE id=$N`
// from an arbitrary column->value map.
func execMapUpdate(ctx context.Context, ex execer, table string, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	cols := make([]string, 0, len(updates))
	for col := range updates {
		cols = append(cols, col)
	}
	sort.Strings(cols) // deterministic SQL text for easier debugging/logging

	setClauses := ""
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		if i > 0 {
			setClauses += ", "
		}
		setClauses += fmt.Sprintf("%s = $%d", col, i+1)
		args = append(args, updates[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = $%d", table, setClauses, len(args))
	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

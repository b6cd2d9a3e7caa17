package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	sqlite3 "modernc.org/sqlite"
)

// SQLite extended result codes for constraint violations (sqlite3.h), since
// modernc.org/sqlite surfaces the numeric code rather than a symbolic kind.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

// isUniqueViolation mirrors store/pg/util.go's isUniqueViolation for the
// embedded backend.
func isUniqueViolation(err error) bool {
	var sqliteErr *sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	code := sqliteErr.Code()
	return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
}

// execer is satisfied by both *sql.DB and *sql.Tx (grounded on the same
// pattern as store/pg/util.go).
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execMapUpdate issues `UPDATE <table> SET col1 = ?, col2 = ?, ... WHERE id = ?`
// from an arbitrary column->value map.
func execMapUpdate(ctx context.Context, ex execer, table string, id string, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}

	cols := make([]string, 0, len(updates))
	for col := range updates {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	setClauses := ""
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		if i > 0 {
			setClauses += ", "
		}
		setClauses += col + " = ?"
		args = append(args, updates[col])
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", table, setClauses)
	_, err := ex.ExecContext(ctx, query, args...)
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

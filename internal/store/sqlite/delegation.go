package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

type DelegationHistoryStore struct {
	db *sql.DB
}

func NewDelegationStore(db *sql.DB) *DelegationHistoryStore {
	return &DelegationHistoryStore{db: db}
}

const delegationSelectCols = `id, source_agent_id, target_agent_id, org_id, task_id, user_id, task, mode, status, result, error, iterations, trace_id, duration_ms, created_at, completed_at`

func (s *DelegationHistoryStore) SaveDelegationHistory(ctx context.Context, d *store.DelegationHistoryData) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO delegation_history (id, source_agent_id, target_agent_id, org_id, task_id, user_id, task, mode, status, result, error, iterations, trace_id, duration_ms, created_at, completed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.SourceAgentID, d.TargetAgentID, d.OrgID, d.TaskID, nullIfEmpty(d.UserID), d.Task,
		nullIfEmpty(d.Mode), d.Status, d.Result, d.Error, d.Iterations, nullIfEmpty(d.TraceID), d.DurationMS, d.CreatedAt, d.CompletedAt)
	return err
}

func (s *DelegationHistoryStore) GetDelegationHistory(ctx context.Context, id string) (*store.DelegationHistoryData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+delegationSelectCols+` FROM delegation_history WHERE id = ?`, id)
	d, err := scanDelegationRow(row)
	if err == sql.ErrNoRows {
		return nil, store.NewError(store.KindNotFound, id, "delegation history record not found")
	}
	return d, err
}

func (s *DelegationHistoryStore) ListDelegationHistory(ctx context.Context, opts store.DelegationHistoryListOpts) ([]store.DelegationHistoryData, int, error) {
	where := []string{"1=1"}
	args := []any{}

	if opts.SourceAgentID != nil {
		where = append(where, "source_agent_id = ?")
		args = append(args, *opts.SourceAgentID)
	}
	if opts.TargetAgentID != nil {
		where = append(where, "target_agent_id = ?")
		args = append(args, *opts.TargetAgentID)
	}
	if opts.OrgID != nil {
		where = append(where, "org_id = ?")
		args = append(args, *opts.OrgID)
	}
	if opts.UserID != "" {
		where = append(where, "user_id = ?")
		args = append(args, opts.UserID)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}
	whereClause := strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM delegation_history WHERE "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	queryArgs := append(append([]any{}, args...), limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+delegationSelectCols+` FROM delegation_history WHERE `+whereClause+`
		ORDER BY created_at DESC LIMIT ? OFFSET ?`, queryArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []store.DelegationHistoryData
	for rows.Next() {
		d, err := scanDelegationRowFromRows(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func scanDelegationRow(row *sql.Row) (*store.DelegationHistoryData, error) {
	var d store.DelegationHistoryData
	var userID, mode, traceID sql.NullString
	err := row.Scan(&d.ID, &d.SourceAgentID, &d.TargetAgentID, &d.OrgID, &d.TaskID, &userID, &d.Task,
		&mode, &d.Status, &d.Result, &d.Error, &d.Iterations, &traceID, &d.DurationMS, &d.CreatedAt, &d.CompletedAt)
	if err != nil {
		return nil, err
	}
	d.UserID = userID.String
	d.Mode = mode.String
	d.TraceID = traceID.String
	return &d, nil
}

func scanDelegationRowFromRows(rows *sql.Rows) (*store.DelegationHistoryData, error) {
	var d store.DelegationHistoryData
	var userID, mode, traceID sql.NullString
	err := rows.Scan(&d.ID, &d.SourceAgentID, &d.TargetAgentID, &d.OrgID, &d.TaskID, &userID, &d.Task,
		&mode, &d.Status, &d.Result, &d.Error, &d.Iterations, &traceID, &d.DurationMS, &d.CreatedAt, &d.CompletedAt)
	if err != nil {
		return nil, err
	}
	d.UserID = userID.String
	d.Mode = mode.String
	d.TraceID = traceID.String
	return &d, nil
}

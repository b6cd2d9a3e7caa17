package pg

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// TaskStore implements store.TaskStore backed by Postgres.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskSelectCols = `id, agent_id, title, status, priority, created_at, started_at, completed_at, blocked_since, parent_task_id, depth, percent_complete, subtasks_completed, subtasks_total, delegated_to, delegated_at, blocked_by, task_path, version, last_updated, last_executed, execution_count`

// NextTaskSeq returns one greater than the maximum integer N found in any
// existing task id for agentID matching "^task-(\d+)-" (§4.6.1). Postgres'
// regexp_replace + max is used instead of reading every id client-side.
func (s *TaskStore) NextTaskSeq(ctx context.Context, agentID string) (int, error) {
	var maxSeq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX((regexp_match(id, '^task-(\d+)-'))[1]::int)
		FROM tasks WHERE agent_id = $1 AND id ~ '^task-\d+-'`, agentID).Scan(&maxSeq)
	if err != nil {
		return 0, err
	}
	if !maxSeq.Valid {
		return 1, nil
	}
	return int(maxSeq.Int64) + 1, nil
}

func (s *TaskStore) InsertTask(ctx context.Context, t *store.TaskData) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, agent_id, title, status, priority, created_at, blocked_since, parent_task_id, depth, percent_complete, subtasks_completed, subtasks_total, delegated_to, blocked_by, task_path, version, execution_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0, 0, $10, $11, $12, 0, 0)`,
		t.ID, t.AgentID, t.Title, t.Status, t.Priority, t.CreatedAt, t.BlockedSince, t.ParentTaskID, t.Depth,
		t.DelegatedTo, pq.Array(t.BlockedBy), t.TaskPath)
	return err
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*store.TaskData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskSelectCols+` FROM tasks WHERE id = $1`, id)
	t, err := scanTaskRow(row)
	if err == sql.ErrNoRows {
		return nil, store.NewError(store.KindNotFound, id, "task not found")
	}
	return t, err
}

func (s *TaskStore) UpdateTaskStatus(ctx context.Context, id string, newStatus string, expectedVersion int) (int, error) {
	var res sql.Result
	var err error
	switch newStatus {
	case store.TaskStatusInProgress:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = $1, started_at = COALESCE(started_at, now()), version = version + 1, last_updated = now()
			WHERE id = $2 AND version = $3`, newStatus, id, expectedVersion)
	case store.TaskStatusCompleted:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = $1, completed_at = now(), percent_complete = 100, version = version + 1, last_updated = now()
			WHERE id = $2 AND version = $3`, newStatus, id, expectedVersion)
	case store.TaskStatusBlocked:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = $1, blocked_since = now(), version = version + 1, last_updated = now()
			WHERE id = $2 AND version = $3`, newStatus, id, expectedVersion)
	default:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = $1, version = version + 1, last_updated = now()
			WHERE id = $2 AND version = $3`, newStatus, id, expectedVersion)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *TaskStore) UpdateTaskProgress(ctx context.Context, id string, percent int, expectedVersion int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET percent_complete = $1, version = version + 1, last_updated = now()
		WHERE id = $2 AND version = $3`, percent, id, expectedVersion)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

// SetParentProgress writes roll-up fields with no version check — progress
// propagation up the task tree is eventually consistent (§4.6.4).
func (s *TaskStore) SetParentProgress(ctx context.Context, id string, completedCount, percent int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET subtasks_completed = $1, percent_complete = $2, last_updated = now() WHERE id = $3`,
		completedCount, percent, id)
	return err
}

func (s *TaskStore) IncrementSubtasksTotal(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET subtasks_total = subtasks_total + 1 WHERE id = $1`, id)
	return err
}

func (s *TaskStore) CountChildren(ctx context.Context, parentID string) (total, completed int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = $2)
		FROM tasks WHERE parent_task_id = $1`, parentID, store.TaskStatusCompleted).Scan(&total, &completed)
	return total, completed, err
}

func (s *TaskStore) DelegateTask(ctx context.Context, id string, toAgentID string, expectedVersion *int) (int, error) {
	var res sql.Result
	var err error
	if expectedVersion != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET delegated_to = $1, delegated_at = now(), version = version + 1, last_updated = now()
			WHERE id = $2 AND version = $3`, toAgentID, id, *expectedVersion)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET delegated_to = $1, delegated_at = now(), version = version + 1, last_updated = now()
			WHERE id = $2`, toAgentID, id)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *TaskStore) ListTasksByStatus(ctx context.Context, agentID string, filter string) ([]store.TaskData, error) {
	var query string
	switch filter {
	case store.TaskFilterActive:
		query = `SELECT ` + taskSelectCols + ` FROM tasks WHERE agent_id = $1 AND status IN ('pending','in-progress','blocked')
			ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at`
	case store.TaskFilterBlocked:
		query = `SELECT ` + taskSelectCols + ` FROM tasks WHERE agent_id = $1 AND status = 'blocked' ORDER BY blocked_since`
	default:
		query = `SELECT ` + taskSelectCols + ` FROM tasks WHERE agent_id = $1 ORDER BY created_at`
	}
	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func (s *TaskStore) SearchTasks(ctx context.Context, agentID string, query string, limit int) ([]store.TaskData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskSelectCols+`
		FROM tasks
		WHERE agent_id = $1 AND to_tsvector('english', title) @@ plainto_tsquery('english', $2)
		ORDER BY ts_rank(to_tsvector('english', title), plainto_tsquery('english', $2)) DESC
		LIMIT $3`, agentID, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func scanTaskRow(row *sql.Row) (*store.TaskData, error) {
	var t store.TaskData
	var blockedBy pq.StringArray
	err := row.Scan(
		&t.ID, &t.AgentID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt, &t.StartedAt, &t.CompletedAt,
		&t.BlockedSince, &t.ParentTaskID, &t.Depth, &t.PercentComplete, &t.SubtasksCompleted, &t.SubtasksTotal,
		&t.DelegatedTo, &t.DelegatedAt, &blockedBy, &t.TaskPath, &t.Version, &t.LastUpdated, &t.LastExecuted, &t.ExecutionCount,
	)
	if err != nil {
		return nil, err
	}
	t.BlockedBy = []string(blockedBy)
	return &t, nil
}

func scanTaskRows(rows *sql.Rows) ([]store.TaskData, error) {
	var out []store.TaskData
	for rows.Next() {
		var t store.TaskData
		var blockedBy pq.StringArray
		if err := rows.Scan(
			&t.ID, &t.AgentID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt, &t.StartedAt, &t.CompletedAt,
			&t.BlockedSince, &t.ParentTaskID, &t.Depth, &t.PercentComplete, &t.SubtasksCompleted, &t.SubtasksTotal,
			&t.DelegatedTo, &t.DelegatedAt, &blockedBy, &t.TaskPath, &t.Version, &t.LastUpdated, &t.LastExecuted, &t.ExecutionCount,
		); err != nil {
			return nil, err
		}
		t.BlockedBy = []string(blockedBy)
		out = append(out, t)
	}
	return out, rows.Err()
}

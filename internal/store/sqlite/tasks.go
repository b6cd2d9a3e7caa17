package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"regexp"
	"strconv"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// TaskStore implements store.TaskStore on embedded SQLite. blocked_by is
// stored as a JSON array column rather than a joined edge table, favoring
// the single-file backend's simplicity (see SPEC_FULL.md §9).
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

const taskSelectCols = `id, agent_id, title, status, priority, created_at, started_at, completed_at, blocked_since, parent_task_id, depth, percent_complete, subtasks_completed, subtasks_total, delegated_to, delegated_at, blocked_by, task_path, version, last_updated, last_executed, execution_count`

var taskSeqPattern = regexp.MustCompile(`^task-(\d+)-`)

// NextTaskSeq scans existing ids client-side since SQLite has no regexp
// function built in without loading an extension.
func (s *TaskStore) NextTaskSeq(ctx context.Context, agentID string) (int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM tasks WHERE agent_id = ?`, agentID)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	max := 0
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, err
		}
		m := taskSeqPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return max + 1, rows.Err()
}

func (s *TaskStore) InsertTask(ctx context.Context, t *store.TaskData) error {
	blockedBy, err := marshalBlockedBy(t.BlockedBy)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO tasks (id, agent_id, title, status, priority, created_at, blocked_since, parent_task_id, depth, percent_complete, subtasks_completed, subtasks_total, delegated_to, blocked_by, task_path, version, execution_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0, 0, ?, ?, ?, 0, 0)`,
		t.ID, t.AgentID, t.Title, t.Status, t.Priority, t.CreatedAt, t.BlockedSince, t.ParentTaskID, t.Depth, t.DelegatedTo, blockedBy, t.TaskPath)
	return err
}

func (s *TaskStore) GetTask(ctx context.Context, id string) (*store.TaskData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskSelectCols+` FROM tasks WHERE id = ?`, id)
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
			UPDATE tasks SET status = ?, started_at = COALESCE(started_at, CURRENT_TIMESTAMP), version = version + 1, last_updated = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?`, newStatus, id, expectedVersion)
	case store.TaskStatusCompleted:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = ?, completed_at = CURRENT_TIMESTAMP, percent_complete = 100, version = version + 1, last_updated = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?`, newStatus, id, expectedVersion)
	case store.TaskStatusBlocked:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = ?, blocked_since = CURRENT_TIMESTAMP, version = version + 1, last_updated = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?`, newStatus, id, expectedVersion)
	default:
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET status = ?, version = version + 1, last_updated = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?`, newStatus, id, expectedVersion)
	}
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *TaskStore) UpdateTaskProgress(ctx context.Context, id string, percent int, expectedVersion int) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET percent_complete = ?, version = version + 1, last_updated = CURRENT_TIMESTAMP
		WHERE id = ? AND version = ?`, percent, id, expectedVersion)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *TaskStore) SetParentProgress(ctx context.Context, id string, completedCount, percent int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET subtasks_completed = ?, percent_complete = ?, last_updated = CURRENT_TIMESTAMP WHERE id = ?`,
		completedCount, percent, id)
	return err
}

func (s *TaskStore) IncrementSubtasksTotal(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE tasks SET subtasks_total = subtasks_total + 1 WHERE id = ?`, id)
	return err
}

func (s *TaskStore) CountChildren(ctx context.Context, parentID string) (total, completed int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT count(*), count(*) FILTER (WHERE status = ?) FROM tasks WHERE parent_task_id = ?`,
		store.TaskStatusCompleted, parentID).Scan(&total, &completed)
	return total, completed, err
}

func (s *TaskStore) DelegateTask(ctx context.Context, id string, toAgentID string, expectedVersion *int) (int, error) {
	var res sql.Result
	var err error
	if expectedVersion != nil {
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET delegated_to = ?, delegated_at = CURRENT_TIMESTAMP, version = version + 1, last_updated = CURRENT_TIMESTAMP
			WHERE id = ? AND version = ?`, toAgentID, id, *expectedVersion)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE tasks SET delegated_to = ?, delegated_at = CURRENT_TIMESTAMP, version = version + 1, last_updated = CURRENT_TIMESTAMP
			WHERE id = ?`, toAgentID, id)
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
		query = `SELECT ` + taskSelectCols + ` FROM tasks WHERE agent_id = ? AND status IN ('pending','in-progress','blocked')
			ORDER BY CASE priority WHEN 'urgent' THEN 0 WHEN 'high' THEN 1 WHEN 'medium' THEN 2 ELSE 3 END, created_at`
	case store.TaskFilterBlocked:
		query = `SELECT ` + taskSelectCols + ` FROM tasks WHERE agent_id = ? AND status = 'blocked' ORDER BY blocked_since`
	default:
		query = `SELECT ` + taskSelectCols + ` FROM tasks WHERE agent_id = ? ORDER BY created_at`
	}
	rows, err := s.db.QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

// SearchTasks does a LIKE match over the title; SQLite's FTS5 module is not
// assumed to be compiled into modernc.org/sqlite, so this stays a plain
// substring search rather than a tsvector-equivalent ranked query.
func (s *TaskStore) SearchTasks(ctx context.Context, agentID string, query string, limit int) ([]store.TaskData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+taskSelectCols+`
		FROM tasks WHERE agent_id = ? AND title LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT ?`,
		agentID, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTaskRows(rows)
}

func escapeLike(s string) string {
	r := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '%' || c == '_' || c == '\\' {
			r = append(r, '\\')
		}
		r = append(r, c)
	}
	return string(r)
}

func marshalBlockedBy(ids []string) (string, error) {
	if ids == nil {
		ids = []string{}
	}
	b, err := json.Marshal(ids)
	return string(b), err
}

func scanTaskRow(row *sql.Row) (*store.TaskData, error) {
	var t store.TaskData
	var blockedByJSON string
	err := row.Scan(
		&t.ID, &t.AgentID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt, &t.StartedAt, &t.CompletedAt,
		&t.BlockedSince, &t.ParentTaskID, &t.Depth, &t.PercentComplete, &t.SubtasksCompleted, &t.SubtasksTotal,
		&t.DelegatedTo, &t.DelegatedAt, &blockedByJSON, &t.TaskPath, &t.Version, &t.LastUpdated, &t.LastExecuted, &t.ExecutionCount,
	)
	if err != nil {
		return nil, err
	}
	t.BlockedBy = unmarshalBlockedBy(blockedByJSON)
	return &t, nil
}

func scanTaskRows(rows *sql.Rows) ([]store.TaskData, error) {
	var out []store.TaskData
	for rows.Next() {
		var t store.TaskData
		var blockedByJSON string
		if err := rows.Scan(
			&t.ID, &t.AgentID, &t.Title, &t.Status, &t.Priority, &t.CreatedAt, &t.StartedAt, &t.CompletedAt,
			&t.BlockedSince, &t.ParentTaskID, &t.Depth, &t.PercentComplete, &t.SubtasksCompleted, &t.SubtasksTotal,
			&t.DelegatedTo, &t.DelegatedAt, &blockedByJSON, &t.TaskPath, &t.Version, &t.LastUpdated, &t.LastExecuted, &t.ExecutionCount,
		); err != nil {
			return nil, err
		}
		t.BlockedBy = unmarshalBlockedBy(blockedByJSON)
		out = append(out, t)
	}
	return out, rows.Err()
}

// unmarshalBlockedBy treats malformed JSON as "no blockers" per §4.7's
// tolerance requirement rather than failing the read.
func unmarshalBlockedBy(raw string) []string {
	if raw == "" {
		return nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(raw), &ids); err != nil {
		return nil
	}
	return ids
}

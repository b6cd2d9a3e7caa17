package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

type ScheduleStore struct {
	db *sql.DB
}

func NewScheduleStore(db *sql.DB) *ScheduleStore {
	return &ScheduleStore{db: db}
}

const scheduleSelectCols = `id, agent_id, trigger_type, description, cron_expression, timezone, next_execution_at, minimum_interval_seconds, only_when_tasks_pending, enabled, last_triggered_at, created_at, updated_at`

func (s *ScheduleStore) CreateSchedule(ctx context.Context, sch *store.ScheduleData) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO schedules (id, agent_id, trigger_type, description, cron_expression, timezone, minimum_interval_seconds, only_when_tasks_pending, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sch.ID, sch.AgentID, sch.TriggerType, nullIfEmpty(sch.Description), nullIfEmpty(sch.CronExpression),
		nullIfEmpty(sch.Timezone), sch.MinimumIntervalSeconds, sch.OnlyWhenTasksPending, sch.Enabled, sch.CreatedAt, sch.CreatedAt)
	return err
}

func (s *ScheduleStore) GetSchedule(ctx context.Context, id string) (*store.ScheduleData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+scheduleSelectCols+` FROM schedules WHERE id = ?`, id)
	sch, err := scanScheduleRow(row)
	if err == sql.ErrNoRows {
		return nil, store.NewError(store.KindNotFound, id, "schedule not found")
	}
	return sch, err
}

func (s *ScheduleStore) ListSchedules(ctx context.Context, agentID string) ([]store.ScheduleData, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduleSelectCols+` FROM schedules WHERE agent_id = ? ORDER BY created_at`, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduleRows(rows)
}

func (s *ScheduleStore) UpdateSchedule(ctx context.Context, id string, updates map[string]any) error {
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return execMapUpdate(ctx, s.db, "schedules", id, updates)
}

func (s *ScheduleStore) DeleteSchedule(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	return err
}

func (s *ScheduleStore) MarkTriggered(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE schedules SET last_triggered_at = ?, updated_at = ? WHERE id = ?`, at, at, id)
	return err
}

func (s *ScheduleStore) EnabledSchedules(ctx context.Context) ([]store.ScheduleData, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+scheduleSelectCols+` FROM schedules WHERE enabled = 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanScheduleRows(rows)
}

func scanScheduleRow(row *sql.Row) (*store.ScheduleData, error) {
	var sch store.ScheduleData
	var description, cronExpr, timezone sql.NullString
	err := row.Scan(
		&sch.ID, &sch.AgentID, &sch.TriggerType, &description, &cronExpr, &timezone,
		&sch.NextExecutionAt, &sch.MinimumIntervalSeconds, &sch.OnlyWhenTasksPending, &sch.Enabled,
		&sch.LastTriggeredAt, &sch.CreatedAt, &sch.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	applyScheduleNullables(&sch, description, cronExpr, timezone)
	return &sch, nil
}

func scanScheduleRows(rows *sql.Rows) ([]store.ScheduleData, error) {
	var out []store.ScheduleData
	for rows.Next() {
		var sch store.ScheduleData
		var description, cronExpr, timezone sql.NullString
		if err := rows.Scan(
			&sch.ID, &sch.AgentID, &sch.TriggerType, &description, &cronExpr, &timezone,
			&sch.NextExecutionAt, &sch.MinimumIntervalSeconds, &sch.OnlyWhenTasksPending, &sch.Enabled,
			&sch.LastTriggeredAt, &sch.CreatedAt, &sch.UpdatedAt,
		); err != nil {
			return nil, err
		}
		applyScheduleNullables(&sch, description, cronExpr, timezone)
		out = append(out, sch)
	}
	return out, rows.Err()
}

func applyScheduleNullables(sch *store.ScheduleData, description, cronExpr, timezone sql.NullString) {
	sch.Description = description.String
	sch.CronExpression = cronExpr.String
	sch.Timezone = timezone.String
}

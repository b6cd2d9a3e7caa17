package pg

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// AgentStore implements store.AgentStore backed by Postgres.
type AgentStore struct {
	db *sql.DB
}

func NewAgentStore(db *sql.DB) *AgentStore {
	return &AgentStore{db: db}
}

const agentSelectCols = `id, role, display_name, created_at, created_by, reporting_to, status, main_goal, config_path, last_execution_at, total_executions, total_runtime_minutes`

// CreateAgent inserts the agent row, its org_hierarchy self-reference, and,
// when ReportingTo is set, extends every ancestor row of the manager by one
// hop — all inside one transaction (§4.5).
func (s *AgentStore) CreateAgent(ctx context.Context, agent *store.AgentData) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO agents (id, role, display_name, created_at, created_by, reporting_to, status, main_goal, config_path, total_executions, total_runtime_minutes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 0, 0)`,
		agent.ID, agent.Role, agent.DisplayName, agent.CreatedAt, agent.CreatedBy, agent.ReportingTo,
		agent.Status, agent.MainGoal, agent.ConfigPath)
	if err != nil {
		if isUniqueViolation(err) {
			return store.NewError(store.KindConflict, agent.ID, "agent %s already exists", agent.ID)
		}
		return fmt.Errorf("insert agent: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO org_hierarchy (agent_id, ancestor_id, depth, path) VALUES ($1, $1, 0, $2)`,
		agent.ID, agent.Role)
	if err != nil {
		return fmt.Errorf("insert self org_hierarchy row: %w", err)
	}

	if agent.ReportingTo != nil {
		rows, err := tx.QueryContext(ctx, `
			SELECT ancestor_id, depth, path FROM org_hierarchy WHERE agent_id = $1`, *agent.ReportingTo)
		if err != nil {
			return fmt.Errorf("read manager ancestors: %w", err)
		}
		type ancestorRow struct {
			AncestorID string
			Depth      int
			Path       string
		}
		var ancestors []ancestorRow
		for rows.Next() {
			var r ancestorRow
			if err := rows.Scan(&r.AncestorID, &r.Depth, &r.Path); err != nil {
				rows.Close()
				return err
			}
			ancestors = append(ancestors, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()

		for _, r := range ancestors {
			_, err = tx.ExecContext(ctx, `
				INSERT INTO org_hierarchy (agent_id, ancestor_id, depth, path) VALUES ($1, $2, $3, $4)`,
				agent.ID, r.AncestorID, r.Depth+1, r.Path+"/"+agent.Role)
			if err != nil {
				return fmt.Errorf("extend ancestor %s: %w", r.AncestorID, err)
			}
		}
	}

	return tx.Commit()
}

func (s *AgentStore) GetAgent(ctx context.Context, id string) (*store.AgentData, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+agentSelectCols+` FROM agents WHERE id = $1`, id)
	a, err := scanAgentRow(row)
	if err == sql.ErrNoRows {
		return nil, store.NewError(store.KindNotFound, id, "agent not found")
	}
	return a, err
}

// UpdateAgent applies the non-nil fields of update and returns the result.
// Status-transition-driven audit logging is the caller's responsibility
// (internal/registry), not the store's.
func (s *AgentStore) UpdateAgent(ctx context.Context, id string, update store.AgentUpdate) (*store.AgentData, error) {
	updates := map[string]any{}
	if update.DisplayName != nil {
		updates["display_name"] = *update.DisplayName
	}
	if update.Status != nil {
		updates["status"] = *update.Status
	}
	if update.MainGoal != nil {
		updates["main_goal"] = *update.MainGoal
	}
	if update.LastExecutionAt != nil {
		updates["last_execution_at"] = *update.LastExecutionAt
	}
	if update.TotalExecutions != nil {
		updates["total_executions"] = *update.TotalExecutions
	}
	if update.TotalRuntimeMinutes != nil {
		updates["total_runtime_minutes"] = *update.TotalRuntimeMinutes
	}

	if len(updates) > 0 {
		if err := execMapUpdate(ctx, s.db, "agents", id, updates); err != nil {
			return nil, fmt.Errorf("update agent: %w", err)
		}
	}

	return s.GetAgent(ctx, id)
}

func (s *AgentStore) GetSubordinates(ctx context.Context, id string) ([]store.AgentData, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+prefixCols("a")+`
		FROM agents a
		JOIN org_hierarchy h ON h.agent_id = a.id
		WHERE h.ancestor_id = $1 AND h.depth > 0
		ORDER BY h.depth, a.id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgentRows(rows)
}

func (s *AgentStore) GetOrgChart(ctx context.Context) ([]store.AgentData, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+agentSelectCols+` FROM agents ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAgentRows(rows)
}

func (s *AgentStore) GetAncestors(ctx context.Context, id string) ([]store.OrgHierarchyRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT agent_id, ancestor_id, depth, path
		FROM org_hierarchy WHERE agent_id = $1 ORDER BY depth`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.OrgHierarchyRow
	for rows.Next() {
		var r store.OrgHierarchyRow
		if err := rows.Scan(&r.AgentID, &r.AncestorID, &r.Depth, &r.Path); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *AgentStore) IsSubordinate(ctx context.Context, candidate, ancestor string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM org_hierarchy WHERE agent_id = $1 AND ancestor_id = $2 AND depth > 0`,
		candidate, ancestor).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, err
}

func scanAgentRow(row *sql.Row) (*store.AgentData, error) {
	var a store.AgentData
	var createdBy, reportingTo sql.NullString
	var lastExec sql.NullTime
	err := row.Scan(
		&a.ID, &a.Role, &a.DisplayName, &a.CreatedAt, &createdBy, &reportingTo,
		&a.Status, &a.MainGoal, &a.ConfigPath, &lastExec, &a.TotalExecutions, &a.TotalRuntimeMinutes,
	)
	if err != nil {
		return nil, err
	}
	applyAgentNullables(&a, createdBy, reportingTo, lastExec)
	return &a, nil
}

func scanAgentRows(rows *sql.Rows) ([]store.AgentData, error) {
	var agents []store.AgentData
	for rows.Next() {
		var a store.AgentData
		var createdBy, reportingTo sql.NullString
		var lastExec sql.NullTime
		if err := rows.Scan(
			&a.ID, &a.Role, &a.DisplayName, &a.CreatedAt, &createdBy, &reportingTo,
			&a.Status, &a.MainGoal, &a.ConfigPath, &lastExec, &a.TotalExecutions, &a.TotalRuntimeMinutes,
		); err != nil {
			return nil, err
		}
		applyAgentNullables(&a, createdBy, reportingTo, lastExec)
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

func applyAgentNullables(a *store.AgentData, createdBy, reportingTo sql.NullString, lastExec sql.NullTime) {
	if createdBy.Valid {
		a.CreatedBy = &createdBy.String
	}
	if reportingTo.Valid {
		a.ReportingTo = &reportingTo.String
	}
	if lastExec.Valid {
		a.LastExecutionAt = &lastExec.Time
	}
}

func prefixCols(alias string) string {
	// agentSelectCols has no table-qualified names; this keeps the JOIN
	// query readable without hand-duplicating the column list per-alias.
	return fmt.Sprintf("%s.id, %s.role, %s.display_name, %s.created_at, %s.created_by, %s.reporting_to, %s.status, %s.main_goal, %s.config_path, %s.last_execution_at, %s.total_executions, %s.total_runtime_minutes",
		alias, alias, alias, alias, alias, alias, alias, alias, alias, alias, alias)
}

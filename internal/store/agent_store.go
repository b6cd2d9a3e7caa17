package store

import (
	"context"
	"time"
)

// Agent status constants (§3 Agent).
const (
	AgentStatusActive = "active"
	AgentStatusPaused = "paused"
	AgentStatusFired  = "fired"
)

// AgentData represents one row of the agents table.
type AgentData struct {
	ID                 string     `json:"id"`
	Role               string     `json:"role"`
	DisplayName        string     `json:"displayName"`
	CreatedAt          time.Time  `json:"createdAt"`
	CreatedBy          *string    `json:"createdBy,omitempty"`
	ReportingTo        *string    `json:"reportingTo,omitempty"`
	Status             string     `json:"status"`
	MainGoal           string     `json:"mainGoal"`
	ConfigPath         string     `json:"configPath"`
	LastExecutionAt    *time.Time `json:"lastExecutionAt,omitempty"`
	TotalExecutions    int        `json:"totalExecutions"`
	TotalRuntimeMinutes int       `json:"totalRuntimeMinutes"`
}

// AgentUpdate describes a partial update to an agent; nil fields are left
// untouched (§4.5 updateAgent "apply non-null fields").
type AgentUpdate struct {
	DisplayName         *string
	Status              *string
	MainGoal            *string
	LastExecutionAt     *time.Time
	TotalExecutions      *int
	TotalRuntimeMinutes *int
}

// OrgHierarchyRow is one row of the transitive-closure ancestor table.
type OrgHierarchyRow struct {
	AgentID    string `json:"agentId"`
	AncestorID string `json:"ancestorId"`
	Depth      int    `json:"depth"`
	Path       string `json:"path"`
}

// AgentStore persists agents and the org_hierarchy transitive closure.
type AgentStore interface {
	// CreateAgent inserts the agent and its self-reference org_hierarchy row,
	// then (if ReportingTo is set) extends every ancestor row of the manager
	// by one hop. Runs in a single transaction (§4.5).
	CreateAgent(ctx context.Context, agent *AgentData) error

	GetAgent(ctx context.Context, id string) (*AgentData, error)

	// UpdateAgent applies the non-nil fields of update and returns the result.
	UpdateAgent(ctx context.Context, id string, update AgentUpdate) (*AgentData, error)

	// GetSubordinates returns every transitive subordinate (depth > 0).
	GetSubordinates(ctx context.Context, id string) ([]AgentData, error)

	// GetOrgChart returns every agent (used to render/verify the whole tree).
	GetOrgChart(ctx context.Context) ([]AgentData, error)

	// GetAncestors returns the org_hierarchy rows for id for every ancestor,
	// ordered by depth ascending (depth 0 = self).
	GetAncestors(ctx context.Context, id string) ([]OrgHierarchyRow, error)

	// IsSubordinate reports whether candidate appears as a transitive
	// subordinate of ancestor (row (candidate, ancestor) with depth > 0).
	IsSubordinate(ctx context.Context, candidate, ancestor string) (bool, error)
}

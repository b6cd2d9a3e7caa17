package store

import (
	"encoding/json"
	"time"
)

import "context"

// Org status constants (§4.11).
const (
	OrgStatusActive   = "active"
	OrgStatusArchived = "archived"
)

// Org member role constants.
const (
	OrgRoleLead   = "lead"
	OrgRoleMember = "member"
)

// OrgData represents a loose, non-authoritative grouping of agents (§4.11).
type OrgData struct {
	BaseModel
	Name        string          `json:"name"`
	LeadAgentID string          `json:"leadAgentId"`
	Description string          `json:"description,omitempty"`
	Status      string          `json:"status"`
	Settings    json.RawMessage `json:"settings,omitempty"`
	CreatedBy   string          `json:"createdBy"`
}

// OrgMemberData represents one membership row.
type OrgMemberData struct {
	OrgID    string    `json:"orgId"`
	AgentID  string    `json:"agentId"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joinedAt"`
}

// OrgStore manages the loose org grouping described in §4.11. It is entirely
// orthogonal to AgentStore's org_hierarchy reporting tree.
type OrgStore interface {
	CreateOrg(ctx context.Context, org *OrgData) error
	GetOrg(ctx context.Context, orgID string) (*OrgData, error)
	DeleteOrg(ctx context.Context, orgID string) error
	ListOrgs(ctx context.Context) ([]OrgData, error)

	AddOrgMember(ctx context.Context, orgID, agentID, role string) error
	RemoveOrgMember(ctx context.Context, orgID, agentID string) error
	ListOrgMembers(ctx context.Context, orgID string) ([]OrgMemberData, error)

	// GetOrgForAgent returns the first active org the agent belongs to, or
	// nil if none (§4.11 — "at most one active org at a time").
	GetOrgForAgent(ctx context.Context, agentID string) (*OrgData, error)
}

// Package registry implements the Agent Registry (§4.5): agent CRUD over
// store.AgentStore, with the invariants and audit-action selection that
// belong above the store's thin primitives.
package registry

import (
	"context"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

type Registry struct {
	agents store.AgentStore
	audit  store.AuditStore
}

func New(agents store.AgentStore, audit store.AuditStore) *Registry {
	return &Registry{agents: agents, audit: audit}
}

// CreateAgent inserts agent after checking the invariants the store's unique
// constraint doesn't cover: reporting_to referential integrity and
// self-reporting. Cycle rejection on hire is internal/lifecycle's concern
// (validateHire runs before this is ever called with a manager set).
func (r *Registry) CreateAgent(ctx context.Context, agent *store.AgentData) error {
	if agent.ReportingTo != nil {
		if *agent.ReportingTo == agent.ID {
			return store.NewError(store.KindSelfReference, agent.ID, "agent cannot report to itself")
		}
		manager, err := r.agents.GetAgent(ctx, *agent.ReportingTo)
		if err != nil {
			return err
		}
		if manager.Status != store.AgentStatusActive {
			return store.NewError(store.KindInvalidState, manager.ID, "manager %s is not active", manager.ID)
		}
	}

	err := r.agents.CreateAgent(ctx, agent)
	r.appendAudit(ctx, store.AuditHire, agent.ID, agent.ReportingTo, nil, err)
	return err
}

func (r *Registry) GetAgent(ctx context.Context, id string) (*store.AgentData, error) {
	return r.agents.GetAgent(ctx, id)
}

// UpdateAgent applies update and selects the audit action from the status
// transition: active→paused is PAUSE, paused→active is RESUME, any change to
// fired is FIRE, anything else is CONFIG_UPDATE (§4.5).
func (r *Registry) UpdateAgent(ctx context.Context, id string, update store.AgentUpdate) (agent *store.AgentData, err error) {
	before, err := r.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}

	action := store.AuditConfigUpdate
	if update.Status != nil {
		switch {
		case before.Status == store.AgentStatusActive && *update.Status == store.AgentStatusPaused:
			action = store.AuditPause
		case before.Status == store.AgentStatusPaused && *update.Status == store.AgentStatusActive:
			action = store.AuditResume
		case *update.Status == store.AgentStatusFired:
			action = store.AuditFire
		}
	}

	defer func() { r.appendAudit(ctx, action, id, nil, nil, err) }()

	agent, err = r.agents.UpdateAgent(ctx, id, update)
	return agent, err
}

func (r *Registry) GetSubordinates(ctx context.Context, id string) ([]store.AgentData, error) {
	return r.agents.GetSubordinates(ctx, id)
}

func (r *Registry) GetOrgChart(ctx context.Context) ([]store.AgentData, error) {
	return r.agents.GetOrgChart(ctx)
}

func (r *Registry) GetAncestors(ctx context.Context, id string) ([]store.OrgHierarchyRow, error) {
	return r.agents.GetAncestors(ctx, id)
}

func (r *Registry) IsSubordinate(ctx context.Context, candidate, ancestor string) (bool, error) {
	return r.agents.IsSubordinate(ctx, candidate, ancestor)
}

func (r *Registry) appendAudit(ctx context.Context, action store.AuditAction, agentID string, managerID *string, details map[string]any, opErr error) {
	if details == nil {
		details = map[string]any{}
	}
	if managerID != nil {
		details["managerId"] = *managerID
	}
	success := opErr == nil
	if opErr != nil {
		details["error"] = opErr.Error()
	}
	event := &store.AuditEventData{
		ID:            store.GenNewID().String(),
		Timestamp:     time.Now().UTC(),
		TargetAgentID: &agentID,
		Action:        action,
		Success:       success,
		Details:       details,
	}
	_ = r.audit.AppendAudit(ctx, event)
}

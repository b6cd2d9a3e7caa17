// Package lifecycle implements the Lifecycle Orchestrator (§4.8): hiring,
// pausing/resuming, and completion notification, each a DB mutation
// (committed first) followed by best-effort, post-commit filesystem and
// messaging side effects.
package lifecycle

import (
	"context"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/agentconfig"
	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// Orchestrator composes the store interfaces directly (rather than
// internal/registry) because §4.8's audit rows carry operation-specific
// details (tasksBlocked, notificationsSent) that the registry's generic
// status-transition auditing doesn't model.
type Orchestrator struct {
	agents   store.AgentStore
	tasks    store.TaskStore
	messages store.MessageStore
	audit    store.AuditStore
	config   *agentconfig.Service
	paths    *pathresolver.Resolver
}

func New(agents store.AgentStore, tasks store.TaskStore, messages store.MessageStore, audit store.AuditStore, config *agentconfig.Service, paths *pathresolver.Resolver) *Orchestrator {
	return &Orchestrator{agents: agents, tasks: tasks, messages: messages, audit: audit, config: config, paths: paths}
}

func (o *Orchestrator) appendAudit(ctx context.Context, action store.AuditAction, actorAgentID string, targetAgentID *string, details map[string]any, opErr error) {
	if details == nil {
		details = map[string]any{}
	}
	var actor *string
	if actorAgentID != "" {
		actor = &actorAgentID
	}
	success := opErr == nil
	if opErr != nil {
		details["error"] = opErr.Error()
	}
	event := &store.AuditEventData{
		ID:            store.GenNewID().String(),
		Timestamp:     time.Now().UTC(),
		ActorAgentID:  actor,
		Action:        action,
		TargetAgentID: targetAgentID,
		Success:       success,
		Details:       details,
	}
	_ = o.audit.AppendAudit(ctx, event)
}

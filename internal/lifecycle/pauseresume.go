package lifecycle

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/fsio"
	"github.com/nextlevelbuilder/orgkernel/internal/messaging"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// PauseResult is returned by PauseAgent (§4.8.2).
type PauseResult struct {
	AgentID           string `json:"agentId"`
	Status            string `json:"status"`
	PreviousStatus    string `json:"previousStatus"`
	NotificationsSent int    `json:"notificationsSent"`
	TasksBlocked      int    `json:"tasksBlocked"`
}

// PauseAgent implements §4.8.2.
func (o *Orchestrator) PauseAgent(ctx context.Context, id string) (result *PauseResult, err error) {
	defer func() {
		details := map[string]any{}
		if result != nil {
			details["tasksBlocked"] = result.TasksBlocked
		}
		o.appendAudit(ctx, store.AuditPause, "", &id, details, err)
	}()

	agent, err := o.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.Status == store.AgentStatusPaused || agent.Status == store.AgentStatusFired {
		return nil, store.NewError(store.KindInvalidState, id, "agent %s is already %s", id, agent.Status)
	}
	previousStatus := agent.Status

	paused := store.AgentStatusPaused
	if _, err = o.agents.UpdateAgent(ctx, id, store.AgentUpdate{Status: &paused}); err != nil {
		return nil, err
	}

	summary := o.blockActiveTasks(ctx, id)
	o.recordAutoBlocked(id, summary.blockedIDs)

	notifications := o.notifyPauseResume(ctx, agent, "Paused", "Subordinate Paused")

	result = &PauseResult{
		AgentID: id, Status: store.AgentStatusPaused, PreviousStatus: previousStatus,
		NotificationsSent: notifications, TasksBlocked: summary.changed,
	}
	return result, nil
}

// ResumeResult is returned by ResumeAgent (§4.8.2).
type ResumeResult struct {
	AgentID           string `json:"agentId"`
	Status            string `json:"status"`
	NotificationsSent int    `json:"notificationsSent"`
	TasksUnblocked    int    `json:"tasksUnblocked"`
}

// ResumeAgent implements §4.8.2.
func (o *Orchestrator) ResumeAgent(ctx context.Context, id string) (result *ResumeResult, err error) {
	defer func() {
		details := map[string]any{}
		if result != nil {
			details["tasksUnblocked"] = result.TasksUnblocked
		}
		o.appendAudit(ctx, store.AuditResume, "", &id, details, err)
	}()

	agent, err := o.agents.GetAgent(ctx, id)
	if err != nil {
		return nil, err
	}
	if agent.Status != store.AgentStatusPaused {
		return nil, store.NewError(store.KindInvalidState, id, "agent %s is not paused", id)
	}

	active := store.AgentStatusActive
	if _, err = o.agents.UpdateAgent(ctx, id, store.AgentUpdate{Status: &active}); err != nil {
		return nil, err
	}

	autoBlocked := o.loadAutoBlocked(id)
	unblocked := o.unblockTasks(ctx, autoBlocked)
	o.recordAutoBlocked(id, nil)

	notifications := o.notifyPauseResume(ctx, agent, "Resumed", "Subordinate Resumed")

	result = &ResumeResult{AgentID: id, Status: store.AgentStatusActive, NotificationsSent: notifications, TasksUnblocked: unblocked}
	return result, nil
}

type blockSummary struct {
	total      int
	changed    int
	blockedIDs []string
}

// blockActiveTasks best-effort transitions every non-terminal, non-already-
// blocked task of agentID to blocked, recording which ids it touched so
// ResumeAgent can undo exactly those.
func (o *Orchestrator) blockActiveTasks(ctx context.Context, agentID string) blockSummary {
	var summary blockSummary
	tasks, err := o.tasks.ListTasksByStatus(ctx, agentID, store.TaskFilterActive)
	if err != nil {
		return summary
	}
	summary.total = len(tasks)
	for _, t := range tasks {
		if t.Status == store.TaskStatusBlocked {
			continue
		}
		if rows, err := o.tasks.UpdateTaskStatus(ctx, t.ID, store.TaskStatusBlocked, t.Version); err == nil && rows > 0 {
			summary.changed++
			summary.blockedIDs = append(summary.blockedIDs, t.ID)
		}
	}
	return summary
}

// unblockTasks best-effort transitions the given tasks back to pending,
// skipping any that are missing or no longer blocked (e.g. completed or
// archived since the pause).
func (o *Orchestrator) unblockTasks(ctx context.Context, ids []string) int {
	changed := 0
	for _, id := range ids {
		task, err := o.tasks.GetTask(ctx, id)
		if err != nil || task.Status != store.TaskStatusBlocked {
			continue
		}
		if rows, err := o.tasks.UpdateTaskStatus(ctx, id, store.TaskStatusPending, task.Version); err == nil && rows > 0 {
			changed++
		}
	}
	return changed
}

func (o *Orchestrator) recordAutoBlocked(agentID string, ids []string) {
	path := o.paths.MetadataPath(agentID)
	data, err := fsio.SafeLoad(path, nil)
	var meta Metadata
	if err == nil {
		_ = json.Unmarshal(data, &meta)
	}
	meta.AgentID = agentID
	meta.AutoBlockedTasks = ids
	out, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return
	}
	_ = fsio.AtomicWrite(path, out, 0644)
}

func (o *Orchestrator) loadAutoBlocked(agentID string) []string {
	data, err := fsio.SafeLoad(o.paths.MetadataPath(agentID), nil)
	if err != nil {
		return nil
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil
	}
	return meta.AutoBlockedTasks
}

// notifyPauseResume writes the agent-facing notice and, if a manager
// exists, the manager-facing notice, both best-effort. Returns how many of
// the (up to two) writes succeeded.
func (o *Orchestrator) notifyPauseResume(ctx context.Context, agent *store.AgentData, agentSubject, managerSubject string) int {
	sent := 0
	now := time.Now().UTC()

	agentMsg := &store.MessageData{
		ID: messaging.GenerateMessageID(), From: "system", To: agent.ID, Timestamp: now,
		Priority: store.MessagePriorityNormal, Channel: store.MessageChannelInternal, Subject: agentSubject,
	}
	if _, err := messaging.WriteMessageToInbox(o.paths, agent.ID, agentMsg, agentSubject, messaging.WriteOptions{}); err == nil {
		_ = o.messages.RecordMessage(ctx, agentMsg)
		sent++
	}

	if agent.ReportingTo != nil {
		managerMsg := &store.MessageData{
			ID: messaging.GenerateMessageID(), From: "system", To: *agent.ReportingTo, Timestamp: now,
			Priority: store.MessagePriorityNormal, Channel: store.MessageChannelInternal, Subject: managerSubject,
		}
		if _, err := messaging.WriteMessageToInbox(o.paths, *agent.ReportingTo, managerMsg, managerSubject, messaging.WriteOptions{}); err == nil {
			_ = o.messages.RecordMessage(ctx, managerMsg)
			sent++
		}
	}

	return sent
}

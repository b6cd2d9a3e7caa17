package lifecycle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/messaging"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// NotifyTaskCompletion implements §4.8.3. It returns (nil, nil) when no
// notification was due (no manager, or the manager opted out) — that is not
// an error.
func (o *Orchestrator) NotifyTaskCompletion(ctx context.Context, task *store.TaskData, forced bool) (msg *store.MessageData, err error) {
	owner, err := o.agents.GetAgent(ctx, task.AgentID)
	if err != nil {
		return nil, err
	}
	if owner.ReportingTo == nil {
		return nil, nil
	}
	managerID := *owner.ReportingTo

	managerCfg, err := o.config.LoadAgentConfig(managerID)
	if err != nil {
		return nil, err
	}
	if !managerCfg.Communication.NotifyOnCompletion && !forced {
		return nil, nil
	}

	defer func() { o.appendAudit(ctx, store.AuditTaskComplete, task.AgentID, &managerID, map[string]any{"taskId": task.ID}, err) }()

	msg = &store.MessageData{
		ID:        messaging.GenerateMessageID(),
		From:      task.AgentID,
		To:        managerID,
		Timestamp: time.Now().UTC(),
		Priority:  completionPriority(task.Priority),
		Channel:   store.MessageChannelInternal,
		Subject:   fmt.Sprintf("Task Completed: %s", task.Title),
		ThreadID:  "task-" + task.ID,
	}

	body := completionBody(task)
	if _, werr := messaging.WriteMessageToInbox(o.paths, managerID, msg, body, messaging.WriteOptions{}); werr != nil {
		return nil, werr
	}
	if rerr := o.messages.RecordMessage(ctx, msg); rerr != nil {
		return nil, rerr
	}

	return msg, nil
}

// completionPriority maps task priority to message priority per §4.8.3:
// urgent|high → high, medium → normal, low → low.
func completionPriority(taskPriority string) string {
	switch taskPriority {
	case store.TaskPriorityUrgent, store.TaskPriorityHigh:
		return store.MessagePriorityHigh
	case store.TaskPriorityLow:
		return store.MessagePriorityLow
	default:
		return store.MessagePriorityNormal
	}
}

func completionBody(task *store.TaskData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", task.Title)
	fmt.Fprintf(&b, "Owner: %s\n", task.AgentID)
	fmt.Fprintf(&b, "Priority: %s\n", task.Priority)
	if task.ParentTaskID != nil {
		fmt.Fprintf(&b, "Parent: %s\n", *task.ParentTaskID)
	}
	fmt.Fprintf(&b, "Depth: %d\n", task.Depth)
	fmt.Fprintf(&b, "Progress: %d%%\n", task.PercentComplete)
	fmt.Fprintf(&b, "Subtasks: %d/%d\n", task.SubtasksCompleted, task.SubtasksTotal)
	if task.DelegatedTo != nil {
		fmt.Fprintf(&b, "Delegated to: %s\n", *task.DelegatedTo)
	}
	if task.TaskPath != "" {
		fmt.Fprintf(&b, "Path: %s\n", task.TaskPath)
	}
	fmt.Fprintf(&b, "Time to complete: %s\n", timeToComplete(task))
	return b.String()
}

// timeToComplete renders the elapsed time from creation to completion as
// "Hh Mm" or "Mm" (§4.8.3). Returns "" if completedAt is unset.
func timeToComplete(task *store.TaskData) string {
	if task.CompletedAt == nil {
		return ""
	}
	d := task.CompletedAt.Sub(task.CreatedAt)
	if d < 0 {
		d = 0
	}
	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

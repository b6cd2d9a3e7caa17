// Package tasks implements the task engine: task CRUD with depth,
// dependency, and optimistic-locking invariants, plus the recursive
// progress roll-up (§4.6). It composes store.TaskStore/AgentStore/AuditStore
// in one package rather than leaving that orchestration to callers.
package tasks

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// Engine implements §4.6 on top of the store interfaces.
type Engine struct {
	tasks  store.TaskStore
	agents store.AgentStore
	audit  store.AuditStore
}

func NewEngine(tasks store.TaskStore, agents store.AgentStore, audit store.AuditStore) *Engine {
	return &Engine{tasks: tasks, agents: agents, audit: audit}
}

// CreateTaskInput carries the create-time fields named in §4.6.1.
type CreateTaskInput struct {
	AgentID      string
	Title        string
	Priority     string
	ParentTaskID *string
	DelegatedTo  *string
	TaskPath     string
	BlockedBy    []string
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func titleSlug(title string) string {
	s := strings.ToLower(title)
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 40 {
		s = s[:40]
	}
	return strings.TrimRight(s, "-")
}

// CreateTask implements §4.6.1's create algorithm.
func (e *Engine) CreateTask(ctx context.Context, in CreateTaskInput) (task *store.TaskData, err error) {
	defer func() { e.appendAudit(ctx, store.AuditTaskCreate, in.AgentID, nil, err) }()

	if _, agentErr := e.agents.GetAgent(ctx, in.AgentID); agentErr != nil {
		return nil, agentErr
	}

	depth := 0
	if in.ParentTaskID != nil {
		parent, perr := e.tasks.GetTask(ctx, *in.ParentTaskID)
		if perr != nil {
			return nil, perr
		}
		if parent.Depth >= store.TaskMaxDepth {
			return nil, store.NewError(store.KindDepthExceeded, *in.ParentTaskID,
				"task depth would exceed maximum of %d", store.TaskMaxDepth)
		}
		depth = parent.Depth + 1
	}

	seq, err := e.tasks.NextTaskSeq(ctx, in.AgentID)
	if err != nil {
		return nil, err
	}
	newID := fmt.Sprintf("task-%d-%s", seq, titleSlug(in.Title))

	for _, blockerID := range in.BlockedBy {
		if blockerID == newID {
			return nil, store.NewError(store.KindCycleSelf, newID, "a task cannot block itself")
		}
		blocker, berr := e.tasks.GetTask(ctx, blockerID)
		if berr != nil {
			return nil, store.NewError(store.KindBlockerMissing, blockerID, "blocker %s not found", blockerID)
		}
		if !blocker.IsLive() {
			return nil, store.NewError(store.KindBlockerTerminal, blockerID, "blocker %s is %s", blockerID, blocker.Status)
		}
		reaches, rerr := e.blockedByReaches(ctx, blockerID, newID)
		if rerr != nil {
			return nil, rerr
		}
		if reaches {
			return nil, store.NewError(store.KindCycleDetected, newID, "blocked_by would introduce a cycle through %s", blockerID)
		}
	}

	priority := in.Priority
	if priority == "" {
		priority = store.TaskPriorityMedium
	}

	status := store.TaskStatusPending
	now := time.Now().UTC()
	t := &store.TaskData{
		ID:           newID,
		AgentID:      in.AgentID,
		Title:        in.Title,
		Status:       status,
		Priority:     priority,
		CreatedAt:    now,
		ParentTaskID: in.ParentTaskID,
		Depth:        depth,
		DelegatedTo:  in.DelegatedTo,
		BlockedBy:    in.BlockedBy,
		TaskPath:     in.TaskPath,
	}
	if len(in.BlockedBy) > 0 {
		t.Status = store.TaskStatusBlocked
		blockedSince := now
		t.BlockedSince = &blockedSince
	}

	if err := e.tasks.InsertTask(ctx, t); err != nil {
		return nil, err
	}

	if in.ParentTaskID != nil {
		if err := e.tasks.IncrementSubtasksTotal(ctx, *in.ParentTaskID); err != nil {
			return nil, err
		}
	}

	return t, nil
}

// blockedByReaches reports whether following blocked_by edges from startID
// ever reaches targetID. Missing tasks are dead ends, matching §4.6.1's
// tolerance for a blocker whose own blockers can't be resolved.
func (e *Engine) blockedByReaches(ctx context.Context, startID, targetID string) (bool, error) {
	visited := map[string]bool{}
	queue := []string{startID}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if id == targetID {
			return true, nil
		}
		if visited[id] {
			continue
		}
		visited[id] = true

		t, err := e.tasks.GetTask(ctx, id)
		if err != nil {
			continue
		}
		queue = append(queue, t.BlockedBy...)
	}
	return false, nil
}

// UpdateStatus implements §4.6.2.
func (e *Engine) UpdateStatus(ctx context.Context, id, newStatus string, expectedVersion int) (result *store.TaskData, err error) {
	action := store.AuditTaskUpdate
	if newStatus == store.TaskStatusCompleted {
		action = store.AuditTaskComplete
	}
	defer func() {
		var targetAgent *string
		if result != nil {
			targetAgent = &result.AgentID
		}
		e.appendAudit(ctx, action, "", targetAgent, err)
	}()

	existing, err := e.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	rows, err := e.tasks.UpdateTaskStatus(ctx, id, newStatus, expectedVersion)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, store.VersionMismatchError(id, expectedVersion)
	}

	updated, err := e.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if newStatus == store.TaskStatusCompleted && existing.ParentTaskID != nil {
		if err := e.updateParentTaskProgress(ctx, *existing.ParentTaskID); err != nil {
			return updated, err
		}
	}

	return updated, nil
}

// UpdateProgress implements §4.6.3, clamping percent to [0, 100].
func (e *Engine) UpdateProgress(ctx context.Context, id string, percent int, expectedVersion int) (result *store.TaskData, err error) {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}

	before, berr := e.tasks.GetTask(ctx, id)
	defer func() {
		details := map[string]any{"newProgress": percent}
		if before != nil {
			details["previousProgress"] = before.PercentComplete
		}
		e.appendAuditDetails(ctx, store.AuditTaskUpdate, "", nil, details, err)
	}()
	if berr != nil {
		err = berr
		return nil, err
	}

	rows, err := e.tasks.UpdateTaskProgress(ctx, id, percent, expectedVersion)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		err = store.VersionMismatchError(id, expectedVersion)
		return nil, err
	}
	result, err = e.tasks.GetTask(ctx, id)
	return result, err
}

// updateParentTaskProgress implements §4.6.4, recursing toward the root; the
// recursion terminates because depth is bounded by TaskMaxDepth.
func (e *Engine) updateParentTaskProgress(ctx context.Context, parentID string) error {
	parent, err := e.tasks.GetTask(ctx, parentID)
	if store.IsKind(err, store.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	total, completed, err := e.tasks.CountChildren(ctx, parentID)
	if err != nil {
		return err
	}

	pct := 0
	if total > 0 {
		pct = int(math.Round(100 * float64(completed) / float64(total)))
	}

	if err := e.tasks.SetParentProgress(ctx, parentID, completed, pct); err != nil {
		return err
	}

	e.appendAuditDetails(ctx, store.AuditTaskUpdate, "", &parent.AgentID,
		map[string]any{"action": "parent_progress_update", "percentComplete": pct, "subtasksCompleted": completed}, nil)

	if parent.ParentTaskID != nil {
		return e.updateParentTaskProgress(ctx, *parent.ParentTaskID)
	}
	return nil
}

// DelegateTask implements §4.6.5.
func (e *Engine) DelegateTask(ctx context.Context, taskID, toAgentID string, expectedVersion *int) (result *store.TaskData, err error) {
	var fromAgentID string
	defer func() {
		e.appendAuditDetails(ctx, store.AuditTaskUpdate, "", &toAgentID,
			map[string]any{"action": "delegate", "fromAgent": fromAgentID, "toAgent": toAgentID}, err)
	}()

	task, err := e.tasks.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	fromAgentID = task.AgentID
	if _, err := e.agents.GetAgent(ctx, toAgentID); err != nil {
		return nil, err
	}

	isSub, err := e.agents.IsSubordinate(ctx, toAgentID, task.AgentID)
	if err != nil {
		return nil, err
	}
	if !isSub {
		return nil, store.NewError(store.KindNotSubordinate, toAgentID, "%s is not a subordinate of %s", toAgentID, task.AgentID)
	}

	if task.DelegatedTo != nil && *task.DelegatedTo == toAgentID {
		return task, nil
	}

	rows, err := e.tasks.DelegateTask(ctx, taskID, toAgentID, expectedVersion)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		version := 0
		if expectedVersion != nil {
			version = *expectedVersion
		}
		return nil, store.VersionMismatchError(taskID, version)
	}

	return e.tasks.GetTask(ctx, taskID)
}

func (e *Engine) GetActiveTasks(ctx context.Context, agentID string) ([]store.TaskData, error) {
	return e.tasks.ListTasksByStatus(ctx, agentID, store.TaskFilterActive)
}

func (e *Engine) GetBlockedTasks(ctx context.Context, agentID string) ([]store.TaskData, error) {
	return e.tasks.ListTasksByStatus(ctx, agentID, store.TaskFilterBlocked)
}

// CompleteTask is a convenience wrapper over UpdateStatus that rejects
// already-archived tasks (§4.6.6).
func (e *Engine) CompleteTask(ctx context.Context, id string, expectedVersion int) (*store.TaskData, error) {
	current, err := e.tasks.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == store.TaskStatusArchived {
		return nil, store.NewError(store.KindInvalidState, id, "task %s is archived and cannot be completed", id)
	}
	return e.UpdateStatus(ctx, id, store.TaskStatusCompleted, expectedVersion)
}

func (e *Engine) appendAudit(ctx context.Context, action store.AuditAction, actorAgentID string, targetAgentID *string, opErr error) {
	e.appendAuditDetails(ctx, action, actorAgentID, targetAgentID, nil, opErr)
}

func (e *Engine) appendAuditDetails(ctx context.Context, action store.AuditAction, actorAgentID string, targetAgentID *string, details map[string]any, opErr error) {
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
	// Audit append failures are not themselves fatal to the caller's
	// already-completed operation; they're silently discarded once the
	// primary mutation has already committed.
	_ = e.audit.AppendAudit(ctx, event)
}

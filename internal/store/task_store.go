package store

import "context"

import "time"

// Task status constants (§3 Task).
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in-progress"
	TaskStatusBlocked    = "blocked"
	TaskStatusCompleted  = "completed"
	TaskStatusArchived   = "archived"
)

// Task priority constants, in urgency order (urgent < high < medium < low).
const (
	TaskPriorityUrgent = "urgent"
	TaskPriorityHigh   = "high"
	TaskPriorityMedium = "medium"
	TaskPriorityLow    = "low"
)

// TaskData represents one row of the tasks table.
type TaskData struct {
	ID                 string     `json:"id"`
	AgentID            string     `json:"agentId"`
	Title              string     `json:"title"`
	Status             string     `json:"status"`
	Priority           string     `json:"priority"`
	CreatedAt          time.Time  `json:"createdAt"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	CompletedAt        *time.Time `json:"completedAt,omitempty"`
	BlockedSince       *time.Time `json:"blockedSince,omitempty"`
	ParentTaskID       *string    `json:"parentTaskId,omitempty"`
	Depth              int        `json:"depth"`
	PercentComplete    int        `json:"percentComplete"`
	SubtasksCompleted  int        `json:"subtasksCompleted"`
	SubtasksTotal      int        `json:"subtasksTotal"`
	DelegatedTo        *string    `json:"delegatedTo,omitempty"`
	DelegatedAt        *time.Time `json:"delegatedAt,omitempty"`
	BlockedBy          []string   `json:"blockedBy"`
	TaskPath           string     `json:"taskPath"`
	Version            int        `json:"version"`
	LastUpdated        *time.Time `json:"lastUpdated,omitempty"`
	LastExecuted       *time.Time `json:"lastExecuted,omitempty"`
	ExecutionCount     int        `json:"executionCount"`
}

// IsLive reports whether the task can still block other tasks (§3 blocked_by).
func (t TaskData) IsLive() bool {
	return t.Status != TaskStatusCompleted && t.Status != TaskStatusArchived
}

// TaskFilter controls how ListTasks/GetActiveTasks-style queries scope rows.
const (
	TaskFilterActive  = "active"  // pending | in-progress | blocked
	TaskFilterBlocked = "blocked" // blocked only
	TaskFilterAll     = "all"
)

// TaskStore persists tasks for the task engine (internal/tasks).
//
// Every mutating method here is a thin, single-statement primitive; the
// business rules (depth checks, cycle probing, version-token enforcement,
// progress propagation) live in internal/tasks, which composes these calls
// one after another; it does not wrap them in a shared transaction.
type TaskStore interface {
	// NextTaskSeq returns one greater than the maximum integer N found in any
	// existing task id for agentID matching "^task-(\d+)-" (§4.6.1).
	NextTaskSeq(ctx context.Context, agentID string) (int, error)

	InsertTask(ctx context.Context, task *TaskData) error

	GetTask(ctx context.Context, id string) (*TaskData, error)

	// UpdateTaskStatus performs the single WHERE id=? AND version=? UPDATE
	// described in §4.6.2 and returns the number of rows affected.
	UpdateTaskStatus(ctx context.Context, id string, newStatus string, expectedVersion int) (rowsAffected int, err error)

	// UpdateTaskProgress performs the WHERE id=? AND version=? UPDATE for
	// percent_complete described in §4.6.3.
	UpdateTaskProgress(ctx context.Context, id string, percent int, expectedVersion int) (rowsAffected int, err error)

	// SetParentProgress writes subtasks_completed/percent_complete/last_updated
	// on a parent task with no version check (§4.6.4 — eventually consistent).
	SetParentProgress(ctx context.Context, id string, completedCount, percent int) error

	// IncrementSubtasksTotal bumps subtasks_total by one on task creation.
	IncrementSubtasksTotal(ctx context.Context, id string) error

	// CountChildren returns (total, completed) children of parentID.
	CountChildren(ctx context.Context, parentID string) (total, completed int, err error)

	// DelegateTask performs the optional WHERE version=? UPDATE described in
	// §4.6.5 and returns rows affected. If expectedVersion is nil, no version
	// clause is applied.
	DelegateTask(ctx context.Context, id string, toAgentID string, expectedVersion *int) (rowsAffected int, err error)

	ListTasksByStatus(ctx context.Context, agentID string, filter string) ([]TaskData, error)

	SearchTasks(ctx context.Context, agentID string, query string, limit int) ([]TaskData, error)
}

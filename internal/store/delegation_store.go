package store

import (
	"context"
	"time"
)

// Delegation history status constants (§4.12).
const (
	DelegationStatusRunning   = "running"
	DelegationStatusSucceeded = "succeeded"
	DelegationStatusFailed    = "failed"
)

// DelegationHistoryData is one immutable row per delegation attempt (§4.12).
type DelegationHistoryData struct {
	ID             string     `json:"id"`
	SourceAgentID  string     `json:"sourceAgentId"`
	TargetAgentID  string     `json:"targetAgentId"`
	OrgID          *string    `json:"orgId,omitempty"`
	TaskID         *string    `json:"taskId,omitempty"`
	UserID         string     `json:"userId,omitempty"`
	Task           string     `json:"task"`
	Mode           string     `json:"mode,omitempty"`
	Status         string     `json:"status"`
	Result         *string    `json:"result,omitempty"`
	Error          *string    `json:"error,omitempty"`
	Iterations     int        `json:"iterations"`
	TraceID        string     `json:"traceId,omitempty"`
	DurationMS     int64      `json:"durationMs"`
	CreatedAt      time.Time  `json:"createdAt"`
	CompletedAt    *time.Time `json:"completedAt,omitempty"`
}

// DelegationHistoryListOpts filters ListDelegationHistory (§4.12).
type DelegationHistoryListOpts struct {
	SourceAgentID *string
	TargetAgentID *string
	OrgID         *string
	UserID        string
	Status        string
	Limit         int
	Offset        int
}

// DelegationHistoryStore records delegation attempts as a denormalized,
// queryable projection of DELEGATE-class audit events.
type DelegationHistoryStore interface {
	SaveDelegationHistory(ctx context.Context, record *DelegationHistoryData) error
	GetDelegationHistory(ctx context.Context, id string) (*DelegationHistoryData, error)
	ListDelegationHistory(ctx context.Context, opts DelegationHistoryListOpts) ([]DelegationHistoryData, int, error)
}

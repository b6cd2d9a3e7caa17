package lifecycle

import "time"

// SubordinateEntry is one row of a manager's subordinates/registry.json.
type SubordinateEntry struct {
	AgentID string    `json:"agentId"`
	Role    string    `json:"role"`
	HiredAt time.Time `json:"hiredAt"`
}

// SubordinateRegistry is the manager-local mirror of who reports to them,
// read-modify-written atomically on hire. It does not record the remaining
// hiring budget; that count lives only in the manager's config.json.
type SubordinateRegistry struct {
	Subordinates []SubordinateEntry `json:"subordinates"`
}

// Metadata is the free-form per-agent metadata.json sidecar, tracking state
// that doesn't belong in config.json (hire/pause/resume housekeeping).
type Metadata struct {
	AgentID          string    `json:"agentId"`
	HiredAt          time.Time `json:"hiredAt"`
	AutoBlockedTasks []string  `json:"autoBlockedTasks,omitempty"`
}

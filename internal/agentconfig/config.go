// Package agentconfig loads, saves, merges, and validates an agent's
// configuration document: identity, permissions, and behavior settings
// read from each agent's config.json via json5, with a deep-merge overlay
// for partial updates.
package agentconfig

// Config is the validated per-agent configuration document (§4.4).
type Config struct {
	ID            string        `json:"id"`
	Role          string        `json:"role"`
	DisplayName   string        `json:"displayName"`
	MainGoal      string        `json:"mainGoal"`
	CreatedBy     string        `json:"createdBy,omitempty"`
	ReportingTo   *string       `json:"reportingTo,omitempty"`
	Permissions   Permissions   `json:"permissions"`
	Behavior      Behavior      `json:"behavior"`
	Communication Communication `json:"communication"`
}

// Communication controls which lifecycle notifications reach this agent's
// manager (§4.8.3).
type Communication struct {
	NotifyOnCompletion bool `json:"notifyOnCompletion"`
}

// Permissions gates what the agent is allowed to do (§4.4.1).
type Permissions struct {
	CanHire                  bool     `json:"canHire"`
	MaxSubordinates          int      `json:"maxSubordinates"`
	HiringBudget             int      `json:"hiringBudget"`
	CanAccessExternalAPIs    bool     `json:"canAccessExternalAPIs"`
	AllowedDomains           []string `json:"allowedDomains,omitempty"`
	CanEscalate              bool     `json:"canEscalate"`
	MaxExecutionMinutes      int      `json:"maxExecutionMinutes"`
	MaxDelegationDepth       int      `json:"maxDelegationDepth"`
	MaxCostPerExecutionCents int      `json:"maxCostPerExecutionCents,omitempty"`
	WorkspaceQuotaMB         int      `json:"workspaceQuotaMB,omitempty"`
}

// Behavior controls how the (out of scope) executor runs the agent.
type Behavior struct {
	MaxExecutionTime         int  `json:"maxExecutionTime"`
	AutoEscalateBlockedTasks bool `json:"autoEscalateBlockedTasks"`
}

// Default returns a Config with sensible, schema-valid defaults.
func Default() *Config {
	return &Config{
		Permissions: Permissions{
			CanHire:             false,
			MaxSubordinates:     0,
			HiringBudget:        0,
			CanEscalate:         false,
			MaxExecutionMinutes: 60,
			MaxDelegationDepth:  3,
		},
		Behavior: Behavior{
			MaxExecutionTime:         30,
			AutoEscalateBlockedTasks: false,
		},
		Communication: Communication{
			NotifyOnCompletion: true,
		},
	}
}

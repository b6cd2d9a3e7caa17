package agentconfig

import "fmt"

// Validate checks cfg against the business rules of §4.4.1 and returns
// separate warning and error lists; it never mutates cfg. Callers in
// "strict" mode (LoadAgentConfig/SaveAgentConfig) treat any error as fatal;
// warnings are informational only.
func Validate(cfg *Config, strict bool) (warnings []string, errs []string) {
	p := cfg.Permissions
	b := cfg.Behavior

	if !p.CanHire {
		if p.MaxSubordinates != 0 {
			warnings = append(warnings, "canHire=false but maxSubordinates is non-zero")
		}
		if p.HiringBudget != 0 {
			warnings = append(warnings, "canHire=false but hiringBudget is non-zero")
		}
	} else if p.MaxSubordinates < 1 {
		errs = append(errs, "canHire=true requires maxSubordinates >= 1")
	}

	if p.HiringBudget > p.MaxSubordinates {
		errs = append(errs, "hiringBudget must not exceed maxSubordinates")
	}

	if !p.CanAccessExternalAPIs && len(p.AllowedDomains) > 0 {
		warnings = append(warnings, "canAccessExternalAPIs=false but allowedDomains is non-empty")
	}
	if p.CanAccessExternalAPIs && len(p.AllowedDomains) == 0 {
		warnings = append(warnings, "canAccessExternalAPIs=true but allowedDomains is empty")
	}

	if b.MaxExecutionTime > p.MaxExecutionMinutes {
		errs = append(errs, "behavior.maxExecutionTime must not exceed permissions.maxExecutionMinutes")
	}

	if b.AutoEscalateBlockedTasks && !p.CanEscalate {
		errs = append(errs, "autoEscalateBlockedTasks=true requires canEscalate=true")
	}

	if p.WorkspaceQuotaMB > 10000 {
		warnings = append(warnings, fmt.Sprintf("workspaceQuotaMB=%d is unusually large", p.WorkspaceQuotaMB))
	}
	if p.MaxDelegationDepth > 10 {
		warnings = append(warnings, fmt.Sprintf("maxDelegationDepth=%d is unusually large", p.MaxDelegationDepth))
	}
	if p.MaxExecutionMinutes > 1440 {
		warnings = append(warnings, fmt.Sprintf("maxExecutionMinutes=%d is unusually large", p.MaxExecutionMinutes))
	}
	if p.MaxCostPerExecutionCents > 100000 {
		warnings = append(warnings, fmt.Sprintf("maxCostPerExecutionCents=%d is unusually large", p.MaxCostPerExecutionCents))
	}

	return warnings, errs
}

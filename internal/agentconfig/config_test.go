package agentconfig

import "testing"

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantErrs   int
		wantWarns  int
	}{
		{
			name:   "default config is valid",
			mutate: func(c *Config) {},
		},
		{
			name: "canHire true requires maxSubordinates",
			mutate: func(c *Config) {
				c.Permissions.CanHire = true
				c.Permissions.MaxSubordinates = 0
			},
			wantErrs: 1,
		},
		{
			name: "canHire false with nonzero budget warns",
			mutate: func(c *Config) {
				c.Permissions.HiringBudget = 2
			},
			// maxSubordinates stays 0, so the budget also exceeds it.
			wantErrs:  1,
			wantWarns: 1,
		},
		{
			name: "hiringBudget exceeding maxSubordinates errors",
			mutate: func(c *Config) {
				c.Permissions.CanHire = true
				c.Permissions.MaxSubordinates = 2
				c.Permissions.HiringBudget = 5
			},
			wantErrs: 1,
		},
		{
			name: "behavior execution time exceeding permission errors",
			mutate: func(c *Config) {
				c.Behavior.MaxExecutionTime = 1000
			},
			wantErrs: 1,
		},
		{
			name: "auto escalate without canEscalate errors",
			mutate: func(c *Config) {
				c.Behavior.AutoEscalateBlockedTasks = true
			},
			wantErrs: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			warnings, errs := Validate(cfg, true)
			if len(errs) != tt.wantErrs {
				t.Fatalf("errs = %v, want %d errors", errs, tt.wantErrs)
			}
			if len(warnings) != tt.wantWarns {
				t.Fatalf("warnings = %v, want %d warnings", warnings, tt.wantWarns)
			}
		})
	}
}

func TestSlug(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Senior Engineer", "senior-engineer"},
		{"  --CTO--  ", "cto"},
		{"", ""},
		{"a___b", "a-b"},
	}
	for _, tt := range tests {
		if got := slug(tt.in); got != tt.want {
			t.Errorf("slug(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGenerateDefaultConfig_EmptyRoleUsesAgentPrefix(t *testing.T) {
	cfg, err := GenerateDefaultConfig("", "do the thing", "system", nil)
	if err != nil {
		t.Fatalf("GenerateDefaultConfig: %v", err)
	}
	if len(cfg.ID) < len("agent-") || cfg.ID[:6] != "agent-" {
		t.Fatalf("expected id with agent- prefix, got %q", cfg.ID)
	}
}

func TestGenerateDefaultConfig_RoleSlugPrefix(t *testing.T) {
	cfg, err := GenerateDefaultConfig("Senior Engineer", "ship features", "system", nil)
	if err != nil {
		t.Fatalf("GenerateDefaultConfig: %v", err)
	}
	if len(cfg.ID) < len("senior-engineer-") || cfg.ID[:len("senior-engineer-")] != "senior-engineer-" {
		t.Fatalf("expected id with senior-engineer- prefix, got %q", cfg.ID)
	}
}

func TestMergeConfigs_EmptyOverridePreservesBase(t *testing.T) {
	base := Default()
	base.Role = "researcher"
	merged, err := MergeConfigs(base, map[string]any{})
	if err != nil {
		t.Fatalf("MergeConfigs: %v", err)
	}
	if merged.Permissions.MaxExecutionMinutes != base.Permissions.MaxExecutionMinutes {
		t.Fatalf("expected base permissions preserved, got %+v", merged.Permissions)
	}
	if merged.Role != "researcher" {
		t.Fatalf("expected base role preserved, got %q", merged.Role)
	}
}

func TestMergeConfigs_OverrideReplacesArraysWholesale(t *testing.T) {
	base := Default()
	base.Permissions.AllowedDomains = []string{"a.com", "b.com"}
	override := map[string]any{
		"permissions": map[string]any{"allowedDomains": []string{"c.com"}},
	}

	merged, err := MergeConfigs(base, override)
	if err != nil {
		t.Fatalf("MergeConfigs: %v", err)
	}
	if len(merged.Permissions.AllowedDomains) != 1 || merged.Permissions.AllowedDomains[0] != "c.com" {
		t.Fatalf("expected array replaced wholesale, got %v", merged.Permissions.AllowedDomains)
	}
	if merged.Permissions.MaxExecutionMinutes != base.Permissions.MaxExecutionMinutes {
		t.Fatalf("expected untouched sibling field preserved, got %+v", merged.Permissions)
	}
}

func TestMergeConfigs_Associative(t *testing.T) {
	a := Default()
	b := map[string]any{"role": "scout"}
	c := map[string]any{"mainGoal": "explore"}

	left, err := MergeConfigs(a, b)
	if err != nil {
		t.Fatalf("MergeConfigs(a,b): %v", err)
	}
	left, err = MergeConfigs(left, c)
	if err != nil {
		t.Fatalf("MergeConfigs(merge(a,b),c): %v", err)
	}

	bc, err := MergeConfigs(&Config{}, b)
	if err != nil {
		t.Fatalf("MergeConfigs({},b): %v", err)
	}
	bcMap, err := toMap(bc)
	if err != nil {
		t.Fatalf("toMap: %v", err)
	}
	for k, v := range c {
		bcMap[k] = v
	}
	right, err := MergeConfigs(a, bcMap)
	if err != nil {
		t.Fatalf("MergeConfigs(a,merge(b,c)): %v", err)
	}

	if left.Role != right.Role || left.MainGoal != right.MainGoal {
		t.Fatalf("merge is not associative for disjoint keys: left=%+v right=%+v", left, right)
	}
}

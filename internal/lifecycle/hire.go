package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/agentconfig"
	"github.com/nextlevelbuilder/orgkernel/internal/fsio"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

var agentDirLayout = []string{
	filepath.Join("tasks", "active"),
	filepath.Join("tasks", "completed"),
	filepath.Join("tasks", "archive"),
	filepath.Join("inbox", "unread"),
	filepath.Join("inbox", "read"),
	filepath.Join("outbox", "pending"),
	filepath.Join("outbox", "sent"),
	"subordinates",
	filepath.Join("workspace", "notes"),
	filepath.Join("workspace", "research"),
	filepath.Join("workspace", "drafts"),
	filepath.Join("workspace", "cache"),
}

// HireAgent implements §4.8.1: validate, force config.reportingTo, commit
// the registry mutation, then lay out the agent's filesystem tree and (if a
// manager is present) update the manager's subordinate registry.
func (o *Orchestrator) HireAgent(ctx context.Context, managerID *string, cfg *agentconfig.Config) (agent *store.AgentData, err error) {
	defer func() { o.appendAudit(ctx, store.AuditHire, "", &cfg.ID, nil, err) }()

	if err = o.validateHire(ctx, managerID, cfg); err != nil {
		return nil, err
	}
	cfg.ReportingTo = managerID

	agent = &store.AgentData{
		ID:          cfg.ID,
		Role:        cfg.Role,
		DisplayName: cfg.DisplayName,
		CreatedAt:   time.Now().UTC(),
		ReportingTo: managerID,
		Status:      store.AgentStatusActive,
		MainGoal:    cfg.MainGoal,
		ConfigPath:  o.paths.ConfigPath(cfg.ID),
	}
	if cfg.CreatedBy != "" {
		agent.CreatedBy = &cfg.CreatedBy
	}

	if err = o.agents.CreateAgent(ctx, agent); err != nil {
		return nil, err
	}

	if fsErr := o.layOutAgentTree(cfg); fsErr != nil {
		return agent, &HireAgentError{AgentID: cfg.ID, Err: fsErr}
	}

	if managerID != nil {
		if fsErr := o.recordSubordinate(*managerID, cfg); fsErr != nil {
			return agent, &HireAgentError{AgentID: cfg.ID, Err: fsErr}
		}
	}

	return agent, nil
}

// validateHire implements the preconditions of §4.8.1 step 1.
func (o *Orchestrator) validateHire(ctx context.Context, managerID *string, cfg *agentconfig.Config) error {
	if _, err := o.agents.GetAgent(ctx, cfg.ID); err == nil {
		return store.NewError(store.KindConflict, cfg.ID, "agent %s already exists", cfg.ID)
	} else if !store.IsKind(err, store.KindNotFound) {
		return err
	}

	if managerID == nil {
		return nil
	}
	if *managerID == cfg.ID {
		return store.NewError(store.KindSelfReference, cfg.ID, "agent cannot report to itself")
	}

	manager, err := o.agents.GetAgent(ctx, *managerID)
	if err != nil {
		return err
	}
	if manager.Status != store.AgentStatusActive {
		return store.NewError(store.KindInvalidState, *managerID, "manager %s is not active", *managerID)
	}

	managerCfg, err := o.config.LoadAgentConfig(*managerID)
	if err != nil {
		return err
	}
	if !managerCfg.Permissions.CanHire {
		return store.NewError(store.KindForbidden, *managerID, "manager %s is not permitted to hire", *managerID)
	}
	if managerCfg.Permissions.HiringBudget <= 0 {
		return store.NewError(store.KindBudgetExceeded, *managerID, "manager %s has no hiring budget remaining", *managerID)
	}

	subs, err := o.agents.GetSubordinates(ctx, *managerID)
	if err != nil {
		return err
	}
	direct := 0
	for _, s := range subs {
		if s.ReportingTo != nil && *s.ReportingTo == *managerID {
			direct++
		}
	}
	if direct >= managerCfg.Permissions.MaxSubordinates {
		return store.NewError(store.KindLimitExceeded, *managerID, "manager %s already has %d subordinates", *managerID, direct)
	}

	reachesBack, err := o.agents.IsSubordinate(ctx, *managerID, cfg.ID)
	if err != nil {
		return err
	}
	if reachesBack {
		return store.NewError(store.KindCycleDetected, cfg.ID, "hiring under %s would introduce a reporting cycle", *managerID)
	}

	return nil
}

func (o *Orchestrator) layOutAgentTree(cfg *agentconfig.Config) error {
	agentDir := o.paths.AgentDir(cfg.ID)
	for _, rel := range agentDirLayout {
		if err := os.MkdirAll(filepath.Join(agentDir, rel), 0755); err != nil {
			return fmt.Errorf("create %s: %w", rel, err)
		}
	}

	if err := o.config.SaveAgentConfig(cfg.ID, cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	scheduleData, _ := json.MarshalIndent(map[string]any{"schedules": []any{}}, "", "  ")
	if err := fsio.AtomicWrite(o.paths.SchedulePath(cfg.ID), scheduleData, 0644); err != nil {
		return fmt.Errorf("write schedule.json: %w", err)
	}

	metadata := Metadata{AgentID: cfg.ID, HiredAt: time.Now().UTC()}
	metaData, _ := json.MarshalIndent(metadata, "", "  ")
	if err := fsio.AtomicWrite(o.paths.MetadataPath(cfg.ID), metaData, 0644); err != nil {
		return fmt.Errorf("write metadata.json: %w", err)
	}

	registryData, _ := json.MarshalIndent(SubordinateRegistry{}, "", "  ")
	if err := fsio.AtomicWrite(o.paths.SubordinateRegistryPath(cfg.ID), registryData, 0644); err != nil {
		return fmt.Errorf("write subordinates/registry.json: %w", err)
	}

	readme := fmt.Sprintf("# %s\n\nRole: %s\n\nGoal: %s\n", cfg.ID, cfg.Role, cfg.MainGoal)
	if err := fsio.AtomicWrite(o.paths.ReadmePath(cfg.ID), []byte(readme), 0644); err != nil {
		return fmt.Errorf("write README.md: %w", err)
	}

	return nil
}

// recordSubordinate performs the read-modify-write on the manager's
// subordinates/registry.json described in §4.8.1 step 4. The hiring budget
// itself lives in config.json, so "decrement remaining" is a config.json
// update guarded by the same atomic write.
func (o *Orchestrator) recordSubordinate(managerID string, cfg *agentconfig.Config) error {
	regPath := o.paths.SubordinateRegistryPath(managerID)
	data, err := fsio.SafeLoad(regPath, nil)
	var reg SubordinateRegistry
	if err == nil {
		if jsonErr := json.Unmarshal(data, &reg); jsonErr != nil {
			return fmt.Errorf("parse subordinate registry: %w", jsonErr)
		}
	} else if !store.IsKind(err, store.KindNotFound) {
		return err
	}

	reg.Subordinates = append(reg.Subordinates, SubordinateEntry{
		AgentID: cfg.ID, Role: cfg.Role, HiredAt: time.Now().UTC(),
	})

	newData, err := json.MarshalIndent(reg, "", "  ")
	if err != nil {
		return err
	}
	if err := fsio.AtomicWrite(regPath, newData, 0644); err != nil {
		return fmt.Errorf("write subordinate registry: %w", err)
	}

	managerCfg, err := o.config.LoadAgentConfig(managerID)
	if err != nil {
		return fmt.Errorf("reload manager config: %w", err)
	}
	managerCfg.Permissions.HiringBudget--
	if err := o.config.SaveAgentConfig(managerID, managerCfg); err != nil {
		return fmt.Errorf("decrement hiring budget: %w", err)
	}

	return nil
}

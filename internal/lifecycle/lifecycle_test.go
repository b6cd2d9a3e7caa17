package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/nextlevelbuilder/orgkernel/internal/agentconfig"
	"github.com/nextlevelbuilder/orgkernel/internal/pathresolver"
	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// fakeStore is a minimal in-memory stand-in for the store interfaces the
// orchestrator composes, sized to exercise §4.8 without a real database.
type fakeStore struct {
	agents   map[string]*store.AgentData
	tasks    map[string]*store.TaskData
	subs     map[string]map[string]bool // subs[ancestor][candidate] = true
	messages []*store.MessageData
	audit    []*store.AuditEventData
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents: map[string]*store.AgentData{},
		tasks:  map[string]*store.TaskData{},
		subs:   map[string]map[string]bool{},
	}
}

func (f *fakeStore) addAgent(a *store.AgentData) { f.agents[a.ID] = a }

func (f *fakeStore) addSub(ancestor, candidate string) {
	if f.subs[ancestor] == nil {
		f.subs[ancestor] = map[string]bool{}
	}
	f.subs[ancestor][candidate] = true
}

// AgentStore

func (f *fakeStore) CreateAgent(ctx context.Context, agent *store.AgentData) error {
	if _, ok := f.agents[agent.ID]; ok {
		return store.NewError(store.KindConflict, agent.ID, "agent %s already exists", agent.ID)
	}
	cp := *agent
	f.agents[agent.ID] = &cp
	return nil
}

func (f *fakeStore) GetAgent(ctx context.Context, id string) (*store.AgentData, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, store.NewError(store.KindNotFound, id, "agent %s not found", id)
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) UpdateAgent(ctx context.Context, id string, update store.AgentUpdate) (*store.AgentData, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, store.NewError(store.KindNotFound, id, "agent %s not found", id)
	}
	if update.Status != nil {
		a.Status = *update.Status
	}
	if update.DisplayName != nil {
		a.DisplayName = *update.DisplayName
	}
	cp := *a
	return &cp, nil
}

func (f *fakeStore) GetSubordinates(ctx context.Context, id string) ([]store.AgentData, error) {
	var out []store.AgentData
	for candidate := range f.subs[id] {
		if a, ok := f.agents[candidate]; ok {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetOrgChart(ctx context.Context) ([]store.AgentData, error) { return nil, nil }

func (f *fakeStore) GetAncestors(ctx context.Context, id string) ([]store.OrgHierarchyRow, error) {
	return nil, nil
}

func (f *fakeStore) IsSubordinate(ctx context.Context, candidate, ancestor string) (bool, error) {
	return f.subs[ancestor][candidate], nil
}

// TaskStore

func (f *fakeStore) NextTaskSeq(ctx context.Context, agentID string) (int, error) { return 0, nil }

func (f *fakeStore) InsertTask(ctx context.Context, task *store.TaskData) error { return nil }

func (f *fakeStore) GetTask(ctx context.Context, id string) (*store.TaskData, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, store.NewError(store.KindNotFound, id, "task %s not found", id)
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) UpdateTaskStatus(ctx context.Context, id, newStatus string, expectedVersion int) (int, error) {
	t, ok := f.tasks[id]
	if !ok || t.Version != expectedVersion {
		return 0, nil
	}
	t.Status = newStatus
	t.Version++
	return 1, nil
}

func (f *fakeStore) UpdateTaskProgress(ctx context.Context, id string, percent int, expectedVersion int) (int, error) {
	return 0, nil
}

func (f *fakeStore) SetParentProgress(ctx context.Context, id string, completedCount, percent int) error {
	return nil
}

func (f *fakeStore) IncrementSubtasksTotal(ctx context.Context, id string) error { return nil }

func (f *fakeStore) CountChildren(ctx context.Context, parentID string) (int, int, error) {
	return 0, 0, nil
}

func (f *fakeStore) DelegateTask(ctx context.Context, id string, toAgentID string, expectedVersion *int) (int, error) {
	return 0, nil
}

func (f *fakeStore) ListTasksByStatus(ctx context.Context, agentID string, filter string) ([]store.TaskData, error) {
	var out []store.TaskData
	for _, t := range f.tasks {
		if t.AgentID != agentID {
			continue
		}
		if filter == store.TaskFilterActive && t.Status != store.TaskStatusPending && t.Status != store.TaskStatusInProgress && t.Status != store.TaskStatusBlocked {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeStore) SearchTasks(ctx context.Context, agentID, query string, limit int) ([]store.TaskData, error) {
	return nil, nil
}

// MessageStore

func (f *fakeStore) RecordMessage(ctx context.Context, msg *store.MessageData) error {
	f.messages = append(f.messages, msg)
	return nil
}

// AuditStore

func (f *fakeStore) AppendAudit(ctx context.Context, event *store.AuditEventData) error {
	f.audit = append(f.audit, event)
	return nil
}

func newTestOrchestrator(t *testing.T, f *fakeStore) *Orchestrator {
	t.Helper()
	paths := pathresolver.New(t.TempDir())
	cfgSvc := agentconfig.NewService(paths)
	return New(f, f, f, f, cfgSvc, paths)
}

func hirableManagerConfig(id string) *agentconfig.Config {
	cfg := agentconfig.Default()
	cfg.ID = id
	cfg.Role = "manager"
	cfg.DisplayName = id
	cfg.MainGoal = "coordinate"
	cfg.Permissions.CanHire = true
	cfg.Permissions.MaxSubordinates = 3
	cfg.Permissions.HiringBudget = 3
	return cfg
}

func subordinateConfig(id string) *agentconfig.Config {
	cfg := agentconfig.Default()
	cfg.ID = id
	cfg.Role = "worker"
	cfg.DisplayName = id
	cfg.MainGoal = "do work"
	return cfg
}

func TestHireAgent_NoManager_CreatesAgentAndFilesystemTree(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)

	cfg := subordinateConfig("agent-root")
	agent, err := o.HireAgent(context.Background(), nil, cfg)
	if err != nil {
		t.Fatalf("HireAgent: %v", err)
	}
	if agent.Status != store.AgentStatusActive {
		t.Fatalf("status = %q, want active", agent.Status)
	}
	if _, ok := f.agents["agent-root"]; !ok {
		t.Fatalf("expected agent to be persisted")
	}

	if _, err := o.config.LoadAgentConfig("agent-root"); err != nil {
		t.Fatalf("LoadAgentConfig after hire: %v", err)
	}

	if len(f.audit) != 1 || f.audit[0].Action != store.AuditHire || !f.audit[0].Success {
		t.Fatalf("expected one successful HIRE audit row, got %+v", f.audit)
	}
}

func TestHireAgent_WithManager_UpdatesSubordinateRegistryAndBudget(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)

	managerCfg := hirableManagerConfig("agent-mgr")
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusActive})
	if err := o.config.SaveAgentConfig("agent-mgr", managerCfg); err != nil {
		t.Fatalf("seed manager config: %v", err)
	}

	subCfg := subordinateConfig("agent-sub")
	managerID := "agent-mgr"
	if _, err := o.HireAgent(context.Background(), &managerID, subCfg); err != nil {
		t.Fatalf("HireAgent: %v", err)
	}

	got := f.agents["agent-sub"]
	if got.ReportingTo == nil || *got.ReportingTo != "agent-mgr" {
		t.Fatalf("expected reportingTo=agent-mgr, got %+v", got.ReportingTo)
	}

	reloadedMgr, err := o.config.LoadAgentConfig("agent-mgr")
	if err != nil {
		t.Fatalf("reload manager config: %v", err)
	}
	if reloadedMgr.Permissions.HiringBudget != 2 {
		t.Fatalf("hiringBudget = %d, want 2 after one hire", reloadedMgr.Permissions.HiringBudget)
	}
}

func TestHireAgent_RejectsDuplicateID(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-dup", Status: store.AgentStatusActive})

	_, err := o.HireAgent(context.Background(), nil, subordinateConfig("agent-dup"))
	if !store.IsKind(err, store.KindConflict) {
		t.Fatalf("err = %v, want CONFLICT", err)
	}
}

func TestHireAgent_RejectsSelfReportingManager(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	id := "agent-x"
	_, err := o.HireAgent(context.Background(), &id, subordinateConfig("agent-x"))
	if !store.IsKind(err, store.KindSelfReference) {
		t.Fatalf("err = %v, want SELF_REFERENCE", err)
	}
}

func TestHireAgent_RejectsInactiveManager(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusPaused})

	managerID := "agent-mgr"
	_, err := o.HireAgent(context.Background(), &managerID, subordinateConfig("agent-sub"))
	if !store.IsKind(err, store.KindInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestHireAgent_RejectsManagerWithoutCanHire(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusActive})
	if err := o.config.SaveAgentConfig("agent-mgr", subordinateConfig("agent-mgr")); err != nil {
		t.Fatalf("seed manager config: %v", err)
	}

	managerID := "agent-mgr"
	_, err := o.HireAgent(context.Background(), &managerID, subordinateConfig("agent-sub"))
	if !store.IsKind(err, store.KindForbidden) {
		t.Fatalf("err = %v, want FORBIDDEN", err)
	}
}

func TestHireAgent_RejectsExhaustedBudget(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusActive})
	mgrCfg := hirableManagerConfig("agent-mgr")
	mgrCfg.Permissions.HiringBudget = 0
	if err := o.config.SaveAgentConfig("agent-mgr", mgrCfg); err != nil {
		t.Fatalf("seed manager config: %v", err)
	}

	managerID := "agent-mgr"
	_, err := o.HireAgent(context.Background(), &managerID, subordinateConfig("agent-sub"))
	if !store.IsKind(err, store.KindBudgetExceeded) {
		t.Fatalf("err = %v, want BUDGET_EXCEEDED", err)
	}
}

func TestHireAgent_RejectsReportingCycle(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusActive})
	f.addSub("agent-new", "agent-mgr") // agent-mgr is already a subordinate of agent-new
	mgrCfg := hirableManagerConfig("agent-mgr")
	if err := o.config.SaveAgentConfig("agent-mgr", mgrCfg); err != nil {
		t.Fatalf("seed manager config: %v", err)
	}

	managerID := "agent-mgr"
	_, err := o.HireAgent(context.Background(), &managerID, subordinateConfig("agent-new"))
	if !store.IsKind(err, store.KindCycleDetected) {
		t.Fatalf("err = %v, want CYCLE_DETECTED", err)
	}
}

func TestPauseAgent_BlocksActiveTasks(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusActive})
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusInProgress}

	result, err := o.PauseAgent(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("PauseAgent: %v", err)
	}
	if result.TasksBlocked != 1 {
		t.Fatalf("tasksBlocked = %d, want 1", result.TasksBlocked)
	}
	if f.tasks["task-0-x"].Status != store.TaskStatusBlocked {
		t.Fatalf("task status = %q, want blocked", f.tasks["task-0-x"].Status)
	}
	if f.agents["agent-1"].Status != store.AgentStatusPaused {
		t.Fatalf("agent status = %q, want paused", f.agents["agent-1"].Status)
	}
}

func TestPauseAgent_RejectsAlreadyPaused(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusPaused})

	_, err := o.PauseAgent(context.Background(), "agent-1")
	if !store.IsKind(err, store.KindInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestPauseThenResume_UnblocksOnlyAutoBlockedTasks(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusActive})
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusInProgress}
	f.tasks["task-0-y"] = &store.TaskData{ID: "task-0-y", AgentID: "agent-1", Status: store.TaskStatusBlocked}

	if _, err := o.PauseAgent(context.Background(), "agent-1"); err != nil {
		t.Fatalf("PauseAgent: %v", err)
	}

	resumeResult, err := o.ResumeAgent(context.Background(), "agent-1")
	if err != nil {
		t.Fatalf("ResumeAgent: %v", err)
	}
	if resumeResult.TasksUnblocked != 1 {
		t.Fatalf("tasksUnblocked = %d, want 1 (only the task pause itself blocked)", resumeResult.TasksUnblocked)
	}
	if f.tasks["task-0-x"].Status != store.TaskStatusPending {
		t.Fatalf("task-0-x status = %q, want pending", f.tasks["task-0-x"].Status)
	}
	if f.tasks["task-0-y"].Status != store.TaskStatusBlocked {
		t.Fatalf("task-0-y status = %q, want still blocked (not auto-blocked by pause)", f.tasks["task-0-y"].Status)
	}
	if f.agents["agent-1"].Status != store.AgentStatusActive {
		t.Fatalf("agent status = %q, want active", f.agents["agent-1"].Status)
	}
}

func TestResumeAgent_RejectsNonPaused(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusActive})

	_, err := o.ResumeAgent(context.Background(), "agent-1")
	if !store.IsKind(err, store.KindInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func TestNotifyTaskCompletion_NoManagerReturnsNilWithoutAudit(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusActive})
	task := &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Title: "Ship It", Status: store.TaskStatusCompleted, Priority: store.TaskPriorityMedium, CreatedAt: task0Time(), CompletedAt: task0TimePtr()}

	msg, err := o.NotifyTaskCompletion(context.Background(), task, false)
	if err != nil {
		t.Fatalf("NotifyTaskCompletion: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil message when owner has no manager")
	}
	if len(f.audit) != 0 {
		t.Fatalf("expected no audit row when no notification was due, got %d", len(f.audit))
	}
}

func TestNotifyTaskCompletion_ManagerOptedOutSkipsUnlessForced(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	managerID := "agent-mgr"
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusActive})
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusActive, ReportingTo: &managerID})

	mgrCfg := subordinateConfig("agent-mgr")
	mgrCfg.Communication.NotifyOnCompletion = false
	if err := o.config.SaveAgentConfig("agent-mgr", mgrCfg); err != nil {
		t.Fatalf("seed manager config: %v", err)
	}

	task := &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Title: "Ship It", Status: store.TaskStatusCompleted, Priority: store.TaskPriorityMedium, CreatedAt: task0Time(), CompletedAt: task0TimePtr()}

	msg, err := o.NotifyTaskCompletion(context.Background(), task, false)
	if err != nil {
		t.Fatalf("NotifyTaskCompletion: %v", err)
	}
	if msg != nil {
		t.Fatalf("expected nil message when manager opted out")
	}
	if len(f.audit) != 0 {
		t.Fatalf("expected no audit row when manager opted out, got %d", len(f.audit))
	}

	forced, err := o.NotifyTaskCompletion(context.Background(), task, true)
	if err != nil {
		t.Fatalf("NotifyTaskCompletion forced: %v", err)
	}
	if forced == nil {
		t.Fatalf("expected forced notification to proceed despite opt-out")
	}
	if len(f.audit) != 1 || f.audit[0].Action != store.AuditTaskComplete {
		t.Fatalf("expected one TASK_COMPLETE audit row, got %+v", f.audit)
	}
}

func TestNotifyTaskCompletion_SendsAndRecordsMessage(t *testing.T) {
	f := newFakeStore()
	o := newTestOrchestrator(t, f)
	managerID := "agent-mgr"
	f.addAgent(&store.AgentData{ID: "agent-mgr", Status: store.AgentStatusActive})
	f.addAgent(&store.AgentData{ID: "agent-1", Status: store.AgentStatusActive, ReportingTo: &managerID})

	mgrCfg := subordinateConfig("agent-mgr")
	if err := o.config.SaveAgentConfig("agent-mgr", mgrCfg); err != nil {
		t.Fatalf("seed manager config: %v", err)
	}

	task := &store.TaskData{
		ID: "task-0-x", AgentID: "agent-1", Title: "Ship It", Status: store.TaskStatusCompleted,
		Priority: store.TaskPriorityUrgent, CreatedAt: task0Time(), CompletedAt: task0TimePtr(),
	}

	msg, err := o.NotifyTaskCompletion(context.Background(), task, false)
	if err != nil {
		t.Fatalf("NotifyTaskCompletion: %v", err)
	}
	if msg == nil {
		t.Fatalf("expected a message to be produced")
	}
	if msg.To != "agent-mgr" || msg.From != "agent-1" {
		t.Fatalf("unexpected routing: from=%s to=%s", msg.From, msg.To)
	}
	if msg.Priority != store.MessagePriorityHigh {
		t.Fatalf("priority = %q, want high for an urgent task", msg.Priority)
	}
	if len(f.messages) != 1 {
		t.Fatalf("expected message recorded in store, got %d", len(f.messages))
	}
	if len(f.audit) != 1 || !f.audit[0].Success {
		t.Fatalf("expected one successful TASK_COMPLETE audit row, got %+v", f.audit)
	}
}

func task0Time() time.Time {
	return time.Date(2026, 7, 1, 12, 0, 0, 0, time.UTC)
}

func task0TimePtr() *time.Time {
	t := task0Time().Add(45 * time.Minute)
	return &t
}

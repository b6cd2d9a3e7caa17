package tasks

import (
	"context"
	"regexp"
	"testing"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// fakeStore is a minimal in-memory stand-in for store.TaskStore/AgentStore/
// AuditStore, sized to exercise the engine's transaction-shaped logic
// without a real database connection.
type fakeStore struct {
	agents map[string]*store.AgentData
	tasks  map[string]*store.TaskData
	subs   map[string]map[string]bool // subs[ancestor][candidate] = true
	audit  []*store.AuditEventData
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		agents: map[string]*store.AgentData{},
		tasks:  map[string]*store.TaskData{},
		subs:   map[string]map[string]bool{},
	}
}

func (f *fakeStore) addAgent(id string) {
	f.agents[id] = &store.AgentData{ID: id, Status: store.AgentStatusActive}
}

func (f *fakeStore) addSub(ancestor, candidate string) {
	if f.subs[ancestor] == nil {
		f.subs[ancestor] = map[string]bool{}
	}
	f.subs[ancestor][candidate] = true
}

// AgentStore

func (f *fakeStore) CreateAgent(ctx context.Context, agent *store.AgentData) error { return nil }

func (f *fakeStore) GetAgent(ctx context.Context, id string) (*store.AgentData, error) {
	a, ok := f.agents[id]
	if !ok {
		return nil, store.NewError(store.KindNotFound, id, "agent %s not found", id)
	}
	return a, nil
}

func (f *fakeStore) UpdateAgent(ctx context.Context, id string, update store.AgentUpdate) (*store.AgentData, error) {
	return f.agents[id], nil
}
func (f *fakeStore) GetSubordinates(ctx context.Context, id string) ([]store.AgentData, error) {
	return nil, nil
}
func (f *fakeStore) GetOrgChart(ctx context.Context) ([]store.AgentData, error) { return nil, nil }
func (f *fakeStore) GetAncestors(ctx context.Context, id string) ([]store.OrgHierarchyRow, error) {
	return nil, nil
}
func (f *fakeStore) IsSubordinate(ctx context.Context, candidate, ancestor string) (bool, error) {
	return f.subs[ancestor][candidate], nil
}

// TaskStore

var taskIDPattern = regexp.MustCompile(`^task-(\d+)-`)

func (f *fakeStore) NextTaskSeq(ctx context.Context, agentID string) (int, error) {
	max := 0
	for id, t := range f.tasks {
		if t.AgentID != agentID {
			continue
		}
		m := taskIDPattern.FindStringSubmatch(id)
		if m == nil {
			continue
		}
		n := 0
		for _, c := range m[1] {
			n = n*10 + int(c-'0')
		}
		if n >= max {
			max = n + 1
		}
	}
	return max, nil
}

func (f *fakeStore) InsertTask(ctx context.Context, task *store.TaskData) error {
	cp := *task
	f.tasks[task.ID] = &cp
	return nil
}

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
	t, ok := f.tasks[id]
	if !ok || t.Version != expectedVersion {
		return 0, nil
	}
	t.PercentComplete = percent
	t.Version++
	return 1, nil
}

func (f *fakeStore) SetParentProgress(ctx context.Context, id string, completedCount, percent int) error {
	t, ok := f.tasks[id]
	if !ok {
		return store.NewError(store.KindNotFound, id, "task %s not found", id)
	}
	t.SubtasksCompleted = completedCount
	t.PercentComplete = percent
	return nil
}

func (f *fakeStore) IncrementSubtasksTotal(ctx context.Context, id string) error {
	t, ok := f.tasks[id]
	if !ok {
		return store.NewError(store.KindNotFound, id, "task %s not found", id)
	}
	t.SubtasksTotal++
	return nil
}

func (f *fakeStore) CountChildren(ctx context.Context, parentID string) (int, int, error) {
	total, completed := 0, 0
	for _, t := range f.tasks {
		if t.ParentTaskID != nil && *t.ParentTaskID == parentID {
			total++
			if t.Status == store.TaskStatusCompleted {
				completed++
			}
		}
	}
	return total, completed, nil
}

func (f *fakeStore) DelegateTask(ctx context.Context, id string, toAgentID string, expectedVersion *int) (int, error) {
	t, ok := f.tasks[id]
	if !ok {
		return 0, nil
	}
	if expectedVersion != nil && t.Version != *expectedVersion {
		return 0, nil
	}
	t.DelegatedTo = &toAgentID
	t.Version++
	return 1, nil
}

func (f *fakeStore) ListTasksByStatus(ctx context.Context, agentID string, filter string) ([]store.TaskData, error) {
	return nil, nil
}
func (f *fakeStore) SearchTasks(ctx context.Context, agentID, query string, limit int) ([]store.TaskData, error) {
	return nil, nil
}

// AuditStore

func (f *fakeStore) AppendAudit(ctx context.Context, event *store.AuditEventData) error {
	f.audit = append(f.audit, event)
	return nil
}

func newTestEngine(f *fakeStore) *Engine {
	return NewEngine(f, f, f)
}

func TestCreateTask_GeneratesSequentialSlugID(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	e := newTestEngine(f)

	first, err := e.CreateTask(context.Background(), CreateTaskInput{AgentID: "agent-1", Title: "Ship Release"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if first.ID != "task-0-ship-release" {
		t.Fatalf("id = %q, want task-0-ship-release", first.ID)
	}

	second, err := e.CreateTask(context.Background(), CreateTaskInput{AgentID: "agent-1", Title: "Follow Up"})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if second.ID != "task-1-follow-up" {
		t.Fatalf("id = %q, want task-1-follow-up", second.ID)
	}
}

func TestCreateTask_MissingAgentFails(t *testing.T) {
	f := newFakeStore()
	e := newTestEngine(f)

	_, err := e.CreateTask(context.Background(), CreateTaskInput{AgentID: "ghost", Title: "x"})
	if !store.IsKind(err, store.KindNotFound) {
		t.Fatalf("err = %v, want NOT_FOUND", err)
	}
}

func TestCreateTask_DepthExceeded(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	e := newTestEngine(f)

	deepParent := "task-deep"
	f.tasks[deepParent] = &store.TaskData{ID: deepParent, AgentID: "agent-1", Depth: store.TaskMaxDepth, Status: store.TaskStatusPending}

	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		AgentID: "agent-1", Title: "too deep", ParentTaskID: &deepParent,
	})
	if !store.IsKind(err, store.KindDepthExceeded) {
		t.Fatalf("err = %v, want DEPTH_EXCEEDED", err)
	}
}

func TestCreateTask_BlockerSelfReferenceRejected(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	e := newTestEngine(f)

	next, _ := f.NextTaskSeq(context.Background(), "agent-1")
	selfID := "task-" + itoa(next) + "-loop"
	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		AgentID: "agent-1", Title: "loop", BlockedBy: []string{selfID},
	})
	if !store.IsKind(err, store.KindCycleSelf) {
		t.Fatalf("err = %v, want CYCLE_SELF", err)
	}
}

func TestCreateTask_MissingBlockerFails(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	e := newTestEngine(f)

	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		AgentID: "agent-1", Title: "waits", BlockedBy: []string{"task-0-ghost"},
	})
	if !store.IsKind(err, store.KindBlockerMissing) {
		t.Fatalf("err = %v, want BLOCKER_MISSING", err)
	}
}

func TestCreateTask_TerminalBlockerRejected(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	e := newTestEngine(f)
	f.tasks["task-0-done"] = &store.TaskData{ID: "task-0-done", AgentID: "agent-1", Status: store.TaskStatusCompleted}

	_, err := e.CreateTask(context.Background(), CreateTaskInput{
		AgentID: "agent-1", Title: "waits", BlockedBy: []string{"task-0-done"},
	})
	if !store.IsKind(err, store.KindBlockerTerminal) {
		t.Fatalf("err = %v, want BLOCKER_TERMINAL", err)
	}
}

func TestCreateTask_BlockedByNonEmptySetsBlockedStatus(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	e := newTestEngine(f)
	f.tasks["task-0-dep"] = &store.TaskData{ID: "task-0-dep", AgentID: "agent-1", Status: store.TaskStatusPending}

	task, err := e.CreateTask(context.Background(), CreateTaskInput{
		AgentID: "agent-1", Title: "waits", BlockedBy: []string{"task-0-dep"},
	})
	if err != nil {
		t.Fatalf("CreateTask: %v", err)
	}
	if task.Status != store.TaskStatusBlocked {
		t.Fatalf("status = %q, want blocked", task.Status)
	}
	if task.BlockedSince == nil {
		t.Fatalf("expected blockedSince to be set")
	}
}

func TestUpdateStatus_VersionMismatch(t *testing.T) {
	f := newFakeStore()
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusPending, Version: 3}
	e := newTestEngine(f)

	_, err := e.UpdateStatus(context.Background(), "task-0-x", store.TaskStatusInProgress, 0)
	if !store.IsKind(err, store.KindVersionMismatch) {
		t.Fatalf("err = %v, want VERSION_MISMATCH", err)
	}
}

func TestUpdateStatus_CompletionPropagatesToParent(t *testing.T) {
	f := newFakeStore()
	parentID := "task-0-parent"
	childID := "task-1-child"
	f.tasks[parentID] = &store.TaskData{ID: parentID, AgentID: "agent-1", Status: store.TaskStatusInProgress, SubtasksTotal: 1}
	f.tasks[childID] = &store.TaskData{ID: childID, AgentID: "agent-1", Status: store.TaskStatusInProgress, ParentTaskID: &parentID}
	e := newTestEngine(f)

	_, err := e.UpdateStatus(context.Background(), childID, store.TaskStatusCompleted, 0)
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if f.tasks[parentID].PercentComplete != 100 {
		t.Fatalf("parent percentComplete = %d, want 100", f.tasks[parentID].PercentComplete)
	}
	if f.tasks[parentID].SubtasksCompleted != 1 {
		t.Fatalf("parent subtasksCompleted = %d, want 1", f.tasks[parentID].SubtasksCompleted)
	}
}

func TestUpdateProgress_ClampsToRange(t *testing.T) {
	f := newFakeStore()
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusInProgress}
	e := newTestEngine(f)

	task, err := e.UpdateProgress(context.Background(), "task-0-x", 150, 0)
	if err != nil {
		t.Fatalf("UpdateProgress: %v", err)
	}
	if task.PercentComplete != 100 {
		t.Fatalf("percentComplete = %d, want clamped to 100", task.PercentComplete)
	}
}

func TestDelegateTask_RejectsNonSubordinate(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	f.addAgent("agent-2")
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusPending}
	e := newTestEngine(f)

	_, err := e.DelegateTask(context.Background(), "task-0-x", "agent-2", nil)
	if !store.IsKind(err, store.KindNotSubordinate) {
		t.Fatalf("err = %v, want NOT_SUBORDINATE", err)
	}
}

func TestDelegateTask_IdempotentNoOp(t *testing.T) {
	f := newFakeStore()
	f.addAgent("agent-1")
	f.addAgent("agent-2")
	f.addSub("agent-1", "agent-2")
	delegated := "agent-2"
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusPending, DelegatedTo: &delegated, Version: 5}
	e := newTestEngine(f)

	task, err := e.DelegateTask(context.Background(), "task-0-x", "agent-2", nil)
	if err != nil {
		t.Fatalf("DelegateTask: %v", err)
	}
	if task.Version != 5 {
		t.Fatalf("expected no-op to leave version untouched, got %d", task.Version)
	}
}

func TestCompleteTask_RejectsArchived(t *testing.T) {
	f := newFakeStore()
	f.tasks["task-0-x"] = &store.TaskData{ID: "task-0-x", AgentID: "agent-1", Status: store.TaskStatusArchived}
	e := newTestEngine(f)

	_, err := e.CompleteTask(context.Background(), "task-0-x", 0)
	if !store.IsKind(err, store.KindInvalidState) {
		t.Fatalf("err = %v, want INVALID_STATE", err)
	}
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

package dependency

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func graphLookup(graph map[string][]string) TaskLookup {
	return func(ctx context.Context, id string) ([]string, bool, error) {
		deps, ok := graph[id]
		if !ok {
			return nil, false, nil
		}
		return deps, true, nil
	}
}

func TestDetectTaskDeadlock_ThreeCycle(t *testing.T) {
	graph := map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
	}

	for _, start := range []string{"A", "B", "C"} {
		cycle, err := DetectTaskDeadlock(context.Background(), start, graphLookup(graph))
		if err != nil {
			t.Fatalf("DetectTaskDeadlock(%s): %v", start, err)
		}
		if len(cycle) != 3 {
			t.Fatalf("DetectTaskDeadlock(%s) = %v, want 3-element cycle", start, cycle)
		}
		got := append([]string{}, cycle...)
		sort.Strings(got)
		if got[0] != "A" || got[1] != "B" || got[2] != "C" {
			t.Fatalf("DetectTaskDeadlock(%s) = %v, want permutation of [A B C]", start, cycle)
		}
	}
}

func TestDetectTaskDeadlock_UnrelatedTaskHasNoCycle(t *testing.T) {
	graph := map[string][]string{
		"A": {"B"},
		"B": {"C"},
		"C": {"A"},
		"D": {},
	}

	cycle, err := DetectTaskDeadlock(context.Background(), "D", graphLookup(graph))
	if err != nil {
		t.Fatalf("DetectTaskDeadlock: %v", err)
	}
	if cycle != nil {
		t.Fatalf("expected no cycle for unrelated task, got %v", cycle)
	}
}

func TestDetectTaskDeadlock_NoCycleInDAG(t *testing.T) {
	graph := map[string][]string{
		"A": {"B", "C"},
		"B": {"D"},
		"C": {"D"},
		"D": {},
	}

	cycle, err := DetectTaskDeadlock(context.Background(), "A", graphLookup(graph))
	if err != nil {
		t.Fatalf("DetectTaskDeadlock: %v", err)
	}
	if cycle != nil {
		t.Fatalf("expected no cycle in DAG, got %v", cycle)
	}
}

func TestDetectTaskDeadlock_MissingBlockerTreatedAsNoDependency(t *testing.T) {
	graph := map[string][]string{
		"A": {"ghost"},
	}

	cycle, err := DetectTaskDeadlock(context.Background(), "A", graphLookup(graph))
	if err != nil {
		t.Fatalf("DetectTaskDeadlock: %v", err)
	}
	if cycle != nil {
		t.Fatalf("expected no cycle when blocker is missing, got %v", cycle)
	}
}

func TestDetectTaskDeadlock_LookupErrorTreatedAsNoDependency(t *testing.T) {
	lookup := func(ctx context.Context, id string) ([]string, bool, error) {
		if id == "A" {
			return []string{"B"}, true, nil
		}
		return nil, false, errors.New("boom")
	}

	cycle, err := DetectTaskDeadlock(context.Background(), "A", lookup)
	if err != nil {
		t.Fatalf("DetectTaskDeadlock: %v", err)
	}
	if cycle != nil {
		t.Fatalf("expected no cycle when lookup errors, got %v", cycle)
	}
}

func TestDetectTaskDeadlock_SelfReference(t *testing.T) {
	graph := map[string][]string{
		"A": {"A"},
	}
	cycle, err := DetectTaskDeadlock(context.Background(), "A", graphLookup(graph))
	if err != nil {
		t.Fatalf("DetectTaskDeadlock: %v", err)
	}
	if len(cycle) != 1 || cycle[0] != "A" {
		t.Fatalf("expected self-cycle [A], got %v", cycle)
	}
}

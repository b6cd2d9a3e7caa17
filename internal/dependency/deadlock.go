// Package dependency detects cycles in the "blocked_by" graph among live
// tasks (§4.7) with a visited-set-plus-path-stack DFS.
package dependency

import "context"

// TaskLookup fetches a task's blocked_by list by id. exists=false with a nil
// error means the task does not exist.
type TaskLookup func(ctx context.Context, id string) (blockedBy []string, exists bool, err error)

// DetectTaskDeadlock runs a DFS from startID over the blocked_by graph,
// maintaining a visited set and a path stack. Entering a node already on
// the path yields that node's suffix of the path as the cycle. Missing
// tasks and lookup errors are treated as "no blockers" rather than
// propagated, per §4.7's tolerance requirement.
func DetectTaskDeadlock(ctx context.Context, startID string, lookup TaskLookup) ([]string, error) {
	visited := make(map[string]bool)
	var path []string
	pathIndex := make(map[string]int)

	var dfs func(id string) []string
	dfs = func(id string) []string {
		if idx, onPath := pathIndex[id]; onPath {
			cycle := make([]string, len(path)-idx)
			copy(cycle, path[idx:])
			return cycle
		}
		if visited[id] {
			return nil
		}
		visited[id] = true

		path = append(path, id)
		pathIndex[id] = len(path) - 1
		defer func() {
			delete(pathIndex, id)
			path = path[:len(path)-1]
		}()

		blockedBy, exists, err := lookup(ctx, id)
		if err != nil || !exists {
			return nil
		}

		for _, depID := range blockedBy {
			if cycle := dfs(depID); cycle != nil {
				return cycle
			}
		}
		return nil
	}

	return dfs(startID), nil
}

// Package pathresolver derives the deterministic on-disk layout for an
// agent's filesystem mirror (§4.2/§6). It never creates directories itself —
// fsio.AtomicWrite creates the parent directory of the file it writes.
package pathresolver

import "path/filepath"

// Resolver derives agent-scoped paths under a single configurable base
// directory.
type Resolver struct {
	base string
}

func New(base string) *Resolver {
	return &Resolver{base: base}
}

func (r *Resolver) AgentDir(agentID string) string {
	return filepath.Join(r.base, "agents", agentID)
}

func (r *Resolver) ConfigPath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "config.json")
}

func (r *Resolver) SchedulePath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "schedule.json")
}

func (r *Resolver) MetadataPath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "metadata.json")
}

func (r *Resolver) SubordinateRegistryPath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "subordinates", "registry.json")
}

func (r *Resolver) TasksDir(agentID, bucket string) string {
	return filepath.Join(r.AgentDir(agentID), "tasks", bucket)
}

func (r *Resolver) TaskArtifactPath(agentID, bucket, taskID string) string {
	return filepath.Join(r.TasksDir(agentID, bucket), taskID+".json")
}

func (r *Resolver) InboxDir(agentID, state string) string {
	return filepath.Join(r.AgentDir(agentID), "inbox", state)
}

func (r *Resolver) InboxMessagePath(agentID, state, msgID string) string {
	return filepath.Join(r.InboxDir(agentID, state), msgID+".md")
}

func (r *Resolver) OutboxDir(agentID, state string) string {
	return filepath.Join(r.AgentDir(agentID), "outbox", state)
}

func (r *Resolver) WorkspaceDir(agentID, subdir string) string {
	return filepath.Join(r.AgentDir(agentID), "workspace", subdir)
}

func (r *Resolver) ReadmePath(agentID string) string {
	return filepath.Join(r.AgentDir(agentID), "README.md")
}

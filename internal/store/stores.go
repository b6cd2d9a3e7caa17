package store

// Stores is the top-level container for every storage backend the kernel
// needs. Both backends (store/pg, store/sqlite) populate the same shape.
type Stores struct {
	Agents      AgentStore
	Tasks       TaskStore
	Messages    MessageStore
	Audit       AuditStore
	Schedules   ScheduleStore
	Orgs        OrgStore
	Delegations DelegationHistoryStore
}

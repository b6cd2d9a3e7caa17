package sqlite

const schema = `
PRAGMA foreign_keys = ON;

CREATE TABLE IF NOT EXISTS agents (
    id TEXT PRIMARY KEY,
    role TEXT NOT NULL,
    display_name TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    created_by TEXT,
    reporting_to TEXT REFERENCES agents(id),
    status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','paused','fired')),
    main_goal TEXT NOT NULL DEFAULT '',
    config_path TEXT NOT NULL DEFAULT '',
    last_execution_at DATETIME,
    total_executions INTEGER NOT NULL DEFAULT 0,
    total_runtime_minutes INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_agents_reporting_to ON agents(reporting_to);

-- Transitive closure of the reporting tree (§4.1/§4.5): one row per
-- (agent, ancestor) pair, including the self row at depth 0.
CREATE TABLE IF NOT EXISTS org_hierarchy (
    agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    ancestor_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    depth INTEGER NOT NULL,
    path TEXT NOT NULL,
    PRIMARY KEY (agent_id, ancestor_id)
);

CREATE INDEX IF NOT EXISTS idx_org_hierarchy_ancestor ON org_hierarchy(ancestor_id, depth);

CREATE TABLE IF NOT EXISTS tasks (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    title TEXT NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending' CHECK(status IN ('pending','in-progress','blocked','completed','archived')),
    priority TEXT NOT NULL DEFAULT 'medium' CHECK(priority IN ('urgent','high','medium','low')),
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    started_at DATETIME,
    completed_at DATETIME,
    blocked_since DATETIME,
    parent_task_id TEXT REFERENCES tasks(id) ON DELETE CASCADE,
    depth INTEGER NOT NULL DEFAULT 0 CHECK(depth <= 5),
    percent_complete INTEGER NOT NULL DEFAULT 0 CHECK(percent_complete BETWEEN 0 AND 100),
    subtasks_completed INTEGER NOT NULL DEFAULT 0,
    subtasks_total INTEGER NOT NULL DEFAULT 0,
    delegated_to TEXT REFERENCES agents(id),
    delegated_at DATETIME,
    -- blocked_by is a JSON array of task ids, not a relational edge table, so
    -- a single-file embedded backend never needs a join to read one task row.
    blocked_by TEXT NOT NULL DEFAULT '[]',
    task_path TEXT NOT NULL DEFAULT '',
    version INTEGER NOT NULL DEFAULT 1,
    last_updated DATETIME,
    last_executed DATETIME,
    execution_count INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_tasks_agent_status ON tasks(agent_id, status);
CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_task_id);

CREATE TABLE IF NOT EXISTS messages (
    id TEXT PRIMARY KEY,
    sender TEXT NOT NULL,
    recipient TEXT NOT NULL,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    priority TEXT NOT NULL DEFAULT 'normal' CHECK(priority IN ('low','normal','high','urgent')),
    channel TEXT NOT NULL DEFAULT 'internal',
    read INTEGER NOT NULL DEFAULT 0,
    action_required INTEGER NOT NULL DEFAULT 0,
    subject TEXT,
    thread_id TEXT,
    in_reply_to TEXT,
    message_path TEXT
);

CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient, read);

CREATE TABLE IF NOT EXISTS schedules (
    id TEXT PRIMARY KEY,
    agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    trigger_type TEXT NOT NULL CHECK(trigger_type IN ('continuous','cron','reactive')),
    description TEXT,
    cron_expression TEXT,
    timezone TEXT,
    next_execution_at DATETIME,
    minimum_interval_seconds INTEGER NOT NULL DEFAULT 0,
    only_when_tasks_pending INTEGER NOT NULL DEFAULT 0,
    enabled INTEGER NOT NULL DEFAULT 1,
    last_triggered_at DATETIME,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_schedules_agent ON schedules(agent_id);
CREATE INDEX IF NOT EXISTS idx_schedules_enabled ON schedules(enabled);

CREATE TABLE IF NOT EXISTS agent_orgs (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    lead_agent_id TEXT NOT NULL REFERENCES agents(id),
    description TEXT,
    status TEXT NOT NULL DEFAULT 'active' CHECK(status IN ('active','archived')),
    settings TEXT,
    created_by TEXT NOT NULL,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS agent_org_members (
    org_id TEXT NOT NULL REFERENCES agent_orgs(id) ON DELETE CASCADE,
    agent_id TEXT NOT NULL REFERENCES agents(id) ON DELETE CASCADE,
    role TEXT NOT NULL DEFAULT 'member' CHECK(role IN ('lead','member')),
    joined_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (org_id, agent_id)
);

CREATE TABLE IF NOT EXISTS delegation_history (
    id TEXT PRIMARY KEY,
    source_agent_id TEXT NOT NULL,
    target_agent_id TEXT NOT NULL,
    org_id TEXT,
    task_id TEXT,
    user_id TEXT,
    task TEXT NOT NULL,
    mode TEXT,
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running','succeeded','failed')),
    result TEXT,
    error TEXT,
    iterations INTEGER NOT NULL DEFAULT 0,
    trace_id TEXT,
    duration_ms INTEGER NOT NULL DEFAULT 0,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_delegation_history_source ON delegation_history(source_agent_id);
CREATE INDEX IF NOT EXISTS idx_delegation_history_target ON delegation_history(target_agent_id);

-- Append-only audit trail (§4.10). Immutability is enforced below by
-- rejecting UPDATE/DELETE outright, the same way the Postgres schema does
-- with a trigger.
CREATE TABLE IF NOT EXISTS audit_log (
    id TEXT PRIMARY KEY,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    actor_agent_id TEXT,
    action TEXT NOT NULL,
    target_agent_id TEXT,
    success INTEGER NOT NULL DEFAULT 1,
    details TEXT
);

CREATE INDEX IF NOT EXISTS idx_audit_log_target ON audit_log(target_agent_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_timestamp ON audit_log(timestamp);

CREATE TRIGGER IF NOT EXISTS audit_log_no_update
BEFORE UPDATE ON audit_log
BEGIN
    SELECT RAISE(ABORT, 'audit_log rows are immutable');
END;

CREATE TRIGGER IF NOT EXISTS audit_log_no_delete
BEFORE DELETE ON audit_log
BEGIN
    SELECT RAISE(ABORT, 'audit_log rows are immutable');
END;
`

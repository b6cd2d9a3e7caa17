// Package sqlite implements the kernel's store interfaces on an embedded,
// single-writer modernc.org/sqlite database for standalone mode.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// OpenDB opens (creating if absent) the embedded database at path with WAL
// mode and foreign keys on, then applies the schema.
func OpenDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps write semantics honest: SQLite allows only
	// one writer at a time regardless, but this avoids "database is locked"
	// churn across goroutines sharing the pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return db, nil
}

// NewStores wires every SQLite-backed store implementation behind
// store.Stores, mirroring pg.NewStores for the managed backend.
func NewStores(db *sql.DB) *store.Stores {
	return &store.Stores{
		Agents:      NewAgentStore(db),
		Tasks:       NewTaskStore(db),
		Messages:    NewMessageStore(db),
		Audit:       NewAuditStore(db),
		Schedules:   NewScheduleStore(db),
		Orgs:        NewOrgStore(db),
		Delegations: NewDelegationStore(db),
	}
}

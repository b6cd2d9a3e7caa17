// Package pg implements the kernel's store interfaces on Postgres, using
// database/sql over the pgx/v5 stdlib driver. Schema installation is a
// black box owned by golang-migrate (cmd/migrate.go) — this package never
// issues DDL.
package pg

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// OpenDB opens a connection pool against dsn using the pgx stdlib driver.
func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// NewStores wires every Postgres-backed store implementation behind
// store.Stores.
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

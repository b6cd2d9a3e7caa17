// Package store defines the kernel's storage contracts: the entity data
// shapes and the operations every backend (Postgres, embedded SQLite) must
// implement. Concrete backends live in store/pg and store/sqlite.
package store

import (
	"time"

	"github.com/google/uuid"
)

// Constants shared by every backend.
const (
	TaskMaxDepth           = 5
	AgentMaxHierarchyDepth = 5
)

// GenNewID mints a fresh random identifier for rows keyed by UUID
// (orgs and audit rows).
func GenNewID() uuid.UUID {
	return uuid.New()
}

// BaseModel carries the id/timestamps shared by every backend-agnostic record.
type BaseModel struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Config names a backend and its connection settings. Neither backend's
// NewStores reads it; each takes an already-opened *sql.DB.
type Config struct {
	// Driver selects the backend: "postgres" or "sqlite".
	Driver string
	// PostgresDSN is read from the environment only by callers; never persisted.
	PostgresDSN string
	// SQLitePath is the embedded database file (e.g. "~/.orgkernel/kernel.db").
	SQLitePath string
}

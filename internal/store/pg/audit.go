package pg

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// AuditStore implements store.AuditStore. Rows are append-only; immutability
// is enforced by a database trigger (migrations/0001_initial_schema.up.sql)
// rather than by anything in this file.
type AuditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) AppendAudit(ctx context.Context, event *store.AuditEventData) error {
	var detailsJSON []byte
	if event.Details != nil {
		var err error
		detailsJSON, err = json.Marshal(event.Details)
		if err != nil {
			return err
		}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, timestamp, actor_agent_id, action, target_agent_id, success, details)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		event.ID, event.Timestamp, event.ActorAgentID, string(event.Action), event.TargetAgentID, event.Success, detailsJSON)
	return err
}

package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// AuditStore implements store.AuditStore. Immutability is enforced by the
// audit_log_no_update/no_delete triggers in schema.go.
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
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.Timestamp, event.ActorAgentID, string(event.Action), event.TargetAgentID, event.Success, detailsJSON)
	return err
}

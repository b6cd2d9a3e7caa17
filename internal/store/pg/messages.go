package pg

import (
	"context"
	"database/sql"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

// MessageStore implements store.MessageStore. Only the relational row is
// persisted here; the filesystem inbox copy is internal/messaging's concern.
type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) RecordMessage(ctx context.Context, msg *store.MessageData) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender, recipient, timestamp, priority, channel, read, action_required, subject, thread_id, in_reply_to, message_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		msg.ID, msg.From, msg.To, msg.Timestamp, msg.Priority, msg.Channel, msg.Read, msg.ActionRequired,
		nullIfEmpty(msg.Subject), nullIfEmpty(msg.ThreadID), nullIfEmpty(msg.InReplyTo), nullIfEmpty(msg.MessagePath))
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

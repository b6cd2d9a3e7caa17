package sqlite

import (
	"context"
	"database/sql"

	"github.com/nextlevelbuilder/orgkernel/internal/store"
)

type MessageStore struct {
	db *sql.DB
}

func NewMessageStore(db *sql.DB) *MessageStore {
	return &MessageStore{db: db}
}

func (s *MessageStore) RecordMessage(ctx context.Context, msg *store.MessageData) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (id, sender, recipient, timestamp, priority, channel, read, action_required, subject, thread_id, in_reply_to, message_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.ID, msg.From, msg.To, msg.Timestamp, msg.Priority, msg.Channel, msg.Read, msg.ActionRequired,
		nullIfEmpty(msg.Subject), nullIfEmpty(msg.ThreadID), nullIfEmpty(msg.InReplyTo), nullIfEmpty(msg.MessagePath))
	return err
}

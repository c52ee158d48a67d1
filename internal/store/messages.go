package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rcliao/msg-memory/internal/model"
)

// UpsertConversation creates or updates a conversation row.
func (s *SQLiteStore) UpsertConversation(ctx context.Context, c model.Conversation) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO conversations (guid, local_id, title, is_group) VALUES (?, ?, ?, ?)
		 ON CONFLICT(guid) DO UPDATE SET
		   local_id = excluded.local_id,
		   title = COALESCE(excluded.title, conversations.title),
		   is_group = excluded.is_group`,
		c.Key(), c.LocalID, nullable(c.Title), c.IsGroup)
	if err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}
	return nil
}

// AddMessage stores m, creating its conversation if needed, and returns the
// stored message with its id.
func (s *SQLiteStore) AddMessage(ctx context.Context, m model.Message) (model.Message, error) {
	if m.ConversationGUID == "" {
		return m, fmt.Errorf("add message: conversation guid is required")
	}
	if m.Date.IsZero() {
		m.Date = s.now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return m, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO conversations (guid) VALUES (?)`, m.ConversationGUID); err != nil {
		return m, fmt.Errorf("add message: %w", err)
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO messages (conversation_guid, sender, text, date, outgoing) VALUES (?, ?, ?, ?, ?)`,
		m.ConversationGUID, nullable(m.Sender), m.Text, m.Date.UnixNano(), m.Outgoing)
	if err != nil {
		return m, fmt.Errorf("add message: %w", err)
	}
	m.ID, _ = res.LastInsertId()
	return m, tx.Commit()
}

// Conversations lists every conversation.
func (s *SQLiteStore) Conversations(ctx context.Context) ([]model.Conversation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT guid, local_id, title, is_group FROM conversations ORDER BY guid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	convs := []model.Conversation{}
	for rows.Next() {
		var c model.Conversation
		var title sql.NullString
		if err := rows.Scan(&c.GUID, &c.LocalID, &title, &c.IsGroup); err != nil {
			return nil, err
		}
		c.Title = title.String
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// Conversation looks up one conversation by guid.
func (s *SQLiteStore) Conversation(ctx context.Context, guid string) (model.Conversation, error) {
	var c model.Conversation
	var title sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT guid, local_id, title, is_group FROM conversations WHERE guid = ?`, guid).
		Scan(&c.GUID, &c.LocalID, &title, &c.IsGroup)
	if err == sql.ErrNoRows {
		return c, fmt.Errorf("conversation not found: %s", guid)
	}
	if err != nil {
		return c, err
	}
	c.Title = title.String
	return c, nil
}

// Messages returns a conversation's history, oldest first.
func (s *SQLiteStore) Messages(ctx context.Context, conversationGUID string) ([]model.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, conversation_guid, sender, text, date, outgoing FROM messages
		 WHERE conversation_guid = ? ORDER BY date, id`, conversationGUID)
}

// RecentShortSenderMessages returns the newest incoming messages from
// senders of at most maxSenderLen characters, the shape of short-code and
// numeric senders that deliver verification codes.
func (s *SQLiteStore) RecentShortSenderMessages(ctx context.Context, maxSenderLen, limit int) ([]model.Message, error) {
	return s.queryMessages(ctx,
		`SELECT id, conversation_guid, sender, text, date, outgoing FROM messages
		 WHERE outgoing = 0 AND sender IS NOT NULL AND length(sender) <= ?
		 ORDER BY date DESC, id DESC LIMIT ?`, maxSenderLen, limit)
}

func (s *SQLiteStore) queryMessages(ctx context.Context, query string, args ...any) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []model.Message{}
	for rows.Next() {
		var m model.Message
		var sender sql.NullString
		var date int64
		if err := rows.Scan(&m.ID, &m.ConversationGUID, &sender, &m.Text, &date, &m.Outgoing); err != nil {
			return nil, err
		}
		m.Sender = sender.String
		m.Date = time.Unix(0, date).UTC()
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

var _ MessageSource = (*SQLiteStore)(nil)

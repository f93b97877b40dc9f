package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrMessageNotFound = errors.New("message not found")

// MessageQuery drives keyset pagination over a trip's chat. Before is an
// exclusive cursor (message id); results are newest-first.
type MessageQuery struct {
	TripID    string
	ChannelID *string // nil: main trip chat only
	Before    string
	Limit     int
}

func (s *PostgresStore) CreateMessage(msg *Message) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.PrivacyMode == "" {
		msg.PrivacyMode = PrivacyStandard
	}
	msg.CreatedAt = time.Now()

	// A reply inherits the root of the thread it joins, so every message in a
	// thread points at the same root regardless of reply depth.
	if msg.ReplyTo != nil && msg.ThreadRoot == nil {
		parent, err := s.GetMessage(*msg.ReplyTo)
		if err != nil {
			return err
		}
		if parent == nil {
			return ErrMessageNotFound
		}
		root := parent.ID
		if parent.ThreadRoot != nil {
			root = *parent.ThreadRoot
		}
		msg.ThreadRoot = &root
	}

	_, err := s.db.Exec(
		`INSERT INTO messages (id, trip_id, channel_id, author_id, content, privacy_mode, reply_to, thread_root, payload, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		msg.ID, msg.TripID, msg.ChannelID, msg.AuthorID, msg.Content, msg.PrivacyMode,
		msg.ReplyTo, msg.ThreadRoot, msg.Payload, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMessage(id string) (*Message, error) {
	var msg Message
	err := s.db.Get(&msg, "SELECT * FROM messages WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &msg, nil
}

func (s *PostgresStore) ListMessages(q MessageQuery) ([]Message, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 50
	}

	args := []interface{}{q.TripID}
	where := "trip_id = $1"
	if q.ChannelID != nil {
		args = append(args, *q.ChannelID)
		where += fmt.Sprintf(" AND channel_id = $%d", len(args))
	} else {
		where += " AND channel_id IS NULL"
	}
	if q.Before != "" {
		// Cursor on (created_at, id) of the anchor message keeps pages stable
		// under concurrent inserts of newer messages.
		args = append(args, q.Before)
		where += fmt.Sprintf(
			" AND (created_at, id) < (SELECT created_at, id FROM messages WHERE id = $%d)", len(args))
	}
	args = append(args, q.Limit)

	messages := []Message{}
	query := fmt.Sprintf(
		"SELECT * FROM messages WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d", where, len(args))
	if err := s.db.Select(&messages, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) ListThread(rootID string) ([]Message, error) {
	messages := []Message{}
	err := s.db.Select(&messages,
		"SELECT * FROM messages WHERE id = $1 OR thread_root = $1 ORDER BY created_at", rootID)
	if err != nil {
		return nil, fmt.Errorf("failed to list thread: %w", err)
	}
	return messages, nil
}

// ListRecentStandardMessages returns the newest non-private, non-deleted main
// chat messages for concierge context building, oldest first.
func (s *PostgresStore) ListRecentStandardMessages(tripID string, limit int) ([]Message, error) {
	messages := []Message{}
	err := s.db.Select(&messages,
		`SELECT * FROM (
		     SELECT * FROM messages
		     WHERE trip_id = $1 AND channel_id IS NULL AND privacy_mode = 'standard' AND NOT deleted
		     ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at`,
		tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent messages: %w", err)
	}
	return messages, nil
}

func (s *PostgresStore) UpdateMessageContent(id, authorID, content string) error {
	res, err := s.db.Exec(
		"UPDATE messages SET content = $1, edited_at = NOW() WHERE id = $2 AND author_id = $3 AND NOT deleted",
		content, id, authorID)
	if err != nil {
		return fmt.Errorf("failed to update message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SoftDeleteMessage clears the content but keeps the row so thread and reply
// linkage stays intact.
func (s *PostgresStore) SoftDeleteMessage(id, authorID string) error {
	res, err := s.db.Exec(
		"UPDATE messages SET content = '', payload = NULL, deleted = TRUE WHERE id = $1 AND author_id = $2",
		id, authorID)
	if err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// PinMessage pins one message, unpinning whatever was pinned before in the
// same transaction. Returns the id of the previously pinned message, if any.
func (s *PostgresStore) PinMessage(tripID, messageID string) (string, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var prevID string
	err = tx.Get(&prevID, "SELECT id FROM messages WHERE trip_id = $1 AND pinned FOR UPDATE", tripID)
	if err != nil && err != sql.ErrNoRows {
		return "", fmt.Errorf("failed to look up pinned message: %w", err)
	}
	if prevID == messageID {
		return prevID, tx.Commit()
	}
	if prevID != "" {
		if _, err := tx.Exec("UPDATE messages SET pinned = FALSE WHERE id = $1", prevID); err != nil {
			return "", fmt.Errorf("failed to unpin previous message: %w", err)
		}
	}
	res, err := tx.Exec("UPDATE messages SET pinned = TRUE WHERE id = $1 AND trip_id = $2", messageID, tripID)
	if err != nil {
		return "", fmt.Errorf("failed to pin message: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", ErrMessageNotFound
	}
	return prevID, tx.Commit()
}

func (s *PostgresStore) UnpinMessage(tripID string) error {
	_, err := s.db.Exec("UPDATE messages SET pinned = FALSE WHERE trip_id = $1 AND pinned", tripID)
	if err != nil {
		return fmt.Errorf("failed to unpin message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetPinnedMessage(tripID string) (*Message, error) {
	var msg Message
	err := s.db.Get(&msg, "SELECT * FROM messages WHERE trip_id = $1 AND pinned", tripID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get pinned message: %w", err)
	}
	return &msg, nil
}

package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Concierge session methods

func (s *PostgresStore) CreateConciergeSession(tripID, userID string) (*ConciergeSession, error) {
	session := ConciergeSession{
		ID:        uuid.NewString(),
		TripID:    tripID,
		UserID:    userID,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO concierge_sessions (id, trip_id, user_id, created_at) VALUES ($1, $2, $3, $4)",
		session.ID, session.TripID, session.UserID, session.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert concierge session: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) GetConciergeSession(sessionID, userID string) (*ConciergeSession, error) {
	var session ConciergeSession
	err := s.db.Get(&session,
		"SELECT * FROM concierge_sessions WHERE id = $1 AND user_id = $2", sessionID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get concierge session: %w", err)
	}
	return &session, nil
}

func (s *PostgresStore) ListConciergeSessions(tripID, userID string) ([]ConciergeSession, error) {
	sessions := []ConciergeSession{}
	err := s.db.Select(&sessions,
		"SELECT * FROM concierge_sessions WHERE trip_id = $1 AND user_id = $2 ORDER BY created_at DESC",
		tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list concierge sessions: %w", err)
	}
	return sessions, nil
}

func (s *PostgresStore) UpdateConciergeSessionTitle(sessionID, userID, title string) error {
	_, err := s.db.Exec(
		"UPDATE concierge_sessions SET title = $1 WHERE id = $2 AND user_id = $3",
		title, sessionID, userID)
	if err != nil {
		return fmt.Errorf("failed to update session title: %w", err)
	}
	return nil
}

// Concierge message methods

func (s *PostgresStore) CreateConciergeMessage(msg *ConciergeMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	msg.CreatedAt = time.Now()
	_, err := s.db.Exec(
		"INSERT INTO concierge_messages (id, session_id, sender, content, created_at) VALUES ($1, $2, $3, $4, $5)",
		msg.ID, msg.SessionID, msg.Sender, msg.Content, msg.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert concierge message: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetConciergeMessages(sessionID string, limit int) ([]ConciergeMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	messages := []ConciergeMessage{}
	err := s.db.Select(&messages,
		"SELECT * FROM concierge_messages WHERE session_id = $1 ORDER BY created_at LIMIT $2",
		sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get concierge messages: %w", err)
	}
	return messages, nil
}

// GetLastNConciergeMessages returns the newest N messages in chronological order.
func (s *PostgresStore) GetLastNConciergeMessages(sessionID string, n int) ([]ConciergeMessage, error) {
	messages := []ConciergeMessage{}
	err := s.db.Select(&messages,
		`SELECT * FROM (
		     SELECT * FROM concierge_messages WHERE session_id = $1 ORDER BY created_at DESC LIMIT $2
		 ) recent ORDER BY created_at`,
		sessionID, n)
	if err != nil {
		return nil, fmt.Errorf("failed to get last messages: %w", err)
	}
	return messages, nil
}

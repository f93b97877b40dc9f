package store

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

func (s *PostgresStore) CreateBroadcast(b *Broadcast) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.Priority == "" {
		b.Priority = PriorityNormal
	}
	b.CreatedAt = time.Now()
	if b.ScheduledFor == nil {
		// Unscheduled broadcasts go out immediately.
		now := b.CreatedAt
		b.SentAt = &now
	}
	_, err := s.db.Exec(
		`INSERT INTO broadcasts (id, trip_id, author_id, content, priority, scheduled_for, sent_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.TripID, b.AuthorID, b.Content, b.Priority, b.ScheduledFor, b.SentAt, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert broadcast: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBroadcasts(tripID string) ([]Broadcast, error) {
	broadcasts := []Broadcast{}
	err := s.db.Select(&broadcasts,
		"SELECT * FROM broadcasts WHERE trip_id = $1 AND sent_at IS NOT NULL ORDER BY sent_at DESC", tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list broadcasts: %w", err)
	}
	return broadcasts, nil
}

// ClaimDueBroadcasts marks due scheduled broadcasts sent and returns them.
// The UPDATE ... RETURNING makes the claim atomic so two server instances
// never deliver the same broadcast twice.
func (s *PostgresStore) ClaimDueBroadcasts(now time.Time) ([]Broadcast, error) {
	broadcasts := []Broadcast{}
	err := s.db.Select(&broadcasts,
		`UPDATE broadcasts SET sent_at = $1
		 WHERE sent_at IS NULL AND scheduled_for <= $1
		 RETURNING *`, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due broadcasts: %w", err)
	}
	return broadcasts, nil
}

func (s *PostgresStore) ListRecentBroadcasts(tripID string, limit int) ([]Broadcast, error) {
	broadcasts := []Broadcast{}
	err := s.db.Select(&broadcasts,
		"SELECT * FROM broadcasts WHERE trip_id = $1 AND sent_at IS NOT NULL ORDER BY sent_at DESC LIMIT $2",
		tripID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent broadcasts: %w", err)
	}
	return broadcasts, nil
}

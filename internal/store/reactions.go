package store

import (
	"fmt"
)

// ToggleReaction inserts the reaction if absent and deletes it if present.
// Returns true when the reaction was added. Toggling twice is a no-op pair:
// the grouped counts return to their original values.
func (s *PostgresStore) ToggleReaction(messageID, userID, typ string) (bool, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		"DELETE FROM reactions WHERE message_id = $1 AND user_id = $2 AND type = $3",
		messageID, userID, typ)
	if err != nil {
		return false, fmt.Errorf("failed to toggle reaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return false, tx.Commit()
	}

	_, err = tx.Exec(
		"INSERT INTO reactions (message_id, user_id, type) VALUES ($1, $2, $3)",
		messageID, userID, typ)
	if err != nil {
		return false, fmt.Errorf("failed to insert reaction: %w", err)
	}
	return true, tx.Commit()
}

func (s *PostgresStore) GetReactionGroups(messageID string) ([]ReactionGroup, error) {
	groups := []ReactionGroup{}
	err := s.db.Select(&groups,
		`SELECT type, COUNT(*) AS count, ARRAY_AGG(user_id ORDER BY created_at) AS users
		 FROM reactions WHERE message_id = $1 GROUP BY type ORDER BY type`,
		messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to group reactions: %w", err)
	}
	return groups, nil
}

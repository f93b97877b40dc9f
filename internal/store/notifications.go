package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Push subscriptions

func (s *PostgresStore) SavePushSubscription(sub *PushSubscription) error {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}
	sub.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO push_subscriptions (id, user_id, endpoint, p256dh, auth, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (endpoint) DO UPDATE SET user_id = EXCLUDED.user_id, p256dh = EXCLUDED.p256dh, auth = EXCLUDED.auth`,
		sub.ID, sub.UserID, sub.Endpoint, sub.P256dh, sub.Auth, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save push subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeletePushSubscription(endpoint string) error {
	_, err := s.db.Exec("DELETE FROM push_subscriptions WHERE endpoint = $1", endpoint)
	if err != nil {
		return fmt.Errorf("failed to delete push subscription: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPushSubscriptions(userID string) ([]PushSubscription, error) {
	subs := []PushSubscription{}
	err := s.db.Select(&subs, "SELECT * FROM push_subscriptions WHERE user_id = $1", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list push subscriptions: %w", err)
	}
	return subs, nil
}

// Preferences

func (s *PostgresStore) GetNotificationPref(userID, category string) (*NotificationPref, error) {
	var pref NotificationPref
	err := s.db.Get(&pref,
		"SELECT * FROM notification_prefs WHERE user_id = $1 AND category = $2", userID, category)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification pref: %w", err)
	}
	return &pref, nil
}

func (s *PostgresStore) ListNotificationPrefs(userID string) ([]NotificationPref, error) {
	prefs := []NotificationPref{}
	err := s.db.Select(&prefs,
		"SELECT * FROM notification_prefs WHERE user_id = $1 ORDER BY category", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification prefs: %w", err)
	}
	return prefs, nil
}

func (s *PostgresStore) SaveNotificationPref(pref *NotificationPref) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_prefs (user_id, category, in_app, push, email, sms)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (user_id, category) DO UPDATE SET
		     in_app = EXCLUDED.in_app, push = EXCLUDED.push,
		     email = EXCLUDED.email, sms = EXCLUDED.sms`,
		pref.UserID, pref.Category, pref.InApp, pref.Push, pref.Email, pref.SMS)
	if err != nil {
		return fmt.Errorf("failed to save notification pref: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetNotificationSettings(userID string) (*NotificationSettings, error) {
	var set NotificationSettings
	err := s.db.Get(&set, "SELECT * FROM notification_settings WHERE user_id = $1", userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get notification settings: %w", err)
	}
	return &set, nil
}

func (s *PostgresStore) SaveNotificationSettings(set *NotificationSettings) error {
	_, err := s.db.Exec(
		`INSERT INTO notification_settings (user_id, quiet_enabled, quiet_start_min, quiet_end_min, timezone)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		     quiet_enabled = EXCLUDED.quiet_enabled,
		     quiet_start_min = EXCLUDED.quiet_start_min,
		     quiet_end_min = EXCLUDED.quiet_end_min,
		     timezone = EXCLUDED.timezone`,
		set.UserID, set.QuietEnabled, set.QuietStartMin, set.QuietEndMin, set.Timezone)
	if err != nil {
		return fmt.Errorf("failed to save notification settings: %w", err)
	}
	return nil
}

// In-app inbox

func (s *PostgresStore) CreateNotification(n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	n.CreatedAt = time.Now()
	_, err := s.db.Exec(
		`INSERT INTO notifications (id, user_id, trip_id, category, title, body, data, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.TripID, n.Category, n.Title, n.Body, n.Data, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListNotifications(userID string, limit int) ([]Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	notifications := []Notification{}
	err := s.db.Select(&notifications,
		"SELECT * FROM notifications WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2", userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (s *PostgresStore) MarkNotificationRead(id, userID string) error {
	res, err := s.db.Exec(
		"UPDATE notifications SET read_at = NOW() WHERE id = $1 AND user_id = $2 AND read_at IS NULL",
		id, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("notification %s not found", id)
	}
	return nil
}

package store

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // Postgres driver
)

type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(dataSourceName string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &PostgresStore{db: db}
	if err = store.initSchema(); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) initSchema() error {
	schema := `
    CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT UNIQUE NOT NULL,
        display_name TEXT NOT NULL,
        password_hash TEXT NOT NULL,
        phone TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS trips (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL,
        tier TEXT NOT NULL DEFAULT 'free' CHECK (tier IN ('free', 'pro', 'enterprise')),
        basecamp_name TEXT,
        basecamp_lat DOUBLE PRECISION,
        basecamp_lng DOUBLE PRECISION,
        created_by TEXT NOT NULL REFERENCES users (id),
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS trip_members (
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        user_id TEXT NOT NULL REFERENCES users (id),
        role TEXT NOT NULL DEFAULT 'member',
        joined_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (trip_id, user_id)
    );

    CREATE TABLE IF NOT EXISTS role_channels (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        name TEXT NOT NULL,
        role TEXT NOT NULL,
        created_by TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        UNIQUE (trip_id, name)
    );

    CREATE TABLE IF NOT EXISTS messages (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        channel_id TEXT REFERENCES role_channels (id) ON DELETE CASCADE,
        author_id TEXT NOT NULL,
        content TEXT NOT NULL,
        privacy_mode TEXT NOT NULL DEFAULT 'standard' CHECK (privacy_mode IN ('standard', 'private')),
        reply_to TEXT REFERENCES messages (id),
        thread_root TEXT REFERENCES messages (id),
        pinned BOOLEAN NOT NULL DEFAULT FALSE,
        payload JSONB,
        deleted BOOLEAN NOT NULL DEFAULT FALSE,
        edited_at TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE INDEX IF NOT EXISTS idx_messages_trip_created ON messages (trip_id, created_at DESC);
    CREATE INDEX IF NOT EXISTS idx_messages_thread_root ON messages (thread_root);
    -- At most one pinned message per trip.
    CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_one_pin ON messages (trip_id) WHERE pinned;

    CREATE TABLE IF NOT EXISTS reactions (
        message_id TEXT NOT NULL REFERENCES messages (id) ON DELETE CASCADE,
        user_id TEXT NOT NULL,
        type TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        PRIMARY KEY (message_id, user_id, type)
    );

    CREATE TABLE IF NOT EXISTS broadcasts (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        author_id TEXT NOT NULL,
        content TEXT NOT NULL,
        priority TEXT NOT NULL DEFAULT 'normal' CHECK (priority IN ('normal', 'urgent')),
        scheduled_for TIMESTAMPTZ,
        sent_at TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE INDEX IF NOT EXISTS idx_broadcasts_due ON broadcasts (scheduled_for) WHERE sent_at IS NULL;

    CREATE TABLE IF NOT EXISTS calendar_events (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        title TEXT NOT NULL,
        location TEXT,
        starts_at TIMESTAMPTZ NOT NULL,
        ends_at TIMESTAMPTZ,
        created_by TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS tasks (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        title TEXT NOT NULL,
        assigned_to TEXT,
        due_at TIMESTAMPTZ,
        done BOOLEAN NOT NULL DEFAULT FALSE,
        created_by TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS polls (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        question TEXT NOT NULL,
        created_by TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS poll_options (
        id TEXT PRIMARY KEY,
        poll_id TEXT NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
        label TEXT NOT NULL
    );

    CREATE TABLE IF NOT EXISTS poll_votes (
        poll_id TEXT NOT NULL REFERENCES polls (id) ON DELETE CASCADE,
        option_id TEXT NOT NULL REFERENCES poll_options (id) ON DELETE CASCADE,
        user_id TEXT NOT NULL,
        PRIMARY KEY (poll_id, user_id)
    );

    CREATE TABLE IF NOT EXISTS payment_splits (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        paid_by TEXT NOT NULL,
        amount_cents BIGINT NOT NULL CHECK (amount_cents >= 0),
        currency TEXT NOT NULL DEFAULT 'USD',
        description TEXT NOT NULL,
        participants TEXT[] NOT NULL DEFAULT '{}',
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS push_subscriptions (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
        endpoint TEXT UNIQUE NOT NULL,
        p256dh TEXT NOT NULL,
        auth TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS notification_prefs (
        user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
        category TEXT NOT NULL,
        in_app BOOLEAN NOT NULL DEFAULT TRUE,
        push BOOLEAN NOT NULL DEFAULT TRUE,
        email BOOLEAN NOT NULL DEFAULT FALSE,
        sms BOOLEAN NOT NULL DEFAULT FALSE,
        PRIMARY KEY (user_id, category)
    );

    CREATE TABLE IF NOT EXISTS notification_settings (
        user_id TEXT PRIMARY KEY REFERENCES users (id) ON DELETE CASCADE,
        quiet_enabled BOOLEAN NOT NULL DEFAULT FALSE,
        quiet_start_min INTEGER NOT NULL DEFAULT 1320,
        quiet_end_min INTEGER NOT NULL DEFAULT 420,
        timezone TEXT NOT NULL DEFAULT 'UTC'
    );

    CREATE TABLE IF NOT EXISTS notifications (
        id TEXT PRIMARY KEY,
        user_id TEXT NOT NULL REFERENCES users (id) ON DELETE CASCADE,
        trip_id TEXT NOT NULL,
        category TEXT NOT NULL,
        title TEXT NOT NULL,
        body TEXT NOT NULL,
        data JSONB,
        read_at TIMESTAMPTZ,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications (user_id, created_at DESC);

    CREATE TABLE IF NOT EXISTS concierge_sessions (
        id TEXT PRIMARY KEY,
        trip_id TEXT NOT NULL REFERENCES trips (id) ON DELETE CASCADE,
        user_id TEXT NOT NULL REFERENCES users (id),
        title TEXT,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );

    CREATE TABLE IF NOT EXISTS concierge_messages (
        id TEXT PRIMARY KEY,
        session_id TEXT NOT NULL REFERENCES concierge_sessions (id) ON DELETE CASCADE,
        sender TEXT NOT NULL CHECK (sender IN ('user', 'model')),
        content TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    );
    `
	_, err := s.db.Exec(schema)
	return err
}

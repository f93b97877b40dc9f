package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// User methods

func (s *PostgresStore) GetUserByEmail(email string) (*User, error) {
	var user User
	err := s.db.Get(&user, "SELECT * FROM users WHERE email = $1", email)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // User not found
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) GetUserByID(id string) (*User, error) {
	var user User
	err := s.db.Get(&user, "SELECT * FROM users WHERE id = $1", id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (s *PostgresStore) CreateUser(email, displayName, passwordHash string) (*User, error) {
	user := User{
		ID:           uuid.NewString(),
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO users (id, email, display_name, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Email, user.DisplayName, user.PasswordHash, user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return &user, nil
}

// GetUsersByIDs resolves display names in one batch query. Used by the trip
// context builder instead of one lookup per author.
func (s *PostgresStore) GetUsersByIDs(ids []string) (map[string]User, error) {
	users := map[string]User{}
	if len(ids) == 0 {
		return users, nil
	}
	query, args, err := sqlx.In("SELECT * FROM users WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	var rows []User
	if err := s.db.Select(&rows, s.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to batch-load users: %w", err)
	}
	for _, u := range rows {
		users[u.ID] = u
	}
	return users, nil
}

// Trip methods

func (s *PostgresStore) CreateTrip(name, tier, createdBy string) (*Trip, error) {
	trip := Trip{
		ID:        uuid.NewString(),
		Name:      name,
		Tier:      tier,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	tx, err := s.db.Beginx()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		"INSERT INTO trips (id, name, tier, created_by, created_at) VALUES ($1, $2, $3, $4, $5)",
		trip.ID, trip.Name, trip.Tier, trip.CreatedBy, trip.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert trip: %w", err)
	}
	_, err = tx.Exec(
		"INSERT INTO trip_members (trip_id, user_id, role) VALUES ($1, $2, 'organizer')",
		trip.ID, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to add trip creator as organizer: %w", err)
	}
	return &trip, tx.Commit()
}

func (s *PostgresStore) GetTrip(tripID string) (*Trip, error) {
	var trip Trip
	err := s.db.Get(&trip, "SELECT * FROM trips WHERE id = $1", tripID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip: %w", err)
	}
	return &trip, nil
}

func (s *PostgresStore) SetBasecamp(tripID, name string, lat, lng float64) error {
	_, err := s.db.Exec(
		"UPDATE trips SET basecamp_name = $1, basecamp_lat = $2, basecamp_lng = $3 WHERE id = $4",
		name, lat, lng, tripID)
	if err != nil {
		return fmt.Errorf("failed to set basecamp: %w", err)
	}
	return nil
}

func (s *PostgresStore) AddMember(tripID, userID, role string) error {
	_, err := s.db.Exec(
		`INSERT INTO trip_members (trip_id, user_id, role) VALUES ($1, $2, $3)
		 ON CONFLICT (trip_id, user_id) DO UPDATE SET role = EXCLUDED.role`,
		tripID, userID, role)
	if err != nil {
		return fmt.Errorf("failed to add trip member: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetMember(tripID, userID string) (*TripMember, error) {
	var m TripMember
	err := s.db.Get(&m, "SELECT * FROM trip_members WHERE trip_id = $1 AND user_id = $2", tripID, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get trip member: %w", err)
	}
	return &m, nil
}

func (s *PostgresStore) ListMembers(tripID string) ([]TripMember, error) {
	members := []TripMember{}
	err := s.db.Select(&members, "SELECT * FROM trip_members WHERE trip_id = $1 ORDER BY joined_at", tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trip members: %w", err)
	}
	return members, nil
}

// Role channel methods

func (s *PostgresStore) CreateRoleChannel(tripID, name, role, createdBy string) (*RoleChannel, error) {
	ch := RoleChannel{
		ID:        uuid.NewString(),
		TripID:    tripID,
		Name:      name,
		Role:      role,
		CreatedBy: createdBy,
		CreatedAt: time.Now(),
	}
	_, err := s.db.Exec(
		"INSERT INTO role_channels (id, trip_id, name, role, created_by, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		ch.ID, ch.TripID, ch.Name, ch.Role, ch.CreatedBy, ch.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert role channel: %w", err)
	}
	return &ch, nil
}

func (s *PostgresStore) GetRoleChannel(channelID string) (*RoleChannel, error) {
	var ch RoleChannel
	err := s.db.Get(&ch, "SELECT * FROM role_channels WHERE id = $1", channelID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get role channel: %w", err)
	}
	return &ch, nil
}

// ListRoleChannels returns the channels a member with the given role may see.
// Organizers see every channel on the trip.
func (s *PostgresStore) ListRoleChannels(tripID, role string) ([]RoleChannel, error) {
	channels := []RoleChannel{}
	var err error
	if role == "organizer" {
		err = s.db.Select(&channels, "SELECT * FROM role_channels WHERE trip_id = $1 ORDER BY created_at", tripID)
	} else {
		err = s.db.Select(&channels, "SELECT * FROM role_channels WHERE trip_id = $1 AND role = $2 ORDER BY created_at", tripID, role)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list role channels: %w", err)
	}
	return channels, nil
}

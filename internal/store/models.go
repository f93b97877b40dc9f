package store

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	DisplayName  string    `db:"display_name" json:"display_name"`
	PasswordHash string    `db:"password_hash" json:"-"` // Do not expose this in JSON responses
	Phone        *string   `db:"phone" json:"phone,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// Trip tiers gate Pro/Enterprise features such as role channels.
const (
	TierFree       = "free"
	TierPro        = "pro"
	TierEnterprise = "enterprise"
)

type Trip struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Tier         string    `db:"tier" json:"tier"`
	BasecampName *string   `db:"basecamp_name" json:"basecamp_name,omitempty"`
	BasecampLat  *float64  `db:"basecamp_lat" json:"basecamp_lat,omitempty"`
	BasecampLng  *float64  `db:"basecamp_lng" json:"basecamp_lng,omitempty"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

type TripMember struct {
	TripID   string    `db:"trip_id" json:"trip_id"`
	UserID   string    `db:"user_id" json:"user_id"`
	Role     string    `db:"role" json:"role"` // free-form: "organizer", "member", "crew", ...
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// RoleChannel is a permissioned sub-chat visible only to members holding its role.
type RoleChannel struct {
	ID        string    `db:"id" json:"id"`
	TripID    string    `db:"trip_id" json:"trip_id"`
	Name      string    `db:"name" json:"name"`
	Role      string    `db:"role" json:"role"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Message privacy modes. Private messages are excluded from concierge context.
const (
	PrivacyStandard = "standard"
	PrivacyPrivate  = "private"
)

type Message struct {
	ID          string          `db:"id" json:"id"`
	TripID      string          `db:"trip_id" json:"trip_id"`
	ChannelID   *string         `db:"channel_id" json:"channel_id,omitempty"`
	AuthorID    string          `db:"author_id" json:"author_id"`
	Content     string          `db:"content" json:"content"`
	PrivacyMode string          `db:"privacy_mode" json:"privacy_mode"`
	ReplyTo     *string         `db:"reply_to" json:"reply_to,omitempty"`
	ThreadRoot  *string         `db:"thread_root" json:"thread_root,omitempty"`
	Pinned      bool            `db:"pinned" json:"pinned"`
	Payload     json.RawMessage `db:"payload" json:"payload,omitempty"` // rich content: map, flight, hotel, link preview
	Deleted     bool            `db:"deleted" json:"deleted"`
	EditedAt    *time.Time      `db:"edited_at" json:"edited_at,omitempty"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}

type Reaction struct {
	MessageID string    `db:"message_id" json:"message_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Type      string    `db:"type" json:"type"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ReactionGroup is the aggregated view returned to clients: one entry per
// reaction type with its count and the reacting users.
type ReactionGroup struct {
	Type  string         `db:"type" json:"type"`
	Count int            `db:"count" json:"count"`
	Users pq.StringArray `db:"users" json:"users"`
}

const (
	PriorityNormal = "normal"
	PriorityUrgent = "urgent"
)

type Broadcast struct {
	ID           string     `db:"id" json:"id"`
	TripID       string     `db:"trip_id" json:"trip_id"`
	AuthorID     string     `db:"author_id" json:"author_id"`
	Content      string     `db:"content" json:"content"`
	Priority     string     `db:"priority" json:"priority"`
	ScheduledFor *time.Time `db:"scheduled_for" json:"scheduled_for,omitempty"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}

type CalendarEvent struct {
	ID        string     `db:"id" json:"id"`
	TripID    string     `db:"trip_id" json:"trip_id"`
	Title     string     `db:"title" json:"title"`
	Location  *string    `db:"location" json:"location,omitempty"`
	StartsAt  time.Time  `db:"starts_at" json:"starts_at"`
	EndsAt    *time.Time `db:"ends_at" json:"ends_at,omitempty"`
	CreatedBy string     `db:"created_by" json:"created_by"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
}

type Task struct {
	ID         string     `db:"id" json:"id"`
	TripID     string     `db:"trip_id" json:"trip_id"`
	Title      string     `db:"title" json:"title"`
	AssignedTo *string    `db:"assigned_to" json:"assigned_to,omitempty"`
	DueAt      *time.Time `db:"due_at" json:"due_at,omitempty"`
	Done       bool       `db:"done" json:"done"`
	CreatedBy  string     `db:"created_by" json:"created_by"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
}

type Poll struct {
	ID        string    `db:"id" json:"id"`
	TripID    string    `db:"trip_id" json:"trip_id"`
	Question  string    `db:"question" json:"question"`
	CreatedBy string    `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PollOption struct {
	ID     string `db:"id" json:"id"`
	PollID string `db:"poll_id" json:"poll_id"`
	Label  string `db:"label" json:"label"`
	Votes  int    `db:"votes" json:"votes"`
}

// PaymentSplit records a shared expense. AmountCents avoids float money math.
type PaymentSplit struct {
	ID           string         `db:"id" json:"id"`
	TripID       string         `db:"trip_id" json:"trip_id"`
	PaidBy       string         `db:"paid_by" json:"paid_by"`
	AmountCents  int64          `db:"amount_cents" json:"amount_cents"`
	Currency     string         `db:"currency" json:"currency"`
	Description  string         `db:"description" json:"description"`
	Participants pq.StringArray `db:"participants" json:"participants"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

type PushSubscription struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Endpoint  string    `db:"endpoint" json:"endpoint"`
	P256dh    string    `db:"p256dh" json:"p256dh"`
	Auth      string    `db:"auth" json:"auth"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NotificationPref holds per-category channel opt-ins for one user. Rows are
// sparse: a missing row means the category defaults (in-app + push on).
type NotificationPref struct {
	UserID   string `db:"user_id" json:"user_id"`
	Category string `db:"category" json:"category"`
	InApp    bool   `db:"in_app" json:"in_app"`
	Push     bool   `db:"push" json:"push"`
	Email    bool   `db:"email" json:"email"`
	SMS      bool   `db:"sms" json:"sms"`
}

// NotificationSettings holds user-level settings that apply across categories.
// Quiet hours are minutes-from-midnight in the user's local time and may wrap
// past midnight (e.g. 22:00 - 07:00).
type NotificationSettings struct {
	UserID        string `db:"user_id" json:"user_id"`
	QuietEnabled  bool   `db:"quiet_enabled" json:"quiet_enabled"`
	QuietStartMin int    `db:"quiet_start_min" json:"quiet_start_min"`
	QuietEndMin   int    `db:"quiet_end_min" json:"quiet_end_min"`
	Timezone      string `db:"timezone" json:"timezone"`
}

type Notification struct {
	ID        string          `db:"id" json:"id"`
	UserID    string          `db:"user_id" json:"user_id"`
	TripID    string          `db:"trip_id" json:"trip_id"`
	Category  string          `db:"category" json:"category"`
	Title     string          `db:"title" json:"title"`
	Body      string          `db:"body" json:"body"`
	Data      json.RawMessage `db:"data" json:"data,omitempty"`
	ReadAt    *time.Time      `db:"read_at" json:"read_at,omitempty"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// ConciergeSession groups one user's exchanges with the AI concierge on a trip.
type ConciergeSession struct {
	ID        string    `db:"id" json:"id"` // Using UUID for external ID
	TripID    string    `db:"trip_id" json:"trip_id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Title     *string   `db:"title" json:"title"` // Nullable
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type ConciergeMessage struct {
	ID        string    `db:"id" json:"id"` // Using UUID for external ID
	SessionID string    `db:"session_id" json:"session_id"`
	Sender    string    `db:"sender" json:"sender"` // "user" or "model"
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

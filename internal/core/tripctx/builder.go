// Package tripctx assembles a prompt-ready snapshot of a trip's state for the
// AI concierge: members, recent chat, calendar, tasks, polls, payment splits
// and broadcasts, fetched in parallel and joined against a single batch user
// lookup.
package tripctx

import (
	"context"
	"fmt"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	recentMessageLimit   = 50
	recentBroadcastLimit = 10
)

// Store is the subset of the persistence layer the builder reads.
type Store interface {
	GetTrip(tripID string) (*store.Trip, error)
	ListMembers(tripID string) ([]store.TripMember, error)
	ListRecentStandardMessages(tripID string, limit int) ([]store.Message, error)
	ListCalendarEvents(tripID string) ([]store.CalendarEvent, error)
	ListTasks(tripID string) ([]store.Task, error)
	ListPolls(tripID string) ([]store.Poll, error)
	ListPollOptions(pollID string) ([]store.PollOption, error)
	ListPaymentSplits(tripID string) ([]store.PaymentSplit, error)
	ListRecentBroadcasts(tripID string, limit int) ([]store.Broadcast, error)
	GetUsersByIDs(ids []string) (map[string]store.User, error)
}

type Member struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type ChatLine struct {
	Author  string    `json:"author"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
}

type PollSummary struct {
	Question string             `json:"question"`
	Options  []store.PollOption `json:"options"`
}

// TripContext is the document handed to the concierge prompt. Private
// messages are never included; the store query filters them out.
type TripContext struct {
	TripID    string                `json:"trip_id"`
	TripName  string                `json:"trip_name"`
	Tier      string                `json:"tier"`
	Basecamp  *Basecamp             `json:"basecamp,omitempty"`
	Members   []Member              `json:"members"`
	Messages  []ChatLine            `json:"recent_messages"`
	Events    []store.CalendarEvent `json:"calendar_events"`
	Tasks     []store.Task          `json:"tasks"`
	Polls     []PollSummary         `json:"polls"`
	Splits    []store.PaymentSplit  `json:"payment_splits"`
	Bulletins []store.Broadcast     `json:"broadcasts"`
	BuiltAt   time.Time             `json:"built_at"`
}

type Basecamp struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

type Builder struct {
	store Store
	cache *ttlCache
}

func NewBuilder(s Store, ttl time.Duration) *Builder {
	return &Builder{
		store: s,
		cache: newTTLCache(ttl),
	}
}

// Build returns the trip context, serving from cache when a fresh snapshot
// exists. Writes to trip data should call Invalidate.
func (b *Builder) Build(ctx context.Context, tripID string) (*TripContext, error) {
	if cached, ok := b.cache.get(tripID); ok {
		return cached, nil
	}

	trip, err := b.store.GetTrip(tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trip: %w", err)
	}
	if trip == nil {
		return nil, fmt.Errorf("trip %s not found", tripID)
	}

	var (
		members    []store.TripMember
		messages   []store.Message
		events     []store.CalendarEvent
		tasks      []store.Task
		polls      []store.Poll
		splits     []store.PaymentSplit
		broadcasts []store.Broadcast
	)

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() (err error) { members, err = b.store.ListMembers(tripID); return })
	g.Go(func() (err error) {
		messages, err = b.store.ListRecentStandardMessages(tripID, recentMessageLimit)
		return
	})
	g.Go(func() (err error) { events, err = b.store.ListCalendarEvents(tripID); return })
	g.Go(func() (err error) { tasks, err = b.store.ListTasks(tripID); return })
	g.Go(func() (err error) { polls, err = b.store.ListPolls(tripID); return })
	g.Go(func() (err error) { splits, err = b.store.ListPaymentSplits(tripID); return })
	g.Go(func() (err error) {
		broadcasts, err = b.store.ListRecentBroadcasts(tripID, recentBroadcastLimit)
		return
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to fetch trip data: %w", err)
	}

	pollSummaries := make([]PollSummary, 0, len(polls))
	for _, p := range polls {
		options, err := b.store.ListPollOptions(p.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load poll options: %w", err)
		}
		pollSummaries = append(pollSummaries, PollSummary{Question: p.Question, Options: options})
	}

	// One batch pass resolves every display name referenced anywhere above.
	users, err := b.store.GetUsersByIDs(collectUserIDs(members, messages))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve member names: %w", err)
	}

	tc := &TripContext{
		TripID:    trip.ID,
		TripName:  trip.Name,
		Tier:      trip.Tier,
		Members:   make([]Member, 0, len(members)),
		Messages:  make([]ChatLine, 0, len(messages)),
		Events:    events,
		Tasks:     tasks,
		Polls:     pollSummaries,
		Splits:    splits,
		Bulletins: broadcasts,
		BuiltAt:   time.Now(),
	}
	if trip.BasecampLat != nil && trip.BasecampLng != nil {
		name := ""
		if trip.BasecampName != nil {
			name = *trip.BasecampName
		}
		tc.Basecamp = &Basecamp{Name: name, Lat: *trip.BasecampLat, Lng: *trip.BasecampLng}
	}
	for _, m := range members {
		tc.Members = append(tc.Members, Member{
			UserID:      m.UserID,
			DisplayName: displayName(users, m.UserID),
			Role:        m.Role,
		})
	}
	for _, msg := range messages {
		tc.Messages = append(tc.Messages, ChatLine{
			Author:  displayName(users, msg.AuthorID),
			Content: msg.Content,
			SentAt:  msg.CreatedAt,
		})
	}

	b.cache.put(tripID, tc)
	return tc, nil
}

// Invalidate drops the cached snapshot after a write to trip data.
func (b *Builder) Invalidate(tripID string) {
	b.cache.remove(tripID)
}

func collectUserIDs(members []store.TripMember, messages []store.Message) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, m := range members {
		if !seen[m.UserID] {
			seen[m.UserID] = true
			ids = append(ids, m.UserID)
		}
	}
	for _, msg := range messages {
		if !seen[msg.AuthorID] {
			seen[msg.AuthorID] = true
			ids = append(ids, msg.AuthorID)
		}
	}
	return ids
}

func displayName(users map[string]store.User, id string) string {
	if u, ok := users[id]; ok {
		return u.DisplayName
	}
	return "Former member"
}

package tripctx

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MeechYourGoals/chravel-server/internal/store"
)

type fakeStore struct {
	trip       *store.Trip
	members    []store.TripMember
	messages   []store.Message
	events     []store.CalendarEvent
	tasks      []store.Task
	polls      []store.Poll
	options    map[string][]store.PollOption
	splits     []store.PaymentSplit
	broadcasts []store.Broadcast
	users      map[string]store.User

	tripLoads atomic.Int64
}

func (f *fakeStore) GetTrip(tripID string) (*store.Trip, error) {
	f.tripLoads.Add(1)
	return f.trip, nil
}
func (f *fakeStore) ListMembers(tripID string) ([]store.TripMember, error) { return f.members, nil }
func (f *fakeStore) ListRecentStandardMessages(tripID string, limit int) ([]store.Message, error) {
	var out []store.Message
	for _, m := range f.messages {
		if m.PrivacyMode == store.PrivacyPrivate {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}
func (f *fakeStore) ListCalendarEvents(tripID string) ([]store.CalendarEvent, error) {
	return f.events, nil
}
func (f *fakeStore) ListTasks(tripID string) ([]store.Task, error) { return f.tasks, nil }
func (f *fakeStore) ListPolls(tripID string) ([]store.Poll, error) { return f.polls, nil }
func (f *fakeStore) ListPollOptions(pollID string) ([]store.PollOption, error) {
	return f.options[pollID], nil
}
func (f *fakeStore) ListPaymentSplits(tripID string) ([]store.PaymentSplit, error) {
	return f.splits, nil
}
func (f *fakeStore) ListRecentBroadcasts(tripID string, limit int) ([]store.Broadcast, error) {
	return f.broadcasts, nil
}
func (f *fakeStore) GetUsersByIDs(ids []string) (map[string]store.User, error) {
	out := make(map[string]store.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func lisbonTripStore() *fakeStore {
	name := "Hotel Mundial"
	lat, lng := 38.714, -9.136
	return &fakeStore{
		trip: &store.Trip{
			ID: "t1", Name: "Lisbon 2026", Tier: store.TierPro,
			BasecampName: &name, BasecampLat: &lat, BasecampLng: &lng,
		},
		members: []store.TripMember{
			{TripID: "t1", UserID: "u1", Role: "organizer"},
			{TripID: "t1", UserID: "u2", Role: "member"},
		},
		messages: []store.Message{
			{TripID: "t1", AuthorID: "u2", Content: "who is up for pasteis?", CreatedAt: time.Now()},
			{TripID: "t1", AuthorID: "gone", Content: "I left", CreatedAt: time.Now()},
			{TripID: "t1", AuthorID: "u1", Content: "surprise party details",
				PrivacyMode: store.PrivacyPrivate, CreatedAt: time.Now()},
		},
		polls:   []store.Poll{{ID: "p1", TripID: "t1", Question: "Dinner where?"}},
		options: map[string][]store.PollOption{"p1": {{ID: "o1", PollID: "p1", Label: "Ramiro"}}},
		users: map[string]store.User{
			"u1": {ID: "u1", DisplayName: "Maya"},
			"u2": {ID: "u2", DisplayName: "Jordan"},
		},
	}
}

func TestBuild_AssemblesSnapshot(t *testing.T) {
	fs := lisbonTripStore()
	b := NewBuilder(fs, time.Minute)

	tc, err := b.Build(context.Background(), "t1")
	require.NoError(t, err)

	require.Equal(t, "Lisbon 2026", tc.TripName)
	require.Equal(t, store.TierPro, tc.Tier)
	require.NotNil(t, tc.Basecamp)
	require.Equal(t, "Hotel Mundial", tc.Basecamp.Name)

	require.Len(t, tc.Members, 2)
	require.Equal(t, "Maya", tc.Members[0].DisplayName)

	require.Len(t, tc.Messages, 2, "private messages stay out of the snapshot")
	require.Equal(t, "Jordan", tc.Messages[0].Author)
	require.Equal(t, "Former member", tc.Messages[1].Author, "departed authors keep a placeholder name")

	require.Len(t, tc.Polls, 1)
	require.Equal(t, "Dinner where?", tc.Polls[0].Question)
	require.Len(t, tc.Polls[0].Options, 1)
}

func TestBuild_ServesFromCacheUntilInvalidated(t *testing.T) {
	fs := lisbonTripStore()
	b := NewBuilder(fs, time.Minute)

	_, err := b.Build(context.Background(), "t1")
	require.NoError(t, err)
	_, err = b.Build(context.Background(), "t1")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.tripLoads.Load(), "second build should hit the cache")

	b.Invalidate("t1")
	_, err = b.Build(context.Background(), "t1")
	require.NoError(t, err)
	require.EqualValues(t, 2, fs.tripLoads.Load())
}

func TestBuild_CacheExpires(t *testing.T) {
	fs := lisbonTripStore()
	b := NewBuilder(fs, time.Minute)

	current := time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	b.cache.now = func() time.Time { return current }

	_, err := b.Build(context.Background(), "t1")
	require.NoError(t, err)

	current = current.Add(30 * time.Second)
	_, err = b.Build(context.Background(), "t1")
	require.NoError(t, err)
	require.EqualValues(t, 1, fs.tripLoads.Load())

	current = current.Add(31 * time.Second)
	_, err = b.Build(context.Background(), "t1")
	require.NoError(t, err)
	require.EqualValues(t, 2, fs.tripLoads.Load(), "stale snapshot must be rebuilt")
}

func TestBuild_MissingTrip(t *testing.T) {
	b := NewBuilder(&fakeStore{}, time.Minute)
	_, err := b.Build(context.Background(), "nope")
	require.Error(t, err)
}

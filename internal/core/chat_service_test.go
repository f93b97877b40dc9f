package core

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/MeechYourGoals/chravel-server/internal/core/notify"
	"github.com/MeechYourGoals/chravel-server/internal/realtime"
	"github.com/MeechYourGoals/chravel-server/internal/store"
)

// fakeChatStore is an in-memory ChatStore sufficient for service tests.
type fakeChatStore struct {
	trips      map[string]*store.Trip
	members    map[string]map[string]*store.TripMember // tripID -> userID
	users      map[string]*store.User
	messages   map[string]*store.Message
	channels   map[string]*store.RoleChannel
	broadcasts []*store.Broadcast
	reactions  map[string]map[string]string // messageID -> userID -> type
	pinned     map[string]string            // tripID -> messageID
	seq        int
}

func newFakeChatStore() *fakeChatStore {
	return &fakeChatStore{
		trips:     make(map[string]*store.Trip),
		members:   make(map[string]map[string]*store.TripMember),
		users:     make(map[string]*store.User),
		messages:  make(map[string]*store.Message),
		channels:  make(map[string]*store.RoleChannel),
		reactions: make(map[string]map[string]string),
		pinned:    make(map[string]string),
	}
}

func (f *fakeChatStore) addTrip(id, tier string) {
	f.trips[id] = &store.Trip{ID: id, Name: id, Tier: tier}
	f.members[id] = make(map[string]*store.TripMember)
}

func (f *fakeChatStore) addMember(tripID, userID, role string) {
	f.members[tripID][userID] = &store.TripMember{TripID: tripID, UserID: userID, Role: role}
	f.users[userID] = &store.User{ID: userID, DisplayName: userID}
}

func (f *fakeChatStore) GetTrip(tripID string) (*store.Trip, error) { return f.trips[tripID], nil }

func (f *fakeChatStore) GetMember(tripID, userID string) (*store.TripMember, error) {
	if m, ok := f.members[tripID]; ok {
		return m[userID], nil
	}
	return nil, nil
}

func (f *fakeChatStore) GetUserByID(id string) (*store.User, error) { return f.users[id], nil }

func (f *fakeChatStore) ListMembers(tripID string) ([]store.TripMember, error) {
	var out []store.TripMember
	for _, m := range f.members[tripID] {
		out = append(out, *m)
	}
	return out, nil
}

func (f *fakeChatStore) CreateMessage(msg *store.Message) error {
	msg.ID = uuid.NewString()
	f.seq++
	msg.CreatedAt = time.Unix(1700000000, 0).Add(time.Duration(f.seq) * time.Second)
	if msg.ReplyTo != nil {
		if parent, ok := f.messages[*msg.ReplyTo]; ok {
			if parent.ThreadRoot != nil {
				msg.ThreadRoot = parent.ThreadRoot
			} else {
				msg.ThreadRoot = msg.ReplyTo
			}
		}
	}
	f.messages[msg.ID] = msg
	return nil
}

func (f *fakeChatStore) GetMessage(id string) (*store.Message, error) { return f.messages[id], nil }

func (f *fakeChatStore) ListMessages(q store.MessageQuery) ([]store.Message, error) {
	var cursor time.Time
	if q.Before != "" {
		anchor, ok := f.messages[q.Before]
		if !ok {
			return nil, nil
		}
		cursor = anchor.CreatedAt
	}

	var out []store.Message
	for _, m := range f.messages {
		if m.TripID != q.TripID || m.Deleted {
			continue
		}
		if (q.ChannelID == nil) != (m.ChannelID == nil) {
			continue
		}
		if q.ChannelID != nil && *q.ChannelID != *m.ChannelID {
			continue
		}
		if q.Before != "" && !m.CreatedAt.Before(cursor) {
			continue
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (f *fakeChatStore) ListThread(rootID string) ([]store.Message, error) {
	var out []store.Message
	for _, m := range f.messages {
		if m.ID == rootID || (m.ThreadRoot != nil && *m.ThreadRoot == rootID) {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeChatStore) UpdateMessageContent(id, authorID, content string) error {
	m, ok := f.messages[id]
	if !ok || m.AuthorID != authorID {
		return store.ErrMessageNotFound
	}
	now := time.Now()
	m.Content = content
	m.EditedAt = &now
	return nil
}

func (f *fakeChatStore) SoftDeleteMessage(id, authorID string) error {
	m, ok := f.messages[id]
	if !ok || m.AuthorID != authorID {
		return store.ErrMessageNotFound
	}
	m.Deleted = true
	return nil
}

func (f *fakeChatStore) PinMessage(tripID, messageID string) (string, error) {
	prev := f.pinned[tripID]
	if prev != "" {
		f.messages[prev].Pinned = false
	}
	f.pinned[tripID] = messageID
	f.messages[messageID].Pinned = true
	return prev, nil
}

func (f *fakeChatStore) UnpinMessage(tripID string) error {
	if id := f.pinned[tripID]; id != "" {
		f.messages[id].Pinned = false
	}
	delete(f.pinned, tripID)
	return nil
}

func (f *fakeChatStore) GetPinnedMessage(tripID string) (*store.Message, error) {
	if id := f.pinned[tripID]; id != "" {
		return f.messages[id], nil
	}
	return nil, nil
}

func (f *fakeChatStore) ToggleReaction(messageID, userID, typ string) (bool, error) {
	if f.reactions[messageID] == nil {
		f.reactions[messageID] = make(map[string]string)
	}
	if f.reactions[messageID][userID] == typ {
		delete(f.reactions[messageID], userID)
		return false, nil
	}
	f.reactions[messageID][userID] = typ
	return true, nil
}

func (f *fakeChatStore) GetReactionGroups(messageID string) ([]store.ReactionGroup, error) {
	byType := make(map[string][]string)
	for userID, typ := range f.reactions[messageID] {
		byType[typ] = append(byType[typ], userID)
	}
	var out []store.ReactionGroup
	for typ, users := range byType {
		out = append(out, store.ReactionGroup{Type: typ, Count: len(users), Users: pq.StringArray(users)})
	}
	return out, nil
}

func (f *fakeChatStore) CreateRoleChannel(tripID, name, role, createdBy string) (*store.RoleChannel, error) {
	c := &store.RoleChannel{ID: uuid.NewString(), TripID: tripID, Name: name, Role: role, CreatedBy: createdBy}
	f.channels[c.ID] = c
	return c, nil
}

func (f *fakeChatStore) GetRoleChannel(channelID string) (*store.RoleChannel, error) {
	return f.channels[channelID], nil
}

func (f *fakeChatStore) ListRoleChannels(tripID, role string) ([]store.RoleChannel, error) {
	var out []store.RoleChannel
	for _, c := range f.channels {
		if c.TripID != tripID {
			continue
		}
		if role == "organizer" || c.Role == role {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (f *fakeChatStore) CreateBroadcast(b *store.Broadcast) error {
	b.ID = uuid.NewString()
	b.CreatedAt = time.Now()
	if b.ScheduledFor == nil {
		now := time.Now()
		b.SentAt = &now
	}
	f.broadcasts = append(f.broadcasts, b)
	return nil
}

func (f *fakeChatStore) ListBroadcasts(tripID string) ([]store.Broadcast, error) {
	var out []store.Broadcast
	for _, b := range f.broadcasts {
		if b.TripID == tripID {
			out = append(out, *b)
		}
	}
	return out, nil
}

type publishedEvent struct {
	topic   string
	event   string
	payload interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (f *fakePublisher) Publish(topic, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, publishedEvent{topic, event, payload})
}

func (f *fakePublisher) byEvent(event string) []publishedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []publishedEvent
	for _, e := range f.events {
		if e.event == event {
			out = append(out, e)
		}
	}
	return out
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	done   chan struct{}
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{done: make(chan struct{}, 16)}
}

func (f *fakeNotifier) Dispatch(ctx context.Context, ev notify.Event) error {
	f.mu.Lock()
	f.events = append(f.events, ev)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

// wait blocks until one Dispatch call lands; dispatches happen on a goroutine.
func (f *fakeNotifier) wait(t *testing.T) notify.Event {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for notification dispatch")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[len(f.events)-1]
}

type fakeInvalidator struct {
	mu    sync.Mutex
	trips []string
}

func (f *fakeInvalidator) Invalidate(tripID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trips = append(f.trips, tripID)
}

func newTestChatService() (*ChatService, *fakeChatStore, *fakePublisher, *fakeNotifier) {
	fs := newFakeChatStore()
	fs.addTrip("t1", store.TierFree)
	fs.addMember("t1", "maya", "organizer")
	fs.addMember("t1", "jordan", "member")
	pub := &fakePublisher{}
	notifier := newFakeNotifier()
	svc := NewChatService(fs, pub, notifier, &fakeInvalidator{})
	return svc, fs, pub, notifier
}

func TestPostMessage_PublishesAndNotifies(t *testing.T) {
	svc, _, pub, notifier := newTestChatService()

	msg, err := svc.PostMessage(context.Background(), "t1", "maya", PostMessageInput{Content: "wheels up at 7"})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)
	require.Equal(t, store.PrivacyStandard, msg.PrivacyMode)

	events := pub.byEvent(realtime.EventMessageNew)
	require.Len(t, events, 1)
	require.Equal(t, "trip:t1", events[0].topic)

	ev := notifier.wait(t)
	require.Equal(t, notify.CategoryMessage, ev.Category)
	require.Equal(t, "maya", ev.ActorID)
}

func TestPostMessage_NonMemberRejected(t *testing.T) {
	svc, _, _, _ := newTestChatService()

	_, err := svc.PostMessage(context.Background(), "t1", "stranger", PostMessageInput{Content: "hi"})
	require.ErrorIs(t, err, ErrNotMember)
}

func TestPostMessage_InvalidPrivacyMode(t *testing.T) {
	svc, _, _, _ := newTestChatService()

	_, err := svc.PostMessage(context.Background(), "t1", "maya", PostMessageInput{Content: "x", PrivacyMode: "secret"})
	require.Error(t, err)
}

func TestThread_ReplyInheritsRoot(t *testing.T) {
	svc, _, _, notifier := newTestChatService()
	ctx := context.Background()

	root, err := svc.PostMessage(ctx, "t1", "maya", PostMessageInput{Content: "root"})
	require.NoError(t, err)
	notifier.wait(t)

	reply, err := svc.PostMessage(ctx, "t1", "jordan", PostMessageInput{Content: "first reply", ReplyTo: &root.ID})
	require.NoError(t, err)
	notifier.wait(t)

	nested, err := svc.PostMessage(ctx, "t1", "maya", PostMessageInput{Content: "nested", ReplyTo: &reply.ID})
	require.NoError(t, err)
	notifier.wait(t)
	require.Equal(t, root.ID, *nested.ThreadRoot, "replies to replies stay in the root thread")

	thread, err := svc.ListThread("t1", "jordan", root.ID)
	require.NoError(t, err)
	require.Len(t, thread, 3)
}

func TestPinMessage_ReplacesPreviousPin(t *testing.T) {
	svc, fs, pub, notifier := newTestChatService()
	ctx := context.Background()

	first, err := svc.PostMessage(ctx, "t1", "maya", PostMessageInput{Content: "itinerary v1"})
	require.NoError(t, err)
	notifier.wait(t)
	second, err := svc.PostMessage(ctx, "t1", "maya", PostMessageInput{Content: "itinerary v2"})
	require.NoError(t, err)
	notifier.wait(t)

	_, err = svc.PinMessage("t1", "jordan", first.ID)
	require.NoError(t, err)
	_, err = svc.PinMessage("t1", "jordan", second.ID)
	require.NoError(t, err)

	pinned, err := svc.PinnedMessage("t1", "maya")
	require.NoError(t, err)
	require.Equal(t, second.ID, pinned.ID)
	require.False(t, fs.messages[first.ID].Pinned, "only one message may be pinned per trip")

	events := pub.byEvent(realtime.EventMessagePinned)
	require.Len(t, events, 2)
}

func TestToggleReaction_AddThenRemove(t *testing.T) {
	svc, _, pub, notifier := newTestChatService()
	ctx := context.Background()

	msg, err := svc.PostMessage(ctx, "t1", "maya", PostMessageInput{Content: "beach day?"})
	require.NoError(t, err)
	notifier.wait(t)

	groups, err := svc.ToggleReaction("t1", "jordan", msg.ID, "thumbs_up")
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, 1, groups[0].Count)

	groups, err = svc.ToggleReaction("t1", "jordan", msg.ID, "thumbs_up")
	require.NoError(t, err)
	require.Empty(t, groups)

	require.Len(t, pub.byEvent(realtime.EventReaction), 2)
}

func TestCreateRoleChannel_TierGate(t *testing.T) {
	svc, fs, _, _ := newTestChatService()

	_, err := svc.CreateRoleChannel("t1", "maya", "Production", "crew")
	require.ErrorIs(t, err, ErrTierRequired)

	fs.trips["t1"].Tier = store.TierPro
	channel, err := svc.CreateRoleChannel("t1", "maya", "Production", "crew")
	require.NoError(t, err)
	require.Equal(t, "crew", channel.Role)
}

func TestCreateRoleChannel_OrganizerOnly(t *testing.T) {
	svc, fs, _, _ := newTestChatService()
	fs.trips["t1"].Tier = store.TierPro

	_, err := svc.CreateRoleChannel("t1", "jordan", "Production", "crew")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestChannelMessages_RoleVisibility(t *testing.T) {
	svc, fs, _, notifier := newTestChatService()
	fs.trips["t1"].Tier = store.TierPro
	fs.addMember("t1", "casey", "crew")
	ctx := context.Background()

	channel, err := svc.CreateRoleChannel("t1", "maya", "Production", "crew")
	require.NoError(t, err)

	// Crew can post into their channel, plain members cannot.
	_, err = svc.PostMessage(ctx, "t1", "casey", PostMessageInput{Content: "load-in at 6", ChannelID: &channel.ID})
	require.NoError(t, err)
	notifier.wait(t)

	_, err = svc.PostMessage(ctx, "t1", "jordan", PostMessageInput{Content: "hi", ChannelID: &channel.ID})
	require.ErrorIs(t, err, ErrForbidden)

	// Organizers see every channel.
	msgs, err := svc.ListMessages("t1", "maya", &channel.ID, "", 50)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	_, err = svc.ListMessages("t1", "jordan", &channel.ID, "", 50)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestCreateBroadcast_ImmediateDelivery(t *testing.T) {
	svc, _, pub, notifier := newTestChatService()

	b, err := svc.CreateBroadcast(context.Background(), "t1", "maya", "bus leaves at 9", store.PriorityUrgent, nil)
	require.NoError(t, err)
	require.NotNil(t, b.SentAt)

	require.Len(t, pub.byEvent(realtime.EventBroadcast), 1)
	ev := notifier.wait(t)
	require.Equal(t, notify.CategoryBroadcastUrgent, ev.Category)
}

func TestCreateBroadcast_ScheduledIsDeferred(t *testing.T) {
	svc, _, pub, _ := newTestChatService()
	later := time.Now().Add(time.Hour)

	b, err := svc.CreateBroadcast(context.Background(), "t1", "maya", "checkout reminder", "", &later)
	require.NoError(t, err)
	require.Nil(t, b.SentAt)
	require.Empty(t, pub.byEvent(realtime.EventBroadcast), "scheduled broadcasts wait for the scheduler")
}

func TestCreateBroadcast_OrganizerOnly(t *testing.T) {
	svc, _, _, _ := newTestChatService()

	_, err := svc.CreateBroadcast(context.Background(), "t1", "jordan", "hello", "", nil)
	require.ErrorIs(t, err, ErrForbidden)
}

func TestTripAuthorizer(t *testing.T) {
	fs := newFakeChatStore()
	fs.addTrip("t1", store.TierFree)
	fs.addMember("t1", "maya", "organizer")
	a := NewTripAuthorizer(fs)

	require.True(t, a.CanJoin("maya", "trip:t1"))
	require.False(t, a.CanJoin("stranger", "trip:t1"))
	require.False(t, a.CanJoin("maya", "trip:other"))
	require.False(t, a.CanJoin("maya", "weird-topic"))
}

func TestListMessages_KeysetPagination(t *testing.T) {
	svc, _, _, _ := newTestChatService()

	var ids []string
	for i := 0; i < 5; i++ {
		msg, err := svc.PostMessage(context.Background(), "t1", "jordan", PostMessageInput{
			Content: "update",
		})
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	first, err := svc.ListMessages("t1", "jordan", nil, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, ids[4], first[0].ID, "newest first")
	require.Equal(t, ids[3], first[1].ID)

	second, err := svc.ListMessages("t1", "jordan", nil, first[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, ids[2], second[0].ID, "pages are strictly older, no overlap")
	require.Equal(t, ids[1], second[1].ID)

	last, err := svc.ListMessages("t1", "jordan", nil, second[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, last, 1)
	require.Equal(t, ids[0], last[0].ID)
}

func newChannelFixture(t *testing.T) (*ChatService, *fakeChatStore, *fakePublisher, *fakeNotifier, *store.RoleChannel) {
	t.Helper()
	svc, fs, pub, notifier := newTestChatService()
	fs.trips["t1"].Tier = store.TierPro
	fs.addMember("t1", "casey", "crew")
	channel, err := svc.CreateRoleChannel("t1", "maya", "Production", "crew")
	require.NoError(t, err)
	return svc, fs, pub, notifier, channel
}

func TestListThread_ChannelRoleRequired(t *testing.T) {
	svc, _, _, notifier, channel := newChannelFixture(t)
	ctx := context.Background()

	root, err := svc.PostMessage(ctx, "t1", "casey", PostMessageInput{
		Content: "crew call moved to 5", ChannelID: &channel.ID,
	})
	require.NoError(t, err)
	notifier.wait(t)

	_, err = svc.PostMessage(ctx, "t1", "casey", PostMessageInput{
		Content: "bring the cases", ChannelID: &channel.ID, ReplyTo: &root.ID,
	})
	require.NoError(t, err)

	// Plain members cannot read the thread of a channel message.
	_, err = svc.ListThread("t1", "jordan", root.ID)
	require.ErrorIs(t, err, ErrForbidden)

	thread, err := svc.ListThread("t1", "casey", root.ID)
	require.NoError(t, err)
	require.Len(t, thread, 2)

	// Organizers see every channel.
	_, err = svc.ListThread("t1", "maya", root.ID)
	require.NoError(t, err)
}

func TestChannelMessages_PublishOnChannelTopic(t *testing.T) {
	svc, _, pub, notifier, channel := newChannelFixture(t)
	ctx := context.Background()

	msg, err := svc.PostMessage(ctx, "t1", "casey", PostMessageInput{
		Content: "crew-only detail", ChannelID: &channel.ID,
	})
	require.NoError(t, err)
	notifier.wait(t)

	wantTopic := "trip:t1:channel:" + channel.ID
	events := pub.byEvent(realtime.EventMessageNew)
	require.Len(t, events, 1)
	require.Equal(t, wantTopic, events[0].topic, "channel content stays off the trip-wide topic")

	_, err = svc.ToggleReaction("t1", "casey", msg.ID, "thumbs_up")
	require.NoError(t, err)
	reactions := pub.byEvent(realtime.EventReaction)
	require.Len(t, reactions, 1)
	require.Equal(t, wantTopic, reactions[0].topic)

	require.NoError(t, svc.DeleteMessage("t1", "casey", msg.ID))
	deletes := pub.byEvent(realtime.EventMessageDeleted)
	require.Len(t, deletes, 1)
	require.Equal(t, wantTopic, deletes[0].topic)
}

func TestToggleReaction_ChannelRoleRequired(t *testing.T) {
	svc, _, _, notifier, channel := newChannelFixture(t)

	msg, err := svc.PostMessage(context.Background(), "t1", "casey", PostMessageInput{
		Content: "crew vote", ChannelID: &channel.ID,
	})
	require.NoError(t, err)
	notifier.wait(t)

	_, err = svc.ToggleReaction("t1", "jordan", msg.ID, "thumbs_up")
	require.ErrorIs(t, err, ErrForbidden)
}

func TestChannelMessages_NotifyOnlyRoleMembers(t *testing.T) {
	svc, _, _, notifier, channel := newChannelFixture(t)

	_, err := svc.PostMessage(context.Background(), "t1", "casey", PostMessageInput{
		Content: "sound check at 4", ChannelID: &channel.ID,
	})
	require.NoError(t, err)

	ev := notifier.wait(t)
	require.Equal(t, notify.CategoryMessage, ev.Category)
	require.Equal(t, []string{"maya"}, ev.TargetIDs, "plain members are not notified about channel traffic")
}

func TestTripAuthorizer_ChannelTopics(t *testing.T) {
	fs := newFakeChatStore()
	fs.addTrip("t1", store.TierPro)
	fs.addMember("t1", "maya", "organizer")
	fs.addMember("t1", "jordan", "member")
	fs.addMember("t1", "casey", "crew")
	channel, err := fs.CreateRoleChannel("t1", "Production", "crew", "maya")
	require.NoError(t, err)

	a := NewTripAuthorizer(fs)
	topic := "trip:t1:channel:" + channel.ID

	require.True(t, a.CanJoin("casey", topic))
	require.True(t, a.CanJoin("maya", topic), "organizers may join any channel topic")
	require.False(t, a.CanJoin("jordan", topic))
	require.False(t, a.CanJoin("stranger", topic))
	require.False(t, a.CanJoin("casey", "trip:t1:channel:nope"))
}

func TestPostMessage_MentionNotification(t *testing.T) {
	svc, _, _, notifier := newTestChatService()

	_, err := svc.PostMessage(context.Background(), "t1", "maya", PostMessageInput{
		Content: "can you grab the keys, @jordan?",
	})
	require.NoError(t, err)

	ev := notifier.wait(t)
	require.Equal(t, notify.CategoryMention, ev.Category)
	require.Equal(t, []string{"jordan"}, ev.TargetIDs)
	require.Contains(t, ev.Title, "mentioned you")
}

func TestPinMessage_RepinPublishesNothing(t *testing.T) {
	svc, _, pub, _ := newTestChatService()
	ctx := context.Background()

	msg, err := svc.PostMessage(ctx, "t1", "maya", PostMessageInput{Content: "meet at the fountain"})
	require.NoError(t, err)

	_, err = svc.PinMessage("t1", "maya", msg.ID)
	require.NoError(t, err)
	_, err = svc.PinMessage("t1", "maya", msg.ID)
	require.NoError(t, err)

	require.Len(t, pub.byEvent(realtime.EventMessagePinned), 1, "re-pinning the current pin is a no-op")
}

func TestTruncate_KeepsValidUTF8(t *testing.T) {
	long := strings.Repeat("é", 100)
	got := truncate(long, 140)
	require.True(t, utf8.ValidString(got))
	require.True(t, strings.HasSuffix(got, "..."))
	require.LessOrEqual(t, len(got), 140)

	require.Equal(t, "short", truncate("short", 140))
}

package core

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/MeechYourGoals/chravel-server/internal/core/tripctx"
	"github.com/MeechYourGoals/chravel-server/internal/store"
)

// conciergeFixtureStore backs both the concierge session store and the trip
// context builder in tests.
type conciergeFixtureStore struct {
	mu       sync.Mutex
	trip     *store.Trip
	members  map[string]*store.TripMember
	sessions map[string]*store.ConciergeSession
	messages map[string][]store.ConciergeMessage
	titles   map[string]string
}

func newConciergeFixtureStore() *conciergeFixtureStore {
	return &conciergeFixtureStore{
		trip:     &store.Trip{ID: "t1", Name: "Lisbon 2026", Tier: store.TierFree},
		members:  map[string]*store.TripMember{"maya": {TripID: "t1", UserID: "maya", Role: "organizer"}},
		sessions: make(map[string]*store.ConciergeSession),
		messages: make(map[string][]store.ConciergeMessage),
		titles:   make(map[string]string),
	}
}

func (f *conciergeFixtureStore) GetMember(tripID, userID string) (*store.TripMember, error) {
	return f.members[userID], nil
}

func (f *conciergeFixtureStore) CreateConciergeSession(tripID, userID string) (*store.ConciergeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &store.ConciergeSession{ID: uuid.NewString(), TripID: tripID, UserID: userID, CreatedAt: time.Now()}
	f.sessions[s.ID] = s
	return s, nil
}

func (f *conciergeFixtureStore) GetConciergeSession(sessionID, userID string) (*store.ConciergeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.sessions[sessionID]
	if s == nil || s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (f *conciergeFixtureStore) ListConciergeSessions(tripID, userID string) ([]store.ConciergeSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []store.ConciergeSession
	for _, s := range f.sessions {
		if s.TripID == tripID && s.UserID == userID {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *conciergeFixtureStore) UpdateConciergeSessionTitle(sessionID, userID, title string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.titles[sessionID] = title
	if s := f.sessions[sessionID]; s != nil {
		s.Title = &title
	}
	return nil
}

func (f *conciergeFixtureStore) CreateConciergeMessage(msg *store.ConciergeMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now()
	f.messages[msg.SessionID] = append(f.messages[msg.SessionID], *msg)
	return nil
}

func (f *conciergeFixtureStore) GetConciergeMessages(sessionID string, limit int) ([]store.ConciergeMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages[sessionID], nil
}

func (f *conciergeFixtureStore) GetLastNConciergeMessages(sessionID string, n int) ([]store.ConciergeMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[sessionID]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return msgs, nil
}

// tripctx.Store methods.
func (f *conciergeFixtureStore) GetTrip(tripID string) (*store.Trip, error) { return f.trip, nil }
func (f *conciergeFixtureStore) ListMembers(tripID string) ([]store.TripMember, error) {
	var out []store.TripMember
	for _, m := range f.members {
		out = append(out, *m)
	}
	return out, nil
}
func (f *conciergeFixtureStore) ListRecentStandardMessages(tripID string, limit int) ([]store.Message, error) {
	return nil, nil
}
func (f *conciergeFixtureStore) ListCalendarEvents(tripID string) ([]store.CalendarEvent, error) {
	return nil, nil
}
func (f *conciergeFixtureStore) ListTasks(tripID string) ([]store.Task, error) { return nil, nil }
func (f *conciergeFixtureStore) ListPolls(tripID string) ([]store.Poll, error) { return nil, nil }
func (f *conciergeFixtureStore) ListPollOptions(pollID string) ([]store.PollOption, error) {
	return nil, nil
}
func (f *conciergeFixtureStore) ListPaymentSplits(tripID string) ([]store.PaymentSplit, error) {
	return nil, nil
}
func (f *conciergeFixtureStore) ListRecentBroadcasts(tripID string, limit int) ([]store.Broadcast, error) {
	return nil, nil
}
func (f *conciergeFixtureStore) GetUsersByIDs(ids []string) (map[string]store.User, error) {
	return map[string]store.User{"maya": {ID: "maya", DisplayName: "Maya"}}, nil
}

type fakeLLM struct {
	mu         sync.Mutex
	answer     string
	err        error
	title      string
	lastPrompt string
	calls      int
	dispatch   *genai.FunctionCall // when set, invoke the dispatcher with this call
}

func (f *fakeLLM) ConciergeCompletion(ctx context.Context, history []*genai.Content, tools []*genai.Tool, dispatch ToolDispatchFunc) (string, error) {
	f.mu.Lock()
	f.calls++
	if len(history) > 0 {
		last := history[len(history)-1]
		if text, ok := last.Parts[0].(genai.Text); ok {
			f.lastPrompt = string(text)
		}
	}
	call := f.dispatch
	f.mu.Unlock()

	if call != nil {
		if _, err := dispatch(ctx, *call); err != nil {
			return "", err
		}
	}
	return f.answer, f.err
}

func (f *fakeLLM) GenerateTitleForChat(ctx context.Context, chatSummary string) (string, error) {
	if f.title == "" {
		return "Trip questions", nil
	}
	return f.title, nil
}

func newConciergeFixture(llm *fakeLLM) (*ConciergeService, *conciergeFixtureStore) {
	fs := newConciergeFixtureStore()
	builder := tripctx.NewBuilder(fs, time.Minute)
	tools := NewToolRegistry(&fakeToolStore{trip: fs.trip}, nil)
	svc := NewConciergeService(fs, llm, builder, tools, 600)
	return svc, fs
}

func TestAsk_AnswersAndPersistsBothTurns(t *testing.T) {
	llm := &fakeLLM{answer: "Ramiro is the classic choice."}
	svc, fs := newConciergeFixture(llm)

	resp, err := svc.Ask(context.Background(), "t1", "maya", "", "Where should we eat seafood?")
	require.NoError(t, err)
	require.Equal(t, "Ramiro is the classic choice.", resp.Message.Content)
	require.Equal(t, "model", resp.Message.Sender)

	msgs := fs.messages[resp.Session.ID]
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Sender)
	require.Equal(t, "Where should we eat seafood?", msgs[0].Content)
}

func TestAsk_PromptCarriesTripContext(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	svc, _ := newConciergeFixture(llm)

	_, err := svc.Ask(context.Background(), "t1", "maya", "", "What's the plan?")
	require.NoError(t, err)

	require.Contains(t, llm.lastPrompt, "Lisbon 2026")
	require.Contains(t, llm.lastPrompt, "What's the plan?")
	require.True(t, strings.Contains(llm.lastPrompt, "CONTEXT START"))
}

func TestAsk_NonMember(t *testing.T) {
	svc, _ := newConciergeFixture(&fakeLLM{answer: "ok"})

	_, err := svc.Ask(context.Background(), "t1", "stranger", "", "hi")
	require.ErrorIs(t, err, ErrNotMember)
}

func TestAsk_RateLimited(t *testing.T) {
	fs := newConciergeFixtureStore()
	builder := tripctx.NewBuilder(fs, time.Minute)
	svc := NewConciergeService(fs, &fakeLLM{answer: "ok"}, builder, NewToolRegistry(&fakeToolStore{}, nil), 1)

	// Burst allows a few requests, then the per-minute limit kicks in.
	var limited bool
	for i := 0; i < 10; i++ {
		_, err := svc.Ask(context.Background(), "t1", "maya", "", "q")
		if err != nil {
			require.ErrorIs(t, err, ErrRateLimited)
			limited = true
			break
		}
	}
	require.True(t, limited, "sustained traffic should trip the limiter")
}

func TestAsk_ModelErrorYieldsFallbackReply(t *testing.T) {
	llm := &fakeLLM{err: context.DeadlineExceeded}
	svc, fs := newConciergeFixture(llm)

	resp, err := svc.Ask(context.Background(), "t1", "maya", "", "hello?")
	require.NoError(t, err, "a model hiccup must not surface as a request failure")
	require.Contains(t, resp.Message.Content, "sorry")

	require.Len(t, fs.messages[resp.Session.ID], 2, "the question is kept even when the model fails")
}

func TestAsk_ReusesSession(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	svc, fs := newConciergeFixture(llm)

	first, err := svc.Ask(context.Background(), "t1", "maya", "", "one")
	require.NoError(t, err)
	second, err := svc.Ask(context.Background(), "t1", "maya", first.Session.ID, "two")
	require.NoError(t, err)

	require.Equal(t, first.Session.ID, second.Session.ID)
	require.Len(t, fs.messages[first.Session.ID], 4)
}

func TestAsk_ForeignSessionGetsFreshOne(t *testing.T) {
	llm := &fakeLLM{answer: "ok"}
	svc, fs := newConciergeFixture(llm)
	fs.members["jordan"] = &store.TripMember{TripID: "t1", UserID: "jordan", Role: "member"}

	mine, err := svc.Ask(context.Background(), "t1", "maya", "", "one")
	require.NoError(t, err)

	theirs, err := svc.Ask(context.Background(), "t1", "jordan", mine.Session.ID, "two")
	require.NoError(t, err)
	require.NotEqual(t, mine.Session.ID, theirs.Session.ID, "sessions are private to their owner")
}

func TestAsk_ToolCallsInvalidateContextCache(t *testing.T) {
	llm := &fakeLLM{
		answer:   "Task created.",
		dispatch: &genai.FunctionCall{Name: "create_task", Args: map[string]interface{}{"title": "Pack sunscreen"}},
	}
	svc, _ := newConciergeFixture(llm)

	_, err := svc.Ask(context.Background(), "t1", "maya", "", "remind us to pack sunscreen")
	require.NoError(t, err)
	// A second ask rebuilds the context instead of serving the cached snapshot.
	_, err = svc.Ask(context.Background(), "t1", "maya", "", "what's on the list?")
	require.NoError(t, err)
	require.Equal(t, 2, llm.calls)
}

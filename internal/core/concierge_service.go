package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/core/tripctx"
	"github.com/MeechYourGoals/chravel-server/internal/store"
	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
)

var (
	ErrNotMember   = errors.New("not a member of this trip")
	ErrRateLimited = errors.New("concierge rate limit exceeded")
)

// historyWindow caps how much session history rides along on each turn.
const historyWindow = 10

type ConciergeStore interface {
	GetMember(tripID, userID string) (*store.TripMember, error)
	CreateConciergeSession(tripID, userID string) (*store.ConciergeSession, error)
	GetConciergeSession(sessionID, userID string) (*store.ConciergeSession, error)
	ListConciergeSessions(tripID, userID string) ([]store.ConciergeSession, error)
	UpdateConciergeSessionTitle(sessionID, userID, title string) error
	CreateConciergeMessage(msg *store.ConciergeMessage) error
	GetConciergeMessages(sessionID string, limit int) ([]store.ConciergeMessage, error)
	GetLastNConciergeMessages(sessionID string, n int) ([]store.ConciergeMessage, error)
}

type conciergeLLM interface {
	ConciergeCompletion(ctx context.Context, history []*genai.Content, tools []*genai.Tool, dispatch ToolDispatchFunc) (string, error)
	GenerateTitleForChat(ctx context.Context, chatSummary string) (string, error)
}

type ConciergeService struct {
	store   ConciergeStore
	llm     conciergeLLM
	builder *tripctx.Builder
	tools   *ToolRegistry

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
	rpm       int
}

func NewConciergeService(s ConciergeStore, llm conciergeLLM, builder *tripctx.Builder, tools *ToolRegistry, rpm int) *ConciergeService {
	if rpm <= 0 {
		rpm = 10
	}
	return &ConciergeService{
		store:    s,
		llm:      llm,
		builder:  builder,
		tools:    tools,
		limiters: make(map[string]*rate.Limiter),
		rpm:      rpm,
	}
}

type AskResponse struct {
	Session *store.ConciergeSession `json:"session"`
	Message *store.ConciergeMessage `json:"message"`
}

// Ask runs one concierge turn: persist the question, assemble trip context
// and session history, let Gemini answer (calling tools as needed), persist
// and return the reply.
func (s *ConciergeService) Ask(ctx context.Context, tripID, userID, sessionID, question string) (*AskResponse, error) {
	member, err := s.store.GetMember(tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}
	if member == nil {
		return nil, ErrNotMember
	}
	if !s.limiter(userID).Allow() {
		return nil, ErrRateLimited
	}

	session, err := s.resolveSession(tripID, userID, sessionID)
	if err != nil {
		return nil, err
	}

	userMsg := &store.ConciergeMessage{SessionID: session.ID, Sender: "user", Content: question}
	if err := s.store.CreateConciergeMessage(userMsg); err != nil {
		return nil, fmt.Errorf("failed to store user message: %w", err)
	}

	answer, err := s.generate(ctx, session, tripID, userID, question)
	if err != nil {
		// The question is stored; give the user a recoverable reply rather
		// than surfacing a 500 for a model hiccup.
		log.Printf("Error generating concierge response for session %s: %v", session.ID, err)
		answer = "I'm sorry, I encountered an error while processing your request."
	}

	modelMsg := &store.ConciergeMessage{SessionID: session.ID, Sender: "model", Content: answer}
	if err := s.store.CreateConciergeMessage(modelMsg); err != nil {
		return nil, fmt.Errorf("failed to store model message: %w", err)
	}

	if session.Title == nil || *session.Title == "" {
		go s.generateAndSaveTitle(session.ID, userID, question)
	}

	return &AskResponse{Session: session, Message: modelMsg}, nil
}

func (s *ConciergeService) generate(ctx context.Context, session *store.ConciergeSession, tripID, userID, question string) (string, error) {
	tc, err := s.builder.Build(ctx, tripID)
	if err != nil {
		return "", fmt.Errorf("failed to build trip context: %w", err)
	}
	contextJSON, err := json.Marshal(tc)
	if err != nil {
		return "", fmt.Errorf("failed to encode trip context: %w", err)
	}

	historyMsgs, err := s.store.GetLastNConciergeMessages(session.ID, historyWindow)
	if err != nil {
		log.Printf("Error getting session history for %s: %v. Proceeding without history.", session.ID, err)
		historyMsgs = nil
	}

	var history []*genai.Content
	for _, msg := range historyMsgs {
		if msg.Content == question && msg.Sender == "user" {
			continue // the current turn is appended below with context attached
		}
		history = append(history, &genai.Content{
			Role:  msg.Sender,
			Parts: []genai.Part{genai.Text(msg.Content)},
		})
	}

	finalUserContent := fmt.Sprintf(
		"Current trip context:\n\n--- CONTEXT START ---\n%s\n--- CONTEXT END ---\n\nNow, please answer my question: %s",
		contextJSON, question)
	history = append(history, &genai.Content{
		Role:  "user",
		Parts: []genai.Part{genai.Text(finalUserContent)},
	})

	toolsUsed := false
	dispatch := func(ctx context.Context, call genai.FunctionCall) (map[string]interface{}, error) {
		toolsUsed = true
		return s.tools.Dispatch(ctx, tripID, userID, call)
	}

	answer, err := s.llm.ConciergeCompletion(ctx, history, s.tools.Declarations(), dispatch)
	if toolsUsed {
		// Tool calls write trip data; the cached snapshot is stale.
		s.builder.Invalidate(tripID)
	}
	return answer, err
}

func (s *ConciergeService) resolveSession(tripID, userID, sessionID string) (*store.ConciergeSession, error) {
	if sessionID != "" {
		session, err := s.store.GetConciergeSession(sessionID, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to get session: %w", err)
		}
		if session != nil && session.TripID == tripID {
			return session, nil
		}
	}
	session, err := s.store.CreateConciergeSession(tripID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (s *ConciergeService) ListSessions(tripID, userID string) ([]store.ConciergeSession, error) {
	member, err := s.store.GetMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotMember
	}
	return s.store.ListConciergeSessions(tripID, userID)
}

func (s *ConciergeService) SessionMessages(tripID, userID, sessionID string) (*store.ConciergeSession, []store.ConciergeMessage, error) {
	session, err := s.store.GetConciergeSession(sessionID, userID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.TripID != tripID {
		return nil, nil, nil
	}
	messages, err := s.store.GetConciergeMessages(sessionID, 100)
	if err != nil {
		return nil, nil, err
	}
	return session, messages, nil
}

func (s *ConciergeService) generateAndSaveTitle(sessionID, userID, basisContent string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	title, err := s.llm.GenerateTitleForChat(ctx, basisContent)
	if err != nil {
		log.Printf("Failed to generate title for session %s: %v", sessionID, err)
		return
	}
	title = strings.Trim(title, "\"'\n\r\t .")

	if err := s.store.UpdateConciergeSessionTitle(sessionID, userID, title); err != nil {
		log.Printf("Failed to save generated title '%s' for session %s: %v", title, sessionID, err)
	}
}

func (s *ConciergeService) limiter(userID string) *rate.Limiter {
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	limiter, ok := s.limiters[userID]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.rpm)), 3)
		s.limiters[userID] = limiter
	}
	return limiter
}

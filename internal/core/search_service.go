package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/store"
)

const (
	searchCandidateLimit = 200
	searchDefaultTopK    = 5
	// Minimum similarity for a message to count as a match at all.
	searchSimilarityThreshold = 0.6
	// Upper bound on cached message embeddings across all trips.
	searchEmbeddingCacheSize = 4096
)

type SearchStore interface {
	GetMember(tripID, userID string) (*store.TripMember, error)
	ListRecentStandardMessages(tripID string, limit int) ([]store.Message, error)
	GetUsersByIDs(ids []string) (map[string]store.User, error)
}

type embedder interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, error)
}

// SearchService answers "find that message about X" semantically: the query
// and candidate messages are embedded via Gemini and ranked by cosine
// similarity. Message embeddings are cached in memory by message id since
// message content is immutable apart from edits, which change the id's
// edited_at and bust the entry.
type SearchService struct {
	store SearchStore
	llm   embedder

	mu       sync.Mutex
	cache    map[string]messageEmbedding
	cacheCap int
}

type messageEmbedding struct {
	vector   []float32
	editedAt *time.Time
}

type SearchResult struct {
	Message    store.Message `json:"message"`
	Author     string        `json:"author"`
	Similarity float32       `json:"similarity"`
}

func NewSearchService(s SearchStore, llm embedder) *SearchService {
	return &SearchService{
		store:    s,
		llm:      llm,
		cache:    make(map[string]messageEmbedding),
		cacheCap: searchEmbeddingCacheSize,
	}
}

func (s *SearchService) SearchMessages(ctx context.Context, tripID, userID, query string, topK int) ([]SearchResult, error) {
	member, err := s.store.GetMember(tripID, userID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, ErrNotMember
	}
	if topK <= 0 || topK > 20 {
		topK = searchDefaultTopK
	}

	queryEmbedding, err := s.llm.GetEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	candidates, err := s.store.ListRecentStandardMessages(tripID, searchCandidateLimit)
	if err != nil {
		return nil, err
	}

	type scored struct {
		msg        store.Message
		similarity float32
	}
	matches := make([]scored, 0, len(candidates))
	for _, msg := range candidates {
		if msg.Content == "" {
			continue
		}
		vec, err := s.embeddingFor(ctx, msg)
		if err != nil {
			// One failed embedding should not sink the search.
			continue
		}
		similarity, err := cosineSimilarity(queryEmbedding, vec)
		if err != nil {
			continue
		}
		if similarity >= searchSimilarityThreshold {
			matches = append(matches, scored{msg: msg, similarity: similarity})
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].similarity > matches[j].similarity
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.msg.AuthorID)
	}
	users, err := s.store.GetUsersByIDs(ids)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(matches))
	for _, m := range matches {
		author := ""
		if u, ok := users[m.msg.AuthorID]; ok {
			author = u.DisplayName
		}
		results = append(results, SearchResult{Message: m.msg, Author: author, Similarity: m.similarity})
	}
	return results, nil
}

func (s *SearchService) embeddingFor(ctx context.Context, msg store.Message) ([]float32, error) {
	s.mu.Lock()
	entry, ok := s.cache[msg.ID]
	s.mu.Unlock()
	if ok && equalEditStamp(entry.editedAt, msg.EditedAt) {
		return entry.vector, nil
	}

	vec, err := s.llm.GetEmbedding(ctx, msg.Content)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	// Keep the cache bounded; evicted entries are cheap to re-embed.
	for len(s.cache) >= s.cacheCap {
		for id := range s.cache {
			delete(s.cache, id)
			break
		}
	}
	s.cache[msg.ID] = messageEmbedding{vector: vec, editedAt: msg.EditedAt}
	s.mu.Unlock()
	return vec, nil
}

func equalEditStamp(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func cosineSimilarity(a, b []float32) (float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, fmt.Errorf("vectors cannot be empty")
	}
	if len(a) != len(b) {
		return 0, fmt.Errorf("vectors must have the same dimension")
	}
	var dot, magA, magB float32
	for i := range a {
		dot += a[i] * b[i]
		magA += a[i] * a[i]
		magB += b[i] * b[i]
	}
	if magA == 0 || magB == 0 {
		return 0, nil
	}
	return dot / (float32(math.Sqrt(float64(magA))) * float32(math.Sqrt(float64(magB)))), nil
}

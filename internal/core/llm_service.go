package core

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/MeechYourGoals/chravel-server/internal/config"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const (
	defaultChatModelName      = "gemini-1.5-flash-latest"
	defaultEmbeddingModelName = "text-embedding-004"
	defaultTitleModelName     = "gemini-1.5-flash-latest"

	// Bound on tool-call round trips in a single concierge turn.
	maxToolRounds = 4

	conciergeSystemInstruction = "You are the Chravel concierge, a travel assistant embedded in a group trip chat. " +
		"Answer questions using the trip context provided: members, itinerary, tasks, polls, payment splits and recent messages. " +
		"Use the available tools to create tasks, calendar events, polls and payment splits when asked, and to search for places. " +
		"If the trip context does not contain the answer and no tool can find it, say so plainly. " +
		"Keep answers concise and concrete. Do not make up trip details."

	titleSystemInstruction = "You are a helpful assistant that generates concise titles for chat conversations. " +
		"The title should be 3-5 words maximum. Just return the title itself, nothing else."
)

type LLMService struct {
	client *genai.Client
}

func NewLLMService() *LLMService {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(config.AppConfig.GeminiAPIKey))
	if err != nil {
		log.Fatalf("Failed to create GenAI client: %v", err)
	}

	return &LLMService{
		client: client,
	}
}

func (s *LLMService) Close() {
	if s.client != nil {
		if err := s.client.Close(); err != nil {
			log.Printf("Error closing GenAI client: %v", err)
		}
	}
}

func (s *LLMService) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	em := s.client.EmbeddingModel(defaultEmbeddingModelName)
	res, err := em.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding request failed: %w", err)
	}

	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding data received from gemini")
	}
	return res.Embedding.Values, nil
}

// ToolDispatchFunc executes one model-requested function call and returns the
// result the model should see.
type ToolDispatchFunc func(ctx context.Context, call genai.FunctionCall) (map[string]interface{}, error)

// ConciergeCompletion runs a tool-calling chat turn: the last entry of history
// must be the user turn. Function calls requested by the model are executed
// through dispatch and their results fed back until the model produces text or
// the round bound is hit.
func (s *LLMService) ConciergeCompletion(ctx context.Context, history []*genai.Content, tools []*genai.Tool, dispatch ToolDispatchFunc) (string, error) {
	if len(history) == 0 {
		return "", fmt.Errorf("prompt history is empty for chat completion")
	}
	lastUserMessage := history[len(history)-1]
	if lastUserMessage.Role != "user" {
		return "", fmt.Errorf("last message in history is not from 'user', cannot proceed with chat completion")
	}

	model := s.client.GenerativeModel(defaultChatModelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(conciergeSystemInstruction)},
	}
	model.Tools = tools

	chatSession := model.StartChat()
	chatSession.History = history[:len(history)-1]

	resp, err := chatSession.SendMessage(ctx, lastUserMessage.Parts...)
	if err != nil {
		return "", fmt.Errorf("gemini chat SendMessage failed: %w", err)
	}

	for round := 0; round < maxToolRounds; round++ {
		calls := functionCalls(resp)
		if len(calls) == 0 {
			break
		}

		responses := make([]genai.Part, 0, len(calls))
		for _, call := range calls {
			result, err := dispatch(ctx, call)
			if err != nil {
				log.Printf("Tool %s failed: %v", call.Name, err)
				result = map[string]interface{}{"error": err.Error()}
			}
			responses = append(responses, genai.FunctionResponse{
				Name:     call.Name,
				Response: result,
			})
		}

		resp, err = chatSession.SendMessage(ctx, responses...)
		if err != nil {
			return "", fmt.Errorf("gemini tool response SendMessage failed: %w", err)
		}
	}

	text := responseText(resp)
	if text == "" {
		log.Println("Gemini response was empty or had no valid candidates/parts.")
		return "I'm sorry, I couldn't generate a response at this time. Please try again.", nil
	}
	return text, nil
}

func functionCalls(resp *genai.GenerateContentResponse) []genai.FunctionCall {
	var calls []genai.FunctionCall
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if call, ok := part.(genai.FunctionCall); ok {
			calls = append(calls, call)
		}
	}
	return calls
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			b.WriteString(string(txt))
		}
	}
	return b.String()
}

func (s *LLMService) GenerateTitleForChat(ctx context.Context, chatSummary string) (string, error) {
	model := s.client.GenerativeModel(defaultTitleModelName)

	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(titleSystemInstruction)},
	}

	temp := float32(0.3)
	maxTokens := int32(20)

	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: &maxTokens,
		Temperature:     &temp,
	}

	userPromptForTitle := fmt.Sprintf("Generate a very concise title (3-5 words maximum) for a conversation that starts with or is about: \"%s\".", chatSummary)

	resp, err := model.GenerateContent(ctx, genai.Text(userPromptForTitle))
	if err != nil {
		return "", fmt.Errorf("gemini title generation request failed: %w", err)
	}

	title := responseText(resp)
	if title == "" {
		return "Chat", fmt.Errorf("LLM did not generate a title (empty response)")
	}
	return strings.Trim(title, "\"'\n\r\t ."), nil
}

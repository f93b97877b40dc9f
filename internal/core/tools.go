package core

import (
	"context"
	"fmt"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/places"
	"github.com/MeechYourGoals/chravel-server/internal/store"
	"github.com/google/generative-ai-go/genai"
	"github.com/lib/pq"
)

// ToolStore is the slice of the persistence layer concierge tools may write.
type ToolStore interface {
	GetTrip(tripID string) (*store.Trip, error)
	CreateTask(t *store.Task) error
	CreateCalendarEvent(ev *store.CalendarEvent) error
	CreatePoll(p *store.Poll, optionLabels []string) ([]store.PollOption, error)
	CreatePaymentSplit(ps *store.PaymentSplit) error
}

// PlaceSearcher is satisfied by the places client.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, lat, lng *float64) ([]places.Place, error)
}

// ToolRegistry holds the function declarations advertised to Gemini and
// executes the calls the model makes against trip data.
type ToolRegistry struct {
	store  ToolStore
	places PlaceSearcher
}

func NewToolRegistry(s ToolStore, p PlaceSearcher) *ToolRegistry {
	return &ToolRegistry{store: s, places: p}
}

func (r *ToolRegistry) Declarations() []*genai.Tool {
	return []*genai.Tool{{
		FunctionDeclarations: []*genai.FunctionDeclaration{
			{
				Name:        "create_task",
				Description: "Create a to-do task for the trip, optionally assigned to a member and with a due date.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":       {Type: genai.TypeString, Description: "Short task title"},
						"assigned_to": {Type: genai.TypeString, Description: "Member user id to assign, if any"},
						"due_at":      {Type: genai.TypeString, Description: "Due date in RFC 3339, if any"},
					},
					Required: []string{"title"},
				},
			},
			{
				Name:        "add_calendar_event",
				Description: "Add an event to the trip calendar.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"title":    {Type: genai.TypeString, Description: "Event title"},
						"location": {Type: genai.TypeString, Description: "Where the event happens"},
						"starts_at": {
							Type: genai.TypeString, Description: "Start time in RFC 3339",
						},
						"ends_at": {Type: genai.TypeString, Description: "End time in RFC 3339, if known"},
					},
					Required: []string{"title", "starts_at"},
				},
			},
			{
				Name:        "create_poll",
				Description: "Create a poll for trip members to vote on.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"question": {Type: genai.TypeString, Description: "The poll question"},
						"options": {
							Type:        genai.TypeArray,
							Description: "Between two and ten answer options",
							Items:       &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"question", "options"},
				},
			},
			{
				Name:        "record_payment_split",
				Description: "Record a shared expense split between trip members.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"description":  {Type: genai.TypeString, Description: "What the expense was for"},
						"amount_cents": {Type: genai.TypeInteger, Description: "Total amount in cents"},
						"currency":     {Type: genai.TypeString, Description: "ISO currency code, default USD"},
						"participants": {
							Type:        genai.TypeArray,
							Description: "User ids sharing the expense",
							Items:       &genai.Schema{Type: genai.TypeString},
						},
					},
					Required: []string{"description", "amount_cents"},
				},
			},
			{
				Name:        "search_places",
				Description: "Search for places (restaurants, sights, hotels) near the trip basecamp.",
				Parameters: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"query": {Type: genai.TypeString, Description: "Free-text place search"},
					},
					Required: []string{"query"},
				},
			},
		},
	}}
}

// Dispatch executes one function call on behalf of userID in tripID.
func (r *ToolRegistry) Dispatch(ctx context.Context, tripID, userID string, call genai.FunctionCall) (map[string]interface{}, error) {
	switch call.Name {
	case "create_task":
		return r.createTask(tripID, userID, call.Args)
	case "add_calendar_event":
		return r.addCalendarEvent(tripID, userID, call.Args)
	case "create_poll":
		return r.createPoll(tripID, userID, call.Args)
	case "record_payment_split":
		return r.recordPaymentSplit(tripID, userID, call.Args)
	case "search_places":
		return r.searchPlaces(ctx, tripID, call.Args)
	default:
		return nil, fmt.Errorf("unknown tool %q", call.Name)
	}
}

func (r *ToolRegistry) createTask(tripID, userID string, args map[string]interface{}) (map[string]interface{}, error) {
	title, _ := args["title"].(string)
	if title == "" {
		return nil, fmt.Errorf("create_task requires a title")
	}
	task := &store.Task{
		TripID:    tripID,
		Title:     title,
		CreatedBy: userID,
	}
	if assignee, _ := args["assigned_to"].(string); assignee != "" {
		task.AssignedTo = &assignee
	}
	if due, err := argTime(args, "due_at"); err != nil {
		return nil, err
	} else if due != nil {
		task.DueAt = due
	}
	if err := r.store.CreateTask(task); err != nil {
		return nil, err
	}
	return map[string]interface{}{"task_id": task.ID, "title": task.Title}, nil
}

func (r *ToolRegistry) addCalendarEvent(tripID, userID string, args map[string]interface{}) (map[string]interface{}, error) {
	title, _ := args["title"].(string)
	startsAt, err := argTime(args, "starts_at")
	if err != nil {
		return nil, err
	}
	if title == "" || startsAt == nil {
		return nil, fmt.Errorf("add_calendar_event requires title and starts_at")
	}
	ev := &store.CalendarEvent{
		TripID:    tripID,
		Title:     title,
		StartsAt:  *startsAt,
		CreatedBy: userID,
	}
	if location, _ := args["location"].(string); location != "" {
		ev.Location = &location
	}
	if endsAt, err := argTime(args, "ends_at"); err != nil {
		return nil, err
	} else if endsAt != nil {
		ev.EndsAt = endsAt
	}
	if err := r.store.CreateCalendarEvent(ev); err != nil {
		return nil, err
	}
	return map[string]interface{}{"event_id": ev.ID, "title": ev.Title, "starts_at": ev.StartsAt.Format(time.RFC3339)}, nil
}

func (r *ToolRegistry) createPoll(tripID, userID string, args map[string]interface{}) (map[string]interface{}, error) {
	question, _ := args["question"].(string)
	options := argStrings(args, "options")
	if question == "" || len(options) < 2 {
		return nil, fmt.Errorf("create_poll requires a question and at least two options")
	}
	if len(options) > 10 {
		options = options[:10]
	}
	poll := &store.Poll{TripID: tripID, Question: question, CreatedBy: userID}
	created, err := r.store.CreatePoll(poll, options)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{"poll_id": poll.ID, "question": question, "option_count": len(created)}, nil
}

func (r *ToolRegistry) recordPaymentSplit(tripID, userID string, args map[string]interface{}) (map[string]interface{}, error) {
	description, _ := args["description"].(string)
	amount, ok := args["amount_cents"].(float64) // JSON numbers arrive as float64
	if description == "" || !ok || amount <= 0 {
		return nil, fmt.Errorf("record_payment_split requires a description and a positive amount_cents")
	}
	split := &store.PaymentSplit{
		TripID:       tripID,
		PaidBy:       userID,
		AmountCents:  int64(amount),
		Description:  description,
		Participants: pq.StringArray(argStrings(args, "participants")),
	}
	if currency, _ := args["currency"].(string); currency != "" {
		split.Currency = currency
	}
	if err := r.store.CreatePaymentSplit(split); err != nil {
		return nil, err
	}
	return map[string]interface{}{"split_id": split.ID, "amount_cents": split.AmountCents}, nil
}

func (r *ToolRegistry) searchPlaces(ctx context.Context, tripID string, args map[string]interface{}) (map[string]interface{}, error) {
	query, _ := args["query"].(string)
	if query == "" {
		return nil, fmt.Errorf("search_places requires a query")
	}
	if r.places == nil {
		return nil, fmt.Errorf("place search is not configured")
	}

	// Bias results around the basecamp when the trip has one.
	var lat, lng *float64
	if trip, err := r.store.GetTrip(tripID); err == nil && trip != nil {
		lat, lng = trip.BasecampLat, trip.BasecampLng
	}

	results, err := r.places.Search(ctx, query, lat, lng)
	if err != nil {
		return nil, err
	}
	if len(results) > 5 {
		results = results[:5]
	}
	out := make([]map[string]interface{}, 0, len(results))
	for _, p := range results {
		out = append(out, map[string]interface{}{
			"name":    p.Name,
			"address": p.Address,
			"rating":  p.Rating,
			"lat":     p.Lat,
			"lng":     p.Lng,
		})
	}
	return map[string]interface{}{"places": out}, nil
}

func argTime(args map[string]interface{}, key string) (*time.Time, error) {
	raw, _ := args[key].(string)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be RFC 3339: %w", key, err)
	}
	return &t, nil
}

func argStrings(args map[string]interface{}, key string) []string {
	raw, _ := args[key].([]interface{})
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

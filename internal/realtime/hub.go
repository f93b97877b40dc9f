// Package realtime fans chat events out to connected browsers over websockets.
// Clients join per-trip topics ("trip:<id>") or role-channel topics
// ("trip:<id>:channel:<chid>") after an authorization check; every chat
// mutation is published to the matching topic.
package realtime

import (
	"encoding/json"
	"log"
	"sync"
)

// Event names published on trip topics.
const (
	EventMessageNew      = "message.new"
	EventMessageEdited   = "message.edited"
	EventMessageDeleted  = "message.deleted"
	EventMessagePinned   = "message.pinned"
	EventMessageUnpinned = "message.unpinned"
	EventReaction        = "reaction.updated"
	EventBroadcast       = "broadcast.sent"
)

type IncomingFrame struct {
	Action string `json:"action"` // "join", "leave", "heartbeat"
	Topic  string `json:"topic"`
	Ref    string `json:"ref,omitempty"`
}

type OutgoingFrame struct {
	Topic   string      `json:"topic,omitempty"`
	Event   string      `json:"event"`
	Payload interface{} `json:"payload,omitempty"`
	Ref     string      `json:"ref,omitempty"`
}

type broadcastFrame struct {
	topic string
	data  []byte
}

// JoinAuthorizer decides whether a user may subscribe to a topic.
type JoinAuthorizer interface {
	CanJoin(userID, topic string) bool
}

type Hub struct {
	authorizer JoinAuthorizer

	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastFrame

	mu      sync.RWMutex
	clients map[*Client]bool
	topics  map[string]map[*Client]bool
}

func NewHub(authorizer JoinAuthorizer) *Hub {
	return &Hub{
		authorizer: authorizer,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan broadcastFrame, 64),
		clients:    make(map[*Client]bool),
		topics:     make(map[string]map[*Client]bool),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
				for topic := range client.topics {
					h.dropFromTopicLocked(topic, client)
				}
			}
			h.mu.Unlock()
		case frame := <-h.broadcast:
			h.mu.Lock()
			for client := range h.topics[frame.topic] {
				select {
				case client.send <- frame.data:
				default:
					// Slow client: drop it rather than block the hub. It must
					// leave every topic too, or the next publish would hit
					// its closed send channel.
					delete(h.clients, client)
					for topic := range client.topics {
						h.dropFromTopicLocked(topic, client)
					}
					close(client.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish sends an event to every client subscribed to the topic.
func (h *Hub) Publish(topic, event string, payload interface{}) {
	data, err := json.Marshal(OutgoingFrame{Topic: topic, Event: event, Payload: payload})
	if err != nil {
		log.Printf("realtime: failed to marshal %s event: %v", event, err)
		return
	}
	h.broadcast <- broadcastFrame{topic: topic, data: data}
}

func (h *Hub) join(c *Client, topic string) bool {
	if h.authorizer != nil && !h.authorizer.CanJoin(c.userID, topic) {
		return false
	}
	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*Client]bool)
	}
	h.topics[topic][c] = true
	c.topics[topic] = true
	h.mu.Unlock()
	return true
}

func (h *Hub) leave(c *Client, topic string) {
	h.mu.Lock()
	h.dropFromTopicLocked(topic, c)
	delete(c.topics, topic)
	h.mu.Unlock()
}

func (h *Hub) dropFromTopicLocked(topic string, c *Client) {
	if clients, ok := h.topics[topic]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.topics, topic)
		}
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/core"
	"github.com/go-chi/chi/v5"
)

type PostMessageRequest struct {
	Content     string          `json:"content"`
	ChannelID   *string         `json:"channel_id,omitempty"`
	PrivacyMode string          `json:"privacy_mode,omitempty"`
	ReplyTo     *string         `json:"reply_to,omitempty"`
	Payload     json.RawMessage `json:"payload,omitempty"`
}

func (h *APIHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	var req PostMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" && len(req.Payload) == 0 {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	msg, err := h.chat.PostMessage(r.Context(), tripID, userID, core.PostMessageInput{
		Content:     req.Content,
		ChannelID:   req.ChannelID,
		PrivacyMode: req.PrivacyMode,
		ReplyTo:     req.ReplyTo,
		Payload:     req.Payload,
	})
	if err != nil {
		writeServiceError(w, err, "posting message for trip "+tripID)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(msg)
}

func (h *APIHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	var channelID *string
	if c := r.URL.Query().Get("channel_id"); c != "" {
		channelID = &c
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	messages, err := h.chat.ListMessages(tripID, userID, channelID, r.URL.Query().Get("before"), limit)
	if err != nil {
		writeServiceError(w, err, "listing messages for trip "+tripID)
		return
	}
	json.NewEncoder(w).Encode(messages)
}

func (h *APIHandler) ListThreadHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")
	messageID := chi.URLParam(r, "messageID")

	messages, err := h.chat.ListThread(tripID, userID, messageID)
	if err != nil {
		writeServiceError(w, err, "listing thread "+messageID)
		return
	}
	json.NewEncoder(w).Encode(messages)
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

func (h *APIHandler) EditMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")
	messageID := chi.URLParam(r, "messageID")

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Message content cannot be empty", http.StatusBadRequest)
		return
	}

	msg, err := h.chat.EditMessage(tripID, userID, messageID, req.Content)
	if err != nil {
		writeServiceError(w, err, "editing message "+messageID)
		return
	}
	json.NewEncoder(w).Encode(msg)
}

func (h *APIHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")
	messageID := chi.URLParam(r, "messageID")

	if err := h.chat.DeleteMessage(tripID, userID, messageID); err != nil {
		writeServiceError(w, err, "deleting message "+messageID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) PinMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")
	messageID := chi.URLParam(r, "messageID")

	msg, err := h.chat.PinMessage(tripID, userID, messageID)
	if err != nil {
		writeServiceError(w, err, "pinning message "+messageID)
		return
	}
	json.NewEncoder(w).Encode(msg)
}

func (h *APIHandler) UnpinMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	if err := h.chat.UnpinMessage(tripID, userID); err != nil {
		writeServiceError(w, err, "unpinning message for trip "+tripID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) GetPinnedMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	msg, err := h.chat.PinnedMessage(tripID, userID)
	if err != nil {
		writeServiceError(w, err, "getting pinned message for trip "+tripID)
		return
	}
	if msg == nil {
		http.Error(w, "No pinned message", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(msg)
}

type ReactionRequest struct {
	Type string `json:"type"`
}

func (h *APIHandler) ToggleReactionHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")
	messageID := chi.URLParam(r, "messageID")

	var req ReactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Type == "" {
		http.Error(w, "Reaction type is required", http.StatusBadRequest)
		return
	}

	groups, err := h.chat.ToggleReaction(tripID, userID, messageID, req.Type)
	if err != nil {
		writeServiceError(w, err, "toggling reaction on message "+messageID)
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message_id": messageID,
		"reactions":  groups,
	})
}

func (h *APIHandler) SearchMessagesHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	query := r.URL.Query().Get("q")
	if query == "" {
		http.Error(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	topK, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	results, err := h.search.SearchMessages(r.Context(), tripID, userID, query, topK)
	if err != nil {
		writeServiceError(w, err, "searching messages for trip "+tripID)
		return
	}
	json.NewEncoder(w).Encode(results)
}

type CreateChannelRequest struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

func (h *APIHandler) CreateChannelHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	var req CreateChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Role == "" {
		http.Error(w, "Channel name and role are required", http.StatusBadRequest)
		return
	}

	channel, err := h.chat.CreateRoleChannel(tripID, userID, req.Name, req.Role)
	if err != nil {
		writeServiceError(w, err, "creating channel for trip "+tripID)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(channel)
}

func (h *APIHandler) ListChannelsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	channels, err := h.chat.ListRoleChannels(tripID, userID)
	if err != nil {
		writeServiceError(w, err, "listing channels for trip "+tripID)
		return
	}
	json.NewEncoder(w).Encode(channels)
}

type CreateBroadcastRequest struct {
	Content      string     `json:"content"`
	Priority     string     `json:"priority,omitempty"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty"`
}

func (h *APIHandler) CreateBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	var req CreateBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		http.Error(w, "Broadcast content cannot be empty", http.StatusBadRequest)
		return
	}

	b, err := h.chat.CreateBroadcast(r.Context(), tripID, userID, req.Content, req.Priority, req.ScheduledFor)
	if err != nil {
		writeServiceError(w, err, "creating broadcast for trip "+tripID)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(b)
}

func (h *APIHandler) ListBroadcastsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	broadcasts, err := h.chat.ListBroadcasts(tripID, userID)
	if err != nil {
		writeServiceError(w, err, "listing broadcasts for trip "+tripID)
		return
	}
	json.NewEncoder(w).Encode(broadcasts)
}

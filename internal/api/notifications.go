package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/MeechYourGoals/chravel-server/internal/core/notify"
	"github.com/MeechYourGoals/chravel-server/internal/store"
	"github.com/go-chi/chi/v5"
)

func (h *APIHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	notifications, err := h.store.ListNotifications(userID, limit)
	if err != nil {
		log.Printf("Error listing notifications for user %s: %v", userID, err)
		http.Error(w, "Failed to list notifications", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(notifications)
}

func (h *APIHandler) MarkNotificationReadHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	notificationID := chi.URLParam(r, "notificationID")

	if err := h.store.MarkNotificationRead(notificationID, userID); err != nil {
		log.Printf("Error marking notification %s read for user %s: %v", notificationID, userID, err)
		http.Error(w, "Failed to mark notification read", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) ListNotificationPrefsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	prefs, err := h.store.ListNotificationPrefs(userID)
	if err != nil {
		log.Printf("Error listing notification prefs for user %s: %v", userID, err)
		http.Error(w, "Failed to list preferences", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(prefs)
}

type SavePrefRequest struct {
	Category string `json:"category"`
	InApp    bool   `json:"in_app"`
	Push     bool   `json:"push"`
	Email    bool   `json:"email"`
	SMS      bool   `json:"sms"`
}

func (h *APIHandler) SaveNotificationPrefHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req SavePrefRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if !notify.ValidCategory(req.Category) {
		http.Error(w, "Unknown notification category", http.StatusBadRequest)
		return
	}

	pref := &store.NotificationPref{
		UserID:   userID,
		Category: req.Category,
		InApp:    req.InApp,
		Push:     req.Push,
		Email:    req.Email,
		SMS:      req.SMS,
	}
	if err := h.store.SaveNotificationPref(pref); err != nil {
		log.Printf("Error saving notification pref for user %s: %v", userID, err)
		http.Error(w, "Failed to save preference", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(pref)
}

func (h *APIHandler) GetNotificationSettingsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	settings, err := h.store.GetNotificationSettings(userID)
	if err != nil {
		log.Printf("Error getting notification settings for user %s: %v", userID, err)
		http.Error(w, "Failed to get settings", http.StatusInternalServerError)
		return
	}
	if settings == nil {
		settings = &store.NotificationSettings{UserID: userID}
	}
	json.NewEncoder(w).Encode(settings)
}

type SaveSettingsRequest struct {
	QuietEnabled  bool   `json:"quiet_enabled"`
	QuietStartMin int    `json:"quiet_start_min"`
	QuietEndMin   int    `json:"quiet_end_min"`
	Timezone      string `json:"timezone"`
}

func (h *APIHandler) SaveNotificationSettingsHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req SaveSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.QuietStartMin < 0 || req.QuietStartMin >= 1440 || req.QuietEndMin < 0 || req.QuietEndMin >= 1440 {
		http.Error(w, "Quiet hours must be minutes within a day", http.StatusBadRequest)
		return
	}

	settings := &store.NotificationSettings{
		UserID:        userID,
		QuietEnabled:  req.QuietEnabled,
		QuietStartMin: req.QuietStartMin,
		QuietEndMin:   req.QuietEndMin,
		Timezone:      req.Timezone,
	}
	if err := h.store.SaveNotificationSettings(settings); err != nil {
		log.Printf("Error saving notification settings for user %s: %v", userID, err)
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(settings)
}

type PushSubscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// PushSubscribeHandler accepts the subscription JSON a browser gets back
// from PushManager.subscribe.
func (h *APIHandler) PushSubscribeHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req PushSubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		http.Error(w, "endpoint and keys are required", http.StatusBadRequest)
		return
	}

	sub := &store.PushSubscription{
		UserID:   userID,
		Endpoint: req.Endpoint,
		P256dh:   req.Keys.P256dh,
		Auth:     req.Keys.Auth,
	}
	if err := h.store.SavePushSubscription(sub); err != nil {
		log.Printf("Error saving push subscription for user %s: %v", userID, err)
		http.Error(w, "Failed to save subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(sub)
}

type PushUnsubscribeRequest struct {
	Endpoint string `json:"endpoint"`
}

func (h *APIHandler) PushUnsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req PushUnsubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Endpoint == "" {
		http.Error(w, "endpoint is required", http.StatusBadRequest)
		return
	}

	if err := h.store.DeletePushSubscription(req.Endpoint); err != nil {
		log.Printf("Error deleting push subscription: %v", err)
		http.Error(w, "Failed to delete subscription", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/MeechYourGoals/chravel-server/internal/auth"
	"github.com/MeechYourGoals/chravel-server/internal/core"
	"github.com/MeechYourGoals/chravel-server/internal/places"
	"github.com/MeechYourGoals/chravel-server/internal/preview"
	"github.com/MeechYourGoals/chravel-server/internal/realtime"
	"github.com/MeechYourGoals/chravel-server/internal/store"
	"github.com/go-chi/chi/v5"
)

// DataStore covers the direct store access handlers need outside the chat
// and concierge services: accounts, trip administration and notification
// preferences.
type DataStore interface {
	GetUserByEmail(email string) (*store.User, error)
	GetUserByID(id string) (*store.User, error)
	CreateUser(email, displayName, passwordHash string) (*store.User, error)

	CreateTrip(name, tier, createdBy string) (*store.Trip, error)
	GetTrip(tripID string) (*store.Trip, error)
	SetBasecamp(tripID, name string, lat, lng float64) error
	AddMember(tripID, userID, role string) error
	GetMember(tripID, userID string) (*store.TripMember, error)
	ListMembers(tripID string) ([]store.TripMember, error)

	SavePushSubscription(sub *store.PushSubscription) error
	DeletePushSubscription(endpoint string) error
	ListNotificationPrefs(userID string) ([]store.NotificationPref, error)
	SaveNotificationPref(pref *store.NotificationPref) error
	GetNotificationSettings(userID string) (*store.NotificationSettings, error)
	SaveNotificationSettings(set *store.NotificationSettings) error
	ListNotifications(userID string, limit int) ([]store.Notification, error)
	MarkNotificationRead(id, userID string) error
}

type APIHandler struct {
	store     DataStore
	chat      *core.ChatService
	concierge *core.ConciergeService
	search    *core.SearchService
	hub       *realtime.Hub
	places    *places.Client
	previews  *preview.Fetcher
}

func NewAPIHandler(ds DataStore, chat *core.ChatService, concierge *core.ConciergeService, search *core.SearchService, hub *realtime.Hub, pl *places.Client, pv *preview.Fetcher) *APIHandler {
	return &APIHandler{
		store:     ds,
		chat:      chat,
		concierge: concierge,
		search:    search,
		hub:       hub,
		places:    pl,
		previews:  pv,
	}
}

func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Authorization header is required", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		userID, err := auth.ValidateJWT(tokenString)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		user, err := h.store.GetUserByID(userID)
		if err != nil {
			log.Printf("Error in JWTAuthMiddleware for user %s: %v", userID, err)
			http.Error(w, "Failed to process user identity", http.StatusInternalServerError)
			return
		}
		if user == nil {
			http.Error(w, "User not found", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), "userID", user.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// writeServiceError maps the service sentinel errors onto HTTP statuses;
// anything unrecognized is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, err error, logContext string) {
	switch {
	case errors.Is(err, core.ErrNotMember), errors.Is(err, core.ErrForbidden):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, core.ErrTierRequired):
		http.Error(w, err.Error(), http.StatusPaymentRequired)
	case errors.Is(err, core.ErrRateLimited):
		http.Error(w, err.Error(), http.StatusTooManyRequests)
	case errors.Is(err, store.ErrMessageNotFound), errors.Is(err, core.ErrChannelNotFound),
		errors.Is(err, core.ErrTripNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Printf("Error %s: %v", logContext, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

type SignupRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

func (h *APIHandler) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}
	if req.DisplayName == "" {
		req.DisplayName = req.Email
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("Error hashing password for %s: %v", req.Email, err)
		http.Error(w, "Failed to process password", http.StatusInternalServerError)
		return
	}

	user, err := h.store.CreateUser(req.Email, req.DisplayName, hashedPassword)
	if err != nil {
		log.Printf("Error creating user %s: %v", req.Email, err)
		http.Error(w, "Failed to create user", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(user)
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *APIHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		http.Error(w, "Email and password are required", http.StatusBadRequest)
		return
	}

	user, err := h.store.GetUserByEmail(req.Email)
	if err != nil {
		log.Printf("Error getting user %s: %v", req.Email, err)
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	token, err := auth.GenerateJWT(user.ID)
	if err != nil {
		log.Printf("Error generating JWT for user %s: %v", user.ID, err)
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]string{"token": token})
}

type CreateTripRequest struct {
	Name string `json:"name"`
	Tier string `json:"tier"`
}

func (h *APIHandler) CreateTripHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)

	var req CreateTripRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Trip name is required", http.StatusBadRequest)
		return
	}
	if req.Tier == "" {
		req.Tier = store.TierFree
	}

	trip, err := h.store.CreateTrip(req.Name, req.Tier, userID)
	if err != nil {
		log.Printf("Error creating trip for user %s: %v", userID, err)
		http.Error(w, "Failed to create trip", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(trip)
}

type TripDetailsResponse struct {
	*store.Trip
	Members []store.TripMember `json:"members"`
}

func (h *APIHandler) GetTripHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	member, err := h.store.GetMember(tripID, userID)
	if err != nil {
		log.Printf("Error checking membership for user %s, trip %s: %v", userID, tripID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if member == nil {
		http.Error(w, "Not a trip member", http.StatusForbidden)
		return
	}

	trip, err := h.store.GetTrip(tripID)
	if err != nil {
		log.Printf("Error getting trip %s: %v", tripID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if trip == nil {
		http.Error(w, "Trip not found", http.StatusNotFound)
		return
	}

	members, err := h.store.ListMembers(tripID)
	if err != nil {
		log.Printf("Error listing members for trip %s: %v", tripID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(TripDetailsResponse{Trip: trip, Members: members})
}

type AddMemberRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

func (h *APIHandler) AddMemberHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	member, err := h.store.GetMember(tripID, userID)
	if err != nil {
		log.Printf("Error checking membership for user %s, trip %s: %v", userID, tripID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if member == nil || member.Role != "organizer" {
		http.Error(w, "Only organizers can add members", http.StatusForbidden)
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	if req.Role == "" {
		req.Role = "member"
	}

	if err := h.store.AddMember(tripID, req.UserID, req.Role); err != nil {
		log.Printf("Error adding member %s to trip %s: %v", req.UserID, tripID, err)
		http.Error(w, "Failed to add member", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type SetBasecampRequest struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

func (h *APIHandler) SetBasecampHandler(w http.ResponseWriter, r *http.Request) {
	userID := r.Context().Value("userID").(string)
	tripID := chi.URLParam(r, "tripID")

	member, err := h.store.GetMember(tripID, userID)
	if err != nil {
		log.Printf("Error checking membership for user %s, trip %s: %v", userID, tripID, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if member == nil || member.Role != "organizer" {
		http.Error(w, "Only organizers can set the basecamp", http.StatusForbidden)
		return
	}

	var req SetBasecampRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Basecamp name is required", http.StatusBadRequest)
		return
	}

	if err := h.store.SetBasecamp(tripID, req.Name, req.Lat, req.Lng); err != nil {
		log.Printf("Error setting basecamp for trip %s: %v", tripID, err)
		http.Error(w, "Failed to set basecamp", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RealtimeHandler upgrades to a websocket. Browsers cannot set an
// Authorization header on the upgrade request, so the token rides in a
// query parameter.
func (h *APIHandler) RealtimeHandler(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "token query parameter is required", http.StatusUnauthorized)
		return
	}
	userID, err := auth.ValidateJWT(token)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	realtime.ServeWs(h.hub, userID, w, r)
}

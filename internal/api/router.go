package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// All API routes will be under /api
	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/signup", apiHandler.SignupHandler)
		r.Post("/login", apiHandler.LoginHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Websocket upgrade; token authenticated via query parameter.
		r.Get("/realtime", apiHandler.RealtimeHandler)

		// User-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.JWTAuthMiddleware)

			// Trips
			r.Post("/trips", apiHandler.CreateTripHandler)
			r.Route("/trips/{tripID}", func(r chi.Router) {
				r.Get("/", apiHandler.GetTripHandler)
				r.Post("/members", apiHandler.AddMemberHandler)
				r.Put("/basecamp", apiHandler.SetBasecampHandler)

				// Group chat
				r.Post("/messages", apiHandler.PostMessageHandler)
				r.Get("/messages", apiHandler.ListMessagesHandler)
				r.Get("/messages/search", apiHandler.SearchMessagesHandler)
				r.Patch("/messages/{messageID}", apiHandler.EditMessageHandler)
				r.Delete("/messages/{messageID}", apiHandler.DeleteMessageHandler)
				r.Get("/messages/{messageID}/thread", apiHandler.ListThreadHandler)
				r.Post("/messages/{messageID}/reactions", apiHandler.ToggleReactionHandler)
				r.Put("/messages/{messageID}/pin", apiHandler.PinMessageHandler)
				r.Get("/pin", apiHandler.GetPinnedMessageHandler)
				r.Delete("/pin", apiHandler.UnpinMessageHandler)

				// Role channels and broadcasts
				r.Post("/channels", apiHandler.CreateChannelHandler)
				r.Get("/channels", apiHandler.ListChannelsHandler)
				r.Post("/broadcasts", apiHandler.CreateBroadcastHandler)
				r.Get("/broadcasts", apiHandler.ListBroadcastsHandler)

				// AI concierge
				r.Post("/concierge", apiHandler.ConciergeAskHandler)
				r.Get("/concierge/sessions", apiHandler.ListConciergeSessionsHandler)
				r.Get("/concierge/sessions/{sessionID}", apiHandler.GetConciergeSessionHandler)
			})

			// Notifications
			r.Get("/notifications", apiHandler.ListNotificationsHandler)
			r.Post("/notifications/{notificationID}/read", apiHandler.MarkNotificationReadHandler)
			r.Get("/notifications/prefs", apiHandler.ListNotificationPrefsHandler)
			r.Put("/notifications/prefs", apiHandler.SaveNotificationPrefHandler)
			r.Get("/notifications/settings", apiHandler.GetNotificationSettingsHandler)
			r.Put("/notifications/settings", apiHandler.SaveNotificationSettingsHandler)

			// Web Push subscriptions
			r.Post("/push/subscriptions", apiHandler.PushSubscribeHandler)
			r.Delete("/push/subscriptions", apiHandler.PushUnsubscribeHandler)

			// Maps and link previews
			r.Get("/places/search", apiHandler.PlacesSearchHandler)
			r.Get("/places/route", apiHandler.RouteHandler)
			r.Get("/places/timezone", apiHandler.TimezoneHandler)
			r.Get("/places/staticmap", apiHandler.StaticMapHandler)
			r.Get("/preview", apiHandler.LinkPreviewHandler)
		})
	})

	return r
}

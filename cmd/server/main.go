package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeechYourGoals/chravel-server/internal/api"
	"github.com/MeechYourGoals/chravel-server/internal/config"
	"github.com/MeechYourGoals/chravel-server/internal/core"
	"github.com/MeechYourGoals/chravel-server/internal/core/notify"
	"github.com/MeechYourGoals/chravel-server/internal/core/tripctx"
	"github.com/MeechYourGoals/chravel-server/internal/places"
	"github.com/MeechYourGoals/chravel-server/internal/preview"
	"github.com/MeechYourGoals/chravel-server/internal/push"
	"github.com/MeechYourGoals/chravel-server/internal/realtime"
	"github.com/MeechYourGoals/chravel-server/internal/store"
)

func main() {
	// Load configuration
	config.LoadConfig()

	// Setup logging
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if config.AppConfig.LogLevel == "DEBUG" {
		log.Println("Service starting in DEBUG mode")
	}

	// Initialize database store
	dbStore, err := store.NewPostgresStore(config.AppConfig.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer dbStore.Close()

	// Initialize LLM service
	llmService := core.NewLLMService()
	defer llmService.Close()

	// Realtime hub; joins are gated on trip membership.
	hub := realtime.NewHub(core.NewTripAuthorizer(dbStore))
	go hub.Run()

	// Web Push; without VAPID keys push delivery is disabled and
	// notifications fall back to the in-app inbox.
	var pushSender notify.PushSender
	if config.AppConfig.VAPIDPublicKey != "" && config.AppConfig.VAPIDPrivateKey != "" {
		pushService, err := push.NewService(
			config.AppConfig.VAPIDPublicKey,
			config.AppConfig.VAPIDPrivateKey,
			config.AppConfig.VAPIDSubject,
		)
		if err != nil {
			log.Fatalf("Failed to initialize web push: %v", err)
		}
		pushSender = pushService
	} else {
		log.Println("VAPID keys not configured, web push disabled")
	}
	dispatcher := notify.NewDispatcher(dbStore, pushSender)

	// Trip context snapshots for the concierge.
	builder := tripctx.NewBuilder(dbStore, 2*time.Minute)

	placesClient := places.NewClient(config.AppConfig.MapsAPIKey)
	tools := core.NewToolRegistry(dbStore, placesClient)

	chatService := core.NewChatService(dbStore, hub, dispatcher, builder)
	conciergeService := core.NewConciergeService(dbStore, llmService, builder, tools, config.AppConfig.ConciergeRPM)
	searchService := core.NewSearchService(dbStore, llmService)

	// Scheduled broadcasts are delivered by a background poller.
	schedulerCtx, cancelScheduler := context.WithCancel(context.Background())
	defer cancelScheduler()
	scheduler := core.NewBroadcastScheduler(dbStore, chatService, 30*time.Second)
	go scheduler.Run(schedulerCtx)

	// Initialize API Handler and Router
	apiHandler := api.NewAPIHandler(dbStore, chatService, conciergeService, searchService, hub, placesClient, preview.NewFetcher())
	router := api.NewRouter(apiHandler)

	// Start HTTP server
	serverAddr := fmt.Sprintf(":%s", config.AppConfig.HTTPPort)

	srv := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second, // LLM calls can take time
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown handling
	go func() {
		log.Printf("Starting server on %s. Press Ctrl+C to quit.", serverAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on %s: %v\n", serverAddr, err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	cancelScheduler()

	// Give active connections time to finish.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting gracefully")
}

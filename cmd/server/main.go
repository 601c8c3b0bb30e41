package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/party-realm/api/internal/armory"
	"github.com/party-realm/api/internal/broker"
	"github.com/party-realm/api/internal/catalog"
	"github.com/party-realm/api/internal/database"
	"github.com/party-realm/api/internal/handlers"
	"github.com/party-realm/api/internal/middleware"
	"github.com/party-realm/api/internal/processor"
	"github.com/party-realm/api/internal/store"
)

func main() {
	// Load .env when present; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Println("[API] Loaded configuration from .env")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize database connection
	log.Println("[API] Initializing database connection...")
	db, err := database.NewConnection(database.LoadConfigFromEnv())
	if err != nil {
		log.Fatalf("[API] Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		log.Fatalf("[API] Failed to initialize schema: %v", err)
	}
	log.Println("[API] Database connected successfully")

	// Initialize the event broker
	events, err := broker.NewClient(broker.LoadConfigFromEnv())
	if err != nil {
		log.Fatalf("[API] Failed to connect to Redis: %v", err)
	}
	defer events.Close()

	// Stores
	partyStore := store.NewParty(db)
	gameStore := store.NewGame(db)
	battleStore := store.NewBattle(db)

	// Equipment allocators
	window := armory.WindowFromEnv()
	weapons := armory.New(catalog.Weapons, window)
	armours := armory.New(catalog.Armours, window)

	// Battle-end processor
	battles := processor.New(func(ctx context.Context) (processor.Tx, error) {
		return battleStore.Begin(ctx)
	}, events)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := events.ConsumeBattleEnd(ctx, battles.HandleMessage); err != nil && ctx.Err() == nil {
			log.Fatalf("[API] Battle-end consumer failed: %v", err)
		}
	}()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(db)
	partyHandler := handlers.NewPartyHandler(partyStore, gameStore, events, weapons, armours)
	gameHandler := handlers.NewGameHandler(gameStore)

	// Setup HTTP routes
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// Auth routes
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/login", authHandler.Login)
	mux.HandleFunc("/api/auth/refresh", authHandler.RefreshToken)

	// Party routes
	mux.HandleFunc("/api/party/make", middleware.OptionalAuth(partyHandler.Make))
	mux.HandleFunc("/api/party/fight", middleware.OptionalAuth(partyHandler.Fight))
	mux.HandleFunc("/api/party/heal", middleware.OptionalAuth(partyHandler.Heal))
	mux.HandleFunc("/api/party/remove-user-parties", middleware.OptionalAuth(partyHandler.RemoveUserParties))
	mux.HandleFunc("/api/party/all", middleware.OptionalAuth(partyHandler.All))

	// Game routes
	mux.HandleFunc("/api/game/play", middleware.OptionalAuth(gameHandler.Play))
	mux.HandleFunc("/api/game/get", middleware.OptionalAuth(gameHandler.Get))
	mux.HandleFunc("/api/game/over", middleware.OptionalAuth(gameHandler.Over))
	mux.HandleFunc("/api/game/game-over-user-games", middleware.OptionalAuth(gameHandler.GameOverUserGames))

	// CORS middleware
	handler := corsMiddleware(mux)

	// Start server
	log.Printf("[API] Starting server on port %s...", port)
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[API] Shutdown error: %v", err)
		}
	}()

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[API] Server failed: %v", err)
	}
	log.Println("[API] Server stopped")
}

// corsMiddleware adds CORS headers to all responses
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

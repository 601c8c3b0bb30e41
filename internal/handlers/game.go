package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/party-realm/api/internal/auth"
	"github.com/party-realm/api/internal/middleware"
	"github.com/party-realm/api/internal/models"
	"github.com/party-realm/api/internal/store"
)

// GameStore is the slice of the store the game handler needs; *store.Game
// implements it
type GameStore interface {
	FindGame(ctx context.Context, id int64) (*models.Game, error)
	CreateGame(ctx context.Context, userID string) (*models.Game, error)
	ListGames(ctx context.Context, userID string, openOnly bool) ([]models.Game, error)
	ListAllGames(ctx context.Context) ([]models.Game, error)
	MarkOver(ctx context.Context, id int64) error
	MarkOverForUser(ctx context.Context, userID string) (int64, error)
}

type GameHandler struct {
	games GameStore
}

func NewGameHandler(games GameStore) *GameHandler {
	return &GameHandler{games: games}
}

// Play starts a new game for the principal
func (h *GameHandler) Play(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	userID := middleware.Principal(r)
	game, err := h.games.CreateGame(r.Context(), userID)
	if err != nil {
		log.Printf("[Game] Failed to create game for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to create game"})
		return
	}

	log.Printf("[Game] Created game %d for user %s", game.ID, userID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(game)
}

// Get lists games: the principal's games with an optional over=false filter,
// or every game for unauthenticated requests
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	userID := middleware.Principal(r)
	var games []models.Game
	var err error
	if userID == auth.AnonymousUser {
		games, err = h.games.ListAllGames(r.Context())
	} else {
		openOnly := r.URL.Query().Get("over") == "false"
		games, err = h.games.ListGames(r.Context(), userID, openOnly)
	}
	if err != nil {
		log.Printf("[Game] Failed to list games: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to list games"})
		return
	}

	json.NewEncoder(w).Encode(games)
}

// OverRequest identifies the game to finish
type OverRequest struct {
	ID int64 `json:"id"`
}

// Over marks a single game as finished after an ownership check
func (h *GameHandler) Over(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req OverRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	log.Printf("[Game] Updating over status for game %d", req.ID)

	game, err := h.games.FindGame(r.Context(), req.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Game not found"})
			return
		}
		log.Printf("[Game] Failed to load game %d: %v", req.ID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to load game"})
		return
	}

	if game.UserID != middleware.Principal(r) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Game belongs to another user"})
		return
	}

	if err := h.games.MarkOver(r.Context(), game.ID); err != nil {
		log.Printf("[Game] Failed to mark game %d over: %v", game.ID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to update game"})
		return
	}

	game.Over = true
	json.NewEncoder(w).Encode(game)
}

// GameOverUserGames marks all of a user's games as finished
func (h *GameHandler) GameOverUserGames(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	userID := r.URL.Query().Get("userId")
	if userID == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "userId is required"})
		return
	}

	if userID != middleware.Principal(r) {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Cannot close games for another user"})
		return
	}

	updated, err := h.games.MarkOverForUser(r.Context(), userID)
	if err != nil {
		log.Printf("[Game] Failed to close games for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to close games"})
		return
	}

	log.Printf("[Game] Game over for user %s (%d games)", userID, updated)
	json.NewEncoder(w).Encode(map[string]int64{"closed": updated})
}

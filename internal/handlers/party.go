package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/google/uuid"

	"github.com/party-realm/api/internal/armory"
	"github.com/party-realm/api/internal/auth"
	"github.com/party-realm/api/internal/catalog"
	"github.com/party-realm/api/internal/leveling"
	"github.com/party-realm/api/internal/middleware"
	"github.com/party-realm/api/internal/models"
	"github.com/party-realm/api/internal/store"
)

// PartyStore is the slice of the store the party handler needs;
// *store.Party implements it
type PartyStore interface {
	FindMember(ctx context.Context, id int64) (*models.PartyMember, error)
	CreateMember(ctx context.Context, m *models.PartyMember) (*models.PartyMember, error)
	UpdateMember(ctx context.Context, m *models.PartyMember) error
	ListMembers(ctx context.Context, userID string) ([]models.PartyMember, error)
	ListAllMembers(ctx context.Context) ([]models.PartyMember, error)
	DeleteMembersByUser(ctx context.Context, userID string) (int64, error)
	HealParty(ctx context.Context, userID string) (int64, error)
	HealMember(ctx context.Context, id int64) (int64, error)
}

// GameFinder looks up games by id; *store.Game implements it
type GameFinder interface {
	FindGame(ctx context.Context, id int64) (*models.Game, error)
}

// BattleRequestPublisher emits battle requests to the combat simulator
type BattleRequestPublisher interface {
	PublishBattleRequest(ctx context.Context, req models.BattleRequest) error
}

type PartyHandler struct {
	members   PartyStore
	games     GameFinder
	publisher BattleRequestPublisher
	weapons   *armory.Allocator
	armours   *armory.Allocator
}

func NewPartyHandler(members PartyStore, games GameFinder, publisher BattleRequestPublisher,
	weapons, armours *armory.Allocator) *PartyHandler {
	return &PartyHandler{
		members:   members,
		games:     games,
		publisher: publisher,
		weapons:   weapons,
		armours:   armours,
	}
}

// MakeRequest represents the request body for party member creation
type MakeRequest struct {
	HeroID   int64  `json:"heroId"`
	HeroName string `json:"heroName"`
	Health   int64  `json:"health"`
}

// Make creates a party member for the principal, issuing weapon and armour
// from the anti-repeat allocators
func (h *PartyHandler) Make(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req MakeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}
	if req.HeroName == "" {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Hero name is required"})
		return
	}

	userID := middleware.Principal(r)
	member := &models.PartyMember{
		UserID:   userID,
		HeroID:   req.HeroID,
		HeroName: req.HeroName,
		Health:   req.Health,
		Weapon:   h.weapons.Pick(userID),
		Armour:   h.armours.Pick(userID),
		Level:    leveling.MinLevel,
	}

	member, err := h.members.CreateMember(r.Context(), member)
	if err != nil {
		log.Printf("[Party] Failed to create party member: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to create party member"})
		return
	}

	log.Printf("[Party] Created party member %d (%s) for user %s", member.ID, member.HeroName, userID)
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(member)
}

// Fight toggles the fighting status of a party member. Entering combat
// assigns a villain and publishes a battle request; leaving combat clears the
// villain.
func (h *PartyHandler) Fight(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req models.FightRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid request body"})
		return
	}

	log.Printf("[Party] Updating fighting status for member %d, game %d", req.PartyMemberID, req.GameID)

	userID := middleware.Principal(r)
	member, err := h.members.FindMember(r.Context(), req.PartyMemberID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Party member not found"})
			return
		}
		log.Printf("[Party] Failed to load party member %d: %v", req.PartyMemberID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to load party member"})
		return
	}

	if member.UserID != userID {
		w.WriteHeader(http.StatusForbidden)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Party member belongs to another user"})
		return
	}
	if member.Health <= 0 {
		w.WriteHeader(http.StatusPreconditionFailed)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Cannot fight with a dead hero"})
		return
	}

	game, err := h.games.FindGame(r.Context(), req.GameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Game not found"})
			return
		}
		log.Printf("[Party] Failed to load game %d: %v", req.GameID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to load game"})
		return
	}

	member.Fighting = !member.Fighting
	if member.Fighting {
		villain := catalog.RandomVillain()
		member.Villain = &villain

		battle := models.BattleRequest{
			ID:          uuid.NewString(),
			PartyMember: member,
			GameID:      game.ID,
		}
		if err := h.publisher.PublishBattleRequest(r.Context(), battle); err != nil {
			log.Printf("[Party] Failed to publish battle request for member %d: %v", member.ID, err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to start battle"})
			return
		}
		log.Printf("[Party] Battle request %s sent for member %d vs %s (game %d)",
			battle.ID, member.ID, villain, game.ID)
	} else {
		// Resolution normally clears the villain; clearing here as well
		// keeps the not-fighting/no-villain pairing when a battle is
		// abandoned before its outcome arrives.
		member.Villain = nil
		log.Printf("[Party] Battle done for member %d", member.ID)
	}

	if err := h.members.UpdateMember(r.Context(), member); err != nil {
		log.Printf("[Party] Failed to persist member %d: %v", member.ID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to update party member"})
		return
	}

	json.NewEncoder(w).Encode(member)
}

// Heal restores health to a whole party or a single member
func (h *PartyHandler) Heal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	var req models.HealRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Invalid heal request"})
		return
	}

	game, err := h.games.FindGame(r.Context(), *req.GameID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Game not found"})
			return
		}
		log.Printf("[Party] Failed to load game %d: %v", *req.GameID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to load game"})
		return
	}

	if req.HealAll {
		if _, err := h.members.HealParty(r.Context(), game.UserID); err != nil {
			log.Printf("[Party] Failed to heal party for user %s: %v", game.UserID, err)
			w.WriteHeader(http.StatusInternalServerError)
			json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to heal party"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "All members of the party healed"})
		return
	}

	if req.PartyMemberID == nil {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "PartyMemberId is required when healAll is false"})
		return
	}
	healed, err := h.members.HealMember(r.Context(), *req.PartyMemberID)
	if err != nil {
		log.Printf("[Party] Failed to heal member %d: %v", *req.PartyMemberID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to heal party member"})
		return
	}
	if healed == 0 {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Party member not found"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"message": "Party member healed"})
}

// RemoveUserParties deletes all of a user's party members and resets their
// equipment history
func (h *PartyHandler) RemoveUserParties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
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
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Cannot remove parties for another user"})
		return
	}

	deleted, err := h.members.DeleteMembersByUser(r.Context(), userID)
	if err != nil {
		log.Printf("[Party] Failed to remove parties for user %s: %v", userID, err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to remove parties"})
		return
	}

	// A removed party starts equipment issuance from scratch.
	h.weapons.Reset(userID)
	h.armours.Reset(userID)

	log.Printf("[Party] Released %d parties for user %s", deleted, userID)
	json.NewEncoder(w).Encode(map[string]int64{"deleted": deleted})
}

// All lists party members: the principal's party, or every party for
// unauthenticated (admin console) requests
func (h *PartyHandler) All(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	userID := middleware.Principal(r)
	var members []models.PartyMember
	var err error
	if userID == auth.AnonymousUser {
		members, err = h.members.ListAllMembers(r.Context())
	} else {
		members, err = h.members.ListMembers(r.Context(), userID)
	}
	if err != nil {
		log.Printf("[Party] Failed to list party members: %v", err)
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(ErrorResponse{Error: "Failed to list party members"})
		return
	}

	json.NewEncoder(w).Encode(members)
}

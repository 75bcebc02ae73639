package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"leaguebet/internal/auth"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"
)

// HandleListMatches handles GET /api/matches. The optional ?season= query
// filters to one season; without it every match is returned.
func (h *Handler) HandleListMatches(w http.ResponseWriter, r *http.Request) {
	seasonID := r.URL.Query().Get("season")

	matches, err := storage.ListMatches(seasonID)
	if err != nil {
		respondWithError(w, "Failed to list matches", http.StatusInternalServerError)
		return
	}
	if matches == nil {
		matches = []*storage.Match{}
	}
	respondWithJSON(w, http.StatusOK, matches)
}

// operatorFromContext resolves the authenticated address and checks it
// against the configured operator. Match management is operator-only.
func (h *Handler) operatorFromContext(w http.ResponseWriter, r *http.Request) (string, bool) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return "", false
	}
	if address != h.Operator {
		respondWithError(w, "Forbidden: operator only", http.StatusForbidden)
		return "", false
	}
	return address, true
}

// CreateMatchRequest is the request body for creating a match.
type CreateMatchRequest struct {
	MatchID  string `json:"match_id"`
	SeasonID string `json:"season_id" validate:"required"`
	Turn     int    `json:"turn" validate:"required,gte=1"`
	HomeTeam string `json:"home_team" validate:"required"`
	AwayTeam string `json:"away_team" validate:"required"`
	HomeOdds uint64 `json:"home_odds" validate:"required,gte=10000,lte=100000"`
	AwayOdds uint64 `json:"away_odds" validate:"required,gte=10000,lte=100000"`
	DrawOdds uint64 `json:"draw_odds" validate:"required,gte=10000,lte=100000"`
}

// HandleCreateMatch handles POST /api/matches
func (h *Handler) HandleCreateMatch(w http.ResponseWriter, r *http.Request) {
	address, ok := h.operatorFromContext(w, r)
	if !ok {
		return
	}

	var req CreateMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.MatchID == "" {
		req.MatchID = uuid.NewString()
	}

	m := &storage.Match{
		MatchID:  req.MatchID,
		SeasonID: req.SeasonID,
		Turn:     req.Turn,
		HomeTeam: req.HomeTeam,
		AwayTeam: req.AwayTeam,
		HomeOdds: req.HomeOdds,
		AwayOdds: req.AwayOdds,
		DrawOdds: req.DrawOdds,
	}
	if err := storage.CreateMatch(m); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Debug(address, "match_created", "match_id="+m.MatchID)

	created, err := storage.GetMatch(m.MatchID)
	if err != nil || created == nil {
		respondWithError(w, "Failed to load created match", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// SeedMatchRequest is the request body for supplying match randomness.
type SeedMatchRequest struct {
	Seed string `json:"seed" validate:"required"`
}

// HandleSeedMatch handles POST /api/matches/{matchID}/seed. The worker picks
// up seeded matches on its next tick and derives their results.
func (h *Handler) HandleSeedMatch(w http.ResponseWriter, r *http.Request) {
	address, ok := h.operatorFromContext(w, r)
	if !ok {
		return
	}

	var req SeedMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	matchID := chi.URLParam(r, "matchID")
	if err := storage.SetMatchSeed(matchID, req.Seed); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Debug(address, "match_seeded", "match_id="+matchID)
	respondWithJSON(w, http.StatusOK, map[string]string{"match_id": matchID, "status": "seeded"})
}

// LockOddsRequest is the request body for locking a match's odds.
type LockOddsRequest struct {
	HomeOdds uint64 `json:"home_odds" validate:"required,gte=12500,lte=19500"`
	AwayOdds uint64 `json:"away_odds" validate:"required,gte=12500,lte=19500"`
	DrawOdds uint64 `json:"draw_odds" validate:"required,gte=12500,lte=19500"`
}

// HandleLockOdds handles POST /api/matches/{matchID}/lock
func (h *Handler) HandleLockOdds(w http.ResponseWriter, r *http.Request) {
	address, ok := h.operatorFromContext(w, r)
	if !ok {
		return
	}

	var req LockOddsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	matchID := chi.URLParam(r, "matchID")
	lo := storage.LockedOdds{
		HomeOdds: req.HomeOdds,
		AwayOdds: req.AwayOdds,
		DrawOdds: req.DrawOdds,
		Locked:   true,
	}
	if err := storage.LockMatchOdds(matchID, lo); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	logger.Debug(address, "match_odds_locked", "match_id="+matchID)

	locked, err := storage.GetMatch(matchID)
	if err != nil || locked == nil {
		respondWithError(w, "Failed to load locked match", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusOK, locked)
}

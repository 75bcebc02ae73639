package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"leaguebet/internal/auth"
	"leaguebet/internal/engine"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"
)

// LegRequest is one leg of a betslip request.
type LegRequest struct {
	MatchID    string `json:"match_id" validate:"required"`
	Prediction string `json:"prediction" validate:"required,oneof=HomeWin AwayWin Draw"`
	Odds       uint64 `json:"odds" validate:"required,gte=10000,lte=100000"`
}

// PlaceBetslipRequest is the request body for placing a betslip.
type PlaceBetslipRequest struct {
	BetType    string       `json:"bet_type" validate:"required,oneof=Single Parlay SystemBet"`
	Legs       []LegRequest `json:"legs" validate:"required,min=1,max=20,dive"`
	TotalStake uint64       `json:"total_stake" validate:"required,gte=100,lte=1000000"`
	Badges     []int        `json:"badges" validate:"omitempty,max=20,dive,gte=0,lt=20"`
}

func (req *PlaceBetslipRequest) toLegs() []engine.Leg {
	legs := make([]engine.Leg, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = engine.Leg{
			MatchID:    l.MatchID,
			Prediction: engine.MatchResult(l.Prediction),
			Odds:       l.Odds,
		}
	}
	return legs
}

// HandlePlaceBetslip handles POST /api/betslips
func (h *Handler) HandlePlaceBetslip(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return
	}

	var req PlaceBetslipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	betType, err := engine.ParseBetType(req.BetType)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	slip := &storage.Betslip{
		SlipID:     uuid.NewString(),
		Bettor:     address,
		BetType:    betType,
		Legs:       req.toLegs(),
		TotalStake: req.TotalStake,
		Badges:     req.Badges,
	}

	if err := storage.PlaceBetslip(r.Context(), h.PoolID, slip); err != nil {
		respondWithError(w, err.Error(), statusForError(err))
		return
	}

	logger.Debug(address, "betslip_placed", "slip_id="+slip.SlipID)

	placed, err := storage.GetBetslip(slip.SlipID)
	if err != nil || placed == nil {
		respondWithError(w, "Failed to load placed betslip", http.StatusInternalServerError)
		return
	}
	respondWithJSON(w, http.StatusCreated, placed)
}

// HandleListBetslips handles GET /api/betslips
func (h *Handler) HandleListBetslips(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return
	}

	slips, err := storage.ListBetslipsByBettor(address)
	if err != nil {
		respondWithError(w, "Failed to list betslips", http.StatusInternalServerError)
		return
	}
	if slips == nil {
		slips = []*storage.Betslip{}
	}
	respondWithJSON(w, http.StatusOK, slips)
}

// HandleGetBetslip handles GET /api/betslips/{slipID}
func (h *Handler) HandleGetBetslip(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return
	}

	slipID := chi.URLParam(r, "slipID")
	slip, err := storage.GetBetslip(slipID)
	if err != nil {
		respondWithError(w, "Failed to get betslip", http.StatusInternalServerError)
		return
	}
	if slip == nil {
		respondWithError(w, "Betslip not found", http.StatusNotFound)
		return
	}
	if slip.Bettor != address {
		respondWithError(w, "Forbidden", http.StatusForbidden)
		return
	}
	respondWithJSON(w, http.StatusOK, slip)
}

// PreviewResponse is the response for a betslip preview.
type PreviewResponse struct {
	TargetPayout uint64              `json:"target_payout"`
	Multiplier   uint64              `json:"multiplier"`
	Capped       bool                `json:"capped"`
	Remainder    uint64              `json:"remainder"`
	Allocations  []engine.Allocation `json:"allocations,omitempty"`
}

// HandlePreviewBetslip handles POST /api/betslips/preview. Pure computation,
// nothing is persisted and odds are taken as submitted.
func (h *Handler) HandlePreviewBetslip(w http.ResponseWriter, r *http.Request) {
	var req PlaceBetslipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	betType, err := engine.ParseBetType(req.BetType)
	if err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	legs := req.toLegs()
	res, err := engine.ComputePayout(betType, legs, req.TotalStake, req.Badges)
	if err != nil {
		respondWithError(w, err.Error(), statusForError(err))
		return
	}

	resp := PreviewResponse{
		TargetPayout: res.Payout,
		Multiplier:   res.Multiplier,
		Capped:       res.Capped,
		Remainder:    res.Remainder,
	}
	if betType == engine.Parlay {
		resp.Allocations = engine.OddsWeightedAllocations(req.TotalStake, legs, res.Multiplier)
	}
	respondWithJSON(w, http.StatusOK, resp)
}

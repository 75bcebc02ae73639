package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"leaguebet/internal/engine"
)

// validate is the shared request validator.
var validate = validator.New()

// Handler carries the request-independent wiring for the API.
type Handler struct {
	PoolID string
	// Operator is the wallet address allowed to manage matches.
	Operator string
}

// NewHandler creates the API handler bound to one pool and its operator.
func NewHandler(poolID, operator string) *Handler {
	return &Handler{PoolID: poolID, Operator: operator}
}

// respondWithJSON sends a JSON response with the given status code
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

// respondWithError sends a JSON error response
func respondWithError(w http.ResponseWriter, message string, statusCode int) {
	respondWithJSON(w, statusCode, map[string]string{"error": message})
}

// statusForError maps engine errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidBetslip),
		errors.Is(err, engine.ErrZeroStake),
		errors.Is(err, engine.ErrStakeOutOfRange),
		errors.Is(err, engine.ErrDuplicateLeg),
		errors.Is(err, engine.ErrTooManyLegs),
		errors.Is(err, engine.ErrInvalidDeposit),
		errors.Is(err, engine.ErrInvalidWithdrawal),
		errors.Is(err, engine.ErrBelowMinimumLock),
		errors.Is(err, engine.ErrUnpricedLiquidity):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrPoolInactive),
		errors.Is(err, engine.ErrRoundCapExceeded),
		errors.Is(err, engine.ErrInsufficientLiquidity):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// PingResponse is the response for the ping endpoint
type PingResponse struct {
	Status string `json:"status"`
}

// HandlePing handles the GET /api/ping endpoint
func (h *Handler) HandlePing(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, PingResponse{Status: "ok"})
}

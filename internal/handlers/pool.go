package handlers

import (
	"encoding/json"
	"net/http"

	"leaguebet/internal/auth"
	"leaguebet/internal/engine"
	"leaguebet/internal/logger"
	"leaguebet/internal/storage"
)

// DepositRequest is the request body for an LP deposit.
type DepositRequest struct {
	Amount uint64 `json:"amount" validate:"required,gt=0"`
}

// WithdrawRequest is the request body for an LP withdrawal.
type WithdrawRequest struct {
	ShareID string `json:"share_id" validate:"required"`
	Shares  uint64 `json:"shares" validate:"required,gt=0"`
}

// HandleGetPool handles GET /api/pool
func (h *Handler) HandleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, err := storage.GetPool(h.PoolID)
	if err != nil {
		respondWithError(w, "Failed to get pool", http.StatusInternalServerError)
		return
	}
	if pool == nil {
		respondWithError(w, "Pool not found", http.StatusNotFound)
		return
	}
	respondWithJSON(w, http.StatusOK, pool)
}

// HandleDeposit handles POST /api/pool/deposit
func (h *Handler) HandleDeposit(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return
	}

	var req DepositRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := storage.DepositLiquidity(r.Context(), h.PoolID, address, req.Amount)
	if err != nil {
		respondWithError(w, err.Error(), statusForError(err))
		return
	}

	logger.Debug(address, "lp_deposit", "share_id="+record.ShareID)
	respondWithJSON(w, http.StatusCreated, record)
}

// HandleWithdraw handles POST /api/pool/withdraw
func (h *Handler) HandleWithdraw(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return
	}

	var req WithdrawRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(&req); err != nil {
		respondWithError(w, err.Error(), http.StatusBadRequest)
		return
	}

	res, err := storage.WithdrawLiquidity(r.Context(), h.PoolID, req.ShareID, address, req.Shares)
	if err != nil {
		respondWithError(w, err.Error(), statusForError(err))
		return
	}

	logger.Debug(address, "lp_withdraw", "share_id="+req.ShareID)
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"gross": res.Gross,
		"fee":   res.Fee,
		"net":   res.Net,
	})
}

// HandlePosition handles GET /api/pool/position
func (h *Handler) HandlePosition(w http.ResponseWriter, r *http.Request) {
	address, ok := auth.GetAddressFromContext(r.Context())
	if !ok {
		respondWithError(w, "Unauthorized: address not in context", http.StatusUnauthorized)
		return
	}

	pool, err := storage.GetPool(h.PoolID)
	if err != nil || pool == nil {
		respondWithError(w, "Failed to get pool", http.StatusInternalServerError)
		return
	}

	records, err := storage.GetShareRecords(h.PoolID, address)
	if err != nil {
		respondWithError(w, "Failed to get share records", http.StatusInternalServerError)
		return
	}

	pos := engine.AggregatePosition(*pool, records)
	if pos.LPAddress == "" {
		pos.LPAddress = address
	}
	respondWithJSON(w, http.StatusOK, pos)
}

// HandleAPY handles GET /api/pool/apy
func (h *Handler) HandleAPY(w http.ResponseWriter, r *http.Request) {
	pool, err := storage.GetPool(h.PoolID)
	if err != nil || pool == nil {
		respondWithError(w, "Failed to get pool", http.StatusInternalServerError)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int64{
		"apy_bps": engine.PoolAPY(*pool),
	})
}

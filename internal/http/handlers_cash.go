package http

import (
	"errors"
	"net/http"

	"kasir/internal/core"
	"kasir/internal/ports"
	"kasir/internal/services"
)

// handleCashLatest returns the current balance. An empty ledger reads as zero.
func (s *Server) handleCashLatest(w http.ResponseWriter, r *http.Request) {
	entry, err := s.svc.Ledger.Latest(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCashEntryView(entry))
}

func (s *Server) handleCashHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Ledger.History(r.Context(), queryInt(r, "limit", services.DefaultHistoryLimit))
	if err != nil && !errors.Is(err, ports.ErrNotFound) {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCashEntryViews(entries))
}

type postCashRequest struct {
	Category string `json:"category"`
	Amount   int64  `json:"amount"`
	Reason   string `json:"reason"`
}

// handlePostCash records a manual cash movement. buying decreases the
// balance and selling increases it.
func (s *Server) handlePostCash(w http.ResponseWriter, r *http.Request) {
	if _, err := userID(r); err != nil {
		writeError(w, r, err)
		return
	}
	var req postCashRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	category, err := core.ParseCategory(req.Category)
	if err != nil {
		writeError(w, r, err)
		return
	}

	entry, err := s.svc.Ledger.PostCashEvent(r.Context(), category, core.Money{Rupiah: req.Amount}, sanitizeInput(req.Reason))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCashEntryView(entry))
}

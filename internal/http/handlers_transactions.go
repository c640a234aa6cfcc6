package http

import (
	"encoding/json"
	"net/http"

	applog "kasir/internal/log"
	"kasir/internal/services"
)

type transactionListResponse struct {
	Transactions []transactionView `json:"transactions"`
	Totals       totalsView        `json:"totals"`
	Categories   []string          `json:"categories"`
	HasMore      bool              `json:"has_more"`
	// PlatformIgnored is set when the platform chip is suspended by the
	// selling category.
	PlatformIgnored bool `json:"platform_ignored"`
}

// handleListTransactions serves the filtered list. pages counts how many
// pages of PageSize the client has scrolled through.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	res, err := s.svc.Transactions.Query(r.Context(), f, queryInt(r, "pages", 1))
	if err != nil {
		writeError(w, r, err)
		return
	}
	categories := res.Categories
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, transactionListResponse{
		Transactions:    newTransactionViews(res.Transactions),
		Totals:          newTotalsView(res.Totals),
		Categories:      categories,
		HasMore:         res.HasMore,
		PlatformIgnored: f.PlatformIgnored(),
	})
}

type createTransactionRequest struct {
	Amount        json.RawMessage `json:"amount"`
	Description   string          `json:"description"`
	Category      string          `json:"category"`
	PaymentMethod string          `json:"payment_method"`
	Platform      string          `json:"platform"`
}

type createTransactionResponse struct {
	Transaction transactionView `json:"transaction"`
	Error       string          `json:"error,omitempty"`
}

// handleCreateTransaction records a manual transaction. When the row is
// stored but the cash ledger write fails the response is 500 and still
// carries the stored row.
func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req createTransactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}

	tx, err := s.svc.Transactions.Record(r.Context(), services.NewTransaction{
		UserID:        uid,
		Amount:        amount,
		Description:   sanitizeInput(req.Description),
		Category:      req.Category,
		PaymentMethod: req.PaymentMethod,
		Platform:      req.Platform,
	})
	if err != nil && tx.ID == "" {
		writeError(w, r, err)
		return
	}
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Transaction stored without cash ledger update",
			"transaction_id", tx.ID, "error", err)
		writeJSON(w, statusFor(err), createTransactionResponse{Transaction: newTransactionView(tx), Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusCreated, createTransactionResponse{Transaction: newTransactionView(tx)})
}

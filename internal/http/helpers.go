package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kasir/internal/core"
	applog "kasir/internal/log"
	"kasir/internal/middleware/trace"
	"kasir/internal/ports"
	"kasir/internal/services"
)

const (
	headerUserID = "X-User-ID"
	maxBodyBytes = 1 << 20
)

var errBadRequest = errors.New("bad request")

var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrInvalidCategory,
	core.ErrInvalidPaymentMethod,
	core.ErrInvalidPlatform,
	core.ErrInvalidStatus,
	core.ErrEmptyName,
	core.ErrEmptyProductCategory,
	core.ErrInvalidPrice,
	core.ErrInvalidQuantity,
	core.ErrEmptyTitle,
	core.ErrEmptyToken,
	services.ErrEmptyCart,
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotLoggedIn), errors.Is(err, core.ErrEmptyUser):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrLedgerConflict):
		return http.StatusConflict
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

type errorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
	Line      int    `json:"line,omitempty"`
	ProductID string `json:"product_id,omitempty"`
}

// writeError reports err with the message verbatim.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error(), RequestID: trace.GetRequestID(r.Context())}
	var ce *services.CheckoutError
	if errors.As(err, &ce) {
		body.Line = ce.Line
		body.ProductID = ce.ProductID
	}

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	applog.FromContext(r.Context()).Log(r.Context(), level, "Request failed",
		"path", r.URL.Path,
		"status_code", status,
		"error", err)

	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// decodeJSON reads a single JSON object of at most 1 MiB into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// userID returns the caller identity or ErrNotLoggedIn.
func userID(r *http.Request) (string, error) {
	id := sanitizeInput(r.Header.Get(headerUserID))
	if id == "" {
		return "", services.ErrNotLoggedIn
	}
	return id, nil
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}

// parseFilter reads the list filters from the query string. month and year
// must be given together; either alone is a bad request.
func parseFilter(r *http.Request) (core.FilterState, error) {
	q := r.URL.Query()
	f := core.FilterState{
		Category:      strings.ToLower(sanitizeInput(q.Get("category"))),
		PaymentMethod: strings.ToLower(sanitizeInput(q.Get("payment_method"))),
		Platform:      strings.ToLower(sanitizeInput(q.Get("platform"))),
	}

	month, year := strings.TrimSpace(q.Get("month")), strings.TrimSpace(q.Get("year"))
	switch {
	case month == "" && year == "":
		return f, nil
	case month == "":
		return f, fmt.Errorf("%w: year %q given without month", errBadRequest, year)
	case year == "":
		return f, fmt.Errorf("%w: month %q given without year", errBadRequest, month)
	}
	m, err := strconv.Atoi(month)
	if err != nil || m < 1 || m > 12 {
		return f, fmt.Errorf("%w: invalid month %q", errBadRequest, month)
	}
	y, err := strconv.Atoi(year)
	if err != nil || y < 1 {
		return f, fmt.Errorf("%w: invalid year %q", errBadRequest, year)
	}
	f.Month = time.Month(m)
	f.Year = y
	return f, nil
}

// parseAmount reads a JSON amount given either as an integer or as a till
// string such as "Rp 2.500".
func parseAmount(raw json.RawMessage) (int64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return 0, core.ErrInvalidAmount
	}
	if strings.HasPrefix(s, `"`) {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return 0, fmt.Errorf("%w: %v", errBadRequest, err)
		}
		return core.ParseRupiah(text)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: amount %s must be whole Rupiah", core.ErrInvalidAmount, s)
	}
	return v, nil
}

// queryInt reads a positive integer parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

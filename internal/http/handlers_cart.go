package http

import (
	"fmt"
	"net/http"

	"kasir/internal/core"
	"kasir/internal/ports"
)

func (s *Server) handleGetCart(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartView(s.svc.Carts.View(uid)))
}

type addCartItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int64  `json:"quantity"`
}

// handleAddCartItem puts a catalogue product in the caller's cart. A missing
// quantity adds one unit.
func (s *Server) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req addCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Quantity < 0 {
		writeError(w, r, core.ErrInvalidQuantity)
		return
	}

	p, err := s.svc.Products.Get(r.Context(), sanitizeInput(req.ProductID))
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Carts.Add(uid, p, req.Quantity)
	writeJSON(w, http.StatusOK, newCartView(s.svc.Carts.View(uid)))
}

type updateCartItemRequest struct {
	Quantity int64 `json:"quantity"`
}

// handleUpdateCartItem sets a line's quantity; zero or less removes it.
func (s *Server) handleUpdateCartItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateCartItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := r.PathValue("productID")
	if !s.svc.Carts.UpdateQuantity(uid, id, req.Quantity) {
		writeError(w, r, fmt.Errorf("product %s in cart: %w", id, ports.ErrNotFound))
		return
	}
	writeJSON(w, http.StatusOK, newCartView(s.svc.Carts.View(uid)))
}

func (s *Server) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Carts.Remove(uid, r.PathValue("productID"))
	writeJSON(w, http.StatusOK, newCartView(s.svc.Carts.View(uid)))
}

func (s *Server) handleClearCart(w http.ResponseWriter, r *http.Request) {
	uid, err := userID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.svc.Carts.Clear(uid)
	w.WriteHeader(http.StatusNoContent)
}

type checkoutRequest struct {
	PaymentMethod string `json:"payment_method"`
}

// handleCheckout turns the caller's cart into orders and transactions. On a
// mid-cart failure the error names the line; earlier lines stay written and
// the cart is kept.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	uid := sanitizeInput(r.Header.Get(headerUserID))

	res, err := s.svc.Checkout.Checkout(r.Context(), uid, req.PaymentMethod)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCheckoutView(res))
}

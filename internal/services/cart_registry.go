package services

import (
	"sync"

	"kasir/internal/core"
)

// CartRegistry keeps one cart per user for the lifetime of the process.
type CartRegistry struct {
	mu    sync.Mutex
	carts map[string]*core.Cart
}

func NewCartRegistry() *CartRegistry {
	return &CartRegistry{carts: make(map[string]*core.Cart)}
}

func (r *CartRegistry) cart(userID string) *core.Cart {
	c, ok := r.carts[userID]
	if !ok {
		c = &core.Cart{}
		r.carts[userID] = c
	}
	return c
}

func (r *CartRegistry) Add(userID string, p core.Product, qty int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart(userID).Add(p, qty)
}

func (r *CartRegistry) Remove(userID, productID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cart(userID).Remove(productID)
}

// UpdateQuantity reports whether the product was in the user's cart.
func (r *CartRegistry) UpdateQuantity(userID, productID string, qty int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cart(userID).UpdateQuantity(productID, qty)
}

func (r *CartRegistry) Clear(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.carts, userID)
}

func (r *CartRegistry) Items(userID string) []core.CartItem {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.carts[userID]; ok {
		return c.Items()
	}
	return nil
}

// CartView is a snapshot of a cart with its totals.
type CartView struct {
	Items      []core.CartItem
	Total      core.Money
	TotalItems int64
}

func (r *CartRegistry) View(userID string) CartView {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.carts[userID]
	if !ok {
		return CartView{Items: []core.CartItem{}}
	}
	return CartView{Items: c.Items(), Total: c.Total(), TotalItems: c.TotalItems()}
}

package core

// CartItem is a product line in the cart.
type CartItem struct {
	Product
	Quantity int64
}

// Subtotal is price times quantity.
func (i CartItem) Subtotal() Money {
	return i.Price.Times(i.Quantity)
}

// Cart is the transient per-session basket. It is not safe for concurrent use;
// callers serialize access.
type Cart struct {
	items []CartItem
}

// Add puts qty of p in the cart, merging with an existing line. A qty below 1
// adds a single unit.
func (c *Cart) Add(p Product, qty int64) {
	if qty < 1 {
		qty = 1
	}
	for i := range c.items {
		if c.items[i].ID == p.ID {
			c.items[i].Quantity += qty
			return
		}
	}
	c.items = append(c.items, CartItem{Product: p, Quantity: qty})
}

// Remove drops the line for productID.
func (c *Cart) Remove(productID string) {
	out := c.items[:0]
	for _, it := range c.items {
		if it.ID != productID {
			out = append(out, it)
		}
	}
	c.items = out
}

// UpdateQuantity sets the quantity of a line; a quantity of zero or less
// removes it. It reports whether the product was in the cart.
func (c *Cart) UpdateQuantity(productID string, qty int64) bool {
	for i := range c.items {
		if c.items[i].ID != productID {
			continue
		}
		if qty <= 0 {
			c.Remove(productID)
		} else {
			c.items[i].Quantity = qty
		}
		return true
	}
	return false
}

func (c *Cart) Clear() {
	c.items = nil
}

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []CartItem {
	return append([]CartItem(nil), c.items...)
}

func (c *Cart) Len() int {
	return len(c.items)
}

// Total is the sum of line subtotals.
func (c *Cart) Total() Money {
	var total Money
	for _, it := range c.items {
		total.Rupiah += it.Subtotal().Rupiah
	}
	return total
}

// TotalItems is the number of units across all lines.
func (c *Cart) TotalItems() int64 {
	var n int64
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

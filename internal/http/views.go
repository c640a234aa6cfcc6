package http

import (
	"time"

	"kasir/internal/core"
	"kasir/internal/services"
)

// Wire shapes. Amounts are whole Rupiah with a display string alongside.

type moneyView struct {
	Rupiah    int64  `json:"rupiah"`
	Formatted string `json:"formatted"`
}

func newMoneyView(m core.Money) moneyView {
	return moneyView{Rupiah: m.Rupiah, Formatted: m.String()}
}

type cashEntryView struct {
	ID          int64     `json:"id"`
	Nominal     moneyView `json:"nominal"`
	Description string    `json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newCashEntryView(e core.CashEntry) cashEntryView {
	return cashEntryView{ID: e.ID, Nominal: newMoneyView(e.Nominal), Description: e.Description, UpdatedAt: e.UpdatedAt}
}

func newCashEntryViews(es []core.CashEntry) []cashEntryView {
	out := make([]cashEntryView, 0, len(es))
	for _, e := range es {
		out = append(out, newCashEntryView(e))
	}
	return out
}

type transactionView struct {
	ID            string    `json:"id"`
	OrderID       *string   `json:"order_id"`
	UserID        string    `json:"user_id"`
	Amount        moneyView `json:"amount"`
	Status        string    `json:"status"`
	Category      string    `json:"category"`
	Type          string    `json:"type"`
	Description   string    `json:"description"`
	PaymentMethod string    `json:"payment_method"`
	Platform      *string   `json:"platform"`
	CreatedAt     time.Time `json:"created_at"`
}

func newTransactionView(t core.Transaction) transactionView {
	v := transactionView{
		ID:            t.ID,
		OrderID:       t.OrderID,
		UserID:        t.UserID,
		Amount:        newMoneyView(t.Amount),
		Status:        string(t.Status),
		Category:      string(t.Category),
		Type:          string(t.Type),
		Description:   t.Description,
		PaymentMethod: string(t.PaymentMethod),
		CreatedAt:     t.CreatedAt,
	}
	if t.Platform != "" {
		p := string(t.Platform)
		v.Platform = &p
	}
	return v
}

func newTransactionViews(ts []core.Transaction) []transactionView {
	out := make([]transactionView, 0, len(ts))
	for _, t := range ts {
		out = append(out, newTransactionView(t))
	}
	return out
}

type totalsView struct {
	Income  moneyView `json:"income"`
	Outcome moneyView `json:"outcome"`
	Net     moneyView `json:"net"`
}

func newTotalsView(t core.Totals) totalsView {
	return totalsView{Income: newMoneyView(t.Income), Outcome: newMoneyView(t.Outcome), Net: newMoneyView(t.Net())}
}

type productView struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	InStock     int64     `json:"in_stock"`
	Category    string    `json:"category"`
	Price       moneyView `json:"price"`
	UserID      string    `json:"user_id,omitempty"`
	Image       string    `json:"image"`
}

func newProductView(p core.Product) productView {
	return productView{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		InStock:     p.InStock,
		Category:    p.Category,
		Price:       newMoneyView(p.Price),
		UserID:      p.UserID,
		Image:       p.Image,
	}
}

func newProductViews(ps []core.Product) []productView {
	out := make([]productView, 0, len(ps))
	for _, p := range ps {
		out = append(out, newProductView(p))
	}
	return out
}

type cartItemView struct {
	Product  productView `json:"product"`
	Quantity int64       `json:"quantity"`
	Subtotal moneyView   `json:"subtotal"`
}

type cartView struct {
	Items      []cartItemView `json:"items"`
	Total      moneyView      `json:"total"`
	TotalItems int64          `json:"total_items"`
}

func newCartView(c services.CartView) cartView {
	items := make([]cartItemView, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemView{Product: newProductView(it.Product), Quantity: it.Quantity, Subtotal: newMoneyView(it.Subtotal())})
	}
	return cartView{Items: items, Total: newMoneyView(c.Total), TotalItems: c.TotalItems}
}

type orderView struct {
	ID          string    `json:"id"`
	ProductID   string    `json:"product_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount moneyView `json:"total_amount"`
	CreatedAt   time.Time `json:"created_at"`
}

type checkoutView struct {
	Orders       []orderView       `json:"orders"`
	Transactions []transactionView `json:"transactions"`
	CashEntries  []cashEntryView   `json:"cash_entries"`
	Total        moneyView         `json:"total"`
}

func newCheckoutView(r services.CheckoutResult) checkoutView {
	orders := make([]orderView, 0, len(r.Orders))
	for _, o := range r.Orders {
		orders = append(orders, orderView{
			ID:          o.ID,
			ProductID:   o.ProductID,
			UserID:      o.UserID,
			Status:      o.Status,
			TotalAmount: newMoneyView(o.TotalAmount),
			CreatedAt:   o.CreatedAt,
		})
	}
	return checkoutView{
		Orders:       orders,
		Transactions: newTransactionViews(r.Transactions),
		CashEntries:  newCashEntryViews(r.CashEntries),
		Total:        newMoneyView(r.Total),
	}
}

type notificationView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func newNotificationView(n core.Notification) notificationView {
	return notificationView{ID: n.ID, Title: n.Title, Description: n.Description, IsRead: n.IsRead, CreatedAt: n.CreatedAt}
}

func newNotificationViews(ns []core.Notification) []notificationView {
	out := make([]notificationView, 0, len(ns))
	for _, n := range ns {
		out = append(out, newNotificationView(n))
	}
	return out
}

type pushTokenView struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	Platform  string    `json:"platform"`
	Timestamp time.Time `json:"timestamp"`
}

type homeView struct {
	Cash          cashEntryView      `json:"cash"`
	Products      []productView      `json:"products"`
	Notifications []notificationView `json:"notifications"`
	Unread        int                `json:"unread"`
}

package services

import (
	"context"
	"errors"
	"testing"

	"kasir/internal/core"
	"kasir/internal/storage/memory"
)

func newCheckout(store *memory.Store, pub EventPublisher) (*CheckoutService, *CartRegistry) {
	carts := NewCartRegistry()
	ledger := NewLedgerService(store, WithLedgerPublisher(pub))
	return NewCheckoutService(carts, store, store, ledger, pub, nil), carts
}

func TestCheckout_CashFoldsBalancePerLine(t *testing.T) {
	store := memory.New()
	seedCash(store, 100000)
	pub := &recordingPublisher{}
	svc, carts := newCheckout(store, pub)

	carts.Add("u1", product("p1", "Kopi", 10000), 3)
	carts.Add("u1", product("p2", "Roti", 20000), 1)

	res, err := svc.Checkout(context.Background(), "u1", "cash")
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	if len(res.Orders) != 2 || len(res.Transactions) != 2 || len(res.CashEntries) != 2 {
		t.Fatalf("expected 2 rows of each kind, got %d/%d/%d",
			len(res.Orders), len(res.Transactions), len(res.CashEntries))
	}
	if got := res.CashEntries[0].Nominal.Rupiah; got != 130000 {
		t.Errorf("first entry = %d, want 130000", got)
	}
	if got := res.CashEntries[1].Nominal.Rupiah; got != 150000 {
		t.Errorf("second entry = %d, want 150000", got)
	}
	if res.Total.Rupiah != 50000 {
		t.Errorf("total = %d, want 50000", res.Total.Rupiah)
	}

	tx := res.Transactions[0]
	if tx.Category != core.CategorySelling || tx.Type != core.TypeIncome || tx.Status != core.StatusCompleted {
		t.Errorf("unexpected transaction shape %+v", tx)
	}
	if tx.Description != "Order for Kopi" {
		t.Errorf("description = %q", tx.Description)
	}
	if tx.OrderID == nil || *tx.OrderID != res.Orders[0].ID {
		t.Errorf("transaction should reference its order")
	}
	if res.Orders[0].TotalAmount.Rupiah != 30000 {
		t.Errorf("order total = %d, want 30000", res.Orders[0].TotalAmount.Rupiah)
	}
	if len(carts.Items("u1")) != 0 {
		t.Error("cart should be cleared after checkout")
	}
	if len(pub.txs) != 2 || len(pub.cash) != 2 {
		t.Errorf("expected 2 transaction and 2 cash events, got %d and %d", len(pub.txs), len(pub.cash))
	}
}

func TestCheckout_QRISLeavesLedgerAlone(t *testing.T) {
	store := memory.New()
	seedCash(store, 100000)
	svc, carts := newCheckout(store, nil)
	carts.Add("u1", product("p1", "Kopi", 10000), 2)

	res, err := svc.Checkout(context.Background(), "u1", "QRIS")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.CashEntries) != 0 {
		t.Fatalf("qris must not post cash entries, got %d", len(res.CashEntries))
	}
	hist, _ := store.History(context.Background(), 0)
	if len(hist) != 1 {
		t.Fatalf("ledger should still hold only the opening entry, got %d", len(hist))
	}
	if res.Transactions[0].PaymentMethod != core.PaymentQRIS {
		t.Errorf("payment method = %q", res.Transactions[0].PaymentMethod)
	}
}

func TestCheckout_Validation(t *testing.T) {
	tests := []struct {
		name    string
		user    string
		method  string
		fill    bool
		wantErr error
	}{
		{"not logged in", "", "cash", true, ErrNotLoggedIn},
		{"empty cart", "u1", "cash", false, ErrEmptyCart},
		{"bad payment method", "u1", "card", true, core.ErrInvalidPaymentMethod},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			svc, carts := newCheckout(store, nil)
			if tt.fill {
				carts.Add(tt.user, product("p1", "Kopi", 10000), 1)
			}
			_, err := svc.Checkout(context.Background(), tt.user, tt.method)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(store.Orders()) != 0 {
				t.Fatal("validation failures must not write")
			}
		})
	}
}

func TestCheckout_StopsAtFailingLine(t *testing.T) {
	store := memory.New()
	seedCash(store, 100000)
	carts := NewCartRegistry()
	orders := &flakyOrders{OrderStore: store, okCount: 1}
	svc := NewCheckoutService(carts, orders, store, NewLedgerService(store), nil, nil)

	carts.Add("u1", product("p1", "Kopi", 10000), 1)
	carts.Add("u1", product("p2", "Roti", 20000), 1)
	carts.Add("u1", product("p3", "Teh", 5000), 1)

	res, err := svc.Checkout(context.Background(), "u1", "cash")
	var cerr *CheckoutError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *CheckoutError, got %v", err)
	}
	if cerr.Line != 2 || cerr.ProductID != "p2" {
		t.Fatalf("expected failure at line 2 (p2), got line %d (%s)", cerr.Line, cerr.ProductID)
	}
	if orders.calls != 2 {
		t.Fatalf("the third line must not be attempted, got %d order calls", orders.calls)
	}
	if len(res.Transactions) != 1 || len(store.Transactions()) != 1 {
		t.Fatal("rows for the first line should be kept")
	}
	latest, _ := store.Latest(context.Background())
	if latest.Nominal.Rupiah != 110000 {
		t.Fatalf("balance should include only the first line, got %d", latest.Nominal.Rupiah)
	}
	if len(carts.Items("u1")) != 3 {
		t.Fatal("cart is kept when checkout fails")
	}
}

func TestCheckout_LedgerReadFailureAbortsBeforeWrites(t *testing.T) {
	store := memory.New()
	carts := NewCartRegistry()
	ledger := NewLedgerService(&brokenLedger{CashLedger: store, latestErr: errors.New("offline")})
	svc := NewCheckoutService(carts, store, store, ledger, nil, nil)
	carts.Add("u1", product("p1", "Kopi", 10000), 1)

	if _, err := svc.Checkout(context.Background(), "u1", "cash"); err == nil {
		t.Fatal("expected error")
	}
	if len(store.Orders()) != 0 {
		t.Fatal("no order should be written when the balance cannot be read")
	}
}

func TestCheckout_ZeroPriceLineStillPostsCash(t *testing.T) {
	store := memory.New()
	seedCash(store, 100000)
	svc, carts := newCheckout(store, nil)
	carts.Add("u1", product("p1", "Air putih", 0), 1)
	carts.Add("u1", product("p2", "Kopi", 10000), 1)

	res, err := svc.Checkout(context.Background(), "u1", "cash")
	if err != nil {
		t.Fatalf("a free line must not abort checkout: %v", err)
	}
	if len(res.CashEntries) != 2 {
		t.Fatalf("expected one cash entry per line, got %d", len(res.CashEntries))
	}
	if got := res.CashEntries[0].Nominal.Rupiah; got != 100000 {
		t.Errorf("free line should leave the balance at 100000, got %d", got)
	}
	if got := res.CashEntries[1].Nominal.Rupiah; got != 110000 {
		t.Errorf("second entry = %d, want 110000", got)
	}
}

package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"kasir/internal/core"
	"kasir/internal/ports"
)

func TestCashLedgerLatestAndHistory(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Latest(ctx); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("empty ledger should report ErrNotFound, got %v", err)
	}
	for i := int64(1); i <= 12; i++ {
		if _, err := s.Append(ctx, core.CashEntry{Nominal: core.Money{Rupiah: i * 100}}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	latest, err := s.Latest(ctx)
	if err != nil || latest.Nominal.Rupiah != 1200 || latest.ID != 12 {
		t.Fatalf("unexpected latest %+v err=%v", latest, err)
	}
	hist, _ := s.History(ctx, 10)
	if len(hist) != 10 || hist[0].ID != 12 || hist[9].ID != 3 {
		t.Fatalf("unexpected history %+v", hist)
	}
}

func TestAppendIfLatestDetectsConflict(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.AppendIfLatest(ctx, 0, core.CashEntry{Nominal: core.Money{Rupiah: 10}})
	if err != nil {
		t.Fatalf("append on empty ledger: %v", err)
	}
	if _, err := s.AppendIfLatest(ctx, 0, core.CashEntry{}); !errors.Is(err, core.ErrLedgerConflict) {
		t.Fatalf("stale prevID should conflict, got %v", err)
	}
	if _, err := s.AppendIfLatest(ctx, first.ID, core.CashEntry{}); err != nil {
		t.Fatalf("current prevID should append: %v", err)
	}
}

func TestListTransactionsPages(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 25; i++ {
		_, _ = s.InsertTransaction(ctx, core.Transaction{CreatedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	p1, _ := s.ListTransactions(ctx, 0, 10)
	p3, _ := s.ListTransactions(ctx, 20, 10)
	all, _ := s.ListTransactions(ctx, 0, 0)
	if len(p1) != 10 || len(p3) != 5 || len(all) != 25 {
		t.Fatalf("unexpected page sizes %d %d %d", len(p1), len(p3), len(all))
	}
	if !p1[0].CreatedAt.Equal(base.Add(24 * time.Hour)) {
		t.Fatalf("first row should be newest, got %v", p1[0].CreatedAt)
	}
	if past, _ := s.ListTransactions(ctx, 30, 10); len(past) != 0 {
		t.Fatalf("offset past end should be empty")
	}
}

func TestProductsInStockOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	a, _ := s.InsertProduct(ctx, core.Product{Name: "A", InStock: 3})
	_, _ = s.InsertProduct(ctx, core.Product{Name: "B"})

	in, _ := s.ListProducts(ctx, true)
	all, _ := s.ListProducts(ctx, false)
	if len(in) != 1 || in[0].ID != a.ID || len(all) != 2 {
		t.Fatalf("unexpected listing in=%v all=%v", in, all)
	}
	if err := s.DeleteProduct(ctx, "nope"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestNotificationsSubscribeAndMarkAll(t *testing.T) {
	ctx := context.Background()
	s := New()

	got := make(chan core.Notification, 1)
	sub, err := s.Subscribe(ctx, func(n core.Notification) { got <- n })
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	n, _ := s.InsertNotification(ctx, core.Notification{Title: "Stok habis"})
	select {
	case rcv := <-got:
		if rcv.ID != n.ID {
			t.Fatalf("unexpected delivery %+v", rcv)
		}
	default:
		t.Fatalf("subscriber was not called")
	}

	_ = sub.Close()
	_ = sub.Close()
	if s.Subscribers() != 0 {
		t.Fatalf("close should detach the subscriber")
	}
	_, _ = s.InsertNotification(ctx, core.Notification{Title: "Kedua"})
	if err := s.MarkRead(ctx, n.ID); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	changed, _ := s.MarkAllRead(ctx)
	if changed != 1 {
		t.Fatalf("only unread rows should change, got %d", changed)
	}
}

func TestPushTokenMerge(t *testing.T) {
	ctx := context.Background()
	s := New()
	_ = s.UpsertPushToken(ctx, core.PushToken{UserID: "u1", Token: "t1", Platform: "android"})
	_ = s.UpsertPushToken(ctx, core.PushToken{UserID: "u1", Token: "t2"})
	got, err := s.GetPushToken(ctx, "u1")
	if err != nil || got.Token != "t2" || got.Platform != "android" {
		t.Fatalf("merge lost fields: %+v err=%v", got, err)
	}
}

package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"kasir/internal/core"
	"kasir/internal/ports"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "kasir.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kasir.db")
	v1, err := RunMigrations(path)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	v2, err := RunMigrations(path)
	if err != nil || v1 != v2 || v1 == 0 {
		t.Fatalf("second run should be a no-op: v1=%d v2=%d err=%v", v1, v2, err)
	}
}

func TestCashLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, err := repo.Latest(ctx); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty ledger, got %v", err)
	}
	first, err := repo.Append(ctx, core.CashEntry{Nominal: core.Money{Rupiah: 200000}, Description: "Saldo awal"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	second, err := repo.Append(ctx, core.CashEntry{Nominal: core.Money{Rupiah: -5000}, Description: "minus"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	latest, err := repo.Latest(ctx)
	if err != nil || latest.ID != second.ID || latest.Nominal.Rupiah != -5000 {
		t.Fatalf("unexpected latest %+v err=%v", latest, err)
	}
	hist, err := repo.History(ctx, 10)
	if err != nil || len(hist) != 2 || hist[1].ID != first.ID {
		t.Fatalf("unexpected history %+v err=%v", hist, err)
	}
}

func TestAppendIfLatest(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e, err := repo.AppendIfLatest(ctx, 0, core.CashEntry{Nominal: core.Money{Rupiah: 1}})
	if err != nil {
		t.Fatalf("append on empty ledger: %v", err)
	}
	if _, err := repo.AppendIfLatest(ctx, 0, core.CashEntry{}); !errors.Is(err, core.ErrLedgerConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if _, err := repo.AppendIfLatest(ctx, e.ID, core.CashEntry{Nominal: core.Money{Rupiah: 2}}); err != nil {
		t.Fatalf("expected append, got %v", err)
	}
}

func TestTransactionsNewestFirstWithPaging(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	order := "order-1"

	for i := 0; i < 12; i++ {
		tx := core.Transaction{
			Amount:        core.Money{Rupiah: int64(1000 * (i + 1))},
			Status:        core.StatusCompleted,
			Category:      core.CategorySelling,
			Type:          core.TypeIncome,
			Description:   "Order",
			PaymentMethod: core.PaymentCash,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute),
		}
		if i == 0 {
			tx.OrderID = &order
			tx.Platform = core.PlatformGrab
		}
		if _, err := repo.InsertTransaction(ctx, tx); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}

	first, err := repo.ListTransactions(ctx, 0, 10)
	if err != nil || len(first) != 10 {
		t.Fatalf("unexpected first page len=%d err=%v", len(first), err)
	}
	if first[0].Amount.Rupiah != 12000 {
		t.Fatalf("newest row should come first, got %d", first[0].Amount.Rupiah)
	}
	rest, _ := repo.ListTransactions(ctx, 10, 10)
	if len(rest) != 2 {
		t.Fatalf("expected 2 rows on second page, got %d", len(rest))
	}
	oldest := rest[1]
	if oldest.OrderID == nil || *oldest.OrderID != order || oldest.Platform != core.PlatformGrab {
		t.Fatalf("nullable columns lost: %+v", oldest)
	}
	if rest[0].Platform != "" || rest[0].OrderID != nil {
		t.Fatalf("absent platform should read back empty: %+v", rest[0])
	}
}

func TestProductsAndRoles(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	p, err := repo.InsertProduct(ctx, core.Product{Name: "Kopi", Category: "Minuman", Price: core.Money{Rupiah: 15000}, InStock: 2})
	if err != nil {
		t.Fatalf("insert product: %v", err)
	}
	_, _ = repo.InsertProduct(ctx, core.Product{Name: "Habis", Category: "Minuman", Price: core.Money{Rupiah: 1}})

	in, _ := repo.ListProducts(ctx, true)
	if len(in) != 1 || in[0].ID != p.ID {
		t.Fatalf("unexpected in-stock list %+v", in)
	}
	p.InStock = 0
	if _, err := repo.UpdateProduct(ctx, p); err != nil {
		t.Fatalf("update: %v", err)
	}
	if in, _ = repo.ListProducts(ctx, true); len(in) != 0 {
		t.Fatalf("expected no in-stock products, got %+v", in)
	}
	if err := repo.DeleteProduct(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetProduct(ctx, p.ID); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}

	if _, err := repo.RoleOf(ctx, "u1"); !errors.Is(err, ports.ErrNotFound) {
		t.Fatalf("expected no role, got %v", err)
	}
	_ = repo.SetRole(ctx, "u1", core.RoleAdmin)
	if role, _ := repo.RoleOf(ctx, "u1"); role != core.RoleAdmin {
		t.Fatalf("expected admin, got %q", role)
	}
}

func TestNotificationHubDeliversInserts(t *testing.T) {
	ctx := context.Background()
	hub := NewNotificationHub(newTestRepo(t))

	var got []string
	sub, _ := hub.Subscribe(ctx, func(n core.Notification) { got = append(got, n.Title) })
	if _, err := hub.InsertNotification(ctx, core.Notification{Title: "Satu"}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	sub.Close()
	_, _ = hub.InsertNotification(ctx, core.Notification{Title: "Dua"})

	if len(got) != 1 || got[0] != "Satu" {
		t.Fatalf("unexpected deliveries %v", got)
	}
	list, _ := hub.ListNotifications(ctx)
	if len(list) != 2 {
		t.Fatalf("expected 2 stored notifications, got %d", len(list))
	}
	n, _ := hub.MarkAllRead(ctx)
	if n != 2 {
		t.Fatalf("expected 2 rows marked, got %d", n)
	}
	if n, _ = hub.MarkAllRead(ctx); n != 0 {
		t.Fatalf("second pass should change nothing, got %d", n)
	}
}

package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kasir/internal/core"
	"kasir/internal/storage/memory"
)

func TestNotificationService_ReadFlags(t *testing.T) {
	store := memory.New()
	svc := NewNotificationService(store, store)
	ctx := context.Background()

	a, _ := svc.Create(ctx, "Stok habis", "Kopi")
	if _, err := svc.Create(ctx, "Stok menipis", "Teh"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Create(ctx, "  ", "x"); !errors.Is(err, core.ErrEmptyTitle) {
		t.Fatalf("expected ErrEmptyTitle, got %v", err)
	}

	if err := svc.MarkAsRead(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	n, err := svc.MarkAllAsRead(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Fatalf("only the unread notification should flip, got %d", n)
	}
	list, _ := svc.List(ctx)
	for _, it := range list {
		if !it.IsRead {
			t.Fatalf("notification %s still unread", it.ID)
		}
	}
}

func TestNotificationInbox_RealtimePrepend(t *testing.T) {
	store := memory.New()
	svc := NewNotificationService(store, store)
	ctx := context.Background()

	old, _ := svc.Create(ctx, "Lama", "")
	inbox := NewNotificationInbox(svc)
	if err := inbox.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if err := inbox.Attach(ctx); err != nil {
		t.Fatal(err)
	}
	if err := inbox.Attach(ctx); err != nil {
		t.Fatal(err)
	}
	if store.Subscribers() != 1 {
		t.Fatalf("double attach should keep one subscription, got %d", store.Subscribers())
	}

	fresh, _ := svc.Create(ctx, "Baru", "")
	items := inbox.Items()
	if len(items) != 2 || items[0].ID != fresh.ID || items[1].ID != old.ID {
		t.Fatalf("insert should be prepended, got %+v", items)
	}
	if inbox.Unread() != 2 {
		t.Fatalf("unread = %d", inbox.Unread())
	}
	if err := inbox.MarkAsRead(ctx, fresh.ID); err != nil {
		t.Fatal(err)
	}
	if inbox.Unread() != 1 {
		t.Fatalf("unread after mark = %d", inbox.Unread())
	}

	if err := inbox.Detach(); err != nil {
		t.Fatal(err)
	}
	if store.Subscribers() != 0 {
		t.Fatal("detach should close the subscription")
	}
	_, _ = svc.Create(ctx, "Setelah", "")
	if len(inbox.Items()) != 2 {
		t.Fatal("detached inbox must not receive inserts")
	}
}

func TestNotificationService_SubscribeEndsWithContext(t *testing.T) {
	store := memory.New()
	svc := NewNotificationService(store, store)
	ctx, cancel := context.WithCancel(context.Background())

	if _, err := svc.Subscribe(ctx, func(core.Notification) {}); err != nil {
		t.Fatal(err)
	}
	cancel()

	deadline := time.Now().Add(time.Second)
	for store.Subscribers() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscription should close when its context ends")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNotificationService_NoFeed(t *testing.T) {
	svc := NewNotificationService(memory.New(), nil)
	if _, err := svc.Subscribe(context.Background(), func(core.Notification) {}); err == nil {
		t.Fatal("expected error without a feed")
	}
}

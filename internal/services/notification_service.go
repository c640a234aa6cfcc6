package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kasir/internal/core"
	"kasir/internal/ports"
)

type NotificationService struct {
	store ports.NotificationStore
	feed  ports.NotificationFeed
}

// NewNotificationService wires the store and the realtime feed. Inserts must
// go through the same object that feeds subscribers when the feed is a
// decorator around the store.
func NewNotificationService(store ports.NotificationStore, feed ports.NotificationFeed) *NotificationService {
	return &NotificationService{store: store, feed: feed}
}

func (s *NotificationService) List(ctx context.Context) ([]core.Notification, error) {
	ns, err := s.store.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return ns, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, id string) error {
	return s.store.MarkRead(ctx, id)
}

// MarkAllAsRead flips every unread notification and reports how many changed.
func (s *NotificationService) MarkAllAsRead(ctx context.Context) (int64, error) {
	n, err := s.store.MarkAllRead(ctx)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return n, nil
}

func (s *NotificationService) Create(ctx context.Context, title, description string) (core.Notification, error) {
	n := core.Notification{Title: strings.TrimSpace(title), Description: description}
	if err := n.Validate(); err != nil {
		return core.Notification{}, err
	}
	stored, err := s.store.InsertNotification(ctx, n)
	if err != nil {
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	slog.InfoContext(ctx, "Notification created", "notification_id", stored.ID)
	return stored, nil
}

// Subscribe delivers every notification inserted from now on to fn until the
// subscription is closed or ctx ends.
func (s *NotificationService) Subscribe(ctx context.Context, fn func(core.Notification)) (ports.Subscription, error) {
	if s.feed == nil {
		return nil, fmt.Errorf("realtime notifications not configured")
	}
	return s.feed.Subscribe(ctx, fn)
}

// NotificationInbox is the per-session notification list. Realtime inserts
// are prepended while it is attached.
type NotificationInbox struct {
	svc *NotificationService

	mu    sync.Mutex
	items []core.Notification
	sub   ports.Subscription
}

func NewNotificationInbox(svc *NotificationService) *NotificationInbox {
	return &NotificationInbox{svc: svc}
}

// Load replaces the list with the stored notifications.
func (b *NotificationInbox) Load(ctx context.Context) error {
	ns, err := b.svc.List(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.items = ns
	b.mu.Unlock()
	return nil
}

// Attach starts prepending realtime inserts. Attaching twice is a no-op.
func (b *NotificationInbox) Attach(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sub != nil {
		return nil
	}
	sub, err := b.svc.Subscribe(ctx, b.prepend)
	if err != nil {
		return err
	}
	b.sub = sub
	return nil
}

// Detach removes the realtime listener; the loaded list is kept.
func (b *NotificationInbox) Detach() error {
	b.mu.Lock()
	sub := b.sub
	b.sub = nil
	b.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Close()
}

func (b *NotificationInbox) prepend(n core.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.items {
		if existing.ID == n.ID {
			return
		}
	}
	b.items = append([]core.Notification{n}, b.items...)
}

// MarkAsRead updates the store, then the local copy.
func (b *NotificationInbox) MarkAsRead(ctx context.Context, id string) error {
	if err := b.svc.MarkAsRead(ctx, id); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		if b.items[i].ID == id {
			b.items[i].IsRead = true
		}
	}
	return nil
}

func (b *NotificationInbox) MarkAllAsRead(ctx context.Context) error {
	if _, err := b.svc.MarkAllAsRead(ctx); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.items {
		b.items[i].IsRead = true
	}
	return nil
}

func (b *NotificationInbox) Items() []core.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]core.Notification(nil), b.items...)
}

// Unread counts notifications not yet read.
func (b *NotificationInbox) Unread() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	n := 0
	for _, it := range b.items {
		if !it.IsRead {
			n++
		}
	}
	return n
}

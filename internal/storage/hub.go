package storage

import (
	"context"
	"sync"

	"kasir/internal/core"
	"kasir/internal/ports"
)

// NotificationHub decorates a NotificationStore so that inserts made through
// it reach in-process subscribers. It is the realtime channel for backends
// without a native change feed.
type NotificationHub struct {
	ports.NotificationStore

	mu   sync.Mutex
	subs map[*hubSubscription]func(core.Notification)
}

func NewNotificationHub(store ports.NotificationStore) *NotificationHub {
	return &NotificationHub{
		NotificationStore: store,
		subs:              make(map[*hubSubscription]func(core.Notification)),
	}
}

func (h *NotificationHub) InsertNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	n, err := h.NotificationStore.InsertNotification(ctx, n)
	if err != nil {
		return n, err
	}
	h.mu.Lock()
	fns := make([]func(core.Notification), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
	return n, nil
}

type hubSubscription struct {
	hub    *NotificationHub
	once   sync.Once
	closed chan struct{}
}

func (s *hubSubscription) Close() error {
	s.once.Do(func() {
		s.hub.mu.Lock()
		delete(s.hub.subs, s)
		s.hub.mu.Unlock()
		close(s.closed)
	})
	return nil
}

func (h *NotificationHub) Subscribe(ctx context.Context, fn func(core.Notification)) (ports.Subscription, error) {
	sub := &hubSubscription{hub: h, closed: make(chan struct{})}
	h.mu.Lock()
	h.subs[sub] = fn
	h.mu.Unlock()
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()
	return sub, nil
}

var (
	_ ports.NotificationStore = (*NotificationHub)(nil)
	_ ports.NotificationFeed  = (*NotificationHub)(nil)
)

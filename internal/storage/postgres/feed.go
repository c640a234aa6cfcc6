package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kasir/internal/core"
	"kasir/internal/ports"
)

const notificationChannel = "notifications"

// notificationPayload mirrors row_to_json(NEW) for the notifications table.
type notificationPayload struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

func decodeNotification(payload string) (core.Notification, error) {
	var p notificationPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return core.Notification{}, err
	}
	return core.Notification{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		IsRead:      p.IsRead,
		CreatedAt:   p.CreatedAt,
	}, nil
}

type listener struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (l *listener) Close() error {
	l.once.Do(func() {
		l.cancel()
		<-l.done
	})
	return nil
}

// Subscribe holds a dedicated pool connection in LISTEN mode and calls fn for
// every notification insert until the subscription is closed or ctx ends.
func (s *Store) Subscribe(ctx context.Context, fn func(core.Notification)) (ports.Subscription, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+notificationChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", notificationChannel, err)
	}

	lctx, cancel := context.WithCancel(ctx)
	l := &listener{cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(l.done)
		defer func() {
			// the connection is still LISTENing; drop it rather than return it
			conn.Hijack().Close(context.Background())
		}()
		for {
			n, err := conn.Conn().WaitForNotification(lctx)
			if err != nil {
				if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
					slog.ErrorContext(ctx, "Notification listener stopped", "error", err)
				}
				return
			}
			note, err := decodeNotification(n.Payload)
			if err != nil {
				slog.ErrorContext(ctx, "Failed to decode notification payload", "error", err)
				continue
			}
			fn(note)
		}
	}()
	return l, nil
}

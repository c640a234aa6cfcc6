package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rabbitmq/amqp091-go"

	"kasir/internal/core"
	"kasir/internal/ports"
)

// NotificationFeed decorates a NotificationStore: inserts are fanned out on a
// fanout exchange and every subscriber reads them from its own exclusive
// queue, so API replicas see each other's inserts.
type NotificationFeed struct {
	ports.NotificationStore

	client   *Client
	exchange string
}

func NewNotificationFeed(store ports.NotificationStore, client *Client, exchange string) (*NotificationFeed, error) {
	conn, err := client.Connection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("declare notifications exchange: %w", err)
	}
	return &NotificationFeed{NotificationStore: store, client: client, exchange: exchange}, nil
}

// InsertNotification stores n, then broadcasts it. A failed broadcast is
// logged; the row is already written.
func (f *NotificationFeed) InsertNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	n, err := f.NotificationStore.InsertNotification(ctx, n)
	if err != nil {
		return n, err
	}
	body, err := json.Marshal(notificationMessage(n))
	if err == nil {
		err = f.client.publish(ctx, f.exchange, "", false, body)
	}
	if err != nil {
		slog.ErrorContext(ctx, "Failed to broadcast notification", "id", n.ID, "error", err)
	}
	return n, nil
}

type feedSubscription struct {
	ch     *amqp091.Channel
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (s *feedSubscription) Close() error {
	var err error
	s.once.Do(func() {
		s.cancel()
		err = s.ch.Close()
		<-s.done
	})
	return err
}

func (f *NotificationFeed) Subscribe(ctx context.Context, fn func(core.Notification)) (ports.Subscription, error) {
	conn, err := f.client.Connection()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare subscriber queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, "", f.exchange, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("bind subscriber queue: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("consume subscriber queue: %w", err)
	}

	sctx, cancel := context.WithCancel(ctx)
	sub := &feedSubscription{ch: ch, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(sub.done)
		for {
			select {
			case <-sctx.Done():
				return
			case d, ok := <-msgs:
				if !ok {
					return
				}
				var m NotificationMessage
				if err := json.Unmarshal(d.Body, &m); err != nil {
					slog.ErrorContext(ctx, "Failed to decode notification message", "error", err)
					continue
				}
				fn(m.Notification())
			}
		}
	}()
	go func() {
		<-sctx.Done()
		sub.Close()
	}()
	return sub, nil
}

var (
	_ ports.NotificationStore = (*NotificationFeed)(nil)
	_ ports.NotificationFeed  = (*NotificationFeed)(nil)
)

// Package ports declares the data-service contracts the services depend on.
// Backends (memory, SQLite, Postgres, MongoDB) implement them.
package ports

import (
	"context"
	"errors"

	"kasir/internal/core"
)

// ErrNotFound is returned when a lookup matches no row. For the cash ledger it
// means the ledger is empty.
var ErrNotFound = errors.New("not found")

type (
	// CashLedger is the append-only cash-on-hand history.
	CashLedger interface {
		// Latest returns the newest entry or ErrNotFound.
		Latest(ctx context.Context) (core.CashEntry, error)
		// Append stores e and returns it with ID and UpdatedAt assigned.
		Append(ctx context.Context, e core.CashEntry) (core.CashEntry, error)
		// AppendIfLatest appends only when the newest entry still has prevID
		// (0 for an empty ledger); otherwise it returns core.ErrLedgerConflict.
		AppendIfLatest(ctx context.Context, prevID int64, e core.CashEntry) (core.CashEntry, error)
		// History returns up to limit entries, newest first.
		History(ctx context.Context, limit int) ([]core.CashEntry, error)
	}

	TransactionStore interface {
		InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// ListTransactions returns rows newest first. A limit <= 0 returns
		// everything from offset on.
		ListTransactions(ctx context.Context, offset, limit int) ([]core.Transaction, error)
	}

	OrderStore interface {
		InsertOrder(ctx context.Context, o core.Order) (core.Order, error)
	}

	ProductStore interface {
		ListProducts(ctx context.Context, inStockOnly bool) ([]core.Product, error)
		GetProduct(ctx context.Context, id string) (core.Product, error)
		InsertProduct(ctx context.Context, p core.Product) (core.Product, error)
		UpdateProduct(ctx context.Context, p core.Product) (core.Product, error)
		DeleteProduct(ctx context.Context, id string) error
	}

	// RoleReader resolves a user's role; ErrNotFound when the user has none.
	RoleReader interface {
		RoleOf(ctx context.Context, userID string) (string, error)
	}

	NotificationStore interface {
		// ListNotifications returns notifications newest first.
		ListNotifications(ctx context.Context) ([]core.Notification, error)
		InsertNotification(ctx context.Context, n core.Notification) (core.Notification, error)
		MarkRead(ctx context.Context, id string) error
		// MarkAllRead flips only unread rows and reports how many changed.
		MarkAllRead(ctx context.Context) (int64, error)
	}

	// NotificationFeed delivers notification inserts as they happen.
	NotificationFeed interface {
		Subscribe(ctx context.Context, fn func(core.Notification)) (Subscription, error)
	}

	// Subscription is an open realtime channel. Close is idempotent.
	Subscription interface {
		Close() error
	}

	// PushTokenStore is the document-store collection keyed by user id.
	PushTokenStore interface {
		// UpsertPushToken merges t into the user's document.
		UpsertPushToken(ctx context.Context, t core.PushToken) error
		GetPushToken(ctx context.Context, userID string) (core.PushToken, error)
	}
)

// Package postgres implements the data ports on a hosted PostgreSQL database
// through a pgx connection pool. Notification inserts are pushed to listeners
// with LISTEN/NOTIFY.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"kasir/internal/core"
	"kasir/internal/ports"
)

// cashLockKey serializes guarded ledger appends across connections.
const cashLockKey = 7_201_001

type Store struct {
	pool *pgxpool.Pool
}

// Open migrates databaseURL and connects a pool to it.
func Open(ctx context.Context, databaseURL string) (*Store, error) {
	if _, err := RunMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Latest(ctx context.Context) (core.CashEntry, error) {
	return latestCash(ctx, s.pool)
}

type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func latestCash(ctx context.Context, q queryRower) (core.CashEntry, error) {
	var e core.CashEntry
	err := q.QueryRow(ctx,
		`SELECT id, nominal, "desc", updated_at FROM cash ORDER BY updated_at DESC, id DESC LIMIT 1`).
		Scan(&e.ID, &e.Nominal.Rupiah, &e.Description, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.CashEntry{}, ports.ErrNotFound
	}
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("select latest cash: %w", err)
	}
	return e, nil
}

func insertCash(ctx context.Context, q queryRower, e core.CashEntry) (core.CashEntry, error) {
	err := q.QueryRow(ctx,
		`INSERT INTO cash (nominal, "desc") VALUES ($1, $2) RETURNING id, updated_at`,
		e.Nominal.Rupiah, e.Description).Scan(&e.ID, &e.UpdatedAt)
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("insert cash: %w", err)
	}
	return e, nil
}

func (s *Store) Append(ctx context.Context, e core.CashEntry) (core.CashEntry, error) {
	e, err := insertCash(ctx, s.pool, e)
	if err != nil {
		return e, err
	}
	slog.InfoContext(ctx, "Cash entry saved to Postgres", "id", e.ID, "nominal", e.Nominal.Rupiah)
	return e, nil
}

// AppendIfLatest takes a transaction-scoped advisory lock, re-reads the head
// of the ledger and inserts only when it still matches prevID.
func (s *Store) AppendIfLatest(ctx context.Context, prevID int64, e core.CashEntry) (core.CashEntry, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, cashLockKey); err != nil {
		return core.CashEntry{}, fmt.Errorf("lock cash ledger: %w", err)
	}
	var cur int64
	latest, err := latestCash(ctx, tx)
	switch {
	case err == nil:
		cur = latest.ID
	case !errors.Is(err, ports.ErrNotFound):
		return core.CashEntry{}, err
	}
	if cur != prevID {
		return core.CashEntry{}, core.ErrLedgerConflict
	}
	if e, err = insertCash(ctx, tx, e); err != nil {
		return core.CashEntry{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return core.CashEntry{}, fmt.Errorf("commit: %w", err)
	}
	return e, nil
}

func (s *Store) History(ctx context.Context, limit int) ([]core.CashEntry, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, nominal, "desc", updated_at FROM cash ORDER BY updated_at DESC, id DESC LIMIT $1`, lim)
	if err != nil {
		return nil, fmt.Errorf("select cash history: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.CashEntry, error) {
		var e core.CashEntry
		err := row.Scan(&e.ID, &e.Nominal.Rupiah, &e.Description, &e.UpdatedAt)
		return e, err
	})
}

func (s *Store) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	var platform *string
	if t.Platform != "" {
		p := string(t.Platform)
		platform = &p
	}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, order_id, user_id, amount, status, category, type, description, payment_method, platform)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at`,
		t.ID, t.OrderID, t.UserID, t.Amount.Rupiah, string(t.Status), string(t.Category), string(t.Type),
		t.Description, string(t.PaymentMethod), platform).Scan(&t.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, offset, limit int) ([]core.Transaction, error) {
	var lim any
	if limit > 0 {
		lim = limit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, order_id, user_id, amount, status, category, type, description, payment_method, platform, created_at
		FROM transactions ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`, lim, offset)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Transaction, error) {
		var t core.Transaction
		var platform *string
		var status, category, typ, paymentMethod string
		err := row.Scan(&t.ID, &t.OrderID, &t.UserID, &t.Amount.Rupiah, &status, &category, &typ,
			&t.Description, &paymentMethod, &platform, &t.CreatedAt)
		t.Status = core.Status(status)
		t.Category = core.Category(category)
		t.Type = core.TransactionType(typ)
		t.PaymentMethod = core.PaymentMethod(paymentMethod)
		if platform != nil {
			t.Platform = core.Platform(*platform)
		}
		return t, err
	})
}

func (s *Store) InsertOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO orders (id, product_id, user_id, status, total_amount) VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		o.ID, o.ProductID, o.UserID, o.Status, o.TotalAmount.Rupiah).Scan(&o.CreatedAt)
	if err != nil {
		return core.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

const productColumns = `id, name, description, in_stock, category, price, user_id, image`

func scanProduct(row pgx.Row) (core.Product, error) {
	var p core.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.InStock, &p.Category, &p.Price.Rupiah, &p.UserID, &p.Image)
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, inStockOnly bool) ([]core.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	if inStockOnly {
		q += ` WHERE in_stock > 0`
	}
	rows, err := s.pool.Query(ctx, q+` ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Product, error) {
		return scanProduct(row)
	})
}

func (s *Store) GetProduct(ctx context.Context, id string) (core.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Product{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("select product %s: %w", id, err)
	}
	return p, nil
}

func (s *Store) InsertProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO products (`+productColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.Name, p.Description, p.InStock, p.Category, p.Price.Rupiah, p.UserID, p.Image)
	if err != nil {
		return core.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (s *Store) UpdateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	p, err := scanProduct(s.pool.QueryRow(ctx, `
		UPDATE products SET name = $2, description = $3, in_stock = $4, category = $5, price = $6, image = $7
		WHERE id = $1 RETURNING `+productColumns,
		p.ID, p.Name, p.Description, p.InStock, p.Category, p.Price.Rupiah, p.Image))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Product{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	return p, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) RoleOf(ctx context.Context, userID string) (string, error) {
	var role string
	err := s.pool.QueryRow(ctx, `SELECT role FROM role WHERE user_id = $1`, userID).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select role: %w", err)
	}
	return role, nil
}

func (s *Store) ListNotifications(ctx context.Context) ([]core.Notification, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, is_read, created_at FROM notifications ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.Notification, error) {
		var n core.Notification
		err := row.Scan(&n.ID, &n.Title, &n.Description, &n.IsRead, &n.CreatedAt)
		return n, err
	})
}

func (s *Store) InsertNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	err := s.pool.QueryRow(ctx,
		`INSERT INTO notifications (id, title, description, is_read) VALUES ($1, $2, $3, $4) RETURNING created_at`,
		n.ID, n.Title, n.Description, n.IsRead).Scan(&n.CreatedAt)
	if err != nil {
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (s *Store) MarkRead(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (s *Store) MarkAllRead(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE notifications SET is_read = true WHERE is_read = false`)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return tag.RowsAffected(), nil
}

var (
	_ ports.CashLedger        = (*Store)(nil)
	_ ports.TransactionStore  = (*Store)(nil)
	_ ports.OrderStore        = (*Store)(nil)
	_ ports.ProductStore      = (*Store)(nil)
	_ ports.RoleReader        = (*Store)(nil)
	_ ports.NotificationStore = (*Store)(nil)
	_ ports.NotificationFeed  = (*Store)(nil)
)

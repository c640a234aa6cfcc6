package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"kasir/internal/core"
	"kasir/internal/ports"

	_ "modernc.org/sqlite"
)

// SQLiteRepository implements the relational data ports on a local SQLite file.
// Timestamps are stored as Unix milliseconds.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	if _, err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// one writer keeps "database is locked" out of concurrent checkouts
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database answers.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func millis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// Cash ledger

const latestCashQuery = `SELECT id, nominal, "desc", updated_at FROM cash ORDER BY updated_at DESC, id DESC LIMIT 1`

func (r *SQLiteRepository) Latest(ctx context.Context) (core.CashEntry, error) {
	var e core.CashEntry
	var ms int64
	err := r.db.QueryRowContext(ctx, latestCashQuery).Scan(&e.ID, &e.Nominal.Rupiah, &e.Description, &ms)
	if errors.Is(err, sql.ErrNoRows) {
		return core.CashEntry{}, ports.ErrNotFound
	}
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("select latest cash: %w", err)
	}
	e.UpdatedAt = fromMillis(ms)
	return e, nil
}

func (r *SQLiteRepository) Append(ctx context.Context, e core.CashEntry) (core.CashEntry, error) {
	e.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO cash (nominal, "desc", updated_at) VALUES (?, ?, ?)`,
		e.Nominal.Rupiah, e.Description, millis(e.UpdatedAt))
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("insert cash: %w", err)
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.CashEntry{}, fmt.Errorf("cash id: %w", err)
	}

	slog.InfoContext(ctx, "Cash entry saved to SQLite", "id", e.ID, "nominal", e.Nominal.Rupiah)
	return e, nil
}

// AppendIfLatest inserts in a single statement so the check and the write
// cannot interleave with another writer.
func (r *SQLiteRepository) AppendIfLatest(ctx context.Context, prevID int64, e core.CashEntry) (core.CashEntry, error) {
	e.UpdatedAt = r.now().UTC().Truncate(time.Millisecond)
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO cash (nominal, "desc", updated_at)
		SELECT ?, ?, ?
		WHERE COALESCE((SELECT id FROM cash ORDER BY updated_at DESC, id DESC LIMIT 1), 0) = ?`,
		e.Nominal.Rupiah, e.Description, millis(e.UpdatedAt), prevID)
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("insert cash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("cash rows affected: %w", err)
	}
	if n == 0 {
		return core.CashEntry{}, core.ErrLedgerConflict
	}
	if e.ID, err = res.LastInsertId(); err != nil {
		return core.CashEntry{}, fmt.Errorf("cash id: %w", err)
	}
	return e, nil
}

func (r *SQLiteRepository) History(ctx context.Context, limit int) ([]core.CashEntry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, nominal, "desc", updated_at FROM cash ORDER BY updated_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("select cash history: %w", err)
	}
	defer rows.Close()

	var out []core.CashEntry
	for rows.Next() {
		var e core.CashEntry
		var ms int64
		if err := rows.Scan(&e.ID, &e.Nominal.Rupiah, &e.Description, &ms); err != nil {
			return nil, fmt.Errorf("scan cash: %w", err)
		}
		e.UpdatedAt = fromMillis(ms)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Transactions

const transactionColumns = `id, order_id, user_id, amount, status, category, type, description, payment_method, platform, created_at`

func (r *SQLiteRepository) InsertTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (`+transactionColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrderID, t.UserID, t.Amount.Rupiah, string(t.Status), string(t.Category), string(t.Type),
		t.Description, string(t.PaymentMethod), nullString(string(t.Platform)), millis(t.CreatedAt))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"category", t.Category,
		"amount", t.Amount.Rupiah)
	return t, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, offset, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	out := []core.Transaction{}
	for rows.Next() {
		var (
			t        core.Transaction
			orderID  sql.NullString
			platform sql.NullString
			ms       int64
		)
		if err := rows.Scan(&t.ID, &orderID, &t.UserID, &t.Amount.Rupiah, &t.Status, &t.Category, &t.Type,
			&t.Description, &t.PaymentMethod, &platform, &ms); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if orderID.Valid {
			t.OrderID = &orderID.String
		}
		t.Platform = core.Platform(platform.String)
		t.CreatedAt = fromMillis(ms)
		out = append(out, t)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Orders

func (r *SQLiteRepository) InsertOrder(ctx context.Context, o core.Order) (core.Order, error) {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO orders (id, product_id, user_id, status, total_amount, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.ProductID, o.UserID, o.Status, o.TotalAmount.Rupiah, millis(o.CreatedAt))
	if err != nil {
		return core.Order{}, fmt.Errorf("insert order: %w", err)
	}
	return o, nil
}

// Products

const productColumns = `id, name, description, in_stock, category, price, user_id, image`

func scanProduct(sc interface{ Scan(...any) error }) (core.Product, error) {
	var p core.Product
	err := sc.Scan(&p.ID, &p.Name, &p.Description, &p.InStock, &p.Category, &p.Price.Rupiah, &p.UserID, &p.Image)
	return p, err
}

func (r *SQLiteRepository) ListProducts(ctx context.Context, inStockOnly bool) ([]core.Product, error) {
	q := `SELECT ` + productColumns + ` FROM products`
	if inStockOnly {
		q += ` WHERE in_stock > 0`
	}
	q += ` ORDER BY name`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	out := []core.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) GetProduct(ctx context.Context, id string) (core.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Product{}, ports.ErrNotFound
	}
	if err != nil {
		return core.Product{}, fmt.Errorf("select product %s: %w", id, err)
	}
	return p, nil
}

func (r *SQLiteRepository) InsertProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO products (`+productColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Description, p.InStock, p.Category, p.Price.Rupiah, p.UserID, p.Image)
	if err != nil {
		return core.Product{}, fmt.Errorf("insert product: %w", err)
	}
	return p, nil
}

func (r *SQLiteRepository) UpdateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE products SET name = ?, description = ?, in_stock = ?, category = ?, price = ?, image = ? WHERE id = ?`,
		p.Name, p.Description, p.InStock, p.Category, p.Price.Rupiah, p.Image, p.ID)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product %s: %w", p.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.Product{}, ports.ErrNotFound
	}
	return r.GetProduct(ctx, p.ID)
}

func (r *SQLiteRepository) DeleteProduct(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

// Roles

func (r *SQLiteRepository) RoleOf(ctx context.Context, userID string) (string, error) {
	var role string
	err := r.db.QueryRowContext(ctx, `SELECT role FROM role WHERE user_id = ?`, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ports.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("select role: %w", err)
	}
	return role, nil
}

// SetRole upserts a user's role.
func (r *SQLiteRepository) SetRole(ctx context.Context, userID, role string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO role (user_id, role) VALUES (?, ?) ON CONFLICT(user_id) DO UPDATE SET role = excluded.role`,
		userID, role)
	if err != nil {
		return fmt.Errorf("upsert role: %w", err)
	}
	return nil
}

// Notifications

func (r *SQLiteRepository) ListNotifications(ctx context.Context) ([]core.Notification, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, description, is_read, created_at FROM notifications ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("select notifications: %w", err)
	}
	defer rows.Close()

	out := []core.Notification{}
	for rows.Next() {
		var n core.Notification
		var ms int64
		if err := rows.Scan(&n.ID, &n.Title, &n.Description, &n.IsRead, &ms); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.CreatedAt = fromMillis(ms)
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) InsertNotification(ctx context.Context, n core.Notification) (core.Notification, error) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = r.now().UTC().Truncate(time.Millisecond)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO notifications (id, title, description, is_read, created_at) VALUES (?, ?, ?, ?, ?)`,
		n.ID, n.Title, n.Description, n.IsRead, millis(n.CreatedAt))
	if err != nil {
		return core.Notification{}, fmt.Errorf("insert notification: %w", err)
	}
	return n, nil
}

func (r *SQLiteRepository) MarkRead(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ports.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) MarkAllRead(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = 1 WHERE is_read = 0`)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	return res.RowsAffected()
}

var (
	_ ports.CashLedger        = (*SQLiteRepository)(nil)
	_ ports.TransactionStore  = (*SQLiteRepository)(nil)
	_ ports.OrderStore        = (*SQLiteRepository)(nil)
	_ ports.ProductStore      = (*SQLiteRepository)(nil)
	_ ports.RoleReader        = (*SQLiteRepository)(nil)
	_ ports.NotificationStore = (*SQLiteRepository)(nil)
)

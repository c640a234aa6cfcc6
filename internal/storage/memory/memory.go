// Package memory is an in-process implementation of every data port. It backs
// DATA_BACKEND=memory and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"kasir/internal/core"
	"kasir/internal/ports"
)

type Store struct {
	mu sync.Mutex

	cash       []core.CashEntry
	nextCashID int64

	txs      []core.Transaction
	orders   []core.Order
	products []core.Product
	roles    map[string]string
	notifs   []core.Notification
	tokens   map[string]core.PushToken

	subs    map[int]func(core.Notification)
	nextSub int

	now func() time.Time
}

func New() *Store {
	return &Store{
		roles:  make(map[string]string),
		tokens: make(map[string]core.PushToken),
		subs:   make(map[int]func(core.Notification)),
		now:    time.Now,
	}
}

// SetClock replaces the timestamp source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// SetRole assigns a role to a user, as the role table would.
func (s *Store) SetRole(userID, role string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roles[userID] = role
}

func (s *Store) Latest(_ context.Context) (core.CashEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked()
}

func (s *Store) latestLocked() (core.CashEntry, error) {
	if len(s.cash) == 0 {
		return core.CashEntry{}, ports.ErrNotFound
	}
	best := s.cash[0]
	for _, e := range s.cash[1:] {
		if newerEntry(e, best) {
			best = e
		}
	}
	return best, nil
}

func (s *Store) Append(_ context.Context, e core.CashEntry) (core.CashEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.appendLocked(e), nil
}

func (s *Store) AppendIfLatest(_ context.Context, prevID int64, e core.CashEntry) (core.CashEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var cur int64
	if latest, err := s.latestLocked(); err == nil {
		cur = latest.ID
	}
	if cur != prevID {
		return core.CashEntry{}, core.ErrLedgerConflict
	}
	return s.appendLocked(e), nil
}

func (s *Store) appendLocked(e core.CashEntry) core.CashEntry {
	s.nextCashID++
	e.ID = s.nextCashID
	e.UpdatedAt = s.now().UTC()
	s.cash = append(s.cash, e)
	return e
}

func (s *Store) History(_ context.Context, limit int) ([]core.CashEntry, error) {
	s.mu.Lock()
	out := append([]core.CashEntry(nil), s.cash...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return newerEntry(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func newerEntry(a, b core.CashEntry) bool {
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID > b.ID
}

func (s *Store) InsertTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = s.now().UTC()
	}
	s.txs = append(s.txs, t)
	return t, nil
}

func (s *Store) ListTransactions(_ context.Context, offset, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	out := make([]core.Transaction, 0, len(s.txs))
	for i := len(s.txs) - 1; i >= 0; i-- {
		out = append(out, s.txs[i])
	}
	s.mu.Unlock()
	core.SortNewestFirst(out)
	return page(out, offset, limit), nil
}

func page[T any](in []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

// Transactions returns every stored transaction in insertion order.
func (s *Store) Transactions() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.txs...)
}

func (s *Store) InsertOrder(_ context.Context, o core.Order) (core.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = s.now().UTC()
	}
	s.orders = append(s.orders, o)
	return o, nil
}

// Orders returns every stored order in insertion order.
func (s *Store) Orders() []core.Order {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Order(nil), s.orders...)
}

func (s *Store) ListProducts(_ context.Context, inStockOnly bool) ([]core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Product, 0, len(s.products))
	for _, p := range s.products {
		if inStockOnly && p.InStock <= 0 {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, nil
		}
	}
	return core.Product{}, ports.ErrNotFound
}

func (s *Store) InsertProduct(_ context.Context, p core.Product) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	s.products = append(s.products, p)
	return p, nil
}

func (s *Store) UpdateProduct(_ context.Context, p core.Product) (core.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == p.ID {
			s.products[i] = p
			return p, nil
		}
	}
	return core.Product{}, ports.ErrNotFound
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.products {
		if s.products[i].ID == id {
			s.products = append(s.products[:i], s.products[i+1:]...)
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *Store) RoleOf(_ context.Context, userID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.roles[userID]
	if !ok {
		return "", ports.ErrNotFound
	}
	return r, nil
}

func (s *Store) ListNotifications(_ context.Context) ([]core.Notification, error) {
	s.mu.Lock()
	out := append([]core.Notification(nil), s.notifs...)
	s.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// InsertNotification stores n and delivers it to every open subscription.
func (s *Store) InsertNotification(_ context.Context, n core.Notification) (core.Notification, error) {
	s.mu.Lock()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now().UTC()
	}
	// newest first so ListNotifications keeps insert order on equal timestamps
	s.notifs = append([]core.Notification{n}, s.notifs...)
	fns := make([]func(core.Notification), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(n)
	}
	return n, nil
}

func (s *Store) MarkRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifs {
		if s.notifs[i].ID == id {
			s.notifs[i].IsRead = true
			return nil
		}
	}
	return ports.ErrNotFound
}

func (s *Store) MarkAllRead(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for i := range s.notifs {
		if !s.notifs[i].IsRead {
			s.notifs[i].IsRead = true
			n++
		}
	}
	return n, nil
}

type subscription struct {
	once   sync.Once
	store  *Store
	id     int
	closed chan struct{}
}

func (s *subscription) Close() error {
	s.once.Do(func() {
		s.store.mu.Lock()
		delete(s.store.subs, s.id)
		s.store.mu.Unlock()
		close(s.closed)
	})
	return nil
}

// Subscribe registers fn for notification inserts until the subscription is
// closed or ctx ends.
func (s *Store) Subscribe(ctx context.Context, fn func(core.Notification)) (ports.Subscription, error) {
	s.mu.Lock()
	s.nextSub++
	id := s.nextSub
	s.subs[id] = fn
	s.mu.Unlock()

	sub := &subscription{store: s, id: id, closed: make(chan struct{})}
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.closed:
		}
	}()
	return sub, nil
}

// Subscribers reports the number of open subscriptions.
func (s *Store) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// UpsertPushToken merges the non-empty fields of t into the user's record.
func (s *Store) UpsertPushToken(_ context.Context, t core.PushToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.tokens[t.UserID]
	cur.UserID = t.UserID
	if t.Token != "" {
		cur.Token = t.Token
	}
	if strings.TrimSpace(t.Platform) != "" {
		cur.Platform = t.Platform
	}
	if !t.Timestamp.IsZero() {
		cur.Timestamp = t.Timestamp
	}
	s.tokens[t.UserID] = cur
	return nil
}

func (s *Store) GetPushToken(_ context.Context, userID string) (core.PushToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tokens[userID]
	if !ok {
		return core.PushToken{}, ports.ErrNotFound
	}
	return t, nil
}

var (
	_ ports.CashLedger        = (*Store)(nil)
	_ ports.TransactionStore  = (*Store)(nil)
	_ ports.OrderStore        = (*Store)(nil)
	_ ports.ProductStore      = (*Store)(nil)
	_ ports.RoleReader        = (*Store)(nil)
	_ ports.NotificationStore = (*Store)(nil)
	_ ports.NotificationFeed  = (*Store)(nil)
	_ ports.PushTokenStore    = (*Store)(nil)
)

package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"kasir/internal/core"
	"kasir/internal/metrics"
	"kasir/internal/ports"
)

// PageSize is the number of transactions fetched per page.
const PageSize = 10

// NewTransaction is a manually entered transaction.
type NewTransaction struct {
	UserID        string
	Amount        int64
	Description   string
	Category      string
	PaymentMethod string
	Platform      string
}

type TransactionService struct {
	store     ports.TransactionStore
	ledger    *LedgerService
	publisher EventPublisher
	metrics   *metrics.Metrics
}

func NewTransactionService(store ports.TransactionStore, ledger *LedgerService, publisher EventPublisher, m *metrics.Metrics) *TransactionService {
	return &TransactionService{store: store, ledger: ledger, publisher: publisher, metrics: m}
}

// parse normalizes the enum fields and leaves the checks to
// core.Transaction.Validate. Values that do not parse are kept raw so
// Validate reports them in its own order.
func (n NewTransaction) parse() (core.Transaction, error) {
	cat, err := core.ParseCategory(n.Category)
	if err != nil {
		cat = core.Category(n.Category)
	}
	pm, err := core.ParsePaymentMethod(n.PaymentMethod)
	if err != nil {
		pm = core.PaymentMethod(n.PaymentMethod)
	}
	pl, err := core.ParsePlatform(n.Platform)
	if err != nil {
		pl = core.Platform(n.Platform)
	}
	t := core.Transaction{
		UserID:        n.UserID,
		Amount:        core.Money{Rupiah: n.Amount},
		Status:        core.StatusCompleted,
		Category:      cat,
		Type:          cat.Type(),
		Description:   strings.TrimSpace(n.Description),
		PaymentMethod: pm,
		Platform:      pl,
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

// Record stores a manual transaction. Cash payments then post to the cash
// ledger; a ledger failure is returned but the transaction stays stored.
func (s *TransactionService) Record(ctx context.Context, in NewTransaction) (core.Transaction, error) {
	t, err := in.parse()
	if err != nil {
		return core.Transaction{}, err
	}

	stored, err := s.store.InsertTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	s.metrics.ObserveTransaction(string(stored.Category))
	slog.InfoContext(ctx, "Transaction recorded",
		"transaction_id", stored.ID,
		"category", stored.Category,
		"payment_method", stored.PaymentMethod,
		"amount", stored.Amount.Rupiah)
	publishTransaction(ctx, s.publisher, s.metrics, stored)

	if stored.PaymentMethod.SettlesInCash() {
		if _, err := s.ledger.PostCashEvent(ctx, stored.Category, stored.Amount, stored.Description); err != nil {
			return stored, fmt.Errorf("transaction %s saved but cash ledger not updated: %w", stored.ID, err)
		}
	}
	return stored, nil
}

// QueryResult is one stateless read of the transaction list.
type QueryResult struct {
	Transactions []core.Transaction
	Totals       core.Totals
	Categories   []string
	HasMore      bool
}

// Query loads pages*PageSize rows, or everything when chip filters are
// active, and applies f. Totals are always computed over the full set.
func (s *TransactionService) Query(ctx context.Context, f core.FilterState, pages int) (QueryResult, error) {
	all, err := s.store.ListTransactions(ctx, 0, 0)
	if err != nil {
		return QueryResult{}, fmt.Errorf("list transactions: %w", err)
	}
	res := QueryResult{
		Totals:     core.ComputeTotals(all, f),
		Categories: core.CategoryCandidates(all),
	}
	if f.NeedsFullLoad() {
		res.Transactions = core.Apply(all, f)
		return res, nil
	}
	if pages < 1 {
		pages = 1
	}
	if maxPages := len(all)/PageSize + 1; pages > maxPages {
		pages = maxPages
	}
	loaded := all
	if n := pages * PageSize; len(all) > n {
		loaded = all[:n]
		res.HasMore = true
	}
	res.Transactions = core.Apply(loaded, f)
	return res, nil
}

// TransactionFeed is the per-session list state: the rows loaded so far and
// the paging cursor.
type TransactionFeed struct {
	store ports.TransactionStore

	mu        sync.Mutex
	items     []core.Transaction
	hasMore   bool
	loading   bool
	allLoaded bool
}

func NewTransactionFeed(store ports.TransactionStore) *TransactionFeed {
	return &TransactionFeed{store: store, hasMore: true}
}

// begin marks the feed as loading; it returns false if a load is in flight.
func (f *TransactionFeed) begin() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loading {
		return false
	}
	f.loading = true
	return true
}

func (f *TransactionFeed) end() {
	f.mu.Lock()
	f.loading = false
	f.mu.Unlock()
}

// Refresh replaces the loaded rows with the first page.
func (f *TransactionFeed) Refresh(ctx context.Context) error {
	if !f.begin() {
		return nil
	}
	defer f.end()

	rows, err := f.store.ListTransactions(ctx, 0, PageSize)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	f.mu.Lock()
	f.items = rows
	f.hasMore = len(rows) == PageSize
	f.allLoaded = false
	f.mu.Unlock()
	return nil
}

// LoadMore appends the next page. It does nothing while another load runs,
// once the end is reached, or while any filter (date included) is active.
// It reports whether rows were fetched.
func (f *TransactionFeed) LoadMore(ctx context.Context, filter core.FilterState) (bool, error) {
	f.mu.Lock()
	blocked := !f.hasMore || f.allLoaded || filter.HasActiveFilters() || filter.HasDate()
	offset := len(f.items)
	f.mu.Unlock()
	if blocked || !f.begin() {
		return false, nil
	}
	defer f.end()

	rows, err := f.store.ListTransactions(ctx, offset, PageSize)
	if err != nil {
		return false, fmt.Errorf("load more transactions: %w", err)
	}
	f.mu.Lock()
	f.items = append(f.items, rows...)
	f.hasMore = len(rows) == PageSize
	f.mu.Unlock()
	return true, nil
}

// LoadAll fetches every row once.
func (f *TransactionFeed) LoadAll(ctx context.Context) error {
	f.mu.Lock()
	done := f.allLoaded
	f.mu.Unlock()
	if done || !f.begin() {
		return nil
	}
	defer f.end()

	rows, err := f.store.ListTransactions(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("load all transactions: %w", err)
	}
	f.mu.Lock()
	f.items = rows
	f.hasMore = false
	f.allLoaded = true
	f.mu.Unlock()
	return nil
}

// View returns the loaded rows narrowed by filter, loading everything first
// when a chip filter is active.
func (f *TransactionFeed) View(ctx context.Context, filter core.FilterState) ([]core.Transaction, error) {
	if filter.NeedsFullLoad() {
		if err := f.LoadAll(ctx); err != nil {
			return nil, err
		}
	}
	return core.Apply(f.Items(), filter), nil
}

// Summary totals the full history in the scope of filter's date.
func (f *TransactionFeed) Summary(ctx context.Context, filter core.FilterState) (core.Totals, error) {
	if err := f.LoadAll(ctx); err != nil {
		return core.Totals{}, err
	}
	return core.ComputeTotals(f.Items(), filter), nil
}

// Items returns a copy of the loaded rows.
func (f *TransactionFeed) Items() []core.Transaction {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]core.Transaction(nil), f.items...)
}

func (f *TransactionFeed) HasMore() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hasMore
}

func (f *TransactionFeed) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = nil
	f.hasMore = true
	f.allLoaded = false
}

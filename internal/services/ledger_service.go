// Package services holds the business operations of the point of sale. Each
// service orchestrates the data-service ports, the AMQP event publisher and
// the metrics collectors.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kasir/internal/core"
	"kasir/internal/metrics"
	"kasir/internal/ports"
)

// DefaultHistoryLimit is the number of cash entries shown on the history
// screen.
const DefaultHistoryLimit = 10

// EventPublisher receives best-effort notifications of ledger writes.
// *amqp.Client implements it.
type EventPublisher interface {
	PublishCashPosted(ctx context.Context, e core.CashEntry) error
	PublishTransactionRecorded(ctx context.Context, t core.Transaction) error
}

// LedgerService posts cash events to the append-only cash ledger.
type LedgerService struct {
	ledger    ports.CashLedger
	publisher EventPublisher
	metrics   *metrics.Metrics
	guard     bool
}

type LedgerOption func(*LedgerService)

// WithLedgerGuard makes every append conditional on the entry the balance was
// computed from still being the newest one.
func WithLedgerGuard(enabled bool) LedgerOption {
	return func(s *LedgerService) { s.guard = enabled }
}

func WithLedgerPublisher(p EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithLedgerMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

func NewLedgerService(ledger ports.CashLedger, opts ...LedgerOption) *LedgerService {
	s := &LedgerService{ledger: ledger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Latest returns the current cash-on-hand entry. An empty ledger yields a zero
// entry.
func (s *LedgerService) Latest(ctx context.Context) (core.CashEntry, error) {
	e, err := s.ledger.Latest(ctx)
	if errors.Is(err, ports.ErrNotFound) {
		return core.CashEntry{}, nil
	}
	if err != nil {
		return core.CashEntry{}, fmt.Errorf("read latest cash entry: %w", err)
	}
	return e, nil
}

// History returns the newest cash entries. A limit <= 0 uses
// DefaultHistoryLimit.
func (s *LedgerService) History(ctx context.Context, limit int) ([]core.CashEntry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	entries, err := s.ledger.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("read cash history: %w", err)
	}
	return entries, nil
}

// PostCashEvent reads the current balance, derives the next one and appends
// it. A failed read aborts before any write.
func (s *LedgerService) PostCashEvent(ctx context.Context, c core.Category, amount core.Money, reason string) (core.CashEntry, error) {
	var prev *core.CashEntry
	latest, err := s.ledger.Latest(ctx)
	switch {
	case err == nil:
		prev = &latest
	case errors.Is(err, ports.ErrNotFound):
	default:
		s.metrics.ObserveCashPost(string(c), 0, err)
		return core.CashEntry{}, fmt.Errorf("read latest cash entry: %w", err)
	}
	return s.PostFrom(ctx, prev, c, amount, reason)
}

// PostFrom appends the entry that follows prev, which the caller already
// holds. A nil prev means the ledger is empty.
func (s *LedgerService) PostFrom(ctx context.Context, prev *core.CashEntry, c core.Category, amount core.Money, reason string) (core.CashEntry, error) {
	if amount.Rupiah < 0 {
		return core.CashEntry{}, core.ErrInvalidAmount
	}
	planned := core.PlanCashEvent(prev, c, amount, reason)

	var before int64
	var prevID int64
	if prev != nil {
		before = prev.Nominal.Rupiah
		prevID = prev.ID
	}

	var (
		stored core.CashEntry
		err    error
	)
	if s.guard {
		stored, err = s.ledger.AppendIfLatest(ctx, prevID, planned)
	} else {
		stored, err = s.ledger.Append(ctx, planned)
	}
	s.metrics.ObserveCashPost(string(c), planned.Nominal.Rupiah, err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to append cash entry",
			"category", c,
			"amount", amount.Rupiah,
			"balance_before", before,
			"error", err)
		return core.CashEntry{}, fmt.Errorf("append cash entry: %w", err)
	}

	slog.InfoContext(ctx, "Cash entry posted",
		"cash_entry_id", stored.ID,
		"category", c,
		"amount", amount.Rupiah,
		"balance_before", before,
		"balance_after", stored.Nominal.Rupiah)

	s.publishCashPosted(ctx, stored)
	return stored, nil
}

func (s *LedgerService) publishCashPosted(ctx context.Context, e core.CashEntry) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP client not available, skipping cash event")
		return
	}
	err := s.publisher.PublishCashPosted(ctx, e)
	s.metrics.ObservePublish("cash.posted", err)
	if err != nil {
		// The entry is stored; the mirror catches up on the next event.
		slog.ErrorContext(ctx, "Failed to publish cash event", "cash_entry_id", e.ID, "error", err)
	}
}

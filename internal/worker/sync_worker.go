package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"kasir/internal/amqp"
	"kasir/internal/core"
	"kasir/internal/metrics"
	"kasir/internal/ports"
	"kasir/internal/sheets"
)

// SyncWorker mirrors ledger entries and transactions into Google Sheets.
// Rows are keyed by id, so a redelivered event never produces a second row.
type SyncWorker struct {
	mirror        sheets.Mirror
	ledger        ports.CashLedger
	transactions  ports.TransactionStore
	metrics       *metrics.Metrics
	backfillLimit int
	loc           *time.Location

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewSyncWorker(mirror sheets.Mirror, ledger ports.CashLedger, transactions ports.TransactionStore, m *metrics.Metrics, backfillLimit int, loc *time.Location) *SyncWorker {
	if backfillLimit <= 0 {
		backfillLimit = 500
	}
	if loc == nil {
		loc = time.UTC
	}
	return &SyncWorker{
		mirror:        mirror,
		ledger:        ledger,
		transactions:  transactions,
		metrics:       m,
		backfillLimit: backfillLimit,
		loc:           loc,
		seen:          make(map[string]struct{}),
	}
}

func seenKey(kind sheets.Kind, id string) string {
	return string(kind) + ":" + id
}

func (w *SyncWorker) isSeen(kind sheets.Kind, id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.seen[seenKey(kind, id)]
	return ok
}

func (w *SyncWorker) markSeen(kind sheets.Kind, id string) {
	w.mu.Lock()
	w.seen[seenKey(kind, id)] = struct{}{}
	w.mu.Unlock()
}

// HandleLedgerEvent mirrors one event from the queue. A returned error
// requeues the message.
func (w *SyncWorker) HandleLedgerEvent(ctx context.Context, ev *amqp.LedgerEvent) error {
	switch ev.Kind {
	case amqp.KindCashPosted:
		if ev.Cash == nil {
			slog.WarnContext(ctx, "Cash event without payload, dropping")
			return nil
		}
		e := ev.Cash.CashEntry()
		slog.InfoContext(ctx, "Processing cash event", "id", e.ID, "nominal", e.Nominal.Rupiah)
		return w.mirrorCash(ctx, e)
	case amqp.KindTransactionRecorded:
		if ev.Transaction == nil {
			slog.WarnContext(ctx, "Transaction event without payload, dropping")
			return nil
		}
		t := ev.Transaction.Transaction()
		slog.InfoContext(ctx, "Processing transaction event", "id", t.ID, "category", t.Category)
		return w.mirrorTransaction(ctx, t)
	default:
		slog.WarnContext(ctx, "Unknown ledger event kind, acknowledging", "kind", ev.Kind)
		return nil
	}
}

func (w *SyncWorker) mirrorCash(ctx context.Context, e core.CashEntry) error {
	id := strconv.FormatInt(e.ID, 10)
	done, err := w.alreadyMirrored(ctx, sheets.KindCash, id, e.UpdatedAt)
	if err != nil || done {
		return err
	}
	ref, err := w.mirror.AppendCashEntry(ctx, e)
	w.metrics.ObserveMirror(string(sheets.KindCash), err)
	if err != nil {
		return fmt.Errorf("mirror cash entry %d: %w", e.ID, err)
	}
	w.markSeen(sheets.KindCash, id)
	slog.InfoContext(ctx, "Mirrored cash entry", "id", e.ID, "ref", ref)
	return nil
}

func (w *SyncWorker) mirrorTransaction(ctx context.Context, t core.Transaction) error {
	done, err := w.alreadyMirrored(ctx, sheets.KindTransaction, t.ID, t.CreatedAt)
	if err != nil || done {
		return err
	}
	ref, err := w.mirror.AppendTransaction(ctx, t)
	w.metrics.ObserveMirror(string(sheets.KindTransaction), err)
	if err != nil {
		return fmt.Errorf("mirror transaction %s: %w", t.ID, err)
	}
	w.markSeen(sheets.KindTransaction, t.ID)
	slog.InfoContext(ctx, "Mirrored transaction", "id", t.ID, "ref", ref)
	return nil
}

// alreadyMirrored consults the in-process set first, then the sheet itself
// so redeliveries after a restart stay idempotent.
func (w *SyncWorker) alreadyMirrored(ctx context.Context, kind sheets.Kind, id string, at time.Time) (bool, error) {
	if w.isSeen(kind, id) {
		slog.DebugContext(ctx, "Row already mirrored", "kind", kind, "id", id)
		return true, nil
	}
	ids, err := w.mirror.MirroredIDs(ctx, kind, at.In(w.loc).Year())
	if err != nil {
		return false, fmt.Errorf("list mirrored %s rows: %w", kind, err)
	}
	if _, ok := ids[id]; ok {
		w.markSeen(kind, id)
		slog.DebugContext(ctx, "Row found in sheet, skipping", "kind", kind, "id", id)
		return true, nil
	}
	return false, nil
}

// StartupSyncCheck appends rows the sheet is missing, oldest first. It
// covers events lost while the worker was down.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	entries, err := w.ledger.History(ctx, w.backfillLimit)
	if err != nil {
		return fmt.Errorf("load cash history for startup check: %w", err)
	}
	txs, err := w.transactions.ListTransactions(ctx, 0, w.backfillLimit)
	if err != nil {
		return fmt.Errorf("load transactions for startup check: %w", err)
	}

	mirrored := make(map[string]map[string]struct{})
	known := func(kind sheets.Kind, year int) (map[string]struct{}, error) {
		key := fmt.Sprintf("%s:%d", kind, year)
		if ids, ok := mirrored[key]; ok {
			return ids, nil
		}
		ids, err := w.mirror.MirroredIDs(ctx, kind, year)
		if err != nil {
			return nil, fmt.Errorf("list mirrored %s rows for %d: %w", kind, year, err)
		}
		mirrored[key] = ids
		return ids, nil
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	sort.SliceStable(txs, func(i, j int) bool { return txs[i].CreatedAt.Before(txs[j].CreatedAt) })

	synced, errorCount := 0, 0
	for _, e := range entries {
		id := strconv.FormatInt(e.ID, 10)
		ids, err := known(sheets.KindCash, e.UpdatedAt.In(w.loc).Year())
		if err != nil {
			return err
		}
		if _, ok := ids[id]; ok {
			w.markSeen(sheets.KindCash, id)
			continue
		}
		_, err = w.mirror.AppendCashEntry(ctx, e)
		w.metrics.ObserveMirror(string(sheets.KindCash), err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mirror cash entry during startup", "id", e.ID, "error", err)
			errorCount++
			continue
		}
		w.markSeen(sheets.KindCash, id)
		synced++
	}
	for _, t := range txs {
		ids, err := known(sheets.KindTransaction, t.CreatedAt.In(w.loc).Year())
		if err != nil {
			return err
		}
		if _, ok := ids[t.ID]; ok {
			w.markSeen(sheets.KindTransaction, t.ID)
			continue
		}
		_, err = w.mirror.AppendTransaction(ctx, t)
		w.metrics.ObserveMirror(string(sheets.KindTransaction), err)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to mirror transaction during startup", "id", t.ID, "error", err)
			errorCount++
			continue
		}
		w.markSeen(sheets.KindTransaction, t.ID)
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"cash_checked", len(entries),
		"transactions_checked", len(txs),
		"synced", synced,
		"errors", errorCount)
	return nil
}

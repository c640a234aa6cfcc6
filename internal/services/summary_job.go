package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"kasir/internal/core"
	"kasir/internal/ports"
)

// SummaryJob posts a month-to-date summary notification once a day.
type SummaryJob struct {
	transactions  ports.TransactionStore
	ledger        *LedgerService
	notifications *NotificationService
	now           func() time.Time

	scheduler *gocron.Scheduler
}

func NewSummaryJob(transactions ports.TransactionStore, ledger *LedgerService, notifications *NotificationService) *SummaryJob {
	return &SummaryJob{
		transactions:  transactions,
		ledger:        ledger,
		notifications: notifications,
		now:           time.Now,
	}
}

// Run builds the summary for the current month and stores it as a
// notification.
func (j *SummaryJob) Run(ctx context.Context) (core.Notification, error) {
	txs, err := j.transactions.ListTransactions(ctx, 0, 0)
	if err != nil {
		return core.Notification{}, fmt.Errorf("list transactions: %w", err)
	}
	cash, err := j.ledger.Latest(ctx)
	if err != nil {
		return core.Notification{}, err
	}
	sum := core.SummarizeMonth(txs, j.now(), cash.Nominal)
	return j.notifications.Create(ctx, SummaryTitle(sum), SummaryDescription(sum))
}

func SummaryTitle(s core.MonthSummary) string {
	return fmt.Sprintf("Ringkasan %s %d", s.Month, s.Year)
}

func SummaryDescription(s core.MonthSummary) string {
	return fmt.Sprintf("Pemasukan: %s. Pengeluaran: %s. Bersih: %s. Saldo kas: %s. Transaksi: %d",
		s.Totals.Income, s.Totals.Outcome, s.Totals.Net(), s.Balance, s.Count)
}

// Start schedules Run every day at "HH:MM" in loc.
func (j *SummaryJob) Start(ctx context.Context, at string, loc *time.Location) error {
	if loc == nil {
		loc = time.UTC
	}
	s := gocron.NewScheduler(loc)
	_, err := s.Every(1).Day().At(at).Do(func() {
		n, err := j.Run(ctx)
		if err != nil {
			slog.ErrorContext(ctx, "Daily summary failed", "error", err)
			return
		}
		slog.InfoContext(ctx, "Daily summary posted", "notification_id", n.ID)
	})
	if err != nil {
		return fmt.Errorf("schedule daily summary: %w", err)
	}
	s.StartAsync()
	j.scheduler = s
	return nil
}

func (j *SummaryJob) Stop() {
	if j.scheduler != nil {
		j.scheduler.Stop()
	}
}

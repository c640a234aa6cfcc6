package services

import (
	"context"
	"errors"
	"sync"

	"kasir/internal/core"
	"kasir/internal/ports"
	"kasir/internal/storage/memory"
)

type recordingPublisher struct {
	mu   sync.Mutex
	cash []core.CashEntry
	txs  []core.Transaction
	err  error
}

func (p *recordingPublisher) PublishCashPosted(_ context.Context, e core.CashEntry) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cash = append(p.cash, e)
	return p.err
}

func (p *recordingPublisher) PublishTransactionRecorded(_ context.Context, t core.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.txs = append(p.txs, t)
	return p.err
}

// brokenLedger fails the configured calls and delegates the rest.
type brokenLedger struct {
	ports.CashLedger
	latestErr error
	appendErr error
	appends   int
}

func (l *brokenLedger) Latest(ctx context.Context) (core.CashEntry, error) {
	if l.latestErr != nil {
		return core.CashEntry{}, l.latestErr
	}
	return l.CashLedger.Latest(ctx)
}

func (l *brokenLedger) Append(ctx context.Context, e core.CashEntry) (core.CashEntry, error) {
	l.appends++
	if l.appendErr != nil {
		return core.CashEntry{}, l.appendErr
	}
	return l.CashLedger.Append(ctx, e)
}

// flakyOrders fails every insert after the first okCount.
type flakyOrders struct {
	ports.OrderStore
	okCount int
	calls   int
}

func (o *flakyOrders) InsertOrder(ctx context.Context, ord core.Order) (core.Order, error) {
	o.calls++
	if o.calls > o.okCount {
		return core.Order{}, errors.New("orders table unavailable")
	}
	return o.OrderStore.InsertOrder(ctx, ord)
}

func seedCash(store *memory.Store, rupiah int64) {
	_, _ = store.Append(context.Background(), core.CashEntry{
		Nominal:     core.Money{Rupiah: rupiah},
		Description: "opening balance",
	})
}

func product(id, name string, price int64) core.Product {
	return core.Product{ID: id, Name: name, Category: "food", Price: core.Money{Rupiah: price}, InStock: 10}
}

// Package sheets declares the spreadsheet mirror the worker writes ledger and
// transaction rows to.
package sheets

import (
	"context"

	"kasir/internal/core"
)

// Kind names a mirrored table.
type Kind string

const (
	KindCash        Kind = "cash"
	KindTransaction Kind = "transaction"
)

// Ports for outbound adapters.
type (
	CashWriter interface {
		AppendCashEntry(ctx context.Context, e core.CashEntry) (rowRef string, err error)
	}

	TransactionWriter interface {
		AppendTransaction(ctx context.Context, t core.Transaction) (rowRef string, err error)
	}

	// MirrorLister reports which row ids a year's sheet already holds.
	MirrorLister interface {
		MirroredIDs(ctx context.Context, kind Kind, year int) (map[string]struct{}, error)
	}

	// Mirror is everything the sync worker needs from a spreadsheet.
	Mirror interface {
		CashWriter
		TransactionWriter
		MirrorLister
	}
)

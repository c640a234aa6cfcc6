package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"kasir/internal/core"
	"kasir/internal/metrics"
	"kasir/internal/ports"
)

var (
	ErrNotLoggedIn = errors.New("user is not logged in")
	ErrEmptyCart   = errors.New("cart is empty")
)

// CheckoutError reports the cart line a checkout stopped at. Rows written for
// earlier lines are kept.
type CheckoutError struct {
	Line      int
	ProductID string
	Step      string
	Err       error
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("checkout line %d (product %s): %s: %v", e.Line, e.ProductID, e.Step, e.Err)
}

func (e *CheckoutError) Unwrap() error { return e.Err }

// CheckoutResult lists every row a checkout wrote.
type CheckoutResult struct {
	Orders       []core.Order
	Transactions []core.Transaction
	CashEntries  []core.CashEntry
	Total        core.Money
}

type CheckoutService struct {
	carts        *CartRegistry
	orders       ports.OrderStore
	transactions ports.TransactionStore
	ledger       *LedgerService
	publisher    EventPublisher
	metrics      *metrics.Metrics
}

func NewCheckoutService(
	carts *CartRegistry,
	orders ports.OrderStore,
	transactions ports.TransactionStore,
	ledger *LedgerService,
	publisher EventPublisher,
	m *metrics.Metrics,
) *CheckoutService {
	return &CheckoutService{
		carts:        carts,
		orders:       orders,
		transactions: transactions,
		ledger:       ledger,
		publisher:    publisher,
		metrics:      m,
	}
}

// Checkout turns the user's cart into orders and selling transactions, one
// per line, in cart order. Cash payments also append one ledger entry per
// line, each folded onto the previous one. The first failure stops the loop.
func (s *CheckoutService) Checkout(ctx context.Context, userID string, method string) (CheckoutResult, error) {
	result, err := s.checkout(ctx, userID, method)
	s.metrics.ObserveCheckout(strings.ToLower(method), err)
	return result, err
}

func (s *CheckoutService) checkout(ctx context.Context, userID string, method string) (CheckoutResult, error) {
	var result CheckoutResult

	if strings.TrimSpace(userID) == "" {
		return result, ErrNotLoggedIn
	}
	pm, err := core.ParsePaymentMethod(method)
	if err != nil {
		return result, err
	}
	items := s.carts.Items(userID)
	if len(items) == 0 {
		return result, ErrEmptyCart
	}

	var prev *core.CashEntry
	if pm.SettlesInCash() {
		latest, err := s.ledger.ledger.Latest(ctx)
		switch {
		case err == nil:
			prev = &latest
		case errors.Is(err, ports.ErrNotFound):
		default:
			return result, fmt.Errorf("read latest cash entry: %w", err)
		}
	}

	for i, item := range items {
		line := i + 1
		total := item.Subtotal()

		order, err := s.orders.InsertOrder(ctx, core.Order{
			ProductID:   item.ID,
			UserID:      userID,
			Status:      string(core.StatusCompleted),
			TotalAmount: total,
		})
		if err != nil {
			return result, s.lineFailed(ctx, line, item, "insert order", err)
		}
		result.Orders = append(result.Orders, order)

		orderID := order.ID
		tx, err := s.transactions.InsertTransaction(ctx, core.Transaction{
			OrderID:       &orderID,
			UserID:        userID,
			Amount:        total,
			Status:        core.StatusCompleted,
			Category:      core.CategorySelling,
			Type:          core.TypeIncome,
			Description:   "Order for " + item.Name,
			PaymentMethod: pm,
		})
		if err != nil {
			return result, s.lineFailed(ctx, line, item, "insert transaction", err)
		}
		result.Transactions = append(result.Transactions, tx)
		s.publishTransaction(ctx, tx)

		if pm.SettlesInCash() {
			entry, err := s.ledger.PostFrom(ctx, prev, core.CategorySelling, total, tx.Description)
			if err != nil {
				return result, s.lineFailed(ctx, line, item, "post cash entry", err)
			}
			result.CashEntries = append(result.CashEntries, entry)
			prev = &entry
		}
		result.Total.Rupiah += total.Rupiah
	}

	s.carts.Clear(userID)
	slog.InfoContext(ctx, "Checkout completed",
		"user_id", userID,
		"payment_method", pm,
		"lines", len(items),
		"amount", result.Total.Rupiah)
	return result, nil
}

func (s *CheckoutService) lineFailed(ctx context.Context, line int, item core.CartItem, step string, err error) error {
	slog.ErrorContext(ctx, "Checkout aborted",
		"line", line,
		"product_id", item.ID,
		"step", step,
		"error", err)
	return &CheckoutError{Line: line, ProductID: item.ID, Step: step, Err: err}
}

func (s *CheckoutService) publishTransaction(ctx context.Context, t core.Transaction) {
	s.metrics.ObserveTransaction(string(t.Category))
	publishTransaction(ctx, s.publisher, s.metrics, t)
}

func publishTransaction(ctx context.Context, p EventPublisher, m *metrics.Metrics, t core.Transaction) {
	if p == nil {
		return
	}
	err := p.PublishTransactionRecorded(ctx, t)
	m.ObservePublish("transaction.recorded", err)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish transaction event", "transaction_id", t.ID, "error", err)
	}
}

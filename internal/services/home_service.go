package services

import (
	"context"

	"golang.org/x/sync/errgroup"

	"kasir/internal/core"
)

// Home is everything the landing screen shows.
type Home struct {
	Cash          core.CashEntry
	Products      []core.Product
	Notifications []core.Notification
	Unread        int
}

type HomeService struct {
	ledger        *LedgerService
	products      *ProductService
	notifications *NotificationService
}

func NewHomeService(ledger *LedgerService, products *ProductService, notifications *NotificationService) *HomeService {
	return &HomeService{ledger: ledger, products: products, notifications: notifications}
}

// Load fetches the cash balance, in-stock products and notifications
// concurrently. The first error cancels the others.
func (s *HomeService) Load(ctx context.Context) (Home, error) {
	var home Home
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		cash, err := s.ledger.Latest(ctx)
		home.Cash = cash
		return err
	})
	g.Go(func() error {
		products, err := s.products.ListInStock(ctx)
		home.Products = products
		return err
	})
	g.Go(func() error {
		ns, err := s.notifications.List(ctx)
		home.Notifications = ns
		return err
	})

	if err := g.Wait(); err != nil {
		return Home{}, err
	}
	for _, n := range home.Notifications {
		if !n.IsRead {
			home.Unread++
		}
	}
	return home, nil
}

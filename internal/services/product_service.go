package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"kasir/internal/cache"
	"kasir/internal/core"
	"kasir/internal/ports"
)

// DefaultProductImage is used when a product is created without an image.
const DefaultProductImage = "https://picsum.photos/200"

const inStockKey = "products:in_stock"

var ErrForbidden = errors.New("admin role required")

// ProductInput carries the editable product fields.
type ProductInput struct {
	Name        string
	Description string
	InStock     *int64
	Category    string
	Price       int64
	Image       string
}

// ProductService serves the catalogue. The in-stock list is cached and
// dropped on every write.
type ProductService struct {
	store ports.ProductStore
	roles ports.RoleReader
	cache *cache.LRUCache[[]core.Product]
}

func NewProductService(store ports.ProductStore, roles ports.RoleReader, ttl time.Duration) *ProductService {
	return &ProductService{
		store: store,
		roles: roles,
		cache: cache.NewLRUCache[[]core.Product](4, ttl),
	}
}

// Cache exposes the product cache so a cache.Manager can sweep it.
func (s *ProductService) Cache() *cache.LRUCache[[]core.Product] {
	return s.cache
}

// ListInStock returns products with stock left.
func (s *ProductService) ListInStock(ctx context.Context) ([]core.Product, error) {
	if products, ok := s.cache.Get(inStockKey); ok {
		return products, nil
	}
	products, err := s.store.ListProducts(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	s.cache.Set(inStockKey, products)
	return products, nil
}

func (s *ProductService) ListAll(ctx context.Context) ([]core.Product, error) {
	products, err := s.store.ListProducts(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

func (s *ProductService) Get(ctx context.Context, id string) (core.Product, error) {
	return s.store.GetProduct(ctx, id)
}

func (s *ProductService) requireAdmin(ctx context.Context, userID string) error {
	if strings.TrimSpace(userID) == "" {
		return ErrNotLoggedIn
	}
	role, err := s.roles.RoleOf(ctx, userID)
	if errors.Is(err, ports.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("read role: %w", err)
	}
	if role != core.RoleAdmin {
		return ErrForbidden
	}
	return nil
}

func (in ProductInput) apply(p core.Product) core.Product {
	p.Name = strings.TrimSpace(in.Name)
	p.Description = in.Description
	p.Category = strings.TrimSpace(in.Category)
	p.Price = core.Money{Rupiah: in.Price}
	if in.InStock != nil {
		p.InStock = *in.InStock
	}
	if in.Image != "" {
		p.Image = in.Image
	}
	return p
}

// Create adds a product owned by userID. Stock defaults to 0.
func (s *ProductService) Create(ctx context.Context, userID string, in ProductInput) (core.Product, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return core.Product{}, err
	}
	p := in.apply(core.Product{UserID: userID, Image: DefaultProductImage})
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	stored, err := s.store.InsertProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("insert product: %w", err)
	}
	s.cache.Purge()
	slog.InfoContext(ctx, "Product created", "product_id", stored.ID, "user_id", userID)
	return stored, nil
}

func (s *ProductService) Update(ctx context.Context, userID, id string, in ProductInput) (core.Product, error) {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return core.Product{}, err
	}
	current, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return core.Product{}, err
	}
	p := in.apply(current)
	if err := p.Validate(); err != nil {
		return core.Product{}, err
	}
	stored, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}
	s.cache.Purge()
	slog.InfoContext(ctx, "Product updated", "product_id", id, "user_id", userID)
	return stored, nil
}

func (s *ProductService) Delete(ctx context.Context, userID, id string) error {
	if err := s.requireAdmin(ctx, userID); err != nil {
		return err
	}
	if err := s.store.DeleteProduct(ctx, id); err != nil {
		return err
	}
	s.cache.Purge()
	slog.InfoContext(ctx, "Product deleted", "product_id", id, "user_id", userID)
	return nil
}

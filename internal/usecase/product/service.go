package product

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/Pesokrava/product_catalog/internal/domain"
	"github.com/Pesokrava/product_catalog/internal/pkg/logger"
	pkgvalidator "github.com/Pesokrava/product_catalog/internal/pkg/validator"
)

// Service handles product business logic
type Service struct {
	products domain.ProductRepository
	stocks   domain.StockStore
	cache    domain.ProductCache
	validate *validator.Validate
	newID    func() string
	logger   *logger.Logger
}

// Option configures a Service
type Option func(*Service)

// WithCache enables cache-aside lookups for GetByID
func WithCache(cache domain.ProductCache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithIDGenerator overrides the product id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		s.newID = newID
	}
}

// NewService creates a new product service
func NewService(products domain.ProductRepository, stocks domain.StockStore, log *logger.Logger, opts ...Option) *Service {
	s := &Service{
		products: products,
		stocks:   stocks,
		validate: pkgvalidator.Get(),
		newID:    uuid.NewString,
		logger:   log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateFromInput validates input and writes the product and its stock row.
//
// The two writes are not atomic. When the stock write fails the product row is
// left in place without stock (an orphan) and the call still returns an
// ErrPersistence error; orphans are reconciled out of band.
func (s *Service) CreateFromInput(ctx context.Context, input *domain.ProductInput) (*domain.Product, error) {
	if err := input.Validate(s.validate); err != nil {
		s.logger.Debugf("Product input validation failed: %v", err)
		return nil, err
	}

	product := &domain.Product{
		ID:          s.newID(),
		Title:       input.Title,
		Description: input.Description,
		Price:       input.Price,
	}
	stock := &domain.Stock{
		ProductID: product.ID,
		Count:     input.StockCount(),
	}

	if err := s.products.Put(ctx, product); err != nil {
		s.logger.Error("Failed to write product", err)
		return nil, fmt.Errorf("%w: write product %s: %w", domain.ErrPersistence, product.ID, err)
	}

	if err := s.stocks.Put(ctx, stock); err != nil {
		s.logger.WithFields(map[string]interface{}{
			"product_id": product.ID,
			"orphan":     true,
		}).Error("Failed to write stock, product left without stock", err)
		return nil, fmt.Errorf("%w: write stock for product %s: %w", domain.ErrPersistence, product.ID, err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateProduct(ctx, product.ID); err != nil {
			s.logger.Warnf("Failed to invalidate cached product %s: %v", product.ID, err)
		}
	}

	s.logger.WithFields(map[string]interface{}{
		"product_id": product.ID,
		"title":      product.Title,
		"count":      stock.Count,
	}).Info("Product created successfully")

	return product, nil
}

// GetByID retrieves a product with its stock count
func (s *Service) GetByID(ctx context.Context, id string) (*domain.AvailableProduct, error) {
	if s.cache != nil {
		cached, err := s.cache.GetProduct(ctx, id)
		if err == nil {
			s.logger.Debugf("Cache hit for product %s", id)
			return cached, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Warnf("Failed to read product %s from cache: %v", id, err)
		}
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.logger.Debugf("Product not found: %s", id)
		} else {
			s.logger.Error("Failed to get product", err)
		}
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetProduct(ctx, product); err != nil {
			s.logger.Warnf("Failed to cache product %s: %v", id, err)
		}
	}

	return product, nil
}

// List retrieves a paginated list of products
func (s *Service) List(ctx context.Context, limit, offset int) ([]*domain.AvailableProduct, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	products, err := s.products.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("Failed to list products", err)
		return nil, 0, err
	}

	total, err := s.products.Count(ctx)
	if err != nil {
		s.logger.Error("Failed to count products", err)
		return nil, 0, err
	}

	return products, total, nil
}

package domain

import (
	"context"
)

// Product represents a catalog product
type Product struct {
	ID          string  `json:"id" db:"id"`
	Title       string  `json:"title" db:"title"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
}

// Stock holds the available quantity of a product
type Stock struct {
	ProductID string `json:"product_id" db:"product_id"`
	Count     int    `json:"count" db:"count"`
}

// AvailableProduct is a product joined with its stock count, as served by the read API
type AvailableProduct struct {
	Product
	Count int `json:"count" db:"count"`
}

// ProductStore is the write port over product records.
// Put overwrites any existing record with the same ID.
type ProductStore interface {
	Put(ctx context.Context, product *Product) error
}

// StockStore is the write port over stock records.
// Put overwrites any existing record with the same ProductID.
type StockStore interface {
	Put(ctx context.Context, stock *Stock) error
}

// ProductReader defines read access used by the HTTP layer
type ProductReader interface {
	// GetByID retrieves a product with its stock count
	GetByID(ctx context.Context, id string) (*AvailableProduct, error)

	// List retrieves a paginated list of products with stock counts
	List(ctx context.Context, limit, offset int) ([]*AvailableProduct, error)

	// Count returns the total number of products
	Count(ctx context.Context) (int, error)
}

// ProductRepository combines product writes and reads
type ProductRepository interface {
	ProductStore
	ProductReader
}

// StockRepository defines the interface for stock data access
type StockRepository interface {
	StockStore

	// GetByProductID retrieves the stock record of a product
	GetByProductID(ctx context.Context, productID string) (*Stock, error)
}

// ProductCache caches read-side product lookups
type ProductCache interface {
	GetProduct(ctx context.Context, id string) (*AvailableProduct, error)
	SetProduct(ctx context.Context, product *AvailableProduct) error
	InvalidateProduct(ctx context.Context, id string) error
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

// StockRepository implements domain.StockRepository for PostgreSQL
type StockRepository struct {
	db *sqlx.DB
}

// NewStockRepository creates a new PostgreSQL stock repository
func NewStockRepository(db *sqlx.DB) *StockRepository {
	return &StockRepository{db: db}
}

// Put inserts a stock row or overwrites the count of an existing one
func (r *StockRepository) Put(ctx context.Context, stock *domain.Stock) error {
	query := `
		INSERT INTO stock (product_id, count)
		VALUES ($1, $2)
		ON CONFLICT (product_id) DO UPDATE SET count = EXCLUDED.count
	`

	_, err := r.db.ExecContext(ctx, query, stock.ProductID, stock.Count)
	return err
}

// GetByProductID retrieves the stock row of a product
func (r *StockRepository) GetByProductID(ctx context.Context, productID string) (*domain.Stock, error) {
	query := `SELECT product_id, count FROM stock WHERE product_id = $1`

	var stock domain.Stock
	err := r.db.GetContext(ctx, &stock, query, productID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &stock, nil
}

package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/Pesokrava/product_catalog/internal/domain"
)

// ProductRepository implements domain.ProductRepository for PostgreSQL
type ProductRepository struct {
	db *sqlx.DB
}

// NewProductRepository creates a new PostgreSQL product repository
func NewProductRepository(db *sqlx.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

// Put inserts a product or overwrites the existing row with the same id
func (r *ProductRepository) Put(ctx context.Context, product *domain.Product) error {
	query := `
		INSERT INTO products (id, title, description, price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title, description = EXCLUDED.description, price = EXCLUDED.price
	`

	_, err := r.db.ExecContext(
		ctx,
		query,
		product.ID,
		product.Title,
		product.Description,
		product.Price,
	)
	return err
}

// GetByID retrieves a product joined with its stock count.
// A product without a stock row reports a count of zero.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.AvailableProduct, error) {
	query := `
		SELECT p.id, p.title, p.description, p.price, COALESCE(s.count, 0) AS count
		FROM products p
		LEFT JOIN stock s ON s.product_id = p.id
		WHERE p.id = $1
	`

	var product domain.AvailableProduct
	err := r.db.GetContext(ctx, &product, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	return &product, nil
}

// List retrieves a paginated list of products with stock counts
func (r *ProductRepository) List(ctx context.Context, limit, offset int) ([]*domain.AvailableProduct, error) {
	query := `
		SELECT p.id, p.title, p.description, p.price, COALESCE(s.count, 0) AS count
		FROM products p
		LEFT JOIN stock s ON s.product_id = p.id
		ORDER BY p.created_at DESC, p.id
		LIMIT $1 OFFSET $2
	`

	products := make([]*domain.AvailableProduct, 0)
	err := r.db.SelectContext(ctx, &products, query, limit, offset)
	if err != nil {
		return nil, err
	}

	return products, nil
}

// Count returns the total number of products
func (r *ProductRepository) Count(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM products`

	var count int
	err := r.db.GetContext(ctx, &count, query)
	if err != nil {
		return 0, err
	}

	return count, nil
}

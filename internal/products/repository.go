package products

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles product persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a product repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const productColumns = `id, name, description, price, original_price, category, in_stock, image_url, seller_id, created_at, updated_at`

// Create inserts a new product.
func (r *Repository) Create(ctx context.Context, p *models.Product) error {
	const q = `INSERT INTO products (name, description, price, original_price, category, in_stock, image_url, seller_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.InStock, p.ImageURL, p.SellerID).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetByID returns a product by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(r.pool.QueryRow(ctx, q, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// List returns products, optionally filtered by seller, newest first.
func (r *Repository) List(ctx context.Context, sellerID *uuid.UUID) ([]models.Product, error) {
	base := `SELECT ` + productColumns + ` FROM products`
	var args []interface{}
	var cond string
	if sellerID != nil {
		cond = " WHERE seller_id = $1"
		args = append(args, *sellerID)
	}
	rows, err := r.pool.Query(ctx, base+cond+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

// Update updates a product's editable fields.
func (r *Repository) Update(ctx context.Context, p *models.Product) error {
	const q = `UPDATE products SET name = $1, description = $2, price = $3, original_price = $4,
		category = $5, in_stock = $6, updated_at = NOW() WHERE id = $7`
	_, err := r.pool.Exec(ctx, q, p.Name, p.Description, p.Price, p.OriginalPrice, p.Category, p.InStock, p.ID)
	return err
}

// SetImageURL stores the uploaded image location for a product.
func (r *Repository) SetImageURL(ctx context.Context, id uuid.UUID, url string) error {
	const q = `UPDATE products SET image_url = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, url)
	return err
}

// Delete removes a product by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM products WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

func scanProduct(row pgx.Row) (*models.Product, error) {
	var p models.Product
	err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.Category,
		&p.InStock, &p.ImageURL, &p.SellerID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

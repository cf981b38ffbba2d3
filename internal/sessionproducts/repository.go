package sessionproducts

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles the session-to-product showcase list.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session products repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Attach links a product to a session. Re-attaching an existing pair updates
// its featured flag and display order instead of failing.
func (r *Repository) Attach(ctx context.Context, sp *models.SessionProduct) error {
	const q = `INSERT INTO session_products (session_id, product_id, featured, display_order)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id, product_id) DO UPDATE SET
			featured = EXCLUDED.featured,
			display_order = EXCLUDED.display_order
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, sp.SessionID, sp.ProductID, sp.Featured, sp.DisplayOrder).
		Scan(&sp.ID, &sp.CreatedAt)
}

// Detach removes a product from a session's list.
func (r *Repository) Detach(ctx context.Context, sessionID, productID uuid.UUID) error {
	const q = `DELETE FROM session_products WHERE session_id = $1 AND product_id = $2`
	_, err := r.pool.Exec(ctx, q, sessionID, productID)
	return err
}

// ListBySession returns a session's products with catalog details, ordered by
// display order.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID, featuredOnly bool) ([]models.SessionProduct, error) {
	q := `SELECT sp.id, sp.session_id, sp.product_id, sp.featured, sp.display_order, sp.created_at,
			p.id, p.name, p.description, p.price, p.original_price, p.category, p.in_stock, p.image_url, p.seller_id, p.created_at, p.updated_at
		FROM session_products sp
		JOIN products p ON p.id = sp.product_id
		WHERE sp.session_id = $1`
	if featuredOnly {
		q += ` AND sp.featured`
	}
	q += ` ORDER BY sp.display_order ASC, sp.created_at ASC`

	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.SessionProduct
	for rows.Next() {
		var sp models.SessionProduct
		var p models.Product
		if err := rows.Scan(&sp.ID, &sp.SessionID, &sp.ProductID, &sp.Featured, &sp.DisplayOrder, &sp.CreatedAt,
			&p.ID, &p.Name, &p.Description, &p.Price, &p.OriginalPrice, &p.Category, &p.InStock, &p.ImageURL, &p.SellerID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		sp.Product = &p
		list = append(list, sp)
	}
	return list, rows.Err()
}

// SetFeatured flips the featured flag on an attached product.
func (r *Repository) SetFeatured(ctx context.Context, sessionID, productID uuid.UUID, featured bool) error {
	const q = `UPDATE session_products SET featured = $3 WHERE session_id = $1 AND product_id = $2`
	_, err := r.pool.Exec(ctx, q, sessionID, productID, featured)
	return err
}

// IsProductInSession reports whether a product is attached to a session.
func (r *Repository) IsProductInSession(ctx context.Context, sessionID, productID uuid.UUID) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM session_products WHERE session_id = $1 AND product_id = $2)`
	var exists bool
	err := r.pool.QueryRow(ctx, q, sessionID, productID).Scan(&exists)
	return exists, err
}

package clicks

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles product_click_stats persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a product click stats repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// InsertBatch persists the final click rows for a session in one round trip.
func (r *Repository) InsertBatch(ctx context.Context, rows []models.ProductClickStats) error {
	if len(rows) == 0 {
		return nil
	}
	const q = `INSERT INTO product_click_stats
		(session_id, product_id, unique_clicks, total_clicks, click_through_rate, total_viewers)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (session_id, product_id) DO UPDATE SET
			unique_clicks = EXCLUDED.unique_clicks,
			total_clicks = EXCLUDED.total_clicks,
			click_through_rate = EXCLUDED.click_through_rate,
			total_viewers = EXCLUDED.total_viewers,
			updated_at = NOW()`
	batch := &pgx.Batch{}
	for _, s := range rows {
		batch.Queue(q, s.SessionID, s.ProductID, s.UniqueClicks, s.TotalClicks, s.ClickThroughRate, s.TotalViewers)
	}
	return r.pool.SendBatch(ctx, batch).Close()
}

// ListBySession returns the persisted click rows for an ended session, sorted
// by unique clicks descending.
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ProductClickStats, error) {
	const q = `SELECT id, session_id, product_id, unique_clicks, total_clicks,
			click_through_rate, total_viewers, created_at, updated_at
		FROM product_click_stats
		WHERE session_id = $1
		ORDER BY unique_clicks DESC, total_clicks DESC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.ProductClickStats
	for rows.Next() {
		var s models.ProductClickStats
		if err := rows.Scan(&s.ID, &s.SessionID, &s.ProductID, &s.UniqueClicks, &s.TotalClicks,
			&s.ClickThroughRate, &s.TotalViewers, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

package analytics

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles session_analytics persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert stores the analytics snapshot for a session, replacing any previous
// computation.
func (r *Repository) Upsert(ctx context.Context, a *models.SessionAnalytics) error {
	const q = `INSERT INTO session_analytics (session_id, unique_viewers, total_views, avg_watch_seconds, peak_viewers)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE SET
			unique_viewers = EXCLUDED.unique_viewers,
			total_views = EXCLUDED.total_views,
			avg_watch_seconds = EXCLUDED.avg_watch_seconds,
			peak_viewers = EXCLUDED.peak_viewers,
			computed_at = NOW()
		RETURNING id, computed_at`
	return r.pool.QueryRow(ctx, q, a.SessionID, a.UniqueViewers, a.TotalViews, a.AvgWatchSeconds, a.PeakViewers).
		Scan(&a.ID, &a.ComputedAt)
}

// GetBySession returns the stored snapshot for a session, or nil.
func (r *Repository) GetBySession(ctx context.Context, sessionID uuid.UUID) (*models.SessionAnalytics, error) {
	const q = `SELECT id, session_id, unique_viewers, total_views, avg_watch_seconds, peak_viewers, computed_at
		FROM session_analytics WHERE session_id = $1`
	var a models.SessionAnalytics
	err := r.pool.QueryRow(ctx, q, sessionID).
		Scan(&a.ID, &a.SessionID, &a.UniqueViewers, &a.TotalViews, &a.AvgWatchSeconds, &a.PeakViewers, &a.ComputedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

package presence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles session_views persistence (durable View Records).
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session views repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const viewColumns = `id, session_id, user_id, conn_id, role, joined_at, left_at, watch_seconds`

// Insert creates a new active view record. Fills ID and JoinedAt on the model.
func (r *Repository) Insert(ctx context.Context, v *models.SessionView) error {
	const q = `INSERT INTO session_views (session_id, user_id, conn_id, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, joined_at`
	return r.pool.QueryRow(ctx, q, v.SessionID, v.UserID, v.ConnID, string(v.Role)).
		Scan(&v.ID, &v.JoinedAt)
}

// Close finalizes a view record: sets left_at and the watch duration in whole
// seconds. A no-op for records already closed.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, leftAt time.Time) error {
	const q = `UPDATE session_views
		SET left_at = $2, watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - joined_at))::BIGINT)
		WHERE id = $1 AND left_at IS NULL`
	_, err := r.pool.Exec(ctx, q, id, leftAt)
	return err
}

// FindActiveByUser returns the most recent open view for a user in a session,
// or nil when none exists.
func (r *Repository) FindActiveByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionView, error) {
	const q = `SELECT ` + viewColumns + ` FROM session_views
		WHERE session_id = $1 AND user_id = $2 AND left_at IS NULL
		ORDER BY joined_at DESC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, q, sessionID, userID))
}

// FindActiveByConn returns the open view bound to a connection id, or nil.
func (r *Repository) FindActiveByConn(ctx context.Context, connID string) (*models.SessionView, error) {
	const q = `SELECT ` + viewColumns + ` FROM session_views
		WHERE conn_id = $1 AND left_at IS NULL
		ORDER BY joined_at DESC LIMIT 1`
	return r.scanOne(r.pool.QueryRow(ctx, q, connID))
}

// CloseAllActive closes every open view for a session at the given time
// (forced session end).
func (r *Repository) CloseAllActive(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	const q = `UPDATE session_views
		SET left_at = $2, watch_seconds = GREATEST(0, EXTRACT(EPOCH FROM ($2 - joined_at))::BIGINT)
		WHERE session_id = $1 AND left_at IS NULL`
	_, err := r.pool.Exec(ctx, q, sessionID, at)
	return err
}

// CountsBySession returns the distinct authenticated viewer count and the
// total view count for a session. Publishers are excluded from both.
func (r *Repository) CountsBySession(ctx context.Context, sessionID uuid.UUID) (unique, total int, err error) {
	const q = `SELECT
		COUNT(DISTINCT user_id) FILTER (WHERE user_id IS NOT NULL),
		COUNT(*)
		FROM session_views WHERE session_id = $1 AND role = 'subscriber'`
	err = r.pool.QueryRow(ctx, q, sessionID).Scan(&unique, &total)
	return unique, total, err
}

// AvgWatchSeconds returns the average watch duration for a session in seconds.
// Views shorter than 10 seconds are treated as bounces and excluded.
func (r *Repository) AvgWatchSeconds(ctx context.Context, sessionID uuid.UUID) (int64, error) {
	const q = `SELECT COALESCE(AVG(watch_seconds), 0)::BIGINT FROM session_views
		WHERE session_id = $1 AND role = 'subscriber' AND watch_seconds > 10`
	var avg int64
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&avg)
	return avg, err
}

// ListBySession returns all subscriber views for a session ordered by join
// time (input for the peak concurrency sweep).
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionView, error) {
	const q = `SELECT ` + viewColumns + ` FROM session_views
		WHERE session_id = $1 AND role = 'subscriber' ORDER BY joined_at ASC`
	rows, err := r.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.SessionView
	for rows.Next() {
		var v models.SessionView
		var role string
		if err := rows.Scan(&v.ID, &v.SessionID, &v.UserID, &v.ConnID, &role, &v.JoinedAt, &v.LeftAt, &v.WatchSeconds); err != nil {
			return nil, err
		}
		v.Role = models.ViewRole(role)
		list = append(list, v)
	}
	return list, rows.Err()
}

func (r *Repository) scanOne(row pgx.Row) (*models.SessionView, error) {
	var v models.SessionView
	var role string
	err := row.Scan(&v.ID, &v.SessionID, &v.UserID, &v.ConnID, &role, &v.JoinedAt, &v.LeftAt, &v.WatchSeconds)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	v.Role = models.ViewRole(role)
	return &v, nil
}

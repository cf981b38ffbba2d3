package sessions

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles session persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a session repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const sessionColumns = `id, title, description, category, tags, status, channel_name,
	active_product_id, reaction_counts, started_at, ended_at, creator_id, created_at, updated_at`

// Create inserts a new scheduled session.
func (r *Repository) Create(ctx context.Context, s *models.Session) error {
	const q = `INSERT INTO sessions (title, description, category, tags, channel_name, creator_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, status, created_at, updated_at`
	var status string
	err := r.pool.QueryRow(ctx, q, s.Title, s.Description, s.Category, s.Tags, s.ChannelName, s.CreatorID).
		Scan(&s.ID, &status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return err
	}
	s.Status = models.SessionStatus(status)
	return nil
}

// GetByID returns a session by ID, or nil when it does not exist.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return r.scanOne(r.pool.QueryRow(ctx, q, id))
}

// CreatorID returns the creator of a session without loading the full row.
func (r *Repository) CreatorID(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	const q = `SELECT creator_id FROM sessions WHERE id = $1`
	var creatorID uuid.UUID
	err := r.pool.QueryRow(ctx, q, sessionID).Scan(&creatorID)
	if err == pgx.ErrNoRows {
		return uuid.Nil, ErrSessionNotFound
	}
	return creatorID, err
}

// List returns sessions, optionally filtered by status and creator, newest first.
func (r *Repository) List(ctx context.Context, status *models.SessionStatus, creatorID *uuid.UUID) ([]models.Session, error) {
	base := `SELECT ` + sessionColumns + ` FROM sessions`
	var args []interface{}
	var cond string
	if status != nil {
		cond = " WHERE status = $1"
		args = append(args, string(*status))
	}
	if creatorID != nil {
		if cond == "" {
			cond = " WHERE creator_id = $1"
		} else {
			cond += " AND creator_id = $2"
		}
		args = append(args, *creatorID)
	}
	rows, err := r.pool.Query(ctx, base+cond+" ORDER BY created_at DESC", args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *s)
	}
	return list, rows.Err()
}

// Update updates the session's descriptive fields.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, title, description, category string, tags []string) error {
	const q = `UPDATE sessions SET title = $1, description = $2, category = $3,
		tags = COALESCE($4, tags), updated_at = NOW() WHERE id = $5`
	_, err := r.pool.Exec(ctx, q, title, description, category, tags, id)
	return err
}

// Delete removes a session by ID.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	const q = `DELETE FROM sessions WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// MarkLive transitions a session to live and stamps started_at once.
func (r *Repository) MarkLive(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE sessions SET status = 'live',
		started_at = COALESCE(started_at, NOW()), updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// MarkEnded transitions a session to ended and stamps ended_at.
func (r *Repository) MarkEnded(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE sessions SET status = 'ended', ended_at = NOW(),
		active_product_id = NULL, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// UpdateStatus sets the session status.
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error {
	const q = `UPDATE sessions SET status = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, string(status))
	return err
}

// SetChannelName stores the streaming channel identifier for a session.
func (r *Repository) SetChannelName(ctx context.Context, id uuid.UUID, channel string) error {
	const q = `UPDATE sessions SET channel_name = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, channel)
	return err
}

// SetActiveProduct sets or clears the showcased product.
func (r *Repository) SetActiveProduct(ctx context.Context, id uuid.UUID, productID *uuid.UUID) error {
	const q = `UPDATE sessions SET active_product_id = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, productID)
	return err
}

// UpdateReactionCounts persists the final reaction tallies as jsonb.
func (r *Repository) UpdateReactionCounts(ctx context.Context, id uuid.UUID, counts map[string]int) error {
	if counts == nil {
		counts = map[string]int{}
	}
	const q = `UPDATE sessions SET reaction_counts = $2, updated_at = NOW() WHERE id = $1`
	_, err := r.pool.Exec(ctx, q, id, counts)
	return err
}

func (r *Repository) scanOne(row pgx.Row) (*models.Session, error) {
	s, err := scanSession(row)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	return s, err
}

func scanSession(row pgx.Row) (*models.Session, error) {
	var s models.Session
	var status string
	err := row.Scan(&s.ID, &s.Title, &s.Description, &s.Category, &s.Tags, &status, &s.ChannelName,
		&s.ActiveProductID, &s.ReactionCounts, &s.StartedAt, &s.EndedAt, &s.CreatorID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = models.SessionStatus(status)
	return &s, nil
}

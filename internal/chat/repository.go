package chat

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/streamcart/backend/internal/models"
)

// Repository handles chat message persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a chat repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert persists a chat message. Fills ID and CreatedAt on the model.
func (r *Repository) Insert(ctx context.Context, m *models.ChatMessage) error {
	const q = `INSERT INTO chat_messages (session_id, user_id, user_name, message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, m.SessionID, m.UserID, m.UserName, m.Message).
		Scan(&m.ID, &m.CreatedAt)
}

// ListBySession returns messages for a session in chronological order, at most
// limit rows, optionally only those older than before (keyset pagination).
func (r *Repository) ListBySession(ctx context.Context, sessionID uuid.UUID, limit int, before *time.Time) ([]models.ChatMessage, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	q := `SELECT id, session_id, user_id, user_name, message, created_at
		FROM chat_messages WHERE session_id = $1`
	args := []interface{}{sessionID}
	if before != nil {
		q += ` AND created_at < $2`
		args = append(args, *before)
	}
	q += ` ORDER BY created_at DESC LIMIT ` + strconv.Itoa(limit)

	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.ChatMessage
	for rows.Next() {
		var m models.ChatMessage
		if err := rows.Scan(&m.ID, &m.SessionID, &m.UserID, &m.UserName, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// stored newest-first for the limit, returned oldest-first
	for i, j := 0, len(list)-1; i < j; i, j = i+1, j-1 {
		list[i], list[j] = list[j], list[i]
	}
	return list, nil
}

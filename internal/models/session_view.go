package models

import (
	"time"

	"github.com/google/uuid"
)

// ViewRole distinguishes the streaming creator from watching viewers.
type ViewRole string

const (
	ViewRolePublisher  ViewRole = "publisher"
	ViewRoleSubscriber ViewRole = "subscriber"
)

// SessionView is the durable audit row for one viewing span (join to leave).
// LeftAt is nil while the view is still active.
type SessionView struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	UserID       *uuid.UUID `json:"user_id,omitempty"`
	ConnID       *string    `json:"conn_id,omitempty"`
	Role         ViewRole   `json:"role"`
	JoinedAt     time.Time  `json:"joined_at"`
	LeftAt       *time.Time `json:"left_at,omitempty"`
	WatchSeconds int64      `json:"watch_seconds"`
}

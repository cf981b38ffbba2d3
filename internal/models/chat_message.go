package models

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage is one message in a session's live chat.
type ChatMessage struct {
	ID        uuid.UUID  `json:"id"`
	SessionID uuid.UUID  `json:"session_id"`
	UserID    *uuid.UUID `json:"user_id,omitempty"`
	UserName  string     `json:"user_name"`
	Message   string     `json:"message"`
	CreatedAt time.Time  `json:"created_at"`
}

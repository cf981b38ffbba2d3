package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionStatus is the lifecycle state of a live-commerce session.
type SessionStatus string

const (
	StatusScheduled SessionStatus = "scheduled"
	StatusLive      SessionStatus = "live"
	StatusPaused    SessionStatus = "paused"
	StatusEnded     SessionStatus = "ended"
)

// Session represents one live-commerce broadcast.
type Session struct {
	ID              uuid.UUID      `json:"id"`
	Title           string         `json:"title"`
	Description     string         `json:"description"`
	Category        string         `json:"category"`
	Tags            []string       `json:"tags,omitempty"`
	Status          SessionStatus  `json:"status"`
	ChannelName     string         `json:"channel_name,omitempty"`
	ActiveProductID *uuid.UUID     `json:"active_product_id,omitempty"`
	ReactionCounts  map[string]int `json:"reaction_counts,omitempty"`
	StartedAt       *time.Time     `json:"started_at,omitempty"`
	EndedAt         *time.Time     `json:"ended_at,omitempty"`
	CreatorID       uuid.UUID      `json:"creator_id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// IsLive reports whether the session is currently broadcasting.
func (s *Session) IsLive() bool {
	return s.Status == StatusLive
}

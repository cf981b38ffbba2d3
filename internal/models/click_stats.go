package models

import (
	"time"

	"github.com/google/uuid"
)

// ProductClickStats is the durable conversion row persisted per product when a
// session ends. ClickThroughRate is unique clickers over the viewer baseline,
// as a percentage rounded to two decimals.
type ProductClickStats struct {
	ID               uuid.UUID `json:"id"`
	SessionID        uuid.UUID `json:"session_id"`
	ProductID        uuid.UUID `json:"product_id"`
	UniqueClicks     int       `json:"unique_clicks"`
	TotalClicks      int       `json:"total_clicks"`
	ClickThroughRate float64   `json:"click_through_rate"`
	TotalViewers     int       `json:"total_viewers"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SessionAnalytics is the post-session viewer snapshot computed by the
// analytics worker after a session ends.
type SessionAnalytics struct {
	ID              uuid.UUID `json:"id"`
	SessionID       uuid.UUID `json:"session_id"`
	UniqueViewers   int       `json:"unique_viewers"`
	TotalViews      int       `json:"total_views"`
	AvgWatchSeconds int64     `json:"avg_watch_seconds"`
	PeakViewers     int       `json:"peak_viewers"`
	ComputedAt      time.Time `json:"computed_at"`
}

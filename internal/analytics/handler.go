package analytics

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
)

// SessionSource loads the session row backing the summary.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// ReactionSource is the live in-memory reaction aggregate.
type ReactionSource interface {
	Snapshot(sessionID uuid.UUID) map[string]int
}

// ClickSource lists the persisted conversion rows for ended sessions.
type ClickSource interface {
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.ProductClickStats, error)
}

// Handler handles GET /sessions/:id/analytics.
type Handler struct {
	repo      *Repository
	views     ViewSource
	sessions  SessionSource
	reactions ReactionSource
	clicks    ClickSource
}

// NewHandler creates an analytics handler.
func NewHandler(repo *Repository, views ViewSource, sessions SessionSource, reactions ReactionSource, clicks ClickSource) *Handler {
	return &Handler{repo: repo, views: views, sessions: sessions, reactions: reactions, clicks: clicks}
}

// SummaryResponse is the JSON shape for session analytics.
type SummaryResponse struct {
	SessionID       uuid.UUID                  `json:"session_id"`
	Status          models.SessionStatus       `json:"status"`
	UniqueViewers   int                        `json:"unique_viewers"`
	TotalViews      int                        `json:"total_views"`
	AvgWatchSeconds int64                      `json:"avg_watch_seconds"`
	PeakViewers     int                        `json:"peak_viewers"`
	ReactionCounts  map[string]int             `json:"reaction_counts"`
	ClickStats      []models.ProductClickStats `json:"click_stats"`
}

// GetBySession handles GET /sessions/:id/analytics (session creator only,
// enforced by route middleware). For ended sessions the stored snapshot is
// served when the worker has computed it; otherwise the summary is derived
// from view records on the fly.
func (h *Handler) GetBySession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	ctx := c.Request.Context()

	s, err := h.sessions.GetByID(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if s == nil {
		response.NotFound(c, "session not found")
		return
	}

	var snap *models.SessionAnalytics
	if s.Status == models.StatusEnded {
		snap, err = h.repo.GetBySession(ctx, id)
		if err != nil {
			response.Internal(c, "failed to load analytics")
			return
		}
	}
	if snap == nil {
		snap, err = ComputeSnapshot(ctx, h.views, id)
		if err != nil {
			response.Internal(c, "failed to compute analytics")
			return
		}
	}

	// live sessions answer from the in-memory aggregate, ended ones from the
	// persisted snapshot on the session row
	reactionCounts := h.reactions.Snapshot(id)
	if reactionCounts == nil {
		reactionCounts = s.ReactionCounts
	}
	if reactionCounts == nil {
		reactionCounts = map[string]int{}
	}

	clickStats, err := h.clicks.ListBySession(ctx, id)
	if err != nil {
		response.Internal(c, "failed to load click stats")
		return
	}
	if clickStats == nil {
		clickStats = []models.ProductClickStats{}
	}

	response.OK(c, SummaryResponse{
		SessionID:       id,
		Status:          s.Status,
		UniqueViewers:   snap.UniqueViewers,
		TotalViews:      snap.TotalViews,
		AvgWatchSeconds: snap.AvgWatchSeconds,
		PeakViewers:     snap.PeakViewers,
		ReactionCounts:  reactionCounts,
		ClickStats:      clickStats,
	})
}

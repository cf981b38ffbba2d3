package analytics

import (
	"context"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/presence"
)

// ViewSource is the slice of the view record store the snapshot reads.
type ViewSource interface {
	CountsBySession(ctx context.Context, sessionID uuid.UUID) (unique, total int, err error)
	AvgWatchSeconds(ctx context.Context, sessionID uuid.UUID) (int64, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.SessionView, error)
}

// ComputeSnapshot derives the viewer analytics for a session from its view
// records: distinct authenticated viewers, total views, average watch time
// (bounces excluded) and the reconstructed peak concurrency.
func ComputeSnapshot(ctx context.Context, views ViewSource, sessionID uuid.UUID) (*models.SessionAnalytics, error) {
	unique, total, err := views.CountsBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	avg, err := views.AvgWatchSeconds(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	list, err := views.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &models.SessionAnalytics{
		SessionID:       sessionID,
		UniqueViewers:   unique,
		TotalViews:      total,
		AvgWatchSeconds: avg,
		PeakViewers:     presence.PeakConcurrent(list),
	}, nil
}

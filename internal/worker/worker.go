package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/analytics"
	"github.com/streamcart/backend/pkg/queue"
)

// AnalyticsProcessor consumes session analytics jobs: recompute the viewer
// snapshot from view records and upsert it into session_analytics.
type AnalyticsProcessor struct {
	repo   *analytics.Repository
	views  analytics.ViewSource
	queue  *queue.Queue
	logger *zap.Logger
}

// NewAnalyticsProcessor creates an analytics snapshot processor.
func NewAnalyticsProcessor(repo *analytics.Repository, views analytics.ViewSource, q *queue.Queue, logger *zap.Logger) *AnalyticsProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalyticsProcessor{repo: repo, views: views, queue: q, logger: logger}
}

// Process executes one analytics snapshot job.
func (p *AnalyticsProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeSessionAnalytics {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.SessionAnalyticsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	snap, err := analytics.ComputeSnapshot(ctx, p.views, payload.SessionID)
	if err != nil {
		return fmt.Errorf("compute snapshot: %w", err)
	}
	if err := p.repo.Upsert(ctx, snap); err != nil {
		return fmt.Errorf("upsert snapshot: %w", err)
	}

	p.logger.Info("session analytics computed",
		zap.String("session_id", payload.SessionID.String()),
		zap.Int("unique_viewers", snap.UniqueViewers),
		zap.Int("peak_viewers", snap.PeakViewers))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *AnalyticsProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("analytics worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}

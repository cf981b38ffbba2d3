package clicks

import (
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Runner binds the broadcaster registry to its shared dependencies so callers
// can start and stop per-session broadcasts by session id alone.
type Runner struct {
	registry    *BroadcasterRegistry
	agg         *Aggregator
	pub         Publisher
	intervalSec int
	logger      *zap.Logger
}

// NewRunner creates a broadcaster runner.
func NewRunner(agg *Aggregator, pub Publisher, intervalSec int, logger *zap.Logger) *Runner {
	return &Runner{
		registry:    NewBroadcasterRegistry(),
		agg:         agg,
		pub:         pub,
		intervalSec: intervalSec,
		logger:      logger,
	}
}

// Start launches the stats broadcaster for a session (idempotent).
func (r *Runner) Start(sessionID uuid.UUID) {
	r.registry.Start(sessionID, r.agg, r.pub, r.intervalSec, r.logger)
}

// Stop cancels the session's broadcaster and waits for its loop to exit.
func (r *Runner) Stop(sessionID uuid.UUID) {
	r.registry.Stop(sessionID)
}

// StopAll stops every running broadcaster (server shutdown).
func (r *Runner) StopAll() {
	r.registry.StopAll()
}

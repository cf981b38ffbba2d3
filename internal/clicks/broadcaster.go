package clicks

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrendingLimit is the number of products in the trending-products push.
const TrendingLimit = 5

// Publisher delivers an event to every connection in a session's room.
type Publisher interface {
	BroadcastToSession(sessionID uuid.UUID, event string, payload interface{})
}

// StatsEvent is the periodic product-click-stats push.
type StatsEvent struct {
	SessionID    uuid.UUID     `json:"sessionId"`
	ProductStats []ProductStat `json:"productStats"`
	TotalViewers int           `json:"totalViewers"`
	Timestamp    time.Time     `json:"timestamp"`
}

// TrendingEvent is the periodic trending-products push.
type TrendingEvent struct {
	SessionID uuid.UUID     `json:"sessionId"`
	Products  []ProductStat `json:"products"`
	Timestamp time.Time     `json:"timestamp"`
}

// Broadcaster pushes conversion snapshots for one live session on a fixed
// cadence: refresh the viewer baseline, then emit product-click-stats and
// trending-products to the session room.
type Broadcaster struct {
	sessionID uuid.UUID
	agg       *Aggregator
	pub       Publisher
	logger    *zap.Logger
	interval  time.Duration
	mu        sync.Mutex
	cancel    context.CancelFunc
	done      chan struct{}
}

// NewBroadcaster creates a stats broadcaster for one session.
func NewBroadcaster(sessionID uuid.UUID, agg *Aggregator, pub Publisher, intervalSec int, logger *zap.Logger) *Broadcaster {
	if intervalSec <= 0 {
		intervalSec = 2
	}
	return &Broadcaster{
		sessionID: sessionID,
		agg:       agg,
		pub:       pub,
		logger:    logger,
		interval:  time.Duration(intervalSec) * time.Second,
	}
}

// Start begins the broadcast loop. Call Stop() to release resources. A
// stopped broadcaster can be started again.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	if b.cancel != nil {
		b.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	b.cancel = cancel
	b.done = make(chan struct{})
	done := b.done
	b.mu.Unlock()

	go b.run(ctx, done)
	b.logger.Info("stats broadcaster started", zap.String("session_id", b.sessionID.String()), zap.Duration("interval", b.interval))
}

// Stop halts the loop and waits for the running tick to finish, so no push
// for this session is emitted after Stop returns.
func (b *Broadcaster) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel == nil {
		return
	}
	b.cancel()
	b.cancel = nil
	<-b.done
	b.logger.Info("stats broadcaster stopped", zap.String("session_id", b.sessionID.String()))
}

func (b *Broadcaster) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.tick(ctx)
		}
	}
}

func (b *Broadcaster) tick(ctx context.Context) {
	if err := b.agg.RefreshBaseline(ctx, b.sessionID); err != nil {
		// push the stale baseline rather than skip the tick
		b.logger.Warn("stats broadcaster baseline refresh failed",
			zap.Error(err), zap.String("session_id", b.sessionID.String()))
	}

	now := time.Now()
	stats := b.agg.Stats(b.sessionID)
	b.pub.BroadcastToSession(b.sessionID, "product-click-stats", StatsEvent{
		SessionID:    b.sessionID,
		ProductStats: stats.ProductStats,
		TotalViewers: stats.TotalViewers,
		Timestamp:    now,
	})
	b.pub.BroadcastToSession(b.sessionID, "trending-products", TrendingEvent{
		SessionID: b.sessionID,
		Products:  b.agg.Trending(b.sessionID, TrendingLimit),
		Timestamp: now,
	})
}

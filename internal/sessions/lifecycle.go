package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
)

// Lifecycle transition errors, all user errors rather than server faults.
var (
	ErrSessionNotFound     = errors.New("session not found")
	ErrAlreadyLive         = errors.New("session is already live")
	ErrNotLive             = errors.New("session is not live")
	ErrSessionEnded        = errors.New("session has already ended")
	ErrNotLiveOrPaused     = errors.New("session is not live or paused")
	ErrProductNotInSession = errors.New("product is not attached to this session")
)

// SessionStore is the durable session storage the coordinator writes through.
type SessionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
	MarkLive(ctx context.Context, id uuid.UUID) error
	MarkEnded(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SessionStatus) error
	SetChannelName(ctx context.Context, id uuid.UUID, channel string) error
	SetActiveProduct(ctx context.Context, id uuid.UUID, productID *uuid.UUID) error
	UpdateReactionCounts(ctx context.Context, id uuid.UUID, counts map[string]int) error
}

// ProductList answers whether a product is attached to a session.
type ProductList interface {
	IsProductInSession(ctx context.Context, sessionID, productID uuid.UUID) (bool, error)
}

// PresenceCloser force-closes every open view record for a session.
type PresenceCloser interface {
	CloseAllActive(ctx context.Context, sessionID uuid.UUID, at time.Time) error
}

// ReactionTallies is the in-memory reaction aggregate for a session.
type ReactionTallies interface {
	Snapshot(sessionID uuid.UUID) map[string]int
	Clear(sessionID uuid.UUID)
}

// ClickTallies is the in-memory click aggregate for a session.
type ClickTallies interface {
	Init(sessionID uuid.UUID)
	Flush(ctx context.Context, sessionID uuid.UUID) error
}

// StatsBroadcasts controls the per-session stats broadcast loop.
type StatsBroadcasts interface {
	Start(sessionID uuid.UUID)
	Stop(sessionID uuid.UUID)
}

// Publisher delivers an event to every connection in a session's room.
type Publisher interface {
	BroadcastToSession(sessionID uuid.UUID, event string, payload interface{})
}

// AnalyticsQueue schedules the post-session analytics snapshot job.
type AnalyticsQueue interface {
	EnqueueSessionAnalytics(ctx context.Context, sessionID uuid.UUID, endedAt time.Time) error
}

// Coordinator orchestrates session status transitions and the session-end
// reconciliation of in-memory aggregates with durable storage.
type Coordinator struct {
	store     SessionStore
	products  ProductList
	presence  PresenceCloser
	reactions ReactionTallies
	clicks    ClickTallies
	broadcast StatsBroadcasts
	pub       Publisher
	queue     AnalyticsQueue
	logger    *zap.Logger
}

// NewCoordinator creates a session lifecycle coordinator. queue may be nil
// when no analytics worker is deployed.
func NewCoordinator(store SessionStore, products ProductList, presence PresenceCloser,
	reactions ReactionTallies, clicks ClickTallies, broadcast StatsBroadcasts,
	pub Publisher, queue AnalyticsQueue, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		store:     store,
		products:  products,
		presence:  presence,
		reactions: reactions,
		clicks:    clicks,
		broadcast: broadcast,
		pub:       pub,
		queue:     queue,
		logger:    logger,
	}
}

// Start transitions a session to live: assigns the streaming channel if the
// session does not have one yet, opens click tracking, launches the stats
// broadcaster and announces the stream to subscribers. Resuming a paused
// session goes through the same path.
func (c *Coordinator) Start(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	switch s.Status {
	case models.StatusLive:
		return nil, ErrAlreadyLive
	case models.StatusEnded:
		return nil, ErrSessionEnded
	}

	if s.ChannelName == "" {
		s.ChannelName = "session_" + id.String()
		if err := c.store.SetChannelName(ctx, id, s.ChannelName); err != nil {
			return nil, err
		}
	}
	if err := c.store.MarkLive(ctx, id); err != nil {
		return nil, err
	}
	s.Status = models.StatusLive
	if s.StartedAt == nil {
		now := time.Now()
		s.StartedAt = &now
	}

	c.clicks.Init(id)
	c.broadcast.Start(id)
	c.pub.BroadcastToSession(id, "stream-started", map[string]interface{}{
		"sessionId":   id,
		"channelName": s.ChannelName,
		"startedAt":   s.StartedAt,
	})
	c.logger.Info("session went live", zap.String("session_id", id.String()))
	return s, nil
}

// Pause suspends a live session without closing views or flushing aggregates.
func (c *Coordinator) Pause(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	if s.Status != models.StatusLive {
		return nil, ErrNotLive
	}
	if err := c.store.UpdateStatus(ctx, id, models.StatusPaused); err != nil {
		return nil, err
	}
	s.Status = models.StatusPaused
	c.logger.Info("session paused", zap.String("session_id", id.String()))
	return s, nil
}

// End transitions a live or paused session to ended and reconciles every
// in-memory aggregate with storage, in order: force-close all open view
// records, persist and clear the reaction snapshot, flush click tallies,
// cancel the stats broadcaster, mark the session ended and announce it.
// No stats push for the session is emitted after End returns.
func (c *Coordinator) End(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, ErrSessionNotFound
	}
	switch s.Status {
	case models.StatusEnded:
		return nil, ErrSessionEnded
	case models.StatusScheduled:
		return nil, ErrNotLiveOrPaused
	}

	now := time.Now()
	if err := c.presence.CloseAllActive(ctx, id, now); err != nil {
		return nil, err
	}

	if snapshot := c.reactions.Snapshot(id); snapshot != nil {
		if err := c.store.UpdateReactionCounts(ctx, id, snapshot); err != nil {
			return nil, err
		}
		s.ReactionCounts = snapshot
	}
	c.reactions.Clear(id)

	// an aggregate flush failure must not leave the session stuck live
	if err := c.clicks.Flush(ctx, id); err != nil {
		c.logger.Error("click stats flush failed", zap.Error(err), zap.String("session_id", id.String()))
	}

	c.broadcast.Stop(id)

	if err := c.store.MarkEnded(ctx, id); err != nil {
		return nil, err
	}
	s.Status = models.StatusEnded
	s.EndedAt = &now
	s.ActiveProductID = nil

	c.pub.BroadcastToSession(id, "stream-ended", map[string]interface{}{
		"sessionId": id,
		"timestamp": now,
	})

	if c.queue != nil {
		if err := c.queue.EnqueueSessionAnalytics(ctx, id, now); err != nil {
			c.logger.Warn("analytics job enqueue failed", zap.Error(err), zap.String("session_id", id.String()))
		}
	}

	c.logger.Info("session ended", zap.String("session_id", id.String()))
	return s, nil
}

// Showcase sets or clears the session's showcased product and announces the
// change. Permitted only while the session is live or paused, and only for
// products attached to the session.
func (c *Coordinator) Showcase(ctx context.Context, id uuid.UUID, productID *uuid.UUID) error {
	s, err := c.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrSessionNotFound
	}
	if s.Status != models.StatusLive && s.Status != models.StatusPaused {
		return ErrNotLiveOrPaused
	}

	if productID != nil {
		attached, err := c.products.IsProductInSession(ctx, id, *productID)
		if err != nil {
			return err
		}
		if !attached {
			return ErrProductNotInSession
		}
	}
	if err := c.store.SetActiveProduct(ctx, id, productID); err != nil {
		return err
	}

	if productID != nil {
		c.pub.BroadcastToSession(id, "product-showcased", map[string]interface{}{
			"sessionId": id,
			"productId": *productID,
		})
	} else {
		c.pub.BroadcastToSession(id, "showcase-cleared", map[string]interface{}{
			"sessionId": id,
		})
	}
	return nil
}

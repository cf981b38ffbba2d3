package clicks

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
)

// BaselineSource supplies the viewer baseline for conversion metrics
// (implemented by the presence registry over durable view records).
type BaselineSource interface {
	Baseline(ctx context.Context, sessionID uuid.UUID) (int, error)
}

// StatsStore persists the final per-product click rows at session end.
type StatsStore interface {
	InsertBatch(ctx context.Context, rows []models.ProductClickStats) error
}

// ProductStat is the derived conversion entry for one product.
type ProductStat struct {
	ProductID        uuid.UUID `json:"productId"`
	UniqueClicks     int       `json:"uniqueClicks"`
	TotalClicks      int       `json:"totalClicks"`
	ClickThroughRate float64   `json:"clickThroughRate"`
}

// Stats is the current conversion snapshot for a session, trending order
// (descending unique clicks).
type Stats struct {
	ProductStats []ProductStat `json:"productStats"`
	TotalViewers int           `json:"totalViewers"`
}

type productClicks struct {
	identities map[string]struct{}
	total      int
}

type sessionClicks struct {
	products     map[uuid.UUID]*productClicks
	totalViewers int
}

// Aggregator accumulates per-product click counters per live session in
// memory. Clicks are keyed by identity: the authenticated user id, or a
// generated anonymous identity unique to each click.
type Aggregator struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*sessionClicks
	source   BaselineSource
	store    StatsStore
}

// NewAggregator creates a click aggregator.
func NewAggregator(source BaselineSource, store StatsStore) *Aggregator {
	return &Aggregator{
		sessions: make(map[uuid.UUID]*sessionClicks),
		source:   source,
		store:    store,
	}
}

// Init idempotently ensures a tally structure exists for a session.
func (a *Aggregator) Init(sessionID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.initLocked(sessionID)
}

func (a *Aggregator) initLocked(sessionID uuid.UUID) *sessionClicks {
	sc := a.sessions[sessionID]
	if sc == nil {
		sc = &sessionClicks{products: make(map[uuid.UUID]*productClicks)}
		a.sessions[sessionID] = sc
	}
	return sc
}

// TrackClick records one click on a product. Anonymous clicks get a fresh
// identity per call and therefore always count as unique.
func (a *Aggregator) TrackClick(sessionID, productID uuid.UUID, userID *uuid.UUID) {
	identity := "anon-" + uuid.New().String()
	if userID != nil {
		identity = userID.String()
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	sc := a.initLocked(sessionID)
	pc := sc.products[productID]
	if pc == nil {
		pc = &productClicks{identities: make(map[string]struct{})}
		sc.products[productID] = pc
	}
	pc.identities[identity] = struct{}{}
	pc.total++
}

// RefreshBaseline recomputes the session's totalViewers from the durable
// view record aggregate. A no-op for untracked sessions.
func (a *Aggregator) RefreshBaseline(ctx context.Context, sessionID uuid.UUID) error {
	a.mu.RLock()
	_, tracked := a.sessions[sessionID]
	a.mu.RUnlock()
	if !tracked {
		return nil
	}

	baseline, err := a.source.Baseline(ctx, sessionID)
	if err != nil {
		return err
	}

	a.mu.Lock()
	if sc := a.sessions[sessionID]; sc != nil {
		sc.totalViewers = baseline
	}
	a.mu.Unlock()
	return nil
}

// Stats returns the current conversion snapshot sorted by unique clicks
// descending. CTR is zero when the viewer baseline is zero.
func (a *Aggregator) Stats(sessionID uuid.UUID) Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	sc := a.sessions[sessionID]
	if sc == nil {
		return Stats{ProductStats: []ProductStat{}}
	}
	return Stats{ProductStats: sc.stats(), TotalViewers: sc.totalViewers}
}

// Trending returns the top N products by unique clicks. A non-positive limit
// yields an empty list.
func (a *Aggregator) Trending(sessionID uuid.UUID, limit int) []ProductStat {
	stats := a.Stats(sessionID).ProductStats
	if limit < 0 {
		limit = 0
	}
	if limit < len(stats) {
		return stats[:limit]
	}
	return stats
}

// HasTracking reports whether a session has an active tally.
func (a *Aggregator) HasTracking(sessionID uuid.UUID) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.sessions[sessionID]
	return ok
}

// Flush refreshes the baseline, persists one stats row per tracked product
// and discards the in-memory tally. A no-op when the session has no tally or
// the tally is empty. The tally is kept on persistence failure so the flush
// can be retried.
func (a *Aggregator) Flush(ctx context.Context, sessionID uuid.UUID) error {
	a.mu.RLock()
	sc := a.sessions[sessionID]
	empty := sc == nil || len(sc.products) == 0
	a.mu.RUnlock()
	if empty {
		a.Clear(sessionID)
		return nil
	}

	if err := a.RefreshBaseline(ctx, sessionID); err != nil {
		return err
	}

	a.mu.RLock()
	stats := sc.stats()
	totalViewers := sc.totalViewers
	a.mu.RUnlock()

	rows := make([]models.ProductClickStats, 0, len(stats))
	for _, s := range stats {
		rows = append(rows, models.ProductClickStats{
			SessionID:        sessionID,
			ProductID:        s.ProductID,
			UniqueClicks:     s.UniqueClicks,
			TotalClicks:      s.TotalClicks,
			ClickThroughRate: s.ClickThroughRate,
			TotalViewers:     totalViewers,
		})
	}
	if err := a.store.InsertBatch(ctx, rows); err != nil {
		return err
	}

	a.Clear(sessionID)
	return nil
}

// Clear discards the in-memory tally for a session.
func (a *Aggregator) Clear(sessionID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

// caller holds a.mu
func (sc *sessionClicks) stats() []ProductStat {
	out := make([]ProductStat, 0, len(sc.products))
	for productID, pc := range sc.products {
		unique := len(pc.identities)
		var ctr float64
		if sc.totalViewers > 0 {
			ctr = round2(float64(unique) / float64(sc.totalViewers) * 100)
		}
		out = append(out, ProductStat{
			ProductID:        productID,
			UniqueClicks:     unique,
			TotalClicks:      pc.total,
			ClickThroughRate: ctr,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueClicks > out[j].UniqueClicks })
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

package clicks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturedEvent struct {
	sessionID uuid.UUID
	event     string
	payload   interface{}
}

type fakePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (f *fakePublisher) BroadcastToSession(sessionID uuid.UUID, event string, payload interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, capturedEvent{sessionID: sessionID, event: event, payload: payload})
}

func (f *fakePublisher) snapshot() []capturedEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]capturedEvent(nil), f.events...)
}

func TestBroadcasterTickPushesStatsAndTrending(t *testing.T) {
	agg := NewAggregator(&fakeBaseline{value: 4}, &fakeStatsStore{})
	pub := &fakePublisher{}
	sessionID, productID := uuid.New(), uuid.New()

	agg.TrackClick(sessionID, productID, uidPtr(uuid.New()))

	b := NewBroadcaster(sessionID, agg, pub, 1, zap.NewNop())
	b.tick(context.Background())

	events := pub.snapshot()
	require.Len(t, events, 2)

	assert.Equal(t, "product-click-stats", events[0].event)
	stats, ok := events[0].payload.(StatsEvent)
	require.True(t, ok)
	assert.Equal(t, sessionID, stats.SessionID)
	assert.Equal(t, 4, stats.TotalViewers, "tick refreshes the baseline before pushing")
	require.Len(t, stats.ProductStats, 1)
	assert.Equal(t, productID, stats.ProductStats[0].ProductID)
	assert.Equal(t, 25.0, stats.ProductStats[0].ClickThroughRate)

	assert.Equal(t, "trending-products", events[1].event)
	trending, ok := events[1].payload.(TrendingEvent)
	require.True(t, ok)
	assert.Len(t, trending.Products, 1)
}

func TestBroadcasterStopIsSynchronousAndIdempotent(t *testing.T) {
	agg := NewAggregator(&fakeBaseline{}, &fakeStatsStore{})
	pub := &fakePublisher{}
	b := NewBroadcaster(uuid.New(), agg, pub, 1, zap.NewNop())

	b.Start()
	b.Start() // second start is a no-op
	b.Stop()

	count := len(pub.snapshot())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(pub.snapshot()), "no pushes after Stop returns")

	b.Stop() // duplicate stop is a no-op
}

func TestBroadcasterRestartsAfterStop(t *testing.T) {
	agg := NewAggregator(&fakeBaseline{}, &fakeStatsStore{})
	pub := &fakePublisher{}
	b := NewBroadcaster(uuid.New(), agg, pub, 1, zap.NewNop())

	b.Start()
	b.Stop()

	b.Start()
	b.Stop() // must wait for the second loop, not return on the first one's done signal

	count := len(pub.snapshot())
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, count, len(pub.snapshot()), "no pushes after the second Stop returns")
}

func TestRegistryStartIsIdempotent(t *testing.T) {
	agg := NewAggregator(&fakeBaseline{}, &fakeStatsStore{})
	pub := &fakePublisher{}
	reg := NewBroadcasterRegistry()
	sessionID := uuid.New()

	reg.Start(sessionID, agg, pub, 1, zap.NewNop())
	reg.Start(sessionID, agg, pub, 1, zap.NewNop())

	reg.mu.RLock()
	n := len(reg.broadcasters)
	reg.mu.RUnlock()
	assert.Equal(t, 1, n)

	reg.Stop(sessionID)
	reg.Stop(sessionID) // stopping an unknown session is safe

	reg.mu.RLock()
	n = len(reg.broadcasters)
	reg.mu.RUnlock()
	assert.Zero(t, n)
}

func TestRegistryStopAll(t *testing.T) {
	agg := NewAggregator(&fakeBaseline{}, &fakeStatsStore{})
	pub := &fakePublisher{}
	reg := NewBroadcasterRegistry()

	reg.Start(uuid.New(), agg, pub, 1, zap.NewNop())
	reg.Start(uuid.New(), agg, pub, 1, zap.NewNop())
	reg.StopAll()

	reg.mu.RLock()
	defer reg.mu.RUnlock()
	assert.Empty(t, reg.broadcasters)
}

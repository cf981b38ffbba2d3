package sessions

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcart/backend/internal/models"
)

type fakeSessionStore struct {
	sessions map[uuid.UUID]*models.Session
}

func newFakeSessionStore(list ...*models.Session) *fakeSessionStore {
	s := &fakeSessionStore{sessions: make(map[uuid.UUID]*models.Session)}
	for _, sess := range list {
		s.sessions[sess.ID] = sess
	}
	return s
}

func (s *fakeSessionStore) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	cp := *sess
	return &cp, nil
}

func (s *fakeSessionStore) MarkLive(_ context.Context, id uuid.UUID) error {
	sess := s.sessions[id]
	sess.Status = models.StatusLive
	if sess.StartedAt == nil {
		now := time.Now()
		sess.StartedAt = &now
	}
	return nil
}

func (s *fakeSessionStore) MarkEnded(_ context.Context, id uuid.UUID) error {
	sess := s.sessions[id]
	sess.Status = models.StatusEnded
	now := time.Now()
	sess.EndedAt = &now
	sess.ActiveProductID = nil
	return nil
}

func (s *fakeSessionStore) UpdateStatus(_ context.Context, id uuid.UUID, status models.SessionStatus) error {
	s.sessions[id].Status = status
	return nil
}

func (s *fakeSessionStore) SetChannelName(_ context.Context, id uuid.UUID, channel string) error {
	s.sessions[id].ChannelName = channel
	return nil
}

func (s *fakeSessionStore) SetActiveProduct(_ context.Context, id uuid.UUID, productID *uuid.UUID) error {
	s.sessions[id].ActiveProductID = productID
	return nil
}

func (s *fakeSessionStore) UpdateReactionCounts(_ context.Context, id uuid.UUID, counts map[string]int) error {
	s.sessions[id].ReactionCounts = counts
	return nil
}

type fakeProducts struct {
	attached map[uuid.UUID]bool
}

func (f *fakeProducts) IsProductInSession(_ context.Context, _, productID uuid.UUID) (bool, error) {
	return f.attached[productID], nil
}

type fakePresence struct {
	closed []uuid.UUID
}

func (f *fakePresence) CloseAllActive(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	f.closed = append(f.closed, sessionID)
	return nil
}

type fakeReactions struct {
	snapshot map[string]int
	cleared  []uuid.UUID
}

func (f *fakeReactions) Snapshot(_ uuid.UUID) map[string]int { return f.snapshot }
func (f *fakeReactions) Clear(id uuid.UUID)                  { f.cleared = append(f.cleared, id) }

type fakeClicks struct {
	inited  []uuid.UUID
	flushed []uuid.UUID
	err     error
}

func (f *fakeClicks) Init(id uuid.UUID) { f.inited = append(f.inited, id) }
func (f *fakeClicks) Flush(_ context.Context, id uuid.UUID) error {
	f.flushed = append(f.flushed, id)
	return f.err
}

type fakeBroadcasts struct {
	started []uuid.UUID
	stopped []uuid.UUID
}

func (f *fakeBroadcasts) Start(id uuid.UUID) { f.started = append(f.started, id) }
func (f *fakeBroadcasts) Stop(id uuid.UUID)  { f.stopped = append(f.stopped, id) }

type fakeLifecyclePub struct {
	mu     sync.Mutex
	events []string
}

func (f *fakeLifecyclePub) BroadcastToSession(_ uuid.UUID, event string, _ interface{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

type fakeQueue struct {
	enqueued []uuid.UUID
}

func (f *fakeQueue) EnqueueSessionAnalytics(_ context.Context, sessionID uuid.UUID, _ time.Time) error {
	f.enqueued = append(f.enqueued, sessionID)
	return nil
}

type coordFixture struct {
	coord     *Coordinator
	store     *fakeSessionStore
	products  *fakeProducts
	presence  *fakePresence
	reactions *fakeReactions
	clicks    *fakeClicks
	broadcast *fakeBroadcasts
	pub       *fakeLifecyclePub
	queue     *fakeQueue
}

func newCoordFixture(sessions ...*models.Session) *coordFixture {
	f := &coordFixture{
		store:     newFakeSessionStore(sessions...),
		products:  &fakeProducts{attached: make(map[uuid.UUID]bool)},
		presence:  &fakePresence{},
		reactions: &fakeReactions{},
		clicks:    &fakeClicks{},
		broadcast: &fakeBroadcasts{},
		pub:       &fakeLifecyclePub{},
		queue:     &fakeQueue{},
	}
	f.coord = NewCoordinator(f.store, f.products, f.presence, f.reactions, f.clicks, f.broadcast, f.pub, f.queue, nil)
	return f
}

func scheduledSession() *models.Session {
	return &models.Session{ID: uuid.New(), Title: "flash sale", Status: models.StatusScheduled, CreatorID: uuid.New()}
}

func liveSession() *models.Session {
	s := scheduledSession()
	s.Status = models.StatusLive
	now := time.Now()
	s.StartedAt = &now
	s.ChannelName = "session_" + s.ID.String()
	return s
}

func TestStartTransitionsToLive(t *testing.T) {
	sess := scheduledSession()
	f := newCoordFixture(sess)

	got, err := f.coord.Start(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, got.Status)
	assert.Equal(t, "session_"+sess.ID.String(), got.ChannelName)
	assert.NotNil(t, got.StartedAt)

	assert.Equal(t, []uuid.UUID{sess.ID}, f.clicks.inited)
	assert.Equal(t, []uuid.UUID{sess.ID}, f.broadcast.started)
	assert.Equal(t, []string{"stream-started"}, f.pub.events)
}

func TestStartRejectsInvalidStates(t *testing.T) {
	live := liveSession()
	ended := scheduledSession()
	ended.Status = models.StatusEnded
	f := newCoordFixture(live, ended)
	ctx := context.Background()

	_, err := f.coord.Start(ctx, live.ID)
	assert.ErrorIs(t, err, ErrAlreadyLive)

	_, err = f.coord.Start(ctx, ended.ID)
	assert.ErrorIs(t, err, ErrSessionEnded)

	_, err = f.coord.Start(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestResumeReusesChannel(t *testing.T) {
	sess := liveSession()
	sess.Status = models.StatusPaused
	channel := sess.ChannelName
	f := newCoordFixture(sess)

	got, err := f.coord.Start(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusLive, got.Status)
	assert.Equal(t, channel, got.ChannelName, "resuming keeps the assigned channel")
}

func TestPauseOnlyFromLive(t *testing.T) {
	live := liveSession()
	scheduled := scheduledSession()
	f := newCoordFixture(live, scheduled)
	ctx := context.Background()

	got, err := f.coord.Pause(ctx, live.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaused, got.Status)

	_, err = f.coord.Pause(ctx, scheduled.ID)
	assert.ErrorIs(t, err, ErrNotLive)
}

func TestEndReconcilesAggregates(t *testing.T) {
	sess := liveSession()
	f := newCoordFixture(sess)
	f.reactions.snapshot = map[string]int{"heart": 12, "fire": 3}

	got, err := f.coord.End(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, got.Status)
	assert.NotNil(t, got.EndedAt)
	assert.Nil(t, got.ActiveProductID)

	assert.Equal(t, []uuid.UUID{sess.ID}, f.presence.closed, "open views are force-closed")
	assert.Equal(t, map[string]int{"heart": 12, "fire": 3}, f.store.sessions[sess.ID].ReactionCounts)
	assert.Equal(t, []uuid.UUID{sess.ID}, f.reactions.cleared)
	assert.Equal(t, []uuid.UUID{sess.ID}, f.clicks.flushed)
	assert.Equal(t, []uuid.UUID{sess.ID}, f.broadcast.stopped)
	assert.Equal(t, []string{"stream-ended"}, f.pub.events)
	assert.Equal(t, []uuid.UUID{sess.ID}, f.queue.enqueued)
}

func TestEndWithoutReactionsSkipsPersist(t *testing.T) {
	sess := liveSession()
	f := newCoordFixture(sess)

	_, err := f.coord.End(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Nil(t, f.store.sessions[sess.ID].ReactionCounts, "empty snapshot is not persisted")
	assert.Equal(t, []uuid.UUID{sess.ID}, f.reactions.cleared)
}

func TestEndRejectsInvalidStates(t *testing.T) {
	scheduled := scheduledSession()
	ended := scheduledSession()
	ended.Status = models.StatusEnded
	f := newCoordFixture(scheduled, ended)
	ctx := context.Background()

	_, err := f.coord.End(ctx, scheduled.ID)
	assert.ErrorIs(t, err, ErrNotLiveOrPaused)

	_, err = f.coord.End(ctx, ended.ID)
	assert.ErrorIs(t, err, ErrSessionEnded)
	assert.Empty(t, f.presence.closed, "rejected end must not touch views")
}

func TestEndFromPaused(t *testing.T) {
	sess := liveSession()
	sess.Status = models.StatusPaused
	f := newCoordFixture(sess)

	got, err := f.coord.End(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusEnded, got.Status)
}

func TestShowcaseRequiresAttachedProduct(t *testing.T) {
	sess := liveSession()
	f := newCoordFixture(sess)
	attached, detached := uuid.New(), uuid.New()
	f.products.attached[attached] = true
	ctx := context.Background()

	require.NoError(t, f.coord.Showcase(ctx, sess.ID, &attached))
	require.NotNil(t, f.store.sessions[sess.ID].ActiveProductID)
	assert.Equal(t, attached, *f.store.sessions[sess.ID].ActiveProductID)
	assert.Equal(t, []string{"product-showcased"}, f.pub.events)

	err := f.coord.Showcase(ctx, sess.ID, &detached)
	assert.ErrorIs(t, err, ErrProductNotInSession)
}

func TestShowcaseClear(t *testing.T) {
	sess := liveSession()
	pid := uuid.New()
	sess.ActiveProductID = &pid
	f := newCoordFixture(sess)

	require.NoError(t, f.coord.Showcase(context.Background(), sess.ID, nil))
	assert.Nil(t, f.store.sessions[sess.ID].ActiveProductID)
	assert.Equal(t, []string{"showcase-cleared"}, f.pub.events)
}

func TestShowcaseOnlyLiveOrPaused(t *testing.T) {
	scheduled := scheduledSession()
	paused := liveSession()
	paused.Status = models.StatusPaused
	f := newCoordFixture(scheduled, paused)
	pid := uuid.New()
	f.products.attached[pid] = true
	ctx := context.Background()

	err := f.coord.Showcase(ctx, scheduled.ID, &pid)
	assert.ErrorIs(t, err, ErrNotLiveOrPaused)

	assert.NoError(t, f.coord.Showcase(ctx, paused.ID, &pid))
}

package presence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcart/backend/internal/models"
)

// fakeViewStore is an in-memory ViewStore for registry tests.
type fakeViewStore struct {
	views map[uuid.UUID]*models.SessionView
}

func newFakeViewStore() *fakeViewStore {
	return &fakeViewStore{views: make(map[uuid.UUID]*models.SessionView)}
}

func (s *fakeViewStore) Insert(_ context.Context, v *models.SessionView) error {
	v.ID = uuid.New()
	v.JoinedAt = time.Now()
	cp := *v
	s.views[v.ID] = &cp
	return nil
}

func (s *fakeViewStore) Close(_ context.Context, id uuid.UUID, leftAt time.Time) error {
	v, ok := s.views[id]
	if !ok || v.LeftAt != nil {
		return nil
	}
	at := leftAt
	v.LeftAt = &at
	secs := int64(leftAt.Sub(v.JoinedAt).Seconds())
	if secs < 0 {
		secs = 0
	}
	v.WatchSeconds = secs
	return nil
}

func (s *fakeViewStore) FindActiveByUser(_ context.Context, sessionID, userID uuid.UUID) (*models.SessionView, error) {
	for _, v := range s.views {
		if v.SessionID == sessionID && v.UserID != nil && *v.UserID == userID && v.LeftAt == nil {
			return v, nil
		}
	}
	return nil, nil
}

func (s *fakeViewStore) FindActiveByConn(_ context.Context, connID string) (*models.SessionView, error) {
	for _, v := range s.views {
		if v.ConnID != nil && *v.ConnID == connID && v.LeftAt == nil {
			return v, nil
		}
	}
	return nil, nil
}

func (s *fakeViewStore) CloseAllActive(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	for _, v := range s.views {
		if v.SessionID == sessionID && v.LeftAt == nil {
			if err := s.Close(ctx, v.ID, at); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *fakeViewStore) CountsBySession(_ context.Context, sessionID uuid.UUID) (int, int, error) {
	users := make(map[uuid.UUID]struct{})
	total := 0
	for _, v := range s.views {
		if v.SessionID != sessionID || v.Role != models.ViewRoleSubscriber {
			continue
		}
		total++
		if v.UserID != nil {
			users[*v.UserID] = struct{}{}
		}
	}
	return len(users), total, nil
}

func (s *fakeViewStore) openCount(sessionID uuid.UUID) int {
	n := 0
	for _, v := range s.views {
		if v.SessionID == sessionID && v.LeftAt == nil {
			n++
		}
	}
	return n
}

type fakeDirectory struct {
	creators map[uuid.UUID]uuid.UUID
}

func (d *fakeDirectory) CreatorID(_ context.Context, sessionID uuid.UUID) (uuid.UUID, error) {
	id, ok := d.creators[sessionID]
	if !ok {
		return uuid.Nil, ErrSessionNotFound
	}
	return id, nil
}

func newTestRegistry(t *testing.T) (*Registry, *fakeViewStore, uuid.UUID, uuid.UUID) {
	t.Helper()
	store := newFakeViewStore()
	sessionID := uuid.New()
	creatorID := uuid.New()
	dir := &fakeDirectory{creators: map[uuid.UUID]uuid.UUID{sessionID: creatorID}}
	return NewRegistry(store, dir, nil), store, sessionID, creatorID
}

func TestJoinAssignsRoleFromCreator(t *testing.T) {
	reg, _, sessionID, creatorID := newTestRegistry(t)
	ctx := context.Background()

	res, err := reg.Join(ctx, sessionID, "conn-creator", &creatorID)
	require.NoError(t, err)
	assert.Equal(t, models.ViewRolePublisher, res.Role)
	assert.False(t, res.Reconnection)

	viewerID := uuid.New()
	res, err = reg.Join(ctx, sessionID, "conn-viewer", &viewerID)
	require.NoError(t, err)
	assert.Equal(t, models.ViewRoleSubscriber, res.Role)
}

func TestViewerCountExcludesPublisher(t *testing.T) {
	reg, _, sessionID, creatorID := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Join(ctx, sessionID, "conn-creator", &creatorID)
	require.NoError(t, err)
	assert.Equal(t, 0, reg.ViewerCount(sessionID), "publisher must not count as a viewer")

	v1 := uuid.New()
	_, err = reg.Join(ctx, sessionID, "conn-1", &v1)
	require.NoError(t, err)
	_, err = reg.Join(ctx, sessionID, "conn-2", nil) // anonymous viewer
	require.NoError(t, err)
	assert.Equal(t, 2, reg.ViewerCount(sessionID))

	_, err = reg.Leave(ctx, "conn-1")
	require.NoError(t, err)
	assert.Equal(t, 1, reg.ViewerCount(sessionID))
}

func TestLeaveIsIdempotent(t *testing.T) {
	reg, _, sessionID, _ := newTestRegistry(t)
	ctx := context.Background()

	userID := uuid.New()
	_, err := reg.Join(ctx, sessionID, "conn-1", &userID)
	require.NoError(t, err)

	dep, err := reg.Leave(ctx, "conn-1")
	require.NoError(t, err)
	require.NotNil(t, dep)
	assert.Equal(t, sessionID, dep.SessionID)

	dep, err = reg.Leave(ctx, "conn-1")
	require.NoError(t, err)
	assert.Nil(t, dep, "duplicate leave must be a no-op")

	dep, err = reg.Leave(ctx, "never-joined")
	require.NoError(t, err)
	assert.Nil(t, dep)
	assert.Equal(t, 0, reg.ViewerCount(sessionID), "count never goes negative")
}

func TestRejoinSameUserIsReconnection(t *testing.T) {
	reg, store, sessionID, _ := newTestRegistry(t)
	ctx := context.Background()

	userID := uuid.New()
	res, err := reg.Join(ctx, sessionID, "conn-old", &userID)
	require.NoError(t, err)
	assert.False(t, res.Reconnection)
	countBefore := reg.ViewerCount(sessionID)

	res, err = reg.Join(ctx, sessionID, "conn-new", &userID)
	require.NoError(t, err)
	assert.True(t, res.Reconnection, "second join for the same user is a reconnection")
	assert.Equal(t, 1, store.openCount(sessionID), "prior view record must be closed")
	assert.Equal(t, countBefore, reg.ViewerCount(sessionID), "viewer count unchanged across reconnection")

	// the old connection's membership is gone with its view record
	dep, err := reg.Leave(ctx, "conn-old")
	require.NoError(t, err)
	assert.Nil(t, dep, "old connection was already detached")
	assert.Equal(t, countBefore, reg.ViewerCount(sessionID))

	dep, err = reg.Leave(ctx, "conn-new")
	require.NoError(t, err)
	require.NotNil(t, dep)
	assert.Equal(t, 0, reg.ViewerCount(sessionID))
}

func TestJoinUnknownSession(t *testing.T) {
	reg, _, _, _ := newTestRegistry(t)
	userID := uuid.New()
	_, err := reg.Join(context.Background(), uuid.New(), "conn-1", &userID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestCloseAllActive(t *testing.T) {
	reg, store, sessionID, creatorID := newTestRegistry(t)
	ctx := context.Background()

	_, err := reg.Join(ctx, sessionID, "conn-creator", &creatorID)
	require.NoError(t, err)
	v1 := uuid.New()
	_, err = reg.Join(ctx, sessionID, "conn-1", &v1)
	require.NoError(t, err)

	endedAt := time.Now()
	require.NoError(t, reg.CloseAllActive(ctx, sessionID, endedAt))

	assert.Equal(t, 0, store.openCount(sessionID), "every open view record must be closed")
	assert.Equal(t, 0, reg.ViewerCount(sessionID))
	for _, v := range store.views {
		if v.SessionID == sessionID {
			require.NotNil(t, v.LeftAt)
			assert.GreaterOrEqual(t, v.WatchSeconds, int64(0))
		}
	}
}

func TestBaseline(t *testing.T) {
	reg, _, sessionID, _ := newTestRegistry(t)
	ctx := context.Background()

	// Two anonymous views and one authenticated: unique=1, total=3.
	userID := uuid.New()
	_, err := reg.Join(ctx, sessionID, "conn-1", &userID)
	require.NoError(t, err)
	_, err = reg.Join(ctx, sessionID, "conn-2", nil)
	require.NoError(t, err)
	_, err = reg.Join(ctx, sessionID, "conn-3", nil)
	require.NoError(t, err)

	baseline, err := reg.Baseline(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, 3, baseline, "baseline is max(unique, total)")
}

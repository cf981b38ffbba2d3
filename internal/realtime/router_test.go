package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/presence"
)

type fakePresence struct {
	joined    map[string]uuid.UUID
	count     int
	joinErr   error
	reconnect bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{joined: make(map[string]uuid.UUID)}
}

func (f *fakePresence) Join(_ context.Context, sessionID uuid.UUID, connID string, userID *uuid.UUID) (presence.JoinResult, error) {
	if f.joinErr != nil {
		return presence.JoinResult{}, f.joinErr
	}
	f.joined[connID] = sessionID
	f.count++
	return presence.JoinResult{Role: models.ViewRoleSubscriber, Reconnection: f.reconnect}, nil
}

func (f *fakePresence) Leave(_ context.Context, connID string) (*presence.Departure, error) {
	sessionID, ok := f.joined[connID]
	if !ok {
		return nil, nil
	}
	delete(f.joined, connID)
	f.count--
	return &presence.Departure{SessionID: sessionID, Role: models.ViewRoleSubscriber}, nil
}

func (f *fakePresence) ViewerCount(_ uuid.UUID) int { return f.count }

type fakeReactions struct {
	recorded []string
}

func (f *fakeReactions) Record(_ uuid.UUID, reactionType string) {
	f.recorded = append(f.recorded, reactionType)
}
func (f *fakeReactions) Percentages(_ uuid.UUID) map[string]int {
	return map[string]int{"heart": 100}
}
func (f *fakeReactions) Total(_ uuid.UUID) int { return len(f.recorded) }

type fakeChat struct{}

func (fakeChat) Accept(_ context.Context, sessionID uuid.UUID, userID *uuid.UUID, userName, text string) (*models.ChatMessage, error) {
	return &models.ChatMessage{
		ID:        uuid.New(),
		SessionID: sessionID,
		UserID:    userID,
		UserName:  userName,
		Message:   text,
		CreatedAt: time.Now(),
	}, nil
}

type fakeClickTracker struct {
	clicks []uuid.UUID
}

func (f *fakeClickTracker) TrackClick(_, productID uuid.UUID, _ *uuid.UUID) {
	f.clicks = append(f.clicks, productID)
}

type fakeStarts struct {
	started []uuid.UUID
}

func (f *fakeStarts) Start(sessionID uuid.UUID) { f.started = append(f.started, sessionID) }

type fakeShowcaser struct {
	calls []*uuid.UUID
	err   error
}

func (f *fakeShowcaser) Showcase(_ context.Context, _ uuid.UUID, productID *uuid.UUID) error {
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, productID)
	return nil
}

type fakeSessionInfo struct {
	sessions map[uuid.UUID]*models.Session
}

func (f *fakeSessionInfo) GetByID(_ context.Context, id uuid.UUID) (*models.Session, error) {
	return f.sessions[id], nil
}

type routerFixture struct {
	router    *Router
	hub       *Hub
	presence  *fakePresence
	reactions *fakeReactions
	clicks    *fakeClickTracker
	starts    *fakeStarts
	showcase  *fakeShowcaser
	info      *fakeSessionInfo
}

func newRouterFixture(live ...*models.Session) *routerFixture {
	f := &routerFixture{
		hub:       NewHub(zap.NewNop(), nil, nil),
		presence:  newFakePresence(),
		reactions: &fakeReactions{},
		clicks:    &fakeClickTracker{},
		starts:    &fakeStarts{},
		showcase:  &fakeShowcaser{},
		info:      &fakeSessionInfo{sessions: make(map[uuid.UUID]*models.Session)},
	}
	for _, s := range live {
		f.info.sessions[s.ID] = s
	}
	f.router = NewRouter(f.hub, f.presence, f.reactions, fakeChat{}, f.clicks, f.starts, f.showcase, f.info, nil)
	return f
}

func newTestClient() *Client {
	return &Client{ID: uuid.New().String(), send: make(chan WSMessage, 16)}
}

func raw(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return data
}

func drain(c *Client) []WSMessage {
	var out []WSMessage
	for {
		select {
		case msg := <-c.send:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func events(msgs []WSMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Event)
	}
	return out
}

func liveTestSession() *models.Session {
	return &models.Session{ID: uuid.New(), Status: models.StatusLive, CreatorID: uuid.New()}
}

func TestJoinRegistersAndBroadcastsViewerCount(t *testing.T) {
	f := newRouterFixture()
	sessionID := uuid.New()
	c := newTestClient()
	ctx := context.Background()

	f.router.Dispatch(ctx, c, WSMessage{Event: "join", Data: raw(t, map[string]string{"sessionId": sessionID.String()})})

	require.NotNil(t, c.sessionID)
	assert.Equal(t, sessionID, *c.sessionID)
	assert.Equal(t, 1, f.hub.AudienceCount(sessionID))

	msgs := drain(c)
	require.Equal(t, []string{"viewer-count"}, events(msgs))
	var count int
	require.NoError(t, json.Unmarshal(msgs[0].Data, &count))
	assert.Equal(t, 1, count)
}

func TestJoinUnknownSessionReportsToSenderOnly(t *testing.T) {
	f := newRouterFixture()
	f.presence.joinErr = presence.ErrSessionNotFound
	c := newTestClient()

	f.router.Dispatch(context.Background(), c, WSMessage{Event: "join", Data: raw(t, map[string]string{"sessionId": uuid.New().String()})})

	assert.Nil(t, c.sessionID)
	assert.Equal(t, []string{"error"}, events(drain(c)))
}

func TestLeaveAndDisconnectCleanUpOnce(t *testing.T) {
	f := newRouterFixture()
	sessionID := uuid.New()
	c := newTestClient()
	ctx := context.Background()

	f.router.Dispatch(ctx, c, WSMessage{Event: "join", Data: raw(t, map[string]string{"sessionId": sessionID.String()})})
	drain(c)

	f.router.Dispatch(ctx, c, WSMessage{Event: "leave", Data: raw(t, map[string]string{"sessionId": sessionID.String()})})
	assert.Nil(t, c.sessionID)
	assert.Equal(t, 0, f.hub.AudienceCount(sessionID))
	assert.Equal(t, 0, f.presence.count)

	// disconnect after leave is a no-op
	f.router.Disconnect(ctx, c)
	assert.Equal(t, 0, f.presence.count, "duplicate cleanup never double-decrements")
}

func TestReactionBroadcastsEventAndStats(t *testing.T) {
	f := newRouterFixture()
	sessionID := uuid.New()
	c := newTestClient()
	ctx := context.Background()

	f.router.Dispatch(ctx, c, WSMessage{Event: "join", Data: raw(t, map[string]string{"sessionId": sessionID.String()})})
	drain(c)

	f.router.Dispatch(ctx, c, WSMessage{Event: "send-reaction", Data: raw(t, map[string]string{"sessionId": sessionID.String(), "type": "heart"})})

	assert.Equal(t, []string{"heart"}, f.reactions.recorded)
	assert.Equal(t, []string{"new-reaction", "reaction-stats"}, events(drain(c)))
}

func TestEmptyReactionTypeRejected(t *testing.T) {
	f := newRouterFixture()
	c := newTestClient()

	f.router.Dispatch(context.Background(), c, WSMessage{Event: "send-reaction", Data: raw(t, map[string]string{"sessionId": uuid.New().String(), "type": ""})})

	assert.Empty(t, f.reactions.recorded)
	assert.Equal(t, []string{"error"}, events(drain(c)))
}

func TestMessageBroadcastsToRoom(t *testing.T) {
	f := newRouterFixture()
	sessionID := uuid.New()
	c := newTestClient()
	c.UserName = "alice"
	ctx := context.Background()

	f.router.Dispatch(ctx, c, WSMessage{Event: "join", Data: raw(t, map[string]string{"sessionId": sessionID.String()})})
	drain(c)

	f.router.Dispatch(ctx, c, WSMessage{Event: "send-message", Data: raw(t, map[string]string{"sessionId": sessionID.String(), "message": "hi all"})})

	msgs := drain(c)
	require.Equal(t, []string{"new-message"}, events(msgs))
	var body struct {
		Message  string `json:"message"`
		UserName string `json:"userName"`
	}
	require.NoError(t, json.Unmarshal(msgs[0].Data, &body))
	assert.Equal(t, "hi all", body.Message)
	assert.Equal(t, "alice", body.UserName)
}

func TestClickRequiresLiveSession(t *testing.T) {
	sess := liveTestSession()
	ended := liveTestSession()
	ended.Status = models.StatusEnded
	f := newRouterFixture(sess, ended)
	c := newTestClient()
	productID := uuid.New()
	ctx := context.Background()

	f.router.Dispatch(ctx, c, WSMessage{Event: "track-product-click", Data: raw(t, map[string]string{"sessionId": sess.ID.String(), "productId": productID.String()})})
	assert.Equal(t, []uuid.UUID{productID}, f.clicks.clicks)
	assert.Equal(t, []uuid.UUID{sess.ID}, f.starts.started, "click restarts the stats broadcaster")

	f.router.Dispatch(ctx, c, WSMessage{Event: "track-product-click", Data: raw(t, map[string]string{"sessionId": ended.ID.String(), "productId": productID.String()})})
	assert.Len(t, f.clicks.clicks, 1, "clicks on non-live sessions are rejected")
	assert.Equal(t, []string{"error"}, events(drain(c)))
}

func TestShowcaseCreatorOnly(t *testing.T) {
	sess := liveTestSession()
	f := newRouterFixture(sess)
	ctx := context.Background()
	productID := uuid.New().String()

	viewer := newTestClient()
	viewerID := uuid.New()
	viewer.UserID = &viewerID
	f.router.Dispatch(ctx, viewer, WSMessage{Event: "showcase-product", Data: raw(t, map[string]interface{}{"sessionId": sess.ID.String(), "productId": productID})})
	assert.Empty(t, f.showcase.calls)
	assert.Equal(t, []string{"error"}, events(drain(viewer)))

	creator := newTestClient()
	creator.UserID = &sess.CreatorID
	f.router.Dispatch(ctx, creator, WSMessage{Event: "showcase-product", Data: raw(t, map[string]interface{}{"sessionId": sess.ID.String(), "productId": productID})})
	require.Len(t, f.showcase.calls, 1)
	assert.Empty(t, drain(creator), "accepted showcase reports nothing to the sender")
}

package presence

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
)

// ErrSessionNotFound is returned when joining a session that does not exist.
var ErrSessionNotFound = errors.New("session not found")

// ViewStore is the durable View Record storage the registry writes through.
type ViewStore interface {
	Insert(ctx context.Context, v *models.SessionView) error
	Close(ctx context.Context, id uuid.UUID, leftAt time.Time) error
	FindActiveByUser(ctx context.Context, sessionID, userID uuid.UUID) (*models.SessionView, error)
	FindActiveByConn(ctx context.Context, connID string) (*models.SessionView, error)
	CloseAllActive(ctx context.Context, sessionID uuid.UUID, at time.Time) error
	CountsBySession(ctx context.Context, sessionID uuid.UUID) (unique, total int, err error)
}

// SessionDirectory resolves a session's creator for role assignment.
type SessionDirectory interface {
	CreatorID(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error)
}

// JoinResult reports the role assigned to a joining connection and whether
// the join replaced a prior active view for the same user.
type JoinResult struct {
	Role         models.ViewRole
	Reconnection bool
}

// Departure describes the membership removed by Leave.
type Departure struct {
	SessionID uuid.UUID
	Role      models.ViewRole
	UserID    *uuid.UUID
}

type membership struct {
	sessionID uuid.UUID
	role      models.ViewRole
	userID    *uuid.UUID
	viewID    uuid.UUID
	joinedAt  time.Time
}

// Registry tracks which connections are attached to which session and in what
// role. Memberships are a pure in-memory index for fast counting; every
// mutation goes through the durable ViewStore first, so the index can be
// reconstructed from open view records after a restart.
type Registry struct {
	mu       sync.RWMutex
	conns    map[string]*membership
	sessions map[uuid.UUID]map[string]*membership
	store    ViewStore
	dir      SessionDirectory
	logger   *zap.Logger
}

// NewRegistry creates a presence registry backed by the given view store.
func NewRegistry(store ViewStore, dir SessionDirectory, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		conns:    make(map[string]*membership),
		sessions: make(map[uuid.UUID]map[string]*membership),
		store:    store,
		dir:      dir,
		logger:   logger,
	}
}

// Join attaches a connection to a session. The role is derived from the
// session's creator: the creator joins as publisher, everyone else as
// subscriber. Any prior active view for the same user (or a stale view bound
// to this connection id) is closed first and the join is flagged as a
// reconnection rather than a new viewer.
func (r *Registry) Join(ctx context.Context, sessionID uuid.UUID, connID string, userID *uuid.UUID) (JoinResult, error) {
	creatorID, err := r.dir.CreatorID(ctx, sessionID)
	if err != nil {
		return JoinResult{}, err
	}

	role := models.ViewRoleSubscriber
	if userID != nil && *userID == creatorID {
		role = models.ViewRolePublisher
	}

	now := time.Now()
	reconnection := false

	if userID != nil {
		prior, err := r.store.FindActiveByUser(ctx, sessionID, *userID)
		if err != nil {
			return JoinResult{}, err
		}
		if prior != nil {
			if err := r.store.Close(ctx, prior.ID, now); err != nil {
				return JoinResult{}, err
			}
			r.detachRecord(prior)
			reconnection = true
		}
	}

	stale, err := r.store.FindActiveByConn(ctx, connID)
	if err != nil {
		return JoinResult{}, err
	}
	if stale != nil {
		if err := r.store.Close(ctx, stale.ID, now); err != nil {
			return JoinResult{}, err
		}
		r.detachRecord(stale)
		if !reconnection && stale.SessionID == sessionID && sameUser(stale.UserID, userID) {
			reconnection = true
		}
	}

	view := &models.SessionView{
		SessionID: sessionID,
		UserID:    userID,
		ConnID:    &connID,
		Role:      role,
	}
	if err := r.store.Insert(ctx, view); err != nil {
		return JoinResult{}, err
	}

	m := &membership{
		sessionID: sessionID,
		role:      role,
		userID:    userID,
		viewID:    view.ID,
		joinedAt:  view.JoinedAt,
	}
	r.mu.Lock()
	if old := r.conns[connID]; old != nil {
		r.detachLocked(connID, old)
	}
	r.conns[connID] = m
	if r.sessions[sessionID] == nil {
		r.sessions[sessionID] = make(map[string]*membership)
	}
	r.sessions[sessionID][connID] = m
	r.mu.Unlock()

	r.logger.Debug("connection joined session",
		zap.String("conn_id", connID),
		zap.String("session_id", sessionID.String()),
		zap.String("role", string(role)),
		zap.Bool("reconnection", reconnection))

	return JoinResult{Role: role, Reconnection: reconnection}, nil
}

// Leave closes the view record bound to a connection and drops its
// membership. Returns nil for connections that were never tracked or were
// already cleaned up (duplicate leave is a no-op).
func (r *Registry) Leave(ctx context.Context, connID string) (*Departure, error) {
	r.mu.Lock()
	m := r.conns[connID]
	if m != nil {
		r.detachLocked(connID, m)
	}
	r.mu.Unlock()
	if m == nil {
		return nil, nil
	}

	if err := r.store.Close(ctx, m.viewID, time.Now()); err != nil {
		return nil, err
	}
	r.logger.Debug("connection left session",
		zap.String("conn_id", connID),
		zap.String("session_id", m.sessionID.String()))
	return &Departure{SessionID: m.sessionID, Role: m.role, UserID: m.userID}, nil
}

// ViewerCount returns the number of live subscriber connections in a session.
// Publishers are never counted as viewers.
func (r *Registry) ViewerCount(sessionID uuid.UUID) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int
	for _, m := range r.sessions[sessionID] {
		if m.role == models.ViewRoleSubscriber {
			count++
		}
	}
	return count
}

// CloseAllActive force-closes every open view record for a session at the
// given time and drops all in-memory memberships for it (session end).
func (r *Registry) CloseAllActive(ctx context.Context, sessionID uuid.UUID, at time.Time) error {
	if err := r.store.CloseAllActive(ctx, sessionID, at); err != nil {
		return err
	}
	r.mu.Lock()
	for connID := range r.sessions[sessionID] {
		delete(r.conns, connID)
	}
	delete(r.sessions, sessionID)
	r.mu.Unlock()
	return nil
}

// Baseline returns the viewer baseline for conversion metrics: the larger of
// the distinct authenticated viewer count and the total view count, from the
// durable View Record aggregate (subscribers only).
func (r *Registry) Baseline(ctx context.Context, sessionID uuid.UUID) (int, error) {
	unique, total, err := r.store.CountsBySession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if unique > total {
		return unique, nil
	}
	return total, nil
}

// detachRecord drops the in-memory membership bound to a just-closed view
// record, keeping the index consistent with view record state. A reconnecting
// user's prior view may be bound to a different connection id than the one
// joining now.
func (r *Registry) detachRecord(v *models.SessionView) {
	if v.ConnID == nil {
		return
	}
	r.mu.Lock()
	if m := r.conns[*v.ConnID]; m != nil && m.viewID == v.ID {
		r.detachLocked(*v.ConnID, m)
	}
	r.mu.Unlock()
}

// caller holds r.mu
func (r *Registry) detachLocked(connID string, m *membership) {
	delete(r.conns, connID)
	if set := r.sessions[m.sessionID]; set != nil {
		delete(set, connID)
		if len(set) == 0 {
			delete(r.sessions, m.sessionID)
		}
	}
}

func sameUser(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

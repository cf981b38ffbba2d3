package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/internal/presence"
	"github.com/streamcart/backend/internal/sessions"
)

// Presence is the slice of the presence registry the router drives.
type Presence interface {
	Join(ctx context.Context, sessionID uuid.UUID, connID string, userID *uuid.UUID) (presence.JoinResult, error)
	Leave(ctx context.Context, connID string) (*presence.Departure, error)
	ViewerCount(sessionID uuid.UUID) int
}

// Reactions is the in-memory reaction aggregate.
type Reactions interface {
	Record(sessionID uuid.UUID, reactionType string)
	Percentages(sessionID uuid.UUID) map[string]int
	Total(sessionID uuid.UUID) int
}

// ChatService accepts and persists inbound chat messages best-effort.
type ChatService interface {
	Accept(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, userName, text string) (*models.ChatMessage, error)
}

// Clicks records product clicks into the in-memory tally.
type Clicks interface {
	TrackClick(sessionID, productID uuid.UUID, userID *uuid.UUID)
}

// StatsBroadcasts starts the per-session stats broadcast loop (idempotent).
type StatsBroadcasts interface {
	Start(sessionID uuid.UUID)
}

// Showcaser applies showcase-product updates through the lifecycle rules.
type Showcaser interface {
	Showcase(ctx context.Context, sessionID uuid.UUID, productID *uuid.UUID) error
}

// SessionInfo loads session rows for status and ownership checks.
type SessionInfo interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Router dispatches inbound connection events to the aggregation components
// and owns the connection-to-session mapping cleanup on disconnect.
type Router struct {
	hub       *Hub
	presence  Presence
	reactions Reactions
	chat      ChatService
	clicks    Clicks
	broadcast StatsBroadcasts
	showcase  Showcaser
	sessions  SessionInfo
	logger    *zap.Logger
}

// NewRouter creates a connection event router.
func NewRouter(hub *Hub, pres Presence, reactions Reactions, chat ChatService,
	clicks Clicks, broadcast StatsBroadcasts, showcase Showcaser, sessionInfo SessionInfo,
	logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		hub:       hub,
		presence:  pres,
		reactions: reactions,
		chat:      chat,
		clicks:    clicks,
		broadcast: broadcast,
		showcase:  showcase,
		sessions:  sessionInfo,
		logger:    logger,
	}
}

type joinPayload struct {
	SessionID string  `json:"sessionId"`
	UserID    *string `json:"userId"`
}

type reactionPayload struct {
	SessionID string `json:"sessionId"`
	Type      string `json:"type"`
}

type messagePayload struct {
	SessionID string  `json:"sessionId"`
	Message   string  `json:"message"`
	UserID    *string `json:"userId"`
	UserName  string  `json:"userName"`
}

type showcasePayload struct {
	SessionID string  `json:"sessionId"`
	ProductID *string `json:"productId"`
}

type clickPayload struct {
	SessionID string  `json:"sessionId"`
	ProductID string  `json:"productId"`
	UserID    *string `json:"userId"`
}

// Dispatch routes one inbound message from a connection. Invalid payloads and
// rejected operations are reported back to the sender only.
func (r *Router) Dispatch(ctx context.Context, c *Client, msg WSMessage) {
	switch msg.Event {
	case "join":
		r.handleJoin(ctx, c, msg.Data)
	case "leave":
		r.handleLeave(ctx, c)
	case "send-reaction":
		r.handleReaction(c, msg.Data)
	case "send-message":
		r.handleMessage(ctx, c, msg.Data)
	case "showcase-product":
		r.handleShowcase(ctx, c, msg.Data)
	case "track-product-click":
		r.handleClick(ctx, c, msg.Data)
	default:
		// ignore
	}
}

// Disconnect performs the same cleanup as an explicit leave so abrupt network
// loss never leaks an active view record.
func (r *Router) Disconnect(ctx context.Context, c *Client) {
	r.handleLeave(ctx, c)
}

func (r *Router) handleJoin(ctx context.Context, c *Client, data json.RawMessage) {
	var p joinPayload
	sessionID, ok := parseScoped(c, data, &p, func() string { return p.SessionID })
	if !ok {
		return
	}

	// a connection is in at most one room
	if c.sessionID != nil {
		r.handleLeave(ctx, c)
	}

	userID := c.UserID
	if userID == nil && p.UserID != nil {
		if id, err := uuid.Parse(*p.UserID); err == nil {
			userID = &id
		}
	}

	res, err := r.presence.Join(ctx, sessionID, c.ID, userID)
	if err != nil {
		if errors.Is(err, presence.ErrSessionNotFound) || errors.Is(err, sessions.ErrSessionNotFound) {
			c.sendError("session not found")
			return
		}
		r.logger.Error("join failed", zap.Error(err), zap.String("conn_id", c.ID))
		c.sendError("join failed")
		return
	}

	c.sessionID = &sessionID
	c.role = res.Role
	r.hub.Register(sessionID, c)
	r.hub.BroadcastToSession(sessionID, "viewer-count", r.presence.ViewerCount(sessionID))
}

func (r *Router) handleLeave(ctx context.Context, c *Client) {
	dep, err := r.presence.Leave(ctx, c.ID)
	if err != nil {
		r.logger.Error("leave failed", zap.Error(err), zap.String("conn_id", c.ID))
	}
	if c.sessionID != nil {
		r.hub.Unregister(*c.sessionID, c.ID)
		c.sessionID = nil
	}
	if dep != nil {
		r.hub.BroadcastToSession(dep.SessionID, "viewer-count", r.presence.ViewerCount(dep.SessionID))
	}
}

func (r *Router) handleReaction(c *Client, data json.RawMessage) {
	var p reactionPayload
	sessionID, ok := parseScoped(c, data, &p, func() string { return p.SessionID })
	if !ok {
		return
	}
	if p.Type == "" {
		c.sendError("reaction type is required")
		return
	}

	r.reactions.Record(sessionID, p.Type)
	r.hub.BroadcastToSession(sessionID, "new-reaction", map[string]interface{}{
		"type":      p.Type,
		"timestamp": time.Now(),
	})
	r.hub.BroadcastToSession(sessionID, "reaction-stats", map[string]interface{}{
		"sessionId":   sessionID,
		"percentages": r.reactions.Percentages(sessionID),
		"total":       r.reactions.Total(sessionID),
	})
}

func (r *Router) handleMessage(ctx context.Context, c *Client, data json.RawMessage) {
	var p messagePayload
	sessionID, ok := parseScoped(c, data, &p, func() string { return p.SessionID })
	if !ok {
		return
	}

	userID := c.UserID
	if userID == nil && p.UserID != nil {
		if id, err := uuid.Parse(*p.UserID); err == nil {
			userID = &id
		}
	}
	userName := c.UserName
	if userName == "" {
		userName = p.UserName
	}

	m, err := r.chat.Accept(ctx, sessionID, userID, userName, p.Message)
	if err != nil {
		c.sendError("message must not be empty")
		return
	}
	r.hub.BroadcastToSession(sessionID, "new-message", map[string]interface{}{
		"id":        m.ID,
		"message":   m.Message,
		"userId":    m.UserID,
		"userName":  m.UserName,
		"sessionId": m.SessionID,
		"createdAt": m.CreatedAt,
	})
}

func (r *Router) handleShowcase(ctx context.Context, c *Client, data json.RawMessage) {
	var p showcasePayload
	sessionID, ok := parseScoped(c, data, &p, func() string { return p.SessionID })
	if !ok {
		return
	}

	s, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		c.sendError("session not found")
		return
	}
	if c.UserID == nil || *c.UserID != s.CreatorID {
		c.sendError("only the session creator can showcase products")
		return
	}

	var productID *uuid.UUID
	if p.ProductID != nil {
		id, err := uuid.Parse(*p.ProductID)
		if err != nil {
			c.sendError("invalid productId")
			return
		}
		productID = &id
	}
	if err := r.showcase.Showcase(ctx, sessionID, productID); err != nil {
		c.sendError(err.Error())
	}
}

func (r *Router) handleClick(ctx context.Context, c *Client, data json.RawMessage) {
	var p clickPayload
	sessionID, ok := parseScoped(c, data, &p, func() string { return p.SessionID })
	if !ok {
		return
	}
	productID, err := uuid.Parse(p.ProductID)
	if err != nil {
		c.sendError("invalid productId")
		return
	}

	s, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil || s == nil {
		c.sendError("session not found")
		return
	}
	if !s.IsLive() {
		c.sendError("session is not live")
		return
	}

	userID := c.UserID
	if userID == nil && p.UserID != nil {
		if id, err := uuid.Parse(*p.UserID); err == nil {
			userID = &id
		}
	}
	r.clicks.TrackClick(sessionID, productID, userID)
	r.broadcast.Start(sessionID)
}

// parseScoped unmarshals a session-scoped payload and parses its session id,
// reporting problems to the sender.
func parseScoped(c *Client, data json.RawMessage, dst interface{}, sessionID func() string) (uuid.UUID, bool) {
	if err := json.Unmarshal(data, dst); err != nil {
		c.sendError("invalid payload")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(sessionID())
	if err != nil {
		c.sendError("invalid sessionId")
		return uuid.Nil, false
	}
	return id, true
}

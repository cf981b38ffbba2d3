package zego

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamcart/backend/config"
	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
)

// SessionSource loads the session whose channel a token is issued for.
type SessionSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Session, error)
}

// Handler issues streaming-channel tokens.
type Handler struct {
	cfg      config.ZegoConfig
	sessions SessionSource
}

// NewHandler creates a stream token handler.
func NewHandler(cfg config.ZegoConfig, sessions SessionSource) *Handler {
	return &Handler{cfg: cfg, sessions: sessions}
}

// TokenResponse is the JSON shape for GET /sessions/:id/stream-token.
type TokenResponse struct {
	Token       string `json:"token"`
	ChannelName string `json:"channel_name"`
	Identity    string `json:"identity"`
	Publisher   bool   `json:"publisher"`
	ExpiresIn   int64  `json:"expires_in"`
}

// StreamToken handles GET /sessions/:id/stream-token. Anonymous viewers get a
// subscriber token under a generated identity; the session creator gets
// publish privilege.
func (h *Handler) StreamToken(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.sessions.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if s == nil {
		response.NotFound(c, "session not found")
		return
	}
	if s.ChannelName == "" {
		response.Conflict(c, "session has no streaming channel yet")
		return
	}

	identity := "viewer-" + uuid.New().String()
	publisher := false
	if v, ok := c.Get(middleware.ContextUserID); ok {
		if userID, ok := v.(uuid.UUID); ok {
			identity = userID.String()
			publisher = userID == s.CreatorID
		}
	}

	token, err := GenerateChannelToken(h.cfg.AppID, h.cfg.ServerSecret, s.ChannelName, identity, publisher, h.cfg.TokenTTLSec)
	if err != nil {
		response.Internal(c, "failed to generate stream token")
		return
	}
	response.OK(c, TokenResponse{
		Token:       token,
		ChannelName: s.ChannelName,
		Identity:    identity,
		Publisher:   publisher,
		ExpiresIn:   h.cfg.TokenTTLSec,
	})
}

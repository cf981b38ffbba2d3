package chat

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
)

// ErrEmptyMessage rejects blank chat messages.
var ErrEmptyMessage = errors.New("message must not be empty")

// Handler handles chat history HTTP endpoints.
type Handler struct {
	repo *Repository
}

// NewHandler creates a chat handler.
func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List handles GET /sessions/:id/messages. Query params: limit (default 50,
// max 200), before (RFC3339 timestamp for older pages).
func (h *Handler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			response.BadRequest(c, "invalid limit")
			return
		}
		limit = n
	}
	var before *time.Time
	if v := c.Query("before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "invalid before timestamp")
			return
		}
		before = &t
	}

	list, err := h.repo.ListBySession(c.Request.Context(), sessionID, limit, before)
	if err != nil {
		response.Internal(c, "failed to list messages")
		return
	}
	if list == nil {
		list = []models.ChatMessage{}
	}
	response.OK(c, list)
}

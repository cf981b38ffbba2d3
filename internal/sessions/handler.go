package sessions

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
)

// CreateRequest is the body for POST /sessions.
type CreateRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// UpdateRequest is the body for PATCH /sessions/:id.
type UpdateRequest struct {
	Title       string   `json:"title" binding:"required"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
}

// ShowcaseRequest is the body for POST /sessions/:id/showcase.
// A null product id clears the showcase.
type ShowcaseRequest struct {
	ProductID *string `json:"product_id"`
}

// Handler handles session HTTP endpoints.
type Handler struct {
	repo  *Repository
	coord *Coordinator
}

// NewHandler creates a session handler.
func NewHandler(repo *Repository, coord *Coordinator) *Handler {
	return &Handler{repo: repo, coord: coord}
}

// Create handles POST /sessions (creator only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	s := &models.Session{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Tags:        req.Tags,
		CreatorID:   userID,
	}
	if err := h.repo.Create(c.Request.Context(), s); err != nil {
		response.Internal(c, "failed to create session")
		return
	}
	response.Created(c, s)
}

// List handles GET /sessions. Optional filters: status, creator_id.
func (h *Handler) List(c *gin.Context) {
	var status *models.SessionStatus
	if v := c.Query("status"); v != "" {
		st := models.SessionStatus(v)
		switch st {
		case models.StatusScheduled, models.StatusLive, models.StatusPaused, models.StatusEnded:
			status = &st
		default:
			response.BadRequest(c, "invalid status filter")
			return
		}
	}
	var creatorID *uuid.UUID
	if v := c.Query("creator_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid creator_id")
			return
		}
		creatorID = &id
	}

	list, err := h.repo.List(c.Request.Context(), status, creatorID)
	if err != nil {
		response.Internal(c, "failed to list sessions")
		return
	}
	if list == nil {
		list = []models.Session{}
	}
	response.OK(c, list)
}

// GetByID handles GET /sessions/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load session")
		return
	}
	if s == nil {
		response.NotFound(c, "session not found")
		return
	}
	response.OK(c, s)
}

// Update handles PATCH /sessions/:id (creator only).
func (h *Handler) Update(c *gin.Context) {
	id, s, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.Update(c.Request.Context(), id, req.Title, req.Description, req.Category, req.Tags); err != nil {
		response.Internal(c, "failed to update session")
		return
	}
	s.Title = req.Title
	s.Description = req.Description
	s.Category = req.Category
	if req.Tags != nil {
		s.Tags = req.Tags
	}
	response.OK(c, s)
}

// Delete handles DELETE /sessions/:id (creator only). Sessions can be deleted
// in any state, including ended.
func (h *Handler) Delete(c *gin.Context) {
	id, _, ok := h.ownedSession(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete session")
		return
	}
	response.NoContent(c)
}

// Start handles POST /sessions/:id/start (creator only).
func (h *Handler) Start(c *gin.Context) {
	id, _, ok := h.ownedSession(c)
	if !ok {
		return
	}
	s, err := h.coord.Start(c.Request.Context(), id)
	if err != nil {
		h.transitionError(c, err)
		return
	}
	response.OK(c, s)
}

// Pause handles POST /sessions/:id/pause (creator only).
func (h *Handler) Pause(c *gin.Context) {
	id, _, ok := h.ownedSession(c)
	if !ok {
		return
	}
	s, err := h.coord.Pause(c.Request.Context(), id)
	if err != nil {
		h.transitionError(c, err)
		return
	}
	response.OK(c, s)
}

// End handles POST /sessions/:id/end (creator only).
func (h *Handler) End(c *gin.Context) {
	id, _, ok := h.ownedSession(c)
	if !ok {
		return
	}
	s, err := h.coord.End(c.Request.Context(), id)
	if err != nil {
		h.transitionError(c, err)
		return
	}
	response.OK(c, s)
}

// Showcase handles POST /sessions/:id/showcase (creator only).
func (h *Handler) Showcase(c *gin.Context) {
	id, _, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req ShowcaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var productID *uuid.UUID
	if req.ProductID != nil {
		pid, err := uuid.Parse(*req.ProductID)
		if err != nil {
			response.BadRequest(c, "invalid product_id")
			return
		}
		productID = &pid
	}
	if err := h.coord.Showcase(c.Request.Context(), id, productID); err != nil {
		h.transitionError(c, err)
		return
	}
	response.OK(c, gin.H{"session_id": id, "active_product_id": productID})
}

// ownedSession parses the id param, loads the session and verifies the caller
// is its creator. Writes the error response itself when returning ok=false.
func (h *Handler) ownedSession(c *gin.Context) (uuid.UUID, *models.Session, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, nil, false
	}
	s, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load session")
		return uuid.Nil, nil, false
	}
	if s == nil {
		response.NotFound(c, "session not found")
		return uuid.Nil, nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.Get(middleware.ContextUserRole)
	if s.CreatorID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "only the session creator can do this")
		return uuid.Nil, nil, false
	}
	return id, s, true
}

func (h *Handler) transitionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrSessionNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, ErrAlreadyLive), errors.Is(err, ErrNotLive),
		errors.Is(err, ErrSessionEnded), errors.Is(err, ErrNotLiveOrPaused):
		response.Conflict(c, err.Error())
	case errors.Is(err, ErrProductNotInSession):
		response.BadRequest(c, err.Error())
	default:
		response.Internal(c, "session transition failed")
	}
}

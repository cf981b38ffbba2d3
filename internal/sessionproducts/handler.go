package sessionproducts

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
)

// AttachRequest is the body for POST /sessions/:id/products.
type AttachRequest struct {
	ProductID    string `json:"product_id" binding:"required,uuid"`
	Featured     bool   `json:"featured"`
	DisplayOrder int    `json:"display_order"`
}

// FeatureRequest is the body for PATCH /sessions/:id/products/:productId.
type FeatureRequest struct {
	Featured bool `json:"featured"`
}

// SessionDirectory resolves a session's creator for ownership checks.
type SessionDirectory interface {
	CreatorID(ctx context.Context, sessionID uuid.UUID) (uuid.UUID, error)
}

// Handler handles the session product list endpoints.
type Handler struct {
	repo     *Repository
	sessions SessionDirectory
}

// NewHandler creates a session products handler.
func NewHandler(repo *Repository, sessions SessionDirectory) *Handler {
	return &Handler{repo: repo, sessions: sessions}
}

// Attach handles POST /sessions/:id/products (session creator only).
func (h *Handler) Attach(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	productID, _ := uuid.Parse(req.ProductID)

	sp := &models.SessionProduct{
		SessionID:    sessionID,
		ProductID:    productID,
		Featured:     req.Featured,
		DisplayOrder: req.DisplayOrder,
	}
	if err := h.repo.Attach(c.Request.Context(), sp); err != nil {
		response.Internal(c, "failed to attach product")
		return
	}
	response.Created(c, sp)
}

// Detach handles DELETE /sessions/:id/products/:productId (session creator only).
func (h *Handler) Detach(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}
	if err := h.repo.Detach(c.Request.Context(), sessionID, productID); err != nil {
		response.Internal(c, "failed to detach product")
		return
	}
	response.NoContent(c)
}

// List handles GET /sessions/:id/products. Public; ?featured=true narrows to
// featured products.
func (h *Handler) List(c *gin.Context) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return
	}
	featuredOnly := c.Query("featured") == "true"
	list, err := h.repo.ListBySession(c.Request.Context(), sessionID, featuredOnly)
	if err != nil {
		response.Internal(c, "failed to list session products")
		return
	}
	if list == nil {
		list = []models.SessionProduct{}
	}
	response.OK(c, list)
}

// SetFeatured handles PATCH /sessions/:id/products/:productId (session
// creator only).
func (h *Handler) SetFeatured(c *gin.Context) {
	sessionID, ok := h.ownedSession(c)
	if !ok {
		return
	}
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}
	var req FeatureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.repo.SetFeatured(c.Request.Context(), sessionID, productID, req.Featured); err != nil {
		response.Internal(c, "failed to update featured flag")
		return
	}
	response.OK(c, gin.H{"session_id": sessionID, "product_id": productID, "featured": req.Featured})
}

func (h *Handler) ownedSession(c *gin.Context) (uuid.UUID, bool) {
	sessionID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid session id")
		return uuid.Nil, false
	}
	creatorID, err := h.sessions.CreatorID(c.Request.Context(), sessionID)
	if err != nil {
		response.NotFound(c, "session not found")
		return uuid.Nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.Get(middleware.ContextUserRole)
	if creatorID != userID && role != string(models.RoleAdmin) {
		response.Forbidden(c, "only the session creator can manage session products")
		return uuid.Nil, false
	}
	return sessionID, true
}

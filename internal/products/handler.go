package products

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/middleware"
	"github.com/streamcart/backend/internal/models"
	"github.com/streamcart/backend/pkg/response"
	"github.com/streamcart/backend/pkg/storage"
)

// CreateRequest is the body for POST /products.
type CreateRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"required,gt=0"`
	OriginalPrice *float64 `json:"original_price"`
	Category      string   `json:"category"`
	InStock       *bool    `json:"in_stock"`
}

// UpdateRequest is the body for PATCH /products/:id.
type UpdateRequest struct {
	Name          string   `json:"name" binding:"required"`
	Description   string   `json:"description"`
	Price         float64  `json:"price" binding:"required,gt=0"`
	OriginalPrice *float64 `json:"original_price"`
	Category      string   `json:"category"`
	InStock       *bool    `json:"in_stock"`
}

// Handler handles product HTTP endpoints.
type Handler struct {
	repo   *Repository
	s3     *storage.S3
	logger *zap.Logger
}

// NewHandler creates a product handler. s3 may be nil when image uploads are
// not configured.
func NewHandler(repo *Repository, s3 *storage.S3, logger *zap.Logger) *Handler {
	return &Handler{repo: repo, s3: s3, logger: logger}
}

// Create handles POST /products (creator only).
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	sellerID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	inStock := true
	if req.InStock != nil {
		inStock = *req.InStock
	}
	p := &models.Product{
		Name:          req.Name,
		Description:   req.Description,
		Price:         req.Price,
		OriginalPrice: req.OriginalPrice,
		Category:      req.Category,
		InStock:       inStock,
		SellerID:      &sellerID,
	}
	if err := h.repo.Create(c.Request.Context(), p); err != nil {
		response.Internal(c, "failed to create product")
		return
	}
	response.Created(c, p)
}

// List handles GET /products. Optional filter: seller_id.
func (h *Handler) List(c *gin.Context) {
	var sellerID *uuid.UUID
	if v := c.Query("seller_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.BadRequest(c, "invalid seller_id")
			return
		}
		sellerID = &id
	}
	list, err := h.repo.List(c.Request.Context(), sellerID)
	if err != nil {
		response.Internal(c, "failed to list products")
		return
	}
	if list == nil {
		list = []models.Product{}
	}
	response.OK(c, list)
}

// GetByID handles GET /products/:id.
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load product")
		return
	}
	if p == nil {
		response.NotFound(c, "product not found")
		return
	}
	response.OK(c, p)
}

// Update handles PATCH /products/:id (seller only).
func (h *Handler) Update(c *gin.Context) {
	p, ok := h.ownedProduct(c)
	if !ok {
		return
	}
	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	p.Name = req.Name
	p.Description = req.Description
	p.Price = req.Price
	p.OriginalPrice = req.OriginalPrice
	p.Category = req.Category
	if req.InStock != nil {
		p.InStock = *req.InStock
	}
	if err := h.repo.Update(c.Request.Context(), p); err != nil {
		response.Internal(c, "failed to update product")
		return
	}
	response.OK(c, p)
}

// Delete handles DELETE /products/:id (seller only).
func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.ownedProduct(c)
	if !ok {
		return
	}
	if err := h.repo.Delete(c.Request.Context(), p.ID); err != nil {
		response.Internal(c, "failed to delete product")
		return
	}
	response.NoContent(c)
}

// UploadImage handles POST /products/:id/image (seller only, multipart form
// field "file").
func (h *Handler) UploadImage(c *gin.Context) {
	if h.s3 == nil {
		response.ServiceUnavailable(c, "image storage is not configured")
		return
	}
	p, ok := h.ownedProduct(c)
	if !ok {
		return
	}

	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "missing file (form field: file)")
		return
	}
	if file.Size > storage.MaxImageFileSize {
		response.BadRequest(c, "file size exceeds 5MB limit")
		return
	}
	if !storage.ValidateImageFileType(file.Header.Get("Content-Type"), file.Filename) {
		response.BadRequest(c, "invalid file type: only jpg, png and webp allowed")
		return
	}

	contentType := storage.ContentTypeForFilename(file.Filename)
	if ct := file.Header.Get("Content-Type"); ct != "" {
		if _, allowed := storage.AllowedImageTypes[ct]; allowed {
			contentType = ct
		}
	}

	key := storage.ProductImageKey(p.ID.String(), file.Filename)
	rc, err := file.Open()
	if err != nil {
		h.logger.Error("open uploaded file failed", zap.Error(err))
		response.Internal(c, "failed to read file")
		return
	}
	defer rc.Close()

	url, err := h.s3.UploadProductImage(c.Request.Context(), key, contentType, rc, file.Size)
	if err != nil {
		h.logger.Error("product image upload failed", zap.Error(err), zap.String("product_id", p.ID.String()), zap.String("key", key))
		response.Internal(c, "failed to upload image to storage")
		return
	}
	if err := h.repo.SetImageURL(c.Request.Context(), p.ID, url); err != nil {
		response.Internal(c, "failed to save image url")
		return
	}
	p.ImageURL = &url
	response.OK(c, gin.H{"product_id": p.ID, "image_url": url})
}

// ownedProduct parses the id param, loads the product and verifies the caller
// is its seller (or an admin). Writes the error response when ok=false.
func (h *Handler) ownedProduct(c *gin.Context) (*models.Product, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid product id")
		return nil, false
	}
	p, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.Internal(c, "failed to load product")
		return nil, false
	}
	if p == nil {
		response.NotFound(c, "product not found")
		return nil, false
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	role, _ := c.Get(middleware.ContextUserRole)
	if (p.SellerID == nil || *p.SellerID != userID) && role != string(models.RoleAdmin) {
		response.Forbidden(c, "only the product seller can do this")
		return nil, false
	}
	return p, true
}

package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is a catalog item that can be showcased during live sessions.
type Product struct {
	ID            uuid.UUID  `json:"id"`
	Name          string     `json:"name"`
	Description   string     `json:"description"`
	Price         float64    `json:"price"`
	OriginalPrice *float64   `json:"original_price,omitempty"`
	Category      string     `json:"category"`
	InStock       bool       `json:"in_stock"`
	ImageURL      *string    `json:"image_url,omitempty"`
	SellerID      *uuid.UUID `json:"seller_id,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// SessionProduct links a product to a session's showcase list.
type SessionProduct struct {
	ID           uuid.UUID `json:"id"`
	SessionID    uuid.UUID `json:"session_id"`
	ProductID    uuid.UUID `json:"product_id"`
	Featured     bool      `json:"featured"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	Product      *Product  `json:"product,omitempty"`
}

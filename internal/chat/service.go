package chat

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/streamcart/backend/internal/models"
)

// MessageStore persists chat messages.
type MessageStore interface {
	Insert(ctx context.Context, m *models.ChatMessage) error
}

// Service accepts inbound chat messages and persists them best-effort:
// delivery to the room never waits on or fails with storage. When the insert
// fails, the broadcast message carries a locally fabricated id and timestamp.
type Service struct {
	store  MessageStore
	logger *zap.Logger
}

// NewService creates a chat service.
func NewService(store MessageStore, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger}
}

// Accept validates and stores an inbound message, returning the message to
// broadcast. Only an empty message is rejected; a storage failure is logged
// and the message is returned with a fabricated id and local timestamp so the
// room still sees it.
func (s *Service) Accept(ctx context.Context, sessionID uuid.UUID, userID *uuid.UUID, userName, text string) (*models.ChatMessage, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if userName == "" {
		userName = "Anonymous"
	}

	m := &models.ChatMessage{
		SessionID: sessionID,
		UserID:    userID,
		UserName:  userName,
		Message:   text,
	}
	if err := s.store.Insert(ctx, m); err != nil {
		s.logger.Warn("chat message persist failed, delivering unpersisted",
			zap.Error(err), zap.String("session_id", sessionID.String()))
		m.ID = uuid.New()
		m.CreatedAt = time.Now()
	}
	return m, nil
}

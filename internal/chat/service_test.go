package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcart/backend/internal/models"
)

type fakeMessageStore struct {
	inserted []models.ChatMessage
	err      error
}

func (f *fakeMessageStore) Insert(_ context.Context, m *models.ChatMessage) error {
	if f.err != nil {
		return f.err
	}
	m.ID = uuid.New()
	m.CreatedAt = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f.inserted = append(f.inserted, *m)
	return nil
}

func TestAcceptPersistsAndReturnsDurableMessage(t *testing.T) {
	store := &fakeMessageStore{}
	svc := NewService(store, nil)
	sessionID := uuid.New()
	userID := uuid.New()

	m, err := svc.Accept(context.Background(), sessionID, &userID, "alice", "hello room")
	require.NoError(t, err)

	require.Len(t, store.inserted, 1)
	assert.Equal(t, store.inserted[0].ID, m.ID, "broadcast carries the durable id")
	assert.Equal(t, "alice", m.UserName)
	assert.Equal(t, "hello room", m.Message)
	assert.False(t, m.CreatedAt.IsZero())
}

func TestAcceptDeliversOnStorageFailure(t *testing.T) {
	store := &fakeMessageStore{err: errors.New("connection refused")}
	svc := NewService(store, nil)

	m, err := svc.Accept(context.Background(), uuid.New(), nil, "bob", "still here")
	require.NoError(t, err, "storage failure must not fail delivery")

	assert.NotEqual(t, uuid.Nil, m.ID, "fabricated id when persist fails")
	assert.WithinDuration(t, time.Now(), m.CreatedAt, time.Second, "local timestamp when persist fails")
	assert.Empty(t, store.inserted)
}

func TestAcceptRejectsEmptyMessage(t *testing.T) {
	svc := NewService(&fakeMessageStore{}, nil)
	_, err := svc.Accept(context.Background(), uuid.New(), nil, "carol", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
}

func TestAcceptDefaultsAnonymousName(t *testing.T) {
	store := &fakeMessageStore{}
	svc := NewService(store, nil)

	m, err := svc.Accept(context.Background(), uuid.New(), nil, "", "hi")
	require.NoError(t, err)
	assert.Equal(t, "Anonymous", m.UserName)
	assert.Nil(t, m.UserID)
}

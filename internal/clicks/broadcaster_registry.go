package clicks

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BroadcasterRegistry holds running stats broadcasters per session (thread-safe).
type BroadcasterRegistry struct {
	mu           sync.RWMutex
	broadcasters map[string]*Broadcaster
}

// NewBroadcasterRegistry creates a new broadcaster registry.
func NewBroadcasterRegistry() *BroadcasterRegistry {
	return &BroadcasterRegistry{broadcasters: make(map[string]*Broadcaster)}
}

// Start starts the broadcaster for sessionID if not already running.
func (reg *BroadcasterRegistry) Start(sessionID uuid.UUID, agg *Aggregator, pub Publisher, intervalSec int, logger *zap.Logger) {
	key := sessionID.String()
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.broadcasters[key] != nil {
		return
	}
	b := NewBroadcaster(sessionID, agg, pub, intervalSec, logger)
	reg.broadcasters[key] = b
	b.Start()
}

// Stop stops the broadcaster for sessionID and removes it from the registry.
// Blocks until the broadcaster's loop has exited.
func (reg *BroadcasterRegistry) Stop(sessionID uuid.UUID) {
	key := sessionID.String()
	reg.mu.Lock()
	b := reg.broadcasters[key]
	delete(reg.broadcasters, key)
	reg.mu.Unlock()
	if b != nil {
		b.Stop()
	}
}

// StopAll stops every running broadcaster (server shutdown).
func (reg *BroadcasterRegistry) StopAll() {
	reg.mu.Lock()
	all := reg.broadcasters
	reg.broadcasters = make(map[string]*Broadcaster)
	reg.mu.Unlock()
	for _, b := range all {
		b.Stop()
	}
}

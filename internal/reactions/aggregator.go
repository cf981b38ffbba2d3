package reactions

import (
	"math"
	"sync"

	"github.com/google/uuid"
)

// Aggregator accumulates reaction counts per live session in memory.
// Tallies are flushed onto the session's persisted reaction_counts when the
// session ends and then cleared; a session with no tally is distinct from a
// session whose tally is empty.
type Aggregator struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]map[string]int
}

// NewAggregator creates an empty reaction aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{sessions: make(map[uuid.UUID]map[string]int)}
}

// Record increments the tally for a reaction type. Empty types are ignored.
func (a *Aggregator) Record(sessionID uuid.UUID, reactionType string) {
	if reactionType == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	tally := a.sessions[sessionID]
	if tally == nil {
		tally = make(map[string]int)
		a.sessions[sessionID] = tally
	}
	tally[reactionType]++
}

// Snapshot returns a copy of the session's tally, or nil when the session has
// no live tally.
func (a *Aggregator) Snapshot(sessionID uuid.UUID) map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	tally, ok := a.sessions[sessionID]
	if !ok {
		return nil
	}
	out := make(map[string]int, len(tally))
	for k, v := range tally {
		out[k] = v
	}
	return out
}

// Total returns the sum of all reaction counts for a session.
func (a *Aggregator) Total(sessionID uuid.UUID) int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var total int
	for _, v := range a.sessions[sessionID] {
		total += v
	}
	return total
}

// Percentages returns each reaction type's share of the total as integer
// percents. Returns nil when the session has no reactions yet.
func (a *Aggregator) Percentages(sessionID uuid.UUID) map[string]int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	tally := a.sessions[sessionID]
	if len(tally) == 0 {
		return nil
	}
	var total int
	for _, v := range tally {
		total += v
	}
	if total == 0 {
		return nil
	}
	out := make(map[string]int, len(tally))
	for k, v := range tally {
		out[k] = int(math.Round(float64(v) / float64(total) * 100))
	}
	return out
}

// Clear discards the in-memory tally for a session. Called after a successful
// flush to persisted storage.
func (a *Aggregator) Clear(sessionID uuid.UUID) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, sessionID)
}

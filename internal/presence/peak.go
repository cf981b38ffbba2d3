package presence

import (
	"sort"
	"time"

	"github.com/streamcart/backend/internal/models"
)

// PeakConcurrent reconstructs the peak concurrent viewer count from
// historical view records by sweeping join/leave events in time order.
// Records still open (nil LeftAt) count as concurrent until the end of the
// sweep.
func PeakConcurrent(views []models.SessionView) int {
	type event struct {
		at    time.Time
		delta int
	}
	events := make([]event, 0, len(views)*2)
	for _, v := range views {
		events = append(events, event{at: v.JoinedAt, delta: 1})
		if v.LeftAt != nil {
			events = append(events, event{at: *v.LeftAt, delta: -1})
		}
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			// leaves sort before joins at the same instant
			return events[i].delta < events[j].delta
		}
		return events[i].at.Before(events[j].at)
	})

	var current, peak int
	for _, e := range events {
		current += e.delta
		if current > peak {
			peak = current
		}
	}
	return peak
}

package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamcart/backend/internal/models"
)

type fakeViewSource struct {
	unique, total int
	avg           int64
	views         []models.SessionView
}

func (f *fakeViewSource) CountsBySession(_ context.Context, _ uuid.UUID) (int, int, error) {
	return f.unique, f.total, nil
}

func (f *fakeViewSource) AvgWatchSeconds(_ context.Context, _ uuid.UUID) (int64, error) {
	return f.avg, nil
}

func (f *fakeViewSource) ListBySession(_ context.Context, _ uuid.UUID) ([]models.SessionView, error) {
	return f.views, nil
}

func TestComputeSnapshot(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	leave := func(sec int) *time.Time {
		at := base.Add(time.Duration(sec) * time.Second)
		return &at
	}
	src := &fakeViewSource{
		unique: 2,
		total:  3,
		avg:    120,
		views: []models.SessionView{
			{JoinedAt: base, LeftAt: leave(100)},
			{JoinedAt: base.Add(10 * time.Second), LeftAt: leave(200)},
			{JoinedAt: base.Add(150 * time.Second), LeftAt: leave(300)},
		},
	}
	sessionID := uuid.New()

	snap, err := ComputeSnapshot(context.Background(), src, sessionID)
	require.NoError(t, err)

	assert.Equal(t, sessionID, snap.SessionID)
	assert.Equal(t, 2, snap.UniqueViewers)
	assert.Equal(t, 3, snap.TotalViews)
	assert.Equal(t, int64(120), snap.AvgWatchSeconds)
	assert.Equal(t, 2, snap.PeakViewers)
}

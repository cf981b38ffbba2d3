package presence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/streamcart/backend/internal/models"
)

func view(joined time.Time, left *time.Time) models.SessionView {
	return models.SessionView{Role: models.ViewRoleSubscriber, JoinedAt: joined, LeftAt: left}
}

func at(base time.Time, sec int) time.Time { return base.Add(time.Duration(sec) * time.Second) }

func ptr(t time.Time) *time.Time { return &t }

func TestPeakConcurrent(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		views []models.SessionView
		want  int
	}{
		{name: "empty", views: nil, want: 0},
		{
			name: "single viewer",
			views: []models.SessionView{
				view(at(base, 0), ptr(at(base, 60))),
			},
			want: 1,
		},
		{
			name: "overlapping views",
			views: []models.SessionView{
				view(at(base, 0), ptr(at(base, 30))),
				view(at(base, 10), ptr(at(base, 50))),
				view(at(base, 20), ptr(at(base, 40))),
				view(at(base, 45), ptr(at(base, 60))),
			},
			want: 3,
		},
		{
			name: "disjoint views never overlap",
			views: []models.SessionView{
				view(at(base, 0), ptr(at(base, 10))),
				view(at(base, 20), ptr(at(base, 30))),
			},
			want: 1,
		},
		{
			name: "open view counts as concurrent",
			views: []models.SessionView{
				view(at(base, 0), nil),
				view(at(base, 5), nil),
			},
			want: 2,
		},
		{
			name: "reconnection at the same instant does not inflate peak",
			views: []models.SessionView{
				view(at(base, 0), ptr(at(base, 30))),
				view(at(base, 30), ptr(at(base, 60))),
			},
			want: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PeakConcurrent(tt.views))
		})
	}
}

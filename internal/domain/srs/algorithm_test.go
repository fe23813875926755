package srs

import (
	"testing"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestNextLevel(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		level    int
		correct  bool
		expected int
	}{
		{"correct from zero", 0, true, 1},
		{"correct mid box", 3, true, 4},
		{"correct at top stays", 5, true, 5},
		{"miss from zero stays", 0, false, 0},
		{"miss drops one box", 4, false, 3},
		{"out of range high is clamped", 9, false, 5},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, nextLevel(tc.level, tc.correct, 5))
		})
	}
}

func TestCalculateNextState(t *testing.T) {
	t.Parallel()

	params := NewDefaultParams()
	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	testCases := []struct {
		name         string
		current      *domain.SrsState
		correct      bool
		wantLevel    int
		wantStreak   int
		wantInterval time.Duration
	}{
		{"nil state correct", nil, true, 1, 1, 1 * Day},
		{"nil state miss", nil, false, 0, 0, 0},
		{"level 2 correct", &domain.SrsState{Level: 2, Streak: 2}, true, 3, 3, 7 * Day},
		{"level 4 correct", &domain.SrsState{Level: 4, Streak: 4}, true, 5, 5, 30 * Day},
		{"level 5 correct", &domain.SrsState{Level: 5, Streak: 9}, true, 5, 10, 30 * Day},
		{"level 3 miss", &domain.SrsState{Level: 3, Streak: 3}, false, 2, 0, 3 * Day},
		{"level 1 miss", &domain.SrsState{Level: 1, Streak: 1}, false, 0, 0, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := calculateNextState(tc.current, tc.correct, now, params)
			assert.Equal(t, tc.wantLevel, got.Level)
			assert.Equal(t, tc.wantStreak, got.Streak)
			assert.Equal(t, now.Add(tc.wantInterval), got.NextReview)
			assert.Equal(t, now, got.LastReviewed)
		})
	}
}

func TestCalculateNextStateDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	current := &domain.SrsState{Level: 2, Streak: 2}
	_ = calculateNextState(current, true, time.Now(), NewDefaultParams())
	assert.Equal(t, &domain.SrsState{Level: 2, Streak: 2}, current)
}

func TestIsDue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		state *domain.SrsState
		want  bool
	}{
		{"nil state", nil, true},
		{"never scheduled", &domain.SrsState{}, true},
		{"exactly due", &domain.SrsState{NextReview: now}, true},
		{"overdue", &domain.SrsState{NextReview: now.Add(-time.Minute)}, true},
		{"not yet", &domain.SrsState{NextReview: now.Add(time.Second)}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, isDue(tc.state, now))
		})
	}
}

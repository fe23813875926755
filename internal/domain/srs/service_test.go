package srs

import (
	"testing"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReviewLaws(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)
	intervals := NewDefaultParams().Intervals

	for level := 0; level <= domain.MaxSRSLevel; level++ {
		for streak := 0; streak < 3; streak++ {
			s := &domain.SrsState{Level: level, Streak: streak}

			up := svc.Review(s, true, now)
			assert.Equal(t, min(level+1, 5), up.Level)
			assert.Equal(t, streak+1, up.Streak)
			assert.Equal(t, now.Add(intervals[up.Level]), up.NextReview)

			down := svc.Review(s, false, now)
			assert.Equal(t, max(level-1, 0), down.Level)
			assert.Equal(t, 0, down.Streak)
			assert.Equal(t, now.Add(intervals[down.Level]), down.NextReview)
		}
	}
}

func TestReviewReachesTopInFiveSteps(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	var state *domain.SrsState
	for i := 1; i <= 5; i++ {
		next := svc.Review(state, true, now)
		state = &next
		assert.Equal(t, i, state.Level)
	}

	for i := 0; i < 3; i++ {
		next := svc.Review(state, true, now)
		state = &next
		assert.Equal(t, 5, state.Level)
	}
	assert.Equal(t, 8, state.Streak)
}

func TestIsDueAfterReview(t *testing.T) {
	t.Parallel()

	svc := NewDefaultService()
	now := time.Date(2026, 1, 10, 8, 0, 0, 0, time.UTC)

	state := svc.Review(nil, true, now)
	assert.False(t, svc.IsDue(&state, now))
	assert.False(t, svc.IsDue(&state, now.Add(Day-time.Second)))
	assert.True(t, svc.IsDue(&state, now.Add(Day)))

	missed := svc.Review(&state, false, now)
	assert.True(t, svc.IsDue(&missed, now))
}

func TestNewParams(t *testing.T) {
	t.Parallel()

	p, err := NewParams([]time.Duration{0, time.Hour, 2 * time.Hour, 3 * time.Hour, 4 * time.Hour, 5 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 5, p.MaxLevel())
	assert.Equal(t, 5*time.Hour, p.Interval(99))
	assert.Equal(t, time.Duration(0), p.Interval(-1))

	_, err = NewParams([]time.Duration{0, time.Hour})
	assert.ErrorIs(t, err, ErrInvalidParams)

	_, err = NewParams([]time.Duration{0, 2 * time.Hour, time.Hour, 3 * time.Hour, 4 * time.Hour, 5 * time.Hour})
	assert.ErrorIs(t, err, ErrInvalidParams)

	svc := NewServiceWithParams(p)
	next := svc.Review(nil, true, time.Unix(0, 0))
	assert.Equal(t, time.Unix(0, 0).UTC().Add(time.Hour), next.NextReview)
}

package srs

import (
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// nextLevel moves an entry one box up on a correct answer and one box down on
// a miss, clamped to [0, maxLevel].
func nextLevel(level int, correct bool, maxLevel int) int {
	if correct {
		level++
	} else {
		level--
	}

	if level < 0 {
		return 0
	}
	if level > maxLevel {
		return maxLevel
	}
	return level
}

// nextStreak counts consecutive correct answers; a miss resets it.
func nextStreak(streak int, correct bool) int {
	if !correct {
		return 0
	}
	if streak < 0 {
		streak = 0
	}
	return streak + 1
}

// calculateNextState is the pure Leitner transition. A nil current state is
// treated as a fresh entry in box 0. The interval is looked up by the new
// level, so a miss from box 1 is due again immediately.
func calculateNextState(
	current *domain.SrsState,
	correct bool,
	now time.Time,
	params *Params,
) domain.SrsState {
	var state domain.SrsState
	if current != nil {
		state = *current
	}

	level := nextLevel(state.Level, correct, params.MaxLevel())
	now = now.UTC()

	return domain.SrsState{
		Level:        level,
		Streak:       nextStreak(state.Streak, correct),
		NextReview:   now.Add(params.Interval(level)),
		LastReviewed: now,
	}
}

// isDue reports whether a state should be reviewed at now.
func isDue(state *domain.SrsState, now time.Time) bool {
	if state == nil || state.NextReview.IsZero() {
		return true
	}
	return !now.Before(state.NextReview)
}

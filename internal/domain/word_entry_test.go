package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWordEntry(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	entry, err := NewWordEntry(userID, "  lantern ", RarityRare, now)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, entry.ID)
	assert.Equal(t, userID, entry.UserID)
	assert.Equal(t, "lantern", entry.Word)
	assert.Equal(t, RarityRare, entry.Rarity)
	assert.Equal(t, 0, entry.SRS.Level)
	assert.Equal(t, 0, entry.Evolution.Stage)
	assert.False(t, entry.Evolution.CanEvolve)
	assert.Equal(t, now, entry.FirstCaught)
	assert.Empty(t, entry.Tags)
}

func TestWordEntryValidate(t *testing.T) {
	t.Parallel()

	valid := func() *WordEntry {
		e, err := NewWordEntry(uuid.New(), "ember", RarityCommon, time.Now())
		require.NoError(t, err)
		return e
	}
	badBranch := Branch("adverb")

	tests := []struct {
		name   string
		mutate func(e *WordEntry)
		want   error
	}{
		{"valid", func(e *WordEntry) {}, nil},
		{"nil id", func(e *WordEntry) { e.ID = uuid.Nil }, ErrEntryIDEmpty},
		{"nil user", func(e *WordEntry) { e.UserID = uuid.Nil }, ErrEntryUserIDEmpty},
		{"blank word", func(e *WordEntry) { e.Word = "   " }, ErrEntryWordEmpty},
		{"unknown rarity", func(e *WordEntry) { e.Rarity = "shiny" }, ErrInvalidRarity},
		{"level too high", func(e *WordEntry) { e.SRS.Level = 6 }, ErrSRSLevelOutOfRange},
		{"level negative", func(e *WordEntry) { e.SRS.Level = -1 }, ErrSRSLevelOutOfRange},
		{"negative streak", func(e *WordEntry) { e.SRS.Streak = -1 }, ErrNegativeStreak},
		{"stage too high", func(e *WordEntry) { e.Evolution.Stage = 5 }, ErrStageOutOfRange},
		{"terminal can evolve", func(e *WordEntry) {
			e.Evolution.Stage = MaxStage
			e.Evolution.CanEvolve = true
		}, ErrTerminalCanEvolve},
		{"bad branch", func(e *WordEntry) { e.Evolution.Branch = &badBranch }, ErrInvalidBranch},
		{"zero first caught", func(e *WordEntry) { e.FirstCaught = time.Time{} }, ErrFirstCaughtEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := valid()
			tt.mutate(e)
			err := e.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestWordEntryClone(t *testing.T) {
	t.Parallel()

	freq := 4.2
	branch := BranchVerb
	e, err := NewWordEntry(uuid.New(), "kindle", RarityEpic, time.Now())
	require.NoError(t, err)
	e.Frequency = &freq
	e.Tags = []string{"verb"}
	e.Evolution.Branch = &branch

	c := e.Clone()
	c.Tags[0] = "noun"
	*c.Frequency = 1
	*c.Evolution.Branch = BranchNoun

	assert.Equal(t, []string{"verb"}, e.Tags)
	assert.Equal(t, 4.2, *e.Frequency)
	assert.Equal(t, BranchVerb, *e.Evolution.Branch)
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := NormalizeTags([]string{" Noun", "verb", "noun", "", "adj "})
	assert.Equal(t, []string{"adj", "noun", "verb"}, got)
	assert.NotNil(t, NormalizeTags(nil))
}

func TestEligibilityExcludesGod(t *testing.T) {
	t.Parallel()

	e, err := NewWordEntry(uuid.New(), "aurora", RarityGod, time.Now())
	require.NoError(t, err)
	assert.False(t, e.QuizEligible())
	assert.False(t, e.BattleEligible())

	e.Rarity = RarityMythic
	assert.True(t, e.QuizEligible())
	assert.True(t, e.BattleEligible())
}

func TestParseRarity(t *testing.T) {
	t.Parallel()

	r, err := ParseRarity("legendary")
	require.NoError(t, err)
	assert.Equal(t, RarityLegendary, r)
	assert.Equal(t, 4, r.Rank())

	_, err = ParseRarity("shiny")
	assert.ErrorIs(t, err, ErrValidation)
}

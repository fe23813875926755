package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProfile(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	p, err := NewProfile(userID, " wren ", time.Now())
	require.NoError(t, err)

	assert.Equal(t, userID, p.UserID)
	assert.Equal(t, "wren", p.DisplayName)
	assert.Zero(t, p.Rating)
	assert.Zero(t, p.TotalGames())
	assert.Empty(t, p.Team)

	_, err = NewProfile(uuid.Nil, "wren", time.Now())
	assert.ErrorIs(t, err, ErrProfileUserIDEmpty)
}

func TestProfileValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(p *Profile)
		want   error
	}{
		{"negative rating", func(p *Profile) { p.Rating = -1 }, ErrNegativeRating},
		{"negative losses", func(p *Profile) { p.Losses = -2 }, ErrNegativeRecord},
		{"team too large", func(p *Profile) {
			for i := 0; i < MaxTeamSize+1; i++ {
				p.Team = append(p.Team, uuid.New())
				p.TeamSnapshot = append(p.TeamSnapshot, Combatant{Word: "oak", Rarity: RarityCommon})
			}
		}, ErrTeamTooLarge},
		{"snapshot mismatch", func(p *Profile) { p.Team = append(p.Team, uuid.New()) }, ErrTeamSnapshotMismatch},
		{"god in team", func(p *Profile) {
			p.Team = append(p.Team, uuid.New())
			p.TeamSnapshot = append(p.TeamSnapshot, Combatant{Word: "zenith", Rarity: RarityGod})
		}, ErrGodInTeam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p, err := NewProfile(uuid.New(), "", time.Now())
			require.NoError(t, err)
			tt.mutate(p)
			assert.ErrorIs(t, p.Validate(), tt.want)
		})
	}
}

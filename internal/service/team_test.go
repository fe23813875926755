package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	"github.com/phrazzld/wordmon-api/internal/platform/sqlite"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTeamMaintenance(t *testing.T) {
	ctx := context.Background()
	calc := battle.DefaultCalculator{}
	userID := uuid.New()

	newMember := func(t *testing.T, word string) *domain.WordEntry {
		entry, err := domain.NewWordEntry(userID, word, domain.RarityRare, domain.Now())
		require.NoError(t, err)
		return entry
	}

	setup := func(t *testing.T, members ...*domain.WordEntry) *sqlite.SQLiteProfileStore {
		profiles := sqlite.NewSQLiteProfileStore(testdb.OpenSQLite(t), nil)
		p, err := domain.NewProfile(userID, "", domain.Now())
		require.NoError(t, err)
		for _, m := range members {
			p.Team = append(p.Team, m.ID)
			p.TeamSnapshot = append(p.TeamSnapshot, m.Combatant())
		}
		p.Power = battle.TeamPower(calc, p.TeamSnapshot)
		require.NoError(t, profiles.Create(ctx, p))
		return profiles
	}

	t.Run("remove drops members and recomputes power", func(t *testing.T) {
		a, b := newMember(t, "lucid"), newMember(t, "vivid")
		profiles := setup(t, a, b)

		require.NoError(t, service.RemoveFromTeam(ctx, profiles, calc, userID, []uuid.UUID{a.ID}, domain.Now()))

		p, err := profiles.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{b.ID}, p.Team)
		assert.Equal(t, battle.TeamPower(calc, []domain.Combatant{b.Combatant()}), p.Power)
	})

	t.Run("refresh rewrites snapshots and drops god entries", func(t *testing.T) {
		a, b := newMember(t, "lucid"), newMember(t, "vivid")
		profiles := setup(t, a, b)

		renamed := a.Clone()
		renamed.Word = "lucidity"
		ascended := b.Clone()
		ascended.Rarity = domain.RarityGod

		require.NoError(t, service.RefreshTeam(ctx, profiles, calc, userID, []*domain.WordEntry{renamed, ascended}, domain.Now()))

		p, err := profiles.Get(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{a.ID}, p.Team)
		assert.Equal(t, []domain.Combatant{{Word: "lucidity", Rarity: domain.RarityRare}}, p.TeamSnapshot)
	})

	t.Run("missing profile is ignored", func(t *testing.T) {
		profiles := sqlite.NewSQLiteProfileStore(testdb.OpenSQLite(t), nil)
		assert.NoError(t, service.RemoveFromTeam(ctx, profiles, calc, userID, []uuid.UUID{uuid.New()}, domain.Now()))
		assert.NoError(t, service.RefreshTeam(ctx, profiles, calc, userID, nil, domain.Now()))
	})

	t.Run("owned", func(t *testing.T) {
		entry := newMember(t, "lucid")
		assert.NoError(t, service.Owned(entry, userID))
		assert.ErrorIs(t, service.Owned(entry, uuid.New()), service.ErrNotOwned)
	})
}

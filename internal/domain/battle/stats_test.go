package battle

import (
	"testing"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestDefaultCalculatorStats(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		c    domain.Combatant
		want Stats
	}{
		{"common", domain.Combatant{Word: "cat", Rarity: domain.RarityCommon}, Stats{HP: 30, Atk: 20, Speed: 33, Power: 83}},
		{"uncommon", domain.Combatant{Word: "amber", Rarity: domain.RarityUncommon}, Stats{HP: 60, Atk: 24, Speed: 20, Power: 104}},
		{"rare", domain.Combatant{Word: "lantern", Rarity: domain.RarityRare}, Stats{HP: 105, Atk: 30, Speed: 14, Power: 149}},
		{"epic", domain.Combatant{Word: "obsidian", Rarity: domain.RarityEpic}, Stats{HP: 160, Atk: 40, Speed: 12, Power: 212}},
		{"legendary", domain.Combatant{Word: "leviathan", Rarity: domain.RarityLegendary}, Stats{HP: 270, Atk: 60, Speed: 11, Power: 341}},
		{"mythic", domain.Combatant{Word: "zephyr", Rarity: domain.RarityMythic}, Stats{HP: 300, Atk: 100, Speed: 16, Power: 416}},
		{"god", domain.Combatant{Word: "apex", Rarity: domain.RarityGod}, Stats{HP: 400, Atk: 200, Speed: 25, Power: 625}},
	}

	calc := DefaultCalculator{}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, calc.Stats(tc.c))
		})
	}
}

func TestTeamPower(t *testing.T) {
	t.Parallel()

	team := []domain.Combatant{
		{Word: "cat", Rarity: domain.RarityCommon},
		{Word: "lantern", Rarity: domain.RarityRare},
	}
	assert.Equal(t, 83+149, TeamPower(DefaultCalculator{}, team))
	assert.Zero(t, TeamPower(DefaultCalculator{}, nil))
}

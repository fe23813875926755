package battle

import "github.com/phrazzld/wordmon-api/internal/domain"

// Picker yields uniform integers in [0,n). *rand.Rand satisfies it.
type Picker interface {
	Intn(n int) int
}

// BotTeam samples up to size battle-eligible entries from dex uniformly
// without replacement. The bot fights with the player's own words.
func BotTeam(dex []*domain.WordEntry, size int, random Picker) []domain.Combatant {
	pool := make([]domain.Combatant, 0, len(dex))
	for _, e := range dex {
		if e.BattleEligible() {
			pool = append(pool, e.Combatant())
		}
	}

	size = min(size, len(pool), domain.MaxTeamSize)
	if size <= 0 {
		return []domain.Combatant{}
	}

	// partial Fisher-Yates
	for i := 0; i < size; i++ {
		j := i + random.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}

	return pool[:size]
}

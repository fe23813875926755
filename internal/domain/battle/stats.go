// Package battle derives combat stats from word entries, resolves turn-based
// battles between two teams, and computes the rating change that follows.
package battle

import (
	"math"
	"unicode/utf8"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

var multipliers = map[domain.Rarity]float64{
	domain.RarityCommon:    1,
	domain.RarityUncommon:  1.2,
	domain.RarityRare:      1.5,
	domain.RarityEpic:      2,
	domain.RarityLegendary: 3,
	domain.RarityMythic:    5,
	domain.RarityGod:       10,
}

// Stats are derived on every battle and never stored.
type Stats struct {
	HP    int `json:"hp"`
	Atk   int `json:"atk"`
	Speed int `json:"speed"`
	Power int `json:"power"`
}

// StatCalculator derives stats for a combatant.
type StatCalculator interface {
	Stats(c domain.Combatant) Stats
}

// DefaultCalculator implements the standard stat formulas.
type DefaultCalculator struct{}

var _ StatCalculator = DefaultCalculator{}

// Multiplier returns the rarity multiplier, 1 for unknown tiers.
func Multiplier(r domain.Rarity) float64 {
	if m, ok := multipliers[r]; ok {
		return m
	}
	return 1
}

// Stats computes hp = floor(len*10*mult), atk = floor(mult*20),
// speed = floor(100/len) and power as their sum.
func (DefaultCalculator) Stats(c domain.Combatant) Stats {
	length := utf8.RuneCountInString(c.Word)
	mult := Multiplier(c.Rarity)

	s := Stats{
		HP:  int(math.Floor(float64(length) * 10 * mult)),
		Atk: int(math.Floor(mult * 20)),
	}
	if length > 0 {
		s.Speed = 100 / length
	}
	s.Power = s.HP + s.Atk + s.Speed
	return s
}

// TeamPower sums the power of every member of team.
func TeamPower(calc StatCalculator, team []domain.Combatant) int {
	total := 0
	for _, c := range team {
		total += calc.Stats(c).Power
	}
	return total
}

package domain

import "fmt"

// Rarity is the power tier of a word entry.
type Rarity string

// Rarity tiers, weakest first.
const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
	RarityMythic    Rarity = "mythic"
	RarityGod       Rarity = "god"
)

// AllRarities lists every tier ordered by strength ascending.
var AllRarities = []Rarity{
	RarityCommon,
	RarityUncommon,
	RarityRare,
	RarityEpic,
	RarityLegendary,
	RarityMythic,
	RarityGod,
}

// Rank returns the position of r in AllRarities, or -1 if r is unknown.
func (r Rarity) Rank() int {
	for i, candidate := range AllRarities {
		if candidate == r {
			return i
		}
	}
	return -1
}

// Valid reports whether r is a known tier.
func (r Rarity) Valid() bool {
	return r.Rank() >= 0
}

// ParseRarity converts a string into a Rarity.
func ParseRarity(s string) (Rarity, error) {
	r := Rarity(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: unknown rarity %q", ErrValidation, s)
	}
	return r, nil
}

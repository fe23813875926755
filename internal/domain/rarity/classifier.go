// Package rarity assigns a rarity tier to newly captured words.
package rarity

import (
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// RandomSource yields uniform draws in [0,1). *rand.Rand satisfies it.
type RandomSource interface {
	Float64() float64
}

// threshold is one row of a cumulative table: a draw strictly below Upper
// (and at or above the previous row's Upper) selects Rarity.
type threshold struct {
	Upper  float64
	Rarity domain.Rarity
}

// bucket maps a range of word lengths to a cumulative table.
type bucket struct {
	MaxLen int
	Table  []threshold
}

// buckets are ordered by MaxLen; the last one is open-ended.
var buckets = []bucket{
	{MaxLen: 5, Table: []threshold{
		{0.85, domain.RarityCommon},
		{1.0, domain.RarityUncommon},
	}},
	{MaxLen: 7, Table: []threshold{
		{0.65, domain.RarityCommon},
		{0.88, domain.RarityUncommon},
		{0.98, domain.RarityRare},
		{1.0, domain.RarityEpic},
	}},
	{MaxLen: 10, Table: []threshold{
		{0.30, domain.RarityCommon},
		{0.55, domain.RarityUncommon},
		{0.78, domain.RarityRare},
		{0.93, domain.RarityEpic},
		{0.99, domain.RarityLegendary},
		{1.0, domain.RarityMythic},
	}},
	{MaxLen: 13, Table: []threshold{
		{0.10, domain.RarityUncommon},
		{0.35, domain.RarityRare},
		{0.65, domain.RarityEpic},
		{0.90, domain.RarityLegendary},
		{1.0, domain.RarityMythic},
	}},
	{MaxLen: -1, Table: []threshold{
		{0.20, domain.RarityEpic},
		{0.60, domain.RarityLegendary},
		{1.0, domain.RarityMythic},
	}},
}

// Classifier assigns rarities. It is safe for concurrent use.
type Classifier struct {
	mu     sync.Mutex
	random RandomSource
	common map[string]struct{}
}

// NewClassifier creates a Classifier drawing from random. A nil source is
// replaced by a time-seeded one.
func NewClassifier(random RandomSource) *Classifier {
	if random == nil {
		random = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	common := make(map[string]struct{}, len(commonWords))
	for _, w := range commonWords {
		common[w] = struct{}{}
	}
	return &Classifier{random: random, common: common}
}

// Classify returns the rarity of word. Common words are always common;
// otherwise the tier is drawn from the table for the word's length. God is
// never returned.
func (c *Classifier) Classify(word string) domain.Rarity {
	word = strings.TrimSpace(word)
	if c.IsCommon(word) {
		return domain.RarityCommon
	}

	c.mu.Lock()
	r := c.random.Float64()
	c.mu.Unlock()

	return pick(tableFor(utf8.RuneCountInString(word)), r)
}

// IsCommon reports whether word is in the fixed common-word set.
func (c *Classifier) IsCommon(word string) bool {
	_, ok := c.common[strings.ToLower(strings.TrimSpace(word))]
	return ok
}

func tableFor(length int) []threshold {
	for _, b := range buckets {
		if b.MaxLen < 0 || length <= b.MaxLen {
			return b.Table
		}
	}
	return buckets[len(buckets)-1].Table
}

func pick(table []threshold, r float64) domain.Rarity {
	for _, t := range table {
		if r < t.Upper {
			return t.Rarity
		}
	}
	return table[len(table)-1].Rarity
}

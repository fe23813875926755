package rarity

import (
	"math/rand"
	"strings"
	"testing"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/stretchr/testify/assert"
)

type fixedSource float64

func (f fixedSource) Float64() float64 { return float64(f) }

func TestClassifyCommonWordsAreAlwaysCommon(t *testing.T) {
	t.Parallel()

	c := NewClassifier(fixedSource(0.999))
	for _, w := range []string{"the", "Because", " people "} {
		assert.Equal(t, domain.RarityCommon, c.Classify(w), w)
	}
}

func TestClassifyThresholdEdges(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		word string
		draw float64
		want domain.Rarity
	}{
		{"fjord", 0.0, domain.RarityCommon},
		{"fjord", 0.8499, domain.RarityCommon},
		{"fjord", 0.85, domain.RarityUncommon},
		{"quiver", 0.65, domain.RarityUncommon},
		{"quiver", 0.98, domain.RarityEpic},
		{"luminous", 0.93, domain.RarityLegendary},
		{"luminous", 0.99, domain.RarityMythic},
		{"serendipity", 0.05, domain.RarityUncommon},
		{"serendipity", 0.10, domain.RarityRare},
		{"incomprehensible", 0.1999, domain.RarityEpic},
		{"incomprehensible", 0.60, domain.RarityMythic},
	}

	for _, tc := range testCases {
		t.Run(tc.word, func(t *testing.T) {
			t.Parallel()
			c := NewClassifier(fixedSource(tc.draw))
			assert.Equal(t, tc.want, c.Classify(tc.word))
		})
	}
}

func TestClassifyDeterministicWithSeed(t *testing.T) {
	t.Parallel()

	words := []string{"zephyr", "labyrinthine", "quixotic", "obfuscation", "antidisestablishment"}

	a := NewClassifier(rand.New(rand.NewSource(42)))
	b := NewClassifier(rand.New(rand.NewSource(42)))
	for i := 0; i < 1000; i++ {
		w := words[i%len(words)]
		assert.Equal(t, a.Classify(w), b.Classify(w))
	}
}

func TestClassifyDistribution(t *testing.T) {
	t.Parallel()

	const samples = 100000
	const tolerance = 0.01

	testCases := []struct {
		name string
		word string
		want map[domain.Rarity]float64
	}{
		{"length 5", "fjord", map[domain.Rarity]float64{
			domain.RarityCommon: 0.85, domain.RarityUncommon: 0.15,
		}},
		{"length 6-7", "quivers", map[domain.Rarity]float64{
			domain.RarityCommon: 0.65, domain.RarityUncommon: 0.23, domain.RarityRare: 0.10, domain.RarityEpic: 0.02,
		}},
		{"length 8-10", "luminous", map[domain.Rarity]float64{
			domain.RarityCommon: 0.30, domain.RarityUncommon: 0.25, domain.RarityRare: 0.23,
			domain.RarityEpic: 0.15, domain.RarityLegendary: 0.06, domain.RarityMythic: 0.01,
		}},
		{"length 11-13", "serendipity", map[domain.Rarity]float64{
			domain.RarityUncommon: 0.10, domain.RarityRare: 0.25, domain.RarityEpic: 0.30,
			domain.RarityLegendary: 0.25, domain.RarityMythic: 0.10,
		}},
		{"length 14+", strings.Repeat("x", 20), map[domain.Rarity]float64{
			domain.RarityEpic: 0.20, domain.RarityLegendary: 0.40, domain.RarityMythic: 0.40,
		}},
	}

	for i, tc := range testCases {
		seed := int64(i + 7)
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			c := NewClassifier(rand.New(rand.NewSource(seed)))
			counts := make(map[domain.Rarity]int)
			for n := 0; n < samples; n++ {
				counts[c.Classify(tc.word)]++
			}

			assert.NotContains(t, counts, domain.RarityGod)
			for r := range counts {
				assert.Contains(t, tc.want, r, "unexpected rarity %s", r)
			}
			for r, p := range tc.want {
				got := float64(counts[r]) / samples
				assert.InDelta(t, p, got, tolerance, "rarity %s", r)
			}
		})
	}
}

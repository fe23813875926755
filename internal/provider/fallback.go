package provider

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/evolution"
)

// MaxBranches caps the candidates offered for one branching.
const MaxBranches = 3

const (
	ascendedSuffix   = "ascendant"
	hiddenMoveSuffix = " Surge"
)

// FallbackAscendedWord synthesises the fusion result when no provider
// answered: the capitalised family key with a fixed suffix. Long keys are
// cut so the result stays within domain.MaxWordLength.
func FallbackAscendedWord(family string) string {
	stem := []rune(strings.TrimSpace(family))
	if room := domain.MaxWordLength - utf8.RuneCountInString(ascendedSuffix); len(stem) > room {
		stem = stem[:room]
	}
	return capitalize(string(stem)) + ascendedSuffix
}

// FallbackHiddenMove names a hidden move without a provider.
func FallbackHiddenMove(word string) string {
	return capitalize(strings.TrimSpace(word)) + hiddenMoveSuffix
}

// SanitizeBranches drops invalid, duplicate and root-equal candidates and
// keeps at most MaxBranches, one per part of speech.
func SanitizeBranches(root string, set *BranchSet) []evolution.BranchCandidate {
	if set == nil {
		return []evolution.BranchCandidate{}
	}

	out := make([]evolution.BranchCandidate, 0, MaxBranches)
	seenWord := map[string]bool{strings.ToLower(root): true}
	seenBranch := map[domain.Branch]bool{}

	for _, c := range set.Candidates {
		word := strings.TrimSpace(c.Word)
		key := strings.ToLower(word)
		switch {
		case word == "", !c.Branch.Valid(), seenWord[key], seenBranch[c.Branch]:
			continue
		case utf8.RuneCountInString(word) > domain.MaxWordLength:
			continue
		}
		seenWord[key] = true
		seenBranch[c.Branch] = true
		out = append(out, evolution.BranchCandidate{Word: word, Branch: c.Branch})
		if len(out) == MaxBranches {
			break
		}
	}
	return out
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

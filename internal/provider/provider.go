package provider

import (
	"context"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/evolution"
)

// Definition is what a definition provider knows about a word. A nil Rarity
// means the provider has no opinion and the classifier decides.
type Definition struct {
	Origin          string         `json:"origin"`
	Rarity          *domain.Rarity `json:"rarity,omitempty"`
	Tags            []string       `json:"tags"`
	Frequency       *float64       `json:"frequency,omitempty"`
	FrequencySource string         `json:"frequency_source,omitempty"`
	Source          string         `json:"source"`
}

// DefinitionProvider looks up a captured word.
type DefinitionProvider interface {
	Lookup(ctx context.Context, word string) (*Definition, error)
}

// BranchSet holds up to MaxBranches related words for a root word. Family,
// when set, groups the branched entry with others for fusion.
type BranchSet struct {
	Family     string                      `json:"family,omitempty"`
	Candidates []evolution.BranchCandidate `json:"candidates"`
}

// BranchProvider suggests branch words for a stage-2 entry.
type BranchProvider interface {
	Branches(ctx context.Context, word string) (*BranchSet, error)
}

// FusionWordProvider resolves the single ascended word for a family.
type FusionWordProvider interface {
	AscendedWord(ctx context.Context, family string, words []string) (string, error)
}

// HiddenMoveProvider names the hidden move of a stage-3 entry.
type HiddenMoveProvider interface {
	HiddenMove(ctx context.Context, word string) (string, error)
}

// Unavailable implements every provider interface by failing. It stands in
// when no external service is configured so callers take their fallbacks.
type Unavailable struct{}

var (
	_ DefinitionProvider = Unavailable{}
	_ BranchProvider     = Unavailable{}
	_ FusionWordProvider = Unavailable{}
	_ HiddenMoveProvider = Unavailable{}
)

func (Unavailable) Lookup(context.Context, string) (*Definition, error) {
	return nil, domain.ErrProviderUnavailable
}

func (Unavailable) Branches(context.Context, string) (*BranchSet, error) {
	return nil, domain.ErrProviderUnavailable
}

func (Unavailable) AscendedWord(context.Context, string, []string) (string, error) {
	return "", domain.ErrProviderUnavailable
}

func (Unavailable) HiddenMove(context.Context, string) (string, error) {
	return "", domain.ErrProviderUnavailable
}

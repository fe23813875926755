package evolution

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// FusionCandidates filters peers down to the entries that can fuse with
// initiator: other stage-3 entries of the same user and family.
func FusionCandidates(initiator *domain.WordEntry, peers []*domain.WordEntry) ([]*domain.WordEntry, error) {
	if initiator.Evolution.Stage != domain.FusionStage || initiator.FamilyID == "" {
		return nil, fmt.Errorf("%w: only stage 3 entries with a family can fuse", domain.ErrIneligibleTransition)
	}

	var out []*domain.WordEntry
	for _, p := range peers {
		if isFusionPeer(initiator, p) {
			out = append(out, p)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: family %q", domain.ErrNoFusionCandidates, initiator.FamilyID)
	}

	return out, nil
}

func isFusionPeer(initiator, p *domain.WordEntry) bool {
	return p.ID != initiator.ID &&
		p.UserID == initiator.UserID &&
		p.Evolution.Stage == domain.FusionStage &&
		p.FamilyID == initiator.FamilyID
}

// Fuse builds the stage-4 entry that replaces initiator and candidates. The
// caller deletes every participant and inserts the result atomically.
func Fuse(
	initiator *domain.WordEntry,
	candidates []*domain.WordEntry,
	ascendedWord string,
	now time.Time,
) (*domain.WordEntry, error) {
	if initiator.Evolution.Stage != domain.FusionStage || initiator.FamilyID == "" {
		return nil, fmt.Errorf("%w: only stage 3 entries with a family can fuse", domain.ErrIneligibleTransition)
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: family %q", domain.ErrNoFusionCandidates, initiator.FamilyID)
	}

	words := []string{initiator.Word}
	tags := append([]string(nil), initiator.Tags...)
	srs := initiator.SRS
	for _, c := range candidates {
		if !isFusionPeer(initiator, c) {
			return nil, fmt.Errorf("%w: %q is not a stage 3 member of family %q",
				domain.ErrNoFusionCandidates, c.Word, initiator.FamilyID)
		}
		words = append(words, c.Word)
		tags = append(tags, c.Tags...)
		if c.SRS.Level > srs.Level {
			srs = c.SRS
		}
	}

	fused, err := domain.NewWordEntry(initiator.UserID, ascendedWord, domain.RarityGod, now)
	if err != nil {
		return nil, err
	}

	fused.Origin = "Fusion of " + strings.Join(words, ", ")
	fused.Source = "fusion"
	fused.Tags = domain.NormalizeTags(tags)
	fused.SRS = srs
	fused.Evolution = domain.EvolutionState{
		Stage:     domain.MaxStage,
		CanEvolve: false,
	}
	fused.FamilyID = initiator.FamilyID

	if err := fused.Validate(); err != nil {
		return nil, err
	}

	return fused, nil
}

// Package evolution holds the pure rules of the word entry evolution state
// machine: eligibility, the linear stages, branching and fusion. It performs
// no I/O; services persist the entries it returns.
package evolution

import (
	"fmt"
	"strings"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

// requiredLevel is the SRS level an entry needs to leave each stage through
// the threshold path. Stage 3 leaves only through fusion.
var requiredLevel = map[int]int{
	0: 1,
	1: 3,
	2: 5,
}

// BranchCandidate is one word offered when a stage-2 entry branches.
type BranchCandidate struct {
	Word   string        `json:"word"`
	Branch domain.Branch `json:"branch"`
}

// RequiredLevel returns the SRS level needed to evolve out of stage. ok is
// false for stages that do not use the threshold path.
func RequiredLevel(stage int) (level int, ok bool) {
	level, ok = requiredLevel[stage]
	return level, ok
}

// EligibleByLevel reports whether an entry at stage with the given SRS level
// meets the threshold for its next stage.
func EligibleByLevel(stage, level int) bool {
	required, ok := requiredLevel[stage]
	return ok && level >= required
}

// CanEvolve reports whether e may take its next linear or branching step.
// The sticky flag counts as well as the live threshold. Stage 3 and above
// always report false: stage 3 fuses, stage 4 is terminal.
func CanEvolve(e *domain.WordEntry) bool {
	if e.Evolution.Stage >= domain.FusionStage {
		return false
	}
	return e.Evolution.CanEvolve || EligibleByLevel(e.Evolution.Stage, e.SRS.Level)
}

// Advance performs the stage 0→1 or 1→2 transition. Stage 2 must branch.
func Advance(e *domain.WordEntry, now time.Time) (*domain.WordEntry, error) {
	if e.Evolution.Stage >= 2 {
		return nil, fmt.Errorf("%w: stage %d cannot advance linearly", domain.ErrIneligibleTransition, e.Evolution.Stage)
	}
	if !CanEvolve(e) {
		return nil, fmt.Errorf("%w: srs level %d is below the stage %d threshold",
			domain.ErrIneligibleTransition, e.SRS.Level, e.Evolution.Stage)
	}

	next := e.Clone()
	next.Evolution.Stage++
	next.Evolution.CanEvolve = false
	next.UpdatedAt = now.UTC()

	return next, nil
}

// Branch performs the stage 2→3 transition. A nil choice advances the stage
// without renaming. family groups the result for fusion; an empty family is
// derived from the pre-branch word.
func Branch(e *domain.WordEntry, choice *BranchCandidate, family string, now time.Time) (*domain.WordEntry, error) {
	if e.Evolution.Stage != 2 {
		return nil, fmt.Errorf("%w: only stage 2 entries branch", domain.ErrIneligibleTransition)
	}
	if !CanEvolve(e) {
		return nil, fmt.Errorf("%w: srs level %d is below the stage 2 threshold",
			domain.ErrIneligibleTransition, e.SRS.Level)
	}

	next := e.Clone()
	next.Evolution.Stage = domain.FusionStage
	next.Evolution.CanEvolve = false
	next.UpdatedAt = now.UTC()

	if choice != nil {
		if !choice.Branch.Valid() {
			return nil, domain.ErrInvalidBranch
		}
		next.Word = strings.TrimSpace(choice.Word)
		next.AddTag(string(choice.Branch))
		b := choice.Branch
		next.Evolution.Branch = &b
	}

	if family == "" {
		family = FamilyKey(e.Word)
	}
	next.FamilyID = family

	if err := next.Validate(); err != nil {
		return nil, err
	}

	return next, nil
}

// Merge folds absorbed into survivor after a rename collision. The survivor
// keeps its ID and word and takes the higher stage, rarity and SRS state of
// the two, the union of tags, and the earliest capture time.
func Merge(survivor, absorbed *domain.WordEntry, now time.Time) *domain.WordEntry {
	merged := survivor.Clone()

	if absorbed.Evolution.Stage > merged.Evolution.Stage {
		merged.Evolution.Stage = absorbed.Evolution.Stage
	}
	if absorbed.Rarity.Rank() > merged.Rarity.Rank() {
		merged.Rarity = absorbed.Rarity
	}
	if absorbed.SRS.Level > merged.SRS.Level {
		merged.SRS = absorbed.SRS
	}
	if absorbed.FirstCaught.Before(merged.FirstCaught) {
		merged.FirstCaught = absorbed.FirstCaught
	}
	if merged.Evolution.HiddenMove == "" {
		merged.Evolution.HiddenMove = absorbed.Evolution.HiddenMove
	}
	merged.Tags = domain.NormalizeTags(append(merged.Tags, absorbed.Tags...))
	if merged.Evolution.Stage == domain.MaxStage {
		merged.Evolution.CanEvolve = false
	}
	merged.UpdatedAt = now.UTC()

	return merged
}

// inflections are stripped, longest first, when deriving a family key.
var inflections = []string{"edly", "ness", "ing", "ies", "est", "ed", "es", "ly", "er", "s"}

// FamilyKey derives the fusion family of a root word: lower-cased with one
// common inflectional suffix removed, as long as three letters remain.
func FamilyKey(word string) string {
	key := strings.ToLower(strings.TrimSpace(word))
	for _, suffix := range inflections {
		stem, ok := strings.CutSuffix(key, suffix)
		if !ok || len(stem) < 3 {
			continue
		}
		if suffix == "ies" {
			stem += "y"
		}
		return stem
	}
	return key
}

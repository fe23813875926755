package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	// MaxSRSLevel is the highest Leitner box.
	MaxSRSLevel = 5

	// MaxStage is the terminal evolution stage, reached only through fusion.
	MaxStage = 4

	// FusionStage is the stage entries must be at to take part in a fusion.
	FusionStage = 3

	// MaxWordLength bounds the display word of an entry.
	MaxWordLength = 64
)

// Word entry validation errors
var (
	ErrEntryIDEmpty       = fmt.Errorf("%w: entry ID cannot be empty", ErrValidation)
	ErrEntryUserIDEmpty   = fmt.Errorf("%w: entry user ID cannot be empty", ErrValidation)
	ErrEntryWordEmpty     = fmt.Errorf("%w: word cannot be empty", ErrValidation)
	ErrEntryWordTooLong   = fmt.Errorf("%w: word exceeds %d characters", ErrValidation, MaxWordLength)
	ErrInvalidRarity      = fmt.Errorf("%w: invalid rarity", ErrValidation)
	ErrSRSLevelOutOfRange = fmt.Errorf("%w: srs level out of range", ErrValidation)
	ErrNegativeStreak     = fmt.Errorf("%w: streak cannot be negative", ErrValidation)
	ErrStageOutOfRange    = fmt.Errorf("%w: evolution stage out of range", ErrValidation)
	ErrTerminalCanEvolve  = fmt.Errorf("%w: terminal stage cannot evolve", ErrValidation)
	ErrInvalidBranch      = fmt.Errorf("%w: invalid branch", ErrValidation)
	ErrFirstCaughtEmpty   = fmt.Errorf("%w: first caught time cannot be empty", ErrValidation)
)

// Branch is the part of speech an entry specialised into at stage 3.
type Branch string

// Branch values.
const (
	BranchNoun      Branch = "noun"
	BranchVerb      Branch = "verb"
	BranchAdjective Branch = "adj"
)

// Valid reports whether b is a known branch.
func (b Branch) Valid() bool {
	switch b {
	case BranchNoun, BranchVerb, BranchAdjective:
		return true
	}
	return false
}

// SrsState is the Leitner review state of an entry.
type SrsState struct {
	Level        int       `json:"level"`
	Streak       int       `json:"streak"`
	NextReview   time.Time `json:"next_review"`
	LastReviewed time.Time `json:"last_reviewed"`
}

// EvolutionState tracks how far an entry has evolved.
type EvolutionState struct {
	Stage      int     `json:"stage"`
	CanEvolve  bool    `json:"can_evolve"`
	Branch     *Branch `json:"branch,omitempty"`
	HiddenMove string  `json:"hidden_move,omitempty"`
}

// WordEntry is a captured word owned by a user. ID is the stable primary
// key; Word is a display field that may change when the entry branches.
type WordEntry struct {
	ID              uuid.UUID      `json:"id"`
	UserID          uuid.UUID      `json:"user_id"`
	Word            string         `json:"word"`
	Origin          string         `json:"origin"`
	Rarity          Rarity         `json:"rarity"`
	Frequency       *float64       `json:"frequency"`
	FrequencySource string         `json:"frequency_source"`
	Source          string         `json:"source"`
	Tags            []string       `json:"tags"`
	FirstCaught     time.Time      `json:"first_caught"`
	SRS             SrsState       `json:"srs"`
	Evolution       EvolutionState `json:"evolution"`
	FamilyID        string         `json:"family_id,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// NewWordEntry creates a freshly captured entry at SRS level 0 and stage 0.
func NewWordEntry(userID uuid.UUID, word string, rarity Rarity, now time.Time) (*WordEntry, error) {
	now = now.UTC()
	entry := &WordEntry{
		ID:          uuid.New(),
		UserID:      userID,
		Word:        strings.TrimSpace(word),
		Rarity:      rarity,
		Tags:        []string{},
		FirstCaught: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks the entry's invariants.
func (e *WordEntry) Validate() error {
	if e.ID == uuid.Nil {
		return ErrEntryIDEmpty
	}

	if e.UserID == uuid.Nil {
		return ErrEntryUserIDEmpty
	}

	if strings.TrimSpace(e.Word) == "" {
		return ErrEntryWordEmpty
	}

	if utf8.RuneCountInString(e.Word) > MaxWordLength {
		return ErrEntryWordTooLong
	}

	if !e.Rarity.Valid() {
		return ErrInvalidRarity
	}

	if e.SRS.Level < 0 || e.SRS.Level > MaxSRSLevel {
		return ErrSRSLevelOutOfRange
	}

	if e.SRS.Streak < 0 {
		return ErrNegativeStreak
	}

	if e.Evolution.Stage < 0 || e.Evolution.Stage > MaxStage {
		return ErrStageOutOfRange
	}

	if e.Evolution.Stage == MaxStage && e.Evolution.CanEvolve {
		return ErrTerminalCanEvolve
	}

	if e.Evolution.Branch != nil && !e.Evolution.Branch.Valid() {
		return ErrInvalidBranch
	}

	if e.FirstCaught.IsZero() {
		return ErrFirstCaughtEmpty
	}

	return nil
}

// Clone returns a deep copy of the entry.
func (e *WordEntry) Clone() *WordEntry {
	c := *e
	if e.Tags != nil {
		c.Tags = append([]string(nil), e.Tags...)
	}
	if e.Frequency != nil {
		f := *e.Frequency
		c.Frequency = &f
	}
	if e.Evolution.Branch != nil {
		b := *e.Evolution.Branch
		c.Evolution.Branch = &b
	}
	return &c
}

// AddTag adds tag to the entry's tag set.
func (e *WordEntry) AddTag(tag string) {
	e.Tags = NormalizeTags(append(e.Tags, tag))
}

// QuizEligible reports whether the entry may appear in a quiz.
func (e *WordEntry) QuizEligible() bool {
	return e.Rarity != RarityGod
}

// BattleEligible reports whether the entry may join a battle team.
func (e *WordEntry) BattleEligible() bool {
	return e.Rarity != RarityGod
}

// Combatant returns the battle-relevant view of the entry.
func (e *WordEntry) Combatant() Combatant {
	return Combatant{Word: e.Word, Rarity: e.Rarity}
}

// NormalizeTags trims, lower-cases, de-duplicates and sorts tags.
func NormalizeTags(tags []string) []string {
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Now returns the current time in the precision the stores persist.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

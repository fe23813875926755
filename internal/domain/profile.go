package domain

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxTeamSize is the largest battle team a player may field.
const MaxTeamSize = 5

// Profile validation errors
var (
	ErrProfileUserIDEmpty   = fmt.Errorf("%w: profile user ID cannot be empty", ErrValidation)
	ErrNegativeRating       = fmt.Errorf("%w: rating cannot be negative", ErrValidation)
	ErrNegativeRecord       = fmt.Errorf("%w: wins and losses cannot be negative", ErrValidation)
	ErrTeamTooLarge         = fmt.Errorf("%w: team exceeds %d members", ErrValidation, MaxTeamSize)
	ErrTeamSnapshotMismatch = fmt.Errorf("%w: team snapshot does not match team", ErrValidation)
	ErrGodInTeam            = fmt.Errorf("%w: god entries cannot battle", ErrValidation)
	ErrDisplayNameTooLong   = fmt.Errorf("%w: display name too long", ErrValidation)
)

const maxDisplayNameLength = 40

// Combatant is the battle-relevant view of a word entry. Stats are derived
// from it on every battle and never stored.
type Combatant struct {
	Word   string `json:"word"`
	Rarity Rarity `json:"rarity"`
}

// Profile holds a user's arena standing and current team.
type Profile struct {
	UserID       uuid.UUID   `json:"user_id"`
	DisplayName  string      `json:"display_name"`
	Rating       int         `json:"rating"`
	Wins         int         `json:"wins"`
	Losses       int         `json:"losses"`
	Team         []uuid.UUID `json:"team"`
	TeamSnapshot []Combatant `json:"team_snapshot"`
	Power        int         `json:"power"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// NewProfile creates an unranked profile with an empty team.
func NewProfile(userID uuid.UUID, displayName string, now time.Time) (*Profile, error) {
	now = now.UTC()
	p := &Profile{
		UserID:       userID,
		DisplayName:  strings.TrimSpace(displayName),
		Team:         []uuid.UUID{},
		TeamSnapshot: []Combatant{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}

// Validate checks the profile's invariants.
func (p *Profile) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrProfileUserIDEmpty
	}

	if utf8.RuneCountInString(p.DisplayName) > maxDisplayNameLength {
		return ErrDisplayNameTooLong
	}

	if p.Rating < 0 {
		return ErrNegativeRating
	}

	if p.Wins < 0 || p.Losses < 0 {
		return ErrNegativeRecord
	}

	if len(p.Team) > MaxTeamSize {
		return ErrTeamTooLarge
	}

	if len(p.Team) != len(p.TeamSnapshot) {
		return ErrTeamSnapshotMismatch
	}

	for _, c := range p.TeamSnapshot {
		if c.Rarity == RarityGod {
			return ErrGodInTeam
		}
	}

	return nil
}

// TotalGames returns the number of battles the profile has finished.
func (p *Profile) TotalGames() int {
	return p.Wins + p.Losses
}

// Clone returns a deep copy of the profile.
func (p *Profile) Clone() *Profile {
	c := *p
	if p.Team != nil {
		c.Team = append([]uuid.UUID(nil), p.Team...)
	}
	if p.TeamSnapshot != nil {
		c.TeamSnapshot = append([]Combatant(nil), p.TeamSnapshot...)
	}
	return &c
}

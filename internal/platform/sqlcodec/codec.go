// Package sqlcodec converts the collection-valued fields of the progression
// model to and from the JSON columns both SQL backends store them in.
package sqlcodec

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
)

// EncodeTags normalizes tags and encodes them as a JSON array.
func EncodeTags(tags []string) (string, error) {
	b, err := json.Marshal(domain.NormalizeTags(tags))
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

// DecodeTags decodes a JSON array of tags. Empty input yields an empty,
// non-nil slice.
func DecodeTags(raw []byte) ([]string, error) {
	tags := []string{}
	if len(raw) == 0 {
		return tags, nil
	}
	if err := json.Unmarshal(raw, &tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if tags == nil {
		tags = []string{}
	}
	return tags, nil
}

// EncodeTeam encodes team member ids as a JSON array of strings.
func EncodeTeam(team []uuid.UUID) (string, error) {
	if team == nil {
		team = []uuid.UUID{}
	}
	b, err := json.Marshal(team)
	if err != nil {
		return "", fmt.Errorf("encode team: %w", err)
	}
	return string(b), nil
}

// DecodeTeam is the inverse of EncodeTeam.
func DecodeTeam(raw []byte) ([]uuid.UUID, error) {
	team := []uuid.UUID{}
	if len(raw) == 0 {
		return team, nil
	}
	if err := json.Unmarshal(raw, &team); err != nil {
		return nil, fmt.Errorf("decode team: %w", err)
	}
	if team == nil {
		team = []uuid.UUID{}
	}
	return team, nil
}

// EncodeSnapshot encodes a team snapshot as JSON.
func EncodeSnapshot(snapshot []domain.Combatant) (string, error) {
	if snapshot == nil {
		snapshot = []domain.Combatant{}
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode team snapshot: %w", err)
	}
	return string(b), nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot.
func DecodeSnapshot(raw []byte) ([]domain.Combatant, error) {
	snapshot := []domain.Combatant{}
	if len(raw) == 0 {
		return snapshot, nil
	}
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode team snapshot: %w", err)
	}
	if snapshot == nil {
		snapshot = []domain.Combatant{}
	}
	return snapshot, nil
}

// BranchValue maps an optional branch to a nullable column value.
func BranchValue(b *domain.Branch) any {
	if b == nil {
		return nil
	}
	return string(*b)
}

// BranchFrom maps a nullable column back to an optional branch.
func BranchFrom(valid bool, s string) *domain.Branch {
	if !valid {
		return nil
	}
	b := domain.Branch(s)
	return &b
}

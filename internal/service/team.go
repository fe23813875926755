package service

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	"github.com/phrazzld/wordmon-api/internal/store"
)

// RemoveFromTeam drops removed entry ids from the user's battle team and
// recomputes the stored snapshot power. A missing profile or a team that
// holds none of the ids is left alone. Call it inside the transaction that
// deletes the entries, with profiles bound to that transaction.
func RemoveFromTeam(
	ctx context.Context,
	profiles store.ProfileStore,
	calc battle.StatCalculator,
	userID uuid.UUID,
	removed []uuid.UUID,
	now time.Time,
) error {
	p, err := profiles.GetForUpdate(ctx, userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	next := p.Clone()
	next.Team = make([]uuid.UUID, 0, len(p.Team))
	next.TeamSnapshot = make([]domain.Combatant, 0, len(p.Team))
	for i, id := range p.Team {
		if slices.Contains(removed, id) {
			continue
		}
		next.Team = append(next.Team, id)
		next.TeamSnapshot = append(next.TeamSnapshot, p.TeamSnapshot[i])
	}
	if len(next.Team) == len(p.Team) {
		return nil
	}

	next.Power = battle.TeamPower(calc, next.TeamSnapshot)
	next.UpdatedAt = now.UTC()
	return profiles.Update(ctx, next)
}

// Owned returns ErrNotOwned when entry belongs to someone other than userID.
func Owned(entry *domain.WordEntry, userID uuid.UUID) error {
	if entry.UserID != userID {
		return ErrNotOwned
	}
	return nil
}

// RefreshTeam rewrites the snapshot of team members found in changed so
// opponents battle the current word and rarity. Members that are no longer
// battle eligible leave the team.
func RefreshTeam(
	ctx context.Context,
	profiles store.ProfileStore,
	calc battle.StatCalculator,
	userID uuid.UUID,
	changed []*domain.WordEntry,
	now time.Time,
) error {
	p, err := profiles.GetForUpdate(ctx, userID)
	if errors.Is(err, store.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	byID := make(map[uuid.UUID]*domain.WordEntry, len(changed))
	for _, e := range changed {
		byID[e.ID] = e
	}

	next := p.Clone()
	next.Team = make([]uuid.UUID, 0, len(p.Team))
	next.TeamSnapshot = make([]domain.Combatant, 0, len(p.Team))
	dirty := false
	for i, id := range p.Team {
		snap := p.TeamSnapshot[i]
		if e, ok := byID[id]; ok {
			if !e.BattleEligible() {
				dirty = true
				continue
			}
			if e.Combatant() != snap {
				snap = e.Combatant()
				dirty = true
			}
		}
		next.Team = append(next.Team, id)
		next.TeamSnapshot = append(next.TeamSnapshot, snap)
	}
	if !dirty {
		return nil
	}

	next.Power = battle.TeamPower(calc, next.TeamSnapshot)
	next.UpdatedAt = now.UTC()
	return profiles.Update(ctx, next)
}

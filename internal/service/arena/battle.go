package arena

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/phrazzld/wordmon-api/internal/domain/battle"
	"github.com/phrazzld/wordmon-api/internal/events"
	"github.com/phrazzld/wordmon-api/internal/platform/logger"
	"github.com/phrazzld/wordmon-api/internal/service"
	"github.com/phrazzld/wordmon-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// Battle implements Service. Only the invoking user's profile changes; a
// human opponent is fought through their stored team snapshot.
func (s *arenaService) Battle(ctx context.Context, userID uuid.UUID) (*Outcome, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	unlock := s.users.Lock(userID)
	defer unlock()

	var (
		profile *domain.Profile
		dex     []*domain.WordEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = getOrCreateProfile(gctx, s.profiles, userID, false)
		return err
	})
	g.Go(func() error {
		var err error
		dex, err = s.entries.ListByUser(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, service.NewServiceError(serviceName, "battle", "failed to load player", err)
	}

	team := currentTeam(profile, dex)
	power := battle.TeamPower(s.calc, team)

	opponent, err := s.findOpponent(ctx, userID, power, len(team), dex)
	if err != nil {
		return nil, err
	}

	b, err := battle.NewBattle(team, opponent.Team, s.calc, s.random)
	if err != nil {
		return nil, service.NewServiceError(serviceName, "battle", "failed to start battle", err)
	}
	result, err := b.Run(ctx, s.pace)
	if err != nil {
		log.Info("battle abandoned",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		return nil, err
	}

	var (
		rating  battle.RatingResult
		updated *domain.Profile
	)
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		profiles := s.profiles.WithTx(tx)

		current, err := profiles.GetForUpdate(ctx, userID)
		if err != nil {
			return err
		}

		rating = battle.Rate(battle.RatingInput{
			Rating:         current.Rating,
			Wins:           current.Wins,
			Losses:         current.Losses,
			Won:            result.PlayerWon,
			OpponentIsBot:  opponent.Bot,
			OwnPower:       result.PlayerPower,
			OpponentPower:  result.OpponentPower,
			OpponentRating: opponent.Rating,
		})

		next := current.Clone()
		next.Rating = rating.Rating
		next.Wins = rating.Wins
		next.Losses = rating.Losses
		next.UpdatedAt = domain.Now()
		if err := profiles.Update(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		return nil, service.NewServiceError(serviceName, "battle", "failed to record result", err)
	}

	log.Info("battle finished",
		slog.String("user_id", userID.String()),
		slog.Bool("bot", opponent.Bot),
		slog.Bool("won", result.PlayerWon),
		slog.Int("rounds", result.Rounds),
		slog.Int("rating", rating.Rating),
		slog.Int("delta", rating.Delta))
	events.Publish(ctx, s.events, log, events.TypeBattleFinished, userID, events.BattleFinished{
		OpponentID: opponent.UserID,
		Bot:        opponent.Bot,
		Won:        result.PlayerWon,
		Rounds:     result.Rounds,
		Rating:     rating.Rating,
		Delta:      rating.Delta,
	})

	return &Outcome{
		Result:   result,
		Opponent: opponent,
		Rating:   rating,
		Profile:  updated,
	}, nil
}

// currentTeam resolves the profile's team against the live dex so the
// player fights with current words. Members that vanished or became
// ineligible are skipped.
func currentTeam(profile *domain.Profile, dex []*domain.WordEntry) []domain.Combatant {
	byID := make(map[uuid.UUID]*domain.WordEntry, len(dex))
	for _, e := range dex {
		byID[e.ID] = e
	}

	team := make([]domain.Combatant, 0, len(profile.Team))
	for _, id := range profile.Team {
		if e, ok := byID[id]; ok && e.BattleEligible() {
			team = append(team, e.Combatant())
		}
	}
	return team
}

// findOpponent searches for a human and falls back to a bot built from the
// player's own dex when none is found in time.
func (s *arenaService) findOpponent(ctx context.Context, userID uuid.UUID, power, teamSize int, dex []*domain.WordEntry) (Opponent, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	match, err := s.matchmaker.Search(ctx, userID, power)
	switch {
	case err == nil:
		id := match.UserID
		return Opponent{
			UserID:      &id,
			DisplayName: match.DisplayName,
			Rating:      match.Rating,
			Team:        append([]domain.Combatant{}, match.TeamSnapshot...),
		}, nil
	case errors.Is(err, domain.ErrMatchNotFound):
		log.Debug("no opponent found, fighting a bot",
			slog.String("user_id", userID.String()),
			slog.Int("power", power))
		return Opponent{
			Bot:  true,
			Team: battle.BotTeam(dex, max(teamSize, 1), s.random),
		}, nil
	default:
		return Opponent{}, err
	}
}

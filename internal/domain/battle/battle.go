package battle

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
)

const (
	minVariance = 0.8
	maxVariance = 1.2
)

// ErrCancelled is returned by Run when the battle was cancelled.
var ErrCancelled = errors.New("battle cancelled")

// VarianceSource yields uniform draws in [0,1). *rand.Rand satisfies it.
type VarianceSource interface {
	Float64() float64
}

// Side identifies a team.
type Side int

const (
	SidePlayer Side = iota
	SideOpponent
)

// Other returns the opposing side.
func (s Side) Other() Side {
	if s == SidePlayer {
		return SideOpponent
	}
	return SidePlayer
}

func (s Side) String() string {
	if s == SidePlayer {
		return "player"
	}
	return "opponent"
}

// State is the lifecycle state of a battle.
type State int

const (
	StateActive State = iota
	StateFinished
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return "cancelled"
	}
}

// Fighter is a combatant with its battle-time hit points.
type Fighter struct {
	domain.Combatant
	Stats     Stats `json:"stats"`
	CurrentHP int   `json:"current_hp"`
}

// Turn records one attack.
type Turn struct {
	Round      int     `json:"round"`
	Attacker   Side    `json:"attacker"`
	Striker    string  `json:"striker"`
	Target     string  `json:"target"`
	Variance   float64 `json:"variance"`
	Damage     int     `json:"damage"`
	TargetHP   int     `json:"target_hp"`
	KnockedOut bool    `json:"knocked_out"`
}

// Result summarises a finished battle.
type Result struct {
	Winner        Side   `json:"winner"`
	PlayerWon     bool   `json:"player_won"`
	Rounds        int    `json:"rounds"`
	Turns         []Turn `json:"turns"`
	PlayerPower   int    `json:"player_power"`
	OpponentPower int    `json:"opponent_power"`
}

// Battle is the turn-based state machine. The player side opens every
// round and the opponent's active member retaliates if the battle is still
// running. Methods are safe for concurrent use so Cancel can be called from
// another goroutine while Run is stepping.
type Battle struct {
	mu       sync.Mutex
	teams    [2][]*Fighter
	index    [2]int
	power    [2]int
	state    State
	winner   Side
	next     Side
	round    int
	turns    []Turn
	random   VarianceSource
	cancelCh chan struct{}
	once     sync.Once
}

// NewBattle validates both teams and sets every fighter to full health.
// Teams hold at most domain.MaxTeamSize non-god members; either may be empty.
func NewBattle(player, opponent []domain.Combatant, calc StatCalculator, random VarianceSource) (*Battle, error) {
	if calc == nil {
		calc = DefaultCalculator{}
	}
	if random == nil {
		return nil, errors.New("battle: variance source is required")
	}

	b := &Battle{
		random:   random,
		next:     SidePlayer,
		cancelCh: make(chan struct{}),
	}

	for side, team := range [2][]domain.Combatant{player, opponent} {
		if err := validateTeam(team); err != nil {
			return nil, fmt.Errorf("%s team: %w", Side(side), err)
		}
		for _, c := range team {
			stats := calc.Stats(c)
			b.teams[side] = append(b.teams[side], &Fighter{Combatant: c, Stats: stats, CurrentHP: stats.HP})
			b.power[side] += stats.Power
		}
	}

	return b, nil
}

func validateTeam(team []domain.Combatant) error {
	if len(team) > domain.MaxTeamSize {
		return fmt.Errorf("%w: %d members exceeds %d", domain.ErrInvalidTeam, len(team), domain.MaxTeamSize)
	}
	for _, c := range team {
		if strings.TrimSpace(c.Word) == "" {
			return fmt.Errorf("%w: empty member", domain.ErrInvalidTeam)
		}
		if c.Rarity == domain.RarityGod {
			return fmt.Errorf("%w: %q is god tier", domain.ErrInvalidTeam, c.Word)
		}
	}
	return nil
}

// State returns the current lifecycle state.
func (b *Battle) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Fighters returns a copy of a side's fighters with their current health.
func (b *Battle) Fighters(side Side) []Fighter {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Fighter, len(b.teams[side]))
	for i, f := range b.teams[side] {
		out[i] = *f
	}
	return out
}

// Step performs the next attack. ok is false once the battle is no longer
// active, including when this call detected an exhausted team at loop entry.
func (b *Battle) Step() (turn Turn, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateActive {
		return Turn{}, false
	}
	if b.finishIfExhausted() {
		return Turn{}, false
	}

	attackerSide := b.next
	defenderSide := attackerSide.Other()
	if attackerSide == SidePlayer {
		b.round++
	}

	attacker := b.teams[attackerSide][b.index[attackerSide]]
	defender := b.teams[defenderSide][b.index[defenderSide]]

	variance := minVariance + (maxVariance-minVariance)*b.random.Float64()
	damage := int(math.Floor(float64(attacker.Stats.Atk) * variance))
	defender.CurrentHP = max(0, defender.CurrentHP-damage)

	turn = Turn{
		Round:    b.round,
		Attacker: attackerSide,
		Striker:  attacker.Word,
		Target:   defender.Word,
		Variance: variance,
		Damage:   damage,
		TargetHP: defender.CurrentHP,
	}

	if defender.CurrentHP == 0 {
		turn.KnockedOut = true
		b.index[defenderSide]++
		if b.index[defenderSide] >= len(b.teams[defenderSide]) {
			b.finish(attackerSide)
		}
	}

	b.next = defenderSide
	b.turns = append(b.turns, turn)
	return turn, true
}

// finishIfExhausted ends the battle when either pointer ran off its team.
// The player is checked first, so two empty teams lose for the player.
func (b *Battle) finishIfExhausted() bool {
	if b.index[SidePlayer] >= len(b.teams[SidePlayer]) {
		b.finish(SideOpponent)
		return true
	}
	if b.index[SideOpponent] >= len(b.teams[SideOpponent]) {
		b.finish(SidePlayer)
		return true
	}
	return false
}

func (b *Battle) finish(winner Side) {
	b.state = StateFinished
	b.winner = winner
}

// Cancel stops the battle. It has no effect once the battle finished.
func (b *Battle) Cancel() {
	b.mu.Lock()
	if b.state == StateActive {
		b.state = StateCancelled
	}
	b.mu.Unlock()
	b.once.Do(func() { close(b.cancelCh) })
}

// Run steps the battle to completion, waiting pace between turns. It returns
// ErrCancelled after Cancel and ctx.Err() when the context ends first; in both
// cases no result is produced.
func (b *Battle) Run(ctx context.Context, pace time.Duration) (*Result, error) {
	for {
		if err := ctx.Err(); err != nil {
			b.Cancel()
			return nil, err
		}

		if _, ok := b.Step(); !ok {
			break
		}

		if pace <= 0 {
			continue
		}
		timer := time.NewTimer(pace)
		select {
		case <-ctx.Done():
			timer.Stop()
			b.Cancel()
			return nil, ctx.Err()
		case <-b.cancelCh:
			timer.Stop()
		case <-timer.C:
		}
	}

	return b.Result()
}

// Result returns the outcome of a finished battle.
func (b *Battle) Result() (*Result, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateCancelled:
		return nil, ErrCancelled
	case StateActive:
		return nil, errors.New("battle: still active")
	}

	return &Result{
		Winner:        b.winner,
		PlayerWon:     b.winner == SidePlayer,
		Rounds:        b.round,
		Turns:         append([]Turn(nil), b.turns...),
		PlayerPower:   b.power[SidePlayer],
		OpponentPower: b.power[SideOpponent],
	}, nil
}

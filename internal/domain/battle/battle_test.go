package battle

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/phrazzld/wordmon-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fixedVariance float64

func (f fixedVariance) Float64() float64 { return float64(f) }

func team(words ...string) []domain.Combatant {
	out := make([]domain.Combatant, 0, len(words))
	for _, w := range words {
		out = append(out, domain.Combatant{Word: w, Rarity: domain.RarityCommon})
	}
	return out
}

func TestBattleOneHitTeamFinishesInOneRound(t *testing.T) {
	t.Parallel()

	// A single-letter common has 10 hp; a mythic always hits for at least 80.
	player := team("x")
	opponent := []domain.Combatant{{Word: "wyvernscale", Rarity: domain.RarityMythic}}

	for seed := int64(0); seed < 20; seed++ {
		b, err := NewBattle(player, opponent, nil, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)

		result, err := b.Run(context.Background(), 0)
		require.NoError(t, err)
		assert.Equal(t, 1, result.Rounds)
		assert.Equal(t, SideOpponent, result.Winner)
		assert.False(t, result.PlayerWon)
		assert.Len(t, result.Turns, 2)
	}
}

func TestBattleEmptyOpponentFinishesImmediately(t *testing.T) {
	t.Parallel()

	b, err := NewBattle(team("oak", "elm"), nil, nil, fixedVariance(0.5))
	require.NoError(t, err)

	_, ok := b.Step()
	assert.False(t, ok)
	assert.Equal(t, StateFinished, b.State())

	result, err := b.Result()
	require.NoError(t, err)
	assert.True(t, result.PlayerWon)
	assert.Zero(t, result.Rounds)
	assert.Empty(t, result.Turns)
}

func TestBattleEmptyPlayerLoses(t *testing.T) {
	t.Parallel()

	b, err := NewBattle(nil, team("oak"), nil, fixedVariance(0.5))
	require.NoError(t, err)

	result, err := b.Run(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, SideOpponent, result.Winner)
}

func TestBattlePlayerOpensEveryRound(t *testing.T) {
	t.Parallel()

	b, err := NewBattle(team("granite", "basalt"), team("marble", "quartz"), nil, rand.New(rand.NewSource(3)))
	require.NoError(t, err)

	result, err := b.Run(context.Background(), 0)
	require.NoError(t, err)
	require.NotEmpty(t, result.Turns)

	for i, turn := range result.Turns {
		if i%2 == 0 {
			assert.Equal(t, SidePlayer, turn.Attacker, "turn %d", i)
			assert.Equal(t, i/2+1, turn.Round)
		} else {
			assert.Equal(t, SideOpponent, turn.Attacker, "turn %d", i)
			assert.Equal(t, result.Turns[i-1].Round, turn.Round)
		}
	}
}

func TestBattleDamageBounds(t *testing.T) {
	t.Parallel()

	player := []domain.Combatant{
		{Word: "ember", Rarity: domain.RarityUncommon},
		{Word: "tempest", Rarity: domain.RarityRare},
	}
	opponent := []domain.Combatant{
		{Word: "glacier", Rarity: domain.RarityEpic},
		{Word: "bramble", Rarity: domain.RarityLegendary},
	}
	atk := map[string]int{}
	for _, c := range append(append([]domain.Combatant{}, player...), opponent...) {
		atk[c.Word] = DefaultCalculator{}.Stats(c).Atk
	}

	for seed := int64(0); seed < 50; seed++ {
		b, err := NewBattle(player, opponent, nil, rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		result, err := b.Run(context.Background(), 0)
		require.NoError(t, err)

		for _, turn := range result.Turns {
			a := float64(atk[turn.Striker])
			assert.GreaterOrEqual(t, turn.Variance, 0.8)
			assert.Less(t, turn.Variance, 1.2)
			assert.Equal(t, int(math.Floor(a*turn.Variance)), turn.Damage)
			assert.GreaterOrEqual(t, turn.Damage, int(math.Floor(0.8*a)))
			assert.LessOrEqual(t, turn.Damage, int(math.Floor(1.2*a)))
			assert.GreaterOrEqual(t, turn.TargetHP, 0)
		}
	}
}

func TestBattleKnockoutAdvancesPointer(t *testing.T) {
	t.Parallel()

	// Variance 1.0: commons hit for 20, so "ab" (20 hp) drops in one hit.
	b, err := NewBattle(team("ab"), team("cd", "efgh"), nil, fixedVariance(0.5))
	require.NoError(t, err)

	turn, ok := b.Step()
	require.True(t, ok)
	assert.True(t, turn.KnockedOut)
	assert.Equal(t, "cd", turn.Target)

	turn, ok = b.Step()
	require.True(t, ok)
	assert.Equal(t, SideOpponent, turn.Attacker)
	assert.Equal(t, "efgh", turn.Striker)
	assert.True(t, turn.KnockedOut)
	assert.Equal(t, StateFinished, b.State())

	result, err := b.Result()
	require.NoError(t, err)
	assert.Equal(t, SideOpponent, result.Winner)
}

func TestNewBattleRejectsInvalidTeams(t *testing.T) {
	t.Parallel()

	_, err := NewBattle(team("a", "b", "c", "d", "e", "f"), nil, nil, fixedVariance(0))
	assert.ErrorIs(t, err, domain.ErrInvalidTeam)

	_, err = NewBattle(nil, []domain.Combatant{{Word: "apex", Rarity: domain.RarityGod}}, nil, fixedVariance(0))
	assert.ErrorIs(t, err, domain.ErrInvalidTeam)

	_, err = NewBattle(team(""), nil, nil, fixedVariance(0))
	assert.ErrorIs(t, err, domain.ErrInvalidTeam)
}

func TestBattleCancel(t *testing.T) {
	t.Parallel()

	b, err := NewBattle(team("oak"), team("elm"), nil, fixedVariance(0.5))
	require.NoError(t, err)

	b.Cancel()
	b.Cancel()
	_, err = b.Run(context.Background(), 0)
	assert.ErrorIs(t, err, ErrCancelled)
	assert.Equal(t, StateCancelled, b.State())
}

func TestBattleRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("m", 14)
	big := []domain.Combatant{
		{Word: long, Rarity: domain.RarityMythic},
		{Word: long + "a", Rarity: domain.RarityMythic},
		{Word: long + "b", Rarity: domain.RarityMythic},
	}
	b, err := NewBattle(big, big, nil, fixedVariance(0))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = b.Run(ctx, 10*time.Millisecond)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, StateCancelled, b.State())

	_, err = b.Result()
	assert.ErrorIs(t, err, ErrCancelled)
}

func TestBattleCancelFromAnotherGoroutine(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	long := strings.Repeat("m", 14)
	b, err := NewBattle(team(long), team(long), nil, fixedVariance(0))
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := b.Run(context.Background(), time.Hour)
		done <- err
	}()

	// the first attack lands before Run starts waiting on the pace timer
	require.Eventually(t, func() bool {
		f := b.Fighters(SideOpponent)[0]
		return f.CurrentHP < f.Stats.HP
	}, time.Second, time.Millisecond)
	b.Cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrCancelled)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Cancel")
	}
}

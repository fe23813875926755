package battle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatePlacement(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name       string
		in         RatingInput
		wantRating int
		wantDelta  int
	}{
		{"first win vs bot", RatingInput{Won: true, OpponentIsBot: true}, 200, 200},
		{"first win vs human", RatingInput{Won: true}, 250, 250},
		{"first loss floors at zero", RatingInput{OpponentIsBot: true}, 0, 0},
		{"placement loss is small", RatingInput{Rating: 400, Wins: 2, OpponentIsBot: true}, 380, -20},
		{"fifth game still placement", RatingInput{Rating: 600, Wins: 3, Losses: 1, Won: true, OpponentIsBot: true}, 800, 200},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Rate(tc.in)
			assert.True(t, got.Placement)
			assert.Equal(t, tc.wantRating, got.Rating)
			assert.Equal(t, tc.wantDelta, got.Delta)
		})
	}
}

func TestRateStandardBot(t *testing.T) {
	t.Parallel()

	base := RatingInput{Rating: 1000, Wins: 3, Losses: 2, OpponentIsBot: true, OwnPower: 1000}

	testCases := []struct {
		name     string
		oppPower int
		won      bool
		want     int
	}{
		{"even win", 1000, true, 3},
		{"even loss", 1000, false, -3},
		{"stronger bot clamps high", 2000, true, 4},
		{"weaker bot clamps low", 100, true, 2},
		{"half rounds up", 1150, true, 4},
		{"negative half rounds up", 850, true, 3},
		{"loss vs stronger", 2000, false, -4},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := base
			in.OpponentPower = tc.oppPower
			in.Won = tc.won
			got := Rate(in)
			assert.False(t, got.Placement)
			assert.Equal(t, tc.want, got.Delta)
			assert.GreaterOrEqual(t, abs(got.Delta), 2)
			assert.LessOrEqual(t, abs(got.Delta), 4)
		})
	}
}

func TestRateStandardHuman(t *testing.T) {
	t.Parallel()

	base := RatingInput{Rating: 1000, Wins: 10, Losses: 10}

	testCases := []struct {
		name      string
		oppRating int
		won       bool
		want      int
	}{
		{"even win", 1000, true, 7},
		{"stronger opponent", 1300, true, 8},
		{"weaker opponent", 700, true, 6},
		{"slightly stronger", 1049, true, 7},
		{"loss", 1000, false, -7},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			in := base
			in.OpponentRating = tc.oppRating
			in.Won = tc.won
			got := Rate(in)
			assert.Equal(t, tc.want, got.Delta)
		})
	}
}

func TestRateSixthGameIsStandard(t *testing.T) {
	t.Parallel()

	got := Rate(RatingInput{Rating: 500, Wins: 5, Won: true, OpponentIsBot: true, OwnPower: 300, OpponentPower: 300})
	assert.False(t, got.Placement)
	assert.Equal(t, 3, got.Delta)
	assert.Equal(t, 6, got.Wins)
}

func TestRateNeverNegative(t *testing.T) {
	t.Parallel()

	in := RatingInput{Rating: 30, Wins: 0, Losses: 0}
	for i := 0; i < 50; i++ {
		got := Rate(in)
		assert.GreaterOrEqual(t, got.Rating, 0)
		in.Rating, in.Wins, in.Losses = got.Rating, got.Wins, got.Losses
	}
	assert.Zero(t, in.Rating)
	assert.Equal(t, 50, in.Losses)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

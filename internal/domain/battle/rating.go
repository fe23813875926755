package battle

import "math"

// PlacementGames is the number of opening battles scored with placement
// deltas.
const PlacementGames = 5

const (
	placementWin        = 200
	placementHumanBonus = 50
	placementLoss       = 20
)

// RatingInput describes one finished battle from the invoking user's side.
type RatingInput struct {
	Rating         int
	Wins           int
	Losses         int
	Won            bool
	OpponentIsBot  bool
	OwnPower       int
	OpponentPower  int
	OpponentRating int
}

// RatingResult is the invoking user's standing after the battle.
type RatingResult struct {
	Rating    int  `json:"rating"`
	Delta     int  `json:"delta"`
	Wins      int  `json:"wins"`
	Losses    int  `json:"losses"`
	Placement bool `json:"placement"`
}

// Rate applies one battle to a rating. The first PlacementGames battles move
// the rating by +200 (+50 against a human) on a win and -20 on a loss. Later
// battles move it by a small clamped amount that grows with the opponent's
// relative power (bots) or rating (humans). The rating never drops below 0.
func Rate(in RatingInput) RatingResult {
	priorGames := in.Wins + in.Losses
	placement := priorGames < PlacementGames

	var delta int
	switch {
	case placement && in.Won:
		delta = placementWin
		if !in.OpponentIsBot {
			delta += placementHumanBonus
		}
	case placement:
		delta = -placementLoss
	case in.OpponentIsBot:
		delta = clamp(3+roundHalfUp(float64(in.OpponentPower-in.OwnPower)/300), 2, 4)
	default:
		delta = clamp(7+roundHalfUp(float64(in.OpponentRating-in.Rating)/100), 6, 8)
	}

	if !placement && !in.Won {
		delta = -delta
	}

	out := RatingResult{
		Rating:    max(0, in.Rating+delta),
		Wins:      in.Wins,
		Losses:    in.Losses,
		Placement: placement,
	}
	out.Delta = out.Rating - in.Rating
	if in.Won {
		out.Wins++
	} else {
		out.Losses++
	}
	return out
}

// roundHalfUp rounds halves towards positive infinity.
func roundHalfUp(x float64) int {
	return int(math.Floor(x + 0.5))
}

func clamp(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

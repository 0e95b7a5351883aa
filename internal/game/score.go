package game

import "math"

// bonusWindowMs is the reaction time at which the speed bonus reaches zero.
const bonusWindowMs = 1000

// Points returns the score for a hit: base plus a linear speed bonus of up
// to 100% that decays to nothing at one second.
func Points(base int, reactionMs int64) int {
	if reactionMs < 0 {
		reactionMs = 0
	}
	bonus := math.Max(0, 1-float64(reactionMs)/bonusWindowMs)
	return int(math.Floor(float64(base) * (1 + bonus)))
}

// AverageReaction returns the rounded mean in milliseconds, 0 for no samples.
func AverageReaction(reactionTimes []int) int {
	if len(reactionTimes) == 0 {
		return 0
	}
	sum := 0
	for _, rt := range reactionTimes {
		sum += rt
	}
	return int(math.Round(float64(sum) / float64(len(reactionTimes))))
}

// IsAchievement reports whether a score crosses an achievement milestone.
func IsAchievement(score int) bool {
	return score > 0 && score%100 == 0
}

package domain

import "github.com/DjordjeVuckovic/grade-consensus/pkg/utils"

// ScoreDecimalPlaces is the precision of every stored score, variance and confidence.
const ScoreDecimalPlaces = 4

func RoundScore(v float64) float64 {
	return utils.RoundDecimal(v, ScoreDecimalPlaces)
}

package evaluator

import (
	"fmt"
	"math"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
)

// Validate rejects opinions that cannot be used as-is. Nothing is clamped.
func Validate(r domain.GradingResult, rubric domain.Rubric) error {
	if math.IsNaN(r.Score) || math.IsNaN(r.MaxScore) || math.IsNaN(r.Confidence) {
		return Malformed(r.EvaluatorID, fmt.Errorf("NaN in score, max score or confidence"))
	}
	if r.MaxScore <= 0 {
		return Malformed(r.EvaluatorID, fmt.Errorf("max score %.2f must be positive", r.MaxScore))
	}
	if r.Score < 0 || r.Score > r.MaxScore {
		return Malformed(r.EvaluatorID, fmt.Errorf("score %.2f outside [0, %.2f]", r.Score, r.MaxScore))
	}
	if r.Confidence < 0 || r.Confidence > 1 {
		return Malformed(r.EvaluatorID, fmt.Errorf("confidence %.2f outside [0, 1]", r.Confidence))
	}
	for _, id := range r.CriteriaMet {
		if !rubric.HasCriterion(id) {
			return Malformed(r.EvaluatorID, fmt.Errorf("unknown criterion %q", id))
		}
	}
	for _, id := range r.AmbiguousCriteria {
		if !rubric.HasCriterion(id) {
			return Malformed(r.EvaluatorID, fmt.Errorf("unknown ambiguous criterion %q", id))
		}
	}
	for _, id := range r.MistakesFound {
		if !rubric.HasMistake(id) {
			return Malformed(r.EvaluatorID, fmt.Errorf("unknown mistake %q", id))
		}
	}
	return nil
}

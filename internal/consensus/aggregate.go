// Package consensus combines independent evaluator opinions into one score.
// Everything here is pure: the same inputs always produce the same MultiEvalResult.
package consensus

import (
	"fmt"
	"math"
	"strings"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/utils"
)

const reasoningExcerpt = 160

type outlier struct {
	index     int
	deviation float64
	threshold float64
}

// Aggregate folds the successful results of one round into a MultiEvalResult.
// failures are the evaluators that did not produce a result; they only affect reasoning and escalation.
func Aggregate(results []domain.GradingResult, failures []domain.EvaluatorFailure, maxScore float64, policy Policy) domain.MultiEvalResult {
	p := policy.WithDefaults()
	total := len(results) + len(failures)
	quorum := p.quorum(total)

	scores := make([]float64, len(results))
	confidences := make([]float64, len(results))
	for i, r := range results {
		scores[i] = r.NormalizedScore(maxScore)
		confidences[i] = r.Confidence
	}

	mean := utils.Mean(scores)
	variance := utils.PopulationVariance(scores)
	varianceRatio := 0.0
	if maxScore > 0 {
		varianceRatio = variance / (maxScore * maxScore)
	}

	consensus := mean
	out, hasOutlier := findOutlier(scores, maxScore, p)
	if hasOutlier && len(scores)-1 < quorum {
		hasOutlier = false
	}
	if hasOutlier {
		consensus = utils.Mean(without(scores, out.index))
	}

	confidence := utils.Mean(confidences) * math.Exp(-p.VarianceDecay*varianceRatio)

	var reasons []string
	if hasOutlier {
		reasons = append(reasons, fmt.Sprintf("outlier %s excluded", results[out.index].EvaluatorID))
	}
	if varianceRatio > p.MaxVarianceRatio {
		reasons = append(reasons, fmt.Sprintf("variance ratio %.3f exceeds %.3f", varianceRatio, p.MaxVarianceRatio))
	}
	if confidence < p.ConfidenceFloor {
		reasons = append(reasons, fmt.Sprintf("confidence %.2f below floor %.2f", confidence, p.ConfidenceFloor))
	}
	if len(failures) > 0 && p.EscalateOnPartialRound {
		reasons = append(reasons, fmt.Sprintf("partial round: %d of %d evaluators succeeded", len(results), total))
	}
	for _, r := range results {
		if len(r.AmbiguousCriteria) > 0 {
			reasons = append(reasons, fmt.Sprintf("%s flagged ambiguous criteria %s",
				r.EvaluatorID, strings.Join(r.AmbiguousCriteria, ", ")))
		}
	}

	res := domain.MultiEvalResult{
		Evaluations:       results,
		Failures:          failures,
		MaxScore:          maxScore,
		MeanScore:         domain.RoundScore(mean),
		Variance:          domain.RoundScore(variance),
		ConsensusScore:    domain.RoundScore(consensus),
		Confidence:        domain.RoundScore(confidence),
		ShouldEscalate:    len(reasons) > 0,
		EscalationReasons: reasons,
	}
	if hasOutlier {
		res.ExcludedOutliers = []string{results[out.index].EvaluatorID}
	}
	res.Reasoning = synthesize(res, out, hasOutlier, total)
	return res
}

// findOutlier returns the result deviating most from the mean of the others,
// provided it exceeds max(sigma * stddev(others), minAbsRatio * maxScore).
// Statistics are taken over the other scores; a single wild score would inflate its own threshold.
func findOutlier(scores []float64, maxScore float64, p Policy) (outlier, bool) {
	if len(scores) < 3 {
		return outlier{}, false
	}

	best := outlier{index: -1}
	for i, s := range scores {
		others := without(scores, i)
		threshold := math.Max(p.OutlierSigma*math.Sqrt(utils.PopulationVariance(others)), p.OutlierMinAbsRatio*maxScore)
		deviation := math.Abs(s - utils.Mean(others))
		if deviation > threshold && deviation > best.deviation {
			best = outlier{index: i, deviation: deviation, threshold: threshold}
		}
	}
	return best, best.index >= 0
}

func without(values []float64, skip int) []float64 {
	out := make([]float64, 0, len(values)-1)
	for i, v := range values {
		if i != skip {
			out = append(out, v)
		}
	}
	return out
}

func synthesize(res domain.MultiEvalResult, out outlier, hasOutlier bool, total int) string {
	var b strings.Builder
	maxLabel := domain.FormatScore(res.MaxScore)

	used := len(res.Evaluations)
	if hasOutlier {
		used--
	}
	fmt.Fprintf(&b, "Consensus %s/%s from %d of %d evaluations (mean %s, variance %.4f, confidence %.2f).\n",
		domain.FormatScore(res.ConsensusScore), maxLabel, used, total,
		domain.FormatScore(res.MeanScore), res.Variance, res.Confidence)

	for i, r := range res.Evaluations {
		fmt.Fprintf(&b, "- %s: %s/%s (confidence %.2f)",
			r.EvaluatorID, domain.FormatScore(r.NormalizedScore(res.MaxScore)), maxLabel, r.Confidence)
		if hasOutlier && i == out.index {
			b.WriteString(" [excluded]")
		}
		if excerpt := utils.Abbreviate(r.Reasoning, reasoningExcerpt); excerpt != "" {
			b.WriteString(": ")
			b.WriteString(excerpt)
		}
		b.WriteByte('\n')
	}

	if hasOutlier {
		fmt.Fprintf(&b, "Policy: mean of retained scores; %s excluded as outlier (deviation %.2f > threshold %.2f).\n",
			res.Evaluations[out.index].EvaluatorID, out.deviation, out.threshold)
	} else {
		b.WriteString("Policy: mean of all scores.\n")
	}

	if n := len(res.Failures); n > 0 {
		noun := "evaluator"
		if n > 1 {
			noun = "evaluators"
		}
		parts := make([]string, n)
		for i, f := range res.Failures {
			parts[i] = fmt.Sprintf("%s: %s", f.EvaluatorID, f.Kind)
		}
		fmt.Fprintf(&b, "%d %s unavailable (%s).\n", n, noun, strings.Join(parts, "; "))
	}

	if res.ShouldEscalate {
		fmt.Fprintf(&b, "Escalated: %s.", strings.Join(res.EscalationReasons, "; "))
	} else {
		b.WriteString("No escalation.")
	}
	return b.String()
}

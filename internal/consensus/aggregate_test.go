package consensus

import (
	"math"
	"testing"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func result(id string, score, maxScore, confidence float64) domain.GradingResult {
	return domain.GradingResult{
		EvaluatorID: id,
		Score:       score,
		MaxScore:    maxScore,
		Confidence:  confidence,
		Reasoning:   "reasoning of " + id,
	}
}

func TestAggregate_OutlierExcluded(t *testing.T) {
	results := []domain.GradingResult{
		result("a", 8, 10, 0.9),
		result("b", 8.5, 10, 0.9),
		result("c", 2, 10, 0.9),
	}

	res := Aggregate(results, nil, 10, DefaultPolicy())

	assert.InDelta(t, 6.17, res.MeanScore, 0.01)
	assert.InDelta(t, 8.25, res.ConsensusScore, 0.0001)
	assert.Equal(t, []string{"c"}, res.ExcludedOutliers)
	assert.True(t, res.ShouldEscalate)
	assert.Contains(t, res.EscalationReasons, "outlier c excluded")
	assert.Contains(t, res.Reasoning, "c excluded as outlier")
	assert.Contains(t, res.Reasoning, "- c: 2.00/10.00 (confidence 0.90) [excluded]")
	assert.Contains(t, res.Reasoning, "from 2 of 3 evaluations")
}

func TestAggregate_OutlierKeptWhenQuorumWouldBreak(t *testing.T) {
	results := []domain.GradingResult{
		result("a", 8, 10, 0.9),
		result("b", 8.5, 10, 0.9),
		result("c", 2, 10, 0.9),
	}
	p := DefaultPolicy()
	p.Quorum = 3

	res := Aggregate(results, nil, 10, p)

	assert.Empty(t, res.ExcludedOutliers)
	assert.InDelta(t, res.MeanScore, res.ConsensusScore, 0.0001)
	assert.True(t, res.ShouldEscalate, "variance alone trips escalation")
}

func TestAggregate_NoOutlierAmongCloseScores(t *testing.T) {
	results := []domain.GradingResult{
		result("a", 7, 10, 0.9),
		result("b", 7.5, 10, 0.9),
		result("c", 8, 10, 0.9),
	}

	res := Aggregate(results, nil, 10, DefaultPolicy())

	assert.Empty(t, res.ExcludedOutliers)
	assert.InDelta(t, 7.5, res.ConsensusScore, 0.0001)
	assert.False(t, res.ShouldEscalate)
	assert.Contains(t, res.Reasoning, "No escalation.")
}

func TestAggregate_IdenticalScores(t *testing.T) {
	tests := []struct {
		name       string
		confidence float64
		escalate   bool
	}{
		{name: "confident", confidence: 0.9, escalate: false},
		{name: "below confidence floor", confidence: 0.4, escalate: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := []domain.GradingResult{
				result("a", 6, 10, tt.confidence),
				result("b", 6, 10, tt.confidence),
				result("c", 6, 10, tt.confidence),
			}

			res := Aggregate(results, nil, 10, DefaultPolicy())

			assert.Zero(t, res.Variance)
			assert.Equal(t, 6.0, res.ConsensusScore)
			assert.InDelta(t, tt.confidence, res.Confidence, 0.0001)
			assert.Equal(t, tt.escalate, res.ShouldEscalate)
		})
	}
}

func TestAggregate_RescalesBeforeAveraging(t *testing.T) {
	results := []domain.GradingResult{
		result("a", 4, 5, 0.9),
		result("b", 8, 10, 0.9),
		result("c", 16, 20, 0.9),
	}

	res := Aggregate(results, nil, 10, DefaultPolicy())

	assert.Equal(t, 8.0, res.MeanScore)
	assert.Zero(t, res.Variance)
	assert.False(t, res.ShouldEscalate)
	assert.Contains(t, res.Reasoning, "- a: 8.00/10.00")
}

func TestAggregate_VarianceLowersConfidence(t *testing.T) {
	agree := Aggregate([]domain.GradingResult{result("a", 5, 10, 0.9), result("b", 5, 10, 0.9)}, nil, 10, DefaultPolicy())
	disagree := Aggregate([]domain.GradingResult{result("a", 3, 10, 0.9), result("b", 7, 10, 0.9)}, nil, 10, DefaultPolicy())

	assert.Less(t, disagree.Confidence, agree.Confidence)
	assert.True(t, disagree.ShouldEscalate)
}

func TestAggregate_AmbiguousCriteriaEscalates(t *testing.T) {
	a := result("a", 7, 10, 0.9)
	a.AmbiguousCriteria = []string{"c2"}
	results := []domain.GradingResult{a, result("b", 7, 10, 0.9), result("c", 7, 10, 0.9)}

	res := Aggregate(results, nil, 10, DefaultPolicy())

	assert.True(t, res.ShouldEscalate)
	assert.Contains(t, res.EscalationReasons, "a flagged ambiguous criteria c2")
}

func TestAggregate_PartialRound(t *testing.T) {
	results := []domain.GradingResult{result("a", 8, 10, 0.9), result("b", 8.5, 10, 0.9)}
	failures := []domain.EvaluatorFailure{{EvaluatorID: "c", Kind: domain.FailureTimeout, Attempts: 3}}

	res := Aggregate(results, failures, 10, DefaultPolicy())
	assert.False(t, res.ShouldEscalate)
	assert.Contains(t, res.Reasoning, "1 evaluator unavailable (c: timeout)")
	assert.Contains(t, res.Reasoning, "from 2 of 3 evaluations")

	p := DefaultPolicy()
	p.EscalateOnPartialRound = true
	strict := Aggregate(results, failures, 10, p)
	assert.True(t, strict.ShouldEscalate)
	require.Len(t, strict.EscalationReasons, 1)
	assert.Contains(t, strict.EscalationReasons[0], "partial round")
}

func TestAggregate_Deterministic(t *testing.T) {
	results := []domain.GradingResult{
		result("a", 8, 10, 0.8),
		result("b", 8.5, 10, 0.7),
		result("c", 2, 10, 0.95),
	}
	failures := []domain.EvaluatorFailure{{EvaluatorID: "d", Kind: domain.FailureUnavailable}}

	first := Aggregate(results, failures, 10, DefaultPolicy())
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Aggregate(results, failures, 10, DefaultPolicy()))
	}
}

func TestPolicy_WithDefaults(t *testing.T) {
	p := Policy{OutlierSigma: 3, ConfidenceFloor: -1, MaxVarianceRatio: math.NaN()}.WithDefaults()
	assert.Equal(t, 3.0, p.OutlierSigma)
	assert.Equal(t, DefaultConfidenceFloor, p.ConfidenceFloor)
	assert.Equal(t, DefaultMaxVarianceRatio, p.MaxVarianceRatio)
	assert.Equal(t, 0.0, p.VarianceDecay, "zero is kept")
	assert.Equal(t, 2, p.quorum(3))
	assert.Equal(t, 1, Policy{Quorum: 1}.quorum(3))
}

func TestAggregate_ZeroThresholds(t *testing.T) {
	lowConfidence := []domain.GradingResult{
		result("a", 7, 10, 0.3),
		result("b", 7, 10, 0.3),
		result("c", 7, 10, 0.3),
	}

	t.Run("zero confidence floor disables the confidence trigger", func(t *testing.T) {
		p := DefaultPolicy()
		p.ConfidenceFloor = 0

		res := Aggregate(lowConfidence, nil, 10, p)
		assert.False(t, res.ShouldEscalate)
		assert.Empty(t, res.EscalationReasons)
		assert.InDelta(t, 0.3, res.Confidence, 0.0001)
	})

	t.Run("default floor escalates the same round", func(t *testing.T) {
		res := Aggregate(lowConfidence, nil, 10, DefaultPolicy())
		assert.True(t, res.ShouldEscalate)
	})

	t.Run("zero variance ratio escalates on any disagreement", func(t *testing.T) {
		p := DefaultPolicy()
		p.MaxVarianceRatio = 0
		results := []domain.GradingResult{result("a", 7, 10, 0.9), result("b", 7.5, 10, 0.9)}

		res := Aggregate(results, nil, 10, p)
		assert.True(t, res.ShouldEscalate)
		require.Len(t, res.EscalationReasons, 1)
		assert.Contains(t, res.EscalationReasons[0], "variance ratio")

		agree := Aggregate([]domain.GradingResult{result("a", 7, 10, 0.9), result("b", 7, 10, 0.9)}, nil, 10, p)
		assert.False(t, agree.ShouldEscalate)
	})
}

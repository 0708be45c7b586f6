// Package analytics summarizes grading history per question.
// It only reads rounds and audit entries and is not on the grading path.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/pkg/utils"
	"github.com/google/uuid"
)

const (
	// biasThresholdRatio is the mean override delta, relative to max score, reported as systematic bias.
	biasThresholdRatio = 0.1
	topN               = 5
)

type Count struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

// OverrideDelta is one human correction of an AI score.
type OverrideDelta struct {
	SubmissionID  uuid.UUID `json:"submission_id"`
	AIScore       float64   `json:"ai_score"`
	OverrideScore float64   `json:"override_score"`
	Delta         float64   `json:"delta"`
	Reason        string    `json:"reason"`
}

type EvaluatorStats struct {
	EvaluatorID    string  `json:"evaluator_id"`
	Evaluations    int     `json:"evaluations"`
	Failures       int     `json:"failures"`
	Outliers       int     `json:"outliers"`
	MeanScore      float64 `json:"mean_score"`
	MeanDeviation  float64 `json:"mean_deviation"`
	MeanConfidence float64 `json:"mean_confidence"`
}

type PatternReport struct {
	QuestionID        uuid.UUID        `json:"question_id"`
	MaxScore          float64          `json:"max_score"`
	Grades            int              `json:"grades"`
	Rounds            int              `json:"rounds"`
	FailedRounds      int              `json:"failed_rounds"`
	EscalatedRounds   int              `json:"escalated_rounds"`
	EscalationRate    float64          `json:"escalation_rate"`
	Overrides         []OverrideDelta  `json:"overrides"`
	OverrideRate      float64          `json:"override_rate"`
	MeanOverrideDelta float64          `json:"mean_override_delta"`
	MeanAbsDelta      float64          `json:"mean_abs_delta"`
	Evaluators        []EvaluatorStats `json:"evaluators"`
	FrequentMistakes  []Count          `json:"frequent_mistakes"`
	FrequentCriteria  []Count          `json:"frequent_criteria"`
	AmbiguousCriteria []Count          `json:"ambiguous_criteria"`
	CommonReasons     []Count          `json:"common_reasons"`
	Patterns          []string         `json:"patterns"`
}

type evaluatorAcc struct {
	stats       EvaluatorStats
	scores      []float64
	deviations  []float64
	confidences []float64
}

// AnalyzePatterns folds the history of one question. Rounds and entries may span many submissions.
func AnalyzePatterns(q domain.Question, rounds []domain.EvaluationRound, entries []domain.AuditEntry) PatternReport {
	report := PatternReport{QuestionID: q.ID, MaxScore: q.MaxScore}

	evaluators := make(map[string]*evaluatorAcc)
	acc := func(id string) *evaluatorAcc {
		a, ok := evaluators[id]
		if !ok {
			a = &evaluatorAcc{stats: EvaluatorStats{EvaluatorID: id}}
			evaluators[id] = a
		}
		return a
	}
	mistakes := make(map[string]int)
	criteria := make(map[string]int)
	ambiguous := make(map[string]int)

	for _, r := range rounds {
		report.Rounds++
		for _, f := range r.Failures {
			acc(f.EvaluatorID).stats.Failures++
		}
		if r.Failed() {
			report.FailedRounds++
			continue
		}

		res := r.Result
		if res.ShouldEscalate {
			report.EscalatedRounds++
		}
		for _, id := range res.ExcludedOutliers {
			acc(id).stats.Outliers++
		}
		for _, e := range res.Evaluations {
			a := acc(e.EvaluatorID)
			a.stats.Evaluations++
			score := e.NormalizedScore(res.MaxScore)
			a.scores = append(a.scores, score)
			a.deviations = append(a.deviations, score-res.ConsensusScore)
			a.confidences = append(a.confidences, e.Confidence)
			for _, id := range e.MistakesFound {
				mistakes[id]++
			}
			for _, id := range e.CriteriaMet {
				criteria[id]++
			}
			for _, id := range e.AmbiguousCriteria {
				ambiguous[id]++
			}
		}
	}
	if report.Rounds > 0 {
		report.EscalationRate = domain.RoundScore(float64(report.EscalatedRounds)/float64(report.Rounds))
	}

	report.Overrides, report.Grades = overrideDeltas(entries)
	overridden := make(map[uuid.UUID]bool)
	reasons := make(map[string]int)
	var deltas, absDeltas []float64
	for _, o := range report.Overrides {
		overridden[o.SubmissionID] = true
		deltas = append(deltas, o.Delta)
		absDeltas = append(absDeltas, math.Abs(o.Delta))
		reasons[strings.ToLower(strings.TrimSpace(o.Reason))]++
	}
	if report.Grades > 0 {
		report.OverrideRate = domain.RoundScore(float64(len(overridden))/float64(report.Grades))
	}
	report.MeanOverrideDelta = domain.RoundScore(utils.Mean(deltas))
	report.MeanAbsDelta = domain.RoundScore(utils.Mean(absDeltas))

	for _, a := range evaluators {
		a.stats.MeanScore = domain.RoundScore(utils.Mean(a.scores))
		a.stats.MeanDeviation = domain.RoundScore(utils.Mean(a.deviations))
		a.stats.MeanConfidence = domain.RoundScore(utils.Mean(a.confidences))
		report.Evaluators = append(report.Evaluators, a.stats)
	}
	sort.Slice(report.Evaluators, func(i, j int) bool {
		return report.Evaluators[i].EvaluatorID < report.Evaluators[j].EvaluatorID
	})

	report.FrequentMistakes = top(mistakes)
	report.FrequentCriteria = top(criteria)
	report.AmbiguousCriteria = top(ambiguous)
	report.CommonReasons = top(reasons)
	report.Patterns = patterns(q, report)
	return report
}

// overrideDeltas walks each grade's log in order and pairs every override with the AI score it replaced.
func overrideDeltas(entries []domain.AuditEntry) ([]OverrideDelta, int) {
	byGrade := make(map[domain.GradeKey][]domain.AuditEntry)
	var keys []domain.GradeKey
	for _, e := range entries {
		if _, ok := byGrade[e.Key()]; !ok {
			keys = append(keys, e.Key())
		}
		byGrade[e.Key()] = append(byGrade[e.Key()], e)
	}

	var out []OverrideDelta
	for _, key := range keys {
		history := byGrade[key]
		sort.Slice(history, func(i, j int) bool { return history[i].Seq < history[j].Seq })

		var ai *float64
		for _, e := range history {
			switch e.Event {
			case domain.EventRoundCompleted:
				ai = e.Score
			case domain.EventOverride:
				if ai == nil || e.Score == nil {
					continue
				}
				out = append(out, OverrideDelta{
					SubmissionID:  key.SubmissionID,
					AIScore:       *ai,
					OverrideScore: *e.Score,
					Delta:         domain.RoundScore(*e.Score-*ai),
					Reason:        e.Reason,
				})
			}
		}
	}
	return out, len(keys)
}

func top(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for id, n := range counts {
		if id == "" {
			continue
		}
		out = append(out, Count{ID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > topN {
		out = out[:topN]
	}
	return out
}

func patterns(q domain.Question, r PatternReport) []string {
	var out []string
	threshold := biasThresholdRatio * q.MaxScore

	if len(r.Overrides) > 0 {
		switch {
		case r.MeanOverrideDelta >= threshold:
			out = append(out, fmt.Sprintf("AI under-grades: reviewers raise scores by %.2f on average", r.MeanOverrideDelta))
		case r.MeanOverrideDelta <= -threshold:
			out = append(out, fmt.Sprintf("AI over-grades: reviewers lower scores by %.2f on average", -r.MeanOverrideDelta))
		}
	}
	for _, e := range r.Evaluators {
		if e.Evaluations > 0 && math.Abs(e.MeanDeviation) >= threshold {
			out = append(out, fmt.Sprintf("%s deviates from consensus by %+.2f on average", e.EvaluatorID, e.MeanDeviation))
		}
		if e.Outliers > 0 && e.Outliers*2 >= e.Evaluations {
			out = append(out, fmt.Sprintf("%s is excluded as outlier in %d of %d evaluations", e.EvaluatorID, e.Outliers, e.Evaluations))
		}
	}
	for _, a := range r.AmbiguousCriteria {
		out = append(out, fmt.Sprintf("criterion %s is often flagged ambiguous (%d times)", a.ID, a.Count))
	}
	if r.Rounds > 0 && r.EscalationRate > 0.5 {
		out = append(out, fmt.Sprintf("%.0f%% of rounds escalate to review; consider tightening the rubric", r.EscalationRate*100))
	}
	return out
}

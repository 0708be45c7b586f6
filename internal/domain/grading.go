package domain

import (
	"time"

	"github.com/google/uuid"
)

// GradingResult is one evaluator's opinion. It is never mutated after creation.
type GradingResult struct {
	EvaluatorID       string    `json:"ai_evaluator_id"`
	Score             float64   `json:"score"`
	MaxScore          float64   `json:"max_score"`
	Confidence        float64   `json:"confidence"`
	Reasoning         string    `json:"reasoning"`
	CriteriaMet       []string  `json:"criteria_met"`
	MistakesFound     []string  `json:"mistakes_found"`
	AmbiguousCriteria []string  `json:"ambiguous_criteria,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// NormalizedScore rescales the score onto maxScore.
func (r GradingResult) NormalizedScore(maxScore float64) float64 {
	if r.MaxScore <= 0 || r.MaxScore == maxScore {
		return r.Score
	}
	return r.Score / r.MaxScore * maxScore
}

type FailureKind string

const (
	FailureUnavailable FailureKind = "unavailable"
	FailureTimeout     FailureKind = "timeout"
	FailureMalformed   FailureKind = "malformed_response"
)

type EvaluatorFailure struct {
	EvaluatorID string      `json:"evaluator_id"`
	Kind        FailureKind `json:"kind"`
	Attempts    int         `json:"attempts"`
	Message     string      `json:"message"`
}

// MultiEvalResult summarizes one grading round.
type MultiEvalResult struct {
	Evaluations       []GradingResult    `json:"evaluations"`
	Failures          []EvaluatorFailure `json:"failures,omitempty"`
	MaxScore          float64            `json:"max_score"`
	MeanScore         float64            `json:"mean_score"`
	Variance          float64            `json:"variance"`
	ConsensusScore    float64            `json:"consensus_score"`
	Confidence        float64            `json:"confidence"`
	ShouldEscalate    bool               `json:"should_escalate"`
	EscalationReasons []string           `json:"escalation_reasons,omitempty"`
	ExcludedOutliers  []string           `json:"excluded_outliers,omitempty"`
	Reasoning         string             `json:"reasoning"`
}

// EvaluationRound is one grading attempt for a (submission, question) pair.
// A failed round has no Result and carries the shortfall in Reasoning.
type EvaluationRound struct {
	ID           uuid.UUID          `json:"id"`
	SubmissionID uuid.UUID          `json:"submission_id"`
	QuestionID   uuid.UUID          `json:"question_id"`
	Result       *MultiEvalResult   `json:"result,omitempty"`
	Failures     []EvaluatorFailure `json:"failures,omitempty"`
	Reasoning    string             `json:"reasoning,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

func (r EvaluationRound) Failed() bool {
	return r.Result == nil
}

func (r EvaluationRound) Key() GradeKey {
	return GradeKey{SubmissionID: r.SubmissionID, QuestionID: r.QuestionID}
}

// Package evaluator defines the grading capability and its implementations.
// An Evaluator holds no shared mutable state and may be called concurrently.
package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
)

var (
	ErrUnavailable       = errors.New("evaluator unavailable")
	ErrTimeout           = errors.New("evaluator timeout")
	ErrMalformedResponse = errors.New("evaluator malformed response")
)

type Request struct {
	Answer       domain.AnswerSegment
	Rubric       domain.Rubric
	MaxScore     float64
	AnswerType   domain.AnswerType
	QuestionText string
}

type Evaluator interface {
	ID() string
	Evaluate(ctx context.Context, req Request) (domain.GradingResult, error)
}

// Error tags a failure with the evaluator that produced it and one of the Err* kinds.
type Error struct {
	EvaluatorID string
	Kind        error
	Err         error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.EvaluatorID, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.EvaluatorID, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func Unavailable(id string, err error) error {
	return &Error{EvaluatorID: id, Kind: ErrUnavailable, Err: err}
}

func Timeout(id string, err error) error {
	return &Error{EvaluatorID: id, Kind: ErrTimeout, Err: err}
}

func Malformed(id string, err error) error {
	return &Error{EvaluatorID: id, Kind: ErrMalformedResponse, Err: err}
}

// Classify maps any evaluator error onto a failure kind.
// Context deadlines count as timeouts; anything unrecognised counts as unavailable.
func Classify(err error) domain.FailureKind {
	switch {
	case errors.Is(err, ErrMalformedResponse):
		return domain.FailureMalformed
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return domain.FailureTimeout
	default:
		return domain.FailureUnavailable
	}
}

// Retryable reports whether another attempt could succeed.
func Retryable(err error) bool {
	return Classify(err) != domain.FailureMalformed && !errors.Is(err, context.Canceled)
}

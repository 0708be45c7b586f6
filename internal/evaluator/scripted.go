package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/google/uuid"
)

// Script is a canned opinion, or a canned failure when Fail is set.
type Script struct {
	Score             float64            `yaml:"score"`
	MaxScore          float64            `yaml:"max_score"`
	Confidence        float64            `yaml:"confidence"`
	Reasoning         string             `yaml:"reasoning"`
	CriteriaMet       []string           `yaml:"criteria_met"`
	MistakesFound     []string           `yaml:"mistakes_found"`
	AmbiguousCriteria []string           `yaml:"ambiguous_criteria"`
	Fail              domain.FailureKind `yaml:"fail"`
	Delay             time.Duration      `yaml:"delay"`
}

// Scripted replays fixed opinions per question. It is used for offline replays and tests.
type Scripted struct {
	id      string
	scripts map[uuid.UUID]Script
	now     func() time.Time
}

func NewScripted(id string, scripts map[uuid.UUID]Script) *Scripted {
	return &Scripted{id: id, scripts: scripts, now: time.Now}
}

func (s *Scripted) ID() string {
	return s.id
}

func (s *Scripted) Evaluate(ctx context.Context, req Request) (domain.GradingResult, error) {
	script, ok := s.scripts[req.Answer.QuestionID]
	if !ok {
		return domain.GradingResult{}, Unavailable(s.id, fmt.Errorf("no script for question %s", req.Answer.QuestionID))
	}

	if script.Delay > 0 {
		timer := time.NewTimer(script.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return domain.GradingResult{}, Timeout(s.id, ctx.Err())
			}
			return domain.GradingResult{}, Unavailable(s.id, ctx.Err())
		case <-timer.C:
		}
	}

	switch script.Fail {
	case "":
	case domain.FailureTimeout:
		return domain.GradingResult{}, Timeout(s.id, nil)
	case domain.FailureMalformed:
		return domain.GradingResult{}, Malformed(s.id, errors.New("scripted malformed response"))
	default:
		return domain.GradingResult{}, Unavailable(s.id, nil)
	}

	maxScore := script.MaxScore
	if maxScore == 0 {
		maxScore = req.MaxScore
	}

	return domain.GradingResult{
		EvaluatorID:       s.id,
		Score:             script.Score,
		MaxScore:          maxScore,
		Confidence:        script.Confidence,
		Reasoning:         script.Reasoning,
		CriteriaMet:       script.CriteriaMet,
		MistakesFound:     script.MistakesFound,
		AmbiguousCriteria: script.AmbiguousCriteria,
		CreatedAt:         s.now(),
	}, nil
}

var _ Evaluator = (*Scripted)(nil)

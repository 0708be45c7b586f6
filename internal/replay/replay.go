// Package replay runs a fixture through the full grading pipeline offline.
package replay

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/analytics"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/evaluator"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay/fixture"
	"github.com/DjordjeVuckovic/grade-consensus/internal/session"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/in_mem"
	"github.com/google/uuid"
)

type GradeRow struct {
	Submission        string            `json:"submission"`
	Question          string            `json:"question"`
	Grade             domain.FinalGrade `json:"grade"`
	Rounds            int               `json:"rounds"`
	ExcludedOutliers  []string          `json:"excluded_outliers,omitempty"`
	EscalationReasons []string          `json:"escalation_reasons,omitempty"`
	AuditEntries      int               `json:"audit_entries"`
	ChainValid        bool              `json:"chain_valid"`
}

type ReviewOutcome struct {
	fixture.Review
	Status domain.GradeStatus `json:"status,omitempty"`
	Error  string             `json:"error,omitempty"`
}

type Result struct {
	Fixture     string                    `json:"fixture"`
	Policy      session.Policy            `json:"policy"`
	StartedAt   time.Time                 `json:"started_at"`
	Duration    time.Duration             `json:"duration"`
	Grades      []GradeRow                `json:"grades"`
	Submissions []domain.GradeSummary     `json:"submissions"`
	Reviews     []ReviewOutcome           `json:"reviews"`
	Patterns    []analytics.PatternReport `json:"patterns"`

	Rounds  []domain.EvaluationRound `json:"-"`
	Entries []domain.AuditEntry      `json:"-"`
}

type Option func(*runner)

func WithHistorySink(sink storage.HistorySink) Option {
	return func(r *runner) {
		r.coordOpts = append(r.coordOpts, session.WithHistorySink(sink))
	}
}

type runner struct {
	coordOpts []session.Option
}

// Run grades every submission of f, applies its reviews in order and collects the outcome.
// Review errors are reported per review; grading errors abort the run.
func Run(ctx context.Context, f *fixture.Fixture, opts ...Option) (*Result, error) {
	var r runner
	for _, opt := range opts {
		opt(&r)
	}

	store := in_mem.NewInMemStorer()
	coord, err := session.NewCoordinator(store, evaluators(f), f.Policy, r.coordOpts...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := coord.Shutdown(context.Background()); err != nil {
			slog.Warn("Replay coordinator shutdown", "error", err)
		}
	}()

	result := &Result{Fixture: f.Name, Policy: f.Policy, StartedAt: time.Now().UTC()}

	for _, q := range f.Questions {
		err := coord.PutQuestion(ctx, domain.Question{
			ID:         fixture.QuestionID(q.Name),
			Text:       q.Text,
			MaxScore:   q.MaxScore,
			AnswerType: q.AnswerType,
			Rubric:     q.Rubric,
		})
		if err != nil {
			return nil, fmt.Errorf("question %q: %w", q.Name, err)
		}
	}

	for _, s := range f.Submissions {
		sid := fixture.SubmissionID(s.Name)
		names := answeredQuestions(s)
		answers := make([]domain.AnswerSegment, 0, len(names))
		keys := make([]domain.GradeKey, 0, len(names))
		for _, qName := range names {
			qid := fixture.QuestionID(qName)
			answers = append(answers, domain.AnswerSegment{QuestionID: qid, Text: s.Answers[qName]})
			keys = append(keys, domain.GradeKey{SubmissionID: sid, QuestionID: qid})
		}
		if len(answers) == 0 {
			continue
		}
		if err := coord.PutAnswers(ctx, sid, answers); err != nil {
			return nil, fmt.Errorf("submission %q: %w", s.Name, err)
		}
		if _, err := coord.GradeSubmission(ctx, keys); err != nil {
			return nil, fmt.Errorf("grade submission %q: %w", s.Name, err)
		}
	}

	for _, rv := range f.Reviews {
		result.Reviews = append(result.Reviews, applyReview(ctx, coord, rv))
	}

	if err := collect(ctx, coord, store, f, result); err != nil {
		return nil, err
	}
	result.Duration = time.Since(result.StartedAt)
	return result, nil
}

func applyReview(ctx context.Context, coord *session.Coordinator, rv fixture.Review) ReviewOutcome {
	key := domain.GradeKey{
		SubmissionID: fixture.SubmissionID(rv.Submission),
		QuestionID:   fixture.QuestionID(rv.Question),
	}

	var (
		g   domain.FinalGrade
		err error
	)
	switch rv.Action {
	case fixture.ActionOverride:
		g, err = coord.Override(ctx, key, *rv.Score, rv.Reason)
	case fixture.ActionConfirm:
		g, err = coord.Confirm(ctx, key, rv.Reason)
	case fixture.ActionFinalize:
		g, err = coord.Finalize(ctx, key, rv.Reason)
	case fixture.ActionReopen:
		g, err = coord.Reopen(ctx, key, rv.Reason)
	case fixture.ActionRegrade:
		g, err = coord.Regrade(ctx, key)
	}

	out := ReviewOutcome{Review: rv}
	if err != nil {
		slog.Info("Review rejected", "submission", rv.Submission, "question", rv.Question, "action", rv.Action, "error", err)
		out.Error = err.Error()
		return out
	}
	out.Status = g.Status
	return out
}

func collect(ctx context.Context, coord *session.Coordinator, store storage.Store, f *fixture.Fixture, result *Result) error {
	questionNames := make(map[uuid.UUID]string, len(f.Questions))
	for _, q := range f.Questions {
		questionNames[fixture.QuestionID(q.Name)] = q.Name
	}

	for _, s := range f.Submissions {
		if len(s.Answers) == 0 {
			continue
		}
		summary, err := coord.GetGrades(ctx, fixture.SubmissionID(s.Name))
		if err != nil {
			return fmt.Errorf("grades of %q: %w", s.Name, err)
		}
		result.Submissions = append(result.Submissions, summary)

		for _, g := range summary.Grades {
			row := GradeRow{Submission: s.Name, Question: questionNames[g.QuestionID], Grade: g}

			rounds, err := coord.Rounds(ctx, g.Key())
			if err != nil {
				return err
			}
			row.Rounds = len(rounds)
			if n := len(rounds); n > 0 && rounds[n-1].Result != nil {
				row.ExcludedOutliers = rounds[n-1].Result.ExcludedOutliers
				row.EscalationReasons = rounds[n-1].Result.EscalationReasons
			}

			trail, err := coord.Audit(ctx, g.Key())
			if err != nil {
				return err
			}
			row.AuditEntries = len(trail.Entries)
			row.ChainValid = trail.ChainValid
			result.Grades = append(result.Grades, row)
		}
	}

	for _, q := range f.Questions {
		qid := fixture.QuestionID(q.Name)
		report, err := coord.AnalyzePatterns(ctx, qid)
		if err != nil {
			return fmt.Errorf("patterns of %q: %w", q.Name, err)
		}
		result.Patterns = append(result.Patterns, report)

		rounds, err := store.ListRoundsByQuestion(ctx, qid)
		if err != nil {
			return err
		}
		entries, err := store.ListEntriesByQuestion(ctx, qid)
		if err != nil {
			return err
		}
		result.Rounds = append(result.Rounds, rounds...)
		result.Entries = append(result.Entries, entries...)
	}
	return nil
}

func answeredQuestions(s fixture.SubmissionFixture) []string {
	names := make([]string, 0, len(s.Answers))
	for name := range s.Answers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// evaluators builds one evaluator per fixture evaluator, routing each request to the submission's scripts.
func evaluators(f *fixture.Fixture) []evaluator.Evaluator {
	set := make([]evaluator.Evaluator, 0, len(f.Evaluators))
	for _, ef := range f.Evaluators {
		routed := &submissionRouter{id: ef.ID, bySubmission: make(map[uuid.UUID]*evaluator.Scripted)}
		for sName, byQuestion := range ef.Scripts {
			scripts := make(map[uuid.UUID]evaluator.Script, len(byQuestion))
			for qName, script := range byQuestion {
				scripts[fixture.QuestionID(qName)] = script
			}
			routed.bySubmission[fixture.SubmissionID(sName)] = evaluator.NewScripted(ef.ID, scripts)
		}
		set = append(set, routed)
	}
	return set
}

type submissionRouter struct {
	id           string
	bySubmission map[uuid.UUID]*evaluator.Scripted
}

func (s *submissionRouter) ID() string {
	return s.id
}

func (s *submissionRouter) Evaluate(ctx context.Context, req evaluator.Request) (domain.GradingResult, error) {
	scripted, ok := s.bySubmission[req.Answer.SubmissionID]
	if !ok {
		return domain.GradingResult{}, evaluator.Unavailable(s.id, fmt.Errorf("no scripts for submission %s", req.Answer.SubmissionID))
	}
	return scripted.Evaluate(ctx, req)
}

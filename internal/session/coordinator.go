// Package session is the entry point for grading a submission.
// It drives the orchestrator per answered question and records outcomes through the reconciler.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/analytics"
	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/consensus"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/evaluator"
	"github.com/DjordjeVuckovic/grade-consensus/internal/orchestrator"
	"github.com/DjordjeVuckovic/grade-consensus/internal/reconciler"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type AcceptStatus string

const (
	Accepted     AcceptStatus = "accepted"
	SkippedFinal AcceptStatus = "skipped_final"
)

type QuestionAcceptance struct {
	QuestionID uuid.UUID    `json:"question_id"`
	Status     AcceptStatus `json:"status"`
}

// AuditTrail is the log of one grade plus the result of verifying its hash chain.
type AuditTrail struct {
	Entries    []domain.AuditEntry `json:"entries"`
	ChainValid bool                `json:"chain_valid"`
	ChainError string              `json:"chain_error,omitempty"`
}

type Coordinator struct {
	store      storage.Store
	orch       *orchestrator.Orchestrator
	reconciler *reconciler.Reconciler
	sink       storage.HistorySink
	policy     Policy
	now        func() time.Time

	mu      sync.Mutex
	running map[uuid.UUID]context.CancelFunc
	wg      sync.WaitGroup
	baseCtx context.Context
	stop    context.CancelFunc
}

type Option func(*Coordinator)

func WithHistorySink(sink storage.HistorySink) Option {
	return func(c *Coordinator) {
		c.sink = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

func NewCoordinator(store storage.Store, evaluators []evaluator.Evaluator, policy Policy, opts ...Option) (*Coordinator, error) {
	policy = policy.withDefaults()
	orch, err := orchestrator.New(evaluators, policy.Orchestrator)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}
	policy.Consensus.Quorum = orch.Quorum()

	baseCtx, stop := context.WithCancel(context.Background())
	c := &Coordinator{
		store:   store,
		orch:    orch,
		policy:  policy,
		now:     time.Now,
		running: make(map[uuid.UUID]context.CancelFunc),
		baseCtx: baseCtx,
		stop:    stop,
	}
	for _, opt := range opts {
		opt(c)
	}

	recOpts := []reconciler.Option{reconciler.WithClock(c.now)}
	if c.sink != nil {
		recOpts = append(recOpts, reconciler.WithHistorySink(c.sink))
	}
	c.reconciler = reconciler.New(store, recOpts...)
	return c, nil
}

func (c *Coordinator) PutQuestion(ctx context.Context, q domain.Question) error {
	if q.ID == uuid.Nil {
		return apperr.NewValidation("question id is required")
	}
	if q.MaxScore <= 0 {
		return apperr.NewValidation("max_score must be positive")
	}
	if q.AnswerType == "" {
		q.AnswerType = domain.AnswerTypeShortAnswer
	}
	if !q.AnswerType.Valid() {
		return apperr.NewValidation(fmt.Sprintf("unknown answer type %q", q.AnswerType))
	}
	if err := q.Rubric.Validate(q.MaxScore); err != nil {
		return err
	}
	q.Rubric.QuestionID = q.ID
	return c.store.SaveQuestion(ctx, q)
}

func (c *Coordinator) Question(ctx context.Context, id uuid.UUID) (domain.Question, error) {
	return c.store.GetQuestion(ctx, id)
}

func (c *Coordinator) PutAnswers(ctx context.Context, submissionID uuid.UUID, answers []domain.AnswerSegment) error {
	if len(answers) == 0 {
		return apperr.NewValidation("at least one answer is required")
	}
	for i := range answers {
		answers[i].SubmissionID = submissionID
		if _, err := c.store.GetQuestion(ctx, answers[i].QuestionID); err != nil {
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.NewValidationWrap(fmt.Sprintf("answer %d references an unknown question", i), err)
			}
			return err
		}
	}
	return c.store.SaveAnswers(ctx, answers)
}

// TriggerGrading accepts a submission for grading and returns immediately.
// Grades that are already final are skipped. Results are read back with GetGrades.
func (c *Coordinator) TriggerGrading(ctx context.Context, submissionID uuid.UUID) ([]QuestionAcceptance, error) {
	answers, err := c.store.ListAnswers(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if len(answers) == 0 {
		return nil, fmt.Errorf("no answers for submission %s: %w", submissionID, apperr.ErrNotFound)
	}

	accepted := make([]QuestionAcceptance, 0, len(answers))
	var toGrade []domain.GradeKey
	for _, a := range answers {
		key := domain.GradeKey{SubmissionID: submissionID, QuestionID: a.QuestionID}
		g, err := c.store.GetGrade(ctx, key)
		switch {
		case err == nil && g.IsFinal():
			accepted = append(accepted, QuestionAcceptance{QuestionID: a.QuestionID, Status: SkippedFinal})
			continue
		case err != nil && !errors.Is(err, apperr.ErrNotFound):
			return nil, err
		}
		accepted = append(accepted, QuestionAcceptance{QuestionID: a.QuestionID, Status: Accepted})
		toGrade = append(toGrade, key)
	}
	if len(toGrade) == 0 {
		return accepted, nil
	}

	c.mu.Lock()
	if _, busy := c.running[submissionID]; busy {
		c.mu.Unlock()
		return nil, fmt.Errorf("submission %s: %w", submissionID, apperr.ErrGradingInProgress)
	}
	jobCtx, cancel := context.WithCancel(c.baseCtx)
	c.running[submissionID] = cancel
	c.wg.Add(1)
	c.mu.Unlock()

	go func() {
		defer c.wg.Done()
		defer func() {
			c.mu.Lock()
			delete(c.running, submissionID)
			c.mu.Unlock()
			cancel()
		}()

		start := c.now()
		if _, err := c.GradeSubmission(jobCtx, toGrade); err != nil {
			slog.Error("Grading submission failed", "submission_id", submissionID, "error", err)
			return
		}
		slog.Info("Grading submission completed",
			"submission_id", submissionID,
			"questions", len(toGrade),
			"duration", time.Since(start))
	}()

	return accepted, nil
}

// CancelGrading stops an in-flight grading job. Rounds already recorded are kept.
func (c *Coordinator) CancelGrading(submissionID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	cancel, ok := c.running[submissionID]
	if ok {
		cancel()
	}
	return ok
}

// Shutdown cancels every running job and waits for them to return.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	c.stop()
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GradeSubmission grades the given questions concurrently and waits for all of them.
// Each question is graded and recorded on its own; one failing question does not cancel the others.
func (c *Coordinator) GradeSubmission(ctx context.Context, keys []domain.GradeKey) ([]domain.FinalGrade, error) {
	grades := make([]domain.FinalGrade, len(keys))
	var g errgroup.Group
	g.SetLimit(c.policy.MaxParallelQuestions)

	var mu sync.Mutex
	var errs []error
	for i, key := range keys {
		g.Go(func() error {
			grade, err := c.GradeQuestion(ctx, key)
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("question %s: %w", key.QuestionID, err))
				mu.Unlock()
				return nil
			}
			grades[i] = grade
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return grades, err
	}
	return grades, errors.Join(errs...)
}

// GradeQuestion runs one grading round and records it. A round cut short by ctx is not recorded.
func (c *Coordinator) GradeQuestion(ctx context.Context, key domain.GradeKey) (domain.FinalGrade, error) {
	q, err := c.store.GetQuestion(ctx, key.QuestionID)
	if err != nil {
		return domain.FinalGrade{}, err
	}
	answer, err := c.answer(ctx, key)
	if err != nil {
		return domain.FinalGrade{}, err
	}

	current, err := c.store.GetGrade(ctx, key)
	if err == nil && current.IsFinal() {
		return current, fmt.Errorf("grade %s: %w", key, apperr.ErrGradeFinalized)
	}
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return domain.FinalGrade{}, err
	}

	req := evaluator.Request{
		Answer:       answer,
		Rubric:       q.Rubric,
		MaxScore:     q.MaxScore,
		AnswerType:   q.AnswerType,
		QuestionText: q.Text,
	}
	outcome, err := c.orch.Run(ctx, req)
	if ctxErr := ctx.Err(); ctxErr != nil {
		slog.Warn("Grading round cancelled", "submission_id", key.SubmissionID, "question_id", key.QuestionID)
		return domain.FinalGrade{}, ctxErr
	}

	round := domain.EvaluationRound{
		ID:           uuid.New(),
		SubmissionID: key.SubmissionID,
		QuestionID:   key.QuestionID,
		Failures:     outcome.Failures,
		CreatedAt:    c.now().UTC().Truncate(time.Microsecond),
	}
	switch {
	case errors.Is(err, orchestrator.ErrInsufficientEvaluations):
		round.Reasoning = outcome.Shortfall()
		slog.Warn("Grading round below quorum", "submission_id", key.SubmissionID, "question_id", key.QuestionID,
			"succeeded", len(outcome.Results), "quorum", outcome.Quorum)
	case err != nil:
		return domain.FinalGrade{}, err
	default:
		res := consensus.Aggregate(outcome.Results, outcome.Failures, q.MaxScore, c.policy.Consensus)
		round.Result = &res
		round.Reasoning = res.Reasoning
		if res.ShouldEscalate {
			slog.Info("Grading round escalated", "submission_id", key.SubmissionID, "question_id", key.QuestionID,
				"reasons", res.EscalationReasons)
		}
	}

	if err := c.store.SaveRound(ctx, round); err != nil {
		return domain.FinalGrade{}, fmt.Errorf("failed to save round: %w", err)
	}
	if c.sink != nil {
		if err := c.sink.IndexRound(ctx, round); err != nil {
			slog.Warn("Failed to index round", "round_id", round.ID, "error", err)
		}
	}

	return c.reconciler.ApplyRound(ctx, round, q.MaxScore)
}

func (c *Coordinator) answer(ctx context.Context, key domain.GradeKey) (domain.AnswerSegment, error) {
	answers, err := c.store.ListAnswers(ctx, key.SubmissionID)
	if err != nil {
		return domain.AnswerSegment{}, err
	}
	for _, a := range answers {
		if a.QuestionID == key.QuestionID {
			return a, nil
		}
	}
	return domain.AnswerSegment{}, fmt.Errorf("answer %s: %w", key, apperr.ErrNotFound)
}

// GetGrades returns one grade per answered question. Questions never graded show up as pending.
func (c *Coordinator) GetGrades(ctx context.Context, submissionID uuid.UUID) (domain.GradeSummary, error) {
	answers, err := c.store.ListAnswers(ctx, submissionID)
	if err != nil {
		return domain.GradeSummary{}, err
	}
	stored, err := c.store.ListGrades(ctx, submissionID)
	if err != nil {
		return domain.GradeSummary{}, err
	}
	if len(answers) == 0 && len(stored) == 0 {
		return domain.GradeSummary{}, fmt.Errorf("submission %s: %w", submissionID, apperr.ErrNotFound)
	}

	byQuestion := make(map[uuid.UUID]domain.FinalGrade, len(stored))
	for _, g := range stored {
		byQuestion[g.QuestionID] = g
	}

	grades := make([]domain.FinalGrade, 0, len(answers))
	for _, a := range answers {
		if g, ok := byQuestion[a.QuestionID]; ok {
			grades = append(grades, g)
			delete(byQuestion, a.QuestionID)
			continue
		}
		q, err := c.store.GetQuestion(ctx, a.QuestionID)
		if err != nil {
			return domain.GradeSummary{}, err
		}
		grades = append(grades, domain.NewPendingGrade(domain.GradeKey{SubmissionID: submissionID, QuestionID: a.QuestionID}, q.MaxScore))
	}
	for _, g := range stored {
		if _, orphan := byQuestion[g.QuestionID]; orphan {
			grades = append(grades, g)
		}
	}
	return domain.Summarize(submissionID, grades), nil
}

func (c *Coordinator) Override(ctx context.Context, key domain.GradeKey, score float64, reason string) (domain.FinalGrade, error) {
	q, err := c.store.GetQuestion(ctx, key.QuestionID)
	if err != nil {
		return domain.FinalGrade{}, err
	}
	return c.reconciler.Override(ctx, key, q.MaxScore, score, reason)
}

func (c *Coordinator) Confirm(ctx context.Context, key domain.GradeKey, reason string) (domain.FinalGrade, error) {
	q, err := c.store.GetQuestion(ctx, key.QuestionID)
	if err != nil {
		return domain.FinalGrade{}, err
	}
	return c.reconciler.Confirm(ctx, key, q.MaxScore, reason)
}

func (c *Coordinator) Finalize(ctx context.Context, key domain.GradeKey, reason string) (domain.FinalGrade, error) {
	q, err := c.store.GetQuestion(ctx, key.QuestionID)
	if err != nil {
		return domain.FinalGrade{}, err
	}
	return c.reconciler.Finalize(ctx, key, q.MaxScore, reason)
}

func (c *Coordinator) Reopen(ctx context.Context, key domain.GradeKey, reason string) (domain.FinalGrade, error) {
	q, err := c.store.GetQuestion(ctx, key.QuestionID)
	if err != nil {
		return domain.FinalGrade{}, err
	}
	return c.reconciler.Reopen(ctx, key, q.MaxScore, reason)
}

// Regrade runs a fresh round for one question and waits for it.
func (c *Coordinator) Regrade(ctx context.Context, key domain.GradeKey) (domain.FinalGrade, error) {
	return c.GradeQuestion(ctx, key)
}

func (c *Coordinator) Audit(ctx context.Context, key domain.GradeKey) (AuditTrail, error) {
	entries, err := c.store.ListEntries(ctx, key)
	if err != nil {
		return AuditTrail{}, err
	}
	trail := AuditTrail{Entries: entries, ChainValid: true}
	if err := domain.VerifyChain(entries); err != nil {
		trail.ChainValid = false
		trail.ChainError = err.Error()
		slog.Error("Audit chain verification failed", "grade", key, "error", err)
	}
	return trail, nil
}

func (c *Coordinator) Rounds(ctx context.Context, key domain.GradeKey) ([]domain.EvaluationRound, error) {
	return c.store.ListRounds(ctx, key)
}

func (c *Coordinator) AnalyzePatterns(ctx context.Context, questionID uuid.UUID) (analytics.PatternReport, error) {
	q, err := c.store.GetQuestion(ctx, questionID)
	if err != nil {
		return analytics.PatternReport{}, err
	}
	rounds, err := c.store.ListRoundsByQuestion(ctx, questionID)
	if err != nil {
		return analytics.PatternReport{}, err
	}
	entries, err := c.store.ListEntriesByQuestion(ctx, questionID)
	if err != nil {
		return analytics.PatternReport{}, err
	}
	return analytics.AnalyzePatterns(q, rounds, entries), nil
}

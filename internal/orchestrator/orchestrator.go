package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/evaluator"
	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/semaphore"
)

var ErrInsufficientEvaluations = errors.New("insufficient evaluations")

// Outcome is what one round of evaluator calls produced.
// Results and Failures follow the configured evaluator order.
type Outcome struct {
	Results  []domain.GradingResult
	Failures []domain.EvaluatorFailure
	Total    int
	Quorum   int
}

func (o Outcome) QuorumMet() bool {
	return len(o.Results) >= o.Quorum
}

func (o Outcome) Shortfall() string {
	var b strings.Builder
	fmt.Fprintf(&b, "only %d of %d evaluators succeeded (quorum %d)", len(o.Results), o.Total, o.Quorum)
	for i, f := range o.Failures {
		if i == 0 {
			b.WriteString(": ")
		} else {
			b.WriteString("; ")
		}
		fmt.Fprintf(&b, "%s %s", f.EvaluatorID, f.Kind)
	}
	return b.String()
}

type Orchestrator struct {
	evaluators []evaluator.Evaluator
	cfg        Config
	quorum     int
	sem        *semaphore.Weighted
}

func New(evaluators []evaluator.Evaluator, cfg Config) (*Orchestrator, error) {
	if len(evaluators) == 0 {
		return nil, errors.New("at least one evaluator is required")
	}
	seen := make(map[string]bool, len(evaluators))
	for _, e := range evaluators {
		if seen[e.ID()] {
			return nil, fmt.Errorf("duplicate evaluator id %q", e.ID())
		}
		seen[e.ID()] = true
	}

	cfg = cfg.withDefaults()
	quorum := cfg.Quorum
	if quorum <= 0 {
		quorum = DefaultQuorum(len(evaluators))
	}
	if quorum > len(evaluators) {
		return nil, fmt.Errorf("quorum %d exceeds evaluator count %d", quorum, len(evaluators))
	}

	return &Orchestrator{
		evaluators: evaluators,
		cfg:        cfg,
		quorum:     quorum,
		sem:        semaphore.NewWeighted(cfg.MaxConcurrent),
	}, nil
}

func (o *Orchestrator) Quorum() int {
	return o.quorum
}

func (o *Orchestrator) Size() int {
	return len(o.evaluators)
}

type callResult struct {
	index    int
	result   domain.GradingResult
	attempts int
	err      error
}

// Run calls every evaluator concurrently and waits for all of them.
// Evaluator failures are returned as data on the Outcome. The returned error is
// ErrInsufficientEvaluations when quorum was missed, or the parent context error on cancellation.
func (o *Orchestrator) Run(ctx context.Context, req evaluator.Request) (Outcome, error) {
	groupCtx, cancelGroup := context.WithCancel(ctx)
	defer cancelGroup()

	results := make(chan callResult, len(o.evaluators))
	for i, e := range o.evaluators {
		go func(i int, e evaluator.Evaluator) {
			res, attempts, err := o.call(groupCtx, e, req)
			results <- callResult{index: i, result: res, attempts: attempts, err: err}
		}(i, e)
	}

	collected := make([]*callResult, len(o.evaluators))
	var graceC <-chan time.Time
	graceExpired := false
	successes := 0

	for received := 0; received < len(o.evaluators); {
		select {
		case r := <-results:
			received++
			collected[r.index] = &r
			if r.err == nil {
				successes++
			}
			if successes == o.quorum && o.cfg.StragglerGrace > 0 && received < len(o.evaluators) {
				timer := time.NewTimer(o.cfg.StragglerGrace)
				defer timer.Stop()
				graceC = timer.C
			}
		case <-graceC:
			graceExpired = true
			graceC = nil
			cancelGroup()
		}
	}

	out := Outcome{Total: len(o.evaluators), Quorum: o.quorum}
	for _, r := range collected {
		id := o.evaluators[r.index].ID()
		if r.err == nil {
			out.Results = append(out.Results, r.result)
			continue
		}

		kind := evaluator.Classify(r.err)
		if graceExpired && ctx.Err() == nil && errors.Is(r.err, context.Canceled) {
			kind = domain.FailureTimeout
		}
		out.Failures = append(out.Failures, domain.EvaluatorFailure{
			EvaluatorID: id,
			Kind:        kind,
			Attempts:    r.attempts,
			Message:     r.err.Error(),
		})
		slog.Warn("Evaluator failed",
			"evaluator", id,
			"kind", kind,
			"attempts", r.attempts,
			"submission_id", req.Answer.SubmissionID,
			"question_id", req.Answer.QuestionID,
			"error", r.err)
	}

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if !out.QuorumMet() {
		return out, fmt.Errorf("%w: %s", ErrInsufficientEvaluations, out.Shortfall())
	}
	return out, nil
}

func (o *Orchestrator) call(ctx context.Context, e evaluator.Evaluator, req evaluator.Request) (domain.GradingResult, int, error) {
	attempts := 0
	// The global permit covers one external call; backoff sleeps run without it.
	op := func() (domain.GradingResult, error) {
		if err := o.sem.Acquire(ctx, 1); err != nil {
			return domain.GradingResult{}, backoff.Permanent(evaluator.Unavailable(e.ID(), err))
		}
		defer o.sem.Release(1)
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, o.cfg.Timeout)
		defer cancel()

		res, err := e.Evaluate(attemptCtx, req)
		if err == nil {
			err = evaluator.Validate(res, req.Rubric)
		}
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, evaluator.ErrTimeout) {
				err = evaluator.Timeout(e.ID(), err)
			}
			if !evaluator.Retryable(err) {
				return domain.GradingResult{}, backoff.Permanent(err)
			}
			return domain.GradingResult{}, err
		}
		return res, nil
	}

	notify := func(err error, next time.Duration) {
		slog.Debug("Retrying evaluator", "evaluator", e.ID(), "attempt", attempts, "next", next, "error", err)
	}

	res, err := backoff.RetryNotifyWithData(op, o.newBackOff(ctx), notify)
	if err != nil {
		var evalErr *evaluator.Error
		if !errors.As(err, &evalErr) {
			err = evaluator.Unavailable(e.ID(), err)
		}
		return domain.GradingResult{}, attempts, err
	}
	return res, attempts, nil
}

func (o *Orchestrator) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = o.cfg.InitialBackoff
	exp.MaxInterval = o.cfg.MaxBackoff
	exp.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(o.cfg.MaxAttempts-1)), ctx)
}

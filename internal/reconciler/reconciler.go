// Package reconciler owns the lifecycle of a FinalGrade.
// A grade is never written in place: every transition appends one audit entry
// and the grade is the fold of its entries.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/google/uuid"
)

const defaultMaxRetries = 5

type Reconciler struct {
	ledger     storage.GradeLedger
	sink       storage.HistorySink
	now        func() time.Time
	maxRetries int
}

type Option func(*Reconciler)

func WithHistorySink(sink storage.HistorySink) Option {
	return func(r *Reconciler) {
		r.sink = sink
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithMaxRetries bounds how often a transition is re-decided after losing a version race.
func WithMaxRetries(n int) Option {
	return func(r *Reconciler) {
		r.maxRetries = n
	}
}

func New(ledger storage.GradeLedger, opts ...Option) *Reconciler {
	r := &Reconciler{
		ledger:     ledger,
		now:        time.Now,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type decision func(current domain.FinalGrade) (domain.AuditEntry, error)

// ApplyRound records the outcome of a grading round, successful or not.
func (r *Reconciler) ApplyRound(ctx context.Context, round domain.EvaluationRound, maxScore float64) (domain.FinalGrade, error) {
	return r.transition(ctx, round.Key(), maxScore, func(g domain.FinalGrade) (domain.AuditEntry, error) {
		return RoundCompleted(g, round)
	})
}

func (r *Reconciler) Override(ctx context.Context, key domain.GradeKey, maxScore, score float64, reason string) (domain.FinalGrade, error) {
	return r.transition(ctx, key, maxScore, func(g domain.FinalGrade) (domain.AuditEntry, error) {
		return Override(g, score, reason)
	})
}

func (r *Reconciler) Confirm(ctx context.Context, key domain.GradeKey, maxScore float64, reason string) (domain.FinalGrade, error) {
	return r.transition(ctx, key, maxScore, func(g domain.FinalGrade) (domain.AuditEntry, error) {
		return Confirm(g, reason)
	})
}

func (r *Reconciler) Finalize(ctx context.Context, key domain.GradeKey, maxScore float64, reason string) (domain.FinalGrade, error) {
	return r.transition(ctx, key, maxScore, func(g domain.FinalGrade) (domain.AuditEntry, error) {
		return Finalize(g, reason)
	})
}

func (r *Reconciler) Reopen(ctx context.Context, key domain.GradeKey, maxScore float64, reason string) (domain.FinalGrade, error) {
	return r.transition(ctx, key, maxScore, func(g domain.FinalGrade) (domain.AuditEntry, error) {
		return Reopen(g, reason)
	})
}

// Current folds the stored log of one grade.
func (r *Reconciler) Current(ctx context.Context, key domain.GradeKey, maxScore float64) (domain.FinalGrade, []domain.AuditEntry, error) {
	entries, err := r.ledger.ListEntries(ctx, key)
	if err != nil {
		return domain.FinalGrade{}, nil, fmt.Errorf("failed to load audit entries for %s: %w", key, err)
	}
	return Fold(key, maxScore, entries), entries, nil
}

// transition re-reads the log, decides, and appends with an expected version.
// A lost race re-runs the decision against the newer state, so validation always sees what it overwrites.
func (r *Reconciler) transition(ctx context.Context, key domain.GradeKey, maxScore float64, decide decision) (domain.FinalGrade, error) {
	for attempt := 0; ; attempt++ {
		current, entries, err := r.Current(ctx, key, maxScore)
		if err != nil {
			return domain.FinalGrade{}, err
		}

		entry, err := decide(current)
		if err != nil {
			return current, err
		}

		entry.ID = uuid.New()
		entry.SubmissionID = key.SubmissionID
		entry.QuestionID = key.QuestionID
		entry.Seq = current.Version + 1
		entry.Timestamp = r.now().UTC().Truncate(time.Microsecond)
		if entry.MaxScore <= 0 {
			entry.MaxScore = current.MaxScore
		}
		entry.Seal(domain.LastHash(entries))

		next := Apply(current, entry)
		err = r.ledger.AppendEntry(ctx, entry, next, current.Version)
		if errors.Is(err, apperr.ErrVersionConflict) && attempt < r.maxRetries {
			slog.Debug("Grade version conflict, retrying", "grade", key, "version", current.Version, "attempt", attempt+1)
			continue
		}
		if err != nil {
			return current, fmt.Errorf("failed to append %s entry for %s: %w", entry.Event, key, err)
		}

		slog.Info("Grade transition",
			"submission_id", key.SubmissionID,
			"question_id", key.QuestionID,
			"event", entry.Event,
			"from", current.Status,
			"to", next.Status,
			"final_score", domain.FormatOptionalScore(next.FinalScore),
			"version", next.Version)

		if r.sink != nil {
			if err := r.sink.IndexEntry(ctx, entry); err != nil {
				slog.Warn("Failed to index audit entry", "entry_id", entry.ID, "error", err)
			}
		}
		return next, nil
	}
}

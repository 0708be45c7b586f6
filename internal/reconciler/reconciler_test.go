package reconciler

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage/in_mem"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const maxScore = 10.0

func newKey() domain.GradeKey {
	return domain.GradeKey{SubmissionID: uuid.New(), QuestionID: uuid.New()}
}

func round(key domain.GradeKey, consensus float64, escalate bool) domain.EvaluationRound {
	return domain.EvaluationRound{
		ID:           uuid.New(),
		SubmissionID: key.SubmissionID,
		QuestionID:   key.QuestionID,
		Result: &domain.MultiEvalResult{
			MaxScore:       maxScore,
			ConsensusScore: consensus,
			Confidence:     0.85,
			ShouldEscalate: escalate,
			Reasoning:      "consensus reasoning",
		},
	}
}

func failedRound(key domain.GradeKey) domain.EvaluationRound {
	return domain.EvaluationRound{
		ID:           uuid.New(),
		SubmissionID: key.SubmissionID,
		QuestionID:   key.QuestionID,
		Reasoning:    "only 1 of 3 evaluators succeeded (quorum 2)",
	}
}

func setup(t *testing.T, opts ...Option) (*Reconciler, *in_mem.InMemStorer) {
	t.Helper()
	store := in_mem.NewInMemStorer()
	return New(store, opts...), store
}

func entries(t *testing.T, store *in_mem.InMemStorer, key domain.GradeKey) []domain.AuditEntry {
	t.Helper()
	out, err := store.ListEntries(context.Background(), key)
	require.NoError(t, err)
	return out
}

func TestApplyRound(t *testing.T) {
	ctx := context.Background()

	t.Run("no escalation auto grades", func(t *testing.T) {
		r, store := setup(t)
		key := newKey()

		g, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusAutoGraded, g.Status)
		require.NotNil(t, g.FinalScore)
		assert.Equal(t, 7.0, *g.FinalScore)
		assert.Equal(t, 7.0, *g.AIScore)
		assert.Nil(t, g.OverrideScore)
		assert.Equal(t, int64(1), g.Version)
		assert.Len(t, entries(t, store, key), 1)
	})

	t.Run("escalation needs review with provisional score", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()

		g, err := r.ApplyRound(ctx, round(key, 8.25, true), maxScore)
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusReview, g.Status)
		assert.Equal(t, 8.25, *g.AIScore)
		assert.Equal(t, 8.25, *g.FinalScore)
	})

	t.Run("quorum failure needs review without a score", func(t *testing.T) {
		r, store := setup(t)
		key := newKey()

		g, err := r.ApplyRound(ctx, failedRound(key), maxScore)
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusReview, g.Status)
		assert.Nil(t, g.AIScore)
		assert.Nil(t, g.FinalScore)
		assert.Contains(t, g.Reasoning, "quorum 2")

		e := entries(t, store, key)
		require.Len(t, e, 1)
		assert.Equal(t, domain.EventRoundFailed, e[0].Event)
	})

	t.Run("quorum failure keeps previous ai score", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()

		_, err := r.ApplyRound(ctx, round(key, 6, false), maxScore)
		require.NoError(t, err)
		g, err := r.ApplyRound(ctx, failedRound(key), maxScore)
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusReview, g.Status)
		assert.Equal(t, 6.0, *g.AIScore)
	})

	t.Run("regrade after override re-enters review", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()

		_, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
		require.NoError(t, err)
		_, err = r.Override(ctx, key, maxScore, 9, "diagram correctly labeled")
		require.NoError(t, err)

		g, err := r.ApplyRound(ctx, round(key, 6.5, false), maxScore)
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusReview, g.Status)
		assert.Equal(t, 6.5, *g.AIScore)
		assert.Equal(t, 9.0, *g.OverrideScore)
		assert.Equal(t, 9.0, *g.FinalScore)
	})

	t.Run("round on final grade is rejected", func(t *testing.T) {
		r, store := setup(t)
		key := newKey()

		_, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
		require.NoError(t, err)
		_, err = r.Confirm(ctx, key, maxScore, "")
		require.NoError(t, err)

		_, err = r.ApplyRound(ctx, round(key, 3, false), maxScore)
		assert.ErrorIs(t, err, apperr.ErrGradeFinalized)
		assert.Len(t, entries(t, store, key), 2)
	})
}

func TestOverride(t *testing.T) {
	ctx := context.Background()

	t.Run("auto graded override keeps ai score", func(t *testing.T) {
		r, store := setup(t)
		key := newKey()

		_, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
		require.NoError(t, err)
		before := len(entries(t, store, key))

		g, err := r.Override(ctx, key, maxScore, 9, "diagram correctly labeled")
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusOverridden, g.Status)
		assert.Equal(t, 7.0, *g.AIScore)
		assert.Equal(t, 9.0, *g.OverrideScore)
		assert.Equal(t, 9.0, *g.FinalScore)

		e := entries(t, store, key)
		require.Len(t, e, before+1)
		last := e[len(e)-1]
		assert.Equal(t, domain.ActorHuman, last.Actor)
		assert.Equal(t, "final_score", last.FieldChanged)
		assert.Equal(t, "7.00", last.OldValue)
		assert.Equal(t, "9.00", last.NewValue)
		assert.Equal(t, "diagram correctly labeled", last.Reason)
	})

	t.Run("score bounds", func(t *testing.T) {
		tests := []struct {
			score float64
			ok    bool
		}{
			{score: 0, ok: true},
			{score: maxScore, ok: true},
			{score: -0.01, ok: false},
			{score: maxScore + 0.01, ok: false},
		}
		for _, tt := range tests {
			r, _ := setup(t)
			key := newKey()
			_, err := r.ApplyRound(ctx, round(key, 5, true), maxScore)
			require.NoError(t, err)

			g, err := r.Override(ctx, key, maxScore, tt.score, "reviewed")
			if tt.ok {
				require.NoError(t, err, "score %v", tt.score)
				assert.Equal(t, tt.score, *g.FinalScore)
				continue
			}
			assert.ErrorIs(t, err, apperr.ErrInvalidOverride, "score %v", tt.score)
			assert.Equal(t, domain.GradeStatusReview, g.Status)
			assert.Equal(t, 5.0, *g.FinalScore)
		}
	})

	t.Run("reason is mandatory", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()
		_, err := r.ApplyRound(ctx, round(key, 5, false), maxScore)
		require.NoError(t, err)

		_, err = r.Override(ctx, key, maxScore, 6, "  ")
		assert.ErrorIs(t, err, apperr.ErrInvalidOverride)
	})

	t.Run("pending grade cannot be overridden", func(t *testing.T) {
		r, _ := setup(t)
		_, err := r.Override(ctx, newKey(), maxScore, 6, "reviewed")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("finalized grade rejects override", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()
		_, err := r.ApplyRound(ctx, round(key, 5, true), maxScore)
		require.NoError(t, err)
		_, err = r.Override(ctx, key, maxScore, 6, "reviewed")
		require.NoError(t, err)
		_, err = r.Finalize(ctx, key, maxScore, "")
		require.NoError(t, err)

		g, err := r.Override(ctx, key, maxScore, 2, "late change")
		assert.ErrorIs(t, err, apperr.ErrGradeFinalized)
		assert.Equal(t, 6.0, *g.FinalScore)
		assert.Equal(t, domain.GradeStatusFinal, g.Status)
	})
}

func TestConfirmFinalizeReopen(t *testing.T) {
	ctx := context.Background()

	t.Run("confirm requires auto graded", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()
		_, err := r.ApplyRound(ctx, round(key, 5, true), maxScore)
		require.NoError(t, err)

		_, err = r.Confirm(ctx, key, maxScore, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("finalize needs a score", func(t *testing.T) {
		r, _ := setup(t)
		key := newKey()
		_, err := r.Finalize(ctx, key, maxScore, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

		_, err = r.ApplyRound(ctx, failedRound(key), maxScore)
		require.NoError(t, err)
		_, err = r.Finalize(ctx, key, maxScore, "")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	t.Run("reopen returns to review", func(t *testing.T) {
		r, store := setup(t)
		key := newKey()
		_, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
		require.NoError(t, err)

		_, err = r.Reopen(ctx, key, maxScore, "appeal")
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)

		_, err = r.Confirm(ctx, key, maxScore, "looks right")
		require.NoError(t, err)
		_, err = r.Finalize(ctx, key, maxScore, "")
		assert.ErrorIs(t, err, apperr.ErrGradeFinalized)

		_, err = r.Reopen(ctx, key, maxScore, "")
		var validation *apperr.ValidationError
		assert.ErrorAs(t, err, &validation)

		g, err := r.Reopen(ctx, key, maxScore, "student appeal")
		require.NoError(t, err)
		assert.Equal(t, domain.GradeStatusReview, g.Status)
		assert.Equal(t, 7.0, *g.FinalScore)

		e := entries(t, store, key)
		require.Len(t, e, 3)
		assert.NoError(t, domain.VerifyChain(e))
	})
}

func TestTransitionTimestamps(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 123456789, time.FixedZone("x", 3600))
	r, store := setup(t, WithClock(func() time.Time { return fixed }))
	key := newKey()

	g, err := r.ApplyRound(context.Background(), round(key, 7, false), maxScore)
	require.NoError(t, err)

	e := entries(t, store, key)
	require.Len(t, e, 1)
	assert.Equal(t, time.UTC, e[0].Timestamp.Location())
	assert.Equal(t, 123456000, e[0].Timestamp.Nanosecond())
	assert.True(t, g.UpdatedAt.Equal(e[0].Timestamp))
}

type conflictingLedger struct {
	*in_mem.InMemStorer
	conflicts atomic.Int32
	appends   atomic.Int32
}

func (c *conflictingLedger) AppendEntry(ctx context.Context, entry domain.AuditEntry, grade domain.FinalGrade, expected int64) error {
	c.appends.Add(1)
	if c.conflicts.Load() > 0 {
		c.conflicts.Add(-1)
		return apperr.ErrVersionConflict
	}
	return c.InMemStorer.AppendEntry(ctx, entry, grade, expected)
}

func TestVersionConflictRetries(t *testing.T) {
	ctx := context.Background()
	ledger := &conflictingLedger{InMemStorer: in_mem.NewInMemStorer()}
	ledger.conflicts.Store(2)
	r := New(ledger)
	key := newKey()

	g, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.Version)
	assert.Equal(t, int32(3), ledger.appends.Load())

	ledger.conflicts.Store(10)
	r = New(ledger, WithMaxRetries(1))
	_, err = r.Override(ctx, key, maxScore, 8, "reviewed")
	assert.ErrorIs(t, err, apperr.ErrVersionConflict)
}

func TestConcurrentOverrideAndRegrade(t *testing.T) {
	ctx := context.Background()
	r, store := setup(t, WithMaxRetries(100))
	key := newKey()

	_, err := r.ApplyRound(ctx, round(key, 7, false), maxScore)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := r.Override(ctx, key, maxScore, 9, "reviewed")
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := r.ApplyRound(ctx, round(key, 6, false), maxScore)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	e := entries(t, store, key)
	require.Len(t, e, 21)
	require.NoError(t, domain.VerifyChain(e))

	projected, err := store.GetGrade(ctx, key)
	require.NoError(t, err)
	folded := Fold(key, maxScore, e)
	assert.Equal(t, folded, projected)

	// Once overridden, every later round keeps the human score.
	assert.Equal(t, 9.0, *projected.FinalScore)
	assert.Equal(t, 9.0, *projected.OverrideScore)
	assert.Contains(t, []domain.GradeStatus{domain.GradeStatusOverridden, domain.GradeStatusReview}, projected.Status)
}

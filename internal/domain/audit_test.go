package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chain(n int) []AuditEntry {
	sub, q := uuid.New(), uuid.New()
	ts := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	entries := make([]AuditEntry, 0, n)
	for i := 0; i < n; i++ {
		e := AuditEntry{
			ID:           uuid.New(),
			SubmissionID: sub,
			QuestionID:   q,
			Seq:          int64(i + 1),
			Timestamp:    ts.Add(time.Duration(i) * time.Minute),
			Actor:        ActorAI,
			Event:        EventRoundCompleted,
			FieldChanged: "ai_score",
			NewValue:     "7.00",
			Status:       GradeStatusAutoGraded,
			Score:        Float(7),
		}
		e.Seal(LastHash(entries))
		entries = append(entries, e)
	}
	return entries
}

func TestVerifyChain(t *testing.T) {
	t.Run("intact chain", func(t *testing.T) {
		require.NoError(t, VerifyChain(chain(3)))
	})

	t.Run("empty chain", func(t *testing.T) {
		assert.NoError(t, VerifyChain(nil))
	})

	t.Run("tampered value", func(t *testing.T) {
		entries := chain(3)
		entries[1].NewValue = "10.00"
		assert.ErrorContains(t, VerifyChain(entries), "hash mismatch")
	})

	t.Run("removed entry", func(t *testing.T) {
		entries := chain(3)
		entries = append(entries[:1], entries[2:]...)
		assert.Error(t, VerifyChain(entries))
	})
}

func TestSummarize(t *testing.T) {
	sub := uuid.New()
	grades := []FinalGrade{
		{SubmissionID: sub, MaxScore: 10, FinalScore: Float(7), Status: GradeStatusAutoGraded},
		{SubmissionID: sub, MaxScore: 10, FinalScore: Float(9), Status: GradeStatusOverridden},
		{SubmissionID: sub, MaxScore: 5, FinalScore: Float(3), Status: GradeStatusReview},
		{SubmissionID: sub, MaxScore: 5, Status: GradeStatusPending},
	}

	s := Summarize(sub, grades)
	assert.InDelta(t, 16.0, s.TotalScore, 1e-9)
	assert.InDelta(t, 30.0, s.MaxScore, 1e-9)
	assert.Equal(t, 1, s.Pending)
	assert.Equal(t, 1, s.NeedsReview)
}

func TestGradingResult_NormalizedScore(t *testing.T) {
	assert.InDelta(t, 8.0, GradingResult{Score: 4, MaxScore: 5}.NormalizedScore(10), 1e-9)
	assert.InDelta(t, 4.0, GradingResult{Score: 4, MaxScore: 10}.NormalizedScore(10), 1e-9)
}

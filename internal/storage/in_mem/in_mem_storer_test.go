package in_mem

import (
	"context"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemStorer_AppendEntryChecksVersion(t *testing.T) {
	ctx := context.Background()
	s := NewInMemStorer()
	key := domain.GradeKey{SubmissionID: uuid.New(), QuestionID: uuid.New()}

	entry := domain.AuditEntry{SubmissionID: key.SubmissionID, QuestionID: key.QuestionID, Seq: 1, Timestamp: time.Now()}
	grade := domain.NewPendingGrade(key, 10)
	grade.Version = 1

	_, err := s.GetGrade(ctx, key)
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	require.NoError(t, s.AppendEntry(ctx, entry, grade, 0))
	err = s.AppendEntry(ctx, entry, grade, 0)
	assert.ErrorIs(t, err, apperr.ErrVersionConflict)

	got, err := s.GetGrade(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)

	entries, err := s.ListEntries(ctx, key)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	byQuestion, err := s.ListEntriesByQuestion(ctx, key.QuestionID)
	require.NoError(t, err)
	assert.Len(t, byQuestion, 1)

	grades, err := s.ListGrades(ctx, key.SubmissionID)
	require.NoError(t, err)
	assert.Len(t, grades, 1)
}

func TestInMemStorer_AnswersAndRounds(t *testing.T) {
	ctx := context.Background()
	s := NewInMemStorer()
	sub := uuid.New()
	q1, q2 := uuid.New(), uuid.New()

	require.NoError(t, s.SaveAnswers(ctx, []domain.AnswerSegment{
		{SubmissionID: sub, QuestionID: q1, Text: "first"},
		{SubmissionID: sub, QuestionID: q2, Text: "second"},
		{SubmissionID: uuid.New(), QuestionID: q1, Text: "other submission"},
	}))
	require.NoError(t, s.SaveAnswers(ctx, []domain.AnswerSegment{{SubmissionID: sub, QuestionID: q1, Text: "replaced"}}))

	answers, err := s.ListAnswers(ctx, sub)
	require.NoError(t, err)
	require.Len(t, answers, 2)
	for _, a := range answers {
		if a.QuestionID == q1 {
			assert.Equal(t, "replaced", a.Text)
		}
	}

	round := domain.EvaluationRound{ID: uuid.New(), SubmissionID: sub, QuestionID: q1}
	require.NoError(t, s.SaveRound(ctx, round))

	rounds, err := s.ListRounds(ctx, round.Key())
	require.NoError(t, err)
	assert.Len(t, rounds, 1)

	byQuestion, err := s.ListRoundsByQuestion(ctx, q2)
	require.NoError(t, err)
	assert.Empty(t, byQuestion)

	_, err = s.GetQuestion(ctx, q1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

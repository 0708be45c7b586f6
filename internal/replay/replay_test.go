package replay

import (
	"context"
	"testing"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay/fixture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	rounds  int
	entries int
}

func (s *recordingSink) IndexRound(_ context.Context, _ domain.EvaluationRound) error {
	s.rounds++
	return nil
}

func (s *recordingSink) IndexEntry(_ context.Context, _ domain.AuditEntry) error {
	s.entries++
	return nil
}

func row(t *testing.T, r *Result, submission, question string) GradeRow {
	t.Helper()
	for _, g := range r.Grades {
		if g.Submission == submission && g.Question == question {
			return g
		}
	}
	t.Fatalf("no grade for %s/%s", submission, question)
	return GradeRow{}
}

func TestRun_BiologyMidterm(t *testing.T) {
	f, err := fixture.LoadFromFile("../../configs/replay/biology_midterm.yaml")
	require.NoError(t, err)

	result, err := Run(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, result.Grades, 4)

	t.Run("outlier escalated then overridden and finalized", func(t *testing.T) {
		g := row(t, result, "alice", "photosynthesis")
		assert.Equal(t, domain.GradeStatusFinal, g.Grade.Status)
		assert.Equal(t, 9.0, *g.Grade.FinalScore)
		assert.Equal(t, 8.25, *g.Grade.AIScore)
		assert.Equal(t, []string{"structural_analyzer"}, g.ExcludedOutliers)
		assert.NotEmpty(t, g.EscalationReasons)
		assert.Equal(t, 3, g.AuditEntries)
		assert.True(t, g.ChainValid)
	})

	t.Run("agreement auto graded then confirmed", func(t *testing.T) {
		g := row(t, result, "alice", "cell_diagram")
		assert.Equal(t, domain.GradeStatusFinal, g.Grade.Status)
		assert.Equal(t, 4.25, *g.Grade.FinalScore)
		assert.Empty(t, g.EscalationReasons)
	})

	t.Run("ambiguity escalates and out of range override is rejected", func(t *testing.T) {
		g := row(t, result, "bob", "photosynthesis")
		assert.Equal(t, domain.GradeStatusOverridden, g.Grade.Status)
		assert.Equal(t, 3.0, *g.Grade.FinalScore)
		assert.NotEmpty(t, g.EscalationReasons)
	})

	t.Run("below quorum needs review after regrade", func(t *testing.T) {
		g := row(t, result, "bob", "cell_diagram")
		assert.Equal(t, domain.GradeStatusReview, g.Grade.Status)
		assert.Nil(t, g.Grade.FinalScore)
		assert.Equal(t, 2, g.Rounds)
	})

	t.Run("reviews", func(t *testing.T) {
		require.Len(t, result.Reviews, 6)
		var rejected []ReviewOutcome
		for _, rv := range result.Reviews {
			if rv.Error != "" {
				rejected = append(rejected, rv)
			}
		}
		require.Len(t, rejected, 1)
		assert.Equal(t, 12.0, *rejected[0].Score)
	})

	t.Run("totals", func(t *testing.T) {
		require.Len(t, result.Submissions, 2)
		totals := map[string]domain.GradeSummary{}
		for _, s := range result.Submissions {
			if s.SubmissionID == fixture.SubmissionID("alice") {
				totals["alice"] = s
			} else {
				totals["bob"] = s
			}
		}
		assert.InDelta(t, 13.25, totals["alice"].TotalScore, 1e-9)
		assert.Equal(t, 15.0, totals["alice"].MaxScore)
		assert.InDelta(t, 3.0, totals["bob"].TotalScore, 1e-9)
		assert.Equal(t, 1, totals["bob"].NeedsReview)
	})

	assert.Len(t, result.Patterns, 2)
	assert.Len(t, result.Rounds, 5)
	assert.NotEmpty(t, result.Entries)
}

func TestRun_HistorySink(t *testing.T) {
	f, err := fixture.Parse([]byte(`
name: sink
questions:
  - {name: q1, max_score: 10}
submissions:
  - {name: s1, answers: {q1: answer}}
evaluators:
  - {id: e1, scripts: {s1: {q1: {score: 6, confidence: 0.9}}}}
  - {id: e2, scripts: {s1: {q1: {score: 6, confidence: 0.9}}}}
`))
	require.NoError(t, err)

	sink := &recordingSink{}
	result, err := Run(context.Background(), f, WithHistorySink(sink))
	require.NoError(t, err)

	g := row(t, result, "s1", "q1")
	assert.Equal(t, domain.GradeStatusAutoGraded, g.Grade.Status)
	assert.Equal(t, 1, sink.rounds)
	assert.Equal(t, 1, sink.entries)
}

func TestRun_UnscriptedSubmissionIsUnavailable(t *testing.T) {
	f, err := fixture.Parse([]byte(`
name: unscripted
policy:
  orchestrator: {max_attempts: 1}
questions:
  - {name: q1, max_score: 10}
submissions:
  - {name: s1, answers: {q1: answer}}
evaluators:
  - {id: e1}
  - {id: e2}
`))
	require.NoError(t, err)

	result, err := Run(context.Background(), f)
	require.NoError(t, err)

	g := row(t, result, "s1", "q1")
	assert.Equal(t, domain.GradeStatusReview, g.Grade.Status)
	assert.Nil(t, g.Grade.AIScore)
}

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/analytics"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay"
	"github.com/DjordjeVuckovic/grade-consensus/internal/replay/fixture"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *replay.Result {
	sub := uuid.New()
	q1, q2 := uuid.New(), uuid.New()
	score := 7.0
	return &replay.Result{
		Fixture:   "sample",
		StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		Duration:  120 * time.Millisecond,
		Grades: []replay.GradeRow{
			{
				Submission: "alice",
				Question:   "q1",
				Grade: domain.FinalGrade{
					SubmissionID: sub, QuestionID: q1, Status: domain.GradeStatusReview,
					AIScore: domain.Float(8.25), FinalScore: domain.Float(8.25), MaxScore: 10, Confidence: 0.89,
				},
				Rounds:            1,
				ExcludedOutliers:  []string{"c"},
				EscalationReasons: []string{"outlier c excluded"},
				AuditEntries:      1,
				ChainValid:        true,
			},
			{
				Submission: "alice",
				Question:   "q2",
				Grade: domain.FinalGrade{
					SubmissionID: sub, QuestionID: q2, Status: domain.GradeStatusFinal,
					AIScore: domain.Float(4), FinalScore: domain.Float(4), MaxScore: 5, Confidence: 0.8,
				},
				Rounds:       1,
				AuditEntries: 2,
				ChainValid:   false,
			},
		},
		Submissions: []domain.GradeSummary{{SubmissionID: sub, TotalScore: 4, MaxScore: 15, NeedsReview: 1}},
		Reviews: []replay.ReviewOutcome{
			{Review: fixture.Review{Submission: "alice", Question: "q1", Action: fixture.ActionOverride, Score: &score}, Error: "invalid override"},
		},
		Patterns: []analytics.PatternReport{{QuestionID: q1, Rounds: 1, EscalationRate: 1, Patterns: []string{"c deviates from consensus by -6.25 on average"}}},
	}
}

func TestGenerate_Summary(t *testing.T) {
	rpt := Generate(sampleResult())

	assert.Equal(t, "sample", rpt.Meta.Fixture)
	assert.Equal(t, 2, rpt.Summary.Grades)
	assert.Equal(t, 1, rpt.Summary.ByStatus[domain.GradeStatusReview])
	assert.Equal(t, 1, rpt.Summary.ByStatus[domain.GradeStatusFinal])
	assert.Equal(t, 1, rpt.Summary.Escalated)
	assert.Equal(t, 0.5, rpt.Summary.EscalationRate)
	assert.Equal(t, 1, rpt.Summary.OutliersDropped)
	assert.Equal(t, 1, rpt.Summary.BrokenChains)
	assert.Equal(t, 1, rpt.Summary.RejectedReviews)
}

func TestWriteTable(t *testing.T) {
	var buf bytes.Buffer
	WriteTable(Generate(sampleResult()), &buf)
	out := buf.String()

	assert.Contains(t, out, "=== Grading Replay: sample ===")
	assert.Contains(t, out, "8.25/10")
	assert.Contains(t, out, "BROKEN")
	assert.Contains(t, out, "REJECTED: invalid override")
	assert.Contains(t, out, "c deviates from consensus")
	assert.Contains(t, out, "needs_review")
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	require.NoError(t, WriteJSON(Generate(sampleResult()), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "sample", decoded.Meta.Fixture)
	assert.Len(t, decoded.Grades, 2)
	assert.Equal(t, 1, decoded.Summary.RejectedReviews)
}

package es

import (
	"context"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	estesting "github.com/DjordjeVuckovic/grade-consensus/pkg/testing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundDocument(t *testing.T) {
	h := &HistoryIndexer{now: time.Now}
	r := domain.EvaluationRound{
		ID:           uuid.New(),
		SubmissionID: uuid.New(),
		QuestionID:   uuid.New(),
		Failures:     []domain.EvaluatorFailure{{EvaluatorID: "c", Kind: domain.FailureTimeout}},
		Result: &domain.MultiEvalResult{
			Evaluations:      []domain.GradingResult{{EvaluatorID: "a"}, {EvaluatorID: "b"}},
			ConsensusScore:   8.25,
			MaxScore:         10,
			ShouldEscalate:   true,
			ExcludedOutliers: []string{"b"},
		},
		Reasoning: "consensus",
	}

	doc := h.roundDocument(r)
	assert.Equal(t, KindRound, doc.Kind)
	assert.Equal(t, []string{"a", "b"}, doc.Evaluators)
	assert.Equal(t, []string{"c"}, doc.FailedEvaluators)
	assert.Equal(t, 8.25, *doc.Score)
	assert.True(t, doc.ShouldEscalate)

	r.Result = nil
	failed := h.roundDocument(r)
	assert.Nil(t, failed.Score)
	assert.True(t, failed.ShouldEscalate)
}

func TestHistoryIndexer(t *testing.T) {
	ctx := context.Background()
	cluster := estesting.NewHistoryES(ctx, t)

	h, err := NewHistoryIndexer(ctx, ClientConfig{Addresses: cluster.Addresses, IndexName: cluster.IndexName()})
	require.NoError(t, err)
	require.NoError(t, h.EnsureIndex(ctx), "second call sees the existing index")

	qid := uuid.New()
	sub := uuid.New()
	round := domain.EvaluationRound{
		ID: uuid.New(), SubmissionID: sub, QuestionID: qid,
		Result:    &domain.MultiEvalResult{ConsensusScore: 7, MaxScore: 10},
		Reasoning: "the diagram labels were misread by one evaluator",
		CreatedAt: time.Now().UTC(),
	}
	entry := domain.AuditEntry{
		ID: uuid.New(), SubmissionID: sub, QuestionID: qid, Seq: 2,
		Timestamp: time.Now().UTC(),
		Actor:     domain.ActorHuman,
		Event:     domain.EventOverride,
		Status:    domain.GradeStatusOverridden,
		Score:     domain.Float(9),
		Reason:    "diagram correctly labeled",
	}

	require.NoError(t, h.IndexRound(ctx, round))
	require.NoError(t, h.Backfill(ctx, nil, []domain.AuditEntry{entry}))

	hits, err := h.SearchReasoning(ctx, qid, "diagram", 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = h.SearchReasoning(ctx, uuid.New(), "diagram", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.True(t, h.Healthy(ctx))
}

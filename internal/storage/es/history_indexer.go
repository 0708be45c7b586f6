package es

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esutil"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types"
	"github.com/elastic/go-elasticsearch/v8/typedapi/types/enums/sortorder"
	"github.com/google/uuid"
)

const (
	KindRound = "round"
	KindEntry = "audit_entry"
)

// HistoryDocument is the searchable copy of a round or an audit entry.
type HistoryDocument struct {
	ID                string    `json:"id"`
	Kind              string    `json:"kind"`
	SubmissionID      string    `json:"submission_id"`
	QuestionID        string    `json:"question_id"`
	Timestamp         time.Time `json:"timestamp"`
	Actor             string    `json:"actor,omitempty"`
	Event             string    `json:"event,omitempty"`
	Status            string    `json:"status,omitempty"`
	Score             *float64  `json:"score,omitempty"`
	MaxScore          float64   `json:"max_score"`
	Confidence        float64   `json:"confidence"`
	ShouldEscalate    bool      `json:"should_escalate"`
	EscalationReasons []string  `json:"escalation_reasons,omitempty"`
	ExcludedOutliers  []string  `json:"excluded_outliers,omitempty"`
	Evaluators        []string  `json:"evaluators,omitempty"`
	FailedEvaluators  []string  `json:"failed_evaluators,omitempty"`
	Text              string    `json:"text"`
	IndexedAt         time.Time `json:"indexed_at"`
}

type HistoryHit struct {
	HistoryDocument
	Relevance float64 `json:"relevance"`
}

// HistoryIndexer mirrors grading history into Elasticsearch for reviewer search.
type HistoryIndexer struct {
	client    *elasticsearch.TypedClient
	indexName string
	now       func() time.Time
}

func NewHistoryIndexer(ctx context.Context, config ClientConfig) (*HistoryIndexer, error) {
	client, err := newClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Elasticsearch client: %w", err)
	}
	h := &HistoryIndexer{
		client:    client,
		indexName: config.IndexName,
		now:       time.Now,
	}

	if err := h.EnsureIndex(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure index exists: %w", err)
	}
	return h, nil
}

func (h *HistoryIndexer) IndexRound(ctx context.Context, round domain.EvaluationRound) error {
	return h.index(ctx, h.roundDocument(round))
}

func (h *HistoryIndexer) IndexEntry(ctx context.Context, entry domain.AuditEntry) error {
	return h.index(ctx, h.entryDocument(entry))
}

func (h *HistoryIndexer) index(ctx context.Context, doc HistoryDocument) error {
	res, err := h.client.Index(h.indexName).Id(doc.ID).Document(doc).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to index %s %s: %w", doc.Kind, doc.ID, err)
	}
	slog.Debug("History document indexed", "id", doc.ID, "kind", doc.Kind, "result", res.Result)
	return nil
}

// Backfill bulk-indexes existing history, e.g. after the index was recreated.
func (h *HistoryIndexer) Backfill(ctx context.Context, rounds []domain.EvaluationRound, entries []domain.AuditEntry) error {
	docs := make([]HistoryDocument, 0, len(rounds)+len(entries))
	for _, r := range rounds {
		docs = append(docs, h.roundDocument(r))
	}
	for _, e := range entries {
		docs = append(docs, h.entryDocument(e))
	}
	if len(docs) == 0 {
		return nil
	}

	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Index:         h.indexName,
		Client:        h.client,
		NumWorkers:    2,
		FlushBytes:    1e+6,
		FlushInterval: 5 * time.Second,
		Refresh:       "true",
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var successful, failed atomic.Int64
	for _, doc := range docs {
		body, err := json.Marshal(doc)
		if err != nil {
			failed.Add(1)
			slog.Error("failed to marshal history document", "error", err, "id", doc.ID)
			continue
		}
		err = bi.Add(ctx, esutil.BulkIndexerItem{
			Action:     "index",
			DocumentID: doc.ID,
			Body:       bytes.NewReader(body),
			OnSuccess: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem) {
				successful.Add(1)
			},
			OnFailure: func(ctx context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
				failed.Add(1)
				if err != nil {
					slog.Error("bulk index error", "error", err, "id", item.DocumentID)
				} else {
					slog.Error("bulk index error", "status", res.Status, "error", res.Error.Type, "reason", res.Error.Reason, "id", item.DocumentID)
				}
			},
		})
		if err != nil {
			failed.Add(1)
			slog.Error("failed to add document to bulk indexer", "error", err, "id", doc.ID)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("failed to close bulk indexer: %w", err)
	}

	slog.Info("History backfill completed",
		"successful", successful.Load(),
		"failed", failed.Load(),
		"total", len(docs),
		"index", h.indexName)

	if n := failed.Load(); n > 0 {
		return fmt.Errorf("failed to index %d out of %d history documents", n, len(docs))
	}
	return nil
}

// SearchReasoning full-text searches evaluator reasoning and reviewer reasons of one question.
func (h *HistoryIndexer) SearchReasoning(ctx context.Context, questionID uuid.UUID, text string, size int) ([]HistoryHit, error) {
	if size <= 0 {
		size = 20
	}

	query := &types.Query{
		Bool: &types.BoolQuery{
			Filter: []types.Query{
				{Term: map[string]types.TermQuery{"question_id": {Value: questionID.String()}}},
			},
			Must: []types.Query{
				{Match: map[string]types.MatchQuery{"text": {Query: text}}},
			},
		},
	}

	desc := sortorder.Desc
	res, err := h.client.Search().
		Index(h.indexName).
		Query(query).
		Size(size).
		Sort(
			&types.SortOptions{SortOptions: map[string]types.FieldSort{"_score": {Order: &desc}}},
			&types.SortOptions{SortOptions: map[string]types.FieldSort{"timestamp": {Order: &desc}}},
		).
		TrackScores(true).
		Do(ctx)
	if err != nil {
		slog.Error("Elasticsearch history query failed", "error", err, "question_id", questionID)
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	hits := make([]HistoryHit, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var doc HistoryDocument
		if err := json.Unmarshal(hit.Source_, &doc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal history document: %w", err)
		}
		var relevance float64
		if hit.Score_ != nil {
			relevance = float64(*hit.Score_)
		}
		hits = append(hits, HistoryHit{HistoryDocument: doc, Relevance: relevance})
	}
	return hits, nil
}

func (h *HistoryIndexer) roundDocument(r domain.EvaluationRound) HistoryDocument {
	doc := HistoryDocument{
		ID:           r.ID.String(),
		Kind:         KindRound,
		SubmissionID: r.SubmissionID.String(),
		QuestionID:   r.QuestionID.String(),
		Timestamp:    r.CreatedAt,
		Text:         r.Reasoning,
		IndexedAt:    h.now(),
	}
	for _, f := range r.Failures {
		doc.FailedEvaluators = append(doc.FailedEvaluators, f.EvaluatorID)
	}
	if res := r.Result; res != nil {
		doc.Score = domain.Float(res.ConsensusScore)
		doc.MaxScore = res.MaxScore
		doc.Confidence = res.Confidence
		doc.ShouldEscalate = res.ShouldEscalate
		doc.EscalationReasons = res.EscalationReasons
		doc.ExcludedOutliers = res.ExcludedOutliers
		for _, e := range res.Evaluations {
			doc.Evaluators = append(doc.Evaluators, e.EvaluatorID)
		}
	} else {
		doc.ShouldEscalate = true
	}
	return doc
}

func (h *HistoryIndexer) entryDocument(e domain.AuditEntry) HistoryDocument {
	return HistoryDocument{
		ID:           e.ID.String(),
		Kind:         KindEntry,
		SubmissionID: e.SubmissionID.String(),
		QuestionID:   e.QuestionID.String(),
		Timestamp:    e.Timestamp,
		Actor:        string(e.Actor),
		Event:        string(e.Event),
		Status:       string(e.Status),
		Score:        e.Score,
		MaxScore:     e.MaxScore,
		Confidence:   e.Confidence,
		Text:         e.Reason,
		IndexedAt:    h.now(),
	}
}

func (h *HistoryIndexer) EnsureIndex(ctx context.Context) error {
	exists, err := h.client.Indices.Exists(h.indexName).Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to check if index exists: %w", err)
	}
	if exists {
		slog.Info("Index already exists", "index", h.indexName)
		return nil
	}

	analyzer := "english"
	text := types.NewTextProperty()
	text.Analyzer = &analyzer

	mappings := types.TypeMapping{
		Properties: map[string]types.Property{
			"id":                 types.NewKeywordProperty(),
			"kind":               types.NewKeywordProperty(),
			"submission_id":      types.NewKeywordProperty(),
			"question_id":        types.NewKeywordProperty(),
			"timestamp":          types.NewDateProperty(),
			"actor":              types.NewKeywordProperty(),
			"event":              types.NewKeywordProperty(),
			"status":             types.NewKeywordProperty(),
			"score":              types.NewDoubleNumberProperty(),
			"max_score":          types.NewDoubleNumberProperty(),
			"confidence":         types.NewDoubleNumberProperty(),
			"should_escalate":    types.NewBooleanProperty(),
			"escalation_reasons": types.NewTextProperty(),
			"excluded_outliers":  types.NewKeywordProperty(),
			"evaluators":         types.NewKeywordProperty(),
			"failed_evaluators":  types.NewKeywordProperty(),
			"text":               text,
			"indexed_at":         types.NewDateProperty(),
		},
	}

	createRes, err := h.client.Indices.Create(h.indexName).
		Mappings(&mappings).
		Do(ctx)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}
	if !createRes.Acknowledged {
		return fmt.Errorf("index creation was not acknowledged")
	}

	slog.Info("Index created successfully", "index", h.indexName)
	return nil
}

var _ storage.HistorySink = (*HistoryIndexer)(nil)

// Healthy reports whether the cluster answers a ping.
func (h *HistoryIndexer) Healthy(ctx context.Context) bool {
	ok, err := h.client.Ping().Do(ctx)
	if err != nil || !ok {
		slog.Warn("Elasticsearch ping failed", "error", err)
		return false
	}
	return true
}

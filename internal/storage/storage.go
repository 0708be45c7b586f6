package storage

import (
	"context"

	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/google/uuid"
)

// QuestionStore holds questions and their rubrics, as handed over by the authoring collaborator.
type QuestionStore interface {
	SaveQuestion(ctx context.Context, q domain.Question) error
	// GetQuestion returns apperr.ErrNotFound for unknown ids.
	GetQuestion(ctx context.Context, id uuid.UUID) (domain.Question, error)
}

// AnswerStore holds extracted answer segments. Saving a segment for an existing pair replaces it.
type AnswerStore interface {
	SaveAnswers(ctx context.Context, answers []domain.AnswerSegment) error
	ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]domain.AnswerSegment, error)
}

type RoundStore interface {
	SaveRound(ctx context.Context, round domain.EvaluationRound) error
	// ListRounds returns the rounds of one grade, oldest first.
	ListRounds(ctx context.Context, key domain.GradeKey) ([]domain.EvaluationRound, error)
	ListRoundsByQuestion(ctx context.Context, questionID uuid.UUID) ([]domain.EvaluationRound, error)
}

// GradeLedger is the append-only log of grade transitions plus its current projection.
type GradeLedger interface {
	// AppendEntry stores entry and replaces the grade projection atomically.
	// It fails with apperr.ErrVersionConflict unless the stored version equals expectedVersion.
	AppendEntry(ctx context.Context, entry domain.AuditEntry, grade domain.FinalGrade, expectedVersion int64) error
	// GetGrade returns apperr.ErrNotFound when the pair has no entries yet.
	GetGrade(ctx context.Context, key domain.GradeKey) (domain.FinalGrade, error)
	ListGrades(ctx context.Context, submissionID uuid.UUID) ([]domain.FinalGrade, error)
	// ListEntries returns one grade's entries ordered by Seq.
	ListEntries(ctx context.Context, key domain.GradeKey) ([]domain.AuditEntry, error)
	ListEntriesByQuestion(ctx context.Context, questionID uuid.UUID) ([]domain.AuditEntry, error)
}

type Store interface {
	QuestionStore
	AnswerStore
	RoundStore
	GradeLedger
	Close()
}

// HistorySink receives a copy of every round and audit entry for downstream analytics.
// Implementations are best effort: the ledger stays the source of truth.
type HistorySink interface {
	IndexRound(ctx context.Context, round domain.EvaluationRound) error
	IndexEntry(ctx context.Context, entry domain.AuditEntry) error
}

type Type string

const (
	PG    Type = "pg"
	InMem Type = "in_mem"
)

type StorerError string

const (
	ErrUnsupportedStorer StorerError = "unsupported storage type: %s"
)

func (e StorerError) Error() string {
	return string(e)
}

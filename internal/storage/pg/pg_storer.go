package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

type Storer struct {
	pool *ConnectionPool
	db   *pgxpool.Pool
}

func NewStorer(pool *ConnectionPool) (*Storer, error) {
	return &Storer{pool: pool, db: pool.conn}, nil
}

func (s *Storer) SaveQuestion(ctx context.Context, q domain.Question) error {
	rubric, err := json.Marshal(q.Rubric)
	if err != nil {
		return fmt.Errorf("failed to marshal rubric: %w", err)
	}

	cmd := `
		INSERT INTO questions (id, text, max_score, answer_type, rubric, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE
		SET text = EXCLUDED.text, max_score = EXCLUDED.max_score, answer_type = EXCLUDED.answer_type,
		    rubric = EXCLUDED.rubric, updated_at = now();
	`
	if _, err := s.db.Exec(ctx, cmd, q.ID, q.Text, q.MaxScore, string(q.AnswerType), rubric); err != nil {
		return fmt.Errorf("failed to save question: %w", err)
	}
	return nil
}

func (s *Storer) GetQuestion(ctx context.Context, id uuid.UUID) (domain.Question, error) {
	var (
		q          domain.Question
		answerType string
		rubric     []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, text, max_score, answer_type, rubric FROM questions WHERE id = $1`, id,
	).Scan(&q.ID, &q.Text, &q.MaxScore, &answerType, &rubric)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("failed to load question: %w", err)
	}

	q.AnswerType = domain.AnswerType(answerType)
	if err := json.Unmarshal(rubric, &q.Rubric); err != nil {
		return domain.Question{}, fmt.Errorf("failed to unmarshal rubric: %w", err)
	}
	return q, nil
}

func (s *Storer) SaveAnswers(ctx context.Context, answers []domain.AnswerSegment) error {
	batch := &pgx.Batch{}
	for _, a := range answers {
		batch.Queue(`
			INSERT INTO answers (submission_id, question_id, text, diagrams, page_indices)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (submission_id, question_id) DO UPDATE
			SET text = EXCLUDED.text, diagrams = EXCLUDED.diagrams, page_indices = EXCLUDED.page_indices;`,
			a.SubmissionID, a.QuestionID, a.Text, nonNil(a.Diagrams), nonNil(a.PageIndices))
	}
	if err := s.db.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save answers: %w", err)
	}
	return nil
}

func (s *Storer) ListAnswers(ctx context.Context, submissionID uuid.UUID) ([]domain.AnswerSegment, error) {
	rows, err := s.db.Query(ctx, `
		SELECT submission_id, question_id, text, diagrams, page_indices
		FROM answers WHERE submission_id = $1 ORDER BY question_id`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query answers: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerSegment
	for rows.Next() {
		var a domain.AnswerSegment
		if err := rows.Scan(&a.SubmissionID, &a.QuestionID, &a.Text, &a.Diagrams, &a.PageIndices); err != nil {
			return nil, fmt.Errorf("failed to scan answer: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Storer) SaveRound(ctx context.Context, round domain.EvaluationRound) error {
	var result []byte
	if round.Result != nil {
		var err error
		if result, err = json.Marshal(round.Result); err != nil {
			return fmt.Errorf("failed to marshal round result: %w", err)
		}
	}
	failures, err := json.Marshal(nonNil(round.Failures))
	if err != nil {
		return fmt.Errorf("failed to marshal round failures: %w", err)
	}

	_, err = s.db.Exec(ctx, `
		INSERT INTO evaluation_rounds (id, submission_id, question_id, result, failures, reasoning, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		round.ID, round.SubmissionID, round.QuestionID, result, failures, round.Reasoning, round.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}
	return nil
}

func (s *Storer) ListRounds(ctx context.Context, key domain.GradeKey) ([]domain.EvaluationRound, error) {
	return s.queryRounds(ctx, `
		SELECT id, submission_id, question_id, result, failures, reasoning, created_at
		FROM evaluation_rounds WHERE submission_id = $1 AND question_id = $2
		ORDER BY created_at, id`, key.SubmissionID, key.QuestionID)
}

func (s *Storer) ListRoundsByQuestion(ctx context.Context, questionID uuid.UUID) ([]domain.EvaluationRound, error) {
	return s.queryRounds(ctx, `
		SELECT id, submission_id, question_id, result, failures, reasoning, created_at
		FROM evaluation_rounds WHERE question_id = $1
		ORDER BY created_at, id`, questionID)
}

func (s *Storer) queryRounds(ctx context.Context, sql string, args ...any) ([]domain.EvaluationRound, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query rounds: %w", err)
	}
	defer rows.Close()

	var out []domain.EvaluationRound
	for rows.Next() {
		var (
			r        domain.EvaluationRound
			result   []byte
			failures []byte
		)
		if err := rows.Scan(&r.ID, &r.SubmissionID, &r.QuestionID, &result, &failures, &r.Reasoning, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan round: %w", err)
		}
		if result != nil {
			r.Result = &domain.MultiEvalResult{}
			if err := json.Unmarshal(result, r.Result); err != nil {
				return nil, fmt.Errorf("failed to unmarshal round result: %w", err)
			}
		}
		if err := json.Unmarshal(failures, &r.Failures); err != nil {
			return nil, fmt.Errorf("failed to unmarshal round failures: %w", err)
		}
		if len(r.Failures) == 0 {
			r.Failures = nil
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// AppendEntry locks the grade row, checks its version, then writes the entry and the projection in one transaction.
func (s *Storer) AppendEntry(ctx context.Context, entry domain.AuditEntry, grade domain.FinalGrade, expectedVersion int64) error {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var version int64
	err = tx.QueryRow(ctx,
		`SELECT version FROM grades WHERE submission_id = $1 AND question_id = $2 FOR UPDATE`,
		entry.SubmissionID, entry.QuestionID,
	).Scan(&version)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("failed to read grade version: %w", err)
	}
	if version != expectedVersion {
		return fmt.Errorf("grade %s at version %d, expected %d: %w", entry.Key(), version, expectedVersion, apperr.ErrVersionConflict)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO grade_entries (id, submission_id, question_id, seq, ts, actor, event, field_changed, old_value,
		                           new_value, reason, status, score, max_score, confidence, round_id, prev_hash, hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		entry.ID, entry.SubmissionID, entry.QuestionID, entry.Seq, entry.Timestamp, string(entry.Actor),
		string(entry.Event), entry.FieldChanged, entry.OldValue, entry.NewValue, entry.Reason, string(entry.Status),
		entry.Score, entry.MaxScore, entry.Confidence, entry.RoundID, entry.PrevHash, entry.Hash)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("grade %s seq %d already written: %w", entry.Key(), entry.Seq, apperr.ErrVersionConflict)
		}
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO grades (submission_id, question_id, final_score, max_score, ai_score, override_score,
		                    confidence, status, reasoning, version, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (submission_id, question_id) DO UPDATE
		SET final_score = EXCLUDED.final_score, max_score = EXCLUDED.max_score, ai_score = EXCLUDED.ai_score,
		    override_score = EXCLUDED.override_score, confidence = EXCLUDED.confidence, status = EXCLUDED.status,
		    reasoning = EXCLUDED.reasoning, version = EXCLUDED.version, updated_at = EXCLUDED.updated_at`,
		grade.SubmissionID, grade.QuestionID, grade.FinalScore, grade.MaxScore, grade.AIScore, grade.OverrideScore,
		grade.Confidence, string(grade.Status), grade.Reasoning, grade.Version, grade.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("grade %s created concurrently: %w", entry.Key(), apperr.ErrVersionConflict)
		}
		return fmt.Errorf("failed to upsert grade: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit grade transition: %w", err)
	}
	return nil
}

const gradeColumns = `submission_id, question_id, final_score, max_score, ai_score, override_score,
	confidence, status, reasoning, version, updated_at`

func scanGrade(row pgx.Row) (domain.FinalGrade, error) {
	var (
		g      domain.FinalGrade
		status string
	)
	err := row.Scan(&g.SubmissionID, &g.QuestionID, &g.FinalScore, &g.MaxScore, &g.AIScore, &g.OverrideScore,
		&g.Confidence, &status, &g.Reasoning, &g.Version, &g.UpdatedAt)
	g.Status = domain.GradeStatus(status)
	g.UpdatedAt = g.UpdatedAt.UTC()
	return g, err
}

func (s *Storer) GetGrade(ctx context.Context, key domain.GradeKey) (domain.FinalGrade, error) {
	g, err := scanGrade(s.db.QueryRow(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE submission_id = $1 AND question_id = $2`,
		key.SubmissionID, key.QuestionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FinalGrade{}, fmt.Errorf("grade %s: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return domain.FinalGrade{}, fmt.Errorf("failed to load grade: %w", err)
	}
	return g, nil
}

func (s *Storer) ListGrades(ctx context.Context, submissionID uuid.UUID) ([]domain.FinalGrade, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE submission_id = $1 ORDER BY question_id`, submissionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query grades: %w", err)
	}
	defer rows.Close()

	var out []domain.FinalGrade
	for rows.Next() {
		g, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan grade: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

const entryColumns = `id, submission_id, question_id, seq, ts, actor, event, field_changed, old_value, new_value,
	reason, status, score, max_score, confidence, round_id, prev_hash, hash`

func (s *Storer) ListEntries(ctx context.Context, key domain.GradeKey) ([]domain.AuditEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM grade_entries WHERE submission_id = $1 AND question_id = $2 ORDER BY seq`,
		key.SubmissionID, key.QuestionID)
}

func (s *Storer) ListEntriesByQuestion(ctx context.Context, questionID uuid.UUID) ([]domain.AuditEntry, error) {
	return s.queryEntries(ctx,
		`SELECT `+entryColumns+` FROM grade_entries WHERE question_id = $1 ORDER BY ts, seq`, questionID)
}

func (s *Storer) queryEntries(ctx context.Context, sql string, args ...any) ([]domain.AuditEntry, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var out []domain.AuditEntry
	for rows.Next() {
		var (
			e                    domain.AuditEntry
			actor, event, status string
			ts                   time.Time
		)
		err := rows.Scan(&e.ID, &e.SubmissionID, &e.QuestionID, &e.Seq, &ts, &actor, &event, &e.FieldChanged,
			&e.OldValue, &e.NewValue, &e.Reason, &status, &e.Score, &e.MaxScore, &e.Confidence, &e.RoundID,
			&e.PrevHash, &e.Hash)
		if err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp = ts.UTC()
		e.Actor = domain.Actor(actor)
		e.Event = domain.EventType(event)
		e.Status = domain.GradeStatus(status)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Storer) Close() {
	s.pool.Close()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

var _ storage.Store = (*Storer)(nil)

package in_mem

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/storage"
	"github.com/google/uuid"
)

type InMemStorer struct {
	storageLock sync.RWMutex
	questions   map[uuid.UUID]domain.Question
	answers     map[domain.GradeKey]domain.AnswerSegment
	rounds      []domain.EvaluationRound
	entries     map[domain.GradeKey][]domain.AuditEntry
	grades      map[domain.GradeKey]domain.FinalGrade
}

func NewInMemStorer() *InMemStorer {
	return &InMemStorer{
		questions: make(map[uuid.UUID]domain.Question),
		answers:   make(map[domain.GradeKey]domain.AnswerSegment),
		entries:   make(map[domain.GradeKey][]domain.AuditEntry),
		grades:    make(map[domain.GradeKey]domain.FinalGrade),
	}
}

func (s *InMemStorer) SaveQuestion(_ context.Context, q domain.Question) error {
	s.storageLock.Lock()
	defer s.storageLock.Unlock()
	s.questions[q.ID] = q
	slog.Debug("Saved question to in-memory storage", "question_id", q.ID)
	return nil
}

func (s *InMemStorer) GetQuestion(_ context.Context, id uuid.UUID) (domain.Question, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	q, ok := s.questions[id]
	if !ok {
		return domain.Question{}, fmt.Errorf("question %s: %w", id, apperr.ErrNotFound)
	}
	return q, nil
}

func (s *InMemStorer) SaveAnswers(_ context.Context, answers []domain.AnswerSegment) error {
	s.storageLock.Lock()
	defer s.storageLock.Unlock()
	for _, a := range answers {
		s.answers[domain.GradeKey{SubmissionID: a.SubmissionID, QuestionID: a.QuestionID}] = a
	}
	return nil
}

func (s *InMemStorer) ListAnswers(_ context.Context, submissionID uuid.UUID) ([]domain.AnswerSegment, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	var out []domain.AnswerSegment
	for key, a := range s.answers {
		if key.SubmissionID == submissionID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionID.String() < out[j].QuestionID.String()
	})
	return out, nil
}

func (s *InMemStorer) SaveRound(_ context.Context, round domain.EvaluationRound) error {
	s.storageLock.Lock()
	defer s.storageLock.Unlock()
	s.rounds = append(s.rounds, round)
	return nil
}

func (s *InMemStorer) ListRounds(_ context.Context, key domain.GradeKey) ([]domain.EvaluationRound, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	var out []domain.EvaluationRound
	for _, r := range s.rounds {
		if r.Key() == key {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemStorer) ListRoundsByQuestion(_ context.Context, questionID uuid.UUID) ([]domain.EvaluationRound, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	var out []domain.EvaluationRound
	for _, r := range s.rounds {
		if r.QuestionID == questionID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *InMemStorer) AppendEntry(_ context.Context, entry domain.AuditEntry, grade domain.FinalGrade, expectedVersion int64) error {
	s.storageLock.Lock()
	defer s.storageLock.Unlock()

	key := entry.Key()
	if current := int64(len(s.entries[key])); current != expectedVersion {
		return fmt.Errorf("grade %s at version %d, expected %d: %w", key, current, expectedVersion, apperr.ErrVersionConflict)
	}
	s.entries[key] = append(s.entries[key], entry)
	s.grades[key] = grade
	return nil
}

func (s *InMemStorer) GetGrade(_ context.Context, key domain.GradeKey) (domain.FinalGrade, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	g, ok := s.grades[key]
	if !ok {
		return domain.FinalGrade{}, fmt.Errorf("grade %s: %w", key, apperr.ErrNotFound)
	}
	return g, nil
}

func (s *InMemStorer) ListGrades(_ context.Context, submissionID uuid.UUID) ([]domain.FinalGrade, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	var out []domain.FinalGrade
	for key, g := range s.grades {
		if key.SubmissionID == submissionID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].QuestionID.String() < out[j].QuestionID.String()
	})
	return out, nil
}

func (s *InMemStorer) ListEntries(_ context.Context, key domain.GradeKey) ([]domain.AuditEntry, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	entries := s.entries[key]
	out := make([]domain.AuditEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *InMemStorer) ListEntriesByQuestion(_ context.Context, questionID uuid.UUID) ([]domain.AuditEntry, error) {
	s.storageLock.RLock()
	defer s.storageLock.RUnlock()
	var out []domain.AuditEntry
	for key, entries := range s.entries {
		if key.QuestionID == questionID {
			out = append(out, entries...)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].Seq < out[j].Seq
	})
	return out, nil
}

func (s *InMemStorer) Close() {}

var _ storage.Store = (*InMemStorer)(nil)

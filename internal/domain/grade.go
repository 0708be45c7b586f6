package domain

import (
	"time"

	"github.com/google/uuid"
)

type GradeStatus string

const (
	GradeStatusPending    GradeStatus = "pending"
	GradeStatusAutoGraded GradeStatus = "auto_graded"
	GradeStatusReview     GradeStatus = "needs_review"
	GradeStatusOverridden GradeStatus = "overridden"
	GradeStatusFinal      GradeStatus = "final"
)

// FinalGrade is the externally visible record for one (submission, question) pair.
// It is a projection of the grade's audit entries; Version is the number of entries folded into it.
type FinalGrade struct {
	SubmissionID  uuid.UUID   `json:"submission_id"`
	QuestionID    uuid.UUID   `json:"question_id"`
	FinalScore    *float64    `json:"final_score"`
	MaxScore      float64     `json:"max_score"`
	AIScore       *float64    `json:"ai_score"`
	OverrideScore *float64    `json:"override_score"`
	Confidence    float64     `json:"confidence"`
	Status        GradeStatus `json:"status"`
	Reasoning     string      `json:"reasoning"`
	Version       int64       `json:"version"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func NewPendingGrade(key GradeKey, maxScore float64) FinalGrade {
	return FinalGrade{
		SubmissionID: key.SubmissionID,
		QuestionID:   key.QuestionID,
		MaxScore:     maxScore,
		Status:       GradeStatusPending,
	}
}

func (g FinalGrade) Key() GradeKey {
	return GradeKey{SubmissionID: g.SubmissionID, QuestionID: g.QuestionID}
}

func (g FinalGrade) IsFinal() bool {
	return g.Status == GradeStatusFinal
}

// GradeSummary totals a submission's grades.
type GradeSummary struct {
	SubmissionID uuid.UUID    `json:"submission_id"`
	Grades       []FinalGrade `json:"grades"`
	TotalScore   float64      `json:"total_score"`
	MaxScore     float64      `json:"max_score"`
	Pending      int          `json:"pending"`
	NeedsReview  int          `json:"needs_review"`
}

func Summarize(submissionID uuid.UUID, grades []FinalGrade) GradeSummary {
	s := GradeSummary{SubmissionID: submissionID, Grades: grades}
	for _, g := range grades {
		s.MaxScore += g.MaxScore
		if g.FinalScore != nil && g.Status != GradeStatusReview {
			s.TotalScore += *g.FinalScore
		}
		switch g.Status {
		case GradeStatusPending:
			s.Pending++
		case GradeStatusReview:
			s.NeedsReview++
		}
	}
	return s
}

func Float(v float64) *float64 {
	return &v
}

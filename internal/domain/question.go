package domain

import "github.com/google/uuid"

type AnswerType string

const (
	AnswerTypeShortAnswer AnswerType = "short_answer"
	AnswerTypeEssay       AnswerType = "essay"
	AnswerTypeMCQ         AnswerType = "mcq"
	AnswerTypeDiagram     AnswerType = "diagram"
)

func (t AnswerType) Valid() bool {
	switch t {
	case AnswerTypeShortAnswer, AnswerTypeEssay, AnswerTypeMCQ, AnswerTypeDiagram:
		return true
	}
	return false
}

// Question is what the rubric-authoring collaborator hands over: max points, answer type and the rubric.
type Question struct {
	ID         uuid.UUID  `json:"id"`
	Text       string     `json:"text,omitempty"`
	MaxScore   float64    `json:"max_score"`
	AnswerType AnswerType `json:"answer_type"`
	Rubric     Rubric     `json:"rubric"`
}

// AnswerSegment is the extracted material for one (submission, question) pair.
type AnswerSegment struct {
	SubmissionID uuid.UUID `json:"submission_id"`
	QuestionID   uuid.UUID `json:"question_id"`
	Text         string    `json:"text"`
	Diagrams     []string  `json:"diagrams,omitempty"`
	PageIndices  []int     `json:"page_indices,omitempty"`
}

type GradeKey struct {
	SubmissionID uuid.UUID
	QuestionID   uuid.UUID
}

func (k GradeKey) String() string {
	return k.SubmissionID.String() + "/" + k.QuestionID.String()
}

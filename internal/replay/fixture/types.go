package fixture

import (
	"github.com/DjordjeVuckovic/grade-consensus/internal/domain"
	"github.com/DjordjeVuckovic/grade-consensus/internal/evaluator"
	"github.com/DjordjeVuckovic/grade-consensus/internal/session"
	"github.com/google/uuid"
)

// Fixture is an offline grading scenario: questions, answers, canned evaluator opinions and review actions.
// Questions and submissions are referenced by name; ids are derived from the names.
type Fixture struct {
	Name        string              `yaml:"name"`
	Policy      session.Policy      `yaml:"-"`
	Questions   []QuestionFixture   `yaml:"questions"`
	Evaluators  []EvaluatorFixture  `yaml:"evaluators"`
	Submissions []SubmissionFixture `yaml:"submissions"`
	Reviews     []Review            `yaml:"reviews"`
}

type QuestionFixture struct {
	Name       string            `yaml:"name"`
	Text       string            `yaml:"text"`
	MaxScore   float64           `yaml:"max_score"`
	AnswerType domain.AnswerType `yaml:"answer_type"`
	Rubric     domain.Rubric     `yaml:"rubric"`
}

type EvaluatorFixture struct {
	ID string `yaml:"id"`
	// Scripts maps submission name to question name to the canned opinion.
	Scripts map[string]map[string]evaluator.Script `yaml:"scripts"`
}

type SubmissionFixture struct {
	Name string `yaml:"name"`
	// Answers maps question name to answer text.
	Answers map[string]string `yaml:"answers"`
}

type ReviewAction string

const (
	ActionOverride ReviewAction = "override"
	ActionConfirm  ReviewAction = "confirm"
	ActionFinalize ReviewAction = "finalize"
	ActionReopen   ReviewAction = "reopen"
	ActionRegrade  ReviewAction = "regrade"
)

// Review is a teacher action applied after the initial grading pass, in file order.
type Review struct {
	Submission string       `yaml:"submission" json:"submission"`
	Question   string       `yaml:"question" json:"question"`
	Action     ReviewAction `yaml:"action" json:"action"`
	Score      *float64     `yaml:"score" json:"score,omitempty"`
	Reason     string       `yaml:"reason" json:"reason,omitempty"`
}

var namespace = uuid.MustParse("6f1c2a4e-3b7d-4c59-9a0e-2d8b51f4c7a3")

// QuestionID derives a stable id from a question name.
func QuestionID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("question/"+name))
}

// SubmissionID derives a stable id from a submission name.
func SubmissionID(name string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte("submission/"+name))
}

package evaluator

import "fmt"

// Profile gives an evaluator its own temperature and reading of the rubric,
// so that evaluators do not share a single point of view.
type Profile struct {
	ID          string
	Temperature float64
	Focus       string
}

const (
	RubricEnforcer     = "rubric_enforcer"
	ReasoningValidator = "reasoning_validator"
	StructuralAnalyzer = "structural_analyzer"
)

var DefaultEvaluatorIDs = []string{RubricEnforcer, ReasoningValidator, StructuralAnalyzer}

var profiles = map[string]Profile{
	RubricEnforcer: {
		ID:          RubricEnforcer,
		Temperature: 0.1,
		Focus: "Apply the rubric literally. Award a criterion only when the answer states it explicitly. " +
			"Do not infer intent.",
	},
	ReasoningValidator: {
		ID:          ReasoningValidator,
		Temperature: 0.4,
		Focus: "Follow the student's reasoning step by step. Award credit for correct reasoning even when " +
			"the wording differs from the rubric.",
	},
	StructuralAnalyzer: {
		ID:          StructuralAnalyzer,
		Temperature: 0.25,
		Focus: "Check the structure of the answer: ordering of steps, labelled diagrams, units and final " +
			"statement. Flag criteria that cannot be judged from the material as ambiguous.",
	},
}

func LookupProfile(id string) (Profile, error) {
	p, ok := profiles[id]
	if !ok {
		return Profile{}, fmt.Errorf("unknown evaluator profile %q", id)
	}
	return p, nil
}

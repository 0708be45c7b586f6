package fixture

import (
	"fmt"
	"os"

	"github.com/DjordjeVuckovic/grade-consensus/internal/session"
	"gopkg.in/yaml.v3"
)

type rawFixture struct {
	Fixture `yaml:",inline"`
	Policy  yaml.Node `yaml:"policy"`
}

func LoadFromFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Fixture, error) {
	var raw rawFixture
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse fixture YAML: %w", err)
	}

	f := raw.Fixture
	policy, err := parsePolicy(&raw.Policy)
	if err != nil {
		return nil, err
	}
	f.Policy = policy

	if err := validate(&f); err != nil {
		return nil, err
	}
	return &f, nil
}

func parsePolicy(node *yaml.Node) (session.Policy, error) {
	if node.IsZero() {
		return session.ParsePolicy(nil)
	}
	data, err := yaml.Marshal(node)
	if err != nil {
		return session.Policy{}, fmt.Errorf("re-encode policy: %w", err)
	}
	return session.ParsePolicy(data)
}

var validActions = map[ReviewAction]bool{
	ActionOverride: true,
	ActionConfirm:  true,
	ActionFinalize: true,
	ActionReopen:   true,
	ActionRegrade:  true,
}

func validate(f *Fixture) error {
	if len(f.Questions) == 0 {
		return fmt.Errorf("fixture has no questions")
	}
	if len(f.Evaluators) == 0 {
		return fmt.Errorf("fixture has no evaluators")
	}
	if len(f.Submissions) == 0 {
		return fmt.Errorf("fixture has no submissions")
	}

	questions := make(map[string]bool, len(f.Questions))
	for i, q := range f.Questions {
		if q.Name == "" {
			return fmt.Errorf("question at index %d has no name", i)
		}
		if questions[q.Name] {
			return fmt.Errorf("duplicate question %q", q.Name)
		}
		questions[q.Name] = true
	}

	submissions := make(map[string]bool, len(f.Submissions))
	for i, s := range f.Submissions {
		if s.Name == "" {
			return fmt.Errorf("submission at index %d has no name", i)
		}
		if submissions[s.Name] {
			return fmt.Errorf("duplicate submission %q", s.Name)
		}
		submissions[s.Name] = true
		for qName := range s.Answers {
			if !questions[qName] {
				return fmt.Errorf("submission %q answers unknown question %q", s.Name, qName)
			}
		}
	}

	evaluators := make(map[string]bool, len(f.Evaluators))
	for i, e := range f.Evaluators {
		if e.ID == "" {
			return fmt.Errorf("evaluator at index %d has no id", i)
		}
		if evaluators[e.ID] {
			return fmt.Errorf("duplicate evaluator %q", e.ID)
		}
		evaluators[e.ID] = true
		for sName, byQuestion := range e.Scripts {
			if !submissions[sName] {
				return fmt.Errorf("evaluator %q scripts unknown submission %q", e.ID, sName)
			}
			for qName := range byQuestion {
				if !questions[qName] {
					return fmt.Errorf("evaluator %q scripts unknown question %q", e.ID, qName)
				}
			}
		}
	}

	for i, r := range f.Reviews {
		if !validActions[r.Action] {
			return fmt.Errorf("review at index %d has invalid action %q", i, r.Action)
		}
		if !submissions[r.Submission] || !questions[r.Question] {
			return fmt.Errorf("review at index %d references unknown submission or question", i)
		}
		if r.Action == ActionOverride && r.Score == nil {
			return fmt.Errorf("override review at index %d has no score", i)
		}
	}
	return nil
}

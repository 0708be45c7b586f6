package domain

import (
	"fmt"
	"math"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/google/uuid"
)

type Criterion struct {
	ID          string  `json:"id" yaml:"id"`
	Description string  `json:"description" yaml:"description"`
	Points      float64 `json:"points" yaml:"points"`
	Required    bool    `json:"required" yaml:"required"`
	Category    string  `json:"category,omitempty" yaml:"category"`
}

type PartialCreditRule struct {
	ID           string   `json:"id" yaml:"id"`
	Condition    string   `json:"condition" yaml:"condition"`
	Points       float64  `json:"points" yaml:"points"`
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies"`
}

type CommonMistake struct {
	ID          string  `json:"id" yaml:"id"`
	Description string  `json:"description" yaml:"description"`
	Penalty     float64 `json:"penalty" yaml:"penalty"`
	Frequency   int     `json:"frequency,omitempty" yaml:"frequency"`
}

// Rubric is the scoring contract for one question. It is read-only at grading time.
type Rubric struct {
	QuestionID         uuid.UUID           `json:"question_id" yaml:"-"`
	FullCreditCriteria []Criterion         `json:"full_credit_criteria" yaml:"full_credit_criteria"`
	PartialCreditRules []PartialCreditRule `json:"partial_credit_rules" yaml:"partial_credit_rules"`
	CommonMistakes     []CommonMistake     `json:"common_mistakes" yaml:"common_mistakes"`
	KeyConcepts        []string            `json:"key_concepts,omitempty" yaml:"key_concepts"`
	GradingNotes       string              `json:"grading_notes,omitempty" yaml:"grading_notes"`
	StrictMode         bool                `json:"strict_mode" yaml:"strict_mode"`
}

// HasCriterion reports whether id names a full-credit criterion or a partial-credit rule.
func (r Rubric) HasCriterion(id string) bool {
	for _, c := range r.FullCreditCriteria {
		if c.ID == id {
			return true
		}
	}
	for _, p := range r.PartialCreditRules {
		if p.ID == id {
			return true
		}
	}
	return false
}

func (r Rubric) HasMistake(id string) bool {
	for _, m := range r.CommonMistakes {
		if m.ID == id {
			return true
		}
	}
	return false
}

func (r Rubric) CriteriaPoints() float64 {
	var sum float64
	for _, c := range r.FullCreditCriteria {
		sum += c.Points
	}
	return sum
}

// Validate checks the rubric against the question it is attached to.
// It runs when the rubric is set, never while grading.
func (r Rubric) Validate(maxScore float64) error {
	seen := make(map[string]bool)
	register := func(kind, id string) error {
		if id == "" {
			return apperr.NewValidation(fmt.Sprintf("%s id is required", kind))
		}
		if seen[id] {
			return apperr.NewValidation(fmt.Sprintf("duplicate rubric id %q", id))
		}
		seen[id] = true
		return nil
	}

	for _, c := range r.FullCreditCriteria {
		if err := register("criterion", c.ID); err != nil {
			return err
		}
		if c.Points < 0 {
			return apperr.NewValidation(fmt.Sprintf("criterion %q has negative points", c.ID))
		}
	}
	for _, p := range r.PartialCreditRules {
		if err := register("partial credit rule", p.ID); err != nil {
			return err
		}
		if p.Points < 0 {
			return apperr.NewValidation(fmt.Sprintf("partial credit rule %q has negative points", p.ID))
		}
	}
	for _, m := range r.CommonMistakes {
		if err := register("common mistake", m.ID); err != nil {
			return err
		}
		if m.Penalty < 0 {
			return apperr.NewValidation(fmt.Sprintf("common mistake %q has negative penalty", m.ID))
		}
	}
	for _, p := range r.PartialCreditRules {
		for _, dep := range p.Dependencies {
			if !seen[dep] {
				return apperr.NewValidation(fmt.Sprintf("partial credit rule %q depends on unknown id %q", p.ID, dep))
			}
		}
	}

	if r.StrictMode && r.CriteriaPoints() > maxScore {
		return apperr.NewValidation(fmt.Sprintf(
			"strict rubric criteria total %.2f exceeds question max score %.2f", r.CriteriaPoints(), maxScore))
	}
	return nil
}

// PointsFor applies the rubric's point values to the ids an evaluator reported.
// Partial credit rules only count when all their dependencies were met.
// The result is clamped to [0, maxScore].
func (r Rubric) PointsFor(criteriaMet, mistakesFound []string, maxScore float64) float64 {
	met := make(map[string]bool, len(criteriaMet))
	for _, id := range criteriaMet {
		met[id] = true
	}

	total := 0.0
	for _, c := range r.FullCreditCriteria {
		if met[c.ID] {
			total += c.Points
		}
	}
	for _, p := range r.PartialCreditRules {
		if !met[p.ID] {
			continue
		}
		depsMet := true
		for _, dep := range p.Dependencies {
			if !met[dep] {
				depsMet = false
				break
			}
		}
		if depsMet {
			total += p.Points
		}
	}
	for _, id := range mistakesFound {
		for _, m := range r.CommonMistakes {
			if m.ID == id {
				total -= m.Penalty
			}
		}
	}

	return math.Min(math.Max(total, 0), maxScore)
}

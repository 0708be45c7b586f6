package domain

import (
	"errors"
	"testing"

	"github.com/DjordjeVuckovic/grade-consensus/internal/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func physicsRubric() Rubric {
	return Rubric{
		FullCreditCriteria: []Criterion{
			{ID: "calc_correct", Points: 4},
			{ID: "method_correct", Points: 3},
			{ID: "units_correct", Points: 1},
		},
		PartialCreditRules: []PartialCreditRule{
			{ID: "partial_setup", Condition: "free body diagram drawn", Points: 1, Dependencies: []string{"method_correct"}},
		},
		CommonMistakes: []CommonMistake{
			{ID: "sign_error", Description: "sign flipped", Penalty: 2},
		},
	}
}

func TestRubric_Validate(t *testing.T) {
	t.Run("valid rubric", func(t *testing.T) {
		require.NoError(t, physicsRubric().Validate(10))
	})

	t.Run("strict mode rejects criteria above max", func(t *testing.T) {
		r := physicsRubric()
		r.StrictMode = true
		err := r.Validate(7)

		var ve *apperr.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Contains(t, ve.Message, "exceeds question max score")
	})

	t.Run("non strict mode tolerates criteria above max", func(t *testing.T) {
		assert.NoError(t, physicsRubric().Validate(7))
	})

	t.Run("duplicate ids", func(t *testing.T) {
		r := physicsRubric()
		r.CommonMistakes = append(r.CommonMistakes, CommonMistake{ID: "calc_correct", Penalty: 1})
		assert.ErrorContains(t, r.Validate(10), "duplicate rubric id")
	})

	t.Run("unknown dependency", func(t *testing.T) {
		r := physicsRubric()
		r.PartialCreditRules[0].Dependencies = []string{"missing"}
		assert.ErrorContains(t, r.Validate(10), "unknown id")
	})

	t.Run("negative penalty", func(t *testing.T) {
		r := physicsRubric()
		r.CommonMistakes[0].Penalty = -1
		assert.ErrorContains(t, r.Validate(10), "negative penalty")
	})
}

func TestRubric_PointsFor(t *testing.T) {
	r := physicsRubric()

	tests := []struct {
		name     string
		met      []string
		mistakes []string
		want     float64
	}{
		{"all criteria", []string{"calc_correct", "method_correct", "units_correct"}, nil, 8},
		{"partial rule with dependency", []string{"method_correct", "partial_setup"}, nil, 4},
		{"partial rule without dependency", []string{"partial_setup"}, nil, 0},
		{"penalty applied", []string{"calc_correct", "method_correct"}, []string{"sign_error"}, 5},
		{"clamped at zero", nil, []string{"sign_error"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, r.PointsFor(tt.met, tt.mistakes, 10), 1e-9)
		})
	}

	assert.InDelta(t, 6.0, r.PointsFor([]string{"calc_correct", "method_correct", "units_correct"}, nil, 6), 1e-9)
}

func TestRubric_Lookups(t *testing.T) {
	r := physicsRubric()
	assert.True(t, r.HasCriterion("calc_correct"))
	assert.True(t, r.HasCriterion("partial_setup"))
	assert.False(t, r.HasCriterion("sign_error"))
	assert.True(t, r.HasMistake("sign_error"))
	assert.InDelta(t, 8.0, r.CriteriaPoints(), 1e-9)
}

package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundDecimal(t *testing.T) {
	assert.Equal(t, 3.14, RoundDecimal(3.14159, 2))
	assert.Equal(t, 6.17, RoundDecimal(6.1666666, 2))
	assert.Equal(t, -1.5, RoundDecimal(-1.49999, 1))
}

func TestMeanAndVariance(t *testing.T) {
	assert.Zero(t, Mean(nil))
	assert.Zero(t, PopulationVariance(nil))
	assert.InDelta(t, 6.1667, Mean([]float64{8, 8.5, 2}), 1e-4)
	assert.InDelta(t, 8.7222, PopulationVariance([]float64{8, 8.5, 2}), 1e-4)
	assert.Zero(t, PopulationVariance([]float64{7, 7, 7}))
}

func TestSplitTrim(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitTrim(" a, ,b ,", ","))
	assert.Nil(t, SplitTrim("", ","))
}

func TestAbbreviate(t *testing.T) {
	assert.Equal(t, "short", Abbreviate("short", 10))
	assert.Equal(t, "a b c", Abbreviate("a\n b   c", 10))
	assert.Equal(t, "abcdefg...", Abbreviate("abcdefghijklmnop", 10))
}

package rubric

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fullMarks() Criteria {
	return Criteria{
		RelevanceToLOs:          5,
		InnovationCreativity:    15,
		ClarityAccessibility:    10,
		Depth:                   5,
		InteractivityEngagement: 25,
		UseOfTechnology:         5,
		ScalabilityAdaptability: 10,
		EthicalStandards:        5,
		PracticalApplication:    10,
		VideoQuality:            10,
	}
}

func TestBoundsSumToMaxTotal(t *testing.T) {
	sum := 0.0
	for _, b := range Bounds() {
		sum += b.Max
	}
	assert.Equal(t, MaxTotal, sum)
	assert.Len(t, Bounds(), 10)
}

func TestComputeTotal(t *testing.T) {
	assert.Equal(t, 100.0, ComputeTotal(fullMarks()))
	assert.Equal(t, 0.0, ComputeTotal(Criteria{}))

	c := Criteria{RelevanceToLOs: 2.5, InnovationCreativity: 10.5, VideoQuality: 7}
	assert.Equal(t, 20.0, ComputeTotal(c))
}

func TestComputeTotalDoesNotClamp(t *testing.T) {
	c := Criteria{InteractivityEngagement: 40}
	assert.Equal(t, 40.0, ComputeTotal(c))
}

func TestValidateAcceptsBoundaries(t *testing.T) {
	require.NoError(t, Validate(fullMarks()))
	require.NoError(t, Validate(Criteria{}))
}

func TestValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Criteria)
		field  string
	}{
		{"above max", func(c *Criteria) { c.Depth = 5.5 }, "depth"},
		{"negative", func(c *Criteria) { c.VideoQuality = -1 }, "videoQuality"},
		{"nan", func(c *Criteria) { c.UseOfTechnology = math.NaN() }, "useOfTechnology"},
		{"inf", func(c *Criteria) { c.EthicalStandards = math.Inf(1) }, "ethicalStandards"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := fullMarks()
			tt.mutate(&c)

			err := Validate(c)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrScoreOutOfRange))

			var scoreErr *ScoreError
			require.True(t, errors.As(err, &scoreErr))
			assert.Equal(t, tt.field, scoreErr.Field)
		})
	}
}

func TestValidTotalsStayWithinBounds(t *testing.T) {
	c := Criteria{
		RelevanceToLOs:          4.5,
		InnovationCreativity:    12,
		ClarityAccessibility:    9.5,
		Depth:                   3,
		InteractivityEngagement: 20,
		UseOfTechnology:         5,
		ScalabilityAdaptability: 6,
		EthicalStandards:        4,
		PracticalApplication:    8.5,
		VideoQuality:            7.5,
	}
	require.NoError(t, Validate(c))

	total := ComputeTotal(c)
	assert.GreaterOrEqual(t, total, 0.0)
	assert.LessOrEqual(t, total, MaxTotal)
	assert.Equal(t, 80.0, total)
}

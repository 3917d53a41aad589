package benford

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
	"github.com/ledgerlens/forensic-audit-engine/internal/testutil/fixtures"
)

func TestFirstDigitProbability(t *testing.T) {
	assert.InDelta(t, 0.30103, FirstDigitProbability(1), 1e-5)
	assert.InDelta(t, 0.17609, FirstDigitProbability(2), 1e-5)
	assert.InDelta(t, 0.04576, FirstDigitProbability(9), 1e-5)

	var sum float64
	for d := 1; d <= 9; d++ {
		sum += FirstDigitProbability(d)
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestSecondDigitProbability(t *testing.T) {
	// Second-digit expectations decrease monotonically from 0 to 9.
	prev := 1.0
	var sum float64
	for d := 0; d <= 9; d++ {
		p := SecondDigitProbability(d)
		assert.Less(t, p, prev)
		prev = p
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.InDelta(t, 0.11968, SecondDigitProbability(0), 1e-4)
}

func TestLeadingDigits(t *testing.T) {
	tests := []struct {
		name       string
		value      float64
		wantFirst  int
		wantSecond int
		wantHas    bool
	}{
		{name: "large value", value: 382000, wantFirst: 3, wantSecond: 8, wantHas: true},
		{name: "small fraction", value: 0.00382, wantFirst: 3, wantHas: false},
		{name: "two digits", value: 47, wantFirst: 4, wantSecond: 7, wantHas: true},
		{name: "single digit", value: 9, wantFirst: 9, wantHas: false},
		{name: "boundary ten", value: 10, wantFirst: 1, wantSecond: 0, wantHas: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first, second, has := leadingDigits(tt.value)
			assert.Equal(t, tt.wantFirst, first)
			assert.Equal(t, tt.wantHas, has)
			if tt.wantHas {
				assert.Equal(t, tt.wantSecond, second)
			}
		})
	}
}

func TestAnalyze_ConformingPopulation(t *testing.T) {
	pop := fixtures.NewPopulationBuilder(t, 42).WithSize(5000).Build()

	result := Analyze(pop, fixtures.StandardMapping(), DefaultConfig())

	assert.Equal(t, 5000, result.TotalValues)
	assert.Equal(t, 5000, result.UsableValues)
	assert.False(t, result.LowConfidence)
	assert.Less(t, result.FirstDigit.MAD, madAcceptMax)
	assert.Contains(t, []string{ConformityClose, ConformityAccept}, result.Conformity)
	assert.Equal(t, values.RiskLow, result.RiskLevel)
}

func TestAnalyze_UniformDigitsViolation(t *testing.T) {
	pop := fixtures.NewPopulationBuilder(t, 42).WithSize(2000).BuildUniformDigits()

	result := Analyze(pop, fixtures.StandardMapping(), DefaultConfig())

	// Uniform first digits deviate from log expectation by far more
	// than the nonconformity cutoff.
	assert.Greater(t, result.FirstDigit.MAD, madMarginalMax)
	assert.Equal(t, ConformityNone, result.Conformity)
	assert.Equal(t, values.RiskHigh, result.RiskLevel)
	assert.Less(t, result.FirstDigit.PValue, 0.01)
	assert.InDelta(t, result.FirstDigit.MAD*100, result.DeviationPercent, 1e-12)
}

func TestAnalyze_SmallSampleLowConfidence(t *testing.T) {
	pop := fixtures.NewPopulationBuilder(t, 7).WithSize(10).Build()

	result := Analyze(pop, fixtures.StandardMapping(), DefaultConfig())

	assert.Equal(t, 10, result.UsableValues)
	assert.True(t, result.LowConfidence)
}

func TestAnalyze_SkipsZeroAndUsesAbsoluteValue(t *testing.T) {
	pop := population.Population{
		{ID: "1", Amount: 0},
		{ID: "2", Amount: -234.5},
		{ID: "3", Amount: 150},
	}

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	assert.Equal(t, 3, result.TotalValues)
	assert.Equal(t, 2, result.UsableValues)
	// -234.5 leads with 2, 150 leads with 1
	assert.Equal(t, 1, result.FirstDigit.Counts[0])
	assert.Equal(t, 1, result.FirstDigit.Counts[1])
}

func TestAnalyze_AllZeroAmounts(t *testing.T) {
	pop := population.Population{{ID: "1"}, {ID: "2"}}

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	require.Equal(t, 0, result.UsableValues)
	assert.True(t, result.LowConfidence)
	assert.Equal(t, ConformityClose, result.Conformity)
	assert.Equal(t, values.RiskLow, result.RiskLevel)
	assert.Len(t, result.FirstDigit.Expected, 9)
	assert.Len(t, result.SecondDigit.Expected, 10)
}

func TestAnalyze_SecondDigitOnlyForTwoDigitValues(t *testing.T) {
	pop := population.Population{
		{ID: "1", Amount: 5},   // single digit, no second
		{ID: "2", Amount: 47},  // second digit 7
		{ID: "3", Amount: 470}, // second digit 7
	}

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	assert.Equal(t, 3, result.UsableValues)
	assert.Equal(t, 2, result.SecondDigit.Counts[7])
}

func TestChiSquarePValue(t *testing.T) {
	// chi=0 is perfect fit; huge chi is certain deviation.
	assert.InDelta(t, 1.0, chiSquarePValue(0, 8), 1e-9)
	assert.Less(t, chiSquarePValue(100, 8), 1e-6)
	// chi near df should be unremarkable.
	p := chiSquarePValue(8, 8)
	assert.Greater(t, p, 0.3)
	assert.Less(t, p, 0.7)
}

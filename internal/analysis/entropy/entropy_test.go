package entropy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
)

func rowWith(cat, sub string) population.Row {
	return population.Row{Raw: map[string]interface{}{"category": cat, "subcategory": sub}}
}

var testMapping = population.FieldMapping{CategoryKey: "category", SubcategoryKey: "subcategory"}

func TestShannon(t *testing.T) {
	tests := []struct {
		name   string
		counts map[string]int
		total  int
		want   float64
	}{
		{name: "empty", counts: map[string]int{}, total: 0, want: 0},
		{name: "single value", counts: map[string]int{"a": 10}, total: 10, want: 0},
		{name: "two equal", counts: map[string]int{"a": 5, "b": 5}, total: 10, want: 1},
		{name: "four equal", counts: map[string]int{"a": 1, "b": 1, "c": 1, "d": 1}, total: 4, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Shannon(tt.counts, tt.total), 1e-12)
		})
	}
}

func TestShannon_NonNegative(t *testing.T) {
	counts := map[string]int{"a": 3, "b": 7, "c": 90}
	h := Shannon(counts, 100)
	assert.GreaterOrEqual(t, h, 0.0)
	assert.LessOrEqual(t, h, math.Log2(3))
}

func TestAnalyze_EntropyStatistics(t *testing.T) {
	var pop population.Population
	// Two categories, each with a deterministic subcategory: knowing
	// the category fully determines the subcategory.
	for i := 0; i < 50; i++ {
		pop = append(pop, rowWith("travel", "domestic"))
		pop = append(pop, rowWith("payroll", "recurring"))
	}

	result := Analyze(pop, testMapping, DefaultConfig())

	assert.Equal(t, 100, result.TotalRows)
	assert.Equal(t, 2, result.CategoryCount)
	assert.Equal(t, 2, result.SubcategoryCount)
	assert.InDelta(t, 1.0, result.CategoryEntropy, 1e-12)
	assert.InDelta(t, 1.0, result.SubcategoryEntropy, 1e-12)
	// Subcategory is a function of category, so H(Y|X) = 0 and the
	// mutual information equals H(Y).
	assert.InDelta(t, 0.0, result.ConditionalEntropy, 1e-12)
	assert.InDelta(t, 1.0, result.MutualInformation, 1e-12)
	assert.Equal(t, result.MutualInformation, result.InformationGain)
}

func TestAnalyze_IndependentColumns(t *testing.T) {
	var pop population.Population
	for i := 0; i < 25; i++ {
		pop = append(pop, rowWith("a", "x"), rowWith("a", "y"), rowWith("b", "x"), rowWith("b", "y"))
	}

	result := Analyze(pop, testMapping, DefaultConfig())

	// Independent columns carry no mutual information.
	assert.InDelta(t, 1.0, result.ConditionalEntropy, 1e-12)
	assert.InDelta(t, 0.0, result.MutualInformation, 1e-12)
	assert.Empty(t, result.Anomalies)
}

func TestAnalyze_MutualInformationSymmetry(t *testing.T) {
	// A dependent but non-deterministic pair, so the mutual
	// information sits strictly between 0 and min(H(X), H(Y)).
	var pop population.Population
	add := func(cat, sub string, n int) {
		for i := 0; i < n; i++ {
			pop = append(pop, rowWith(cat, sub))
		}
	}
	add("travel", "domestic", 30)
	add("travel", "foreign", 10)
	add("payroll", "recurring", 40)
	add("payroll", "bonus", 5)
	add("ops", "misc", 15)

	forward := Analyze(pop, testMapping, DefaultConfig())
	reversed := Analyze(pop, population.FieldMapping{
		CategoryKey:    testMapping.SubcategoryKey,
		SubcategoryKey: testMapping.CategoryKey,
	}, DefaultConfig())

	// I(X;Y) = H(Y) - H(Y|X) must agree with I(Y;X) = H(X) - H(X|Y).
	assert.InDelta(t, forward.MutualInformation, reversed.MutualInformation, 1e-9)
	assert.Greater(t, forward.MutualInformation, 0.0)
	assert.Less(t, forward.MutualInformation,
		math.Min(forward.CategoryEntropy, forward.SubcategoryEntropy))
	// I(X;Y) recomputed the other way round: H(X) - H(X|Y), taking
	// the category entropy from the forward run and the conditional
	// entropy from the swapped one.
	assert.InDelta(t, forward.MutualInformation,
		forward.CategoryEntropy-reversed.ConditionalEntropy, 1e-9)
}

func TestAnalyze_FlagsRareCombinations(t *testing.T) {
	var pop population.Population
	for i := 0; i < 199; i++ {
		pop = append(pop, rowWith("supplies", "recurring"))
	}
	pop = append(pop, rowWith("supplies", "foreign")) // singleton

	result := Analyze(pop, testMapping, DefaultConfig())

	// threshold = floor(0.02 * 200) = 4
	assert.Equal(t, 4, result.RareThreshold)
	require.Len(t, result.Anomalies, 1)
	anomaly := result.Anomalies[0]
	assert.Equal(t, "supplies", anomaly.Category)
	assert.Equal(t, "foreign", anomaly.Subcategory)
	assert.Equal(t, 1, anomaly.Count)
	assert.InDelta(t, 0.005, anomaly.Frequency, 1e-12)
	assert.Equal(t, values.RiskHigh, anomaly.RiskLevel)
}

func TestAnalyze_AnomalyRiskBands(t *testing.T) {
	var pop population.Population
	for i := 0; i < 500; i++ {
		pop = append(pop, rowWith("bulk", "normal"))
	}
	pop = append(pop, rowWith("edge", "one")) // count 1 -> HIGH
	for i := 0; i < 4; i++ {
		pop = append(pop, rowWith("edge", "four")) // count 4 <= threshold/2 -> MEDIUM
	}
	for i := 0; i < 9; i++ {
		pop = append(pop, rowWith("edge", "nine")) // count 9 <= threshold -> LOW
	}

	result := Analyze(pop, testMapping, DefaultConfig())

	// threshold = floor(0.02 * 514) = 10
	require.Equal(t, 10, result.RareThreshold)
	require.Len(t, result.Anomalies, 3)

	// Sorted rarest first.
	assert.Equal(t, 1, result.Anomalies[0].Count)
	assert.Equal(t, values.RiskHigh, result.Anomalies[0].RiskLevel)
	assert.Equal(t, 4, result.Anomalies[1].Count)
	assert.Equal(t, values.RiskMedium, result.Anomalies[1].RiskLevel)
	assert.Equal(t, 9, result.Anomalies[2].Count)
	assert.Equal(t, values.RiskLow, result.Anomalies[2].RiskLevel)
}

func TestAnalyze_NullSubstitution(t *testing.T) {
	var pop population.Population
	for i := 0; i < 10; i++ {
		pop = append(pop, rowWith("travel", "domestic"))
	}
	pop = append(pop, population.Row{Raw: map[string]interface{}{"category": "travel", "subcategory": nil}})

	result := Analyze(pop, testMapping, DefaultConfig())

	// The absent subcategory becomes an explicit NULL value and, being
	// a singleton pair, is flagged.
	assert.Equal(t, 2, result.SubcategoryCount)
	require.Len(t, result.Anomalies, 1)
	assert.Equal(t, population.NullCategory, result.Anomalies[0].Subcategory)
	assert.Equal(t, values.RiskHigh, result.Anomalies[0].RiskLevel)
}

func TestAnalyze_NoCategoricalFields(t *testing.T) {
	pop := population.Population{{ID: "1"}, {ID: "2"}}

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	assert.Equal(t, 2, result.TotalRows)
	assert.Zero(t, result.CategoryEntropy)
	assert.Empty(t, result.Anomalies)
}

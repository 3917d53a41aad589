package sequence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
	"github.com/ledgerlens/forensic-audit-engine/internal/testutil/fixtures"
)

func TestAnalyze_DetectsGaps(t *testing.T) {
	pop := fixtures.GappedSequencePopulation(t, []int64{1, 2, 5, 6, 10})

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	assert.Equal(t, 5, result.TotalIDs)
	assert.Equal(t, 5, result.ParsedIDs)
	assert.Equal(t, int64(1), result.MinSequence)
	assert.Equal(t, int64(10), result.MaxSequence)

	require.Len(t, result.Gaps, 2)

	first := result.Gaps[0]
	assert.Equal(t, int64(3), first.Start)
	assert.Equal(t, int64(4), first.End)
	assert.Equal(t, int64(2), first.Size)
	assert.Equal(t, []int64{3, 4}, first.MissingIDs)
	assert.Equal(t, values.RiskMedium, first.RiskLevel)

	second := result.Gaps[1]
	assert.Equal(t, int64(7), second.Start)
	assert.Equal(t, int64(9), second.End)
	assert.Equal(t, int64(3), second.Size)

	assert.Equal(t, 2, result.TotalGaps)
	assert.Equal(t, int64(5), result.TotalMissing)
	assert.Equal(t, int64(3), result.LargestGap)
	assert.Equal(t, values.RiskMedium, result.RiskLevel)
}

func TestAnalyze_GapRiskClassification(t *testing.T) {
	tests := []struct {
		name string
		ids  []int64
		want values.RiskLevel
	}{
		{name: "no gaps", ids: []int64{1, 2, 3, 4}, want: values.RiskLow},
		{name: "single missing id", ids: []int64{1, 3}, want: values.RiskLow},
		{name: "medium gap", ids: []int64{1, 5}, want: values.RiskMedium},
		{name: "large gap", ids: []int64{1, 100}, want: values.RiskHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pop := fixtures.GappedSequencePopulation(t, tt.ids)
			result := Analyze(pop, population.FieldMapping{}, DefaultConfig())
			assert.Equal(t, tt.want, result.RiskLevel)
		})
	}
}

func TestAnalyze_TruncatesHugeGaps(t *testing.T) {
	pop := fixtures.GappedSequencePopulation(t, []int64{1, 1000})

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	require.Len(t, result.Gaps, 1)
	gap := result.Gaps[0]
	assert.Equal(t, int64(998), gap.Size)
	assert.Len(t, gap.MissingIDs, 50)
	assert.True(t, gap.Truncated)
	assert.Equal(t, int64(2), gap.MissingIDs[0])
	assert.Equal(t, int64(51), gap.MissingIDs[49])
	assert.Equal(t, int64(998), result.TotalMissing)
}

func TestAnalyze_DuplicatesAndUnparsableIDs(t *testing.T) {
	pop := population.Population{
		{ID: "INV-001"},
		{ID: "INV-001"}, // duplicate sequence
		{ID: "INV-003"},
		{ID: "NO-DIGITS"}, // unparsable, never fatal
	}

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	assert.Equal(t, 4, result.TotalIDs)
	assert.Equal(t, 3, result.ParsedIDs)
	require.Len(t, result.Gaps, 1)
	assert.Equal(t, int64(1), result.Gaps[0].Size)
}

func TestAnalyze_TooFewIDs(t *testing.T) {
	result := Analyze(population.Population{{ID: "INV-5"}}, population.FieldMapping{}, DefaultConfig())
	assert.Equal(t, 1, result.ParsedIDs)
	assert.Empty(t, result.Gaps)
	assert.Equal(t, values.RiskLow, result.RiskLevel)
}

func TestAnalyze_PatternNotes(t *testing.T) {
	// 30% of the range missing triggers the missing-rate note.
	pop := fixtures.GappedSequencePopulation(t, []int64{1, 2, 3, 4, 5, 6, 7, 10})

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	require.NotEmpty(t, result.PatternNotes)
	assert.Contains(t, result.PatternNotes[0], "1 gap(s) detected")
	found := false
	for _, note := range result.PatternNotes {
		if note == "missing rate 20.0% of the sequence range exceeds 10%" {
			found = true
		}
	}
	assert.True(t, found, "expected missing-rate note, got %v", result.PatternNotes)
}

func TestAnalyze_CustomCutoffs(t *testing.T) {
	pop := fixtures.GappedSequencePopulation(t, []int64{1, 5})
	cfg := Config{LowMax: 10, MediumMax: 20, MissingIDSampleCap: 50}

	result := Analyze(pop, population.FieldMapping{}, cfg)

	require.Len(t, result.Gaps, 1)
	assert.Equal(t, values.RiskLow, result.Gaps[0].RiskLevel)
}

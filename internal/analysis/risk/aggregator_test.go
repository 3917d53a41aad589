package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/actor"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/benford"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/entropy"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/isoforest"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
	"github.com/ledgerlens/forensic-audit-engine/internal/testutil/fixtures"
)

func TestAggregate_NoSignals(t *testing.T) {
	pop := population.Population{
		{ID: "A", Amount: 123},
		{ID: "B", Amount: 456},
	}

	result := Aggregate(pop, population.FieldMapping{}, Inputs{})

	require.Len(t, result.Rows, 2)
	for i, rr := range result.Rows {
		assert.Equal(t, i, rr.RowIndex)
		assert.Equal(t, pop[i].ID, rr.RowID)
		assert.Equal(t, values.RiskLow, rr.RiskLevel)
		assert.Zero(t, rr.Score)
		assert.Empty(t, rr.Signals)
	}
}

func TestAggregate_ForestSignal(t *testing.T) {
	pop := population.Population{
		{ID: "A", Amount: 100},
		{ID: "B", Amount: 999999},
	}

	in := Inputs{
		Forest: isoforest.Result{Scores: []isoforest.Score{
			{RowIndex: 0, Value: 0.3, IsAnomaly: false, RiskLevel: values.RiskLow},
			{RowIndex: 1, Value: 0.8, IsAnomaly: true, RiskLevel: values.RiskHigh},
		}},
	}

	result := Aggregate(pop, population.FieldMapping{}, in)

	assert.Empty(t, result.Rows[0].Signals)

	require.Len(t, result.Rows[1].Signals, 1)
	sig := result.Rows[1].Signals[0]
	assert.Equal(t, SourceForest, sig.Source)
	assert.Equal(t, values.RiskHigh, result.Rows[1].RiskLevel)
	assert.InDelta(t, weightForest*0.8, result.Rows[1].Score, 1e-9)
}

func TestAggregate_EntropySignal(t *testing.T) {
	pop := population.Population{
		{ID: "A", Raw: map[string]interface{}{"category": "travel", "subcategory": "foreign"}},
		{ID: "B", Raw: map[string]interface{}{"category": "travel", "subcategory": "domestic"}},
	}
	mapping := population.FieldMapping{CategoryKey: "category", SubcategoryKey: "subcategory"}

	in := Inputs{
		Entropy: entropy.Result{Anomalies: []entropy.Combination{
			{Category: "travel", Subcategory: "foreign", Count: 1, Frequency: 0.01, RiskLevel: values.RiskHigh},
		}},
	}

	result := Aggregate(pop, mapping, in)

	require.Len(t, result.Rows[0].Signals, 1)
	assert.Equal(t, SourceEntropy, result.Rows[0].Signals[0].Source)
	assert.Equal(t, values.RiskHigh, result.Rows[0].RiskLevel)
	assert.Empty(t, result.Rows[1].Signals)
}

func TestAggregate_ActorSignal(t *testing.T) {
	pop := population.Population{
		{ID: "A"}, {ID: "B"}, {ID: "C"},
	}

	in := Inputs{
		Actors: actor.Result{Profiles: []actor.Profile{
			{ActorID: "U1", RowIndexes: []int{0, 2}, RiskScore: 80, RiskLevel: values.RiskHigh},
			{ActorID: "U2", RowIndexes: []int{1}, RiskScore: 10, RiskLevel: values.RiskLow},
		}},
	}

	result := Aggregate(pop, population.FieldMapping{}, in)

	// LOW actor profiles contribute nothing; HIGH ones mark every row.
	require.Len(t, result.Rows[0].Signals, 1)
	assert.Equal(t, SourceActor, result.Rows[0].Signals[0].Source)
	assert.Equal(t, "U1", result.Rows[0].Signals[0].Detail)
	assert.Empty(t, result.Rows[1].Signals)
	require.Len(t, result.Rows[2].Signals, 1)
	assert.InDelta(t, weightActor*0.8, result.Rows[0].Score, 1e-9)
}

func TestAggregate_LevelIsMaxAcrossSignals(t *testing.T) {
	pop := population.Population{{ID: "A"}}

	in := Inputs{
		Forest: isoforest.Result{Scores: []isoforest.Score{
			{RowIndex: 0, Value: 0.65, IsAnomaly: true, RiskLevel: values.RiskMedium},
		}},
		Actors: actor.Result{Profiles: []actor.Profile{
			{ActorID: "U1", RowIndexes: []int{0}, RiskScore: 90, RiskLevel: values.RiskHigh},
		}},
	}

	result := Aggregate(pop, population.FieldMapping{}, in)

	require.Len(t, result.Rows[0].Signals, 2)
	assert.Equal(t, values.RiskHigh, result.Rows[0].RiskLevel)
}

func TestAggregate_DigitSignalOnlyWhenColumnDeviates(t *testing.T) {
	conforming := benford.Result{RiskLevel: values.RiskLow}
	assert.Empty(t, overrepresentedDigits(conforming))

	deviant := benford.Result{
		RiskLevel: values.RiskHigh,
		FirstDigit: benford.DigitDistribution{
			Observed: []float64{0.15, 0.10, 0.12, 0.11, 0.11, 0.11, 0.10, 0.10, 0.10},
			Expected: []float64{0.301, 0.176, 0.125, 0.097, 0.079, 0.067, 0.058, 0.051, 0.046},
			MAD:      0.05,
		},
	}
	hot := overrepresentedDigits(deviant)
	// Only digits whose excess exceeds the MAD qualify: 9 has
	// 0.100-0.046 = 0.054 > 0.05, 8 has 0.049 < 0.05.
	assert.Contains(t, hot, 9)
	assert.NotContains(t, hot, 8)
	assert.NotContains(t, hot, 1)

	sig, ok := digitSignal(900, deviant, hot)
	require.True(t, ok)
	assert.Equal(t, SourceDigit, sig.Source)
	assert.Equal(t, values.RiskHigh, sig.RiskLevel)

	_, ok = digitSignal(100, deviant, hot)
	assert.False(t, ok)
	_, ok = digitSignal(0, deviant, hot)
	assert.False(t, ok)
}

func TestRanked_OrdersByLevelThenScore(t *testing.T) {
	r := Result{Rows: []RowRisk{
		{RowIndex: 0, Score: 50, RiskLevel: values.RiskMedium},
		{RowIndex: 1, Score: 10, RiskLevel: values.RiskHigh},
		{RowIndex: 2, Score: 90, RiskLevel: values.RiskMedium},
		{RowIndex: 3, Score: 5, RiskLevel: values.RiskLow},
		{RowIndex: 4, Score: 10, RiskLevel: values.RiskHigh},
	}}

	ranked := r.Ranked()

	// HIGH rows first (tie broken by original order), then MEDIUM by
	// score, then LOW.
	assert.Equal(t, []int{1, 4, 2, 0, 3}, ranked)
}

func TestAggregate_EndToEnd(t *testing.T) {
	pop := fixtures.SuspiciousActorPopulation(t, 9, 100)
	mapping := population.FieldMapping{ActorIDKey: "actor_id"}

	actors := actor.Analyze(pop, mapping, actor.DefaultConfig())
	forest := isoforest.Analyze(context.Background(), pop, mapping, isoforest.DefaultConfig())

	result := Aggregate(pop, mapping, Inputs{Actors: actors, Forest: forest})

	require.Len(t, result.Rows, 100)
	// Every one of the bad actor's rows (every fifth) carries the actor
	// signal and ends up HIGH.
	for idx := 0; idx < 100; idx += 5 {
		assert.Equal(t, values.RiskHigh, result.Rows[idx].RiskLevel, "row %d", idx)
	}
	// The bad actor's 20 rows rank near the top; only forest-flagged
	// outliers may interleave.
	ranked := result.Ranked()
	suspiciousInTop := 0
	for _, idx := range ranked[:25] {
		if idx%5 == 0 {
			suspiciousInTop++
		}
	}
	assert.Equal(t, 20, suspiciousInTop)
}

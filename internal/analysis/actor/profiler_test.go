package actor

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/values"
	"github.com/ledgerlens/forensic-audit-engine/internal/testutil/fixtures"
)

var actorMapping = population.FieldMapping{ActorIDKey: "actor_id", ActorNameKey: "actor_name"}

func actorRow(actor string, amount float64, ts time.Time) population.Row {
	return population.Row{
		Amount:    amount,
		Timestamp: &ts,
		Raw:       map[string]interface{}{"actor_id": actor},
	}
}

func TestAnalyze_GroupsByActor(t *testing.T) {
	monday := time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)
	pop := population.Population{
		actorRow("U1", 100, monday),
		actorRow("U2", 200, monday),
		actorRow("U1", 300, monday),
		{Amount: 400, Timestamp: &monday}, // no actor
	}

	result := Analyze(pop, actorMapping, DefaultConfig())

	assert.Equal(t, 2, result.TotalActors)
	assert.Equal(t, 1, result.UnattributedRows)

	var u1 Profile
	for _, p := range result.Profiles {
		if p.ActorID == "U1" {
			u1 = p
		}
	}
	assert.Equal(t, 2, u1.Count)
	assert.Equal(t, []int{0, 2}, u1.RowIndexes)
	assert.Equal(t, 400.0, u1.TotalAmount)
	assert.Equal(t, 200.0, u1.AverageAmount)
}

func TestAnalyze_BehavioralCounters(t *testing.T) {
	saturday := time.Date(2025, 1, 11, 2, 0, 0, 0, time.UTC) // weekend, off-hours
	tuesday := time.Date(2025, 1, 7, 14, 0, 0, 0, time.UTC)

	pop := population.Population{
		actorRow("U1", 15000, saturday), // weekend + off-hours + round + high-value
		actorRow("U1", 15000, tuesday),  // duplicate pair member
		actorRow("U1", 137.12, tuesday),
	}

	result := Analyze(pop, actorMapping, DefaultConfig())

	require.Len(t, result.Profiles, 1)
	p := result.Profiles[0]
	assert.Equal(t, 1, p.WeekendCount)
	assert.Equal(t, 1, p.OffHoursCount)
	assert.Equal(t, 2, p.RoundAmountCount) // both 15000s divide by 100
	assert.Equal(t, 2, p.DuplicateCount)
	assert.Equal(t, 2, p.HighValueCount)
}

func TestAnalyze_SuspiciousActor(t *testing.T) {
	pop := fixtures.SuspiciousActorPopulation(t, 42, 100)

	result := Analyze(pop, actorMapping, DefaultConfig())

	require.NotEmpty(t, result.Suspicious)
	assert.Contains(t, result.Suspicious, "U666")

	// Profiles come back ordered by descending risk score.
	assert.Equal(t, "U666", result.Profiles[0].ActorID)
	assert.Equal(t, values.RiskHigh, result.Profiles[0].RiskLevel)
	assert.True(t, result.Profiles[0].Suspicious)
	for i := 1; i < len(result.Profiles); i++ {
		assert.LessOrEqual(t, result.Profiles[i].RiskScore, result.Profiles[i-1].RiskScore)
	}
}

func TestAnalyze_NoActorField(t *testing.T) {
	pop := population.Population{{ID: "1", Amount: 10}}

	result := Analyze(pop, population.FieldMapping{}, DefaultConfig())

	assert.Zero(t, result.TotalActors)
	assert.Equal(t, 1, result.UnattributedRows)
	assert.Empty(t, result.Profiles)
}

func TestCompositeScore_Bounds(t *testing.T) {
	cfg := DefaultConfig()

	// Every signal saturated clips at 100.
	extreme := Profile{
		Count:            10,
		WeekendCount:     10,
		OffHoursCount:    10,
		RoundAmountCount: 10,
		DuplicateCount:   10,
		HighValueCount:   10,
		ConsecutiveDays:  10,
	}
	assert.Equal(t, 100.0, compositeScore(extreme, cfg))

	assert.Zero(t, compositeScore(Profile{}, cfg))

	clean := Profile{Count: 10}
	assert.Zero(t, compositeScore(clean, cfg))
}

func TestInOffHours(t *testing.T) {
	tests := []struct {
		hour int
		want bool
	}{
		{hour: 23, want: true},
		{hour: 2, want: true},
		{hour: 5, want: true},
		{hour: 6, want: false},
		{hour: 12, want: false},
		{hour: 22, want: true},
		{hour: 21, want: false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("hour_%d", tt.hour), func(t *testing.T) {
			assert.Equal(t, tt.want, inOffHours(tt.hour, 22, 6))
		})
	}
}

func TestLongestDayRun(t *testing.T) {
	days := map[string]struct{}{
		"2025-01-06": {},
		"2025-01-07": {},
		"2025-01-08": {},
		"2025-01-10": {},
	}
	assert.Equal(t, 3, longestDayRun(days))
	assert.Zero(t, longestDayRun(nil))
	assert.Equal(t, 1, longestDayRun(map[string]struct{}{"2025-01-06": {}}))
}

func TestIsRound(t *testing.T) {
	assert.True(t, isRound(15000, 100))
	assert.True(t, isRound(100, 100))
	assert.False(t, isRound(137.12, 100))
	assert.False(t, isRound(150, 100))
	assert.True(t, isRound(150, 50))
}

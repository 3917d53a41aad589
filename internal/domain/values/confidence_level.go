package values

import (
	"fmt"
	"math"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
)

// ConfidenceLevel represents an audit confidence level as a fraction in
// the open interval (0, 1), e.g. 0.95 for 95% confidence.
type ConfidenceLevel struct {
	value float64
}

// Reliability factors for monetary-unit sampling at zero expected
// misstatements, from the standard Poisson-based attribute tables.
var reliabilityFactors = map[int]float64{
	80: 1.61,
	85: 1.90,
	90: 2.31,
	95: 3.00,
	98: 3.91,
	99: 4.61,
}

// Two-sided z-scores for classical variables sampling.
var zScores = map[int]float64{
	80: 1.282,
	85: 1.440,
	90: 1.645,
	95: 1.960,
	98: 2.326,
	99: 2.576,
}

// NewConfidenceLevel creates a ConfidenceLevel from a fraction.
// Percent-style inputs (1 < v <= 100) are normalized to fractions so a
// caller may pass either 0.95 or 95.
func NewConfidenceLevel(value float64) (ConfidenceLevel, error) {
	if value > 1 && value <= 100 {
		value /= 100
	}
	if value <= 0 || value >= 1 {
		return ConfidenceLevel{}, errors.NewConfigurationError("INVALID_CONFIDENCE",
			fmt.Sprintf("confidence level %v must lie in (0, 1)", value))
	}
	return ConfidenceLevel{value: value}, nil
}

// MustNewConfidenceLevel creates a ConfidenceLevel and panics on error (for tests)
func MustNewConfidenceLevel(value float64) ConfidenceLevel {
	cl, err := NewConfidenceLevel(value)
	if err != nil {
		panic(err)
	}
	return cl
}

// Value returns the confidence level as a fraction
func (c ConfidenceLevel) Value() float64 {
	return c.value
}

// Percent returns the confidence level as a percentage
func (c ConfidenceLevel) Percent() float64 {
	return c.value * 100
}

func (c ConfidenceLevel) String() string {
	return fmt.Sprintf("%.1f%%", c.Percent())
}

// ReliabilityFactor returns the MUS reliability factor for this level,
// snapped to the nearest tabulated confidence percentage.
func (c ConfidenceLevel) ReliabilityFactor() float64 {
	return lookupNearest(reliabilityFactors, c.Percent())
}

// ZScore returns the two-sided normal deviate for this level, snapped
// to the nearest tabulated confidence percentage.
func (c ConfidenceLevel) ZScore() float64 {
	return lookupNearest(zScores, c.Percent())
}

func lookupNearest(table map[int]float64, percent float64) float64 {
	bestKey := 95
	bestDist := math.Inf(1)
	for key := range table {
		dist := math.Abs(float64(key) - percent)
		if dist < bestDist || (dist == bestDist && key < bestKey) {
			bestKey = key
			bestDist = dist
		}
	}
	return table[bestKey]
}

package isoforest

import (
	"context"
	"fmt"
	"math"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
)

// FeatureNames label the columns of the matrix BuildFeatures emits
var FeatureNames = []string{
	"amount",
	"abs_amount_log",
	"cents_fraction",
	"hour_of_day",
	"day_of_week",
}

// BuildFeatures derives the numeric feature matrix the forest
// partitions. Rows without a timestamp get neutral temporal values.
func BuildFeatures(pop population.Population, mapping population.FieldMapping) [][]float64 {
	matrix := make([][]float64, pop.Size())
	for i, row := range pop {
		amount := mapping.Amount(row)
		abs := math.Abs(amount)

		cents := abs - math.Floor(abs)
		hour, weekday := 12.0, 3.0
		if ts, ok := mapping.Timestamp(row); ok {
			hour = float64(ts.Hour())
			weekday = float64(ts.Weekday())
		}

		matrix[i] = []float64{
			amount,
			math.Log1p(abs),
			cents,
			hour,
			weekday,
		}
	}
	return matrix
}

// Analyze builds a forest over the population's derived features and
// scores every row. Oversized ensemble requests are clamped to the
// hard caps with an explanatory note rather than rejected.
func Analyze(ctx context.Context, pop population.Population, mapping population.FieldMapping, cfg Config) Result {
	result := Result{}
	if pop.Size() < 2 {
		result.Notes = append(result.Notes, "population too small for isolation analysis")
		return result
	}

	if cfg.Trees <= 0 {
		cfg.Trees = DefaultConfig().Trees
	}
	if cfg.SubsampleSize <= 0 {
		cfg.SubsampleSize = DefaultConfig().SubsampleSize
	}
	if cfg.Threshold <= 0 || cfg.Threshold >= 1 {
		cfg.Threshold = DefaultConfig().Threshold
	}
	if cfg.Trees > MaxTrees {
		result.Notes = append(result.Notes,
			fmt.Sprintf("ensemble size %d clamped to cap %d", cfg.Trees, MaxTrees))
		cfg.Trees = MaxTrees
	}
	if cfg.SubsampleSize > MaxSubsampleSize {
		result.Notes = append(result.Notes,
			fmt.Sprintf("subsample size %d clamped to cap %d", cfg.SubsampleSize, MaxSubsampleSize))
		cfg.SubsampleSize = MaxSubsampleSize
	}
	result.TreesPlanned = cfg.Trees

	matrix := BuildFeatures(pop, mapping)
	forest, built, truncated := Build(ctx, matrix, cfg)
	result.TreesBuilt = built
	result.Truncated = truncated
	if truncated {
		result.Notes = append(result.Notes,
			fmt.Sprintf("time budget expired after %d of %d trees; scores are partial", built, cfg.Trees))
	}
	if built == 0 {
		return result
	}

	result.Scores = make([]Score, len(matrix))
	for i, point := range matrix {
		score := forest.ScorePoint(point)
		isAnomaly, level := classifyScore(score, cfg.Threshold)
		result.Scores[i] = Score{
			RowIndex:  i,
			Value:     score,
			IsAnomaly: isAnomaly,
			RiskLevel: level,
		}
	}
	return result
}

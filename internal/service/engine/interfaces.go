package engine

import (
	"context"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/sampling"
)

// Service is the engine's public surface. Callers hand in an ordered
// population plus a field mapping; results come back as self-contained
// value objects. The engine persists nothing.
type Service interface {
	// AnalyzePopulation runs the independent analyzers over the rows
	// and merges their signals into per-row composite risk. A hard
	// failure occurs only for an empty population; data problems
	// degrade to neutral results with warnings.
	AnalyzePopulation(ctx context.Context, pop population.Population, mapping population.FieldMapping, opts Options) (*AnalysisResult, error)

	// PlanSample produces an audit sample plan. The risk-directed
	// method runs a full analysis first to rank the population; the
	// statistical methods work on the raw population.
	PlanSample(ctx context.Context, pop population.Population, mapping population.FieldMapping, params sampling.Parameters, opts Options) (*sampling.SamplePlan, error)
}

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/actor"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/benford"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/entropy"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/isoforest"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/risk"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/sequence"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/workers"
	"github.com/ledgerlens/forensic-audit-engine/internal/metrics"
	"github.com/ledgerlens/forensic-audit-engine/internal/sampling"
)

// service implements the Service interface
type service struct {
	planner  *sampling.Planner
	pool     *workers.Pool
	logger   *slog.Logger
	registry *metrics.Registry

	defaults Options
}

// NewService creates the audit analysis engine. The logger and metrics
// registry are optional; defaults supplies the analyzer configuration
// used when a call leaves Options members zero.
func NewService(pool *workers.Pool, logger *slog.Logger, registry *metrics.Registry, defaults Options) Service {
	if logger == nil {
		logger = slog.Default()
	}
	if pool == nil {
		pool = workers.NewPool(DefaultParallelism, nil)
	}
	return &service{
		planner:  sampling.NewPlanner(),
		pool:     pool,
		logger:   logger,
		registry: registry,
		defaults: defaults,
	}
}

// AnalyzePopulation runs the five independent analyzers in parallel
// over the rows, then merges their signals per row.
func (s *service) AnalyzePopulation(ctx context.Context, pop population.Population, mapping population.FieldMapping, opts Options) (*AnalysisResult, error) {
	if pop.IsEmpty() {
		return nil, errors.NewEmptyPopulationError()
	}

	opts = s.mergeOptions(opts)
	started := time.Now()

	budgetCtx, cancel := context.WithTimeout(ctx, opts.TimeBudget)
	defer cancel()

	result := &AnalysisResult{
		ID:             uuid.New(),
		CreatedAt:      started.UTC(),
		PopulationSize: pop.Size(),
	}

	// Each task writes only its own result slot; rows are never
	// mutated, so the analyzers share the population freely.
	tasks := []workers.Task{
		{Name: AnalyzerBenford, Run: func(ctx context.Context) error {
			result.Benford = benford.Analyze(pop, mapping, opts.Benford)
			return nil
		}},
		{Name: AnalyzerEntropy, Run: func(ctx context.Context) error {
			result.Entropy = entropy.Analyze(pop, mapping, opts.Entropy)
			return nil
		}},
		{Name: AnalyzerSequence, Run: func(ctx context.Context) error {
			result.Sequence = sequence.Analyze(pop, mapping, opts.Sequence)
			return nil
		}},
		{Name: AnalyzerForest, Run: func(ctx context.Context) error {
			forestStart := time.Now()
			result.Forest = isoforest.Analyze(ctx, pop, mapping, opts.Forest)
			if s.registry != nil {
				s.registry.ForestBuildDuration.Record(ctx, float64(time.Since(forestStart).Milliseconds()))
				s.registry.ForestTreesBuilt.Add(ctx, int64(result.Forest.TreesBuilt))
			}
			return nil
		}},
		{Name: AnalyzerActor, Run: func(ctx context.Context) error {
			result.Actors = actor.Analyze(pop, mapping, opts.Actor)
			return nil
		}},
	}

	for _, res := range s.pool.Run(budgetCtx, tasks) {
		switch {
		case res.Skipped:
			result.Truncated = true
			result.Stats.AnalyzersSkipped++
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("analyzer %s skipped: time budget exceeded", res.Name))
		case res.Err != nil:
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("analyzer %s: %v", res.Name, res.Err))
			result.Stats.AnalyzersRun++
		default:
			result.Stats.AnalyzersRun++
		}
	}
	if result.Forest.Truncated {
		result.Truncated = true
		result.Warnings = append(result.Warnings, "isolation forest returned a partial ensemble")
	}

	result.Risk = risk.Aggregate(pop, mapping, risk.Inputs{
		Benford: result.Benford,
		Entropy: result.Entropy,
		Forest:  result.Forest,
		Actors:  result.Actors,
	})

	result.Stats.RowsScanned = pop.Size()
	result.Stats.Elapsed = time.Since(started)

	s.recordAnalysis(ctx, result)
	s.logger.InfoContext(ctx, "population analyzed",
		"analysis_id", result.ID,
		"rows", pop.Size(),
		"elapsed", result.Stats.Elapsed,
		"truncated", result.Truncated,
	)
	return result, nil
}

// PlanSample produces a sample plan, ranking the population first when
// the method is risk-directed.
func (s *service) PlanSample(ctx context.Context, pop population.Population, mapping population.FieldMapping, params sampling.Parameters, opts Options) (*sampling.SamplePlan, error) {
	if pop.IsEmpty() {
		return nil, errors.NewEmptyPopulationError()
	}

	var ranking []int
	if params.Method == sampling.MethodRiskDirected {
		analysis, err := s.AnalyzePopulation(ctx, pop, mapping, opts)
		if err != nil {
			return nil, err
		}
		ranking = analysis.Risk.Ranked()
	}

	plan, err := s.planner.Plan(ctx, pop, mapping, params, ranking)
	if err != nil {
		return nil, err
	}

	if s.registry != nil {
		capped := plan.TargetSize < plan.ComputedSize
		s.registry.RecordSamplePlan(ctx, plan.Method, len(plan.SelectedIDs), capped)
	}
	s.logger.InfoContext(ctx, "sample plan produced",
		"plan_id", plan.ID,
		"method", plan.Method,
		"computed_size", plan.ComputedSize,
		"target_size", plan.TargetSize,
		"selected", len(plan.SelectedIDs),
	)
	return plan, nil
}

// mergeOptions resolves the effective options for one call: the
// service defaults (falling back to the package defaults for any
// concern the service left unset) overlaid with the caller's non-zero
// members, field by field, so a partial override keeps everything it
// did not set.
func (s *service) mergeOptions(opts Options) Options {
	merged := s.defaults

	if merged.Benford.MinSampleSize == 0 {
		merged.Benford = benford.DefaultConfig()
	}
	if merged.Entropy.RarityThreshold == 0 {
		merged.Entropy = entropy.DefaultConfig()
	}
	if merged.Sequence.LowMax == 0 {
		merged.Sequence = sequence.DefaultConfig()
	}
	if merged.Forest.Trees == 0 {
		merged.Forest = isoforest.DefaultConfig()
	}
	if merged.Actor.RoundAmountUnit == 0 {
		merged.Actor = actor.DefaultConfig()
	}
	if merged.TimeBudget == 0 {
		merged.TimeBudget = DefaultTimeBudget
	}
	if merged.Parallelism == 0 {
		merged.Parallelism = DefaultParallelism
	}

	if opts.Benford.MinSampleSize > 0 {
		merged.Benford.MinSampleSize = opts.Benford.MinSampleSize
	}
	if opts.Entropy.RarityThreshold > 0 {
		merged.Entropy.RarityThreshold = opts.Entropy.RarityThreshold
	}
	if opts.Sequence.LowMax > 0 {
		merged.Sequence.LowMax = opts.Sequence.LowMax
	}
	if opts.Sequence.MediumMax > 0 {
		merged.Sequence.MediumMax = opts.Sequence.MediumMax
	}
	if opts.Sequence.MissingIDSampleCap > 0 {
		merged.Sequence.MissingIDSampleCap = opts.Sequence.MissingIDSampleCap
	}
	if opts.Forest.Trees > 0 {
		merged.Forest.Trees = opts.Forest.Trees
	}
	if opts.Forest.SubsampleSize > 0 {
		merged.Forest.SubsampleSize = opts.Forest.SubsampleSize
	}
	if opts.Forest.Threshold > 0 {
		merged.Forest.Threshold = opts.Forest.Threshold
	}
	if opts.Forest.Seed != 0 {
		merged.Forest.Seed = opts.Forest.Seed
	}
	// The off-hours bounds travel as a pair: 0 is a valid midnight
	// bound, so either end being set adopts both.
	if opts.Actor.OffHoursStart > 0 || opts.Actor.OffHoursEnd > 0 {
		merged.Actor.OffHoursStart = opts.Actor.OffHoursStart
		merged.Actor.OffHoursEnd = opts.Actor.OffHoursEnd
	}
	if opts.Actor.RoundAmountUnit > 0 {
		merged.Actor.RoundAmountUnit = opts.Actor.RoundAmountUnit
	}
	if opts.Actor.HighValueThreshold > 0 {
		merged.Actor.HighValueThreshold = opts.Actor.HighValueThreshold
	}
	if opts.Actor.SuspiciousCutoff > 0 {
		merged.Actor.SuspiciousCutoff = opts.Actor.SuspiciousCutoff
	}
	if opts.Actor.MediumScore > 0 {
		merged.Actor.MediumScore = opts.Actor.MediumScore
	}
	if opts.Actor.HighScore > 0 {
		merged.Actor.HighScore = opts.Actor.HighScore
	}
	if opts.Actor.Weights != (actor.Weights{}) {
		merged.Actor.Weights = opts.Actor.Weights
	}
	if opts.TimeBudget > 0 {
		merged.TimeBudget = opts.TimeBudget
	}
	if opts.Parallelism > 0 {
		merged.Parallelism = opts.Parallelism
	}
	return merged
}

func (s *service) recordAnalysis(ctx context.Context, result *AnalysisResult) {
	if s.registry == nil {
		return
	}
	s.registry.RecordAnalysis(ctx, result.PopulationSize, result.Stats.Elapsed, result.Truncated)
	s.registry.RecordAnomalies(ctx, AnalyzerEntropy, len(result.Entropy.Anomalies))
	s.registry.RecordAnomalies(ctx, AnalyzerSequence, result.Sequence.TotalGaps)

	forestAnomalies := 0
	for _, sc := range result.Forest.Scores {
		if sc.IsAnomaly {
			forestAnomalies++
		}
	}
	s.registry.RecordAnomalies(ctx, AnalyzerForest, forestAnomalies)
	s.registry.RecordAnomalies(ctx, AnalyzerActor, len(result.Actors.Suspicious))
}

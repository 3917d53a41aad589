package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/telemetry"
)

// Registry holds all domain-specific metrics for the engine
type Registry struct {
	meter metric.Meter

	// Analysis metrics
	AnalysisDuration    metric.Float64Histogram
	AnalysisCounter     metric.Int64Counter
	AnalysisTruncations metric.Int64Counter
	AnomaliesFlagged    metric.Int64Counter
	PopulationSize      metric.Int64Histogram
	ForestBuildDuration metric.Float64Histogram
	ForestTreesBuilt    metric.Int64Counter

	// Sampling metrics
	SamplePlanCounter metric.Int64Counter
	SampleSize        metric.Int64Histogram
	SampleCapHits     metric.Int64Counter
}

// NewRegistry creates a new metrics registry with all domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := telemetry.Meter(meterName)
	r := &Registry{meter: meter}

	if err := r.initAnalysisMetrics(); err != nil {
		return nil, err
	}
	if err := r.initSamplingMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Registry) initAnalysisMetrics() error {
	var err error

	r.AnalysisDuration, err = r.meter.Float64Histogram(
		"audit.analysis.duration",
		metric.WithDescription("Duration of full population analysis in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000),
	)
	if err != nil {
		return err
	}

	r.AnalysisCounter, err = r.meter.Int64Counter(
		"audit.analysis.total",
		metric.WithDescription("Total analysis invocations"),
	)
	if err != nil {
		return err
	}

	r.AnalysisTruncations, err = r.meter.Int64Counter(
		"audit.analysis.truncations_total",
		metric.WithDescription("Analyses cut short by the time budget"),
	)
	if err != nil {
		return err
	}

	r.AnomaliesFlagged, err = r.meter.Int64Counter(
		"audit.analysis.anomalies_total",
		metric.WithDescription("Anomalies flagged, labeled by analyzer"),
	)
	if err != nil {
		return err
	}

	r.PopulationSize, err = r.meter.Int64Histogram(
		"audit.analysis.population_size",
		metric.WithDescription("Row counts of analyzed populations"),
		metric.WithExplicitBucketBoundaries(10, 100, 1000, 10000, 100000, 1000000),
	)
	if err != nil {
		return err
	}

	r.ForestBuildDuration, err = r.meter.Float64Histogram(
		"audit.forest.build_duration",
		metric.WithDescription("Isolation forest construction time in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(1, 10, 50, 100, 500, 1000, 5000, 15000),
	)
	if err != nil {
		return err
	}

	r.ForestTreesBuilt, err = r.meter.Int64Counter(
		"audit.forest.trees_total",
		metric.WithDescription("Isolation trees constructed"),
	)
	return err
}

func (r *Registry) initSamplingMetrics() error {
	var err error

	r.SamplePlanCounter, err = r.meter.Int64Counter(
		"audit.sampling.plans_total",
		metric.WithDescription("Sample plans produced, labeled by method"),
	)
	if err != nil {
		return err
	}

	r.SampleSize, err = r.meter.Int64Histogram(
		"audit.sampling.size",
		metric.WithDescription("Final sample sizes"),
		metric.WithExplicitBucketBoundaries(10, 30, 60, 100, 250, 500, 1000, 2000),
	)
	if err != nil {
		return err
	}

	r.SampleCapHits, err = r.meter.Int64Counter(
		"audit.sampling.cap_hits_total",
		metric.WithDescription("Computed sample sizes clamped by the oversize cap"),
	)
	return err
}

// RecordAnalysis records one completed analysis invocation
func (r *Registry) RecordAnalysis(ctx context.Context, populationSize int, duration time.Duration, truncated bool) {
	r.AnalysisCounter.Add(ctx, 1)
	r.AnalysisDuration.Record(ctx, float64(duration.Milliseconds()))
	r.PopulationSize.Record(ctx, int64(populationSize))
	if truncated {
		r.AnalysisTruncations.Add(ctx, 1)
	}
}

// RecordAnomalies records flagged anomalies for one analyzer
func (r *Registry) RecordAnomalies(ctx context.Context, analyzer string, count int) {
	if count <= 0 {
		return
	}
	r.AnomaliesFlagged.Add(ctx, int64(count),
		metric.WithAttributes(attribute.String("analyzer", analyzer)))
}

// RecordSamplePlan records one produced plan
func (r *Registry) RecordSamplePlan(ctx context.Context, method string, size int, capped bool) {
	r.SamplePlanCounter.Add(ctx, 1,
		metric.WithAttributes(attribute.String("method", method)))
	r.SampleSize.Record(ctx, int64(size))
	if capped {
		r.SampleCapHits.Add(ctx, 1)
	}
}

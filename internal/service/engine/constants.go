package engine

import "time"

// Engine-level defaults; all overridable per call through Options.
const (
	// DefaultTimeBudget bounds one analysis invocation. The budget
	// exists because long-running analysis calls historically pushed
	// callers into timeout/retry loops; the engine fails (or truncates)
	// fast instead.
	DefaultTimeBudget = 30 * time.Second

	// DefaultParallelism bounds the analyzer fan-out.
	DefaultParallelism = 4
)

// Analyzer names used in warnings, stats, and metrics labels
const (
	AnalyzerBenford  = "benford"
	AnalyzerEntropy  = "entropy"
	AnalyzerSequence = "sequence"
	AnalyzerForest   = "isolation_forest"
	AnalyzerActor    = "actor_profile"
)

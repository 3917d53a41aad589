package engine

import (
	"time"

	"github.com/google/uuid"

	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/actor"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/benford"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/entropy"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/isoforest"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/risk"
	"github.com/ledgerlens/forensic-audit-engine/internal/analysis/sequence"
)

// Options carries the per-call analyzer configuration. Zero-valued
// members fall back to the engine's configured defaults; every tunable
// is overridable per call.
type Options struct {
	Benford  benford.Config   `json:"benford"`
	Entropy  entropy.Config   `json:"entropy"`
	Sequence sequence.Config  `json:"sequence"`
	Forest   isoforest.Config `json:"forest"`
	Actor    actor.Config     `json:"actor"`

	// TimeBudget bounds the whole analysis; on expiry the engine
	// returns whatever analyzers finished, flagged as truncated.
	TimeBudget time.Duration `json:"time_budget"`
	// Parallelism bounds the analyzer fan-out.
	Parallelism int `json:"parallelism"`
}

// Stats are the per-call counters. The engine keeps no global mutable
// state; every invocation counts from zero.
type Stats struct {
	RowsScanned      int           `json:"rows_scanned"`
	AnalyzersRun     int           `json:"analyzers_run"`
	AnalyzersSkipped int           `json:"analyzers_skipped"`
	Elapsed          time.Duration `json:"elapsed"`
}

// AnalysisResult bundles every analyzer's output with the merged
// per-row risk view. It is self-contained and JSON-serializable; the
// engine holds no reference to it after returning.
type AnalysisResult struct {
	ID             uuid.UUID `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	PopulationSize int       `json:"population_size"`

	Benford  benford.Result   `json:"benford"`
	Entropy  entropy.Result   `json:"entropy"`
	Sequence sequence.Result  `json:"sequence"`
	Forest   isoforest.Result `json:"isolation_forest"`
	Actors   actor.Result     `json:"actors"`
	Risk     risk.Result      `json:"risk"`

	// Truncated is set when the time budget expired before every
	// analyzer finished; Warnings name what was cut.
	Truncated bool     `json:"truncated"`
	Warnings  []string `json:"warnings,omitempty"`

	Stats Stats `json:"stats"`
}

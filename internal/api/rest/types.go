package rest

import (
	"time"

	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/sampling"
	"github.com/ledgerlens/forensic-audit-engine/internal/service/engine"
)

// AnalysisRequest carries a population and its field mapping for a
// one-shot analysis run. Options are optional; omitted members fall
// back to the server's configured defaults.
type AnalysisRequest struct {
	Rows    []population.Row        `json:"rows" validate:"required,min=1,max=1000000"`
	Mapping population.FieldMapping `json:"mapping"`
	Options *engine.Options         `json:"options,omitempty"`
}

// SampleRequest carries a population plus the sampling parameters for
// one plan. Risk-directed plans also run the analyzers, so Options
// apply there too.
type SampleRequest struct {
	Rows       []population.Row        `json:"rows" validate:"required,min=1,max=1000000"`
	Mapping    population.FieldMapping `json:"mapping"`
	Parameters sampling.Parameters     `json:"parameters" validate:"required"`
	Options    *engine.Options         `json:"options,omitempty"`
}

// ErrorResponse is the wire shape of a failed request
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries the machine-readable error taxonomy
type ErrorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status    string    `json:"status"`
	Version   string    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

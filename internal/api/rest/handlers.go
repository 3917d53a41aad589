package rest

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/ledgerlens/forensic-audit-engine/internal/domain/errors"
	"github.com/ledgerlens/forensic-audit-engine/internal/domain/population"
	"github.com/ledgerlens/forensic-audit-engine/internal/infrastructure/telemetry"
	"github.com/ledgerlens/forensic-audit-engine/internal/service/engine"
)

// maxRequestBody bounds request payloads at 64 MiB; a million-row
// population with raw fields stays comfortably under it.
const maxRequestBody = 64 << 20

// Handler exposes the engine over HTTP
type Handler struct {
	service   engine.Service
	validator *validator.Validate
	logger    *slog.Logger
	tracer    trace.Tracer
	version   string
}

// NewHandler creates the API handler
func NewHandler(svc engine.Service, logger *slog.Logger, version string) *Handler {
	return &Handler{
		service:   svc,
		validator: validator.New(),
		logger:    logger,
		tracer:    telemetry.Tracer("api.rest"),
		version:   version,
	}
}

// Routes registers the handler's endpoints on mux
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/analysis", h.handleAnalyze)
	mux.HandleFunc("POST /api/v1/samples", h.handlePlanSample)
	mux.HandleFunc("GET /healthz", h.handleHealth)
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "analysis.run")
	defer span.End()

	var req AnalysisRequest
	if !h.decode(w, r, &req) {
		return
	}
	span.SetAttributes(attribute.Int("population.size", len(req.Rows)))

	opts := engine.Options{}
	if req.Options != nil {
		opts = *req.Options
	}

	result, err := h.service.AnalyzePopulation(ctx, population.Population(req.Rows), req.Mapping, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handlePlanSample(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "sampling.plan")
	defer span.End()

	var req SampleRequest
	if !h.decode(w, r, &req) {
		return
	}
	span.SetAttributes(
		attribute.Int("population.size", len(req.Rows)),
		attribute.String("sampling.method", req.Parameters.Method),
	)

	opts := engine.Options{}
	if req.Options != nil {
		opts = *req.Options
	}

	plan, err := h.service.PlanSample(ctx, population.Population(req.Rows), req.Mapping, req.Parameters, opts)
	if err != nil {
		telemetry.RecordError(span, err)
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, plan)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Version:   h.version,
		Timestamp: time.Now().UTC(),
	})
}

// decode parses and validates the request body; on failure it writes
// the error response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_JSON", err.Error()))
		return false
	}

	if err := h.validator.Struct(dst); err != nil {
		h.writeError(w, r, apperrors.NewValidationError("INVALID_REQUEST", err.Error()))
		return false
	}

	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.GetStatusCode(err)
	code := "INTERNAL_ERROR"
	message := "An internal error occurred"

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		code = appErr.Code
		message = appErr.Message
	}

	if status >= 500 {
		telemetry.WithContext(r.Context(), h.logger).Error("request failed",
			"path", r.URL.Path,
			"status", status,
			"error", err,
		)
	}

	h.writeJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:      code,
			Message:   message,
			RequestID: requestIDFromContext(r.Context()),
		},
	})
}

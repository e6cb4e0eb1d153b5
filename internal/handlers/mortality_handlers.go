package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"mortality-platform/internal/models"
	"mortality-platform/internal/services"
	"mortality-platform/pkg/logging"
	"mortality-platform/pkg/metrics"
)

// MortalityHandler serves the latest pipeline report
type MortalityHandler struct {
	pipeline *services.PipelineService
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewMortalityHandler creates a new mortality handler
func NewMortalityHandler(pipeline *services.PipelineService, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *MortalityHandler {
	return &MortalityHandler{
		pipeline: pipeline,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// SummaryResponse is the body of GET /api/mortality/summary
type SummaryResponse struct {
	RunID       string                   `json:"run_id"`
	Target      models.Target            `json:"target"`
	GeneratedAt time.Time                `json:"generated_at"`
	Summary     models.SummaryStatistics `json:"summary"`
	Diagnostics services.Diagnostics     `json:"diagnostics"`
}

// TrendResponse is the body of GET /api/mortality/trend
type TrendResponse struct {
	RunID  string        `json:"run_id"`
	Target models.Target `json:"target"`
	Points []TrendPoint  `json:"points"`
}

// TrendPoint adds the YYYY-MM label to a trend point
type TrendPoint struct {
	models.TrendPoint
	Label string `json:"period"`
}

// SubgroupsResponse is the body of GET /api/mortality/subgroups
type SubgroupsResponse struct {
	RunID     string                   `json:"run_id"`
	Target    models.Target            `json:"target"`
	Subgroups []models.SubgroupSummary `json:"subgroups"`
}

// GetSummary handles GET /api/mortality/summary
func (h *MortalityHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/mortality/summary"
	defer h.observe(endpoint, time.Now())

	report, ok := h.report(w, r, endpoint)
	if !ok {
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, SummaryResponse{
		RunID:       report.RunID,
		Target:      report.Target,
		GeneratedAt: report.GeneratedAt,
		Summary:     report.Summary,
		Diagnostics: report.Diagnostics,
	}, http.StatusOK)
}

// GetTrend handles GET /api/mortality/trend
func (h *MortalityHandler) GetTrend(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/mortality/trend"
	defer h.observe(endpoint, time.Now())

	report, ok := h.report(w, r, endpoint)
	if !ok {
		return
	}

	points := make([]TrendPoint, 0, len(report.Trend))
	for _, p := range report.Trend {
		points = append(points, TrendPoint{TrendPoint: p, Label: p.Period()})
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, TrendResponse{RunID: report.RunID, Target: report.Target, Points: points}, http.StatusOK)
}

// GetSubgroups handles GET /api/mortality/subgroups
func (h *MortalityHandler) GetSubgroups(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/mortality/subgroups"
	defer h.observe(endpoint, time.Now())

	report, ok := h.report(w, r, endpoint)
	if !ok {
		return
	}

	subgroups := report.Subgroups
	if subgroups == nil {
		subgroups = []models.SubgroupSummary{}
	}

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, SubgroupsResponse{RunID: report.RunID, Target: report.Target, Subgroups: subgroups}, http.StatusOK)
}

// GetCohort handles GET /api/mortality/cohort
func (h *MortalityHandler) GetCohort(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/mortality/cohort"
	defer h.observe(endpoint, time.Now())

	page, limit := 1, 100
	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	report, ok := h.report(w, r, endpoint)
	if !ok {
		return
	}

	records := report.Cohort().Records()
	total := len(records)
	// pages past the end are empty; checked before multiplying so a huge page cannot overflow
	offset := total
	if page-1 <= total/limit {
		offset = min((page-1)*limit, total)
	}
	end := min(offset+limit, total)

	h.metrics.RecordAPIRequest(endpoint, "GET", "200")
	h.sendJSON(w, PaginatedResponse{
		Data:       records[offset:end],
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, http.StatusOK)
}

// Refresh handles POST /api/mortality/refresh
func (h *MortalityHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/mortality/refresh"
	defer h.observe(endpoint, time.Now())
	ctx := r.Context()

	report, err := h.pipeline.Run(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_REFRESH_ERROR] Pipeline run failed", logging.Fields{}, err)

		var schemaErr *models.SchemaError
		if errors.As(err, &schemaErr) {
			h.metrics.RecordAPIError("schema_error", endpoint)
			h.sendError(w, r, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "failed to refresh report", http.StatusInternalServerError)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, "POST", "200")
	h.sendJSON(w, SummaryResponse{
		RunID:       report.RunID,
		Target:      report.Target,
		GeneratedAt: report.GeneratedAt,
		Summary:     report.Summary,
		Diagnostics: report.Diagnostics,
	}, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *MortalityHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK

	if err := h.pipeline.HealthCheck(ctx); err != nil {
		status["status"] = "unavailable"
		status["reason"] = err.Error()
		code = http.StatusServiceUnavailable
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{
		"status": status["status"],
	})
	h.sendJSON(w, status, code)
}

// report resolves the report a read endpoint should serve. The optional
// jurisdiction and group query parameters override the configured target.
func (h *MortalityHandler) report(w http.ResponseWriter, r *http.Request, endpoint string) (*services.Report, bool) {
	ctx := r.Context()

	latest, err := h.pipeline.Latest()
	if err != nil {
		h.metrics.RecordAPIError("no_report", endpoint)
		h.sendError(w, r, "no report has been produced yet", http.StatusServiceUnavailable)
		return nil, false
	}

	query := r.URL.Query()
	if !query.Has("jurisdiction") && !query.Has("group") {
		return latest, true
	}

	target := latest.Target
	if query.Has("jurisdiction") {
		target.Jurisdiction = query.Get("jurisdiction")
	}
	if query.Has("group") {
		target.Group = query.Get("group")
	}

	report, err := h.pipeline.ForTarget(ctx, target)
	if err != nil {
		var validationErr *models.ValidationError
		if errors.As(err, &validationErr) {
			h.metrics.RecordAPIError("validation_error", endpoint)
			h.sendError(w, r, validationErr.Message, http.StatusBadRequest)
			return nil, false
		}
		h.logger.Error(ctx, "[API_TARGET_ERROR] Failed to compute report for target", logging.Fields{
			"target_jurisdiction": target.Jurisdiction,
			"target_group":        target.Group,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, "failed to compute report", http.StatusInternalServerError)
		return nil, false
	}
	return report, true
}

func (h *MortalityHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (h *MortalityHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendError sends an error response
func (h *MortalityHandler) sendError(w http.ResponseWriter, r *http.Request, message string, statusCode int) {
	h.metrics.RecordAPIRequest(r.URL.Path, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all mortality API routes
func (h *MortalityHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/mortality").Subrouter()
	api.HandleFunc("/summary", h.GetSummary).Methods("GET")
	api.HandleFunc("/trend", h.GetTrend).Methods("GET")
	api.HandleFunc("/subgroups", h.GetSubgroups).Methods("GET")
	api.HandleFunc("/cohort", h.GetCohort).Methods("GET")
	api.HandleFunc("/refresh", h.Refresh).Methods("POST")

	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
}

package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/sarifscope/api/internal/app"
	infrahttp "github.com/sarifscope/api/internal/infra/http"
	"github.com/sarifscope/api/pkg/apierror"
	"github.com/sarifscope/api/pkg/domain/report"
	"github.com/sarifscope/api/pkg/domain/shared"
	"github.com/sarifscope/api/pkg/logger"
	"github.com/sarifscope/api/pkg/pagination"
	"github.com/sarifscope/api/pkg/parsers/sarif"
	"github.com/sarifscope/api/pkg/validator"
)

// ReportHandler handles SARIF report and finding HTTP requests.
type ReportHandler struct {
	service   *app.ReportService
	validator *validator.Validator
	logger    *logger.Logger
}

// NewReportHandler creates a new report handler.
func NewReportHandler(svc *app.ReportService, v *validator.Validator, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		service:   svc,
		validator: v,
		logger:    log,
	}
}

// ReportResponse represents a stored report in API responses.
type ReportResponse struct {
	ID            string         `json:"id"`
	FileName      string         `json:"file_name,omitempty"`
	SarifVersion  string         `json:"sarif_version"`
	ToolNames     []string       `json:"tool_names"`
	TotalFindings int            `json:"total_findings"`
	BySeverity    map[string]int `json:"by_severity"`
	UploadedAt    time.Time      `json:"uploaded_at"`
	CreatedAt     time.Time      `json:"created_at"`
}

// toReportResponse converts a domain report to API response.
func toReportResponse(rep *report.Report) ReportResponse {
	by := make(map[string]int, len(rep.BySeverity()))
	for sev, n := range rep.BySeverity() {
		by[sev.String()] = n
	}
	return ReportResponse{
		ID:            rep.ID().String(),
		FileName:      rep.FileName(),
		SarifVersion:  rep.SarifVersion(),
		ToolNames:     rep.ToolNames(),
		TotalFindings: rep.TotalFindings(),
		BySeverity:    by,
		UploadedAt:    rep.UploadedAt(),
		CreatedAt:     rep.CreatedAt(),
	}
}

// FindingResponse represents a normalized finding in API responses.
type FindingResponse struct {
	ID        string                  `json:"id"`
	ReportID  string                  `json:"report_id"`
	Finding   sarif.NormalizedFinding `json:"finding"`
	CreatedAt time.Time               `json:"created_at"`
}

// toFindingResponse converts a domain finding to API response.
func toFindingResponse(f *report.Finding) FindingResponse {
	return FindingResponse{
		ID:        f.ID().String(),
		ReportID:  f.ReportID().String(),
		Finding:   f.Payload(),
		CreatedAt: f.CreatedAt(),
	}
}

// IngestResponse represents the result of a successful report ingestion.
type IngestResponse struct {
	Report   ReportResponse `json:"report"`
	Findings int            `json:"findings"`
}

// Ingest handles POST /api/v1/reports.
// The request body is a raw SARIF document, optionally gzip or zstd
// compressed. The original file name may be passed as ?filename=.
func (h *ReportHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	result, err := h.service.Ingest(r.Context(), app.IngestInput{
		Data:     body,
		FileName: infrahttp.QueryParam(r, "filename"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, IngestResponse{
		Report:   toReportResponse(result.Report),
		Findings: result.Document.Stats.TotalFindings,
	})
}

// Preview handles POST /api/v1/reports/preview.
// It normalizes a SARIF document and returns the result without storing it.
func (h *ReportHandler) Preview(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	doc, err := h.service.Preview(r.Context(), app.IngestInput{
		Data:     body,
		FileName: infrahttp.QueryParam(r, "filename"),
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, doc)
}

// ValidationResponse represents the outcome of a schema validation.
type ValidationResponse struct {
	Valid      bool               `json:"valid"`
	Error      string             `json:"error,omitempty"`
	Violations []sarif.FieldError `json:"violations,omitempty"`
}

// Validate handles POST /api/v1/reports/validate.
// It checks a SARIF document against the schema and reports every
// violation. Always returns 200; validity is in the body.
func (h *ReportHandler) Validate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	if _, err := sarif.ValidateBytes(body); err != nil {
		resp := ValidationResponse{Valid: false, Error: err.Error()}
		var schemaErr *sarif.SchemaError
		if errors.As(err, &schemaErr) {
			resp.Violations = schemaErr.Fields
		}
		respondJSON(w, http.StatusOK, resp)
		return
	}

	respondJSON(w, http.StatusOK, ValidationResponse{Valid: true})
}

// List handles GET /api/v1/reports.
func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	page := pagination.FromQuery(r.URL.Query())

	result, err := h.service.ListReports(r.Context(), page.Page, page.PerPage)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	data := make([]ReportResponse, 0, len(result.Data))
	for _, rep := range result.Data {
		data = append(data, toReportResponse(rep))
	}

	respondJSON(w, http.StatusOK, ListResponse[ReportResponse]{
		Data:       data,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		Links:      NewPaginationLinks(r, result.Page, result.PerPage, result.TotalPages),
	})
}

// Get handles GET /api/v1/reports/{id}.
func (h *ReportHandler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.GetReport(r.Context(), infrahttp.PathParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toReportResponse(rep))
}

// Delete handles DELETE /api/v1/reports/{id}.
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteReport(r.Context(), infrahttp.PathParam(r, "id")); err != nil {
		h.respondError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReportStats handles GET /api/v1/reports/{id}/stats.
func (h *ReportHandler) ReportStats(w http.ResponseWriter, r *http.Request) {
	h.severityStats(w, r, infrahttp.PathParam(r, "id"))
}

// GlobalStats handles GET /api/v1/findings/stats.
func (h *ReportHandler) GlobalStats(w http.ResponseWriter, r *http.Request) {
	h.severityStats(w, r, "")
}

// StatsResponse represents severity aggregates.
type StatsResponse struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"by_severity"`
}

func (h *ReportHandler) severityStats(w http.ResponseWriter, r *http.Request, reportID string) {
	counts, err := h.service.SeverityStats(r.Context(), reportID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	resp := StatsResponse{BySeverity: make(map[string]int, len(counts))}
	for sev, n := range counts {
		resp.BySeverity[sev.String()] = n
		resp.Total += n
	}

	respondJSON(w, http.StatusOK, resp)
}

// listFindingsQuery carries the finding list filters from query params.
type listFindingsQuery struct {
	ReportID   string `validate:"omitempty,uuid"`
	Severity   string `validate:"omitempty,severity"`
	RuleID     string `validate:"omitempty,max=512"`
	Tool       string `validate:"omitempty,max=256"`
	PathPrefix string `validate:"omitempty,max=1024"`
	Search     string `validate:"omitempty,max=256"`
	Sort       string `validate:"omitempty,sort_expr"`
}

// ListFindings handles GET /api/v1/findings.
// Filters: report_id, severity, rule_id, tool, path_prefix, search, sort.
func (h *ReportHandler) ListFindings(w http.ResponseWriter, r *http.Request) {
	q := listFindingsQuery{
		ReportID:   infrahttp.QueryParam(r, "report_id"),
		Severity:   infrahttp.QueryParam(r, "severity"),
		RuleID:     infrahttp.QueryParam(r, "rule_id"),
		Tool:       infrahttp.QueryParam(r, "tool"),
		PathPrefix: infrahttp.QueryParam(r, "path_prefix"),
		Search:     infrahttp.QueryParam(r, "search"),
		Sort:       infrahttp.QueryParam(r, "sort"),
	}

	if err := h.validator.Validate(q); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			apierror.ValidationFailed("Invalid query parameters", verrs).WriteJSON(w)
			return
		}
		h.respondError(w, r, err)
		return
	}

	page := pagination.FromQuery(r.URL.Query())

	result, err := h.service.ListFindings(r.Context(), app.ListFindingsInput{
		ReportID:   q.ReportID,
		Severity:   q.Severity,
		RuleID:     q.RuleID,
		Tool:       q.Tool,
		PathPrefix: q.PathPrefix,
		Search:     q.Search,
		Sort:       q.Sort,
		Page:       page.Page,
		PerPage:    page.PerPage,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	data := make([]FindingResponse, 0, len(result.Data))
	for _, f := range result.Data {
		data = append(data, toFindingResponse(f))
	}

	respondJSON(w, http.StatusOK, ListResponse[FindingResponse]{
		Data:       data,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
		Links:      NewPaginationLinks(r, result.Page, result.PerPage, result.TotalPages),
	})
}

// GetFinding handles GET /api/v1/findings/{id}.
func (h *ReportHandler) GetFinding(w http.ResponseWriter, r *http.Request) {
	f, err := h.service.GetFinding(r.Context(), infrahttp.PathParam(r, "id"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, toFindingResponse(f))
}

// respondError maps domain and parser errors to API error responses.
func (h *ReportHandler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	var maxBytesErr *http.MaxBytesError
	var schemaErr *sarif.SchemaError

	switch {
	case errors.As(err, &maxBytesErr):
		apierror.PayloadTooLarge("Request body too large").WriteJSON(w)
	case errors.As(err, &schemaErr):
		apierror.New(http.StatusUnprocessableEntity, apierror.CodeValidationFailed,
			"SARIF schema validation failed").WithDetails(schemaErr.Fields).WriteJSON(w)
	case errors.Is(err, sarif.ErrEmptyInput):
		apierror.BadRequest("Request body is empty").WriteJSON(w)
	case errors.Is(err, sarif.ErrInvalidJSON):
		apierror.BadRequest("Request body is not valid JSON").WriteJSON(w)
	case errors.Is(err, report.ErrTooManyFindings):
		apierror.New(http.StatusRequestEntityTooLarge, apierror.CodePayloadTooLarge,
			"Report exceeds the findings limit").WriteJSON(w)
	case errors.Is(err, report.ErrReportNotFound):
		apierror.NotFound("Report").WriteJSON(w)
	case errors.Is(err, report.ErrFindingNotFound):
		apierror.NotFound("Finding").WriteJSON(w)
	case errors.Is(err, shared.ErrNotFound):
		apierror.NotFound("Resource").WriteJSON(w)
	case errors.Is(err, shared.ErrValidation), errors.Is(err, shared.ErrInvalidInput):
		apierror.BadRequest(err.Error()).WriteJSON(w)
	default:
		h.logger.Error("request failed",
			"error", err,
			"path", r.URL.Path,
		)
		apierror.InternalError(err).WriteJSON(w)
	}
}

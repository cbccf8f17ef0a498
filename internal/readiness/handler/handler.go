package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"mirathi/internal/readiness/models"
	"mirathi/internal/readiness/service"
	id "mirathi/pkg/domain"
	dErrors "mirathi/pkg/domain-errors"
	"mirathi/pkg/platform/httputil"
	"mirathi/pkg/requestcontext"
)

// Service defines the interface for readiness assessment operations.
// Returns domain objects, not HTTP response DTOs.
//
// Mutations return the full refreshed assessment so callers always see the
// recalculated score alongside the change they made. Scores are derived
// state and never accepted from the outside.
type Service interface {
	CreateAssessment(ctx context.Context, cmd service.CreateAssessmentCommand) (*models.ReadinessAssessment, error)
	GetAssessment(ctx context.Context, assessmentID id.AssessmentID) (*models.ReadinessAssessment, error)
	GetAssessmentByEstate(ctx context.Context, estateID id.EstateID) (*models.ReadinessAssessment, error)
	ListRiskFlags(ctx context.Context, assessmentID id.AssessmentID, filter service.RiskFlagFilter) ([]*models.RiskFlag, error)
	AddRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd service.AddRiskFlagCommand) (*models.RiskFlag, error)
	ResolveRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd service.ResolveRiskCommand) (*models.ReadinessAssessment, error)
	ReopenRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd service.ReopenRiskCommand) (*models.ReadinessAssessment, error)
	DisputeRiskFlag(ctx context.Context, assessmentID id.AssessmentID, cmd service.DisputeRiskCommand) (*models.ReadinessAssessment, error)
	UpdateRiskSeverity(ctx context.Context, assessmentID id.AssessmentID, cmd service.UpdateSeverityCommand) (*models.ReadinessAssessment, error)
	UpdateContext(ctx context.Context, assessmentID id.AssessmentID, cmd service.UpdateContextCommand) (*models.ReadinessAssessment, error)
	MarkComplete(ctx context.Context, assessmentID id.AssessmentID) (*models.ReadinessAssessment, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/assessments", h.HandleCreateAssessment)
	r.Get("/assessments/{id}", h.HandleGetAssessment)
	r.Get("/estates/{estateID}/assessment", h.HandleGetAssessmentByEstate)
	r.Get("/assessments/{id}/risks", h.HandleListRiskFlags)
	r.Post("/assessments/{id}/risks", h.HandleAddRiskFlag)
	r.Post("/assessments/{id}/risks/{riskID}/resolve", h.HandleResolveRiskFlag)
	r.Post("/assessments/{id}/risks/{riskID}/reopen", h.HandleReopenRiskFlag)
	r.Post("/assessments/{id}/risks/{riskID}/dispute", h.HandleDisputeRiskFlag)
	r.Put("/assessments/{id}/risks/{riskID}/severity", h.HandleUpdateRiskSeverity)
	r.Put("/assessments/{id}/context", h.HandleUpdateContext)
	r.Post("/assessments/{id}/complete", h.HandleMarkComplete)
}

// HandleCreateAssessment opens a readiness assessment for an estate.
// One active assessment per estate; a second create returns 409.
func (h *Handler) HandleCreateAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAssessmentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cmd, err := req.ToCommand()
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	assessment, err := h.service.CreateAssessment(ctx, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "create assessment failed", "error", err, "request_id", requestID, "estate_id", req.EstateID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toAssessmentResponse(assessment))
}

// HandleGetAssessment returns the full assessment aggregate.
func (h *Handler) HandleGetAssessment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment id"))
		return
	}

	assessment, err := h.service.GetAssessment(ctx, assessmentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get assessment failed", "error", err, "request_id", requestID, "assessment_id", assessmentID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleGetAssessmentByEstate looks up the assessment covering an estate.
func (h *Handler) HandleGetAssessmentByEstate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	estateID, err := id.ParseEstateID(chi.URLParam(r, "estateID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid estate id"))
		return
	}

	assessment, err := h.service.GetAssessmentByEstate(ctx, estateID)
	if err != nil {
		h.logger.ErrorContext(ctx, "get assessment by estate failed", "error", err, "request_id", requestID, "estate_id", estateID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleListRiskFlags lists risk flags ordered by priority, optionally
// filtered by status, category, severity, or blocking_only.
func (h *Handler) HandleListRiskFlags(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment id"))
		return
	}

	filter := riskFlagFilterFromQuery(r)

	flags, err := h.service.ListRiskFlags(ctx, assessmentID, filter)
	if err != nil {
		h.logger.ErrorContext(ctx, "list risk flags failed", "error", err, "request_id", requestID, "assessment_id", assessmentID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRiskFlagListResponse(flags))
}

// HandleAddRiskFlag records a manually detected risk on the assessment.
// Duplicate detections (same fingerprint as an unresolved flag) return 422.
func (h *Handler) HandleAddRiskFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[AddRiskFlagRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cmd, err := req.ToCommand(requestcontext.Now(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	flag, err := h.service.AddRiskFlag(ctx, assessmentID, cmd)
	if err != nil {
		h.logger.ErrorContext(ctx, "add risk flag failed", "error", err, "request_id", requestID, "assessment_id", assessmentID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toRiskFlagResponse(flag))
}

// HandleResolveRiskFlag resolves a risk flag and returns the recalculated
// assessment.
func (h *Handler) HandleResolveRiskFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, riskID, ok := h.parseRiskPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ResolveRiskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment, err := h.service.ResolveRiskFlag(ctx, assessmentID, req.ToCommand(riskID))
	if err != nil {
		h.logger.ErrorContext(ctx, "resolve risk flag failed", "error", err, "request_id", requestID, "assessment_id", assessmentID, "risk_flag_id", riskID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleReopenRiskFlag reopens a resolved risk flag.
func (h *Handler) HandleReopenRiskFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, riskID, ok := h.parseRiskPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[ReopenRiskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment, err := h.service.ReopenRiskFlag(ctx, assessmentID, req.ToCommand(riskID))
	if err != nil {
		h.logger.ErrorContext(ctx, "reopen risk flag failed", "error", err, "request_id", requestID, "assessment_id", assessmentID, "risk_flag_id", riskID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleDisputeRiskFlag marks an active risk flag as disputed. Disputed
// flags still count against the score but are exempt from timeout sweeps.
func (h *Handler) HandleDisputeRiskFlag(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, riskID, ok := h.parseRiskPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[DisputeRiskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment, err := h.service.DisputeRiskFlag(ctx, assessmentID, req.ToCommand(riskID))
	if err != nil {
		h.logger.ErrorContext(ctx, "dispute risk flag failed", "error", err, "request_id", requestID, "assessment_id", assessmentID, "risk_flag_id", riskID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleUpdateRiskSeverity reclassifies a risk flag's severity.
func (h *Handler) HandleUpdateRiskSeverity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, riskID, ok := h.parseRiskPath(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateSeverityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment, err := h.service.UpdateRiskSeverity(ctx, assessmentID, req.ToCommand(riskID))
	if err != nil {
		h.logger.ErrorContext(ctx, "update risk severity failed", "error", err, "request_id", requestID, "assessment_id", assessmentID, "risk_flag_id", riskID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleUpdateContext replaces the succession context and recomputes the
// derived jurisdiction, priority, and strategy.
func (h *Handler) HandleUpdateContext(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment id"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[UpdateContextRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	assessment, err := h.service.UpdateContext(ctx, assessmentID, req.ToCommand())
	if err != nil {
		h.logger.ErrorContext(ctx, "update context failed", "error", err, "request_id", requestID, "assessment_id", assessmentID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// HandleMarkComplete finalizes the assessment. Only assessments at
// ready_to_file can complete; completion is terminal.
func (h *Handler) HandleMarkComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment id"))
		return
	}

	assessment, err := h.service.MarkComplete(ctx, assessmentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "mark complete failed", "error", err, "request_id", requestID, "assessment_id", assessmentID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toAssessmentResponse(assessment))
}

// parseRiskPath extracts and validates both path IDs for risk flag subresources.
func (h *Handler) parseRiskPath(w http.ResponseWriter, r *http.Request) (id.AssessmentID, id.RiskFlagID, bool) {
	assessmentID, err := id.ParseAssessmentID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid assessment id"))
		return id.AssessmentID{}, id.RiskFlagID{}, false
	}
	riskID, err := id.ParseRiskFlagID(chi.URLParam(r, "riskID"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid risk flag id"))
		return id.AssessmentID{}, id.RiskFlagID{}, false
	}
	return assessmentID, riskID, true
}

// riskFlagFilterFromQuery builds the list filter from query parameters.
// Values are validated by the service so unknown filter values surface as
// validation errors, not silent empty lists.
func riskFlagFilterFromQuery(r *http.Request) service.RiskFlagFilter {
	var filter service.RiskFlagFilter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := models.RiskStatus(v)
		filter.Status = &status
	}
	if v := q.Get("category"); v != "" {
		category := models.RiskCategory(v)
		filter.Category = &category
	}
	if v := q.Get("severity"); v != "" {
		severity := models.Severity(v)
		filter.Severity = &severity
	}
	filter.BlockingOnly = q.Get("blocking_only") == "true"

	return filter
}

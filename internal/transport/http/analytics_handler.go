package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensor/internal/errors"
	"licensor/internal/license"
	"licensor/internal/services"
	"licensor/pkg/contracts/domain"
)

// AnalyticsHandler serves the read-side views over the audit log.
type AnalyticsHandler struct {
	service      services.AnalyticsService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewAnalyticsHandler creates a new analytics handler
func NewAnalyticsHandler(service services.AnalyticsService, logger *slog.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "analytics")),
		errorHandler: apierrors.NewErrorHandler(logger),
	}
}

// Routes returns the chi router for analytics endpoints.
func (h *AnalyticsHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/validations", h.Validations)
	r.Get("/summary", h.Summary)
	r.Get("/export", h.Export)
	return r
}

// Validations handles GET /api/analytics/validations with optional
// key, outcome, reason, event, and since query filters.
func (h *AnalyticsHandler) Validations(w http.ResponseWriter, r *http.Request) {
	filter := license.LogFilter{
		LicenseKey: r.URL.Query().Get("key"),
		Outcome:    domain.ValidationOutcome(r.URL.Query().Get("outcome")),
		Reason:     domain.Reason(r.URL.Query().Get("reason")),
		Event:      domain.AuditEvent(r.URL.Query().Get("event")),
	}
	if since := r.URL.Query().Get("since"); since != "" {
		parsed, err := time.Parse(time.RFC3339, since)
		if err != nil {
			h.errorHandler.HandleError(w, r, apierrors.ErrValidation("since", "must be a valid RFC 3339 instant"))
			return
		}
		filter.Since = parsed
	}

	entries, err := h.service.Logs(r.Context(), filter)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, entries)
}

// Summary handles GET /api/analytics/summary.
func (h *AnalyticsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, summary)
}

// Export handles GET /api/analytics/export, streaming an xlsx workbook.
func (h *AnalyticsHandler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.ExportXLSX(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	filename := fmt.Sprintf("validation-report-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to stream workbook", slog.String("error", err.Error()))
	}
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "licensor/internal/errors"
	"licensor/internal/license"
	"licensor/internal/middleware"
	"licensor/internal/services"
	"licensor/pkg/contracts/domain"
)

// ValidateHandler serves the public validation endpoint consumed by
// third-party integrations.
type ValidateHandler struct {
	service      services.LicenseService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	validator    *middleware.RequestValidator
}

// NewValidateHandler creates a new validation handler
func NewValidateHandler(service services.LicenseService, logger *slog.Logger) *ValidateHandler {
	return &ValidateHandler{
		service:      service,
		logger:       logger.With(slog.String("handler", "validate")),
		errorHandler: apierrors.NewErrorHandler(logger),
		validator:    middleware.NewRequestValidator(),
	}
}

// ValidateLicenseRequest is the public validation payload. DiscordID is the
// verified identity supplied by the integration; the engine never parses
// transport credentials itself.
type ValidateLicenseRequest struct {
	Key       string `json:"key" validate:"required,min=10"`
	DiscordID string `json:"discordId" validate:"required"`
	IP        string `json:"ip,omitempty"`
	HWID      string `json:"hwid,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Bind implements render.Binder.
func (req *ValidateLicenseRequest) Bind(r *http.Request) error { return nil }

// EvidenceStatus reports the per-kind admission outcome and, when bounded,
// the remaining capacity after the attempt.
type EvidenceStatus struct {
	Outcome   domain.AdmissionOutcome `json:"outcome"`
	Remaining *int                    `json:"remaining,omitempty"`
}

// ValidateLicenseResponse is the public validation result. The reason code
// is the durable taxonomy; the HTTP status is presentation.
type ValidateLicenseResponse struct {
	Success   bool            `json:"success"`
	Reason    domain.Reason   `json:"reason"`
	License   *domain.License `json:"license,omitempty"`
	IP        *EvidenceStatus `json:"ip,omitempty"`
	HWID      *EvidenceStatus `json:"hwid,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Routes returns the chi router for the public validation endpoint.
func (h *ValidateHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Validate)
	return r
}

// Validate handles POST /api/validate.
func (h *ValidateHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateLicenseRequest
	if err := render.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, apierrors.InvalidInputWithError(err))
		return
	}
	if err := h.validator.Struct(&req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Validate(r.Context(), license.ValidateRequest{
		Key:      req.Key,
		Identity: req.DiscordID,
		IP:       req.IP,
		HWID:     req.HWID,
		Country:  req.Country,
	})
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	resp := &ValidateLicenseResponse{
		Success:   result.OK,
		Reason:    result.Reason,
		License:   result.License,
		Timestamp: time.Now().UTC(),
	}
	if result.IPOutcome != domain.NotSupplied {
		resp.IP = &EvidenceStatus{Outcome: result.IPOutcome, Remaining: result.IPRemaining}
	}
	if result.HWIDOutcome != domain.NotSupplied {
		resp.HWID = &EvidenceStatus{Outcome: result.HWIDOutcome, Remaining: result.HWIDRemaining}
	}

	render.Status(r, statusForReason(result.Reason))
	render.JSON(w, r, resp)
}

// statusForReason maps the durable reason taxonomy onto transport status
// codes. The body always carries the reason; the code is a convenience.
func statusForReason(reason domain.Reason) int {
	switch reason {
	case domain.ReasonOK:
		return http.StatusOK
	case domain.ReasonNotFound:
		return http.StatusNotFound
	case domain.ReasonBlacklisted, domain.ReasonUnauthorized:
		return http.StatusUnauthorized
	case domain.ReasonExpired, domain.ReasonInactive:
		return http.StatusForbidden
	case domain.ReasonIPCapacity, domain.ReasonHWIDCapacity:
		return http.StatusConflict
	default:
		return http.StatusOK
	}
}

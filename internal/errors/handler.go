package errors

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorHandler provides centralized error handling for HTTP handlers
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError renders err as a structured API error response. Typed
// *APIError values are rendered as-is; anything else becomes an internal
// failure with the cause attached.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := middleware.GetReqID(r.Context())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		apiErr = InternalError(err)
	}

	logFn := h.logger.WarnContext
	if apiErr.StatusCode >= http.StatusInternalServerError {
		logFn = h.logger.ErrorContext
	}
	logFn(r.Context(), "request failed",
		slog.String("error", err.Error()),
		slog.String("error_code", apiErr.ErrorCode),
		slog.Int("status", apiErr.StatusCode),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	if renderErr := render.Render(w, r, apiErr); renderErr != nil {
		h.logger.ErrorContext(r.Context(), "failed to render error response",
			slog.String("error", renderErr.Error()),
			slog.String("request_id", reqID),
		)
		http.Error(w, apiErr.Message, apiErr.StatusCode)
	}
}

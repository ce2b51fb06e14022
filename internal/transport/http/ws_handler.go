package http

import (
	"log/slog"
	"net/http"

	gorillaws "github.com/gorilla/websocket"

	"licensor/internal/infrastructure"
	"licensor/internal/middleware"
	"licensor/internal/websocket"
)

// WSHandler upgrades connections on the validation event stream.
type WSHandler struct {
	hub            *websocket.Hub
	logger         *slog.Logger
	allowedOrigins []string
}

// NewWSHandler creates a new websocket handler
func NewWSHandler(hub *websocket.Hub, allowedOrigins []string, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub:            hub,
		logger:         logger.With(slog.String("handler", "ws")),
		allowedOrigins: allowedOrigins,
	}
}

// Events handles GET /ws/events
func (h *WSHandler) Events(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	if reqID == "" {
		reqID = infrastructure.GenerateTraceID()
	}

	h.logger.InfoContext(ctx, "WebSocket upgrade request",
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("origin", r.Header.Get("Origin")))

	upgrader := gorillaws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				// Same-origin or non-browser client
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || allowed == origin {
					return true
				}
			}
			h.logger.WarnContext(ctx, "WebSocket origin not allowed",
				slog.String("origin", origin))
			return false
		},
		Error: func(w http.ResponseWriter, r *http.Request, status int, reason error) {
			h.logger.ErrorContext(ctx, "WebSocket upgrade error",
				slog.Int("status", status),
				slog.String("reason", reason.Error()))
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.ErrorContext(ctx, "WebSocket upgrade failed",
			slog.String("error", err.Error()))
		return
	}

	websocket.ServeWS(h.hub, conn, reqID, h.logger)

	h.logger.InfoContext(ctx, "WebSocket client connected",
		slog.String("remote_addr", r.RemoteAddr))
}

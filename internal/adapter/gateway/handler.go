// Package gateway exposes the routing engine over HTTP: message intake,
// session inspection and deletion, roster introspection, and health.
package gateway

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"caregate/internal/domain"
	"caregate/internal/usecase"
)

// Handler holds the gateway's dependencies.
type Handler struct {
	orchestrator *usecase.Orchestrator
	sessions     *usecase.ContextManager
	logger       *slog.Logger
}

// NewHandler wires the HTTP handler.
func NewHandler(orch *usecase.Orchestrator, sessions *usecase.ContextManager, logger *slog.Logger) *Handler {
	return &Handler{orchestrator: orch, sessions: sessions, logger: logger}
}

// Routes registers all endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/messages", h.handleMessage)
		r.Get("/agents", h.handleAgents)
		r.Get("/sessions/{userID}/{sessionID}", h.handleGetSession)
		r.Delete("/sessions/{userID}/{sessionID}", h.handleDeleteSession)
	})
}

type messageRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
	Text      string `json:"text"`
	AgentID   string `json:"agent_id,omitempty"` // manual agent selection
}

func (h *Handler) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, domain.NewDomainError("gateway.handleMessage", domain.ErrInvalidInput, "malformed JSON body"))
		return
	}
	if req.UserID == "" || req.SessionID == "" {
		h.writeError(w, r, domain.NewDomainError("gateway.handleMessage", domain.ErrInvalidInput, "user_id and session_id are required"))
		return
	}

	result, err := h.orchestrator.RouteAndRespond(r.Context(), req.UserID, req.SessionID, req.Text, req.AgentID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleAgents(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{
		"agents": h.orchestrator.Agents(),
	})
}

func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	summary, err := h.sessions.Summary(r.Context(), userID, sessionID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, summary)
}

// handleDeleteSession removes a session. An HTTP DELETE is an explicit
// data-deletion request, so it is honored for authenticated users too.
func (h *Handler) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	sessionID := chi.URLParam(r, "sessionID")

	if err := h.sessions.DeleteSession(r.Context(), userID, sessionID, true); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  domain.ErrorCode `json:"code"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status >= 500 {
		h.logger.Error("request failed",
			"request_id", RequestIDFrom(r.Context()),
			"path", r.URL.Path,
			"error", err,
		)
	}
	h.writeJSON(w, status, errorResponse{
		Error: err.Error(),
		Code:  domain.ErrorCodeOf(err),
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response failed", "error", err)
	}
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrAgentNotFound),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionExpired):
		return http.StatusGone
	case domain.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

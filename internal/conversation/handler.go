package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

// SessionCookieName carries the opaque session id for browser clients.
const SessionCookieName = "healthagent_session"

// Chatter is the host-facing chat contract.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (string, error)
	Reset(ctx context.Context, sessionID string) error
}

// Handler wires HTTP requests to the conversation service.
type Handler struct {
	service      Chatter
	logger       *logging.Logger
	secureCookie bool
}

// NewHandler creates a conversation handler. secureCookie marks the session
// cookie Secure, which production deployments behind TLS want.
func NewHandler(service Chatter, logger *logging.Logger, secureCookie bool) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{
		service:      service,
		logger:       logger,
		secureCookie: secureCookie,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Reply string `json:"reply"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Chat handles POST /api/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	// A malformed body is treated like a missing message.
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
	message := strings.TrimSpace(req.Message)
	if message == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
		return
	}

	sessionID := h.sessionID(w, r)
	reply, err := h.service.Chat(r.Context(), sessionID, message)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chatResponse{Reply: reply})
}

// Reset handles POST /api/reset.
func (h *Handler) Reset(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(SessionCookieName)
	if err == nil && cookie.Value != "" {
		if err := h.service.Reset(r.Context(), cookie.Value); err != nil {
			h.logger.Error("failed to reset session", "error", err)
			h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to reset session"})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// sessionID returns the cookie's session id, issuing a new one when absent.
func (h *Handler) sessionID(w http.ResponseWriter, r *http.Request) string {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
			return cookie.Value
		}
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyMessage):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
	case IsUpstream(err):
		h.logger.Error("language model failed", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		h.logger.Error("failed to process message", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to process message"})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

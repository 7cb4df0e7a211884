package webchat

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/net/websocket"

	"github.com/yaseenp24/Healthcare-Agent/internal/conversation"
	"github.com/yaseenp24/Healthcare-Agent/pkg/logging"
)

//go:embed static/index.html
var indexHTML []byte

const (
	replyUnavailable = "Sorry, the assistant is unavailable right now. Please try again."
	replyFailed      = "Sorry, something went wrong. Please try again."
)

// Chatter is the subset of conversation.Service the web chat needs.
type Chatter interface {
	Chat(ctx context.Context, sessionID, message string) (string, error)
	Reset(ctx context.Context, sessionID string) error
	History(ctx context.Context, sessionID string) ([]conversation.Turn, error)
}

// Handler serves the browser chat page, the WebSocket chat and its history
// endpoint.
type Handler struct {
	chat   Chatter
	logger *logging.Logger
}

// InboundMessage is what the browser sends.
type InboundMessage struct {
	Type string `json:"type"` // "message", "reset", "ping"
	Text string `json:"text"`
}

// OutboundMessage is what we send to the browser.
type OutboundMessage struct {
	Type      string           `json:"type"` // "message", "typing", "history", "session", "reset", "pong", "error"
	Text      string           `json:"text,omitempty"`
	Role      string           `json:"role,omitempty"` // "assistant" or "user"
	SessionID string           `json:"session_id,omitempty"`
	Timestamp string           `json:"timestamp,omitempty"`
	Messages  []HistoryMessage `json:"messages,omitempty"`
}

// HistoryMessage is one transcript turn.
type HistoryMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// NewHandler creates a web chat handler.
func NewHandler(chat Chatter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{chat: chat, logger: logger}
}

// sessionFromQuery accepts a uuid session id or issues a new one.
func sessionFromQuery(r *http.Request) string {
	id := strings.TrimSpace(r.URL.Query().Get("session"))
	if _, err := uuid.Parse(id); err == nil {
		return id
	}
	return uuid.NewString()
}

// HandleWebSocket upgrades to WebSocket and handles real-time messaging.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(conn *websocket.Conn) {
		h.serveWS(conn, r)
	}).ServeHTTP(w, r)
}

func (h *Handler) serveWS(conn *websocket.Conn, r *http.Request) {
	ctx := r.Context()
	sessionID := sessionFromQuery(r)

	_ = websocket.JSON.Send(conn, OutboundMessage{Type: "session", SessionID: sessionID})

	if turns, err := h.chat.History(ctx, sessionID); err == nil && len(turns) > 0 {
		_ = websocket.JSON.Send(conn, OutboundMessage{Type: "history", Messages: toHistory(turns)})
	} else if err != nil {
		h.logger.Warn("webchat: failed to load history", "session_id", sessionID, "error", err)
	}

	h.logger.Info("webchat: connection opened", "session_id", sessionID)

	for {
		var msg InboundMessage
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			h.logger.Debug("webchat: connection closed", "session_id", sessionID, "error", err)
			return
		}

		switch msg.Type {
		case "ping":
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "pong"})
		case "reset":
			if err := h.chat.Reset(ctx, sessionID); err != nil {
				h.logger.Error("webchat: reset failed", "session_id", sessionID, "error", err)
				_ = websocket.JSON.Send(conn, OutboundMessage{Type: "error", Text: replyFailed})
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "reset"})
		case "message":
			if strings.TrimSpace(msg.Text) == "" {
				continue
			}
			_ = websocket.JSON.Send(conn, OutboundMessage{Type: "typing"})
			_ = websocket.JSON.Send(conn, h.reply(ctx, sessionID, msg.Text))
		}
	}
}

func (h *Handler) reply(ctx context.Context, sessionID, text string) OutboundMessage {
	reply, err := h.chat.Chat(ctx, sessionID, text)
	if err != nil {
		out := OutboundMessage{Type: "error", Text: replyFailed}
		switch {
		case errors.Is(err, conversation.ErrEmptyMessage):
			out.Text = "Message is required"
		case conversation.IsUpstream(err):
			out.Text = replyUnavailable
		}
		h.logger.Error("webchat: message failed", "session_id", sessionID, "error", err)
		return out
	}
	return OutboundMessage{
		Type:      "message",
		Role:      conversation.ChatRoleAssistant,
		Text:      reply,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// HandleHistory returns chat history for a session.
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimSpace(r.URL.Query().Get("session"))
	if sessionID == "" {
		http.Error(w, "session parameter required", http.StatusBadRequest)
		return
	}

	turns, err := h.chat.History(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("webchat: failed to load history", "error", err)
		http.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"messages": toHistory(turns)})
}

// HandleIndex serves the browser chat page.
func (h *Handler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(indexHTML)
}

func toHistory(turns []conversation.Turn) []HistoryMessage {
	out := make([]HistoryMessage, 0, len(turns))
	for _, t := range turns {
		out = append(out, HistoryMessage{Role: t.Role, Text: t.Text})
	}
	return out
}

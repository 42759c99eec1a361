package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/medichat/medichat/internal/chatbot"
	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/session"
)

// maxMessageRunes bounds user messages, counted in characters rather
// than bytes so multi-byte scripts get the full allowance.
const maxMessageRunes = 1000

// Responder produces chatbot answers and source lookups. *chatbot.Engine
// satisfies it; tests substitute a stub.
type Responder interface {
	Respond(ctx context.Context, userMessage string) string
	RelevantSources(ctx context.Context, query string, k int) []chatbot.Passage
}

// ChatHandler serves the conversation endpoints. A nil engine puts the
// handler in degraded mode: chat and sources answer 503 while history
// and clear keep working.
type ChatHandler struct {
	engine   Responder
	sessions *sessionManager
	store    *session.Store
	logger   log.Logger
}

// NewChatHandler creates a chat handler. engine may be nil.
func NewChatHandler(engine Responder, sessions *sessionManager, store *session.Store, logger log.Logger) *ChatHandler {
	return &ChatHandler{engine: engine, sessions: sessions, store: store, logger: logger}
}

// RegisterRoutes registers the conversation routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.chat)
	mux.HandleFunc("GET /api/history", h.history)
	mux.HandleFunc("POST /api/clear", h.clear)
	mux.HandleFunc("POST /api/sources", h.sources)
	registerMethodFallbacks(mux, h.logger, "/api/chat", "/api/history", "/api/clear", "/api/sources")
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response  string    `json:"response"`
	Timestamp time.Time `json:"timestamp"`
}

func (h *ChatHandler) chat(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable,
			"Chatbot service is currently unavailable. Please try again later.", h.logger)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		writeError(w, http.StatusBadRequest, "Message cannot be empty", h.logger)
		return
	}
	if utf8.RuneCountInString(message) > maxMessageRunes {
		writeError(w, http.StatusBadRequest,
			"Message is too long. Please keep it under 1000 characters.", h.logger)
		return
	}

	sessionID := h.sessions.Establish(w, r)
	h.logger.Info("processing message",
		"session_id", sessionID,
		"preview", preview(message, 50),
	)

	h.store.Append(sessionID, session.NewTurn(session.RoleUser, message))

	answer := h.engine.Respond(r.Context(), message)

	h.store.Append(sessionID, session.NewTurn(session.RoleAssistant, answer))

	writeJSON(w, http.StatusOK, chatResponse{
		Response:  answer,
		Timestamp: time.Now(),
	}, h.logger)
}

func (h *ChatHandler) history(w http.ResponseWriter, r *http.Request) {
	sessionID, err := h.sessions.SessionID(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string][]session.Turn{"history": {}}, h.logger)
		return
	}

	writeJSON(w, http.StatusOK,
		map[string][]session.Turn{"history": h.store.History(sessionID)}, h.logger)
}

func (h *ChatHandler) clear(w http.ResponseWriter, r *http.Request) {
	if sessionID, err := h.sessions.SessionID(r); err == nil {
		h.store.Clear(sessionID)
		h.logger.Info("cleared history", "session_id", sessionID)
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Conversation history cleared",
	}, h.logger)
}

type sourcesRequest struct {
	Query string `json:"query"`
}

func (h *ChatHandler) sources(w http.ResponseWriter, r *http.Request) {
	if h.engine == nil {
		writeError(w, http.StatusServiceUnavailable,
			"Chatbot service is currently unavailable", h.logger)
		return
	}

	var req sourcesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", h.logger)
		return
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		writeError(w, http.StatusBadRequest, "Query cannot be empty", h.logger)
		return
	}

	sources := h.engine.RelevantSources(r.Context(), query, chatbot.DefaultTopK)
	if sources == nil {
		sources = []chatbot.Passage{}
	}

	writeJSON(w, http.StatusOK, map[string][]chatbot.Passage{"sources": sources}, h.logger)
}

// preview returns the first n runes of s for log lines.
func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

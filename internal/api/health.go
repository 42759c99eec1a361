package api

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medichat/medichat/internal/log"
)

// HealthHandler reports service status and dependency readiness.
type HealthHandler struct {
	chatbotReady bool
	pool         *pgxpool.Pool
	logger       log.Logger
}

// NewHealthHandler creates a health handler. pool may be nil, which
// makes /ready answer 503.
func NewHealthHandler(chatbotReady bool, pool *pgxpool.Pool, logger log.Logger) *HealthHandler {
	return &HealthHandler{chatbotReady: chatbotReady, pool: pool, logger: logger}
}

// RegisterRoutes registers health routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("GET /ready", h.readiness)
	registerMethodFallbacks(mux, h.logger, "/health", "/ready")
}

type healthResponse struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	ChatbotStatus string    `json:"chatbot_status"`
}

// health reports whether the chatbot engine came up. The service itself
// stays alive without it, so this always answers 200.
func (h *HealthHandler) health(w http.ResponseWriter, _ *http.Request) {
	status, chatbotStatus := "healthy", "initialized"
	if !h.chatbotReady {
		status, chatbotStatus = "unhealthy", "not_initialized"
	}
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        status,
		Timestamp:     time.Now(),
		ChatbotStatus: chatbotStatus,
	}, h.logger)
}

// readiness pings the database, for load balancers and orchestrators.
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	if h.pool == nil {
		http.Error(w, "database pool not configured", http.StatusServiceUnavailable)
		return
	}
	if err := h.pool.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed", "error", err)
		http.Error(w, "database not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

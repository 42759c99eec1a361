// Package app wires the application together: configuration, tracing,
// database, Genkit, the knowledge store, and the chatbot engine.
package app

import (
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medichat/medichat/internal/chatbot"
	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/knowledge"
	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/session"
)

// App holds the initialized application components.
//
// Engine may be nil: when the answering stack cannot be built (no database,
// bad credentials) the server still starts and serves a degraded API, so
// operators can reach /health and the UI shows a service-unavailable
// message instead of a connection error.
type App struct {
	Config *config.Config
	Logger log.Logger

	Genkit    *genkit.Genkit
	Embedder  ai.Embedder
	DBPool    *pgxpool.Pool
	Knowledge *knowledge.Store
	Engine    *chatbot.Engine
	Sessions  *session.Store

	otelCleanup func()
}

// Ready reports whether the answering engine is available.
func (a *App) Ready() bool {
	return a.Engine != nil
}

// Close releases all resources acquired during Setup. Safe to call on a
// partially initialized App.
func (a *App) Close() {
	if a.DBPool != nil {
		a.DBPool.Close()
		a.DBPool = nil
	}

	if a.otelCleanup != nil {
		a.otelCleanup()
		a.otelCleanup = nil
	}
}

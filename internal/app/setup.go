package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/core/tracing"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/medichat/medichat/db"
	"github.com/medichat/medichat/internal/chatbot"
	"github.com/medichat/medichat/internal/config"
	"github.com/medichat/medichat/internal/knowledge"
	"github.com/medichat/medichat/internal/log"
	"github.com/medichat/medichat/internal/session"
)

// Setup creates and initializes the application. Call Close on the
// returned App to release its resources.
//
// A failure while building the answering stack is not fatal: the error is
// logged, Engine stays nil, and the caller gets a degraded App that can
// still serve health checks and the web page.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) *App {
	a := &App{
		Config:   cfg,
		Logger:   logger,
		Sessions: session.New(),
	}

	a.otelCleanup = provideOtelShutdown(ctx, cfg, logger)

	if err := buildAnswerStack(ctx, a); err != nil {
		logger.Error("chatbot initialization failed, running degraded", "error", err)
	}

	return a
}

// buildAnswerStack initializes everything the engine needs: database,
// Genkit, embedder, knowledge store, retriever. Partial progress is kept
// on a (the pool stays open for /ready even when a later step fails).
func buildAnswerStack(ctx context.Context, a *App) error {
	cfg := a.Config
	logger := a.Logger

	if err := cfg.CheckCredentials(); err != nil {
		return err
	}

	pool, err := provideDBPool(ctx, cfg, logger)
	if err != nil {
		return err
	}
	a.DBPool = pool

	g, err := provideGenkit(ctx)
	if err != nil {
		return err
	}
	a.Genkit = g

	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)
	if embedder == nil {
		return fmt.Errorf("embedder %q not found", cfg.EmbedderModel)
	}
	a.Embedder = embedder

	a.Knowledge = knowledge.New(pool, embedder, logger)

	engine, err := chatbot.NewEngine(chatbot.Config{
		Genkit:    g,
		Retriever: chatbot.NewRetriever(a.Knowledge, logger),
		Logger:    logger,
		ModelName: cfg.ModelName,
		MaxTurns:  cfg.MaxTurns,
		TopK:      cfg.TopK,
	})
	if err != nil {
		return fmt.Errorf("creating engine: %w", err)
	}
	a.Engine = engine

	logger.Info("chatbot initialized", "model", cfg.ModelName, "embedder", cfg.EmbedderModel)
	return nil
}

// provideOtelShutdown registers an OTLP trace exporter with Genkit's
// TracerProvider. Must run before provideGenkit so spans from the first
// request are captured. Returns a no-op cleanup when tracing is disabled
// or the exporter cannot be created.
func provideOtelShutdown(ctx context.Context, cfg *config.Config, logger log.Logger) func() {
	if cfg.OTLPEndpoint == "" {
		return func() {}
	}

	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(cfg.OTLPEndpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		logger.Warn("creating OTLP exporter, tracing disabled", "error", err)
		return func() {}
	}

	processor := sdktrace.NewBatchSpanProcessor(exporter)
	tracing.TracerProvider().RegisterSpanProcessor(processor)

	logger.Debug("tracing enabled", "endpoint", cfg.OTLPEndpoint)

	shutdown := tracing.TracerProvider().Shutdown

	//nolint:contextcheck // Independent context: shutdown runs during teardown when parent is canceled
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(shutdownCtx); err != nil {
			logger.Warn("shutting down tracer provider", "error", err)
		}
	}
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config, logger log.Logger) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// provideGenkit initializes Genkit with the Google AI plugin. The plugin
// reads GEMINI_API_KEY from the environment.
func provideGenkit(ctx context.Context) (*genkit.Genkit, error) {
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	if g == nil {
		return nil, errors.New("initializing genkit")
	}
	return g, nil
}

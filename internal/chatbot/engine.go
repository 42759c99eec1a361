// Package chatbot implements the retrieval-augmented answering engine: an
// agent that consults the medical knowledge base through a retrieval tool,
// asks the model for an answer, and normalizes the resulting event stream
// into a single plain-text response.
package chatbot

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/medichat/medichat/internal/log"
)

// RetrieveToolName is the Genkit tool name for knowledge-base retrieval.
const RetrieveToolName = "retrieve_medical_context"

// EmptyQuestionMessage is returned for blank input that reaches the engine.
const EmptyQuestionMessage = "Please provide a valid question."

// Engine defaults.
const (
	DefaultModelName = "googleai/gemini-2.5-flash"
	DefaultMaxTurns  = 5
	DefaultTopK      = 3

	defaultRequestTimeout = 60 * time.Second
)

const systemPrompt = `You are a knowledgeable and empathetic Medical Information Assistant providing accurate, evidence-based medical information from authoritative medical documents.

Core responsibilities:
1. Always use the retrieval tool to search for relevant medical information before answering.
2. Base your responses on the retrieved medical literature.
3. Provide clear, well-structured medical information in language patients can understand.

Response guidelines:
- Structure responses with clear sections (Definition, Symptoms, Causes, Treatment).
- Use bullet points for lists and explain complex medical terms.
- Cite sources when providing specific medical information.

Safety and limitations:
- State that information is educational and not a substitute for professional medical advice.
- If retrieved context is insufficient, acknowledge the limitation; never fabricate medical information.
- For urgent symptoms, advise seeking immediate medical attention.
- Never provide specific diagnoses or treatment plans; remind users to consult healthcare professionals.`

// retrieveInput is the schema for the retrieval tool call.
type retrieveInput struct {
	Query string `json:"query" jsonschema_description:"The medical question to search the knowledge base for"`
}

// Config holds the dependencies and settings for the engine.
type Config struct {
	Genkit    *genkit.Genkit
	Retriever *Retriever
	Logger    log.Logger

	ModelName string        // Provider-qualified model name
	MaxTurns  int           // Maximum agentic loop turns
	TopK      int           // Passages fetched per retrieval
	Timeout   time.Duration // Per-request deadline for the whole agent run

	// RateLimiter throttles model calls (nil = default 10 req/s, burst 30).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Retriever == nil {
		return errors.New("retriever is required")
	}
	if cfg.Logger == nil {
		return errors.New("logger is required")
	}
	return nil
}

// Engine answers questions with retrieval-augmented generation. It is
// constructed once at startup and injected into the HTTP layer; all
// configuration is captured immutably at construction, so the engine is
// safe for concurrent use.
type Engine struct {
	g         *genkit.Genkit
	retriever *Retriever
	logger    log.Logger

	modelName string
	maxTurns  int
	topK      int
	timeout   time.Duration
	limiter   *rate.Limiter

	tool ai.Tool
}

// NewEngine creates the engine and registers the retrieval tool with
// Genkit. Call once per process; Genkit panics on duplicate tool names.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	modelName := cfg.ModelName
	if modelName == "" {
		modelName = DefaultModelName
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	topK := cfg.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultRequestTimeout
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(10, 30)
	}

	e := &Engine{
		g:         cfg.Genkit,
		retriever: cfg.Retriever,
		logger:    cfg.Logger,
		modelName: modelName,
		maxTurns:  maxTurns,
		topK:      topK,
		timeout:   timeout,
		limiter:   limiter,
	}

	e.tool = genkit.DefineTool(cfg.Genkit, RetrieveToolName,
		"Retrieve relevant medical information from the knowledge base.",
		func(toolCtx *ai.ToolContext, input retrieveInput) (string, error) {
			contextText, _ := e.retriever.Retrieve(toolCtx.Context, input.Query, e.topK)
			return contextText, nil
		})

	e.logger.Info("chatbot engine initialized", "model", modelName, "max_turns", maxTurns, "top_k", topK)
	return e, nil
}

// Respond answers one user message. It never returns an error: every
// failure mode degrades to a fixed user-facing string.
func (e *Engine) Respond(ctx context.Context, userMessage string) string {
	if strings.TrimSpace(userMessage) == "" {
		return EmptyQuestionMessage
	}

	e.logger.Info("processing user message", "message", preview(userMessage, 50))

	if err := e.limiter.Wait(ctx); err != nil {
		e.logger.Error("rate limiter wait failed", "error", err)
		return ErrorMessage
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	return Assemble(e.stream(ctx, userMessage), e.logger)
}

// RelevantSources returns truncated passages for display alongside an
// answer. k <= 0 uses the engine's configured top-k.
func (e *Engine) RelevantSources(ctx context.Context, query string, k int) []Passage {
	if k <= 0 {
		k = e.topK
	}
	return e.retriever.RelevantSources(ctx, query, k)
}

// stream runs the agent and converts its message history into snapshot
// events, one per message produced, mirroring the incremental states the
// agent went through.
func (e *Engine) stream(ctx context.Context, userMessage string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		resp, err := genkit.Generate(ctx, e.g,
			ai.WithModelName(e.modelName),
			ai.WithSystem(systemPrompt),
			ai.WithPrompt(userMessage),
			ai.WithTools(e.tool),
			ai.WithMaxTurns(e.maxTurns),
		)
		if err != nil {
			yield(Event{}, err)
			return
		}

		var msgs []Message
		if resp.Request != nil {
			for _, m := range resp.Request.Messages {
				msgs = append(msgs, MessageFromModel(m))
			}
		}
		if resp.Message != nil {
			msgs = append(msgs, MessageFromModel(resp.Message))
		}

		for event, streamErr := range eventStream(msgs) {
			if !yield(event, streamErr) {
				return
			}
		}
	}
}

// eventStream yields one event per messages-so-far prefix.
func eventStream(msgs []Message) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		for i := range msgs {
			if !yield(Event{Messages: msgs[:i+1]}, nil) {
				return
			}
		}
	}
}

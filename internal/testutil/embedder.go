package testutil

import (
	"context"
	"os"
	"testing"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"

	"github.com/medichat/medichat/internal/log"
)

// EmbedderSetup bundles the resources embedder-based tests need.
type EmbedderSetup struct {
	Embedder ai.Embedder
	Genkit   *genkit.Genkit
	Logger   log.Logger
}

// SetupEmbedder initializes Genkit with the Google AI plugin and returns
// a text embedder. Skips the test when GEMINI_API_KEY is not set.
func SetupEmbedder(t *testing.T) *EmbedderSetup {
	t.Helper()

	if os.Getenv("GEMINI_API_KEY") == "" {
		t.Skip("GEMINI_API_KEY not set - skipping test requiring embedder")
	}

	g := genkit.Init(context.Background(),
		genkit.WithPlugins(&googlegenai.GoogleAI{}))

	return &EmbedderSetup{
		Embedder: googlegenai.GoogleAIEmbedder(g, "text-embedding-004"),
		Genkit:   g,
		Logger:   log.NewNop(),
	}
}

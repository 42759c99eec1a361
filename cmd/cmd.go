// Package cmd provides the medichat command line interface.
//
// Commands:
//   - serve: HTTP chatbot server (default when no command is given)
//   - index: ingest documents into the knowledge base
//   - version: show version information
//
// Signal handling and graceful shutdown are implemented for serve via
// context cancellation.
package cmd

import (
	"fmt"
	"os"
)

// Execute is the main entry point for the medichat CLI.
func Execute() error {
	if len(os.Args) < 2 {
		return runServe(nil)
	}

	switch os.Args[1] {
	case "serve":
		return runServe(os.Args[2:])
	case "index":
		return runIndex(os.Args[2:])
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("medichat - Retrieval-augmented medical information chatbot")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  medichat [serve] [addr]  Start HTTP server (default: 127.0.0.1:8080)")
	fmt.Println("  medichat index <dir>     Index .txt/.md documents into the knowledge base")
	fmt.Println("  medichat --version       Show version information")
	fmt.Println("  medichat --help          Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required: Gemini API key")
	fmt.Println("  DATABASE_URL       Required: PostgreSQL connection URL (pgvector enabled)")
	fmt.Println("  SESSION_SECRET     Cookie signing secret (required outside debug mode)")
	fmt.Println("  MEDICHAT_DEBUG     Optional: enable debug logging and dev defaults")
}

// Package cmd provides the ragd command line interface.
//
// Commands:
//   - serve: HTTP API server exposing ingest, chat and sources endpoints
//   - migrate: apply pending database migrations and exit
//
// Signal handling and graceful shutdown are implemented via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ragstack/ragd/internal/log"
)

// Execute is the main entry point for the ragd application.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level, JSON: true}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "serve":
		return runServe()
	case "migrate":
		return runMigrate()
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
	fmt.Println("ragd - retrieval-augmented chat completion server")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ragd serve [addr]  Start HTTP API server (default: 127.0.0.1:8080)")
	fmt.Println("  ragd migrate       Apply pending database migrations and exit")
	fmt.Println("  ragd --version     Show version information")
	fmt.Println("  ragd --help        Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  OPENAI_API_KEY     Required: provider API key")
	fmt.Println("  DATABASE_URL       Optional: full postgres:// connection URL")
	fmt.Println("  DEBUG              Optional: enable debug logging")
}

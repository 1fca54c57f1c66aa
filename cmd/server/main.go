// ABOUTME: Main entry point for Compass MCP server with stdio transport
// ABOUTME: Initializes storage, orchestrator, and MCP server with all tools
package main

import (
	"log"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kokorohq/compass/internal/config"
	"github.com/kokorohq/compass/internal/core"
	"github.com/kokorohq/compass/internal/llm"
	"github.com/kokorohq/compass/internal/mcp"
	"github.com/kokorohq/compass/internal/storage"
)

func main() {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - turns will use the emergency responder")
	}

	// Initialize storage with XDG-compliant paths
	store, err := storage.NewStorage()
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer store.Close()

	var generator core.GenerationClient
	if cfg.OpenAIKey != "" {
		client, err := llm.NewClient(cfg.OpenAIKey)
		if err != nil {
			log.Printf("Warning: Failed to initialize generation client: %v", err)
		} else {
			generator = client
		}
	}

	orchestrator := core.NewOrchestrator(store, generator, cfg.CreditPerTurn)

	// Create MCP server
	server := mcpserver.NewMCPServer(
		"Compass Turn Orchestrator",
		"0.1.0",
	)

	// Register MCP tools
	mcp.RegisterTools(server, store, orchestrator)

	// Start server with stdio transport
	log.Println("Compass MCP server starting on stdio...")
	if err := mcpserver.ServeStdio(server); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

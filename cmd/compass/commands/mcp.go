// ABOUTME: MCP command starts Model Context Protocol server
// ABOUTME: Enables LLM agents to drive turns via stdio
package commands

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/kokorohq/compass/internal/charm"
	"github.com/kokorohq/compass/internal/config"
	"github.com/kokorohq/compass/internal/core"
	"github.com/kokorohq/compass/internal/llm"
	"github.com/kokorohq/compass/internal/mcp"
	"github.com/kokorohq/compass/internal/storage"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs Compass as an MCP (Model Context Protocol) server, enabling
LLM agents to run orchestrated turns via stdio.

Configure in Claude Desktop's config file to enable turn tools.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by the agent host)
  compass mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "compass": {
  #       "command": "compass",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

// runMCP starts the MCP server
func runMCP(cmd *cobra.Command, args []string) error {
	// Load .env file if it exists (for API keys)
	if err := godotenv.Load(); err != nil && !quiet {
		log.Printf("No .env file found (this is okay for production): %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if cfg.OpenAIKey == "" {
		log.Println("Warning: OPENAI_API_KEY not set - turns will use the emergency responder")
	}

	// Initialize storage with XDG-compliant paths
	store, err := storage.NewStorage()
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

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

	// Mirror intent profiles to Charm cloud when auto-sync is enabled
	if cfg.AutoSync {
		if client, err := charm.GetClient(); err != nil {
			log.Printf("Warning: Charm mirror unavailable: %v", err)
		} else {
			orchestrator.SetPersonMirror(client)
		}
	}

	// Create MCP server
	server := mcpserver.NewMCPServer(
		"Compass Turn Orchestrator",
		"0.1.0",
	)

	// Register MCP tools
	mcp.RegisterTools(server, store, orchestrator)

	// Setup graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !quiet {
		log.Println("Compass MCP server starting on stdio...")
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	// Wait for shutdown signal or server error
	select {
	case <-ctx.Done():
		if !quiet {
			log.Println("Shutdown signal received, gracefully shutting down...")
		}

		if err := store.Close(); err != nil {
			log.Printf("Warning: Error closing storage: %v", err)
		}

		if !quiet {
			log.Println("Shutdown complete")
		}

	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	return nil
}

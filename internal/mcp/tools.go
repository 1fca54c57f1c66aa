// ABOUTME: MCP tool definitions and registration for the turn-core server
// ABOUTME: Defines JSON schemas for the turn, history, profile, and credit tools
package mcp

import (
	"github.com/kokorohq/compass/internal/core"
	"github.com/kokorohq/compass/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, store *storage.Storage, orchestrator *core.Orchestrator) *Handlers {
	handlers := &Handlers{
		storage:      store,
		orchestrator: orchestrator,
	}

	// 1. handle_turn - Produce the next agent turn for a user utterance
	server.AddTool(mcp.Tool{
		Name:        "handle_turn",
		Description: "Produce the next agent turn for one user utterance. Decides between recall, a fixed-format plan, generation, and the emergency responder, then persists the turn with idempotent credit capture.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "User utterance",
				},
				"conversation": map[string]interface{}{
					"type":        "string",
					"description": "Conversation reference (created on first use)",
				},
				"user_code": map[string]interface{}{
					"type":        "string",
					"description": "User code the turn is billed to",
				},
			},
			Required: []string{"text", "conversation", "user_code"},
		},
	}, handlers.HandleTurn)

	// 2. get_history - Retrieve a conversation's persisted messages
	server.AddTool(mcp.Tool{
		Name:        "get_history",
		Description: "Retrieve the persisted messages of a conversation, oldest first.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"conversation": map[string]interface{}{
					"type":        "string",
					"description": "Conversation reference",
				},
			},
			Required: []string{"conversation"},
		},
	}, handlers.GetHistory)

	// 3. get_intent_profile - Read the stored person intent state
	server.AddTool(mcp.Tool{
		Name:        "get_intent_profile",
		Description: "Read the stored intent/emotional profile for a (owner, target) pair.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_code": map[string]interface{}{
					"type":        "string",
					"description": "Owner user code",
				},
				"target_type": map[string]interface{}{
					"type":        "string",
					"description": "Target type (default: self)",
				},
				"target_label": map[string]interface{}{
					"type":        "string",
					"description": "Target label (default: self)",
				},
			},
			Required: []string{"user_code"},
		},
	}, handlers.GetIntentProfile)

	// 4. credit_balance - Read a user's remaining credit
	server.AddTool(mcp.Tool{
		Name:        "credit_balance",
		Description: "Read a user's remaining credit balance.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_code": map[string]interface{}{
					"type":        "string",
					"description": "User code",
				},
			},
			Required: []string{"user_code"},
		},
	}, handlers.CreditBalance)

	// 5. grant_credit - Top up a user's credit balance
	server.AddTool(mcp.Tool{
		Name:        "grant_credit",
		Description: "Add credit to a user's balance (operator path).",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"user_code": map[string]interface{}{
					"type":        "string",
					"description": "User code",
				},
				"amount": map[string]interface{}{
					"type":        "number",
					"description": "Credit amount to add",
				},
			},
			Required: []string{"user_code", "amount"},
		},
	}, handlers.GrantCredit)

	return handlers
}

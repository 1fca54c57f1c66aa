// ABOUTME: MCP tool handler implementations for the turn-core server
// ABOUTME: Bridges tool requests to the orchestrator and storage with typed error reporting
package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kokorohq/compass/internal/core"
	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/storage"
	"github.com/mark3labs/mcp-go/mcp"
)

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	storage      *storage.Storage
	orchestrator *core.Orchestrator
}

// HandleTurn handles the handle_turn tool
func (h *Handlers) HandleTurn(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := request.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError("text argument is required and must be a string"), nil
	}
	conversationRef, err := request.RequireString("conversation")
	if err != nil {
		return mcp.NewToolResultError("conversation argument is required and must be a string"), nil
	}
	userCode, err := request.RequireString("user_code")
	if err != nil {
		return mcp.NewToolResultError("user_code argument is required and must be a string"), nil
	}

	// Tool callers hold aliases, so the conversation is created on first use
	if _, err := h.storage.ResolveOrCreateConversation(conversationRef, userCode); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to resolve conversation: %v", err)), nil
	}

	result, turnErr := h.orchestrator.HandleTurn(ctx, models.TurnInput{
		UserText:        text,
		ConversationRef: conversationRef,
		UserCode:        userCode,
	})
	if result == nil {
		return toolError(turnErr), nil
	}

	response := map[string]interface{}{
		"ok":       true,
		"turn_id":  result.TurnID,
		"text":     result.Text,
		"strategy": result.Strategy,
		"meta":     result.Meta,
	}
	if turnErr != nil {
		// The reply stands; bookkeeping failures ride along as a typed code
		var te *models.TurnError
		if errors.As(turnErr, &te) {
			response["error_code"] = string(te.Code)
			response["error"] = te.Error()
		}
	}

	return jsonResult(response)
}

// GetHistory handles the get_history tool
func (h *Handlers) GetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	conversationRef, err := request.RequireString("conversation")
	if err != nil {
		return mcp.NewToolResultError("conversation argument is required and must be a string"), nil
	}

	conversationID, err := h.storage.ResolveConversation(conversationRef)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("unknown conversation %q", conversationRef)), nil
	}

	history, err := h.storage.History(conversationID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load history: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{
		"ok":       true,
		"messages": history,
	})
}

// GetIntentProfile handles the get_intent_profile tool
func (h *Handlers) GetIntentProfile(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userCode, err := request.RequireString("user_code")
	if err != nil {
		return mcp.NewToolResultError("user_code argument is required and must be a string"), nil
	}
	targetType := request.GetString("target_type", models.TargetSelf)
	targetLabel := request.GetString("target_label", models.TargetSelf)

	state, err := h.storage.GetPersonState(userCode, targetType, targetLabel)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to load intent profile: %v", err)), nil
	}
	if state == nil {
		return jsonResult(map[string]interface{}{"ok": true, "profile": nil})
	}

	return jsonResult(map[string]interface{}{"ok": true, "profile": state})
}

// CreditBalance handles the credit_balance tool
func (h *Handlers) CreditBalance(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userCode, err := request.RequireString("user_code")
	if err != nil {
		return mcp.NewToolResultError("user_code argument is required and must be a string"), nil
	}

	balance, err := h.storage.CreditBalance(userCode)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to read balance: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{"ok": true, "balance": balance})
}

// GrantCredit handles the grant_credit tool
func (h *Handlers) GrantCredit(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userCode, err := request.RequireString("user_code")
	if err != nil {
		return mcp.NewToolResultError("user_code argument is required and must be a string"), nil
	}
	amount, err := request.RequireFloat("amount")
	if err != nil {
		return mcp.NewToolResultError("amount argument is required and must be a number"), nil
	}
	if amount < 0 {
		return mcp.NewToolResultError("amount must be non-negative"), nil
	}

	balance, err := h.storage.GrantCredit(userCode, int64(amount))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to grant credit: %v", err)), nil
	}

	return jsonResult(map[string]interface{}{"ok": true, "balance": balance})
}

// toolError renders a typed turn error as a tool error payload
func toolError(err error) *mcp.CallToolResult {
	var te *models.TurnError
	if errors.As(err, &te) {
		payload, marshalErr := json.Marshal(map[string]interface{}{
			"ok":    false,
			"code":  string(te.Code),
			"error": te.Error(),
		})
		if marshalErr == nil {
			return mcp.NewToolResultError(string(payload))
		}
	}
	return mcp.NewToolResultError(fmt.Sprintf("turn failed: %v", err))
}

// jsonResult marshals a response map into a text tool result
func jsonResult(response map[string]interface{}) (*mcp.CallToolResult, error) {
	payload, err := json.MarshalIndent(response, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(payload)), nil
}

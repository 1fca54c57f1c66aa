// ABOUTME: Chat command runs one turn through the orchestrator from the terminal
// ABOUTME: Creates the conversation on first use and prints the reply with its strategy
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kokorohq/compass/internal/config"
	"github.com/kokorohq/compass/internal/core"
	"github.com/kokorohq/compass/internal/llm"
	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/storage"
)

var chatConversation string

// NewChatCmd creates the chat command
func NewChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [text]",
		Short: "Send one utterance and print the agent's turn",
		Long: `Send one user utterance through the turn orchestrator.

Examples:
  compass chat "今日は少し疲れました"
  compass chat --conversation work "what was my goal again?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringVarP(&chatConversation, "conversation", "c", "default", "Conversation reference")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	// Load .env for API keys
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := storage.NewStorage()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	var generator core.GenerationClient
	if cfg.OpenAIKey != "" {
		client, err := llm.NewClient(cfg.OpenAIKey)
		if err != nil {
			return fmt.Errorf("failed to create generation client: %w", err)
		}
		generator = client
	} else if !quiet {
		fmt.Println("Note: OPENAI_API_KEY not set - falling back to the emergency responder")
	}

	orchestrator := core.NewOrchestrator(store, generator, cfg.CreditPerTurn)

	if _, err := store.ResolveOrCreateConversation(chatConversation, userCode); err != nil {
		return fmt.Errorf("failed to resolve conversation: %w", err)
	}

	text := strings.Join(args, " ")
	result, turnErr := orchestrator.HandleTurn(context.Background(), models.TurnInput{
		UserText:        text,
		ConversationRef: chatConversation,
		UserCode:        userCode,
	})
	if result == nil {
		return turnErr
	}

	fmt.Println(result.Text)
	if !quiet {
		fmt.Printf("\n[strategy: %s]\n", result.Strategy)
		if balance, ok := result.Meta["balance"]; ok {
			fmt.Printf("[balance: %s]\n", balance)
		}
	}

	if turnErr != nil {
		var te *models.TurnError
		if errors.As(turnErr, &te) && te.Code == models.ErrCodeInsufficientCredit {
			return fmt.Errorf("credit capture failed (reply above still stands): %w", turnErr)
		}
		return turnErr
	}
	return nil
}

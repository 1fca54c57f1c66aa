// ABOUTME: History command lists conversations and their persisted messages
// ABOUTME: Read-only operator view over the message store
package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kokorohq/compass/internal/storage"
)

var (
	historyConversation string
	historyLimit        int
)

// NewHistoryCmd creates the history command
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show conversations or one conversation's messages",
		Long: `Show stored conversations, or the messages of one conversation.

Examples:
  compass history
  compass history --conversation work`,
		RunE: runHistory,
	}

	cmd.Flags().StringVarP(&historyConversation, "conversation", "c", "", "Conversation reference to show")
	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Maximum conversations to list")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	if err := validatePositiveInt(historyLimit, "limit"); err != nil {
		return err
	}

	store, err := storage.NewStorage()
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	if historyConversation == "" {
		return listConversations(store)
	}
	return showConversation(store, historyConversation)
}

func listConversations(store *storage.Storage) error {
	convs, err := store.ListConversations(userCode, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	if len(convs) == 0 {
		fmt.Println("No conversations yet")
		return nil
	}

	for _, conv := range convs {
		fmt.Printf("%-20s  updated %s\n", conv.PublicRef, formatTime(conv.UpdatedAt))
	}
	return nil
}

func showConversation(store *storage.Storage, ref string) error {
	conversationID, err := store.ResolveConversation(ref)
	if err != nil {
		return fmt.Errorf("unknown conversation %q: %w", ref, err)
	}

	messages, err := store.Messages(conversationID)
	if err != nil {
		return fmt.Errorf("failed to load messages: %w", err)
	}

	for _, msg := range messages {
		fmt.Printf("[%s] %-9s %s\n", formatTime(msg.CreatedAt), msg.Role, truncate(msg.Content, 80))
	}
	return nil
}

// ABOUTME: Profile command group for person intent-state inspection and seeding
// ABOUTME: Reads stored profiles and can seed one from text via the classifier
package commands

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kokorohq/compass/internal/config"
	"github.com/kokorohq/compass/internal/llm"
	"github.com/kokorohq/compass/internal/models"
	"github.com/kokorohq/compass/internal/storage"
)

// NewProfileCmd creates the profile command group
func NewProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Inspect or seed person intent profiles",
		Long: `Person intent profiles are kept per (owner, target) pair and updated
after every confident classification. This command shows them, and can
seed one from a piece of text using the classifier.`,
	}

	cmd.AddCommand(newProfileShowCmd())
	cmd.AddCommand(newProfileSeedCmd())

	return cmd
}

func newProfileShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show all stored intent profiles for the user",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			states, err := store.ListPersonStates(userCode)
			if err != nil {
				return fmt.Errorf("failed to load profiles: %w", err)
			}

			if len(states) == 0 {
				fmt.Println("No intent profiles yet")
				return nil
			}

			for _, state := range states {
				fmt.Printf("%s/%s  q=%s depth=%s phase=%s", state.TargetType, state.TargetLabel,
					state.Q, state.Depth, state.Phase)
				if state.CoreNeed != "" {
					fmt.Printf("  need=%s", truncate(state.CoreNeed, 30))
				}
				fmt.Printf("  (updated %s)\n", formatTime(state.UpdatedAt))
			}
			return nil
		},
	}
}

func newProfileSeedCmd() *cobra.Command {
	var targetLabel string

	cmd := &cobra.Command{
		Use:   "seed [text]",
		Short: "Seed an intent profile from text via the classifier",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}
			if cfg.OpenAIKey == "" {
				return fmt.Errorf("OPENAI_API_KEY is required for profile seeding")
			}

			client, err := llm.NewClient(cfg.OpenAIKey)
			if err != nil {
				return fmt.Errorf("failed to create classifier client: %w", err)
			}

			meta, err := client.ExtractClassification(strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("classification failed: %w", err)
			}
			if !meta.Confident {
				fmt.Println("Classifier was not confident; nothing stored")
				return nil
			}

			store, err := storage.NewStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			state := &models.PersonState{
				OwnerUserCode: userCode,
				TargetType:    models.TargetSelf,
				TargetLabel:   targetLabel,
				Q:             meta.Q,
				Depth:         meta.Depth,
				Phase:         meta.Phase,
				IntentBand:    meta.IntentBand,
				Direction:     meta.Direction,
				FocusLayer:    meta.FocusLayer,
				CoreNeed:      meta.CoreNeed,
			}
			if err := store.UpsertPersonState(state); err != nil {
				return fmt.Errorf("failed to store profile: %w", err)
			}

			fmt.Printf("Stored profile %s/%s: q=%s depth=%s phase=%s\n",
				state.TargetType, state.TargetLabel, state.Q, state.Depth, state.Phase)
			return nil
		},
	}

	cmd.Flags().StringVar(&targetLabel, "target", models.TargetSelf, "Target label for the profile")
	return cmd
}

// ABOUTME: Sync commands for Charm cloud synchronization of intent profiles
// ABOUTME: Provides status, push, wipe, and keys management
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kokorohq/compass/internal/charm"
	"github.com/kokorohq/compass/internal/storage"
)

// NewSyncCmd creates the sync command group
func NewSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Manage Charm cloud synchronization",
		Long: `Manage synchronization of person intent profiles with Charm cloud.

Profiles mirror automatically after each confident classification; these
commands inspect and force that mirror across devices linked to the same
Charm account.`,
	}

	cmd.AddCommand(newSyncStatusCmd())
	cmd.AddCommand(newSyncNowCmd())
	cmd.AddCommand(newSyncPushCmd())
	cmd.AddCommand(newSyncWipeCmd())
	cmd.AddCommand(newSyncKeysCmd())

	return cmd
}

func newSyncStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show sync status and connection info",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			id, err := client.ID()
			if err != nil {
				fmt.Println("Status: Not connected")
				fmt.Println("Run 'compass sync keys' to check your SSH keys")
				return nil
			}

			fmt.Println("Status: Connected")
			fmt.Printf("User ID: %s\n", id)
			fmt.Printf("Host: %s\n", os.Getenv("CHARM_HOST"))

			mirrored, err := client.ListKeys(charm.PersonPrefix)
			if err == nil {
				fmt.Printf("Mirrored profiles: %d\n", len(mirrored))
			}

			return nil
		},
	}
}

func newSyncNowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Force immediate sync with Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			fmt.Println("Syncing...")
			if err := client.Sync(); err != nil {
				return fmt.Errorf("sync failed: %w", err)
			}

			fmt.Println("Sync complete")
			return nil
		},
	}
}

func newSyncPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push",
		Short: "Re-mirror all local intent profiles to the cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			states, err := store.ListPersonStates(userCode)
			if err != nil {
				return fmt.Errorf("failed to load profiles: %w", err)
			}

			pushed := 0
			for i := range states {
				if err := client.MirrorPersonState(&states[i]); err != nil {
					fmt.Printf("Warning: failed to mirror %s/%s: %v\n",
						states[i].TargetType, states[i].TargetLabel, err)
					continue
				}
				pushed++
			}

			fmt.Printf("Pushed %d of %d profiles\n", pushed, len(states))
			return nil
		},
	}
}

func newSyncWipeCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Wipe all mirrored data from Charm cloud",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				return fmt.Errorf("refusing to wipe without --force")
			}

			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			if err := client.Reset(); err != nil {
				return fmt.Errorf("wipe failed: %w", err)
			}

			fmt.Println("Mirrored data wiped")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Confirm the wipe")
	return cmd
}

func newSyncKeysCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "keys",
		Short: "List SSH keys linked to the Charm account",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := charm.GetClient()
			if err != nil {
				return fmt.Errorf("failed to connect to Charm: %w", err)
			}

			keys, err := client.GetAuthorizedKeys()
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}

			fmt.Println(keys)
			return nil
		},
	}
}

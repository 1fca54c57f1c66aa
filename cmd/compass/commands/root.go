// ABOUTME: Root CLI command with global flags and subcommand wiring
// ABOUTME: Entry point for chat, history, credit, profile, sync, mcp, and version
package commands

import (
	"github.com/spf13/cobra"
)

var (
	quiet    bool
	userCode string
)

// NewRootCmd creates the root command with all subcommands attached
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compass",
		Short: "Turn-orchestration core for a conversational agent",
		Long: `
 ██████╗ ██████╗ ███╗   ███╗██████╗  █████╗ ███████╗███████╗
██╔════╝██╔═══██╗████╗ ████║██╔══██╗██╔══██╗██╔════╝██╔════╝
██║     ██║   ██║██╔████╔██║██████╔╝███████║███████╗███████╗
██║     ██║   ██║██║╚██╔╝██║██╔═══╝ ██╔══██║╚════██║╚════██║
╚██████╗╚██████╔╝██║ ╚═╝ ██║██║     ██║  ██║███████║███████║
 ╚═════╝ ╚═════╝ ╚═╝     ╚═╝╚═╝     ╚═╝  ╚═╝╚══════╝╚══════╝

Compass decides how each agent turn is produced: recall from history,
a locked diagnostic plan, scaffolded generation, or the emergency
responder. Turns persist exactly once with idempotent credit capture.`,
	}

	cmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress informational output")
	cmd.PersistentFlags().StringVarP(&userCode, "user", "u", "local", "User code to act as")

	cmd.AddCommand(NewChatCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewCreditCmd())
	cmd.AddCommand(NewProfileCmd())
	cmd.AddCommand(NewSyncCmd())
	cmd.AddCommand(NewMCPCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

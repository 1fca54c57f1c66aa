// ABOUTME: Credit command group for balance, grants, and ledger inspection
// ABOUTME: Operator surface over the idempotent credit ledger
package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kokorohq/compass/internal/storage"
)

// NewCreditCmd creates the credit command group
func NewCreditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credit",
		Short: "Manage the per-user credit ledger",
		Long: `Inspect and top up the credit ledger that turn capture debits.

Each accepted turn debits credit exactly once, keyed by the turn id.`,
	}

	cmd.AddCommand(newCreditBalanceCmd())
	cmd.AddCommand(newCreditGrantCmd())
	cmd.AddCommand(newCreditLedgerCmd())

	return cmd
}

func newCreditBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the current credit balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.NewStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			balance, err := store.CreditBalance(userCode)
			if err != nil {
				return fmt.Errorf("failed to read balance: %w", err)
			}

			fmt.Printf("Balance for %s: %d\n", userCode, balance)
			return nil
		},
	}
}

func newCreditGrantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "grant [amount]",
		Short: "Add credit to the balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || amount < 0 {
				return fmt.Errorf("amount must be a non-negative integer, got %q", args[0])
			}

			store, err := storage.NewStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			balance, err := store.GrantCredit(userCode, amount)
			if err != nil {
				return fmt.Errorf("failed to grant credit: %w", err)
			}

			fmt.Printf("Granted %d to %s, new balance: %d\n", amount, userCode, balance)
			return nil
		},
	}
}

func newCreditLedgerCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "Show recent ledger entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validatePositiveInt(limit, "limit"); err != nil {
				return err
			}

			store, err := storage.NewStorage()
			if err != nil {
				return fmt.Errorf("failed to open storage: %w", err)
			}
			defer func() { _ = store.Close() }()

			entries, err := store.LedgerEntries(userCode, limit)
			if err != nil {
				return fmt.Errorf("failed to load ledger: %w", err)
			}

			if len(entries) == 0 {
				fmt.Println("No ledger entries yet")
				return nil
			}

			for _, entry := range entries {
				fmt.Printf("[%s] -%d  %-8s key=%s\n",
					formatTime(entry.CreatedAt), entry.Amount, entry.Reason, truncate(entry.IdempotencyKey, 28))
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show")
	return cmd
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "gridpolicy",
		Short: "Learn a 2025-2050 grid build-out policy",
		Long: `gridpolicy searches for a sequence of yearly grid actions that reaches
net zero reliably and cheaply. Each iteration plays one full trajectory,
learns from its outcome, and checkpoints the learned weights.`,
		SilenceUsage: true,
	}
	root.AddCommand(newSearchCmd(), newInspectCmd(), newHistoryCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

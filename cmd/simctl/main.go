package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "simctl",
		Short: "Operate the campus simulator from the shell",
		Long: `simctl seeds the synthetic institution, advances the simulated clock
and exports risk reports against the store configured in the environment
(STORE_DRIVER, DB_*, ENABLE_REDIS, SIM_*).`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newSeedCmd(),
		newTickCmd(),
		newStateCmd(),
		newExportCmd(),
		newTokenCmd(),
		newHashPasswordCmd(),
	)
	return rootCmd
}

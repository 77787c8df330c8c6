package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "blockring",
	Short: "Bounded block ring producer/consumer demo",
	Long: `blockring exercises a fixed-capacity ring of fixed-size blocks.

Producers encode records into slots and block while the ring is full,
consumers poll it with a bounded wait and stop cooperatively on Ctrl-C
or when the configured duration elapses.

Usage:
  blockring run --blocks 5 --block-size 256 --duration 5s`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(runCmd)
}

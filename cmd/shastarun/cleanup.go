package main

import (
	"github.com/aretw0/shastarun/internal/cli"
	"github.com/spf13/cobra"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Release the huge-page memory",
	Long:  `Removes the data path and unmounts the huge-page mount point, e.g. after a run crashed.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cli.Cleanup(globalOptions(cmd))
	},
}

func init() {
	rootCmd.AddCommand(cleanupCmd)
}

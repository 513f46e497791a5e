package main

import (
	"github.com/aretw0/shastarun/internal/cli"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		return cli.ListRuns(cli.ListOptions{
			GlobalOptions: globalOptions(cmd),
			JSON:          jsonMode,
		}, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Bool("json", false, "Print one JSON record per line")
}

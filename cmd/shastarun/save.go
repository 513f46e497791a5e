package main

import (
	"errors"

	"github.com/aretw0/shastarun/internal/cli"
	"github.com/spf13/cobra"
)

var saveCmd = &cobra.Command{
	Use:   "save --runDir <run-directory>",
	Short: "Save the huge-page memory into a run directory",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		runDir, _ := cmd.Flags().GetString("runDir")
		if runDir == "" && len(args) > 0 {
			runDir = args[0]
		}
		if runDir == "" {
			return cli.UsageError(errors.New("--runDir is required"))
		}
		return cli.Save(cli.SaveOptions{
			GlobalOptions: globalOptions(cmd),
			RunDir:        runDir,
		})
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
	saveCmd.Flags().String("runDir", "", "Run directory receiving the snapshot")
}

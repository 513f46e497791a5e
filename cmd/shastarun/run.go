package main

import (
	"errors"

	"github.com/aretw0/shastarun/internal/cli"
	"github.com/spf13/cobra"
)

var (
	savePageMemory     = cli.NewBoolValue(false)
	performPageCleanUp = cli.NewBoolValue(true)
	overrideFlags      *cli.OverrideFlags
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Assemble a sequence file",
	Long: `Materializes shasta.conf with the given overrides, creates a fresh
run directory under the output directory and runs the assembler there.

Boolean flags take an explicit value: true/false, yes/no, y/n, t/f or 1/0.`,
	Example: `  shastarun run --inputSequences reads.fasta --k 15 --savePageMemory yes --performPageCleanUp yes`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		input, _ := cmd.Flags().GetString("inputSequences")
		if input == "" {
			return cli.UsageError(errors.New("--inputSequences is required"))
		}
		outputDir, _ := cmd.Flags().GetString("outputDir")
		overridesFile, _ := cmd.Flags().GetString("overrides")

		overrides, err := overrideFlags.Overrides()
		if err != nil {
			return err
		}

		return cli.Execute(cli.RunOptions{
			GlobalOptions: globalOptions(cmd),
			Input:         input,
			OutputDir:     outputDir,
			OverridesFile: overridesFile,
			Overrides:     overrides,
			Save:          savePageMemory.Value(),
			Cleanup:       performPageCleanUp.Value(),
		})
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().String("inputSequences", "", "Input FASTA or FASTQ file")
	runCmd.Flags().String("outputDir", "", "Parent of the run directory (default from settings, ./output/)")
	runCmd.Flags().String("overrides", "", "YAML or JSON file of configuration overrides")
	runCmd.Flags().Var(savePageMemory, "savePageMemory", "Save page memory to disk before releasing it")
	runCmd.Flags().Var(performPageCleanUp, "performPageCleanUp", "Release page memory after the run (default true)")

	overrideFlags = cli.RegisterOverrideFlags(runCmd.Flags())
}

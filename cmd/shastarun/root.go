package main

import (
	"fmt"
	"os"

	"github.com/aretw0/shastarun/internal/cli"
	"github.com/aretw0/shastarun/internal/settings"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "shastarun",
	Short: "shastarun runs the Shasta assembler on huge-page memory",
	Long: `shastarun prepares a run directory with the assembler configuration,
launches the assembler inside it and then saves and releases the huge-page
memory it used. Interrupting a run always releases the memory.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and exits with the
// status matching the returned error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Settings file (default "+settings.DefaultFile+" if present)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return cli.UsageError(err)
	})
}

func globalOptions(cmd *cobra.Command) cli.GlobalOptions {
	path, _ := cmd.Flags().GetString("config")
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	return cli.GlobalOptions{
		SettingsPath: path,
		LogLevel:     level,
		LogFormat:    format,
	}
}

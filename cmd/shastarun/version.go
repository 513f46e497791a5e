package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/shastarun"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of shastarun",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("shastarun version %s\n", strings.TrimSpace(shastarun.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

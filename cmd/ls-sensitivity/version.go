package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/litescript/ls-sensitivity/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Println("ls-sensitivity", version.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

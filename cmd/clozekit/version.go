package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/clozekit"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of clozekit",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("clozekit version %s\n", strings.TrimSpace(clozekit.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

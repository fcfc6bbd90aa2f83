package main

import (
	"fmt"
	"strings"

	"github.com/aretw0/reviewlink"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of reviewlink",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "reviewlink version %s\n", strings.TrimSpace(reviewlink.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

package main

import (
	"fmt"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/spf13/cobra"
)

var useCmd = &cobra.Command{
	Use:   "use <transport> [target]",
	Short: "Select the active transport and optionally its target",
	Example: `  reviewlink use tmux %3
  reviewlink use clipboard`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, err := domain.ParseKind(args[0])
		if err != nil {
			return err
		}
		var target *string
		if len(args) == 2 {
			target = &args[1]
		}

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		saved, err := app.Service.SaveActiveConfig(cmd.Context(), kind, target)
		if err != nil {
			return err
		}
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), saved)
		}
		if id := saved.TargetID(); id != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Active transport: %s (target %s)\n", saved.ActiveTransport, id)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Active transport: %s\n", saved.ActiveTransport)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(useCmd)
}

package main

import (
	"fmt"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/spf13/cobra"
)

var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "List delivery targets across every transport",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		listing := app.Service.ListAllTargets(cmd.Context())
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), listing)
		}

		rows := make([][]string, 0, len(listing.Targets))
		for _, t := range listing.Targets {
			rows = append(rows, []string{string(t.Transport), t.ID, t.Label})
		}
		md := table([]string{"Transport", "ID", "Label"}, rows)
		for _, e := range listing.Errors {
			md += fmt.Sprintf("\n> %s: %s\n", e.Transport, e.Error)
		}
		return printMarkdown(cmd.OutOrStdout(), md)
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show availability of every transport and the active selection",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		ctx := cmd.Context()
		active, err := app.Service.Load(ctx)
		if err != nil {
			return err
		}
		statuses := app.Service.AllStatus(ctx)
		if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
			return printJSON(cmd.OutOrStdout(), struct {
				Active   domain.ActiveConfig      `json:"active"`
				Statuses []domain.TransportStatus `json:"statuses"`
			}{active, statuses})
		}

		rows := make([][]string, 0, len(statuses))
		for _, s := range statuses {
			state := "available"
			if !s.Available {
				state = "unavailable"
			}
			mark := ""
			if s.Transport == active.ActiveTransport {
				mark = "*"
			}
			rows = append(rows, []string{mark, string(s.Transport), state, s.Error})
		}
		md := table([]string{"", "Transport", "State", "Reason"}, rows)
		if id := active.TargetID(); id != "" {
			md += fmt.Sprintf("\nLast target: `%s`\n", id)
		}
		return printMarkdown(cmd.OutOrStdout(), md)
	},
}

func init() {
	rootCmd.AddCommand(targetsCmd)
	rootCmd.AddCommand(statusCmd)
}

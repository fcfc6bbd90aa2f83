package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/reviewlink/pkg/domain"
	"github.com/aretw0/reviewlink/pkg/transport"
	"github.com/spf13/cobra"
)

var previewCmd = &cobra.Command{
	Use:   "preview [file]",
	Short: "Render the message a batch of comments would produce",
	Long: `Reads a JSON array of comment payloads from a file, or stdin when no file
(or "-") is given, and prints the Markdown message that would be delivered.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r io.Reader = cmd.InOrStdin()
		if len(args) == 1 && args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			r = f
		}

		var payloads []domain.CommentPayload
		if err := json.NewDecoder(r).Decode(&payloads); err != nil {
			return fmt.Errorf("failed to decode comments: %w", err)
		}
		if len(payloads) == 0 {
			return fmt.Errorf("%w: no comments to preview", domain.ErrValidation)
		}

		text := transport.Format(payloads)
		if raw, _ := cmd.Flags().GetBool("raw"); raw {
			_, err := io.WriteString(cmd.OutOrStdout(), text)
			return err
		}
		return printMarkdown(cmd.OutOrStdout(), text)
	},
}

func init() {
	rootCmd.AddCommand(previewCmd)
	previewCmd.Flags().Bool("raw", false, "Print the Markdown source even on a terminal")
}

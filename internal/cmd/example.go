package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docsubmit/docsubmit/internal/core/document"
)

var exampleCmd = &cobra.Command{
	Use:   "example",
	Short: "Print the example document",
	Long: `Print the built-in goods introduction document.

The output is a valid input for submit and can be used as a template:
  docsubmit example --format yaml > doc.yaml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		format, err := document.ParseFormat(value)
		if err != nil {
			return err
		}
		return document.Encode(cmd.OutOrStdout(), document.Example(), format)
	},
}

func init() {
	rootCmd.AddCommand(exampleCmd)
	exampleCmd.Flags().String("format", "json", "Output format: json, yaml")
}

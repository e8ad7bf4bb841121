package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var extractJSON bool

var extractCmd = &cobra.Command{
	Use:   "extract <url>",
	Short: "Print the readable text of a page",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()

		bridge, err := openPage(GetConfig().Extract, args[0])
		if err != nil {
			return err
		}
		article, err := bridge.ExtractArticle(ctx)
		if err != nil {
			return err
		}
		if article == nil {
			return errors.New("no readable content found")
		}
		out := cmd.OutOrStdout()
		if extractJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(article)
		}
		fmt.Fprintf(out, "# %s\n\n%s\n", article.Title, article.Text)
		return nil
	},
}

func init() {
	extractCmd.Flags().BoolVar(&extractJSON, "json", false, "print the article record as JSON")
	rootCmd.AddCommand(extractCmd)
}

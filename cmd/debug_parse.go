package cmd

import (
	"fmt"
	"sort"

	"neutral-reader/internal/markdown"

	"github.com/spf13/cobra"
)

var debugParseCmd = &cobra.Command{
	Use:   "debug-parse <markdown_path>",
	Short: "Debug: parse an exported article and print what import would see",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := markdown.ParseFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		keys := make([]string, 0, len(doc.Frontmatter))
		for k := range doc.Frontmatter {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "frontmatter keys: %v\n", keys)
		fmt.Fprintf(out, "body bytes: %d\n", len(doc.Body))

		a, err := markdown.ParseArticle(doc)
		if err != nil {
			fmt.Fprintf(out, "article: %v\n", err)
			return nil
		}
		fmt.Fprintf(out, "article: %s (%s)\n", a.Title, a.URL)
		for _, v := range a.Versions {
			fmt.Fprintf(out, "  %-12s %d chars, processed %s\n", v.Type, len(v.Content), v.ProcessedAt.Format("2006-01-02 15:04"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(debugParseCmd)
}

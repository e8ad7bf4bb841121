package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"neutral-reader/internal/markdown"
	"neutral-reader/internal/model"
	"neutral-reader/internal/search"
	"neutral-reader/internal/storage"

	"github.com/spf13/cobra"
)

// savedCmd groups commands working on the saved collection.
var savedCmd = &cobra.Command{
	Use:   "saved",
	Short: "Manage saved articles",
}

// withStore opens the configured backend for the duration of fn.
func withStore(fn func(ctx context.Context, store *storage.ArticleStore) error) error {
	ctx, cancel := commandContext()
	defer cancel()
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	return fn(ctx, a.store)
}

func parseIndex(s string) (int, error) {
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid index %q", s)
	}
	return i, nil
}

func articleAt(ctx context.Context, store *storage.ArticleStore, index int) (model.SavedArticle, error) {
	articles, err := store.GetSavedArticles(ctx)
	if err != nil {
		return model.SavedArticle{}, err
	}
	if index < 0 || index >= len(articles) {
		return model.SavedArticle{}, fmt.Errorf("%w: %d (have %d)", storage.ErrIndexOutOfRange, index, len(articles))
	}
	return articles[index], nil
}

func printArticles(w io.Writer, articles []model.SavedArticle) {
	if len(articles) == 0 {
		fmt.Fprintln(w, "No saved articles yet.")
		return
	}
	for i, a := range articles {
		types := make([]string, 0, len(a.Versions))
		for _, v := range a.Versions {
			types = append(types, string(v.Type))
		}
		fmt.Fprintf(w, "%3d  %s  %s\n     %s  [%s]\n", i, a.SavedAt.Local().Format("2006-01-02 15:04"), a.Title, a.URL, strings.Join(types, ", "))
	}
}

var savedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved articles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			articles, err := store.GetSavedArticles(ctx)
			if err != nil {
				return err
			}
			printArticles(cmd.OutOrStdout(), articles)
			return nil
		})
	},
}

var savedShowCmd = &cobra.Command{
	Use:   "show <index>",
	Short: "Print a saved article with all its versions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			a, err := articleAt(ctx, store, index)
			if err != nil {
				return err
			}
			out, err := markdown.RenderArticle(a)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), out)
			return nil
		})
	},
}

var savedDeleteCmd = &cobra.Command{
	Use:   "delete <index>",
	Short: "Delete the saved article at index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			if err := store.DeleteArticle(ctx, index); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted.")
			return nil
		})
	},
}

var clearYes bool

var savedClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved article",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to delete all saved articles without --yes")
		}
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			if err := store.ClearAllArticles(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All saved articles deleted.")
			return nil
		})
	},
}

var exportDir string

var savedExportCmd = &cobra.Command{
	Use:   "export <index>",
	Short: "Write a saved article to a Markdown file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := parseIndex(args[0])
		if err != nil {
			return err
		}
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			a, err := articleAt(ctx, store, index)
			if err != nil {
				return err
			}
			out, err := markdown.RenderArticle(a)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(exportDir, 0o755); err != nil {
				return err
			}
			path := filepath.Join(exportDir, markdown.Filename(a))
			if err := os.WriteFile(path, []byte(out), 0o644); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		})
	},
}

var savedImportCmd = &cobra.Command{
	Use:   "import <file.md>",
	Short: "Import an exported article, merging versions into an existing record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := markdown.ParseFile(args[0])
		if err != nil {
			return err
		}
		imported, err := markdown.ParseArticle(doc)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			err := store.SaveArticle(ctx, imported)
			if errors.Is(err, storage.ErrDuplicateArticle) {
				existing, _, ferr := store.FindByURL(ctx, imported.URL)
				if ferr != nil {
					return ferr
				}
				versions := existing.Versions
				for _, v := range imported.Versions {
					versions = model.UpsertVersion(versions, v)
				}
				err = store.UpdateArticleVersions(ctx, imported.URL, versions)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s (%d versions).\n", imported.URL, len(imported.Versions))
			return nil
		})
	},
}

var searchLimit int

var savedSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over saved articles",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(func(ctx context.Context, store *storage.ArticleStore) error {
			articles, err := store.GetSavedArticles(ctx)
			if err != nil {
				return err
			}
			idx, err := search.New()
			if err != nil {
				return err
			}
			defer idx.Close()
			if err := idx.Rebuild(articles); err != nil {
				return err
			}
			hits, err := idx.Search(strings.Join(args, " "), searchLimit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(hits) == 0 {
				fmt.Fprintln(out, "No matches.")
				return nil
			}
			for _, h := range hits {
				fmt.Fprintf(out, "%6.3f  %s\n        %s\n", h.Score, h.Title, h.URL)
			}
			return nil
		})
	},
}

func init() {
	savedClearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deleting every saved article")
	savedExportCmd.Flags().StringVarP(&exportDir, "output", "o", ".", "directory to write the file into")
	savedSearchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum number of results")

	savedCmd.AddCommand(savedListCmd, savedShowCmd, savedDeleteCmd, savedClearCmd,
		savedExportCmd, savedImportCmd, savedSearchCmd)
	rootCmd.AddCommand(savedCmd)
}

package cmd

import (
	"errors"
	"fmt"

	"neutral-reader/internal/model"
	"neutral-reader/internal/session"

	"github.com/spf13/cobra"
)

func bannerError(st session.State) error {
	if st.Banner != nil {
		return errors.New(st.Banner.Text)
	}
	return errors.New(st.DisplayText)
}

// newProcessCmd builds a command that extracts url, transforms it with t and
// optionally saves the result as a version.
func newProcessCmd(use, short string, t model.ProcessingType) *cobra.Command {
	var save bool
	c := &cobra.Command{
		Use:   use + " <url>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			bridge, err := openPage(a.cfg.Extract, args[0])
			if err != nil {
				return err
			}
			ctrl := session.NewController(bridge, a.store, a.model)

			st := ctrl.Extract(ctx)
			if st.Phase != session.PhaseExtracted {
				return bannerError(st)
			}
			if st.IsAlreadySaved {
				fmt.Fprintln(cmd.ErrOrStderr(), "This article is already in your saved collection.")
			}
			st = ctrl.Process(ctx, t)
			if st.Phase != session.PhaseProcessed {
				return bannerError(st)
			}
			fmt.Fprintln(cmd.OutOrStdout(), st.DisplayText)

			if !save {
				return nil
			}
			st = ctrl.Save(ctx)
			if st.Banner == nil || st.Banner.Variant != session.VariantSuccess {
				return bannerError(st)
			}
			fmt.Fprintln(cmd.ErrOrStderr(), st.Banner.Text)
			return nil
		},
	}
	c.Flags().BoolVar(&save, "save", false, "save the result as a version of the article")
	return c
}

func init() {
	rootCmd.AddCommand(
		newProcessCmd("neutralize", "Rewrite a page in neutral language", model.Neutralized),
		newProcessCmd("factcheck", "Fact-check the claims of a page", model.FactChecked),
	)
}

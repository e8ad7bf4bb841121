package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// keyCmd manages the language-model API key kept in the store.
var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the model API key",
}

var keySetCmd = &cobra.Command{
	Use:   "set <value>",
	Short: "Store the API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := strings.TrimSpace(args[0])
		if value == "" {
			return errors.New("key must not be empty")
		}
		ctx, cancel := commandContext()
		defer cancel()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		if err := a.store.SetCredential(ctx, value); err != nil {
			return err
		}
		a.creds.Invalidate()
		fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
		return nil
	},
}

var keyShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show which API key is in use, masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := commandContext()
		defer cancel()
		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		out := cmd.OutOrStdout()
		stored, ok, err := a.store.GetCredential(ctx)
		if err != nil {
			return err
		}
		if ok {
			fmt.Fprintf(out, "stored: %s\n", maskKey(stored))
			return nil
		}
		if fallback, _ := a.creds.Resolve(ctx); fallback != "" {
			fmt.Fprintf(out, "config: %s\n", maskKey(fallback))
			return nil
		}
		fmt.Fprintln(out, "No API key found. Set one with `neutral-reader key set <value>`.")
		return nil
	},
}

func maskKey(k string) string {
	if len(k) <= 4 {
		return strings.Repeat("*", len(k))
	}
	return strings.Repeat("*", len(k)-4) + k[len(k)-4:]
}

func init() {
	keyCmd.AddCommand(keySetCmd, keyShowCmd)
	rootCmd.AddCommand(keyCmd)
}

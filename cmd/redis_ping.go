package cmd

import (
	"context"
	"fmt"
	"time"

	"neutral-reader/internal/kv"
	"neutral-reader/internal/redisclient"

	"github.com/spf13/cobra"
)

// pingCmd pings the configured Redis server.
var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Ping Redis and report the saved-article key",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := GetConfig()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		rdb, err := redisclient.Open(ctx, cfg.Redis, 2*time.Second)
		if err != nil {
			return err
		}
		defer rdb.Close()
		fmt.Fprintln(cmd.OutOrStdout(), "PONG")

		key := cfg.Store.Prefix + kv.KeySavedArticles
		n, err := rdb.StrLen(ctx, key).Result()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d bytes\n", key, n)
		return nil
	},
}

func init() {
	redisCmd.AddCommand(pingCmd)
}

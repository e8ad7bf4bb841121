package cmd

import "github.com/spf13/cobra"

// redisCmd groups commands that talk to the Redis backend directly.
var redisCmd = &cobra.Command{
	Use:   "redis",
	Short: "Inspect the Redis backend",
}

func init() {
	rootCmd.AddCommand(redisCmd)
}

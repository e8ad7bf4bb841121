package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"neutral-reader/internal/config"
	"neutral-reader/internal/logging"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	appCfg  config.Config
)

// rootCmd is the base command called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "neutral-reader",
	Short: "Read articles, neutralize or fact-check them, keep versions",
	Long: "Extracts the readable text of a page, rewrites it with a language model " +
		"and keeps one saved version per processing type.",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

// envKeys are the settings that may be overridden by NEUTRAL_READER_* variables.
var envKeys = []string{
	"app.log_level",
	"redis.addr", "redis.username", "redis.password", "redis.db",
	"store.backend", "store.prefix", "store.sqlite_path",
	"model.base_url", "model.model", "model.timeout", "model.temperature",
	"extract.source", "extract.user_agent", "extract.timeout", "extract.min_text_length",
	"extract.cloudflare.account_id", "extract.cloudflare.token",
	"server.addr",
}

func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "error reading .env: %v\n", err)
	}

	v := viper.GetViper()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/neutral-reader")
		v.AddConfigPath("configs")
	}

	v.SetEnvPrefix("NEUTRAL_READER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	_ = v.BindEnv("model.api_key", "NEUTRAL_READER_MODEL_API_KEY", "GEMINI_API_KEY")

	if err := v.ReadInConfig(); err != nil {
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) {
			fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
			os.Exit(1)
		}
	} else {
		fmt.Fprintf(os.Stderr, "Using config file: %s\n", v.ConfigFileUsed())
	}

	if err := v.Unmarshal(&appCfg); err != nil {
		fmt.Fprintf(os.Stderr, "error parsing config: %v\n", err)
		os.Exit(1)
	}

	appCfg.FillDefaults()
	slog.SetDefault(logging.New(os.Stderr, appCfg.App.LogLevel))
}

// GetConfig exposes the loaded configuration to subcommands.
func GetConfig() config.Config {
	return appCfg
}

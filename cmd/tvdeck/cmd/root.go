// Package cmd implements the CLI commands for tvdeck.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/observability"
	"github.com/tvdeck/tvdeck/internal/version"
)

// cfgFile holds the config file path from the CLI flag.
var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "tvdeck",
	Short:   "Xtream Codes IPTV client",
	Version: version.Short(),
	Long: `tvdeck is a client for Xtream Codes IPTV providers: live TV, movies,
and series, with a tiered local cache, favorites, and an XMLTV programme
guide.

Credentials and cached catalogs live in a local database; logging in with
a different account flushes the provider-bound caches while favorites
survive.`,
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Flags are deliberately not bound to viper: Changed() checks keep the
	// priority CLI flag > env var > config > default.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.tvdeck.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/tvdeck")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".tvdeck")
	}

	viper.SetEnvPrefix("TVDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func initLogging() error {
	cfg := config.LoggingConfig{
		Level:  viper.GetString("logging.level"),
		Format: viper.GetString("logging.format"),
	}

	if rootCmd.PersistentFlags().Changed("log-level") {
		cfg.Level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		cfg.Format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}

	observability.SetDefault(observability.NewLogger(cfg))
	return nil
}

// loadConfig materialises the full configuration from viper.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/pkg/duration"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

var configDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the effective configuration",
	Long: `Dump the effective configuration in YAML format, after defaults, the
config file, and environment variables have been applied.

Redirect the output to create a configuration template:

  tvdeck config dump > .tvdeck.yaml

Environment variables use the TVDECK_ prefix and underscores for nesting.
Example: database.dsn -> TVDECK_DATABASE_DSN`,
	RunE: runConfigDump,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configDumpCmd)
}

func runConfigDump(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out, err := yaml.Marshal(configToMap(cfg))
	if err != nil {
		return fmt.Errorf("marshalling configuration: %w", err)
	}
	fmt.Print(string(out))
	return nil
}

// configToMap renders the config with durations as human-readable strings.
func configToMap(cfg *config.Config) map[string]any {
	return map[string]any{
		"database": map[string]any{
			"dsn":               cfg.Database.DSN,
			"log_level":         cfg.Database.LogLevel,
			"conn_max_lifetime": duration.Format(cfg.Database.ConnMaxLifetime),
		},
		"logging": map[string]any{
			"level":  cfg.Logging.Level,
			"format": cfg.Logging.Format,
		},
		"client": map[string]any{
			"http_timeout":   duration.Format(cfg.Client.HTTPTimeout),
			"retry_attempts": cfg.Client.RetryAttempts,
			"retry_delay":    duration.Format(cfg.Client.RetryDelay),
		},
		"epg": map[string]any{
			"refresh_cron":         cfg.EPG.RefreshCron,
			"xmltv_url":            cfg.EPG.XMLTVURL,
			"timezone":             cfg.EPG.Timezone,
			"programme_batch_size": cfg.EPG.ProgrammeBatchSize,
		},
		"playback": map[string]any{
			"player_binary":        cfg.Playback.PlayerBinary,
			"stream_watchdog":      duration.Format(cfg.Playback.StreamWatchdog),
			"online_poll_interval": duration.Format(cfg.Playback.OnlinePollInterval),
			"manifest_timeout":     duration.Format(cfg.Playback.ManifestTimeout),
			"fragment_timeout":     duration.Format(cfg.Playback.FragmentTimeout),
		},
		"router": map[string]any{
			"debounce": duration.Format(cfg.Router.Debounce),
		},
	}
}

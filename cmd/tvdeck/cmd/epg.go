package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tvdeck/tvdeck/pkg/duration"
)

var epgCmd = &cobra.Command{
	Use:   "epg",
	Short: "Programme guide commands",
}

var epgRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Fetch and ingest the provider's XMLTV guide",
	Long: `Download the provider's XMLTV document, join it to the channel list,
and persist the resulting guide. Channels without a matching live stream
are discarded.`,
	RunE: runEPGRefresh,
}

func init() {
	rootCmd.AddCommand(epgCmd)
	epgCmd.AddCommand(epgRefreshCmd)
}

func runEPGRefresh(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, newConsoleRenderer(os.Stdout))
	if err != nil {
		return err
	}
	defer a.close()

	creds, ok := a.prefs.Credentials()
	if !ok {
		return fmt.Errorf("not signed in; run tvdeck login first")
	}
	if err := a.coord.Login(ctx, creds); err != nil {
		return err
	}

	guide, err := a.coord.RefreshEPG(ctx)
	if err != nil {
		return err
	}

	total := 0
	for _, progs := range guide.Programmes {
		total += len(progs)
	}
	fmt.Printf("Guide updated: %d channels, %d programmes\n", len(guide.Channels), total)
	if guide.LatestProgrammeEndTime > 0 {
		endsAt := time.UnixMilli(guide.LatestProgrammeEndTime)
		fmt.Printf("Coverage ends %s\n", duration.FormatRelative(endsAt))
	}
	return nil
}

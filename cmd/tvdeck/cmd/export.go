package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tvdeck/tvdeck/internal/favorites"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/pkg/m3u"
	"github.com/tvdeck/tvdeck/pkg/xtream"
)

var exportAll bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export channels as an M3U playlist",
	Long: `Write the favorite live channels (or all cached channels with --all)
as an extended M3U playlist on stdout, playable in VLC, mpv, and most
IPTV apps.`,
	RunE: runExport,
}

func init() {
	exportCmd.Flags().BoolVar(&exportAll, "all", false, "export every cached channel, not just favorites")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	a, err := buildApp(ctx, newConsoleRenderer(os.Stderr))
	if err != nil {
		return err
	}
	defer a.close()

	creds, ok := a.prefs.Credentials()
	if !ok {
		return fmt.Errorf("not signed in; run tvdeck login first")
	}
	client := xtream.NewClientFromCredentials(creds)

	var streams []models.LiveStream
	found, err := a.store.GetValue(ctx, models.StoreStreams, models.KeyAllStreams, &streams)
	if err != nil {
		return fmt.Errorf("reading cached channels: %w", err)
	}
	if !found || len(streams) == 0 {
		raw, err := client.GetLiveStreams(ctx, nil)
		if err != nil {
			return fmt.Errorf("fetching channels: %w", err)
		}
		for _, s := range raw {
			streams = append(streams, models.LiveStream{
				ID:           s.StreamID.String(),
				Name:         s.Name,
				IconURL:      s.StreamIcon,
				EPGChannelID: s.EPGChannelID,
				CategoryID:   s.CategoryID.String(),
			})
		}
	}

	groups := categoryNames(ctx, a)

	writer := m3u.NewWriter(cmd.OutOrStdout())
	exported := 0
	for _, s := range streams {
		if s.IsMarker() {
			continue
		}
		if !exportAll && !a.favorites.IsFavorite(favorites.KindStreams, s.ID) {
			continue
		}
		entry := &m3u.Entry{
			Duration:   -1,
			TvgID:      s.EPGChannelID,
			TvgName:    s.Name,
			TvgLogo:    s.IconURL,
			GroupTitle: groups[s.CategoryID],
			Title:      s.Name,
			URL:        client.LiveStreamURL(s.ID, "m3u8"),
		}
		if err := writer.WriteEntry(entry); err != nil {
			return err
		}
		exported++
	}

	fmt.Fprintf(os.Stderr, "Exported %d channels\n", exported)
	return nil
}

// categoryNames maps category ids to display names from the cached live
// category list. Misses just leave group-title empty.
func categoryNames(ctx context.Context, a *app) map[string]string {
	var categories []models.Category
	ok, err := a.store.GetValue(ctx, models.StoreCategories, "live_categories", &categories)
	if err != nil || !ok {
		return nil
	}
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.DisplayName
	}
	return names
}

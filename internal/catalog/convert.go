package catalog

import (
	"sort"
	"strconv"

	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/pkg/xtream"
)

// Conversions from provider response shapes to domain entities. Provider
// ids are numbers-or-strings on the wire; everything is a string from here
// on.

func toCategories(in []xtream.Category, kind models.ContentKind) []models.Category {
	out := make([]models.Category, 0, len(in))
	for _, c := range in {
		out = append(out, models.NewCategory(c.CategoryID.String(), c.CategoryName, kind))
	}
	return out
}

func toLiveStreams(in []xtream.Stream) []models.LiveStream {
	out := make([]models.LiveStream, 0, len(in))
	for _, s := range in {
		out = append(out, models.LiveStream{
			ID:                s.StreamID.String(),
			Name:              s.Name,
			IconURL:           s.StreamIcon,
			EPGChannelID:      s.EPGChannelID,
			CategoryID:        s.CategoryID.String(),
			TVArchive:         s.TVArchive.Int() == 1,
			TVArchiveDuration: int(s.TVArchiveDays.Int()),
		})
	}
	return out
}

func toMovies(in []xtream.VODStream) []models.Movie {
	out := make([]models.Movie, 0, len(in))
	for _, v := range in {
		out = append(out, models.Movie{
			ID:                 v.StreamID.String(),
			Name:               v.Name,
			CoverURL:           v.StreamIcon,
			Rating:             v.Rating.Float(),
			ContainerExtension: v.ContainerExtension,
			CategoryID:         v.CategoryID.String(),
		})
	}
	return out
}

func toSeriesList(in []xtream.Series) []models.Series {
	out := make([]models.Series, 0, len(in))
	for _, s := range in {
		out = append(out, models.Series{
			ID:         s.SeriesID.String(),
			Name:       s.Name,
			CoverURL:   s.Cover,
			Rating:     s.Rating.Float(),
			Year:       s.ReleaseDate,
			Plot:       s.Plot,
			CategoryID: s.CategoryID.String(),
		})
	}
	return out
}

// toSeasons flattens the provider's episodes-by-season map into ordered
// seasons with ordered episodes.
func toSeasons(info *xtream.SeriesInfo) []models.Season {
	if info == nil {
		return nil
	}

	names := make(map[int]string, len(info.Seasons))
	for _, s := range info.Seasons {
		names[s.SeasonNumber] = s.Name
	}

	bySeason := make(map[int][]models.Episode)
	for seasonKey, episodes := range info.Episodes {
		num, err := strconv.Atoi(seasonKey)
		if err != nil {
			continue
		}
		for _, ep := range episodes {
			bySeason[num] = append(bySeason[num], models.Episode{
				ID:                 ep.ID.String(),
				Title:              ep.Title,
				Season:             num,
				EpisodeNum:         int(ep.EpisodeNum.Int()),
				ContainerExtension: ep.ContainerExtension,
				Plot:               ep.Info.Plot,
				DurationSecs:       int(ep.Info.DurationSecs.Int()),
				Audio: models.AudioTrack{
					Codec:      ep.Info.Audio.CodecName,
					Channels:   ep.Info.Audio.Channels,
					SampleRate: ep.Info.Audio.SampleRate,
				},
			})
		}
	}

	numbers := make([]int, 0, len(bySeason))
	for num := range bySeason {
		numbers = append(numbers, num)
	}
	sort.Ints(numbers)

	seasons := make([]models.Season, 0, len(numbers))
	for _, num := range numbers {
		episodes := bySeason[num]
		sort.Slice(episodes, func(i, j int) bool {
			return episodes[i].EpisodeNum < episodes[j].EpisodeNum
		})
		seasons = append(seasons, models.Season{
			Number:   num,
			Name:     names[num],
			Episodes: episodes,
		})
	}
	return seasons
}

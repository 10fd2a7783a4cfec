// Package epg ingests XMLTV guide data: fetch, stream-parse, project onto
// the live-stream catalog, sort, and persist.
package epg

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sort"
	"time"

	"github.com/tvdeck/tvdeck/internal/epgtime"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/progress"
	"github.com/tvdeck/tvdeck/internal/store"
	"github.com/tvdeck/tvdeck/pkg/bytesize"
	"github.com/tvdeck/tvdeck/pkg/diskslice"
	"github.com/tvdeck/tvdeck/pkg/xmltv"
)

// defaultYieldBatch is how many programmes are processed between
// cooperative yield points. Guides run to 10^5-10^6 programmes.
const defaultYieldBatch = 1000

// GuideSource supplies the raw XMLTV document.
type GuideSource interface {
	GetXMLTVReader(ctx context.Context) (io.ReadCloser, error)
}

// Service runs guide ingestion and serves the cached guide.
type Service struct {
	source     GuideSource
	store      *store.Store
	progress   *progress.Service
	logger     *slog.Logger
	yieldBatch int
}

// Option configures the Service.
type Option func(*Service)

// WithYieldBatch overrides the cooperative yield interval.
func WithYieldBatch(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.yieldBatch = n
		}
	}
}

// NewService creates an ingestion Service.
func NewService(source GuideSource, st *store.Store, prog *progress.Service, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		source:     source,
		store:      st,
		progress:   prog,
		logger:     logger.With("component", "epg"),
		yieldBatch: defaultYieldBatch,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Refresh runs the full pipeline against the given live-stream catalog and
// persists the resulting guide. On any failure the previously cached guide
// is left intact; persistence only happens at the very end.
func (s *Service) Refresh(ctx context.Context, streams []models.LiveStream) (*models.Guide, error) {
	var tracker *progress.Tracker
	if s.progress != nil {
		tracker = s.progress.StartOperation(progress.OpEPGIngestion)
	}

	guide, err := s.ingest(ctx, streams, tracker)
	if err != nil {
		if tracker != nil {
			if models.IsCancelled(err) {
				tracker.Cancel()
			} else {
				tracker.Fail(err)
			}
		}
		return nil, err
	}

	if tracker != nil {
		tracker.Complete(fmt.Sprintf("guide refreshed: %d channels", len(guide.Channels)))
	}
	return guide, nil
}

func (s *Service) ingest(ctx context.Context, streams []models.LiveStream, tracker *progress.Tracker) (*models.Guide, error) {
	stage := func(state progress.State, name, message string) {
		if tracker != nil {
			tracker.SetStage(state, name, message)
		}
	}

	// Channels join to streams by the external guide id. Streams without
	// one can never match and are skipped up front.
	streamsByEPGID := make(map[string]models.LiveStream)
	for _, stream := range streams {
		if stream.EPGChannelID != "" {
			streamsByEPGID[stream.EPGChannelID] = stream
		}
	}

	stage(progress.StateFetching, "fetch", "downloading guide")
	reader, err := s.source.GetXMLTVReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching guide: %w", err)
	}
	defer reader.Close()

	stage(progress.StateProcessing, "parse", "parsing guide")

	// Programmes are buffered flat during the parse and grouped afterwards;
	// the buffer spills to disk when a large guide outgrows memory.
	buffer, err := diskslice.New[models.Programme](diskslice.Options{
		Name:            "epg-programmes",
		MemoryThreshold: int64(64 * bytesize.MB),
	})
	if err != nil {
		return nil, fmt.Errorf("creating programme buffer: %w", err)
	}
	defer buffer.Close()

	var (
		channels    []models.EPGChannel
		retained    = make(map[string]bool)
		seen        int
		kept        int
		droppedTime int
	)

	counted := &countingReader{r: reader}

	parser := &xmltv.Parser{
		OnChannel: func(ch *xmltv.Channel) error {
			stream, ok := streamsByEPGID[ch.ID]
			if !ok {
				return nil // orphan: no live stream carries this guide id
			}
			retained[ch.ID] = true
			channels = append(channels, models.EPGChannel{
				ID:          ch.ID,
				DisplayName: ch.DisplayName,
				IconURL:     ch.Icon,
				StreamID:    stream.ID,
				StreamName:  stream.Name,
				CategoryID:  stream.CategoryID,
			})
			return nil
		},
		OnProgramme: func(prog *xmltv.Programme) error {
			seen++
			if seen%s.yieldBatch == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
				runtime.Gosched()
				if tracker != nil {
					// The guide size is unknown up front, so the percent
					// is a monotone per-batch estimate held short of done.
					pct := float64(seen / s.yieldBatch)
					if pct > 95 {
						pct = 95
					}
					tracker.SetPercent(pct, fmt.Sprintf("processed %d programmes (%s read)",
						seen, bytesize.Format(bytesize.Size(counted.n))))
				}
			}

			if !retained[prog.Channel] {
				return nil
			}
			startMs, err := epgtime.ParseMs(prog.Start)
			if err != nil {
				droppedTime++
				return nil
			}
			stopMs, err := epgtime.ParseMs(prog.Stop)
			if err != nil {
				droppedTime++
				return nil
			}

			kept++
			return buffer.Append(models.Programme{
				ChannelID:   prog.Channel,
				Title:       prog.Title,
				Description: prog.Description,
				StartMs:     startMs,
				StopMs:      stopMs,
				RawStart:    prog.Start,
				RawStop:     prog.Stop,
			})
		},
		OnError: func(err error) {
			s.logger.Debug("recoverable guide parse error", "error", err)
		},
	}

	if err := parser.ParseCompressed(counted); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", models.ErrEPGParse, err)
	}

	stage(progress.StateProcessing, "sort", "ordering programmes")
	programmes := make(map[string][]models.Programme)
	if err := buffer.For(func(_ int, p *models.Programme) bool {
		programmes[p.ChannelID] = append(programmes[p.ChannelID], *p)
		return true
	}); err != nil {
		return nil, fmt.Errorf("reading programme buffer: %w", err)
	}

	var latestEnd int64
	for channelID := range programmes {
		progs := programmes[channelID]
		sort.SliceStable(progs, func(i, j int) bool {
			return progs[i].StartMs < progs[j].StartMs
		})
		for _, p := range progs {
			if p.StopMs > latestEnd {
				latestEnd = p.StopMs
			}
		}
	}

	guide := &models.Guide{
		Channels:               channels,
		Programmes:             programmes,
		LastUpdated:            time.Now().UTC(),
		LatestProgrammeEndTime: latestEnd,
	}

	stage(progress.StateSaving, "persist", "saving guide")
	if s.store != nil {
		if err := s.store.Put(ctx, models.StoreEPG, models.KeyEPGData, guide); err != nil {
			return nil, fmt.Errorf("persisting guide: %w", err)
		}
	}

	s.logger.Info("guide ingested",
		"channels", len(channels),
		"programmes", kept,
		"seen", seen,
		"dropped_bad_timestamps", droppedTime,
		"guide_size", bytesize.Format(bytesize.Size(counted.n)),
		"spilled", buffer.IsSpilled(),
	)
	return guide, nil
}

// countingReader tracks how many compressed bytes the parser consumed.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// LoadCached returns the persisted guide, if any.
func (s *Service) LoadCached(ctx context.Context) (*models.Guide, bool, error) {
	if s.store == nil {
		return nil, false, models.ErrStorageUnavailable
	}
	var guide models.Guide
	ok, err := s.store.GetValue(ctx, models.StoreEPG, models.KeyEPGData, &guide)
	if err != nil || !ok {
		return nil, false, err
	}
	return &guide, true, nil
}

// Stale reports whether the cached guide has run past its coverage: the
// latest programme end is behind now.
func Stale(guide *models.Guide, now time.Time) bool {
	if guide == nil {
		return true
	}
	return guide.LatestProgrammeEndTime <= now.UnixMilli()
}

package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tvdeck/tvdeck/internal/config"
	"github.com/tvdeck/tvdeck/internal/coordinator"
	"github.com/tvdeck/tvdeck/internal/database"
	"github.com/tvdeck/tvdeck/internal/epg"
	"github.com/tvdeck/tvdeck/internal/favorites"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/playback"
	"github.com/tvdeck/tvdeck/internal/progress"
	"github.com/tvdeck/tvdeck/internal/router"
	"github.com/tvdeck/tvdeck/internal/store"
	"github.com/tvdeck/tvdeck/internal/version"
	"github.com/tvdeck/tvdeck/pkg/httpclient"
	"github.com/tvdeck/tvdeck/pkg/xtream"
)

// app is the assembled application graph shared by the CLI commands.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	db        *database.DB
	store     *store.Store
	prefs     *store.Preferences
	favorites *favorites.Favorites
	progress  *progress.Service
	playback  *playback.Controller
	router    *router.Router
	coord     *coordinator.Coordinator
}

// buildApp wires the full dependency graph from configuration.
func buildApp(ctx context.Context, renderer coordinator.Renderer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("loading configuration: %w", err)
	}
	logger := slog.Default()

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	st := store.New(db, logger)
	if err := st.Open(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	prefs := store.NewPreferences(db, logger)
	if err := prefs.Load(ctx); err != nil {
		logger.Warn("loading preferences failed", "error", err)
	}

	favs := favorites.New(st, prefs, logger)
	favs.Load(ctx)

	httpClient := httpclient.New(providerClientConfig(cfg, logger))

	a := &app{
		cfg:       cfg,
		logger:    logger,
		db:        db,
		store:     st,
		prefs:     prefs,
		favorites: favs,
		progress:  progress.NewService(),
		playback: playback.NewController(cfg.Playback, logger,
			playback.WithPlayer(playback.NewExecPlayer(cfg.Playback.PlayerBinary))),
		router: router.New(router.NewMemoryHistory(), cfg.Router, logger),
	}

	var guideSource epg.GuideSource
	if cfg.EPG.XMLTVURL != "" {
		guideSource, err = epg.NewURLSource(cfg.EPG.XMLTVURL)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	a.coord = coordinator.New(coordinator.Deps{
		Store:       st,
		Prefs:       prefs,
		Favorites:   favs,
		Progress:    a.progress,
		Playback:    a.playback,
		Router:      a.router,
		Renderer:    renderer,
		GuideSource: guideSource,
		Logger:      logger,
		NewSession: func(creds models.Credentials) coordinator.Session {
			// providerClientConfig already carries the timeout; the
			// resilient client must not be replaced by later options.
			return xtream.NewClientFromCredentials(creds,
				xtream.WithHTTPClient(httpClient.StandardClient()),
				xtream.WithUserAgent(version.UserAgent()))
		},
	})
	return a, nil
}

func providerClientConfig(cfg *config.Config, logger *slog.Logger) httpclient.Config {
	hc := httpclient.DefaultConfig()
	hc.Logger = logger
	hc.UserAgent = version.UserAgent()
	if cfg.Client.HTTPTimeout > 0 {
		hc.Timeout = cfg.Client.HTTPTimeout
	}
	if cfg.Client.RetryAttempts > 0 {
		hc.RetryAttempts = cfg.Client.RetryAttempts
	}
	if cfg.Client.RetryDelay > 0 {
		hc.RetryDelay = cfg.Client.RetryDelay
	}
	return hc
}

func (a *app) close() {
	a.router.Close()
	a.playback.Stop()
	if err := a.db.Close(); err != nil {
		a.logger.Warn("closing database failed", "error", err)
	}
}

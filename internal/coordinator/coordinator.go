// Package coordinator binds user actions and router events to the catalog
// loader, the playback controller, and the session, and owns the three
// top-level views.
package coordinator

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/tvdeck/tvdeck/internal/catalog"
	"github.com/tvdeck/tvdeck/internal/epg"
	"github.com/tvdeck/tvdeck/internal/favorites"
	"github.com/tvdeck/tvdeck/internal/models"
	"github.com/tvdeck/tvdeck/internal/playback"
	"github.com/tvdeck/tvdeck/internal/progress"
	"github.com/tvdeck/tvdeck/internal/router"
	"github.com/tvdeck/tvdeck/internal/store"
	"github.com/tvdeck/tvdeck/pkg/xtream"
)

// Session is the provider-facing surface a logged-in coordinator holds.
// xtream.Client satisfies it.
type Session interface {
	catalog.Provider
	GetAuthInfo(ctx context.Context) (*xtream.AuthInfo, error)
	ResolveLiveStreamURL(ctx context.Context, streamID string) (string, error)
	VODStreamURL(vodID, extension string) string
	SeriesStreamURL(episodeID, extension string) string
	GetXMLTVReader(ctx context.Context) (io.ReadCloser, error)
}

// SessionFactory builds a session from a credential triple.
type SessionFactory func(creds models.Credentials) Session

// Renderer is the UI surface the coordinator draws on.
type Renderer interface {
	ShowView(view models.ContentKind)
	ShowLogin(message string)
	ShowLoading(kind models.ContentKind)
	ShowCategories(kind models.ContentKind, categories []models.Category)
	ShowLiveStreams(categoryID string, streams []models.LiveStream)
	ShowMovies(categoryID string, movies []models.Movie)
	ShowSeries(categoryID string, series []models.Series)
	ShowEpisodes(seriesID string, seasons []models.Season)
	ShowPlayback(state playback.State, err *models.PlaybackError)
}

// Deps are the collaborators a Coordinator is wired with.
type Deps struct {
	Store      *store.Store
	Prefs      *store.Preferences
	Favorites  *favorites.Favorites
	Progress   *progress.Service
	Playback   *playback.Controller
	Router     *router.Router
	Renderer   Renderer
	Bus        *Bus
	NewSession SessionFactory
	// GuideSource overrides the provider's XMLTV endpoint when set.
	GuideSource epg.GuideSource
	Logger      *slog.Logger
}

// Coordinator owns per-view state and the session lifecycle.
type Coordinator struct {
	logger      *slog.Logger
	bus         *Bus
	store       *store.Store
	prefs       *store.Preferences
	favorites   *favorites.Favorites
	progress    *progress.Service
	playback    *playback.Controller
	router      *router.Router
	renderer    Renderer
	newSession  SessionFactory
	guideSource epg.GuideSource

	mu      sync.Mutex
	session Session
	loader  *catalog.Loader
	guide   *epg.Service
	active  models.ContentKind
	views   map[models.ContentKind]*viewState
}

// New creates a logged-out coordinator.
func New(deps Deps) *Coordinator {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newSession := deps.NewSession
	if newSession == nil {
		newSession = func(creds models.Credentials) Session {
			return xtream.NewClientFromCredentials(creds)
		}
	}
	bus := deps.Bus
	if bus == nil {
		bus = NewBus()
	}

	c := &Coordinator{
		logger:      logger.With("component", "coordinator"),
		bus:         bus,
		store:       deps.Store,
		prefs:       deps.Prefs,
		favorites:   deps.Favorites,
		progress:    deps.Progress,
		playback:    deps.Playback,
		router:      deps.Router,
		renderer:    deps.Renderer,
		newSession:  newSession,
		guideSource: deps.GuideSource,
		active:      models.KindLive,
		views:       map[models.ContentKind]*viewState{
			models.KindLive:   {},
			models.KindVOD:    {},
			models.KindSeries: {},
		},
	}

	if c.playback != nil {
		c.playback.SetListener(func(state playback.State, err *models.PlaybackError) {
			c.bus.Publish(PlaybackStateChanged{State: state, Err: err})
			c.renderer.ShowPlayback(state, err)
		})
	}
	if c.favorites != nil {
		for _, kind := range favorites.Kinds {
			kind := kind
			c.favorites.SetListener(kind, func(id string, nowMember bool) {
				c.bus.Publish(FavoriteToggled{Kind: kind, ID: id, Member: nowMember})
				c.rerenderActive()
			})
		}
	}
	return c
}

// Bus returns the event bus.
func (c *Coordinator) Bus() *Bus { return c.bus }

// Start subscribes to router changes and restores the previous session if
// credentials are on disk.
func (c *Coordinator) Start(ctx context.Context) error {
	c.router.Subscribe(func(route router.Route) {
		c.handleRoute(ctx, route)
	})

	creds, ok := c.prefs.Credentials()
	if !ok {
		c.renderer.ShowLogin("")
		return nil
	}
	if err := c.Login(ctx, creds); err != nil {
		if models.IsCancelled(err) {
			return err
		}
		c.logger.Warn("session restore failed", "error", err)
		c.renderer.ShowLogin("Your session has expired. Please sign in again.")
		return nil
	}
	return nil
}

// Login authenticates against the provider. On a credential change every
// credential-bound store is cleared; favorites survive. A failed login
// wipes the stored credentials.
func (c *Coordinator) Login(ctx context.Context, creds models.Credentials) error {
	session := c.newSession(creds)

	info, err := session.GetAuthInfo(ctx)
	if err != nil {
		c.prefs.ClearCredentials()
		return fmt.Errorf("authenticating: %w", err)
	}
	if !info.UserInfo.IsAuthenticated() {
		c.prefs.ClearCredentials()
		return fmt.Errorf("authenticating: account %q is not active", creds.Username)
	}

	if previous, had := c.prefs.Credentials(); had && !previous.Equal(creds) {
		if err := c.store.ClearCredentialBound(ctx); err != nil {
			c.logger.Warn("clearing cached provider data failed", "error", err)
		}
	}
	if err := c.prefs.SetCredentials(creds); err != nil {
		c.logger.Warn("persisting credentials failed", "error", err)
	}
	if err := c.store.Put(ctx, models.StoreUserInfo, "user_info", info); err != nil {
		c.logger.Warn("caching user info failed", "error", err)
	}

	source := c.guideSource
	if source == nil {
		source = session
	}

	c.mu.Lock()
	c.session = session
	c.loader = catalog.New(session, c.store, c, c.logger)
	c.guide = epg.NewService(source, c.store, c.progress, c.logger)
	c.mu.Unlock()

	c.logger.Info("logged in", "server", creds.ServerBaseURL, "user", creds.Username)
	return c.SwitchView(ctx, models.KindLive)
}

// Logout drops the whole cache, the credentials, and the session.
func (c *Coordinator) Logout(ctx context.Context) {
	if c.playback != nil {
		c.playback.Stop()
	}
	if err := c.store.ClearAll(ctx); err != nil {
		c.logger.Warn("clearing store failed", "error", err)
	}
	c.prefs.ClearCredentials()

	c.mu.Lock()
	c.session = nil
	c.loader = nil
	c.guide = nil
	c.mu.Unlock()

	c.logger.Info("logged out")
	c.renderer.ShowLogin("")
}

// LoggedIn reports whether a session is active.
func (c *Coordinator) LoggedIn() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session != nil
}

func (c *Coordinator) currentLoader() (*catalog.Loader, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loader == nil {
		return nil, fmt.Errorf("not logged in")
	}
	return c.loader, nil
}

func (c *Coordinator) currentSession() (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil, fmt.Errorf("not logged in")
	}
	return c.session, nil
}

// SwitchView activates a top-level view and loads its categories.
func (c *Coordinator) SwitchView(ctx context.Context, view models.ContentKind) error {
	loader, err := c.currentLoader()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.active = view
	c.mu.Unlock()

	c.renderer.ShowView(view)
	c.router.Navigate(router.Route{View: view}, false)
	return loader.LoadCategories(ctx, view, false)
}

// ActiveView returns the current top-level view.
func (c *Coordinator) ActiveView() models.ContentKind {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// SelectCategory changes the selection of a view and loads its list.
func (c *Coordinator) SelectCategory(ctx context.Context, kind models.ContentKind, categoryID string) error {
	loader, err := c.currentLoader()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.views[kind].categoryID = categoryID
	c.mu.Unlock()

	loader.SelectCategory(kind, categoryID)
	c.bus.Publish(CategoryChanged{Kind: kind, CategoryID: categoryID})
	c.router.Navigate(router.Route{View: kind, CategoryID: categoryID}, false)

	switch kind {
	case models.KindLive:
		return loader.LoadLiveStreams(ctx, categoryID, false)
	case models.KindVOD:
		return loader.LoadMovies(ctx, categoryID, false)
	case models.KindSeries:
		return loader.LoadSeries(ctx, categoryID, false)
	}
	return fmt.Errorf("unknown view: %s", kind)
}

// OpenSeries loads the season/episode tree of a series.
func (c *Coordinator) OpenSeries(ctx context.Context, seriesID string) error {
	loader, err := c.currentLoader()
	if err != nil {
		return err
	}
	c.router.Navigate(router.Route{
		View:       models.KindSeries,
		CategoryID: c.viewCategory(models.KindSeries),
		ContentID:  seriesID,
	}, false)
	return loader.LoadEpisodes(ctx, seriesID, false)
}

// PlayLive resolves the channel URL and hands it to the controller.
func (c *Coordinator) PlayLive(ctx context.Context, stream models.LiveStream) error {
	session, err := c.currentSession()
	if err != nil {
		return err
	}

	url, err := session.ResolveLiveStreamURL(ctx, stream.ID)
	if err != nil {
		if models.IsCancelled(err) {
			return err
		}
		return fmt.Errorf("playing %s: %w", stream.Name, err)
	}

	c.setPlaying(models.KindLive, stream.ID)
	c.router.Navigate(router.Route{
		View:       models.KindLive,
		CategoryID: c.viewCategory(models.KindLive),
		StreamID:   stream.ID,
	}, false)
	return c.playback.Play(ctx, playback.LiveSource(url, stream.Name))
}

// PlayMovie starts progressive playback of a movie.
func (c *Coordinator) PlayMovie(ctx context.Context, movie models.Movie) error {
	session, err := c.currentSession()
	if err != nil {
		return err
	}

	url := session.VODStreamURL(movie.ID, movie.ContainerExtension)
	c.setPlaying(models.KindVOD, movie.ID)
	c.router.Navigate(router.Route{
		View:       models.KindVOD,
		CategoryID: c.viewCategory(models.KindVOD),
		ContentID:  movie.ID,
		Playing:    true,
	}, false)
	return c.playback.Play(ctx, playback.MovieSource(url, movie))
}

// PlayEpisode starts progressive playback of an episode.
func (c *Coordinator) PlayEpisode(ctx context.Context, seriesID string, episode models.Episode) error {
	session, err := c.currentSession()
	if err != nil {
		return err
	}

	url := session.SeriesStreamURL(episode.ID, episode.ContainerExtension)
	c.setPlaying(models.KindSeries, episode.ID)
	c.router.Navigate(router.Route{
		View:       models.KindSeries,
		CategoryID: c.viewCategory(models.KindSeries),
		ContentID:  seriesID,
		EpisodeID:  episode.ID,
	}, false)
	return c.playback.Play(ctx, playback.EpisodeSource(url, episode.Title))
}

// RefreshEPG runs a guide ingestion over the full channel list.
func (c *Coordinator) RefreshEPG(ctx context.Context) (*models.Guide, error) {
	session, err := c.currentSession()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	guide := c.guide
	c.mu.Unlock()

	var streams []models.LiveStream
	if ok := c.readCachedStreams(ctx, &streams); !ok {
		raw, err := session.GetLiveStreams(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("refreshing epg: %w", err)
		}
		for _, s := range raw {
			streams = append(streams, models.LiveStream{
				ID:           s.StreamID.String(),
				Name:         s.Name,
				EPGChannelID: s.EPGChannelID,
				CategoryID:   s.CategoryID.String(),
			})
		}
	}
	return guide.Refresh(ctx, streams)
}

func (c *Coordinator) readCachedStreams(ctx context.Context, target *[]models.LiveStream) bool {
	ok, err := c.store.GetValue(ctx, models.StoreStreams, models.KeyAllStreams, target)
	if err != nil || !ok {
		return false
	}
	return len(*target) > 0
}

// SetSearch applies a search query to the view's list.
func (c *Coordinator) SetSearch(kind models.ContentKind, query string) {
	c.mu.Lock()
	c.views[kind].search = query
	c.mu.Unlock()
	c.applyFilters(kind)
}

// SetFavoritesOnly toggles the favorites-only filter on a view.
func (c *Coordinator) SetFavoritesOnly(kind models.ContentKind, on bool) {
	c.mu.Lock()
	c.views[kind].favoritesOnly = on
	c.mu.Unlock()
	c.applyFilters(kind)
}

// ToggleFavorite flips favorites membership and returns the new state.
func (c *Coordinator) ToggleFavorite(ctx context.Context, kind favorites.Kind, id string) bool {
	return c.favorites.Toggle(ctx, kind, id)
}

// applyFilters re-renders a view's list under the newest filter epoch.
// A burst of filter changes leaves only the last render standing.
func (c *Coordinator) applyFilters(kind models.ContentKind) {
	loader, err := c.currentLoader()
	if err != nil {
		return
	}
	epoch := loader.BumpFilterEpoch()
	c.renderList(kind, func() bool { return loader.FilterEpochCurrent(epoch) })
}

func (c *Coordinator) rerenderActive() {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	c.renderList(active, func() bool { return true })
}

func (c *Coordinator) renderList(kind models.ContentKind, current func() bool) {
	c.mu.Lock()
	state := c.views[kind]
	categoryID := state.categoryID
	live := state.live
	movies := state.movies
	series := state.series
	c.mu.Unlock()

	if !current() {
		return
	}
	switch kind {
	case models.KindLive:
		c.renderer.ShowLiveStreams(categoryID, c.filterLive(state, live))
	case models.KindVOD:
		c.renderer.ShowMovies(categoryID, c.filterMovies(state, movies))
	case models.KindSeries:
		c.renderer.ShowSeries(categoryID, c.filterSeries(state, series))
	}
}

func (c *Coordinator) setPlaying(kind models.ContentKind, id string) {
	c.mu.Lock()
	c.views[kind].playingID = id
	c.mu.Unlock()
}

// PlayingID returns the playing content id of a view.
func (c *Coordinator) PlayingID(kind models.ContentKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.views[kind].playingID
}

func (c *Coordinator) viewCategory(kind models.ContentKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.views[kind].categoryID
}

// handleRoute applies an inbound (debounced) navigation. The router is in
// restoration mode while this runs, so Navigate calls made along the way
// never write back to the URL.
func (c *Coordinator) handleRoute(ctx context.Context, route router.Route) {
	c.bus.Publish(RouteChanged{Route: route})

	loader, err := c.currentLoader()
	if err != nil {
		return
	}

	c.mu.Lock()
	c.active = route.View
	c.views[route.View].categoryID = route.CategoryID
	c.mu.Unlock()

	c.renderer.ShowView(route.View)
	loader.SelectCategory(route.View, route.CategoryID)

	if err := c.loadRouteContent(ctx, loader, route); err != nil && !models.IsCancelled(err) {
		c.logger.Warn("route restore failed", "route", router.Build(route), "error", err)
	}
}

func (c *Coordinator) loadRouteContent(ctx context.Context, loader *catalog.Loader, route router.Route) error {
	if err := loader.LoadCategories(ctx, route.View, false); err != nil {
		return err
	}

	switch route.View {
	case models.KindLive:
		if err := loader.LoadLiveStreams(ctx, route.CategoryID, false); err != nil {
			return err
		}
		c.setPlaying(models.KindLive, route.StreamID)
	case models.KindVOD:
		if err := loader.LoadMovies(ctx, route.CategoryID, false); err != nil {
			return err
		}
		if route.Playing {
			c.setPlaying(models.KindVOD, route.ContentID)
		}
	case models.KindSeries:
		if err := loader.LoadSeries(ctx, route.CategoryID, false); err != nil {
			return err
		}
		if route.ContentID != "" {
			if err := loader.LoadEpisodes(ctx, route.ContentID, false); err != nil {
				return err
			}
			c.setPlaying(models.KindSeries, route.EpisodeID)
		}
	}
	return nil
}

// Sink implementation: the loader renders through the coordinator so every
// list passes the view's filters on the way to the renderer.

func (c *Coordinator) ShowLoading(kind models.ContentKind) {
	c.renderer.ShowLoading(kind)
}

func (c *Coordinator) ShowCategories(kind models.ContentKind, categories []models.Category) {
	c.renderer.ShowCategories(kind, categories)
}

func (c *Coordinator) ShowLiveStreams(categoryID string, streams []models.LiveStream) {
	c.mu.Lock()
	state := c.views[models.KindLive]
	state.live = streams
	c.mu.Unlock()
	c.renderer.ShowLiveStreams(categoryID, c.filterLive(state, streams))
}

func (c *Coordinator) ShowMovies(categoryID string, movies []models.Movie) {
	c.mu.Lock()
	state := c.views[models.KindVOD]
	state.movies = movies
	c.mu.Unlock()
	c.renderer.ShowMovies(categoryID, c.filterMovies(state, movies))
}

func (c *Coordinator) ShowSeries(categoryID string, series []models.Series) {
	c.mu.Lock()
	state := c.views[models.KindSeries]
	state.series = series
	c.mu.Unlock()
	c.renderer.ShowSeries(categoryID, c.filterSeries(state, series))
}

func (c *Coordinator) ShowEpisodes(seriesID string, seasons []models.Season) {
	c.mu.Lock()
	c.views[models.KindSeries].seasons = seasons
	c.mu.Unlock()
	c.renderer.ShowEpisodes(seriesID, seasons)
}

package services

import (
	"context"
	"fmt"
	"image"
	"io"
	"iter"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/mangetsu/pkg/bridge"
	"github.com/kerbaras/mangetsu/pkg/cache"
	"github.com/kerbaras/mangetsu/pkg/config"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/integrations"
	"github.com/kerbaras/mangetsu/pkg/sources"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

// Controller bundles the process-wide resources. It is built once at startup
// and handed to every component that needs it; nothing in it is swapped at
// runtime.
type Controller struct {
	Config     *config.Config
	Log        *log.Logger
	API        *utils.API
	Registry   *sources.Registry
	Cache      *cache.Store
	Mangas     *cache.Memory[string, data.Manga]
	Chapters   *cache.Memory[string, []data.Chapter]
	Images     *ImageLoader
	Library    *data.Repository
	Downloader *Downloader
	Exporter   integrations.Exporter
	Runtime    *bridge.Runtime

	closers []io.Closer
}

func NewController(cfg *config.Config, logger *log.Logger) (*Controller, error) {
	if logger == nil {
		logger = utils.DiscardLogger()
	}

	api := utils.NewAPI(cfg.HTTP.Timeout, cfg.HTTP.UserAgent)

	manganato, err := sources.NewManganato(api, cfg.Connectors.Manganato.BaseURL)
	if err != nil {
		return nil, err
	}
	registry := sources.NewRegistry(manganato)

	mangas, err := cache.NewMemory[string, data.Manga](cfg.Cache.MangaEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create manga cache: %w", err)
	}
	chapters, err := cache.NewMemory[string, []data.Chapter](cfg.Cache.MangaEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create chapter cache: %w", err)
	}
	icons, err := cache.NewMemory[string, image.Image](cfg.Cache.ImageEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create image cache: %w", err)
	}
	store := cache.NewStore(cfg.CacheDir)

	c := &Controller{
		Config:   cfg,
		Log:      logger,
		API:      api,
		Registry: registry,
		Cache:    store,
		Mangas:   mangas,
		Chapters: chapters,
		Images:   NewImageLoader(api, store, icons, logger),
		Runtime:  bridge.NewRuntime(logger),
	}

	var library Library
	if cfg.Library.Path != "" {
		repo, err := data.OpenRepository(cfg.Library.Path)
		if err != nil {
			logger.Warn("library unavailable, downloads will not be recorded", "path", cfg.Library.Path, "err", err)
		} else {
			c.Library = repo
			c.closers = append(c.closers, repo)
			library = repo
		}
	}
	c.Downloader = NewDownloader(registry, api, library, cfg.DownloadDir, logger)

	epubDir := cfg.EPubDir
	if epubDir == "" {
		epubDir = filepath.Join(cfg.DownloadDir, "epub")
	}
	c.Exporter = integrations.NewEPubBuilder(epubDir)

	return c, nil
}

// Close stops the runtime and releases the library.
func (c *Controller) Close() error {
	c.Runtime.Shutdown()
	var firstErr error
	for _, closer := range c.closers {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// FetchMangaDetail resolves url to a manga, consulting the manga cache first.
func (c *Controller) FetchMangaDetail(ctx context.Context, url string) (data.Manga, error) {
	if manga, ok := c.Mangas.Get(url); ok {
		return manga, nil
	}
	connector, ok := c.Registry.Resolve(url)
	if !ok {
		return data.Manga{}, fmt.Errorf("no connector can handle %s", url)
	}
	manga, err := connector.GetMangaFromURL(ctx, url)
	if err != nil {
		return data.Manga{}, err
	}
	c.Mangas.Add(manga.Key(), manga)
	return manga, nil
}

// Remember stores manga in the manga cache.
func (c *Controller) Remember(manga data.Manga) {
	c.Mangas.Add(manga.Key(), manga)
}

func (c *Controller) Connector(id data.ConnectorID) (sources.Connector, error) {
	connector, ok := c.Registry.Get(id)
	if !ok {
		return nil, fmt.Errorf("unknown connector %q", id)
	}
	return connector, nil
}

// ListChapters returns the chapters of manga, from the chapter cache when
// they were listed before.
func (c *Controller) ListChapters(ctx context.Context, manga data.Manga) ([]data.Chapter, error) {
	if chapters, ok := c.Chapters.Get(manga.Key()); ok {
		return chapters, nil
	}
	connector, err := c.Connector(manga.Connector)
	if err != nil {
		return nil, err
	}
	chapters, err := sources.Collect(connector.GetChapters(ctx, manga))
	if err != nil {
		return nil, err
	}
	c.Chapters.Add(manga.Key(), chapters)
	return chapters, nil
}

// Catalog streams listing page n of every registered connector, in registry
// order. It stops at the first error.
func (c *Controller) Catalog(ctx context.Context, page int) iter.Seq2[data.Manga, error] {
	return func(yield func(data.Manga, error) bool) {
		for _, connector := range c.Registry.All() {
			for manga, err := range connector.GetMangasFromPage(ctx, page) {
				if !yield(manga, err) || err != nil {
					return
				}
			}
		}
	}
}

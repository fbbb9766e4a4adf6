package services

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kerbaras/mangetsu/pkg/config"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		CacheDir:    filepath.Join(dir, "cache"),
		DownloadDir: filepath.Join(dir, "downloads"),
	}
	cfg.Library.Path = filepath.Join(dir, "library.db")
	cfg.HTTP.Timeout = 5 * time.Second
	cfg.Cache.MangaEntries = 16
	cfg.Cache.ImageEntries = 16
	cfg.Connectors.Manganato.BaseURL = baseURL
	return cfg
}

func TestNewControllerWiresResources(t *testing.T) {
	c, err := NewController(testConfig(t, ""), nil)
	require.NoError(t, err)
	defer c.Close()

	connector, err := c.Connector(data.Manganato)
	require.NoError(t, err)
	assert.Equal(t, "Manganato", connector.Info().Label)
	assert.NotNil(t, c.Library)
	assert.NotNil(t, c.Downloader)
	assert.NotNil(t, c.Exporter)
	assert.NotNil(t, c.Runtime)

	_, err = c.Connector("unknown")
	assert.Error(t, err)
}

func TestControllerFetchMangaDetailUsesCache(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<div class="container-main"><div class="panel-story-info">
			<span class="info-image"><img src="/icons/m.jpg"></span>
			<div class="story-info-right"><h1>Moon</h1></div></div></div>`)
	}))
	defer server.Close()

	c, err := NewController(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	url := server.URL + "/manga-m"
	manga, err := c.FetchMangaDetail(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, "Moon", manga.Title)
	assert.Equal(t, server.URL+"/icons/m.jpg", manga.IconURL)
	first := hits.Load()

	again, err := c.FetchMangaDetail(context.Background(), url)
	require.NoError(t, err)
	assert.True(t, again.Equal(manga))
	assert.Equal(t, first, hits.Load())
}

func TestControllerFetchMangaDetailUnknownSite(t *testing.T) {
	c, err := NewController(testConfig(t, ""), nil)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.FetchMangaDetail(context.Background(), "https://example.com/manga")
	assert.Error(t, err)
}

func TestControllerListChaptersCaches(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		fmt.Fprint(w, `<ul class="row-content-chapter">
			<li><a class="chapter-name" href="/manga-m/chapter-2" title="Moon Chapter 2">Chapter 2</a></li>
			<li><a class="chapter-name" href="/manga-m/chapter-1" title="Moon Chapter 1">Chapter 1</a></li>
		</ul>`)
	}))
	defer server.Close()

	c, err := NewController(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	manga := data.Manga{URL: server.URL + "/manga-m", Title: "Moon", Connector: data.Manganato}
	chapters, err := c.ListChapters(context.Background(), manga)
	require.NoError(t, err)
	require.Len(t, chapters, 2)
	assert.Equal(t, "Chapter 2", chapters[0].Title)

	_, err = c.ListChapters(context.Background(), manga)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())
}

func TestControllerCatalogStreamsListing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/genre-all/1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<div class="genres-item-info"><h3><a class="genres-item-name" href="/manga-a" title="Alpha Manga">Alpha</a></h3></div>
			<div class="genres-item-info"><h3><a class="genres-item-name" href="/manga-b" title="Beta">Beta</a></h3></div>`)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<span class="info-image"><img src="/icons/x.jpg"></span>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c, err := NewController(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	var titles []string
	for manga, err := range c.Catalog(context.Background(), 1) {
		require.NoError(t, err)
		titles = append(titles, manga.Title)
	}
	assert.Equal(t, []string{"Alpha", "Beta"}, titles)
}

func TestControllerCatalogStopsAtError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	c, err := NewController(testConfig(t, server.URL), nil)
	require.NoError(t, err)
	defer c.Close()

	count := 0
	for _, err := range c.Catalog(context.Background(), 1) {
		count++
		assert.True(t, data.IsKind(err, data.RequestFail))
	}
	assert.Equal(t, 1, count)
}

package services

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"

	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/sources"
	"github.com/kerbaras/mangetsu/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pageSize = 100 * 1024

type pageSite struct {
	server   *httptest.Server
	mu       sync.Mutex
	referers []string
}

// newPageSite serves three chapters: "sized" with Content-Length set,
// "unsized" streamed without it and "noext" whose page has no extension.
func newPageSite(t *testing.T) *pageSite {
	t.Helper()
	site := &pageSite{}
	mux := http.NewServeMux()

	reader := func(srcs ...string) string {
		var b bytes.Buffer
		b.WriteString(`<div class="container-chapter-reader">`)
		for _, src := range srcs {
			fmt.Fprintf(&b, `<img src="%s">`, src)
		}
		b.WriteString(`</div>`)
		return b.String()
	}
	mux.HandleFunc("/manga-m/chapter-sized", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reader("/img/0.jpg", "/img/1.png"))
	})
	mux.HandleFunc("/manga-m/chapter-unsized", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reader("/stream/0.jpg", "/stream/1.jpg"))
	})
	mux.HandleFunc("/manga-m/chapter-noext", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reader("/img/page"))
	})
	mux.HandleFunc("/manga-m/chapter-empty", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, reader())
	})
	mux.HandleFunc("/img/", func(w http.ResponseWriter, r *http.Request) {
		site.mu.Lock()
		site.referers = append(site.referers, r.Header.Get("Referer"))
		site.mu.Unlock()
		w.Header().Set("Content-Length", strconv.Itoa(pageSize))
		w.Write(bytes.Repeat([]byte{'x'}, pageSize))
	})
	mux.HandleFunc("/stream/", func(w http.ResponseWriter, r *http.Request) {
		flusher := w.(http.Flusher)
		for range 4 {
			w.Write(bytes.Repeat([]byte{'y'}, 8*1024))
			flusher.Flush()
		}
	})

	site.server = httptest.NewServer(mux)
	t.Cleanup(site.server.Close)
	return site
}

func (s *pageSite) seenReferers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.referers...)
}

func newTestDownloader(t *testing.T, site *pageSite, library Library) (*Downloader, string) {
	t.Helper()
	api := utils.NewAPIWithClient(site.server.Client())
	m, err := sources.NewManganato(api, site.server.URL)
	require.NoError(t, err)
	dir := t.TempDir()
	return NewDownloader(sources.NewRegistry(m), api, library, dir, nil), dir
}

func siteChapter(site *pageSite, name string) data.Chapter {
	manga := data.Manga{URL: site.server.URL + "/manga-m", Title: "Moon: Rise?", Connector: data.Manganato}
	return data.Chapter{
		URL:       site.server.URL + "/manga-m/chapter-" + name,
		Title:     "Chapter " + name,
		Connector: data.Manganato,
		Manga:     manga,
	}
}

type recordingLibrary struct {
	chapters []data.Chapter
	paths    []string
}

func (r *recordingLibrary) MarkChapterDownloaded(chapter data.Chapter, path string) error {
	r.chapters = append(r.chapters, chapter)
	r.paths = append(r.paths, path)
	return nil
}

func TestDownloadWritesPagesAndMetadata(t *testing.T) {
	site := newPageSite(t)
	library := &recordingLibrary{}
	d, base := newTestDownloader(t, site, library)
	chapter := siteChapter(site, "sized")

	dir, err := d.Download(context.Background(), chapter, nil)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "Moon- Rise-", "Chapter sized"), dir)
	for _, name := range []string{"0.jpg", "1.png"} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err)
		assert.Equal(t, int64(pageSize), info.Size())
	}

	got, err := data.ReadChapterMetadata(dir)
	require.NoError(t, err)
	assert.True(t, got.Equal(chapter))
	assert.True(t, got.Manga.Equal(chapter.Manga))
	assert.FileExists(t, filepath.Join(base, "Moon- Rise-", data.MetadataFile))

	assert.Equal(t, []string{chapter.URL, chapter.URL}, site.seenReferers())
	require.Len(t, library.paths, 1)
	assert.Equal(t, dir, library.paths[0])
}

func TestDownloadProgressIsMonotonic(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)
	chapter := siteChapter(site, "sized")

	var reports []float64
	_, err := d.Download(context.Background(), chapter, func(c data.Chapter, p float64) {
		assert.True(t, c.Equal(chapter))
		reports = append(reports, p)
	})
	require.NoError(t, err)

	require.NotEmpty(t, reports)
	assert.Greater(t, len(reports), 4, "one report per chunk")
	for i, p := range reports {
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, p, reports[i-1])
		}
	}
	assert.Equal(t, 1.0, reports[len(reports)-1])
	assert.Contains(t, reports, 0.5, "first page boundary")
}

func TestDownloadUnknownLengthReportsPageBoundaries(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)

	var reports []float64
	dir, err := d.Download(context.Background(), siteChapter(site, "unsized"), func(_ data.Chapter, p float64) {
		reports = append(reports, p)
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{0.5, 1.0}, reports)
	info, err := os.Stat(filepath.Join(dir, "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, int64(32*1024), info.Size())
}

func TestDownloadOverwritesExistingPages(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)
	chapter := siteChapter(site, "sized")

	dir := d.ChapterDir(chapter)
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "0.jpg"), bytes.Repeat([]byte{'z'}, 2*pageSize), 0644))

	_, err := d.Download(context.Background(), chapter, nil)
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "0.jpg"))
	require.NoError(t, err)
	assert.Equal(t, int64(pageSize), info.Size())
}

func TestDownloadMissingExtension(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)

	_, err := d.Download(context.Background(), siteChapter(site, "noext"), nil)
	require.Error(t, err)
	assert.True(t, data.IsKind(err, data.ParseError))
}

func TestDownloadEmptyChapter(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)

	_, err := d.Download(context.Background(), siteChapter(site, "empty"), nil)
	assert.True(t, data.IsKind(err, data.ParseError))
}

func TestDownloadRequestFailure(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)

	_, err := d.Download(context.Background(), siteChapter(site, "missing"), nil)
	assert.True(t, data.IsKind(err, data.RequestFail))
}

func TestDownloadUnknownConnector(t *testing.T) {
	site := newPageSite(t)
	d, _ := newTestDownloader(t, site, nil)
	chapter := siteChapter(site, "sized")
	chapter.Connector = "nope"

	_, err := d.Download(context.Background(), chapter, nil)
	assert.Error(t, err)
}

func TestPageExtension(t *testing.T) {
	tests := []struct {
		url     string
		want    string
		wantErr bool
	}{
		{"https://cdn.example.com/a/b/1.jpg", ".jpg", false},
		{"https://cdn.example.com/a/b/1.webp?token=abc", ".webp", false},
		{"https://cdn.example.com/a/b/1", "", true},
		{"https://cdn.example.com/a.b/", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := pageExtension(tt.url)
			if tt.wantErr {
				assert.True(t, data.IsKind(err, data.ParseError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProgressTrackerClampsAndNeverDecreases(t *testing.T) {
	var got []float64
	tr := newProgressTracker(2, func(p float64) { got = append(got, p) })

	tr.chunk(0, 50, 100)
	tr.chunk(0, 150, 100)
	tr.pageDone(0)
	tr.chunk(1, 10, 100)
	tr.chunk(0, 10, 100)
	tr.pageDone(1)

	assert.Equal(t, []float64{0.25, 0.5, 0.5, 0.55, 0.55, 1.0}, got)
}

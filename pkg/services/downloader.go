package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/kerbaras/mangetsu/pkg/data"
	"github.com/kerbaras/mangetsu/pkg/sources"
	"github.com/kerbaras/mangetsu/pkg/utils"
)

const chunkSize = 32 * 1024

// ProgressFunc receives the overall fraction of a chapter written so far.
type ProgressFunc func(chapter data.Chapter, progress float64)

// Library records finished chapters.
type Library interface {
	MarkChapterDownloaded(chapter data.Chapter, path string) error
}

// Downloader writes chapter pages to disk one chunk at a time.
type Downloader struct {
	registry    *sources.Registry
	api         *utils.API
	library     Library
	downloadDir string
	log         *log.Logger
}

// NewDownloader builds a Downloader. library may be nil.
func NewDownloader(registry *sources.Registry, api *utils.API, library Library, downloadDir string, logger *log.Logger) *Downloader {
	if logger == nil {
		logger = utils.DiscardLogger()
	}
	return &Downloader{
		registry:    registry,
		api:         api,
		library:     library,
		downloadDir: downloadDir,
		log:         logger.WithPrefix("downloader"),
	}
}

func (d *Downloader) MangaDir(manga data.Manga) string {
	return filepath.Join(d.downloadDir, utils.SanitizeFilename(manga.Title))
}

func (d *Downloader) ChapterDir(chapter data.Chapter) string {
	return filepath.Join(d.MangaDir(chapter.Manga), utils.SanitizeFilename(chapter.Title))
}

// Download fetches every page of chapter into its directory and returns that
// directory. The page list is collected before any byte is written so the
// page count is known up front.
func (d *Downloader) Download(ctx context.Context, chapter data.Chapter, progress ProgressFunc) (string, error) {
	connector, ok := d.registry.Get(chapter.Connector)
	if !ok {
		return "", fmt.Errorf("no connector registered for %q", chapter.Connector)
	}

	pages, err := sources.Collect(connector.GetPages(ctx, chapter))
	if err != nil {
		return "", fmt.Errorf("failed to get pages: %w", err)
	}
	if len(pages) == 0 {
		return "", data.ParseErrorf("no pages found for %s", chapter.URL)
	}

	mangaDir := d.MangaDir(chapter.Manga)
	chapterDir := d.ChapterDir(chapter)
	if err := os.MkdirAll(chapterDir, 0755); err != nil {
		return "", data.NewIoError(err)
	}
	if err := data.WriteMetadata(mangaDir, chapter.Manga); err != nil {
		return "", err
	}
	if err := data.WriteMetadata(chapterDir, chapter); err != nil {
		return "", err
	}

	d.log.Info("downloading chapter", "manga", chapter.Manga.Title, "chapter", chapter.Title, "pages", len(pages))

	tracker := newProgressTracker(len(pages), func(p float64) {
		if progress != nil {
			progress(chapter, p)
		}
	})
	for i, page := range pages {
		if err := d.downloadPage(ctx, chapterDir, i, page, tracker); err != nil {
			return "", fmt.Errorf("failed to download page %d: %w", i, err)
		}
		tracker.pageDone(i)
	}

	if d.library != nil {
		if err := d.library.MarkChapterDownloaded(chapter, chapterDir); err != nil {
			d.log.Warn("failed to record chapter in library", "chapter", chapter.URL, "err", err)
		}
	}
	d.log.Info("chapter downloaded", "chapter", chapter.Title, "dir", chapterDir)
	return chapterDir, nil
}

func (d *Downloader) downloadPage(ctx context.Context, dir string, index int, page data.Page, tracker *progressTracker) error {
	ext, err := pageExtension(page.URL)
	if err != nil {
		return err
	}

	resp, err := d.api.Get(ctx, page.URL, page.Referer)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	file, err := os.OpenFile(filepath.Join(dir, strconv.Itoa(index)+ext), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return data.NewIoError(err)
	}
	defer file.Close()

	buf := make([]byte, chunkSize)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return data.NewIoError(err)
			}
			written += int64(n)
			tracker.chunk(index, written, resp.ContentLength)
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			return data.NewRequestFail(readErr)
		}
	}
	return data.NewIoError(file.Close())
}

// pageExtension returns the extension of the URL path including the dot.
func pageExtension(pageURL string) (string, error) {
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", data.ParseErrorf("bad page url %q: %v", pageURL, err)
	}
	ext := path.Ext(u.Path)
	if ext == "" || ext == "." {
		return "", data.ParseErrorf("page url %q has no file extension", pageURL)
	}
	return ext, nil
}

// progressTracker turns per-page byte counts into a chapter-wide fraction.
// Every page weighs the same; reported values never decrease.
type progressTracker struct {
	total  int
	last   float64
	report func(float64)
}

func newProgressTracker(total int, report func(float64)) *progressTracker {
	return &progressTracker{total: total, last: -1, report: report}
}

// chunk reports progress inside page index. Unknown lengths report nothing;
// the page boundary will.
func (t *progressTracker) chunk(index int, written, length int64) {
	if length <= 0 {
		return
	}
	frac := float64(written) / float64(length)
	if frac > 1 {
		frac = 1
	}
	t.emit((float64(index) + frac) / float64(t.total))
}

func (t *progressTracker) pageDone(index int) {
	t.emit(float64(index+1) / float64(t.total))
}

func (t *progressTracker) emit(p float64) {
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	if p < t.last {
		p = t.last
	}
	t.last = p
	t.report(p)
}
